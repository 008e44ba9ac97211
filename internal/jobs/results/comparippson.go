package results

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/antismash/asdb-jobs/internal/jobs/joberr"
	"github.com/antismash/asdb-jobs/internal/jobs/metadata"
)

// ComparippsonResult is a BlastResult enriched with the static metadata
// entry keyed by the subject accession's leading `|`-delimited field
// (spec §4.5). SRecStart/SRecEnd carry whatever JSON shape the metadata
// file gave them (spec.md §8 gives plain numbers) instead of forcing a
// concrete Go type.
type ComparippsonResult struct {
	QAcc      string          `json:"q_acc"`
	SLocus    string          `json:"s_locus"`
	SType     string          `json:"s_type"`
	SAcc      string          `json:"s_acc"`
	SRecStart json.RawMessage `json:"s_rec_start"`
	SRecEnd   json.RawMessage `json:"s_rec_end"`
	Identity  int             `json:"identity"`
	QSeq      string          `json:"q_seq"`
	QStart    int             `json:"q_start"`
	QEnd      int             `json:"q_end"`
	QLen      int             `json:"q_len"`
	SSeq      string          `json:"s_seq"`
	SStart    int             `json:"s_start"`
	SEnd      int             `json:"s_end"`
	SLen      int             `json:"s_len"`
}

// entryID is the substring of a subject accession preceding its first
// '|' character.
func entryID(sAcc string) string {
	if idx := strings.IndexByte(sAcc, '|'); idx >= 0 {
		return sAcc[:idx]
	}
	return sAcc
}

// ComparippsonFromBlast enriches a single BlastResult. A missing
// metadata entry is a fatal job-class error (spec §4.5).
func ComparippsonFromBlast(b BlastResult, md *metadata.Metadata) (ComparippsonResult, error) {
	id := entryID(b.SAcc)
	entry, ok := md.Lookup(id)
	if !ok {
		return ComparippsonResult{}, joberr.MissingMetadataEntry(id)
	}

	return ComparippsonResult{
		QAcc:      b.QAcc,
		SLocus:    entry.Locus,
		SType:     entry.Type,
		SAcc:      entry.Accession,
		SRecStart: entry.RecordStart,
		SRecEnd:   entry.RecordEnd,
		Identity:  b.Identity,
		QSeq:      b.QSeq,
		QStart:    b.QStart,
		QEnd:      b.QEnd,
		QLen:      b.QLen,
		SSeq:      b.SSeq,
		SStart:    b.SStart,
		SEnd:      b.SEnd,
		SLen:      b.SLen,
	}, nil
}

// ComparippsonResults enriches every blast hit and sorts the output by
// identity descending, ties preserving input order (spec §4.5).
func ComparippsonResults(blasts []BlastResult, md *metadata.Metadata) ([]ComparippsonResult, error) {
	out := make([]ComparippsonResult, 0, len(blasts))
	for _, b := range blasts {
		r, err := ComparippsonFromBlast(b, md)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Identity > out[j].Identity
	})
	return out, nil
}
