// Package results parses and enriches the tab-separated output of the
// BLAST-family tools the sandbox runs (spec §4.5).
package results

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/antismash/asdb-jobs/internal/jobs/joberr"
)

// BlastResult is one row of blastp/diamond tabular output, in the exact
// column order requested by the -outfmt/--outfmt strings in §6.
type BlastResult struct {
	QAcc     string `json:"q_acc"`
	SAcc     string `json:"s_acc"`
	Identity int    `json:"identity"`
	QSeq     string `json:"q_seq"`
	QStart   int    `json:"q_start"`
	QEnd     int    `json:"q_end"`
	QLen     int    `json:"q_len"`
	SSeq     string `json:"s_seq"`
	SStart   int    `json:"s_start"`
	SEnd     int    `json:"s_end"`
	SLen     int    `json:"s_len"`
}

const blastFieldCount = 11

// parseBlastLine parses a single tab-separated line into a BlastResult.
// Column order: qacc sacc nident qseq qstart qend qlen sseq sstart send slen.
func parseBlastLine(line string) (BlastResult, error) {
	parts := strings.Split(strings.TrimRight(line, "\r\n"), "\t")
	if len(parts) != blastFieldCount {
		return BlastResult{}, joberr.MalformedResultLine(fmt.Sprintf("expected %d tab-separated fields, got %d", blastFieldCount, len(parts)))
	}

	nident, err := strconv.Atoi(parts[2])
	if err != nil {
		return BlastResult{}, joberr.MalformedResultLine(fmt.Sprintf("nident: %v", err))
	}
	qStart, err := strconv.Atoi(parts[4])
	if err != nil {
		return BlastResult{}, joberr.MalformedResultLine(fmt.Sprintf("qstart: %v", err))
	}
	qEnd, err := strconv.Atoi(parts[5])
	if err != nil {
		return BlastResult{}, joberr.MalformedResultLine(fmt.Sprintf("qend: %v", err))
	}
	qLen, err := strconv.Atoi(parts[6])
	if err != nil {
		return BlastResult{}, joberr.MalformedResultLine(fmt.Sprintf("qlen: %v", err))
	}
	if qLen == 0 {
		return BlastResult{}, joberr.MalformedResultLine("qlen is zero, cannot compute identity")
	}
	sStart, err := strconv.Atoi(parts[8])
	if err != nil {
		return BlastResult{}, joberr.MalformedResultLine(fmt.Sprintf("sstart: %v", err))
	}
	sEnd, err := strconv.Atoi(parts[9])
	if err != nil {
		return BlastResult{}, joberr.MalformedResultLine(fmt.Sprintf("send: %v", err))
	}
	sLen, err := strconv.Atoi(parts[10])
	if err != nil {
		return BlastResult{}, joberr.MalformedResultLine(fmt.Sprintf("slen: %v", err))
	}

	identity := int(math.Round(float64(nident) / float64(qLen) * 100))

	return BlastResult{
		QAcc:     parts[0],
		SAcc:     parts[1],
		Identity: identity,
		QSeq:     parts[3],
		QStart:   qStart,
		QEnd:     qEnd,
		QLen:     qLen,
		SSeq:     parts[7],
		SStart:   sStart,
		SEnd:     sEnd,
		SLen:     sLen,
	}, nil
}

// ParseBlast parses every line of tabular output, stopping at the first
// malformed line (spec §4.5, §7: malformed result lines are a job-class
// error, not a partial result).
func ParseBlast(lines []string) ([]BlastResult, error) {
	out := make([]BlastResult, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		r, err := parseBlastLine(line)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
