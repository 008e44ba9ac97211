package results

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antismash/asdb-jobs/internal/jobs/joberr"
	"github.com/antismash/asdb-jobs/internal/jobs/metadata"
)

func line(nident, qlen int) string {
	return "q1\ts1|rest\t" + itoa(nident) + "\tQSEQ\t1\t10\t" + itoa(qlen) + "\tSSEQ\t1\t10\t20"
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var b []byte
	for n > 0 {
		b = append([]byte{byte('0' + n%10)}, b...)
		n /= 10
	}
	if neg {
		b = append([]byte{'-'}, b...)
	}
	return string(b)
}

func TestParseBlast_HappyPath(t *testing.T) {
	res, err := ParseBlast([]string{line(50, 100)})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "q1", res[0].QAcc)
	assert.Equal(t, "s1|rest", res[0].SAcc)
	assert.Equal(t, 50, res[0].Identity)
}

func TestParseBlast_SkipsBlankLines(t *testing.T) {
	res, err := ParseBlast([]string{"", line(100, 100), "  "})
	require.NoError(t, err)
	assert.Len(t, res, 1)
}

func TestParseBlast_WrongArity(t *testing.T) {
	_, err := ParseBlast([]string{"a\tb\tc"})
	require.Error(t, err)
	assert.True(t, joberr.IsJobClass(err))
}

func TestParseBlast_ZeroQLenIsError(t *testing.T) {
	_, err := ParseBlast([]string{line(10, 0)})
	require.Error(t, err)
	assert.True(t, joberr.IsJobClass(err))
}

func TestComparippsonResults_SortsDescendingStable(t *testing.T) {
	blasts := []BlastResult{
		{QAcc: "first", SAcc: "e1|x", Identity: 50},
		{QAcc: "highest", SAcc: "e2|x", Identity: 90},
		{QAcc: "second", SAcc: "e1|y", Identity: 50},
	}
	md := newMetadata(t, map[string]metadata.Entry{
		"e1": {Locus: "L1", Type: "T1", Accession: "A1", RecordStart: json.RawMessage("1"), RecordEnd: json.RawMessage("2")},
		"e2": {Locus: "L2", Type: "T2", Accession: "A2", RecordStart: json.RawMessage("1"), RecordEnd: json.RawMessage("2")},
	})

	out, err := ComparippsonResults(blasts, md)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, "highest", out[0].QAcc)
	assert.Equal(t, "first", out[1].QAcc)
	assert.Equal(t, "second", out[2].QAcc)
}

func TestComparippsonResults_MissingEntryIsJobClassError(t *testing.T) {
	blasts := []BlastResult{{SAcc: "unknown|x", Identity: 10}}
	md := newMetadata(t, map[string]metadata.Entry{})

	_, err := ComparippsonResults(blasts, md)
	require.Error(t, err)
	assert.True(t, joberr.IsJobClass(err))
}

func newMetadata(t *testing.T, entries map[string]metadata.Entry) *metadata.Metadata {
	t.Helper()
	return metadata.New(entries)
}

func TestClusterBlastResults_PreservesOrder(t *testing.T) {
	blasts := []BlastResult{
		{QAcc: "q1", Identity: 10},
		{QAcc: "q2", Identity: 90},
	}
	out := ClusterBlastResults(blasts)
	require.Len(t, out, 2)
	assert.Equal(t, "q1", out[0].QAcc)
	assert.Equal(t, "q2", out[1].QAcc)
}
