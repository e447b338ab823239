package tracefmt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine_CanonicalArity(t *testing.T) {
	fields := []string{"200", "lookup", "10", "M", "0", "0", "a", "U", "f", "4096", "", "", ""}
	require.Equal(t, FieldCount, len(fields))
	rec, err := ParseLine(strings.Join(fields, ","), 2)
	require.NoError(t, err)
	assert.Equal(t, int64(200000), rec.TimestampNs)
	assert.Equal(t, "lookup", rec.Op)
	assert.Equal(t, int64(10000), rec.DurationNs)
	assert.Equal(t, "M", rec.UUID)
	assert.Equal(t, int64(0), rec.HandleID)
	assert.Equal(t, int64(0), rec.Retries)
	assert.Equal(t, "a", rec.Arg(0))
	assert.Equal(t, "U", rec.Arg(1))
	assert.Equal(t, "f", rec.Arg(2))
	assert.Equal(t, "4096", rec.Arg(3))
	assert.Equal(t, "", rec.Arg(4))
}

func TestParseLine_MissingTrailingField(t *testing.T) {
	base := []string{"260", "release", "2", "U", "7", "0", "", "", "", "", "", ""}
	full := strings.Join(append(append([]string{}, base...), ""), ",")  // 13 fields, last empty
	short := strings.Join(base, ",")                                    // 12 fields

	require.Equal(t, FieldCount, len(strings.Split(full, ",")))
	require.Equal(t, FieldCount-1, len(strings.Split(short, ",")))

	recFull, err := ParseLine(full, 5)
	require.NoError(t, err)
	recShort, err := ParseLine(short, 5)
	require.NoError(t, err)

	assert.Equal(t, recFull, recShort)
}

func TestParseLine_WrongArityFails(t *testing.T) {
	_, err := ParseLine("1,2,3", 9)
	require.Error(t, err)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 9, pe.Line)
	assert.Equal(t, FieldCount, pe.Expected)
	assert.Equal(t, 3, pe.Actual)
}

func TestParseLine_BadInteger(t *testing.T) {
	fields := []string{"x", "lookup", "10", "M", "0", "0", "", "", "", "", "", "", ""}
	require.Equal(t, FieldCount, len(fields))
	_, err := ParseLine(strings.Join(fields, ","), 3)
	require.Error(t, err)
}
