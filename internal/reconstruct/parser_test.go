package reconstruct

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onedata/ioreplay/internal/syscallrec"
)

const header = "timestamp,op,duration,uuid,handle_id,retries,arg0,arg1,arg2,arg3,arg4,arg5,arg6"

func line(fields ...string) string {
	full := make([]string, 13)
	copy(full, fields)
	return strings.Join(full, ",")
}

func mountLine(timestamp, uuid string) string {
	return line(timestamp, "mount", "0", uuid, "0", "0")
}

func trace(lines ...string) string {
	return header + "\n" + strings.Join(lines, "\n") + "\n"
}

// TestParse_OpenReadClose is spec.md §8 scenario S1.
func TestParse_OpenReadClose(t *testing.T) {
	input := trace(
		mountLine("100", "M"),
		line("200", "lookup", "10", "M", "0", "0", "a", "U", "f", "4096"),
		line("215", "open", "5", "U", "7", "0", "0"),
		line("230", "read", "20", "U", "7", "0", "0", "4096"),
		line("260", "release", "2", "U", "7", "0"),
	)

	result, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, result.Syscalls, 3)

	open, ok := result.Syscalls[0].(syscallrec.Open)
	require.True(t, ok)
	assert.Equal(t, "a", open.Path)
	assert.Equal(t, 0, open.Flags)
	assert.Equal(t, int64(7), open.HandleID)
	assert.Equal(t, int64(200_000), open.TimestampNs())
	assert.Equal(t, int64(20_000), open.DurationNs())

	read, ok := result.Syscalls[1].(syscallrec.Read)
	require.True(t, ok)
	assert.Equal(t, int64(7), read.HandleID)
	assert.Equal(t, int64(4096), read.Size)
	assert.Equal(t, int64(230_000), read.TimestampNs())
	assert.Equal(t, int64(20_000), read.DurationNs())

	closeOp, ok := result.Syscalls[2].(syscallrec.Close)
	require.True(t, ok)
	assert.Equal(t, int64(7), closeOp.HandleID)
	assert.Equal(t, int64(260_000), closeOp.TimestampNs())
	assert.Equal(t, int64(2_000), closeOp.DurationNs())
}

// TestParse_CoalescedGetattr is spec.md §8 scenario S2.
func TestParse_CoalescedGetattr(t *testing.T) {
	input := trace(
		mountLine("0", "M"),
		line("100", "lookup", "5", "M", "0", "0", "b", "V", "f", "0"),
		line("105", "getattr", "3", "V", "0", "0"),
	)

	result, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, result.Syscalls, 1)

	stat, ok := result.Syscalls[0].(syscallrec.Stat)
	require.True(t, ok)
	assert.Equal(t, "b", stat.Path)
	assert.Equal(t, int64(100_000), stat.TimestampNs())
	assert.Equal(t, int64(8_000), stat.DurationNs())
}

// TestParse_UncoalescedGetattr is spec.md §8 scenario S3 (second half: gap
// exceeds the coalescence window, so the lookup stays pending).
func TestParse_UncoalescedGetattr(t *testing.T) {
	input := trace(
		mountLine("0", "M"),
		line("100", "lookup", "5", "M", "0", "0", "b", "V", "f", "0"),
		line("500", "getattr", "3", "V", "0", "0"),
	)

	result, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, result.Syscalls, 1)

	stat, ok := result.Syscalls[0].(syscallrec.Stat)
	require.True(t, ok)
	assert.Equal(t, int64(500_000), stat.TimestampNs())
	assert.Equal(t, int64(3_000), stat.DurationNs())
}

// TestParse_MkdirCreate is spec.md §8 scenario S4.
func TestParse_MkdirCreate(t *testing.T) {
	input := trace(
		mountLine("0", "M"),
		line("10", "lookup", "1", "M", "0", "0", "P", "PU", "d", "0"),
		line("20", "mkdir", "1", "PU", "0", "0", "D", "DU", "0755"),
		line("40", "create", "1", "DU", "9", "0", "c", "CU", "0644", "0"),
	)

	result, err := Parse(strings.NewReader(input))
	require.NoError(t, err)

	parentFile, ok := result.Environment.Resolve("PU")
	require.True(t, ok)
	assert.Equal(t, 1, parentFile.Size.Known, "mkdir must bump the parent's known_children")

	dirFile, ok := result.Environment.Resolve("DU")
	require.True(t, ok)
	assert.Equal(t, 1, dirFile.Size.Known, "create under D must bump D's known_children")
}

// TestParse_PaginatedReaddirRaisesUnknownChildren is spec.md §8 scenario S5.
func TestParse_PaginatedReaddirRaisesUnknownChildren(t *testing.T) {
	input := trace(
		mountLine("0", "M"),
		line("10", "lookup", "1", "M", "0", "0", "D", "DU", "d", "0"),
		line("20", "readdir", "1", "DU", "0", "0", "10", "0"),
	)

	result, err := Parse(strings.NewReader(input))
	require.NoError(t, err)

	dirFile, ok := result.Environment.Resolve("DU")
	require.True(t, ok)
	assert.Equal(t, 8, dirFile.Size.Unknown)
}

// TestParse_Rename is spec.md §8 scenario S6.
func TestParse_Rename(t *testing.T) {
	input := trace(
		mountLine("0", "M"),
		line("10", "lookup", "1", "M", "0", "0", "A", "AU", "d", "0"),
		line("11", "lookup", "1", "M", "0", "0", "B", "BU", "d", "0"),
		line("20", "create", "1", "AU", "9", "0", "f", "FU", "0644", "0"),
		line("30", "rename", "1", "AU", "0", "0", "f", "BU", "f", "GU"),
	)

	result, err := Parse(strings.NewReader(input))
	require.NoError(t, err)

	a, ok := result.Environment.Resolve("AU")
	require.True(t, ok)
	assert.Equal(t, 0, a.Size.Known)

	b, ok := result.Environment.Resolve("BU")
	require.True(t, ok)
	assert.Equal(t, 1, b.Size.Known)

	moved, ok := result.Environment.Resolve("GU")
	require.True(t, ok)
	assert.Equal(t, "B/f", moved.Path)
}

func TestParse_ReaddirOffsetPositiveCountZeroEmitsNothing(t *testing.T) {
	input := trace(
		mountLine("0", "M"),
		line("10", "lookup", "1", "M", "0", "0", "D", "DU", "d", "0"),
		line("20", "readdir", "1", "DU", "0", "0", "0", "5"),
	)

	result, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	assert.Empty(t, result.Syscalls)
}

func TestParse_FsyncAfterReleaseIsDropped(t *testing.T) {
	input := trace(
		mountLine("0", "M"),
		line("10", "lookup", "1", "M", "0", "0", "a", "U", "f", "0"),
		line("20", "open", "1", "U", "7", "0", "0"),
		line("30", "release", "1", "U", "7", "0"),
		line("40", "fsync", "1", "U", "7", "0", "0"),
	)

	result, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, result.Syscalls, 2, "fsync after release must be dropped")
	_, isOpen := result.Syscalls[0].(syscallrec.Open)
	_, isClose := result.Syscalls[1].(syscallrec.Close)
	assert.True(t, isOpen)
	assert.True(t, isClose)
}

func TestParse_MalformedMountLineIsFatal(t *testing.T) {
	_, err := Parse(strings.NewReader(header + "\n" + "not-enough-fields\n"))
	assert.Error(t, err)
}

func TestParse_RecordLevelErrorSkipsLineAndContinues(t *testing.T) {
	input := trace(
		mountLine("0", "M"),
		"garbled,line,with,wrong,arity",
		line("10", "lookup", "1", "M", "0", "0", "a", "U", "f", "0"),
		line("20", "getattr", "1", "U", "0", "0"),
	)

	result, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 1, result.SkippedLines)
	assert.Len(t, result.Syscalls, 1)
}
