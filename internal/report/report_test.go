package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onedata/ioreplay/internal/syscallrec"
)

func TestDumpSyscalls_WritesOneLinePerSyscall(t *testing.T) {
	stat := syscallrec.Stat{Path: "a"}
	stat.SetTiming(1000, 50)
	open := syscallrec.Open{Path: "b", HandleID: 7}
	open.SetTiming(2000, 20)

	var buf bytes.Buffer
	require.NoError(t, DumpSyscalls(&buf, []syscallrec.Syscall{stat, open}))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "stat")
	assert.Contains(t, lines[0], "ts=1000")
	assert.Contains(t, lines[1], "open")
	assert.Contains(t, lines[1], "dur=20")
}

func TestDumpSyscalls_EmptyListWritesNothing(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, DumpSyscalls(&buf, nil))
	assert.Empty(t, buf.String())
}

func TestTimingReport_OverheadIsZeroOnEmptyProgram(t *testing.T) {
	r := TimingReport{}
	assert.Equal(t, float64(0), r.OriginalOverhead())
	assert.Equal(t, float64(0), r.ReplayedOverhead())
}

func TestTimingReport_OverheadAndDelta(t *testing.T) {
	r := TimingReport{
		OriginalIODurationNs: 100,
		OriginalWallClockNs:  120,
		ReplayedIODurationNs: 150,
		ReplayedWallClockNs:  200,
	}
	assert.Equal(t, int64(50), r.IODelta())
	assert.InDelta(t, 100.0/120.0, r.OriginalOverhead(), 1e-9)
	assert.InDelta(t, 0.75, r.ReplayedOverhead(), 1e-9)
}

func TestTimingReport_Write(t *testing.T) {
	r := TimingReport{
		OriginalIODurationNs: 100,
		OriginalWallClockNs:  110,
		ReplayedIODurationNs: 120,
		ReplayedWallClockNs:  500,
		FailureCount:         2,
	}
	var buf bytes.Buffer
	require.NoError(t, r.Write(&buf))

	out := buf.String()
	assert.Contains(t, out, "original io duration (ns)")
	assert.Contains(t, out, "100")
	assert.Contains(t, out, "original wall clock (ns)")
	assert.Contains(t, out, "replayed wall clock (ns)")
	assert.Contains(t, out, "original overhead")
	assert.Contains(t, out, "replayed overhead")
	assert.Contains(t, out, "failures")
	assert.Contains(t, out, "2")
}
