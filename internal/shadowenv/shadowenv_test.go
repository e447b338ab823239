package shadowenv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvironment_MountSeedsRoot(t *testing.T) {
	env := New()
	env.SeedMount("M")

	f, ok := env.Resolve("M")
	require.True(t, ok)
	assert.Equal(t, "", f.Path)
	assert.Equal(t, KindDir, f.Kind)
	assert.Equal(t, DirSize{0, 0}, f.Size)
	assert.True(t, env.IsMount("M"))
}

func TestEnvironment_LayerPrecedence(t *testing.T) {
	env := New()
	env.SeedMount("M")
	env.InsertDiscovered("A", NewFile("/mnt/a", 0), false)
	env.InsertRuntime("A", NewFile("/mnt/a-new", 10))

	f, ok := env.Resolve("A")
	require.True(t, ok)
	assert.Equal(t, "/mnt/a-new", f.Path, "runtime layer must shadow initial layer")
}

func TestEnvironment_MustResolveUnknownUUID(t *testing.T) {
	env := New()
	_, err := env.MustResolve("ghost", 42)
	require.Error(t, err)
	var ue *UnresolvedUUIDError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, 42, ue.Line)
}

func TestEnvironment_InitialFilesPreservesDiscoveryOrder(t *testing.T) {
	env := New()
	env.SeedMount("M")
	env.InsertDiscovered("A", NewFile("/mnt/a", 0), false)
	env.InsertDiscovered("B", NewFile("/mnt/b", 0), false)
	env.InsertDiscovered("C", NewFile("/mnt/c", 0), false)

	files := env.InitialFiles()
	require.Len(t, files, 3)
	assert.Equal(t, []string{"/mnt/a", "/mnt/b", "/mnt/c"}, []string{files[0].Path, files[1].Path, files[2].Path})
}

func TestDirSize_KnownNeverGoesNegative(t *testing.T) {
	d := NewDir("/mnt/d", 0, 0)
	d.DecrementKnown()
	assert.Equal(t, 0, d.Size.Known)
	d.IncrementKnown()
	d.DecrementKnown()
	d.DecrementKnown()
	assert.Equal(t, 0, d.Size.Known)
}

func TestPendingLookups_CoalesceWithinWindow(t *testing.T) {
	p := NewPendingLookups()
	p.Push("/mnt/b", 100_000, 5_000)

	ts, dur, coalesced := p.Take("/mnt/b", 105_000, 3_000, 250_000)
	require.True(t, coalesced)
	assert.Equal(t, int64(100_000), ts)
	assert.Equal(t, int64(8_000), dur)
	assert.Equal(t, 0, p.Pending())
}

func TestPendingLookups_ExactWindowBoundaryCoalesces(t *testing.T) {
	p := NewPendingLookups()
	p.Push("/mnt/b", 0, 0)

	// gap == 250_000 ns exactly: must coalesce (spec.md §8 boundary test).
	_, _, coalesced := p.Take("/mnt/b", 250_000, 1_000, 250_000)
	assert.True(t, coalesced)
}

func TestPendingLookups_OneOverWindowDoesNotCoalesce(t *testing.T) {
	p := NewPendingLookups()
	p.Push("/mnt/b", 0, 0)

	ts, dur, coalesced := p.Take("/mnt/b", 250_001, 1_000, 250_000)
	assert.False(t, coalesced)
	assert.Equal(t, int64(250_001), ts)
	assert.Equal(t, int64(1_000), dur)
	assert.Equal(t, 1, p.Pending(), "unmatched lookup must remain queued")
}

func TestPendingLookups_NewestFirstScanOrder(t *testing.T) {
	p := NewPendingLookups()
	// Both fit the window; the more recently pushed (second) one must win
	// since insertion is front-first and the scan runs front-to-back.
	p.Push("/mnt/b", 0, 0)
	p.Push("/mnt/b", 100, 0)

	ts, _, coalesced := p.Take("/mnt/b", 100, 0, 250_000)
	require.True(t, coalesced)
	assert.Equal(t, int64(100), ts)
	assert.Equal(t, 1, p.Pending())
}

func TestEnvironment_ResolveByPathFindsAcrossLayers(t *testing.T) {
	env := New()
	env.SeedMount("M")
	env.InsertDiscovered("A", NewFile("/mnt/a", 0), false)
	env.InsertRuntime("B", NewFile("/mnt/b", 0))

	f, ok := env.ResolveByPath("/mnt/a")
	require.True(t, ok)
	assert.Equal(t, KindFile, f.Kind)

	_, ok = env.ResolveByPath("/mnt/missing")
	assert.False(t, ok)
}

func TestOpenHandles_AddRemoveContains(t *testing.T) {
	h := NewOpenHandles()
	assert.False(t, h.Contains(7))
	h.Add(7)
	assert.True(t, h.Contains(7))
	h.Remove(7)
	assert.False(t, h.Contains(7))
}
