// Package presort implements spec.md §4.3: an external merge sort over a
// trace file's data records, for traces recorded out of timestamp order.
// The header line and the mount line are preserved in place and never
// sorted.
package presort

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
)

// DefaultChunkSize is the number of data lines read into memory per sort
// chunk (spec.md §4.3 "default 50_000 lines").
const DefaultChunkSize = 50_000

// Options configures one Sort invocation.
type Options struct {
	// ChunkSize is the number of lines sorted in memory per pass. Zero
	// means DefaultChunkSize.
	ChunkSize int
	// TempDir is where intermediate chunk files are written; empty means
	// os.TempDir().
	TempDir string
}

func (o Options) chunkSize() int {
	if o.ChunkSize <= 0 {
		return DefaultChunkSize
	}
	return o.ChunkSize
}

// Sort reorders the data records of the trace file at path by the integer
// value of their first (timestamp) field, in place: it reads the header
// and mount lines, chunks the remaining records, sorts each chunk
// concurrently, spills chunks to temp files, and k-way merges them back
// into path.
func Sort(path string, opts Options) error {
	header, mountLine, chunkPaths, err := splitAndChunk(path, opts)
	for _, cp := range chunkPaths {
		defer os.Remove(cp)
	}
	if err != nil {
		return err
	}

	// The merge output must land on the same filesystem as path so the
	// final replaceFile rename is atomic, regardless of where chunk temp
	// files were written.
	out, err := os.CreateTemp(filepath.Dir(path), "ioreplay-presort-merged-*")
	if err != nil {
		return fmt.Errorf("presort: create merge output: %w", err)
	}
	defer os.Remove(out.Name())

	w := bufio.NewWriter(out)
	if _, err := w.WriteString(header + "\n"); err != nil {
		return fmt.Errorf("presort: write header: %w", err)
	}
	if mountLine != "" {
		if _, err := w.WriteString(mountLine + "\n"); err != nil {
			return fmt.Errorf("presort: write mount line: %w", err)
		}
	}
	if err := kWayMerge(chunkPaths, w); err != nil {
		out.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		out.Close()
		return fmt.Errorf("presort: flush merge output: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("presort: close merge output: %w", err)
	}

	if err := replaceFile(out.Name(), path); err != nil {
		return err
	}
	return nil
}

// splitAndChunk reads path's header and mount lines, then splits the
// remaining data lines into opts.chunkSize()-sized chunks, sorting each
// concurrently (spec.md §4.3's chunking, with an errgroup fan-out of one
// goroutine per chunk and no concurrency limit) and spilling each sorted
// chunk to its own temp file.
func splitAndChunk(path string, opts Options) (header, mountLine string, chunkPaths []string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", "", nil, fmt.Errorf("presort: open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if !scanner.Scan() {
		return "", "", nil, fmt.Errorf("presort: %s is empty", path)
	}
	header = scanner.Text()
	if !scanner.Scan() {
		return header, "", nil, nil
	}
	mountLine = scanner.Text()

	chunkSize := opts.chunkSize()
	var chunks [][]string
	var current []string
	for scanner.Scan() {
		current = append(current, scanner.Text())
		if len(current) >= chunkSize {
			chunks = append(chunks, current)
			current = nil
		}
	}
	if len(current) > 0 {
		chunks = append(chunks, current)
	}
	if err := scanner.Err(); err != nil {
		return "", "", nil, fmt.Errorf("presort: read %s: %w", path, err)
	}

	chunkPaths = make([]string, len(chunks))
	g := new(errgroup.Group)
	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			sortLinesByTimestamp(chunk)
			chunkPath, err := writeChunk(opts.TempDir, chunk)
			if err != nil {
				return err
			}
			chunkPaths[i] = chunkPath
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", "", chunkPaths, err
	}
	return header, mountLine, chunkPaths, nil
}

func sortLinesByTimestamp(lines []string) {
	sort.SliceStable(lines, func(i, j int) bool {
		return firstFieldInt(lines[i]) < firstFieldInt(lines[j])
	})
}

func firstFieldInt(line string) int64 {
	idx := strings.IndexByte(line, ',')
	field := line
	if idx >= 0 {
		field = line[:idx]
	}
	n, err := strconv.ParseInt(strings.TrimSpace(field), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func writeChunk(tempDir string, lines []string) (string, error) {
	f, err := os.CreateTemp(tempDir, "ioreplay-presort-chunk-*")
	if err != nil {
		return "", fmt.Errorf("presort: create chunk file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, line := range lines {
		if _, err := w.WriteString(line); err != nil {
			return "", fmt.Errorf("presort: write chunk: %w", err)
		}
		if _, err := w.WriteString("\n"); err != nil {
			return "", fmt.Errorf("presort: write chunk: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return "", fmt.Errorf("presort: flush chunk: %w", err)
	}
	return f.Name(), nil
}

// chunkReader is one open sorted chunk file with its current line buffered
// for comparison during the merge.
type chunkReader struct {
	scanner *bufio.Scanner
	file    *os.File
	current string
	valid   bool
}

func openChunkReader(path string) (*chunkReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("presort: open chunk %s: %w", path, err)
	}
	cr := &chunkReader{scanner: bufio.NewScanner(f), file: f}
	cr.scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	cr.advance()
	return cr, nil
}

func (cr *chunkReader) advance() {
	cr.valid = cr.scanner.Scan()
	if cr.valid {
		cr.current = cr.scanner.Text()
	}
}

func (cr *chunkReader) close() { cr.file.Close() }

// kWayMerge merges the sorted chunk files named by chunkPaths into w,
// picking the globally-smallest-timestamp line across all open chunks at
// each step.
func kWayMerge(chunkPaths []string, w *bufio.Writer) error {
	readers := make([]*chunkReader, 0, len(chunkPaths))
	for _, p := range chunkPaths {
		cr, err := openChunkReader(p)
		if err != nil {
			return err
		}
		defer cr.close()
		if cr.valid {
			readers = append(readers, cr)
		}
	}

	for len(readers) > 0 {
		minIdx := 0
		for i := 1; i < len(readers); i++ {
			if firstFieldInt(readers[i].current) < firstFieldInt(readers[minIdx].current) {
				minIdx = i
			}
		}
		if _, err := w.WriteString(readers[minIdx].current); err != nil {
			return fmt.Errorf("presort: write merged line: %w", err)
		}
		if _, err := w.WriteString("\n"); err != nil {
			return fmt.Errorf("presort: write merged line: %w", err)
		}
		readers[minIdx].advance()
		if !readers[minIdx].valid {
			readers[minIdx].close()
			readers = append(readers[:minIdx], readers[minIdx+1:]...)
		}
	}
	return nil
}

func replaceFile(src, dst string) error {
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("presort: replace %s: %w", dst, err)
	}
	return nil
}
