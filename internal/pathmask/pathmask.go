// Package pathmask implements spec.md §4.5's path-mask substitution table:
// a small exact-match dictionary letting an operator redirect replay I/O
// away from the paths recorded in the original trace (e.g. because the
// traced mount lived at a path that doesn't exist, or shouldn't be written
// to, on the replay host).
package pathmask

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Table is an exact-match original-path -> replacement-path dictionary.
// Lookups are against fully resolved (mount-joined) paths, not the raw
// relative paths stored on syscall records.
type Table struct {
	entries map[string]string
}

// NewTable returns an empty mask table; Lookup always misses.
func NewTable() *Table {
	return &Table{entries: make(map[string]string)}
}

// Add registers a single original -> replacement mapping, overwriting any
// existing mapping for original.
func (t *Table) Add(original, replacement string) {
	t.entries[original] = replacement
}

// Lookup returns the replacement for path, if one was registered.
func (t *Table) Lookup(path string) (string, bool) {
	replacement, ok := t.entries[path]
	return replacement, ok
}

// Len reports how many mappings are registered.
func (t *Table) Len() int {
	return len(t.entries)
}

// ParseFlag parses one repeated `--mask original:replacement` flag value
// into the table. The separator is the first colon, so replacement paths
// may themselves contain colons (unlikely on POSIX, but cheap to allow).
func (t *Table) ParseFlag(raw string) error {
	idx := strings.IndexByte(raw, ':')
	if idx < 0 {
		return fmt.Errorf("pathmask: malformed --mask value %q, want original:replacement", raw)
	}
	original, replacement := raw[:idx], raw[idx+1:]
	if original == "" || replacement == "" {
		return fmt.Errorf("pathmask: malformed --mask value %q, want original:replacement", raw)
	}
	t.Add(original, replacement)
	return nil
}

// fileEntry is the decode target for one line of a mask file, handled via
// mapstructure the way cfg decodes structured config (SPEC_FULL.md §3).
type fileEntry struct {
	Original    string `mapstructure:"original"`
	Replacement string `mapstructure:"replacement"`
}

// LoadFile reads a newline-delimited `original:replacement` mask file,
// tolerating blank lines and `#`-prefixed comments, and merges its entries
// into the table.
func LoadFile(path string, t *Table) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("pathmask: open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		idx := strings.IndexByte(line, ':')
		if idx < 0 {
			return fmt.Errorf("pathmask: %s:%d: malformed entry %q", path, lineNo, line)
		}
		raw := map[string]interface{}{
			"original":    line[:idx],
			"replacement": line[idx+1:],
		}
		var entry fileEntry
		if err := mapstructure.Decode(raw, &entry); err != nil {
			return fmt.Errorf("pathmask: %s:%d: %w", path, lineNo, err)
		}
		t.Add(entry.Original, entry.Replacement)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("pathmask: read %s: %w", path, err)
	}
	return nil
}
