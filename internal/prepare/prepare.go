// Package prepare implements spec.md §4.4: optionally walking the
// reconstructed initial layer twice before replay, first creating any
// entry missing from the real filesystem, then topping directories up
// with placeholder files so a later paginated readdir has enough entries
// to page through.
package prepare

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/onedata/ioreplay/internal/logger"
	"github.com/onedata/ioreplay/internal/shadowenv"
	"github.com/onedata/ioreplay/internal/syscallrec"
)

// FatalError wraps a creation failure during preparation, which aborts
// replay entirely (spec.md §7 "Preparation fatal").
type FatalError struct {
	Path string
	Err  error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("prepare: cannot create %s: %v", e.Path, e.Err)
}
func (e *FatalError) Unwrap() error { return e.Err }

// Run walks env's initial layer twice against the real filesystem rooted
// at ctx.MountPath: first creating any missing file or directory, then
// topping up each directory's unknown children with placeholder files.
func Run(ctx *syscallrec.Context, env *shadowenv.Environment) error {
	if err := createMissing(ctx, env); err != nil {
		return err
	}
	return fillUnknownChildren(ctx, env)
}

func createMissing(ctx *syscallrec.Context, env *shadowenv.Environment) error {
	for _, f := range env.InitialFiles() {
		real := ctx.Resolve(f.Path)
		if _, err := os.Stat(real); err == nil {
			continue
		} else if !os.IsNotExist(err) {
			return &FatalError{Path: real, Err: err}
		}

		switch f.Kind {
		case shadowenv.KindDir:
			if err := os.MkdirAll(real, 0o755); err != nil {
				return &FatalError{Path: real, Err: err}
			}
		default:
			if err := createTruncatedFile(real, f.FileBytes); err != nil {
				return &FatalError{Path: real, Err: err}
			}
		}
	}
	return nil
}

func createTruncatedFile(path string, size int64) error {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()
	return file.Truncate(size)
}

func fillUnknownChildren(ctx *syscallrec.Context, env *shadowenv.Environment) error {
	for _, f := range env.InitialFiles() {
		if f.Kind != shadowenv.KindDir || f.Size.Unknown <= 0 {
			continue
		}
		real := ctx.Resolve(f.Path)

		existing, err := countEntries(real)
		if err != nil {
			return &FatalError{Path: real, Err: err}
		}

		toCreate := f.Size.Unknown - existing
		if toCreate <= 0 {
			continue
		}
		for i := 0; i < toCreate; i++ {
			name := "ioreplay-" + uuid.NewString()
			if err := createTruncatedFile(filepath.Join(real, name), 0); err != nil {
				logger.Errorf("prepare: failed to create placeholder in %s: %v", real, err)
			}
		}
	}
	return nil
}

func countEntries(dirPath string) (int, error) {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}
