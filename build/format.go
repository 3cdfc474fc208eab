package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ByLCY/prosepress/reflow"
)

// FormatReport lists the outcome of a Format run in input order.
type FormatReport struct {
	// Changed holds the files rewritten, or in check mode the files that
	// are not canonical.
	Changed   []string
	Unchanged []string
}

// Format reflows each file in place. With no paths the configured chapter
// sources are used. In check mode nothing is written. A failing file does
// not stop the others; the failures are returned joined as *FileError.
func (b *Builder) Format(ctx context.Context, paths []string, check bool) (*FormatReport, error) {
	if len(paths) == 0 {
		for _, s := range b.cfg.Chapters() {
			paths = append(paths, s.Path)
		}
	}

	changed := make([]bool, len(paths))
	errs := make([]error, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.jobs)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			c, err := b.formatFile(path, check)
			if err != nil {
				b.texts.Remove(b.abs(path))
				b.log.Error("format failed", "path", path, "err", err)
				errs[i] = &FileError{Path: path, Err: err}
				return nil
			}
			changed[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &FormatReport{}
	for i, path := range paths {
		switch {
		case errs[i] != nil:
		case changed[i]:
			report.Changed = append(report.Changed, path)
		default:
			report.Unchanged = append(report.Unchanged, path)
		}
	}
	return report, joinFileErrors(errs)
}

// DebugPlan writes the break plan of one source as JSON to out, for
// looking into a surprising wrap.
func (b *Builder) DebugPlan(path, out string) error {
	text, err := b.text(path)
	if err != nil {
		return &FileError{Path: path, Err: err}
	}
	plan, err := b.reflow.Plan(text)
	if err != nil {
		return &FileError{Path: path, Err: err}
	}
	out = b.abs(out)
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return fmt.Errorf("create debug directory: %w", err)
	}
	return reflow.WriteDebugJSON(plan, out)
}

func (b *Builder) formatFile(path string, check bool) (bool, error) {
	start := time.Now()
	abs := b.abs(path)
	data, err := os.ReadFile(abs)
	if err != nil {
		return false, err
	}
	out, err := b.reflow.Reflow(string(data))
	if err != nil {
		return false, err
	}
	if out == string(data) {
		b.texts.Add(abs, out)
		b.log.Debug("already canonical", "path", path)
		return false, nil
	}
	if check {
		b.log.Info("not canonical", "path", path)
		return true, nil
	}
	if err := writeFile(abs, out); err != nil {
		return false, err
	}
	b.texts.Add(abs, out)
	b.log.Info("formatted", "path", path, "elapsed", time.Since(start))
	return true, nil
}
