package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ByLCY/prosepress/config"
	"github.com/ByLCY/prosepress/manuscript"
	"github.com/ByLCY/prosepress/tex"
)

// FragmentPath returns where the fragment of a source is written:
// <fragment_dir>/<path without extension>.tex under the project.
func (b *Builder) FragmentPath(source string) string {
	rel := strings.TrimSuffix(source, filepath.Ext(source)) + ".tex"
	if filepath.IsAbs(source) {
		rel = filepath.Base(rel)
	}
	return filepath.Join(b.abs(b.cfg.FragmentDir), rel)
}

// Fragments emits a fragment for every chapter source and returns the
// sections in configured order, part breaks included.
func (b *Builder) Fragments(ctx context.Context) ([]tex.Section, error) {
	sources := b.cfg.Sources
	sections := make([]tex.Section, len(sources))
	errs := make([]error, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.jobs)
	for i, src := range sources {
		if src.IsPart() {
			sections[i] = tex.Section{Title: src.Heading(), Part: true}
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			markup, err := b.emit(src)
			if err != nil {
				b.log.Error("texify failed", "path", src.Path, "err", err)
				errs[i] = &FileError{Path: src.Path, Err: err}
				return nil
			}
			sections[i] = tex.Section{Title: src.Heading(), Markup: markup}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := joinFileErrors(errs); err != nil {
		return nil, err
	}
	return sections, nil
}

func (b *Builder) emit(src *config.Source) (string, error) {
	text, err := b.text(src.Path)
	if err != nil {
		return "", err
	}
	markup, err := b.texify(text)
	if err != nil {
		return "", err
	}
	out := b.FragmentPath(src.Path)
	if err := writeFile(out, markup); err != nil {
		return "", err
	}
	b.log.Debug("fragment written", "path", src.Path, "fragment", out)
	return markup, nil
}

// TexifyFile emits the fragment of a single text file to out.
func (b *Builder) TexifyFile(in, out string) error {
	text, err := b.text(in)
	if err != nil {
		return err
	}
	markup, err := b.texify(text)
	if err != nil {
		return &FileError{Path: in, Err: err}
	}
	return writeFile(b.abs(out), markup)
}

// texify rejects text the reflow engine reports as malformed, then emits it.
func (b *Builder) texify(text string) (string, error) {
	if _, err := b.reflow.Plan(text); err != nil {
		return "", err
	}
	return tex.EmitFragment(text)
}

// LoadFragments reads the fragments written by an earlier Fragments run.
func (b *Builder) LoadFragments() ([]tex.Section, error) {
	sections := make([]tex.Section, 0, len(b.cfg.Sources))
	var errs []error
	for _, src := range b.cfg.Sources {
		if src.IsPart() {
			sections = append(sections, tex.Section{Title: src.Heading(), Part: true})
			continue
		}
		data, err := os.ReadFile(b.FragmentPath(src.Path))
		if err != nil {
			errs = append(errs, &FileError{Path: src.Path, Err: fmt.Errorf("fragment missing, run texify first: %w", err)})
			continue
		}
		sections = append(sections, tex.Section{Title: src.Heading(), Markup: string(data)})
	}
	if err := joinFileErrors(errs); err != nil {
		return nil, err
	}
	return sections, nil
}

// chapters reads the sources as manuscript chapters for the preview.
func (b *Builder) chapters(ctx context.Context) ([]manuscript.Chapter, error) {
	sources := b.cfg.Sources
	out := make([]manuscript.Chapter, len(sources))
	errs := make([]error, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.jobs)
	for i, src := range sources {
		out[i] = manuscript.Chapter{Title: src.Heading(), Part: src.IsPart()}
		if src.IsPart() {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			text, err := b.text(src.Path)
			if err != nil {
				errs[i] = &FileError{Path: src.Path, Err: err}
				return nil
			}
			out[i].Text = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := joinFileErrors(errs); err != nil {
		return nil, err
	}
	return out, nil
}
