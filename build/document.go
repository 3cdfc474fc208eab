package build

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ByLCY/prosepress/binding"
	"github.com/ByLCY/prosepress/engine"
	"github.com/ByLCY/prosepress/manuscript"
	"github.com/ByLCY/prosepress/preview"
	"github.com/ByLCY/prosepress/tex"
)

// Metadata resolves the document metadata: the revision is read from the
// revisioner unless configured, then ${...} placeholders in every field are
// filled from the other fields and ${date}.
func (b *Builder) Metadata(ctx context.Context) (manuscript.Metadata, error) {
	meta := b.cfg.Metadata()
	if meta.Revision == "" && b.revisioner != nil {
		rev, err := b.revisioner.Revision(ctx)
		switch {
		case errors.Is(err, engine.ErrNoRevision):
			b.log.Debug("no revision", "err", err)
		case err != nil:
			return meta, fmt.Errorf("read revision: %w", err)
		default:
			meta.Revision = rev
		}
	}

	fields := meta.Fields()
	fields["date"] = b.now().Format("2006-01-02")
	meta.Title = binding.Interpolate(meta.Title, fields)
	meta.Author = binding.Interpolate(meta.Author, fields)
	meta.Header = binding.Interpolate(meta.Header, fields)
	meta.Watermark = binding.Interpolate(meta.Watermark, fields)
	return meta, nil
}

// Assemble writes the complete document for sections to the configured
// output and returns its path.
func (b *Builder) Assemble(ctx context.Context, sections []tex.Section) (string, error) {
	meta, err := b.Metadata(ctx)
	if err != nil {
		return "", err
	}
	doc, err := tex.EmitDocument(sections, meta)
	if err != nil {
		return "", err
	}
	out := b.abs(b.cfg.Output)
	if err := writeFile(out, doc); err != nil {
		return "", fmt.Errorf("write %s: %w", b.cfg.Output, err)
	}
	b.log.Info("document assembled", "path", out, "sections", len(sections), "revision", meta.Revision)
	return out, nil
}

// Preview renders the manuscript with the built-in renderer to out. When
// debugPath is set the page layout is also dumped there as JSON.
func (b *Builder) Preview(ctx context.Context, out, debugPath string) error {
	p := b.cfg.Preview
	r, err := preview.New(preview.Options{
		PageSize:   p.PageSize,
		Landscape:  p.Landscape,
		Margin:     p.Margin,
		FontSize:   p.FontSize,
		LineHeight: p.LineHeight,
	})
	if err != nil {
		return fmt.Errorf("preview: %w", err)
	}
	meta, err := b.Metadata(ctx)
	if err != nil {
		return err
	}
	chapters, err := b.chapters(ctx)
	if err != nil {
		return err
	}
	res, err := r.Layout(meta, chapters)
	if err != nil {
		return err
	}
	if debugPath != "" {
		debugPath = b.abs(debugPath)
		if err := os.MkdirAll(filepath.Dir(debugPath), 0o755); err != nil {
			return fmt.Errorf("create debug directory: %w", err)
		}
		if err := preview.WriteDebugJSON(res, debugPath); err != nil {
			return err
		}
	}
	data, err := r.Draw(res)
	if err != nil {
		return err
	}
	out = b.abs(out)
	if err := writeFile(out, string(data)); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	b.log.Info("preview rendered", "path", out, "pages", len(res.Pages))
	return nil
}
