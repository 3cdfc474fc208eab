// Package build drives the commands: it reflows the configured sources in
// place, emits LaTeX fragments, assembles the document and hands it to a
// compiler or to the built-in preview renderer.
package build

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/natefinch/atomic"

	"github.com/ByLCY/prosepress/config"
	"github.com/ByLCY/prosepress/engine"
	"github.com/ByLCY/prosepress/reflow"
)

// cacheSize bounds the number of canonical texts kept between steps.
const cacheSize = 256

// FileError reports a failure on one source file.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string { return e.Path + ": " + e.Err.Error() }

func (e *FileError) Unwrap() error { return e.Err }

// Options injects the external capabilities. Zero fields get defaults
// derived from the project: a discarding logger, engine.NewLatex for the
// configured engine and git (or the configured revision) for revisions.
type Options struct {
	Logger     *slog.Logger
	Compiler   engine.Compiler
	Revisioner engine.Revisioner
	Now        func() time.Time
}

// Builder runs the steps of a build for one project. It is safe for
// concurrent use.
type Builder struct {
	cfg    *config.Project
	dir    string
	reflow *reflow.Engine
	log    *slog.Logger
	jobs   int

	compiler   engine.Compiler
	revisioner engine.Revisioner
	now        func() time.Time

	// canonical texts by absolute path, only when equal to the file on disk
	texts *lru.Cache[string, string]
}

// New validates cfg and prepares a builder rooted at dir.
func New(cfg *config.Project, dir string, opts Options) (*Builder, error) {
	if cfg == nil {
		return nil, fmt.Errorf("build: nil project")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	eng, err := reflow.New(cfg.ReflowOptions())
	if err != nil {
		return nil, err
	}
	cache, err := lru.New[string, string](cacheSize)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve project dir: %w", err)
	}

	b := &Builder{
		cfg:        cfg,
		dir:        abs,
		reflow:     eng,
		log:        opts.Logger,
		jobs:       cfg.Jobs,
		compiler:   opts.Compiler,
		revisioner: opts.Revisioner,
		now:        opts.Now,
		texts:      cache,
	}
	if b.log == nil {
		b.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if b.jobs <= 0 {
		b.jobs = runtime.NumCPU()
	}
	if b.compiler == nil && cfg.Engine != "canvas" {
		b.compiler = engine.NewLatex(cfg.Engine)
	}
	if b.revisioner == nil {
		if cfg.Revision != "" {
			b.revisioner = engine.Static(cfg.Revision)
		} else {
			b.revisioner = &engine.Git{Dir: abs}
		}
	}
	if b.now == nil {
		b.now = time.Now
	}
	return b, nil
}

// Dir returns the absolute project directory.
func (b *Builder) Dir() string { return b.dir }

// Build runs the whole pipeline and returns the path of the PDF. The
// sources are reflowed in place first; a malformed source stops the build.
func (b *Builder) Build(ctx context.Context) (string, error) {
	if _, err := b.Format(ctx, nil, false); err != nil {
		return "", err
	}
	sections, err := b.Fragments(ctx)
	if err != nil {
		return "", err
	}
	texPath, err := b.Assemble(ctx, sections)
	if err != nil {
		return "", err
	}
	if b.cfg.Engine == "canvas" {
		out := strings.TrimSuffix(texPath, filepath.Ext(texPath)) + ".pdf"
		if err := b.Preview(ctx, out, ""); err != nil {
			return "", err
		}
		return out, nil
	}
	return b.Render(ctx, texPath)
}

// Render compiles an assembled document with the configured compiler.
func (b *Builder) Render(ctx context.Context, texPath string) (string, error) {
	if b.compiler == nil {
		return "", fmt.Errorf("build: engine %q has no LaTeX compiler", b.cfg.Engine)
	}
	start := time.Now()
	b.log.Info("compiling", "path", texPath, "engine", b.cfg.Engine)
	pdf, err := b.compiler.Compile(ctx, b.abs(texPath))
	if err != nil {
		return "", fmt.Errorf("compile %s: %w", texPath, err)
	}
	b.log.Info("compiled", "path", pdf, "elapsed", time.Since(start))
	return pdf, nil
}

func (b *Builder) abs(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(b.dir, path)
}

// text returns the content of a source, from the cache when Format saw it.
func (b *Builder) text(path string) (string, error) {
	abs := b.abs(path)
	if s, ok := b.texts.Get(abs); ok {
		return s, nil
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// writeFile replaces path atomically, creating its directory.
func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	return atomic.WriteFile(path, bytes.NewReader([]byte(content)))
}

// joinFileErrors collects the non-nil errors in order.
func joinFileErrors(errs []error) error {
	var out []error
	for _, err := range errs {
		if err != nil {
			out = append(out, err)
		}
	}
	return errors.Join(out...)
}
