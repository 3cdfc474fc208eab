package build

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByLCY/prosepress/config"
	"github.com/ByLCY/prosepress/engine"
	"github.com/ByLCY/prosepress/manuscript"
	"github.com/ByLCY/prosepress/reflow"
)

const (
	messy     = "It was late.  The wind\nblew   hard.\n"
	canonical = "It was late.\nThe wind blew hard.\n"
	second    = "Second chapter.\n"
)

type fakeCompiler struct {
	got string
	err error
}

func (f *fakeCompiler) Compile(_ context.Context, texPath string) (string, error) {
	f.got = texPath
	if f.err != nil {
		return "", f.err
	}
	return strings.TrimSuffix(texPath, ".tex") + ".pdf", nil
}

type failingRevisioner struct{ err error }

func (f failingRevisioner) Revision(context.Context) (string, error) { return "", f.err }

func writeTestFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readTestFile(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	return string(data)
}

func testProject(t *testing.T) (string, *config.Project) {
	t.Helper()
	dir := t.TempDir()
	writeTestFile(t, dir, "chapters/a.txt", messy)
	writeTestFile(t, dir, "chapters/b.txt", second)

	cfg := config.Default()
	cfg.Title = "Road"
	cfg.Header = "Draft ${revision}"
	cfg.Jobs = 2
	cfg.Sources = []*config.Source{
		{Path: "chapters/a.txt", Title: "One"},
		nil,
		{Path: "chapters/b.txt", Title: "Two"},
	}
	return dir, cfg
}

func newTestBuilder(t *testing.T, dir string, cfg *config.Project, opts Options) *Builder {
	t.Helper()
	if opts.Revisioner == nil {
		opts.Revisioner = engine.Static("abc123")
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC) }
	}
	b, err := New(cfg, dir, opts)
	require.NoError(t, err)
	return b
}

func TestNewRejectsInvalidProject(t *testing.T) {
	cfg := config.Default()
	cfg.Columns = 0
	_, err := New(cfg, t.TempDir(), Options{})
	require.ErrorIs(t, err, config.ErrInvalid)
}

func TestFormat(t *testing.T) {
	dir, cfg := testProject(t)
	b := newTestBuilder(t, dir, cfg, Options{})
	ctx := context.Background()

	report, err := b.Format(ctx, nil, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"chapters/a.txt"}, report.Changed)
	assert.Equal(t, []string{"chapters/b.txt"}, report.Unchanged)
	assert.Equal(t, canonical, readTestFile(t, dir, "chapters/a.txt"))

	report, err = b.Format(ctx, nil, false)
	require.NoError(t, err)
	assert.Empty(t, report.Changed)
	assert.Len(t, report.Unchanged, 2)
}

func TestFormatCheckDoesNotWrite(t *testing.T) {
	dir, cfg := testProject(t)
	b := newTestBuilder(t, dir, cfg, Options{})

	report, err := b.Format(context.Background(), []string{"chapters/a.txt"}, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"chapters/a.txt"}, report.Changed)
	assert.Equal(t, messy, readTestFile(t, dir, "chapters/a.txt"))
}

func TestFormatCollectsFileErrors(t *testing.T) {
	dir, cfg := testProject(t)
	writeTestFile(t, dir, "bad.txt", "He said \"hi.\n")
	b := newTestBuilder(t, dir, cfg, Options{})

	report, err := b.Format(context.Background(), []string{"bad.txt", "missing.txt", "chapters/a.txt"}, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, reflow.ErrMalformedQuotation)
	assert.ErrorIs(t, err, os.ErrNotExist)

	var fe *FileError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "bad.txt", fe.Path)

	// the good file is still formatted
	assert.Equal(t, []string{"chapters/a.txt"}, report.Changed)
	assert.Equal(t, canonical, readTestFile(t, dir, "chapters/a.txt"))
}

func TestFragmentsKeepOrder(t *testing.T) {
	dir, cfg := testProject(t)
	writeTestFile(t, dir, "chapters/a.txt", "50% of _it_.\n")
	b := newTestBuilder(t, dir, cfg, Options{})

	sections, err := b.Fragments(context.Background())
	require.NoError(t, err)
	require.Len(t, sections, 3)
	assert.Equal(t, "One", sections[0].Title)
	assert.Equal(t, `50\% of \textit{it}.`+"\n", sections[0].Markup)
	assert.True(t, sections[1].Part)
	assert.Equal(t, "Two", sections[2].Title)

	assert.Equal(t, filepath.Join(b.Dir(), ".tex", "chapters", "a.tex"), b.FragmentPath("chapters/a.txt"))
	assert.Equal(t, sections[0].Markup, readTestFile(t, dir, ".tex/chapters/a.tex"))

	loaded, err := b.LoadFragments()
	require.NoError(t, err)
	assert.Equal(t, sections, loaded)
}

func TestFragmentsReportFailures(t *testing.T) {
	dir, cfg := testProject(t)
	writeTestFile(t, dir, "chapters/b.txt", "bad\x0c\n")
	b := newTestBuilder(t, dir, cfg, Options{})

	_, err := b.LoadFragments()
	require.Error(t, err)

	_, err = b.Fragments(context.Background())
	var fe *FileError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "chapters/b.txt", fe.Path)
}

func TestFragmentsUseFormattedText(t *testing.T) {
	dir, cfg := testProject(t)
	b := newTestBuilder(t, dir, cfg, Options{})
	ctx := context.Background()

	_, err := b.Format(ctx, nil, false)
	require.NoError(t, err)
	sections, err := b.Fragments(ctx)
	require.NoError(t, err)
	assert.Equal(t, canonical, sections[0].Markup)
}

func TestFormatFeedsFragmentsFromCache(t *testing.T) {
	dir, cfg := testProject(t)
	b := newTestBuilder(t, dir, cfg, Options{})
	ctx := context.Background()

	_, err := b.Format(ctx, nil, false)
	require.NoError(t, err)
	abs := filepath.Join(b.Dir(), "chapters", "a.txt")
	assert.True(t, b.texts.Contains(abs))

	// a second read in the same run does not go back to disk
	require.NoError(t, os.WriteFile(abs, []byte("Edited meanwhile.\n"), 0o644))
	sections, err := b.Fragments(ctx)
	require.NoError(t, err)
	assert.Equal(t, canonical, sections[0].Markup)
}

func TestFormatCheckDoesNotCache(t *testing.T) {
	dir, cfg := testProject(t)
	b := newTestBuilder(t, dir, cfg, Options{})

	_, err := b.Format(context.Background(), nil, true)
	require.NoError(t, err)
	assert.False(t, b.texts.Contains(filepath.Join(b.Dir(), "chapters", "a.txt")))
	assert.True(t, b.texts.Contains(filepath.Join(b.Dir(), "chapters", "b.txt")))
}

func TestFragmentsRejectMalformedSources(t *testing.T) {
	dir, cfg := testProject(t)
	writeTestFile(t, dir, "chapters/b.txt", "A _stray mark.\n")
	b := newTestBuilder(t, dir, cfg, Options{})

	_, err := b.Fragments(context.Background())
	require.ErrorIs(t, err, reflow.ErrMalformedEmphasis)
	assert.NoFileExists(t, filepath.Join(dir, ".tex", "chapters", "b.tex"))

	err = b.TexifyFile("chapters/b.txt", "out/b.tex")
	require.ErrorIs(t, err, reflow.ErrMalformedEmphasis)
	assert.NoFileExists(t, filepath.Join(dir, "out", "b.tex"))
}

func TestDebugPlan(t *testing.T) {
	dir, cfg := testProject(t)
	b := newTestBuilder(t, dir, cfg, Options{})

	require.NoError(t, b.DebugPlan("chapters/a.txt", "debug/a.json"))
	data := readTestFile(t, dir, "debug/a.json")
	assert.Contains(t, data, `"paragraphs"`)
	assert.Contains(t, data, `"mandatory"`)

	writeTestFile(t, dir, "bad.txt", "He said \"hi.\n")
	require.ErrorIs(t, b.DebugPlan("bad.txt", "debug/bad.json"), reflow.ErrMalformedQuotation)
}

func TestTexifyFile(t *testing.T) {
	dir, cfg := testProject(t)
	b := newTestBuilder(t, dir, cfg, Options{})

	require.NoError(t, b.TexifyFile("chapters/b.txt", "out/b.tex"))
	assert.Equal(t, second, readTestFile(t, dir, "out/b.tex"))
}

func TestAssemble(t *testing.T) {
	dir, cfg := testProject(t)
	cfg.Title = "Road ${date}"
	b := newTestBuilder(t, dir, cfg, Options{})
	ctx := context.Background()

	sections, err := b.Fragments(ctx)
	require.NoError(t, err)
	path, err := b.Assemble(ctx, sections)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(b.Dir(), "book.tex"), path)

	doc := readTestFile(t, dir, "book.tex")
	assert.Contains(t, doc, `\title{Road 2024-03-09}`)
	assert.Contains(t, doc, `\fancyhead[L]{\textit{Draft abc123}}`)
	assert.Contains(t, doc, "\nabc123\n")
	assert.Contains(t, doc, "\\part{}\n\\chapter{One}\n")
	assert.Contains(t, doc, "\\part{}\n\\chapter{Two}\nSecond chapter.\n\\end{document}\n")
}

func TestMetadataRevision(t *testing.T) {
	dir, cfg := testProject(t)
	ctx := context.Background()

	b := newTestBuilder(t, dir, cfg, Options{Revisioner: failingRevisioner{engine.ErrNoRevision}})
	meta, err := b.Metadata(ctx)
	require.NoError(t, err)
	assert.Empty(t, meta.Revision)
	assert.Equal(t, "Draft ${revision}", meta.Header)

	b = newTestBuilder(t, dir, cfg, Options{Revisioner: failingRevisioner{errors.New("boom")}})
	_, err = b.Metadata(ctx)
	require.Error(t, err)

	cfg.Revision = "v1"
	b = newTestBuilder(t, dir, cfg, Options{Revisioner: failingRevisioner{errors.New("boom")}})
	meta, err = b.Metadata(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Draft v1", meta.Header)
}

func TestBuildWithCompiler(t *testing.T) {
	dir, cfg := testProject(t)
	compiler := &fakeCompiler{}
	b := newTestBuilder(t, dir, cfg, Options{Compiler: compiler})

	pdf, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(b.Dir(), "book.tex"), compiler.got)
	assert.Equal(t, filepath.Join(b.Dir(), "book.pdf"), pdf)

	compiler.err = errors.New("latex exploded")
	_, err = b.Render(context.Background(), "book.tex")
	require.ErrorContains(t, err, "latex exploded")
}

func TestBuildReflowsAndRejectsMalformedSources(t *testing.T) {
	dir, cfg := testProject(t)
	compiler := &fakeCompiler{}
	b := newTestBuilder(t, dir, cfg, Options{Compiler: compiler})

	_, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, canonical, readTestFile(t, dir, "chapters/a.txt"))
	assert.Equal(t, canonical, readTestFile(t, dir, ".tex/chapters/a.tex"))

	writeTestFile(t, dir, "chapters/a.txt", "She said \"hello   and left\nwithout   a word.\n")
	compiler.got = ""
	_, err = b.Build(context.Background())
	require.ErrorIs(t, err, reflow.ErrMalformedQuotation)
	var fe *FileError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "chapters/a.txt", fe.Path)
	assert.Empty(t, compiler.got)
	assert.Equal(t, canonical, readTestFile(t, dir, ".tex/chapters/a.tex"))
}

func TestBuildWithCanvas(t *testing.T) {
	dir, cfg := testProject(t)
	cfg.Engine = "canvas"
	cfg.Watermark = "DRAFT"
	b := newTestBuilder(t, dir, cfg, Options{})

	pdf, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(b.Dir(), "book.pdf"), pdf)
	assert.True(t, strings.HasPrefix(readTestFile(t, dir, "book.pdf"), "%PDF"))

	_, err = b.Render(context.Background(), "book.tex")
	require.Error(t, err)

	require.NoError(t, b.Preview(context.Background(), "out/p.pdf", "out/layout.json"))
	assert.Contains(t, readTestFile(t, dir, "out/layout.json"), `"pages"`)
}

func TestEmptyProject(t *testing.T) {
	dir, cfg := testProject(t)
	cfg.Sources = []*config.Source{nil}
	b := newTestBuilder(t, dir, cfg, Options{Compiler: &fakeCompiler{}})

	_, err := b.Build(context.Background())
	require.ErrorIs(t, err, manuscript.ErrEmptyProject)
}
