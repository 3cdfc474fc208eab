package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/ByLCY/prosepress/build"
	"github.com/ByLCY/prosepress/config"
	"github.com/ByLCY/prosepress/scaffold"
)

const usage = `usage: prosepress [-C dir] [-v] <command> [flags] [args]

commands:
  init [-force] [-title t] [-author a] [dir]
                             create a project from the template
  format [-check] [-debug json] [file...]
                             reflow sources in place
  texify [txt tex]           emit LaTeX fragments
  compile                    assemble the document from the fragments
  render [-tex file]         compile the document to PDF
  preview [-out file]        render a PDF without LaTeX
  build                      texify, compile and render
`

// errCheckFailed signals that format -check found non-canonical files.
var errCheckFailed = errors.New("some files are not canonical")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "prosepress: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// run parses the global flags and dispatches to a command.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	global := flag.NewFlagSet("prosepress", flag.ContinueOnError)
	global.SetOutput(stderr)
	global.Usage = func() { fmt.Fprint(stderr, usage) }
	dir := global.String("C", ".", "project directory")
	verbose := global.Bool("v", false, "log debug messages")
	if err := global.Parse(args); err != nil {
		return err
	}
	if global.NArg() == 0 {
		global.Usage()
		return errors.New("missing command")
	}
	name, rest := global.Arg(0), global.Args()[1:]

	// .env is optional and never overrides the real environment.
	if err := godotenv.Load(filepath.Join(*dir, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	if name == "init" {
		return runInit(rest, *dir, stdout, stderr)
	}

	cfg, err := loadConfig(*dir)
	if err != nil {
		return err
	}
	level, _ := cfg.Level()
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	b, err := build.New(cfg, *dir, build.Options{Logger: logger})
	if err != nil {
		return err
	}

	switch name {
	case "format":
		return runFormat(ctx, b, rest, stdout, stderr)
	case "texify":
		return runTexify(ctx, b, rest, stderr)
	case "compile":
		return runCompile(ctx, b, rest, stdout, stderr)
	case "render":
		return runRender(ctx, b, cfg, rest, stdout, stderr)
	case "preview":
		return runPreview(ctx, b, cfg, rest, stdout, stderr)
	case "build":
		return runBuild(ctx, b, rest, stdout, stderr)
	default:
		global.Usage()
		return fmt.Errorf("unknown command %q", name)
	}
}

func loadConfig(dir string) (*config.Project, error) {
	cfg, err := config.Load(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w (run prosepress init first)", err)
		}
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newFlags(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("prosepress "+name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

func runInit(args []string, dir string, stdout, stderr io.Writer) error {
	fs := newFlags("init", stderr)
	force := fs.Bool("force", false, "overwrite existing files")
	title := fs.String("title", "", "title written to the new project file")
	author := fs.String("author", "", "author written to the new project file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	target := dir
	switch arg := fs.Arg(0); {
	case arg == "":
	case filepath.IsAbs(arg):
		target = arg
	default:
		target = filepath.Join(dir, arg)
	}
	written, err := scaffold.Init(target, *force)
	if err != nil {
		return err
	}
	for _, name := range written {
		fmt.Fprintf(stdout, "created %s\n", filepath.Join(target, name))
	}
	if *title == "" && *author == "" {
		return nil
	}
	cfg, err := config.Load(target)
	if err != nil {
		return err
	}
	if *title != "" {
		cfg.Title = *title
	}
	if *author != "" {
		cfg.Author = *author
	}
	return cfg.Save(cfg.Path())
}

func runFormat(ctx context.Context, b *build.Builder, args []string, stdout, stderr io.Writer) error {
	fs := newFlags("format", stderr)
	check := fs.Bool("check", false, "report files that are not canonical without writing")
	debug := fs.String("debug", "", "write the break plan of the single file argument as JSON to this path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *debug != "" {
		if fs.NArg() != 1 {
			return errors.New("format -debug takes exactly one file")
		}
		if err := b.DebugPlan(fs.Arg(0), *debug); err != nil {
			return err
		}
	}
	report, err := b.Format(ctx, fs.Args(), *check)
	if report != nil {
		for _, path := range report.Changed {
			if *check {
				fmt.Fprintf(stdout, "would reformat %s\n", path)
			} else {
				fmt.Fprintf(stdout, "reformatted %s\n", path)
			}
		}
	}
	if err != nil {
		return err
	}
	if *check && len(report.Changed) > 0 {
		return errCheckFailed
	}
	return nil
}

func runTexify(ctx context.Context, b *build.Builder, args []string, stderr io.Writer) error {
	fs := newFlags("texify", stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	switch fs.NArg() {
	case 0:
		_, err := b.Fragments(ctx)
		return err
	case 2:
		return b.TexifyFile(fs.Arg(0), fs.Arg(1))
	default:
		return errors.New("texify takes no arguments or <txt> <tex>")
	}
}

func runCompile(ctx context.Context, b *build.Builder, args []string, stdout, stderr io.Writer) error {
	fs := newFlags("compile", stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	sections, err := b.LoadFragments()
	if err != nil {
		return err
	}
	path, err := b.Assemble(ctx, sections)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, path)
	return nil
}

func runRender(ctx context.Context, b *build.Builder, cfg *config.Project, args []string, stdout, stderr io.Writer) error {
	fs := newFlags("render", stderr)
	tex := fs.String("tex", cfg.Output, "document to compile")
	if err := fs.Parse(args); err != nil {
		return err
	}
	pdf, err := b.Render(ctx, *tex)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, pdf)
	return nil
}

func runPreview(ctx context.Context, b *build.Builder, cfg *config.Project, args []string, stdout, stderr io.Writer) error {
	fs := newFlags("preview", stderr)
	out := fs.String("out", strings.TrimSuffix(cfg.Output, filepath.Ext(cfg.Output))+"-preview.pdf", "PDF output path")
	debug := fs.String("debug", "", "write the page layout as JSON to this path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := b.Preview(ctx, *out, *debug); err != nil {
		return err
	}
	fmt.Fprintln(stdout, *out)
	return nil
}

func runBuild(ctx context.Context, b *build.Builder, args []string, stdout, stderr io.Writer) error {
	fs := newFlags("build", stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	pdf, err := b.Build(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, pdf)
	return nil
}
