package engine

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrUnknownProgram is returned for a compiler program Latex cannot drive.
var ErrUnknownProgram = errors.New("engine: unknown latex program")

// Compiler turns a LaTeX source file into a PDF.
type Compiler interface {
	Compile(ctx context.Context, texPath string) (string, error)
}

// Latex drives pdflatex, xelatex or latexmk.
type Latex struct {
	// Program is "pdflatex" (default), "xelatex" or "latexmk".
	Program string
	// Passes is the number of runs for pdflatex and xelatex; the table of
	// contents needs two. latexmk decides on its own.
	Passes int
	// OutDir receives the PDF and auxiliary files; defaults to the directory
	// of the source file.
	OutDir string

	Run Runner
}

// NewLatex returns a compiler for program using os/exec.
func NewLatex(program string) *Latex {
	return &Latex{Program: program, Passes: 2, Run: ExecRunner}
}

// Compile runs the configured program and returns the PDF path.
func (l *Latex) Compile(ctx context.Context, texPath string) (string, error) {
	dir := filepath.Dir(texPath)
	out := l.OutDir
	if out == "" {
		out = dir
	} else if abs, err := filepath.Abs(out); err == nil {
		out = abs
	}
	run := l.Run
	if run == nil {
		run = ExecRunner
	}
	name := filepath.Base(texPath)

	program := l.Program
	if program == "" {
		program = "pdflatex"
	}
	switch program {
	case "pdflatex", "xelatex":
		passes := l.Passes
		if passes <= 0 {
			passes = 1
		}
		args := []string{"-interaction=nonstopmode", "-halt-on-error", "-output-directory=" + out, name}
		for i := 0; i < passes; i++ {
			if _, err := run(ctx, dir, program, args...); err != nil {
				return "", fmt.Errorf("pass %d: %w", i+1, err)
			}
		}
	case "latexmk":
		args := []string{"-pdf", "-interaction=nonstopmode", "-halt-on-error", "-outdir=" + out, name}
		if _, err := run(ctx, dir, program, args...); err != nil {
			return "", err
		}
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownProgram, program)
	}
	return filepath.Join(out, strings.TrimSuffix(name, filepath.Ext(name))+".pdf"), nil
}
