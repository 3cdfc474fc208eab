package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNoRevision is returned when the project is not under version control.
var ErrNoRevision = errors.New("engine: no revision available")

// Revisioner reports the revision the manuscript is built from.
type Revisioner interface {
	Revision(ctx context.Context) (string, error)
}

// Git reads the current commit of the repository containing Dir. A work
// tree with uncommitted changes is reported as "<hash> (dirty)".
type Git struct {
	Dir string
	Run Runner
}

// Revision implements Revisioner.
func (g *Git) Revision(ctx context.Context) (string, error) {
	run := g.Run
	if run == nil {
		run = ExecRunner
	}
	out, err := run(ctx, g.Dir, "git", "rev-parse", "@")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoRevision, err)
	}
	rev := strings.TrimSpace(string(out))
	if rev == "" {
		return "", ErrNoRevision
	}
	status, err := run(ctx, g.Dir, "git", "status", "--porcelain")
	if err != nil {
		return "", fmt.Errorf("git status: %w", err)
	}
	if strings.TrimSpace(string(status)) != "" {
		rev += " (dirty)"
	}
	return rev, nil
}

// Static is a Revisioner that always reports the same value.
type Static string

// Revision implements Revisioner.
func (s Static) Revision(context.Context) (string, error) {
	if s == "" {
		return "", ErrNoRevision
	}
	return string(s), nil
}
