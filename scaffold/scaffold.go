// Package scaffold creates a new project from the embedded template.
package scaffold

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/ByLCY/prosepress/config"
)

// TemplateFS holds the project template. Files that must be dotfiles in the
// project are stored without the dot, see dotfiles.
//
//go:embed template
var TemplateFS embed.FS

const root = "template"

var dotfiles = map[string]string{"gitignore": ".gitignore"}

// ErrExists is returned when Init would overwrite a file without force.
var ErrExists = errors.New("scaffold: file exists")

type entry struct {
	src, rel string
}

// files lists the template files with their project relative names.
func files() ([]entry, error) {
	var out []entry
	err := fs.WalkDir(TemplateFS, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel := strings.TrimPrefix(p, root+"/")
		if name, ok := dotfiles[path.Base(rel)]; ok {
			rel = path.Join(path.Dir(rel), name)
		}
		out = append(out, entry{src: p, rel: rel})
		return nil
	})
	return out, err
}

// Init copies the template into dir and creates the fragment directory.
// Unless force is set nothing is written when any template file already
// exists in dir. The names of the files written are returned.
func Init(dir string, force bool) ([]string, error) {
	entries, err := files()
	if err != nil {
		return nil, err
	}
	if !force {
		var errs []error
		for _, e := range entries {
			if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(e.rel))); err == nil {
				errs = append(errs, fmt.Errorf("%w: %s", ErrExists, e.rel))
			}
		}
		if err := errors.Join(errs...); err != nil {
			return nil, err
		}
	}

	var written []string
	for _, e := range entries {
		dest := filepath.Join(dir, filepath.FromSlash(e.rel))
		data, err := TemplateFS.ReadFile(e.src)
		if err != nil {
			return written, err
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return written, err
		}
		if err := os.WriteFile(dest, data, 0o644); err != nil {
			return written, err
		}
		written = append(written, e.rel)
	}

	cfg, err := config.Load(dir)
	if err != nil {
		return written, err
	}
	if err := os.MkdirAll(filepath.Join(dir, cfg.FragmentDir), 0o755); err != nil {
		return written, fmt.Errorf("create fragment directory: %w", err)
	}
	return written, nil
}
