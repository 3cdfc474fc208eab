// Package config loads the project file that lists the manuscript sources and
// the settings shared by every command.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/natefinch/atomic"
	"gopkg.in/yaml.v3"

	"github.com/ByLCY/prosepress/manuscript"
	"github.com/ByLCY/prosepress/reflow"
)

// FileNames lists the project file names Load looks for, in order.
var FileNames = []string{"config.json", "config.yaml", "config.yml"}

// Engines accepted in Project.Engine.
var Engines = []string{"pdflatex", "xelatex", "latexmk", "canvas"}

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("config: invalid project")

// Project is the parsed project file.
type Project struct {
	Title     string `json:"title,omitempty" yaml:"title,omitempty"`
	Author    string `json:"author,omitempty" yaml:"author,omitempty"`
	Header    string `json:"header,omitempty" yaml:"header,omitempty"`
	Watermark string `json:"watermark,omitempty" yaml:"watermark,omitempty"`
	// Revision overrides the identifier normally read from version control.
	Revision string `json:"revision,omitempty" yaml:"revision,omitempty"`

	Columns         int       `json:"columns" yaml:"columns"`
	Sources         []*Source `json:"sources" yaml:"sources"`
	Abbreviations   []string  `json:"abbreviations,omitempty" yaml:"abbreviations,omitempty"`
	KeepCurlyQuotes bool      `json:"keep_curly_quotes,omitempty" yaml:"keep_curly_quotes,omitempty"`

	FragmentDir string  `json:"fragment_dir" yaml:"fragment_dir"`
	Output      string  `json:"output" yaml:"output"`
	Engine      string  `json:"engine" yaml:"engine"`
	// Jobs bounds the files processed at once; 0 means one per CPU.
	Jobs        int     `json:"jobs,omitempty" yaml:"jobs,omitempty"`
	LogLevel    string  `json:"log_level" yaml:"log_level"`
	Preview     Preview `json:"preview" yaml:"preview"`

	path string
}

// Source is one entry of the manuscript. A null entry, or one without a
// path, starts a new part titled Part.
type Source struct {
	Path  string `json:"path,omitempty" yaml:"path,omitempty"`
	Title string `json:"title,omitempty" yaml:"title,omitempty"`
	Part  string `json:"part,omitempty" yaml:"part,omitempty"`
}

// IsPart reports whether the entry is a part break.
func (s *Source) IsPart() bool { return s == nil || s.Path == "" }

// Heading returns the chapter or part title of the entry.
func (s *Source) Heading() string {
	switch {
	case s == nil:
		return ""
	case s.IsPart():
		return s.Part
	default:
		return s.Title
	}
}

// Preview configures the built-in PDF renderer.
type Preview struct {
	PageSize   string  `json:"page_size" yaml:"page_size"`
	Landscape  bool    `json:"landscape,omitempty" yaml:"landscape,omitempty"`
	Margin     string  `json:"margin" yaml:"margin"`
	FontSize   float64 `json:"font_size" yaml:"font_size"`
	LineHeight string  `json:"line_height" yaml:"line_height"`
}

// Default returns a project with every optional setting filled in.
func Default() *Project {
	return &Project{
		Columns:     72,
		FragmentDir: ".tex",
		Output:      "book.tex",
		Engine:      "pdflatex",
		LogLevel:    "info",
		Preview: Preview{
			PageSize:   "A5",
			Margin:     "20mm 18mm",
			FontSize:   11,
			LineHeight: "1.4",
		},
	}
}

// Load reads the first project file found in dir on top of Default.
func Load(dir string) (*Project, error) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		p, err := Parse(data, filepath.Ext(name))
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		p.path = path
		return p, nil
	}
	return nil, fmt.Errorf("no %s in %s: %w", strings.Join(FileNames, " or "), dir, fs.ErrNotExist)
}

// Parse decodes a project file. ext selects the format: ".json", or ".yaml"
// and ".yml" for YAML.
func Parse(data []byte, ext string) (*Project, error) {
	p := Default()
	switch strings.ToLower(ext) {
	case ".json":
		if err := json.Unmarshal(data, p); err != nil {
			return nil, err
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, p); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}
	return p, nil
}

// Path returns the file the project was loaded from, if any.
func (p *Project) Path() string { return p.path }

// ApplyEnv overrides settings from PROSEPRESS_* environment variables.
func (p *Project) ApplyEnv() error {
	if v, ok := os.LookupEnv("PROSEPRESS_LOG_LEVEL"); ok && v != "" {
		p.LogLevel = v
	}
	if v, ok := os.LookupEnv("PROSEPRESS_ENGINE"); ok && v != "" {
		p.Engine = v
	}
	if v, ok := os.LookupEnv("PROSEPRESS_REVISION"); ok && v != "" {
		p.Revision = v
	}
	if v, ok := os.LookupEnv("PROSEPRESS_COLUMNS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PROSEPRESS_COLUMNS: %w", err)
		}
		p.Columns = n
	}
	return nil
}

// Validate checks the settings every command relies on.
func (p *Project) Validate() error {
	var errs []error
	if p.Columns <= 0 {
		errs = append(errs, fmt.Errorf("%w: columns must be positive, got %d", ErrInvalid, p.Columns))
	}
	if !slices.Contains(Engines, p.Engine) {
		errs = append(errs, fmt.Errorf("%w: unknown engine %q", ErrInvalid, p.Engine))
	}
	if _, err := p.Level(); err != nil {
		errs = append(errs, fmt.Errorf("%w: %v", ErrInvalid, err))
	}
	if p.FragmentDir == "" || p.Output == "" {
		errs = append(errs, fmt.Errorf("%w: fragment_dir and output are required", ErrInvalid))
	}
	seen := make(map[string]bool, len(p.Sources))
	for i, s := range p.Sources {
		if s.IsPart() {
			continue
		}
		clean := filepath.Clean(s.Path)
		if seen[clean] {
			errs = append(errs, fmt.Errorf("%w: source %d: duplicate path %s", ErrInvalid, i+1, s.Path))
		}
		seen[clean] = true
	}
	return errors.Join(errs...)
}

// Level parses LogLevel.
func (p *Project) Level() (slog.Level, error) {
	var level slog.Level
	if p.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(p.LogLevel)); err != nil {
		return slog.LevelInfo, err
	}
	return level, nil
}

// ReflowOptions derives the reflow settings.
func (p *Project) ReflowOptions() reflow.Options {
	return reflow.Options{
		Width:           p.Columns,
		Abbreviations:   p.Abbreviations,
		KeepCurlyQuotes: p.KeepCurlyQuotes,
	}
}

// Metadata returns the document metadata as written in the project file.
func (p *Project) Metadata() manuscript.Metadata {
	return manuscript.Metadata{
		Title:     p.Title,
		Author:    p.Author,
		Header:    p.Header,
		Watermark: p.Watermark,
		Revision:  p.Revision,
	}
}

// Chapters returns the non-part sources in order.
func (p *Project) Chapters() []*Source {
	var out []*Source
	for _, s := range p.Sources {
		if !s.IsPart() {
			out = append(out, s)
		}
	}
	return out
}

// Save writes the project atomically, as YAML when path ends in .yaml or
// .yml and as indented JSON otherwise.
func (p *Project) Save(path string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(p)
	default:
		data, err = json.MarshalIndent(p, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	p.path = path
	return nil
}
