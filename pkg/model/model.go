// Package model loads and stores serialized binary classifiers.
//
// A model document is JSON or YAML with a pinned format name and schema
// version. Documents written for another version are rejected up front
// instead of being coerced into the current layout.
package model

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mchmarny/dropwatch/pkg/risk"
	"gopkg.in/yaml.v3"
)

const (
	// Format identifies dropwatch model documents.
	Format = "dropwatch.classifier"
	// SchemaVersion is the only document version this build reads.
	SchemaVersion = 1

	// DefaultFileName is where an imported model is written.
	DefaultFileName = "student_dropout_model.json"

	dirMode  = 0700
	fileMode = 0600
)

// Header holds the fields shared by every model kind.
type Header struct {
	Format   string `json:"format" yaml:"format"`
	Version  int    `json:"version" yaml:"version"`
	Kind     string `json:"kind" yaml:"kind"`
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
	Features int    `json:"features" yaml:"features"`
	Classes  []int  `json:"classes,omitempty" yaml:"classes,omitempty"`
}

func (h Header) validate() error {
	if h.Format != Format {
		return fmt.Errorf("%w: %q (expected %q)", ErrUnknownFormat, h.Format, Format)
	}
	if h.Version != SchemaVersion {
		return fmt.Errorf("%w: %d (this build reads version %d)", ErrUnsupportedVersion, h.Version, SchemaVersion)
	}
	if h.Features <= 0 {
		return invalid("features must be positive, got %d", h.Features)
	}
	if h.Classes != nil && len(h.Classes) != 2 {
		return invalid("binary classifier requires 2 classes, got %d", len(h.Classes))
	}
	return nil
}

// Info describes a loaded model.
type Info struct {
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
	Kind     string `json:"kind" yaml:"kind"`
	Version  int    `json:"version" yaml:"version"`
	Features int    `json:"features" yaml:"features"`
	Path     string `json:"path,omitempty" yaml:"path,omitempty"`
	Size     int    `json:"size" yaml:"size"`
	Digest   string `json:"sha256" yaml:"sha256"`
}

// Model is a loaded classifier together with its metadata.
type Model struct {
	risk.Classifier
	info Info
}

// Info returns the model metadata.
func (m *Model) Info() Info {
	return m.info
}

// Parse decodes model bytes into a classifier.
func Parse(b []byte) (*Model, error) {
	m, err := parse(b)
	if err != nil {
		return nil, &LoadError{Cause: err}
	}
	return m, nil
}

// parse trims surrounding space only to detect the encoding; size and
// digest describe raw, the bytes Save writes.
func parse(raw []byte) (*Model, error) {
	b := bytes.TrimSpace(raw)
	if len(b) == 0 {
		return nil, ErrEmptyModel
	}

	unmarshal := func(v any) error { return yaml.Unmarshal(b, v) }
	if b[0] == '{' {
		unmarshal = func(v any) error { return json.Unmarshal(b, v) }
	}

	var h Header
	if err := unmarshal(&h); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnknownFormat, err)
	}
	if err := h.validate(); err != nil {
		return nil, err
	}

	dec, ok := decoderFor(h.Kind)
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %v)", ErrUnknownKind, h.Kind, Kinds())
	}

	c, err := dec(h, unmarshal)
	if err != nil {
		return nil, err
	}

	sum := sha256.Sum256(raw)
	return &Model{
		Classifier: c,
		info: Info{
			Name:     h.Name,
			Kind:     h.Kind,
			Version:  h.Version,
			Features: h.Features,
			Size:     len(raw),
			Digest:   hex.EncodeToString(sum[:]),
		},
	}, nil
}

// Load reads and parses the model file at path.
func Load(path string) (*Model, error) {
	if path == "" {
		return nil, &LoadError{Cause: errors.New("model path not specified")}
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Cause: err}
	}

	m, err := parse(b)
	if err != nil {
		return nil, &LoadError{Path: path, Cause: err}
	}
	m.info.Path = path

	slog.Debug("model loaded", "path", path, "kind", m.info.Kind, "features", m.info.Features)
	return m, nil
}

// LoadIfExists loads the model at path. The bool is false when no file
// exists there, which is not an error.
func LoadIfExists(path string) (*Model, bool, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		slog.Debug("model file not found", "path", path)
		return nil, false, nil
	}

	m, err := Load(path)
	if err != nil {
		return nil, true, err
	}
	return m, true, nil
}

// Save writes b to path verbatim, creating the parent directory.
func Save(path string, b []byte) error {
	if path == "" {
		return errors.New("model path not specified")
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, dirMode); err != nil {
			return fmt.Errorf("creating model dir %s: %w", dir, err)
		}
	}

	if err := os.WriteFile(path, b, fileMode); err != nil {
		return fmt.Errorf("writing model file %s: %w", path, err)
	}
	return nil
}

// Import validates b as a model and, only when it parses, writes it to
// path. A rejected upload leaves any existing file untouched.
func Import(path string, b []byte) (*Model, error) {
	m, err := parse(b)
	if err != nil {
		return nil, &LoadError{Path: path, Cause: err}
	}

	if err := Save(path, b); err != nil {
		return nil, err
	}
	m.info.Path = path

	slog.Debug("model saved", "path", path, "size", m.info.Size)
	return m, nil
}
