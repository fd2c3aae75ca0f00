// Package spool stages ingestion batches on disk while their readings are aggregated.
//
// A batch is written to temp/ when it arrives, then moved to processed/ once every
// task it scheduled succeeded, or to errors/ when any of them failed permanently.
package spool

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/huangsam/sensorium/internal/contract"
	"github.com/spf13/afero"
)

// Spool areas.
const (
	TempArea      = "temp"
	ProcessedArea = "processed"
	ErrorsArea    = "errors"
)

// ErrNotStaged is returned when a batch is moved that is not in the temp area.
var ErrNotStaged = errors.New("batch is not staged")

// Spool is a BatchSpool over an afero filesystem.
type Spool struct {
	fs   afero.Fs
	root string
}

var _ contract.BatchSpool = &Spool{} // Compile-time check

// New creates the spool areas under root.
func New(fs afero.Fs, root string) (*Spool, error) {
	for _, area := range []string{TempArea, ProcessedArea, ErrorsArea} {
		if err := fs.MkdirAll(filepath.Join(root, area), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create spool area %s: %w", area, err)
		}
	}
	return &Spool{fs: fs, root: root}, nil
}

// NewOS creates a spool on the host filesystem.
func NewOS(root string) (*Spool, error) {
	return New(afero.NewOsFs(), root)
}

// Stage writes data to the temp area. An empty id gets a random one.
func (s *Spool) Stage(id string, data []byte) (string, error) {
	id = filepath.Base(strings.TrimSpace(id))
	if id == "" || id == "." || id == string(filepath.Separator) {
		id = uuid.NewString()
	}
	name := id + ".json"

	path := s.path(TempArea, name)
	if exists, err := afero.Exists(s.fs, path); err != nil {
		return "", fmt.Errorf("failed to check %s: %w", path, err)
	} else if exists {
		return "", fmt.Errorf("batch %s is already staged", id)
	}
	if err := afero.WriteFile(s.fs, path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to stage batch %s: %w", id, err)
	}
	return name, nil
}

// MarkProcessed moves a staged batch to the processed area.
func (s *Spool) MarkProcessed(name string) error {
	return s.move(name, ProcessedArea)
}

// MarkFailed moves a staged batch to the errors area.
func (s *Spool) MarkFailed(name string) error {
	return s.move(name, ErrorsArea)
}

func (s *Spool) move(name, area string) error {
	src := s.path(TempArea, name)
	if exists, err := afero.Exists(s.fs, src); err != nil {
		return err
	} else if !exists {
		return fmt.Errorf("%w: %s", ErrNotStaged, name)
	}
	if err := s.fs.Rename(src, s.path(area, name)); err != nil {
		return fmt.Errorf("failed to move %s to %s: %w", name, area, err)
	}
	return nil
}

// List returns the batch names in an area, sorted.
func (s *Spool) List(area string) ([]string, error) {
	entries, err := afero.ReadDir(s.fs, filepath.Join(s.root, area))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Read returns the content of a batch in an area.
func (s *Spool) Read(area, name string) ([]byte, error) {
	return afero.ReadFile(s.fs, s.path(area, name))
}

func (s *Spool) path(area, name string) string {
	return filepath.Join(s.root, area, filepath.Base(name))
}
