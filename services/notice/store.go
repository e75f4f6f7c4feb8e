package notice

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"jywanonton/models"
)

var (
	ErrPathRequired = errors.New("notice path not provided")
	// ErrNoNotice is returned by Get when no valid notice is stored.
	ErrNoNotice = errors.New("no notice found")
)

// Store persists the single site notice as a JSON document.
type Store struct {
	mu   sync.RWMutex
	fs   afero.Fs
	path string
}

// NewStore returns a store backed by path on fs. A nil fs means the OS filesystem.
func NewStore(fs afero.Fs, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ErrPathRequired
	}
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Store{fs: fs, path: path}, nil
}

// Path returns the backing file location.
func (s *Store) Path() string {
	return s.path
}

// Get reads the current notice.
func (s *Store) Get() (models.Notice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := afero.ReadFile(s.fs, s.path)
	if errors.Is(err, os.ErrNotExist) {
		return models.Notice{}, ErrNoNotice
	}
	if err != nil {
		return models.Notice{}, fmt.Errorf("read notice: %w", err)
	}

	var n models.Notice
	if err := json.Unmarshal(data, &n); err != nil {
		return models.Notice{}, fmt.Errorf("%w: %v", ErrNoNotice, err)
	}
	return n, nil
}

// Put replaces the stored notice. The document is written to a temp file
// and renamed into place so readers never see a partial write.
func (s *Store) Put(n models.Notice) error {
	if strings.TrimSpace(n.ID) == "" {
		return fmt.Errorf("save notice: id required")
	}

	data, err := json.MarshalIndent(n, "", "  ")
	if err != nil {
		return fmt.Errorf("encode notice: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(s.path); dir != "" {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create notice dir: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, append(data, '\n'), 0o644); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("write notice temp file: %w", err)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("replace notice: %w", err)
	}
	return nil
}
