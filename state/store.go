// Package state archives saved session records on disk, one YAML file per
// session.
package state

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/grovetools/sessionlink/errors"
	"github.com/grovetools/sessionlink/pkg/paths"
	"github.com/grovetools/sessionlink/pkg/protocol"
	"github.com/grovetools/sessionlink/util/sanitize"
	"gopkg.in/yaml.v3"
)

const ext = ".yml"

// DefaultDir is the archive location under the state directory.
func DefaultDir() string {
	return filepath.Join(paths.StateDir(), "sessions")
}

// Store is safe for concurrent use within one process.
type Store struct {
	Dir string

	mu sync.Mutex
}

func NewStore(dir string) *Store {
	return &Store{Dir: dir}
}

func (s *Store) path(id string) (string, error) {
	name := sanitize.ForFilename(id)
	if name == "" {
		return "", errors.New(errors.ErrCodeInvalidInput, fmt.Sprintf("unusable session id %q", id))
	}
	return filepath.Join(s.Dir, name+ext), nil
}

// Save writes rec, replacing any earlier record of the same session.
func (s *Store) Save(rec protocol.SessionSaved) error {
	path, err := s.path(rec.SessionID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("create session archive: %w", err)
	}

	data, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}

func (s *Store) Load(id string) (protocol.SessionSaved, error) {
	var rec protocol.SessionSaved
	path, err := s.path(id)
	if err != nil {
		return rec, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return rec, errors.SessionNotFound(id)
		}
		return rec, fmt.Errorf("read session file: %w", err)
	}
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("parse session file %s: %w", path, err)
	}
	return rec, nil
}

// List returns every archived session, most recently active first. Files
// that do not parse are skipped.
func (s *Store) List() ([]protocol.SessionSaved, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read session archive: %w", err)
	}

	var recs []protocol.SessionSaved
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ext) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.Dir, e.Name()))
		if err != nil {
			continue
		}
		var rec protocol.SessionSaved
		if yaml.Unmarshal(data, &rec) != nil {
			continue
		}
		recs = append(recs, rec)
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].LastActivity > recs[j].LastActivity
	})
	return recs, nil
}

func (s *Store) Delete(id string) error {
	path, err := s.path(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return errors.SessionNotFound(id)
		}
		return err
	}
	return nil
}
