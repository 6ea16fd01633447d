package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

const filePrefix = "checkpoint_"

// Store persists one JSON checkpoint file per session under a single
// directory. Records are plain structured text so an operator can inspect a
// stuck session with nothing more than cat.
type Store struct {
	dir string
}

// NewStore initializes a Store rooted at dir, creating it if necessary.
func NewStore(dir string) (*Store, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("checkpoint: directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("checkpoint: ensure directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the configured checkpoint directory.
func (s *Store) Dir() string {
	if s == nil {
		return ""
	}
	return s.dir
}

// Save overwrites the record for the checkpoint's session. The payload is
// written to a temp file and renamed into place so a crash mid-write cannot
// corrupt a previously good checkpoint.
func (s *Store) Save(cp *Checkpoint) error {
	if cp == nil {
		return errors.New("checkpoint: nil checkpoint")
	}
	path, err := s.path(cp.SessionID)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("checkpoint: encode: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, filePrefix+"*.tmp")
	if err != nil {
		return fmt.Errorf("checkpoint: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("checkpoint: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("checkpoint: sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("checkpoint: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("checkpoint: replace checkpoint: %w", err)
	}
	return nil
}

// Load returns the checkpoint for a session, or nil when no usable record
// exists. A missing or corrupt file degrades to a cold start rather than an
// error: resumability is best-effort by design.
func (s *Store) Load(sessionID string) (*Checkpoint, error) {
	path, err := s.path(sessionID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("checkpoint: read: %w", err)
	}
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, nil
	}
	if cp.SessionID == "" {
		return nil, nil
	}
	return &cp, nil
}

// List returns summaries for every stored checkpoint, newest-first by
// last update. Unreadable files are skipped.
func (s *Store) List() ([]Summary, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: read directory: %w", err)
	}
	summaries := make([]Summary, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		sessionID := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), ".json")
		cp, err := s.Load(sessionID)
		if err != nil || cp == nil {
			continue
		}
		summaries = append(summaries, cp.Summarize())
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].LastUpdate.After(summaries[j].LastUpdate)
	})
	return summaries, nil
}

// Clear deletes the record for a session. Clearing a session that has no
// record is not an error.
func (s *Store) Clear(sessionID string) error {
	path, err := s.path(sessionID)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("checkpoint: remove: %w", err)
	}
	return nil
}

// ClearAll deletes every stored checkpoint and reports how many were removed.
func (s *Store) ClearAll() (int, error) {
	summaries, err := s.List()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, summary := range summaries {
		if err := s.Clear(summary.SessionID); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

func (s *Store) path(sessionID string) (string, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return "", errors.New("checkpoint: session id is required")
	}
	if strings.ContainsAny(sessionID, `/\`) || strings.Contains(sessionID, "..") {
		return "", fmt.Errorf("checkpoint: invalid session id %q", sessionID)
	}
	return filepath.Join(s.dir, filePrefix+sessionID+".json"), nil
}

// NewSessionID derives a fresh session identifier. The timestamp prefix keeps
// checkpoint listings and artifact directories chronologically sortable; the
// suffix guards against two sessions starting within the same second.
func NewSessionID() string {
	return time.Now().Format("20060102_150405") + "_" + uuid.NewString()[:8]
}
