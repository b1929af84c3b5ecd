// Package session persists enough about a live browser connection that a
// new process can reattach to the same browser instance without
// relaunching it.
package session

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/verity-cli/internal/verr"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Info is the on-disk session record. One JSON file per session.
type Info struct {
	SessionID    string            `json:"session_id"`
	CDPURL       string            `json:"cdp_url"`
	BrowserType  string            `json:"browser_type"`
	CreatedAt    time.Time         `json:"created_at"`
	LastAccessed time.Time         `json:"last_accessed"`
	Metadata     map[string]string `json:"metadata"`
}

// Store reads and writes session files under a single directory. Concurrent
// writers to the same name race with last-write-wins semantics; each
// parallel worker is expected to own its own session names.
type Store struct {
	dir    string
	logger *zap.Logger
}

// NewStore creates the storage directory if needed.
func NewStore(dir string, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, verr.Session("creating session directory", err).With("dir", dir)
	}
	return &Store{dir: dir, logger: logger.Named("session_store")}, nil
}

// Dir returns the storage directory.
func (s *Store) Dir() string { return s.dir }

// sanitizeName maps a session name onto a filesystem-safe token: characters
// outside [A-Za-z0-9._-] become underscores, and leading dots are replaced
// so a name can never traverse or hide.
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := b.String()
	if strings.HasPrefix(out, ".") {
		out = "_" + out[1:]
	}
	return out
}

func (s *Store) pathFor(name string) string {
	return filepath.Join(s.dir, sanitizeName(name)+".json")
}

// Save upserts the session file for info.SessionID. Saving an existing name
// overwrites it. Two distinct raw names can sanitize to the same file; in
// that case Save rejects rather than silently collapsing them.
func (s *Store) Save(info Info) error {
	if strings.TrimSpace(info.SessionID) == "" {
		return verr.New(verr.KindSession, "session name is empty")
	}

	path := s.pathFor(info.SessionID)
	if existing, err := s.read(path); err == nil && existing.SessionID != info.SessionID {
		return verr.New(verr.KindSession, "session name collides with an existing session after sanitization").
			With("name", info.SessionID).
			With("existing", existing.SessionID)
	}

	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return verr.Session("encoding session info", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return verr.Session("writing session file", err).With("path", path)
	}

	s.logger.Info("Session saved",
		zap.String("session_id", info.SessionID),
		zap.String("path", path),
	)
	return nil
}

// Get loads the session record for name. Returns ErrSessionNotFound (via
// the error chain) when no file exists.
func (s *Store) Get(name string) (Info, error) {
	info, err := s.read(s.pathFor(name))
	if err != nil {
		if os.IsNotExist(err) {
			return Info{}, verr.Session("no session file", verr.ErrSessionNotFound).With("name", name)
		}
		return Info{}, verr.Session("reading session file", err).With("name", name)
	}
	return info, nil
}

func (s *Store) read(path string) (Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Info{}, err
	}
	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return Info{}, err
	}
	return info, nil
}

// List returns the recorded session IDs, reversing the filename
// sanitization by reading each file's session_id field.
func (s *Store) List() ([]Info, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, verr.Session("listing session directory", err).With("dir", s.dir)
	}

	var out []Info
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		info, err := s.read(filepath.Join(s.dir, e.Name()))
		if err != nil {
			s.logger.Warn("Skipping unreadable session file",
				zap.String("file", e.Name()),
				zap.Error(err),
			)
			continue
		}
		out = append(out, info)
	}
	return out, nil
}

// Delete removes the session file. Returns false with a nil error when the
// file is already absent.
func (s *Store) Delete(name string) (bool, error) {
	err := os.Remove(s.pathFor(name))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, verr.Session("deleting session file", err).With("name", name)
	}
	return true, nil
}

// Touch bumps last_accessed on the stored record.
func (s *Store) Touch(name string) error {
	info, err := s.Get(name)
	if err != nil {
		return err
	}
	info.LastAccessed = time.Now().UTC()
	return s.Save(info)
}
