package credentials

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/pkg/errors"
)

const (
	PersistentFilename = "credentials.json"
	SessionFilename    = "session.json"
)

// Storage is a flat string key/value scope.
type Storage interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Remove(keys ...string) error
}

// FileStorage keeps its keys in a single JSON object on disk. Every call
// re-reads the file so that separate processes observe each other's writes.
type FileStorage struct {
	path string
	mu   sync.Mutex
}

var _ Storage = (*FileStorage)(nil)

func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

// NewPersistentStorage returns the scope that survives logouts of the
// terminal session (the "remember me" scope).
func NewPersistentStorage(profileDir string) *FileStorage {
	return NewFileStorage(filepath.Join(profileDir, PersistentFilename))
}

// NewSessionStorage returns the scope bound to the current login session
// of the profile in profileDir. It lives under XDG_RUNTIME_DIR when
// available, which is wiped on logout or reboot, and falls back to a
// per-user directory in the temp dir.
func NewSessionStorage(profileDir string) *FileStorage {
	return NewFileStorage(filepath.Join(SessionDir(profileDir), SessionFilename))
}

// SessionDir is keyed by the profile so that profiles sharing a runtime
// dir never read each other's session tokens.
func SessionDir(profileDir string) string {
	base := filepath.Join(os.TempDir(), "infravoice-"+currentUID())
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		base = filepath.Join(dir, "infravoice")
	}
	return filepath.Join(base, profileKey(profileDir))
}

func profileKey(profileDir string) string {
	if abs, err := filepath.Abs(profileDir); err == nil {
		profileDir = abs
	}
	sum := sha256.Sum256([]byte(filepath.Clean(profileDir)))
	return hex.EncodeToString(sum[:8])
}

func currentUID() string {
	return strconv.Itoa(os.Getuid())
}

func (s *FileStorage) Path() string { return s.path }

func (s *FileStorage) Get(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	values, err := s.load()
	if err != nil {
		return "", err
	}
	return values[key], nil
}

func (s *FileStorage) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	values, err := s.load()
	if err != nil {
		return err
	}
	values[key] = value
	return s.save(values)
}

func (s *FileStorage) Remove(keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	values, err := s.load()
	if err != nil {
		return err
	}
	changed := false
	for _, k := range keys {
		if _, ok := values[k]; ok {
			delete(values, k)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	if len(values) == 0 {
		if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
			return errors.Wrap(err, "remove credentials file")
		}
		return nil
	}
	return s.save(values)
}

func (s *FileStorage) load() (map[string]string, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, errors.Wrap(err, "read credentials")
	}
	values := map[string]string{}
	if len(b) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(b, &values); err != nil {
		return nil, errors.Wrap(err, "parse credentials json")
	}
	return values, nil
}

func (s *FileStorage) save(values map[string]string) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return errors.Wrap(err, "mkdir credentials dir")
	}
	b, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal credentials")
	}
	tmp, err := os.CreateTemp(dir, ".credentials-*")
	if err != nil {
		return errors.Wrap(err, "create temp credentials")
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return errors.Wrap(err, "write credentials")
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return errors.Wrap(err, "chmod credentials")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return errors.Wrap(err, "close credentials")
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return errors.Wrap(err, "rename credentials")
	}
	return nil
}

// MemoryStorage is a process-local scope, used for --ephemeral runs.
type MemoryStorage struct {
	mu     sync.Mutex
	values map[string]string
}

var _ Storage = (*MemoryStorage)(nil)

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: map[string]string{}}
}

func (m *MemoryStorage) Get(key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[key], nil
}

func (m *MemoryStorage) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryStorage) Remove(keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}
