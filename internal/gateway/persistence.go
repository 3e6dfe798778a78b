package gateway

import (
	"os"
	"path/filepath"
	"regexp"

	"github.com/fpt/parley-cli/internal/infra"
	"github.com/fpt/parley-cli/internal/repository"
)

var sessionFileRe = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// SessionStore persists per-session conversation history as JSON files so
// conversations survive gateway restarts.
type SessionStore struct {
	dir string
}

// NewSessionStore creates a store rooted at dir.
func NewSessionStore(dir string) *SessionStore {
	return &SessionStore{dir: dir}
}

// EnsureDirectory creates the store directory if needed.
func (s *SessionStore) EnsureDirectory() error {
	return os.MkdirAll(s.dir, 0o755)
}

// SessionPath computes the history file path for a key.
func (s *SessionStore) SessionPath(key SessionKey) string {
	safe := sessionFileRe.ReplaceAllString(key.String(), "_")
	if len(safe) > 128 {
		safe = safe[:128]
	}
	return filepath.Join(s.dir, safe+".json")
}

// RepositoryFor returns a history repository bound to the key's file.
func (s *SessionStore) RepositoryFor(key SessionKey) repository.HistoryRepository {
	return infra.NewFileHistoryRepository(s.SessionPath(key))
}
