// Package session owns the persisted authenticated identity. The store is
// the single source of truth gating every other component: the guard reads
// it before any network call, controllers read the credential from it, and
// only the login flow and logout mutate it.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/examtrace/proctor-agent/internal/model"
)

// Store persists the session to a JSON file between runs, the agent's
// equivalent of browser localStorage.
type Store struct {
	mu   sync.RWMutex
	path string
	log  zerolog.Logger
	sess *model.Session
}

// NewStore creates a Store backed by the file at path. Call Load before use.
func NewStore(path string, log zerolog.Logger) *Store {
	return &Store{
		path: path,
		log:  log.With().Str("component", "session_store").Logger(),
	}
}

// Load reads the persisted session. A missing file means no session. A
// stored credential whose exp claim has passed is discarded wholesale, so
// callers never observe an expired session.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.sess = nil
			return nil
		}
		return fmt.Errorf("read session file: %w", err)
	}

	var sess model.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		// Corrupt state is unrecoverable; start logged out.
		s.log.Warn().Err(err).Msg("Discarding unreadable session file")
		s.sess = nil
		return nil
	}

	sess.Role = model.NormalizeRole(string(sess.Role))
	if sess.Token == "" || !sess.Role.Valid() || tokenExpired(sess.Token) {
		s.log.Info().Msg("Stored session invalid or expired, clearing")
		s.sess = nil
		return s.removeFileLocked()
	}

	s.sess = &sess
	return nil
}

// Current returns a copy of the session, or nil when logged out.
func (s *Store) Current() *model.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.sess == nil {
		return nil
	}
	out := *s.sess
	return &out
}

// Set replaces the session after a successful login and persists it.
func (s *Store) Set(sess model.Session) error {
	sess.Role = model.NormalizeRole(string(sess.Role))
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sess = &sess
	return s.persistLocked()
}

// SetActiveExam records the exam a student is about to take.
func (s *Store) SetActiveExam(examID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess == nil {
		return fmt.Errorf("no active session")
	}
	s.sess.ActiveExamID = examID
	return s.persistLocked()
}

// ClearActiveExam drops a stale exam selection, e.g. on entering the
// student home after an abandoned attempt.
func (s *Store) ClearActiveExam() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess == nil || s.sess.ActiveExamID == 0 {
		return nil
	}
	s.sess.ActiveExamID = 0
	return s.persistLocked()
}

// Clear destroys the session: logout, or an invalid/expired credential
// reported by the backend (401). All persisted fields go together.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sess = nil
	return s.removeFileLocked()
}

func (s *Store) persistLocked() error {
	raw, err := json.MarshalIndent(s.sess, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}

func (s *Store) removeFileLocked() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}

// tokenExpired inspects the JWT exp claim without verifying the signature.
// The token is otherwise opaque to the agent; the backend is the verifier.
// Tokens that do not parse, or carry no exp, are left to the backend to
// reject.
func tokenExpired(token string) bool {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(time.Now())
}
