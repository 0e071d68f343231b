package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/nidhal-dev/authfront/internal/storage"
)

// StorageKey is the key the session record is persisted under
const StorageKey = "user"

// Store is the process-wide session holder. Reads are served from memory;
// every write is persisted before it becomes visible.
type Store struct {
	mu       sync.RWMutex
	storage  storage.Storage
	state    Session
	validate *validator.Validate
	log      zerolog.Logger
}

// NewStore creates a store in the unauthenticated state. Call Load to restore
// the persisted record.
func NewStore(s storage.Storage, log zerolog.Logger) *Store {
	v := validator.New()
	v.RegisterStructValidation(validateInvariant, Session{})

	return &Store{
		storage:  s,
		validate: v,
		log:      log.With().Str("component", "session").Logger(),
	}
}

func validateInvariant(sl validator.StructLevel) {
	s := sl.Current().Interface().(Session)
	if s.Role != RoleNone && !s.IsAuthenticated {
		sl.ReportError(s.Role, "Role", "userRole", "role_requires_authentication", "")
	}
}

// Load restores the persisted session. A missing, unreadable or invalid
// record leaves the store unauthenticated; only storage failures are errors.
func (s *Store) Load(ctx context.Context) error {
	raw, found, err := s.storage.Get(ctx, StorageKey)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = Session{}
	if !found {
		return nil
	}

	var loaded Session
	if err := json.Unmarshal([]byte(raw), &loaded); err != nil {
		s.log.Warn().Err(err).Msg("Discarding unreadable session record")
		return nil
	}
	if err := s.validate.Struct(loaded); err != nil {
		s.log.Warn().Err(err).Msg("Discarding invalid session record")
		return nil
	}

	s.state = loaded
	s.log.Debug().Bool("authenticated", loaded.IsAuthenticated).Str("role", string(loaded.Role)).Msg("Session restored")
	return nil
}

// Login marks the session authenticated with the given role
func (s *Store) Login(ctx context.Context, role Role) error {
	if role != RoleAdmin && role != RoleUser {
		return fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	return s.write(ctx, Session{IsAuthenticated: true, Role: role})
}

// Logout resets the session to unauthenticated with no role
func (s *Store) Logout(ctx context.Context) error {
	return s.write(ctx, Session{})
}

func (s *Store) write(ctx context.Context, next Session) error {
	if err := s.validate.Struct(next); err != nil {
		return fmt.Errorf("invalid session: %w", err)
	}

	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.storage.Set(ctx, StorageKey, string(data)); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}
	s.state = next

	s.log.Info().Bool("authenticated", next.IsAuthenticated).Str("role", string(next.Role)).Msg("Session updated")
	return nil
}

// Snapshot returns the current state
func (s *Store) Snapshot() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// IsUserAuthenticated reports whether a user is logged in
func (s *Store) IsUserAuthenticated() bool {
	return s.Snapshot().IsAuthenticated
}

// IsAdmin reports whether the recorded role is admin
func (s *Store) IsAdmin() bool {
	return s.Snapshot().IsAdmin()
}

// IsUser reports whether the recorded role is user
func (s *Store) IsUser() bool {
	return s.Snapshot().IsUser()
}
