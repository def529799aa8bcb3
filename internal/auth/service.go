package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/vantage-intel/vantage-intel/internal/shared"
)

// Sessions is the slice of the session manager the auth service needs.
type Sessions interface {
	Create(ctx context.Context, username string, validity time.Duration) (string, error)
	Delete(ctx context.Context, token string) bool
	RevokeUser(ctx context.Context, username string) (int, error)
}

// AuditSink receives security-relevant events. Implementations must not
// block the auth path; delivery failures are their own concern.
type AuditSink interface {
	Emit(ctx context.Context, actor, action string, meta map[string]any)
}

// Service orchestrates registration, login, and logout.
type Service struct {
	store      Store
	hasher     *Hasher
	sessions   Sessions
	audit      AuditSink
	sessionTTL time.Duration
	logger     *slog.Logger
}

// NewService constructs a Service. audit may be nil.
func NewService(logger *slog.Logger, store Store, hasher *Hasher, sessions Sessions, audit AuditSink, sessionTTL time.Duration) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if sessionTTL <= 0 {
		sessionTTL = time.Hour
	}
	return &Service{
		store:      store,
		hasher:     hasher,
		sessions:   sessions,
		audit:      audit,
		sessionTTL: sessionTTL,
		logger:     logger,
	}
}

// LoginResult carries the outcome of a successful login.
type LoginResult struct {
	Token string
	Role  string
}

// Register validates the triple, hashes the password, and persists the
// credential record. Duplicate usernames surface shared.ErrConflict.
func (s *Service) Register(ctx context.Context, username, password, role string) error {
	username = NormalizeUsername(username)
	if !ValidUsername(username) {
		return fmt.Errorf("%w: username must be 3-20 alphanumeric characters", shared.ErrInvalidInput)
	}
	if !ValidPassword(password) {
		return fmt.Errorf("%w: password must be 6-50 characters", shared.ErrInvalidInput)
	}
	role = strings.ToLower(role)
	if !ValidRole(role) {
		return fmt.Errorf("%w: role must be one of: %s", shared.ErrInvalidInput, strings.Join(AllowedRoles(), ", "))
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}
	if err := s.store.Insert(ctx, username, hash, role); err != nil {
		return err
	}
	s.logger.Info("user registered", slog.String("username", username), slog.String("role", role))
	s.emit(ctx, username, "user.register", map[string]any{"role": role})
	return nil
}

// Login verifies credentials and mints a session. Unknown usernames and
// password mismatches return distinct sentinels; the HTTP layer collapses
// them into one generic response to avoid username enumeration.
func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	username = NormalizeUsername(username)
	user, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, shared.ErrBadCredentials
	}
	token, err := s.sessions.Create(ctx, user.Username, s.sessionTTL)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, user.Username, "user.login", map[string]any{"role": user.Role})
	return &LoginResult{Token: token, Role: user.Role}, nil
}

// Logout revokes a single session token. Unknown tokens are not an error.
func (s *Service) Logout(ctx context.Context, token string) {
	s.sessions.Delete(ctx, token)
}

// LogoutAll revokes every session held by username.
func (s *Service) LogoutAll(ctx context.Context, username string) (int, error) {
	n, err := s.sessions.RevokeUser(ctx, NormalizeUsername(username))
	if err != nil {
		return 0, err
	}
	s.emit(ctx, username, "user.logout_all", map[string]any{"revoked": n})
	return n, nil
}

func (s *Service) emit(ctx context.Context, actor, action string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	s.audit.Emit(ctx, actor, action, meta)
}
