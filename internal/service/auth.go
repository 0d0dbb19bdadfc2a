package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"cyberwise/portal/internal/apperr"
	"cyberwise/portal/internal/config"
	"cyberwise/portal/internal/ids"
	"cyberwise/portal/internal/metrics"
	"cyberwise/portal/internal/models"
	"cyberwise/portal/internal/repository"
	"cyberwise/portal/internal/security"
	"cyberwise/portal/internal/session"
)

const invalidCredentialsMessage = "Invalid admission number or password"

type AuthService struct {
	store    repository.Store
	sessions session.Store
	hasher   *security.PasswordHasher
	metrics  *metrics.Collector
	cfg      config.SessionConfig
	log      zerolog.Logger
	now      func() time.Time
}

func NewAuthService(
	store repository.Store,
	sessions session.Store,
	hasher *security.PasswordHasher,
	collector *metrics.Collector,
	cfg config.SessionConfig,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		store:    store,
		sessions: sessions,
		hasher:   hasher,
		metrics:  collector,
		cfg:      cfg,
		log:      log,
		now:      utcNow,
	}
}

type LoginInput struct {
	AdmissionNumber string
	Password        string
	IPAddress       string
	UserAgent       string
}

type LoginResult struct {
	User               models.PublicUser
	MustChangePassword bool
	SessionID          string
	Token              string
	ExpiresAt          time.Time
}

// Principal is the authenticated caller: the session and a fresh copy of its user.
type Principal struct {
	User    models.User
	Session models.Session
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (LoginResult, error) {
	if input.AdmissionNumber == "" || input.Password == "" {
		return LoginResult{}, apperr.Validation("admission number and password are required")
	}

	user, err := s.store.Users().GetByAdmissionNumber(ctx, input.AdmissionNumber)
	if errors.Is(err, repository.ErrUserNotFound) {
		s.hasher.VerifyDummy(input.Password)
		s.metrics.LoginAttempt("failure")
		return LoginResult{}, apperr.InvalidCredential(invalidCredentialsMessage)
	}
	if err != nil {
		return LoginResult{}, err
	}

	ok, err := s.hasher.Verify(input.Password, user.PasswordHash)
	if err != nil {
		return LoginResult{}, err
	}
	if !ok {
		s.metrics.LoginAttempt("failure")
		return LoginResult{}, apperr.InvalidCredential(invalidCredentialsMessage)
	}

	now := s.now()
	sess := models.Session{
		ID:                 ids.New(),
		UserID:             user.ID,
		MustChangePassword: user.MustChangePassword,
		IPAddress:          input.IPAddress,
		UserAgent:          input.UserAgent,
		CreatedAt:          now,
		ExpiresAt:          now.Add(s.cfg.TTL),
	}
	token, err := security.IssueSessionToken(s.cfg.Secret, sess.ID, user.ID, sess.CreatedAt, sess.ExpiresAt)
	if err != nil {
		return LoginResult{}, err
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return LoginResult{}, fmt.Errorf("create session: %w", err)
	}

	s.metrics.LoginAttempt("success")
	s.log.Info().Str("user_id", user.ID).Str("admission_number", user.AdmissionNumber).Msg("user logged in")

	return LoginResult{
		User:               user.Public(),
		MustChangePassword: user.MustChangePassword,
		SessionID:          sess.ID,
		Token:              token,
		ExpiresAt:          sess.ExpiresAt,
	}, nil
}

// Authenticate resolves a session token into a Principal.
func (s *AuthService) Authenticate(ctx context.Context, token string) (Principal, error) {
	if token == "" {
		return Principal{}, apperr.Unauthenticated("Not authenticated")
	}
	claims, err := security.ParseSessionToken(token, s.cfg.Secret)
	if err != nil {
		return Principal{}, apperr.Unauthenticated("Session is invalid or expired").Wrap(err)
	}

	sess, err := s.sessions.Get(ctx, claims.SessionID)
	if errors.Is(err, session.ErrNotFound) {
		return Principal{}, apperr.Unauthenticated("Session is invalid or expired")
	}
	if err != nil {
		return Principal{}, fmt.Errorf("load session: %w", err)
	}
	if sess.UserID != claims.UserID {
		return Principal{}, apperr.Unauthenticated("Session is invalid or expired")
	}

	user, err := s.store.Users().GetByID(ctx, sess.UserID)
	if errors.Is(err, repository.ErrUserNotFound) {
		_ = s.sessions.Delete(ctx, sess.ID)
		return Principal{}, apperr.Unauthenticated("Session is invalid or expired")
	}
	if err != nil {
		return Principal{}, err
	}
	return Principal{User: user, Session: sess}, nil
}

// Logout ends the session named by token. Missing or invalid tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	claims, err := security.ParseSessionToken(token, s.cfg.Secret)
	if err != nil {
		return nil
	}
	if err := s.sessions.Delete(ctx, claims.SessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	s.log.Info().Str("user_id", claims.UserID).Msg("user logged out")
	return nil
}
