package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"cyberwise/portal/internal/apperr"
	"cyberwise/portal/internal/config"
	"cyberwise/portal/internal/ids"
	"cyberwise/portal/internal/models"
	"cyberwise/portal/internal/notify"
	"cyberwise/portal/internal/repository"
	"cyberwise/portal/internal/security"
	"cyberwise/portal/internal/session"
)

// AccountService owns credential changes on existing users.
type AccountService struct {
	store    repository.Store
	sessions session.Store
	hasher   *security.PasswordHasher
	notifier notify.Notifier
	cfg      config.AdmissionConfig
	log      zerolog.Logger
}

func NewAccountService(
	store repository.Store,
	sessions session.Store,
	hasher *security.PasswordHasher,
	notifier notify.Notifier,
	cfg config.AdmissionConfig,
	log zerolog.Logger,
) *AccountService {
	return &AccountService{
		store:    store,
		sessions: sessions,
		hasher:   hasher,
		notifier: notifier,
		cfg:      cfg,
		log:      log,
	}
}

type ChangePasswordInput struct {
	UserID          string
	SessionID       string
	CurrentPassword string
	NewPassword     string
}

func (s *AccountService) ChangePassword(ctx context.Context, input ChangePasswordInput) error {
	if err := security.ValidateStrength(input.NewPassword); err != nil {
		return err
	}
	if input.NewPassword == input.CurrentPassword {
		return apperr.WeakPassword("New password must be different from the current password").
			WithDetails(map[string]any{"failedRules": []string{"unchanged"}})
	}

	user, err := s.store.Users().GetByID(ctx, input.UserID)
	if err != nil {
		return notFoundAs(err, "user")
	}

	ok, err := s.hasher.Verify(input.CurrentPassword, user.PasswordHash)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.InvalidCredential("Current password is incorrect")
	}

	hash, err := s.hasher.Hash(input.NewPassword)
	if err != nil {
		return err
	}
	if err := s.store.Users().UpdatePassword(ctx, user.ID, hash, false); err != nil {
		return notFoundAs(err, "user")
	}

	if input.SessionID != "" {
		if err := s.sessions.ClearPasswordChangeFlag(ctx, input.SessionID); err != nil && !errors.Is(err, session.ErrNotFound) {
			s.log.Warn().Err(err).Str("user_id", user.ID).Msg("clear session password flag")
		}
	}

	s.log.Info().Str("user_id", user.ID).Msg("password changed")
	return nil
}

// ResetStudentPassword restores the temporary password and ends every session of the student.
func (s *AccountService) ResetStudentPassword(ctx context.Context, studentID string) error {
	user, err := s.store.Users().GetByID(ctx, studentID)
	if err != nil {
		return notFoundAs(err, "student")
	}
	if user.Role != models.UserRoleStudent {
		return apperr.NotFound("student not found")
	}

	hash, err := s.hasher.Hash(s.cfg.TemporaryPassword)
	if err != nil {
		return err
	}
	if err := s.store.Users().UpdatePassword(ctx, user.ID, hash, true); err != nil {
		return notFoundAs(err, "student")
	}

	revoked, err := s.sessions.DeleteByUser(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}

	s.log.Info().
		Str("user_id", user.ID).
		Str("admission_number", user.AdmissionNumber).
		Int("sessions_revoked", revoked).
		Msg("student password reset")

	if s.notifier != nil {
		err := s.notifier.Notify(ctx, notify.Message{
			Kind:              notify.KindPasswordReset,
			To:                user.Email,
			Name:              user.FullName,
			AdmissionNumber:   user.AdmissionNumber,
			TemporaryPassword: s.cfg.TemporaryPassword,
		})
		if err != nil {
			s.log.Error().Err(err).Str("user_id", user.ID).Msg("notification failed")
		}
	}
	return nil
}

func (s *AccountService) ListStudents(ctx context.Context) ([]models.PublicUser, error) {
	role := models.UserRoleStudent
	users, err := s.store.Users().List(ctx, repository.UserFilter{Role: &role})
	if err != nil {
		return nil, err
	}
	students := make([]models.PublicUser, 0, len(users))
	for _, u := range users {
		students = append(students, u.Public())
	}
	return students, nil
}

type AdminAccount struct {
	AdmissionNumber string
	FullName        string
	Email           string
	Password        string
}

// EnsureAdmin creates the admin account unless one with the same admission
// number exists. It reports whether an account was created.
func (s *AccountService) EnsureAdmin(ctx context.Context, admin AdminAccount) (bool, error) {
	admin.AdmissionNumber = strings.TrimSpace(admin.AdmissionNumber)
	admin.Email = strings.ToLower(strings.TrimSpace(admin.Email))
	if admin.AdmissionNumber == "" || admin.Email == "" {
		return false, apperr.Validation("admin admission number and email are required")
	}

	existing, err := s.store.Users().GetByAdmissionNumber(ctx, admin.AdmissionNumber)
	switch {
	case err == nil:
		if existing.Role != models.UserRoleAdmin {
			return false, apperr.Conflict(admin.AdmissionNumber + " belongs to a non-admin account")
		}
		return false, nil
	case !errors.Is(err, repository.ErrUserNotFound):
		return false, err
	}

	if err := security.ValidateStrength(admin.Password); err != nil {
		return false, err
	}
	hash, err := s.hasher.Hash(admin.Password)
	if err != nil {
		return false, err
	}

	now := utcNow()
	err = s.store.Users().Create(ctx, models.User{
		ID:              ids.New(),
		AdmissionNumber: admin.AdmissionNumber,
		FullName:        admin.FullName,
		Email:           admin.Email,
		PasswordHash:    hash,
		Role:            models.UserRoleAdmin,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	switch {
	case errors.Is(err, repository.ErrDuplicateEmail):
		return false, apperr.Conflict("An account with this email already exists")
	case errors.Is(err, repository.ErrDuplicateAdmissionNumber):
		return false, nil
	case err != nil:
		return false, err
	}

	s.log.Info().Str("admission_number", admin.AdmissionNumber).Msg("admin account created")
	return true, nil
}
