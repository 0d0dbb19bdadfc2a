package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"cyberwise/portal/internal/apperr"
	"cyberwise/portal/internal/attachment"
	"cyberwise/portal/internal/config"
	"cyberwise/portal/internal/ids"
	"cyberwise/portal/internal/metrics"
	"cyberwise/portal/internal/models"
	"cyberwise/portal/internal/notify"
	"cyberwise/portal/internal/repository"
	"cyberwise/portal/internal/security"
	"cyberwise/portal/internal/validation"
)

type AdmissionService struct {
	store    repository.Store
	files    *attachment.Store
	hasher   *security.PasswordHasher
	notifier notify.Notifier
	metrics  *metrics.Collector
	cfg      config.AdmissionConfig
	log      zerolog.Logger
}

func NewAdmissionService(
	store repository.Store,
	files *attachment.Store,
	hasher *security.PasswordHasher,
	notifier notify.Notifier,
	collector *metrics.Collector,
	cfg config.AdmissionConfig,
	log zerolog.Logger,
) *AdmissionService {
	return &AdmissionService{
		store:    store,
		files:    files,
		hasher:   hasher,
		notifier: notifier,
		metrics:  collector,
		cfg:      cfg,
		log:      log,
	}
}

type ApplicationInput struct {
	FullName        string `json:"fullName" form:"fullName" binding:"required,max=200"`
	Email           string `json:"email" form:"email" binding:"required,email,max=254"`
	Phone           string `json:"phone" form:"phone" binding:"required,max=50"`
	Location        string `json:"location" form:"location" binding:"required,max=200"`
	ExperienceLevel string `json:"experienceLevel" form:"experienceLevel" binding:"required,oneof=beginner intermediate advanced"`
	Reason          string `json:"reason" form:"reason" binding:"required,max=5000"`
}

func (in *ApplicationInput) normalize() {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = strings.TrimSpace(in.Phone)
	in.Location = strings.TrimSpace(in.Location)
	in.ExperienceLevel = strings.ToLower(strings.TrimSpace(in.ExperienceLevel))
	in.Reason = strings.TrimSpace(in.Reason)
}

// Upload is an optional file received alongside an application.
type Upload struct {
	Filename string
	Content  io.Reader
}

func (s *AdmissionService) SubmitApplication(ctx context.Context, input ApplicationInput, cv *Upload) (models.Application, error) {
	input.normalize()
	if err := validation.Struct(input); err != nil {
		return models.Application{}, err
	}

	app := models.Application{
		ID:              ids.New(),
		FullName:        input.FullName,
		Email:           input.Email,
		Phone:           input.Phone,
		Location:        input.Location,
		ExperienceLevel: models.ExperienceLevel(input.ExperienceLevel),
		Reason:          input.Reason,
		Status:          models.ApplicationStatusPending,
		SubmittedAt:     utcNow(),
	}

	var saved *attachment.Saved
	if cv != nil {
		stored, err := s.saveCV(ctx, cv)
		if err != nil {
			return models.Application{}, err
		}
		saved = &stored
		app.CVURL = &stored.URL
	}

	if err := s.store.Applications().Create(ctx, app); err != nil {
		if saved != nil {
			if rmErr := s.files.Remove(saved.Name); rmErr != nil {
				s.log.Warn().Err(rmErr).Str("file", saved.Name).Msg("remove cv after failed submission")
			}
		}
		if errors.Is(err, repository.ErrDuplicateEmail) {
			s.metrics.ApplicationSubmitted("duplicate")
			return models.Application{}, apperr.DuplicateApplication("An application with this email already exists")
		}
		return models.Application{}, fmt.Errorf("create application: %w", err)
	}

	s.metrics.ApplicationSubmitted("accepted")
	s.log.Info().Str("application_id", app.ID).Msg("application submitted")

	s.notify(ctx, notify.Message{
		Kind: notify.KindApplicationReceived,
		To:   app.Email,
		Name: app.FullName,
	})
	return app, nil
}

func (s *AdmissionService) saveCV(ctx context.Context, cv *Upload) (attachment.Saved, error) {
	if s.files == nil {
		return attachment.Saved{}, apperr.Validation("file uploads are not enabled")
	}
	saved, err := s.files.Save(ctx, cv.Filename, cv.Content)
	switch {
	case err == nil:
		return saved, nil
	case errors.Is(err, attachment.ErrUnsupportedType):
		return attachment.Saved{}, apperr.Validation(err.Error()).WithDetails(map[string]any{"field": "cv"})
	case errors.Is(err, attachment.ErrTooLarge):
		return attachment.Saved{}, apperr.Validation(fmt.Sprintf("file exceeds the %d byte limit", s.files.MaxBytes())).
			WithDetails(map[string]any{"field": "cv"})
	default:
		return attachment.Saved{}, fmt.Errorf("save cv: %w", err)
	}
}

// FormatAdmissionNumber renders n zero-padded to width after prefix.
func FormatAdmissionNumber(prefix string, width int, n int64) string {
	return fmt.Sprintf("%s%0*d", prefix, width, n)
}

// ApproveApplication provisions the student account and returns its admission number.
func (s *AdmissionService) ApproveApplication(ctx context.Context, id string, reviewerID string) (string, error) {
	hash, err := s.hasher.Hash(s.cfg.TemporaryPassword)
	if err != nil {
		return "", err
	}

	var (
		app    models.Application
		number string
	)
	err = s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		app, err = repos.Applications().GetByID(ctx, id)
		if err != nil {
			return notFoundAs(err, "application")
		}
		if !app.Pending() {
			return apperr.AlreadyProcessed("Application has already been processed")
		}

		seq, err := repos.Sequences().NextAdmissionNumber(ctx)
		if err != nil {
			return fmt.Errorf("next admission number: %w", err)
		}
		number = FormatAdmissionNumber(s.cfg.Prefix, s.cfg.Width, seq)

		now := utcNow()
		applicationID := app.ID
		user := models.User{
			ID:                 ids.New(),
			AdmissionNumber:    number,
			FullName:           app.FullName,
			Email:              app.Email,
			PasswordHash:       hash,
			Role:               models.UserRoleStudent,
			MustChangePassword: true,
			ApplicationID:      &applicationID,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		if err := repos.Users().Create(ctx, user); err != nil {
			switch {
			case errors.Is(err, repository.ErrDuplicateEmail):
				return apperr.Conflict("An account with this email already exists").Wrap(err)
			case errors.Is(err, repository.ErrDuplicateAdmissionNumber):
				return apperr.Conflict("Admission number " + number + " is already assigned").Wrap(err)
			}
			return fmt.Errorf("create student: %w", err)
		}

		err = repos.Applications().Review(ctx, app.ID, models.ApplicationReview{
			Status:          models.ApplicationStatusApproved,
			AdmissionNumber: &number,
			ReviewedAt:      now,
			ReviewedBy:      reviewerID,
		})
		if errors.Is(err, repository.ErrApplicationNotPending) {
			return apperr.AlreadyProcessed("Application has already been processed")
		}
		if err != nil {
			return notFoundAs(err, "application")
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	s.metrics.ApplicationReviewed("approved")
	s.log.Info().
		Str("application_id", app.ID).
		Str("admission_number", number).
		Str("reviewer_id", reviewerID).
		Msg("application approved")

	s.notify(ctx, notify.Message{
		Kind:              notify.KindApplicationApproved,
		To:                app.Email,
		Name:              app.FullName,
		AdmissionNumber:   number,
		TemporaryPassword: s.cfg.TemporaryPassword,
	})
	return number, nil
}

func (s *AdmissionService) RejectApplication(ctx context.Context, id string, reviewerID string) error {
	app, err := s.store.Applications().GetByID(ctx, id)
	if err != nil {
		return notFoundAs(err, "application")
	}
	if !app.Pending() {
		return apperr.AlreadyProcessed("Application has already been processed")
	}

	err = s.store.Applications().Review(ctx, id, models.ApplicationReview{
		Status:     models.ApplicationStatusRejected,
		ReviewedAt: utcNow(),
		ReviewedBy: reviewerID,
	})
	if errors.Is(err, repository.ErrApplicationNotPending) {
		return apperr.AlreadyProcessed("Application has already been processed")
	}
	if err != nil {
		return notFoundAs(err, "application")
	}

	s.metrics.ApplicationReviewed("rejected")
	s.log.Info().Str("application_id", id).Str("reviewer_id", reviewerID).Msg("application rejected")

	s.notify(ctx, notify.Message{
		Kind: notify.KindApplicationRejected,
		To:   app.Email,
		Name: app.FullName,
	})
	return nil
}

// ListApplications returns applications newest first, optionally by status.
func (s *AdmissionService) ListApplications(ctx context.Context, status string) ([]models.Application, error) {
	var filter repository.ApplicationFilter
	if status != "" {
		st := models.ApplicationStatus(strings.ToLower(status))
		switch st {
		case models.ApplicationStatusPending, models.ApplicationStatusApproved, models.ApplicationStatusRejected:
			filter.Status = &st
		default:
			return nil, apperr.Validation("status must be one of pending, approved, rejected")
		}
	}
	return s.store.Applications().List(ctx, filter)
}

// notify is best-effort: failures are logged and never surface to the caller.
func (s *AdmissionService) notify(ctx context.Context, msg notify.Message) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, msg); err != nil {
		s.log.Error().Err(err).Str("kind", string(msg.Kind)).Str("to", msg.To).Msg("notification failed")
	}
}
