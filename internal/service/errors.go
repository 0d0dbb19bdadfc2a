package service

import (
	"errors"
	"time"

	"cyberwise/portal/internal/apperr"
	"cyberwise/portal/internal/repository"
)

func utcNow() time.Time {
	return time.Now().UTC()
}

// notFoundAs maps a repository miss onto a not_found error naming the record.
func notFoundAs(err error, label string) error {
	switch {
	case errors.Is(err, repository.ErrDocumentNotFound),
		errors.Is(err, repository.ErrApplicationNotFound),
		errors.Is(err, repository.ErrUserNotFound):
		return apperr.NotFound(label + " not found")
	default:
		return err
	}
}
