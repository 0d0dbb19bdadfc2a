// Package session keeps server-side session state keyed by session id.
package session

import (
	"context"
	"errors"

	"cyberwise/portal/internal/models"
)

var ErrNotFound = errors.New("session not found")

type Store interface {
	// Create stores s until s.ExpiresAt.
	Create(ctx context.Context, s models.Session) error
	// Get returns ErrNotFound for unknown or expired sessions.
	Get(ctx context.Context, id string) (models.Session, error)
	ClearPasswordChangeFlag(ctx context.Context, id string) error
	// Delete is idempotent.
	Delete(ctx context.Context, id string) error
	// DeleteByUser removes every session of userID and returns how many existed.
	DeleteByUser(ctx context.Context, userID string) (int, error)
}
