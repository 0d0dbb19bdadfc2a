package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"cyberwise/portal/internal/models"
)

var (
	ErrApplicationNotFound      = errors.New("application not found")
	ErrUserNotFound             = errors.New("user not found")
	ErrDocumentNotFound         = errors.New("document not found")
	ErrDuplicateEmail           = errors.New("email already registered")
	ErrDuplicateAdmissionNumber = errors.New("admission number already assigned")

	// ErrApplicationNotPending is returned when a review loses the compare-and-set on status.
	ErrApplicationNotPending = errors.New("application is not pending")
)

type ApplicationFilter struct {
	Status *models.ApplicationStatus
}

type ApplicationRepository interface {
	Create(ctx context.Context, app models.Application) error
	GetByID(ctx context.Context, id string) (models.Application, error)
	// List returns applications newest first.
	List(ctx context.Context, filter ApplicationFilter) ([]models.Application, error)
	// Review moves a pending application to its final status.
	Review(ctx context.Context, id string, review models.ApplicationReview) error
	ListCVURLs(ctx context.Context) ([]string, error)
}

type UserFilter struct {
	Role *models.UserRole
}

type UserRepository interface {
	Create(ctx context.Context, user models.User) error
	GetByID(ctx context.Context, id string) (models.User, error)
	GetByAdmissionNumber(ctx context.Context, admissionNumber string) (models.User, error)
	List(ctx context.Context, filter UserFilter) ([]models.User, error)
	UpdatePassword(ctx context.Context, id string, hash []byte, mustChangePassword bool) error
}

type SequenceRepository interface {
	NextAdmissionNumber(ctx context.Context) (int64, error)
}

// Document is one content record. Body is the JSON encoding of the typed model.
type Document struct {
	Kind      string
	ID        string
	Body      json.RawMessage
	CreatedAt time.Time
}

// DocumentFilter matches top-level body fields by their text value.
type DocumentFilter map[string]string

type DocumentRepository interface {
	Insert(ctx context.Context, doc Document) error
	Get(ctx context.Context, kind, id string) (Document, error)
	// List returns documents of a kind newest first.
	List(ctx context.Context, kind string, filter DocumentFilter) ([]Document, error)
	Count(ctx context.Context, kind string, filter DocumentFilter) (int, error)
	Replace(ctx context.Context, doc Document) error
	Delete(ctx context.Context, kind, id string) error
}

type Repositories interface {
	Applications() ApplicationRepository
	Users() UserRepository
	Sequences() SequenceRepository
	Documents() DocumentRepository
}

// Store is the persistence backend. WithinTx runs fn atomically: either every
// write made through the given Repositories is kept or none is. Sequence
// values consumed inside a failed transaction are not handed out again.
type Store interface {
	Repositories
	WithinTx(ctx context.Context, fn func(Repositories) error) error
	Ping(ctx context.Context) error
	Close()
}
