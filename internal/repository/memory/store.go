// Package memory is an in-process repository.Store used by tests and single-node development.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"cyberwise/portal/internal/models"
	"cyberwise/portal/internal/repository"
)

// Store guards all state with one mutex. A transaction holds the mutex for its
// whole duration and records an undo step for every write.
type Store struct {
	mu sync.Mutex

	applications map[string]models.Application
	appEmails    map[string]string
	users        map[string]models.User
	userNumbers  map[string]string
	userEmails   map[string]string
	documents    map[string]map[string]repository.Document
	sequence     int64
}

var _ repository.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		applications: make(map[string]models.Application),
		appEmails:    make(map[string]string),
		users:        make(map[string]models.User),
		userNumbers:  make(map[string]string),
		userEmails:   make(map[string]string),
		documents:    make(map[string]map[string]repository.Document),
	}
}

func (s *Store) Applications() repository.ApplicationRepository { return applicationRepo{view{s: s}} }

func (s *Store) Users() repository.UserRepository { return userRepo{view{s: s}} }

func (s *Store) Sequences() repository.SequenceRepository { return sequenceRepo{view{s: s}} }

func (s *Store) Documents() repository.DocumentRepository { return documentRepo{view{s: s}} }

func (s *Store) WithinTx(ctx context.Context, fn func(repository.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &journal{}
	err := fn(txRepos{view{s: s, tx: tx}})
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		tx.rollback()
		return err
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) Close() {}

// journal collects undo steps in the order writes happened.
type journal struct {
	undo []func()
}

func (j *journal) record(step func()) {
	j.undo = append(j.undo, step)
}

func (j *journal) rollback() {
	for i := len(j.undo) - 1; i >= 0; i-- {
		j.undo[i]()
	}
	j.undo = nil
}

// view is the handle repositories use to reach the store. Outside a
// transaction each call takes the lock itself.
type view struct {
	s  *Store
	tx *journal
}

func (v view) lock() func() {
	if v.tx != nil {
		return func() {}
	}
	v.s.mu.Lock()
	return v.s.mu.Unlock
}

func (v view) record(step func()) {
	if v.tx != nil {
		v.tx.record(step)
	}
}

type txRepos struct {
	v view
}

func (r txRepos) Applications() repository.ApplicationRepository { return applicationRepo{r.v} }

func (r txRepos) Users() repository.UserRepository { return userRepo{r.v} }

func (r txRepos) Sequences() repository.SequenceRepository { return sequenceRepo{r.v} }

func (r txRepos) Documents() repository.DocumentRepository { return documentRepo{r.v} }

type sequenceRepo struct {
	view
}

// NextAdmissionNumber is not undone on rollback, leaving a gap.
func (r sequenceRepo) NextAdmissionNumber(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	defer r.lock()()

	r.s.sequence++
	return r.s.sequence, nil
}

type applicationRepo struct {
	view
}

func (r applicationRepo) Create(ctx context.Context, app models.Application) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer r.lock()()

	if _, ok := r.s.appEmails[app.Email]; ok {
		return repository.ErrDuplicateEmail
	}
	if _, ok := r.s.applications[app.ID]; ok {
		return fmt.Errorf("application %s already exists", app.ID)
	}
	r.s.applications[app.ID] = app
	r.s.appEmails[app.Email] = app.ID
	r.record(func() {
		delete(r.s.applications, app.ID)
		delete(r.s.appEmails, app.Email)
	})
	return nil
}

func (r applicationRepo) GetByID(ctx context.Context, id string) (models.Application, error) {
	if err := ctx.Err(); err != nil {
		return models.Application{}, err
	}
	defer r.lock()()

	app, ok := r.s.applications[id]
	if !ok {
		return models.Application{}, repository.ErrApplicationNotFound
	}
	return app, nil
}

func (r applicationRepo) List(ctx context.Context, filter repository.ApplicationFilter) ([]models.Application, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer r.lock()()

	apps := []models.Application{}
	for _, app := range r.s.applications {
		if filter.Status != nil && app.Status != *filter.Status {
			continue
		}
		apps = append(apps, app)
	}
	sort.Slice(apps, func(i, j int) bool {
		if !apps[i].SubmittedAt.Equal(apps[j].SubmittedAt) {
			return apps[i].SubmittedAt.After(apps[j].SubmittedAt)
		}
		return apps[i].ID > apps[j].ID
	})
	return apps, nil
}

func (r applicationRepo) Review(ctx context.Context, id string, review models.ApplicationReview) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer r.lock()()

	app, ok := r.s.applications[id]
	if !ok {
		return repository.ErrApplicationNotFound
	}
	if !app.Pending() {
		return repository.ErrApplicationNotPending
	}

	previous := app
	reviewedAt := review.ReviewedAt
	reviewedBy := review.ReviewedBy
	app.Status = review.Status
	app.AdmissionNumber = review.AdmissionNumber
	app.ReviewedAt = &reviewedAt
	app.ReviewedBy = &reviewedBy
	r.s.applications[id] = app
	r.record(func() { r.s.applications[id] = previous })
	return nil
}

func (r applicationRepo) ListCVURLs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer r.lock()()

	var urls []string
	for _, app := range r.s.applications {
		if app.CVURL != nil {
			urls = append(urls, *app.CVURL)
		}
	}
	return urls, nil
}

type userRepo struct {
	view
}

func (r userRepo) Create(ctx context.Context, user models.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer r.lock()()

	if _, ok := r.s.userNumbers[user.AdmissionNumber]; ok {
		return repository.ErrDuplicateAdmissionNumber
	}
	if _, ok := r.s.userEmails[user.Email]; ok {
		return repository.ErrDuplicateEmail
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = user.CreatedAt
	}
	user.PasswordHash = append([]byte(nil), user.PasswordHash...)

	r.s.users[user.ID] = user
	r.s.userNumbers[user.AdmissionNumber] = user.ID
	r.s.userEmails[user.Email] = user.ID
	r.record(func() {
		delete(r.s.users, user.ID)
		delete(r.s.userNumbers, user.AdmissionNumber)
		delete(r.s.userEmails, user.Email)
	})
	return nil
}

func (r userRepo) GetByID(ctx context.Context, id string) (models.User, error) {
	if err := ctx.Err(); err != nil {
		return models.User{}, err
	}
	defer r.lock()()

	user, ok := r.s.users[id]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	return user, nil
}

func (r userRepo) GetByAdmissionNumber(ctx context.Context, admissionNumber string) (models.User, error) {
	if err := ctx.Err(); err != nil {
		return models.User{}, err
	}
	defer r.lock()()

	id, ok := r.s.userNumbers[admissionNumber]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	return r.s.users[id], nil
}

func (r userRepo) List(ctx context.Context, filter repository.UserFilter) ([]models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer r.lock()()

	users := []models.User{}
	for _, user := range r.s.users {
		if filter.Role != nil && user.Role != *filter.Role {
			continue
		}
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool {
		if !users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].CreatedAt.After(users[j].CreatedAt)
		}
		return users[i].ID > users[j].ID
	})
	return users, nil
}

func (r userRepo) UpdatePassword(ctx context.Context, id string, hash []byte, mustChangePassword bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer r.lock()()

	user, ok := r.s.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	previous := user
	user.PasswordHash = append([]byte(nil), hash...)
	user.MustChangePassword = mustChangePassword
	user.UpdatedAt = time.Now().UTC()
	r.s.users[id] = user
	r.record(func() { r.s.users[id] = previous })
	return nil
}

type documentRepo struct {
	view
}

func (r documentRepo) Insert(ctx context.Context, doc repository.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer r.lock()()

	kind := r.s.documents[doc.Kind]
	if kind == nil {
		kind = make(map[string]repository.Document)
		r.s.documents[doc.Kind] = kind
	}
	if _, ok := kind[doc.ID]; ok {
		return fmt.Errorf("%s %s already exists", doc.Kind, doc.ID)
	}
	doc.Body = append(json.RawMessage(nil), doc.Body...)
	kind[doc.ID] = doc
	r.record(func() { delete(kind, doc.ID) })
	return nil
}

func (r documentRepo) Get(ctx context.Context, kind, id string) (repository.Document, error) {
	if err := ctx.Err(); err != nil {
		return repository.Document{}, err
	}
	defer r.lock()()

	doc, ok := r.s.documents[kind][id]
	if !ok {
		return repository.Document{}, repository.ErrDocumentNotFound
	}
	return doc, nil
}

func (r documentRepo) List(ctx context.Context, kind string, filter repository.DocumentFilter) ([]repository.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer r.lock()()

	return r.matching(kind, filter)
}

func (r documentRepo) Count(ctx context.Context, kind string, filter repository.DocumentFilter) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	defer r.lock()()

	docs, err := r.matching(kind, filter)
	return len(docs), err
}

func (r documentRepo) matching(kind string, filter repository.DocumentFilter) ([]repository.Document, error) {
	docs := []repository.Document{}
	for _, doc := range r.s.documents[kind] {
		ok, err := matches(doc.Body, filter)
		if err != nil {
			return nil, fmt.Errorf("filter %s %s: %w", kind, doc.ID, err)
		}
		if ok {
			docs = append(docs, doc)
		}
	}
	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].CreatedAt.After(docs[j].CreatedAt)
		}
		return docs[i].ID > docs[j].ID
	})
	return docs, nil
}

func (r documentRepo) Replace(ctx context.Context, doc repository.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer r.lock()()

	kind := r.s.documents[doc.Kind]
	previous, ok := kind[doc.ID]
	if !ok {
		return repository.ErrDocumentNotFound
	}
	doc.CreatedAt = previous.CreatedAt
	doc.Body = append(json.RawMessage(nil), doc.Body...)
	kind[doc.ID] = doc
	r.record(func() { kind[doc.ID] = previous })
	return nil
}

func (r documentRepo) Delete(ctx context.Context, kind, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer r.lock()()

	docs := r.s.documents[kind]
	previous, ok := docs[id]
	if !ok {
		return repository.ErrDocumentNotFound
	}
	delete(docs, id)
	r.record(func() { docs[id] = previous })
	return nil
}

// matches compares top-level fields by their text form, as Postgres ->> does.
// Null and nested values never match.
func matches(body json.RawMessage, filter repository.DocumentFilter) (bool, error) {
	if len(filter) == 0 {
		return true, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return false, err
	}
	for key, want := range filter {
		raw, ok := fields[key]
		if !ok {
			return false, nil
		}
		got, ok := textValue(raw)
		if !ok || got != want {
			return false, nil
		}
	}
	return true, nil
}

func textValue(raw json.RawMessage) (string, bool) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case bool, float64:
		return string(raw), true
	default:
		return "", false
	}
}
