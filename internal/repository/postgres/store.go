package postgres

import (
	"context"
	"embed"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"cyberwise/portal/internal/repository"
)

//go:embed migrations/*.sql
var Migrations embed.FS

const uniqueViolation = "23505"

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	pool *pgxpool.Pool
	repos
}

var _ repository.Store = (*Store)(nil)

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, repos: newRepos(pool)}
}

func (s *Store) WithinTx(ctx context.Context, fn func(repository.Repositories) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(newRepos(tx))
	})
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close() {
	s.pool.Close()
}

type repos struct {
	applications *ApplicationRepository
	users        *UserRepository
	sequences    *SequenceRepository
	documents    *DocumentRepository
}

func newRepos(q querier) repos {
	return repos{
		applications: &ApplicationRepository{q: q},
		users:        &UserRepository{q: q},
		sequences:    &SequenceRepository{q: q},
		documents:    &DocumentRepository{q: q},
	}
}

func (r repos) Applications() repository.ApplicationRepository { return r.applications }

func (r repos) Users() repository.UserRepository { return r.users }

func (r repos) Sequences() repository.SequenceRepository { return r.sequences }

func (r repos) Documents() repository.DocumentRepository { return r.documents }

func uniqueConstraint(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return pgErr.ConstraintName, true
	}
	return "", false
}

type SequenceRepository struct {
	q querier
}

func (r *SequenceRepository) NextAdmissionNumber(ctx context.Context) (int64, error) {
	var next int64
	if err := r.q.QueryRow(ctx, `SELECT nextval('admission_number_seq')`).Scan(&next); err != nil {
		return 0, err
	}
	return next, nil
}
