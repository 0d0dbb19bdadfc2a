package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"cyberwise/portal/internal/models"
	"cyberwise/portal/internal/repository"
)

const applicationColumns = `
	id, full_name, email, phone, location, experience_level, reason, cv_url,
	status, admission_number, submitted_at, reviewed_at, reviewed_by
`

type ApplicationRepository struct {
	q querier
}

func (r *ApplicationRepository) Create(ctx context.Context, app models.Application) error {
	const query = `
		INSERT INTO applications (
			id, full_name, email, phone, location, experience_level, reason, cv_url, status, submitted_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)
	`

	_, err := r.q.Exec(ctx, query,
		app.ID,
		app.FullName,
		app.Email,
		app.Phone,
		app.Location,
		app.ExperienceLevel,
		app.Reason,
		app.CVURL,
		app.Status,
		app.SubmittedAt,
	)
	if constraint, ok := uniqueConstraint(err); ok && constraint == "applications_email_key" {
		return repository.ErrDuplicateEmail
	}
	return err
}

func (r *ApplicationRepository) GetByID(ctx context.Context, id string) (models.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1`

	app, err := scanApplication(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Application{}, repository.ErrApplicationNotFound
	}
	return app, err
}

func (r *ApplicationRepository) List(ctx context.Context, filter repository.ApplicationFilter) ([]models.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications`
	var args []any
	if filter.Status != nil {
		query += ` WHERE status = $1`
		args = append(args, *filter.Status)
	}
	query += ` ORDER BY submitted_at DESC, id DESC`

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	apps := []models.Application{}
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}
	return apps, rows.Err()
}

func (r *ApplicationRepository) Review(ctx context.Context, id string, review models.ApplicationReview) error {
	const query = `
		UPDATE applications
		SET status = $2, admission_number = $3, reviewed_at = $4, reviewed_by = $5
		WHERE id = $1 AND status = 'pending'
	`
	cmd, err := r.q.Exec(ctx, query, id, review.Status, review.AdmissionNumber, review.ReviewedAt, review.ReviewedBy)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := r.q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM applications WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check application: %w", err)
	}
	if !exists {
		return repository.ErrApplicationNotFound
	}
	return repository.ErrApplicationNotPending
}

func (r *ApplicationRepository) ListCVURLs(ctx context.Context) ([]string, error) {
	rows, err := r.q.Query(ctx, `SELECT cv_url FROM applications WHERE cv_url IS NOT NULL`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func scanApplication(row pgx.Row) (models.Application, error) {
	var app models.Application
	err := row.Scan(
		&app.ID,
		&app.FullName,
		&app.Email,
		&app.Phone,
		&app.Location,
		&app.ExperienceLevel,
		&app.Reason,
		&app.CVURL,
		&app.Status,
		&app.AdmissionNumber,
		&app.SubmittedAt,
		&app.ReviewedAt,
		&app.ReviewedBy,
	)
	return app, err
}
