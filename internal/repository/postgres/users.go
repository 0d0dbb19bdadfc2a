package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"cyberwise/portal/internal/models"
	"cyberwise/portal/internal/repository"
)

const userColumns = `
	id, admission_number, full_name, email, password_hash, role,
	must_change_password, payment_verified, application_id, created_at, updated_at
`

type UserRepository struct {
	q querier
}

func (r *UserRepository) Create(ctx context.Context, user models.User) error {
	const query = `
		INSERT INTO users (
			id, admission_number, full_name, email, password_hash, role,
			must_change_password, payment_verified, application_id, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10
		)
	`

	_, err := r.q.Exec(ctx, query,
		user.ID,
		user.AdmissionNumber,
		user.FullName,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.MustChangePassword,
		user.PaymentVerified,
		user.ApplicationID,
		user.CreatedAt,
	)
	if constraint, ok := uniqueConstraint(err); ok {
		switch constraint {
		case "users_email_key":
			return repository.ErrDuplicateEmail
		case "users_admission_number_key":
			return repository.ErrDuplicateAdmissionNumber
		}
	}
	return err
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *UserRepository) GetByAdmissionNumber(ctx context.Context, admissionNumber string) (models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE admission_number = $1`, admissionNumber)
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg string) (models.User, error) {
	user, err := scanUser(r.q.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.User{}, repository.ErrUserNotFound
	}
	return user, err
}

func (r *UserRepository) List(ctx context.Context, filter repository.UserFilter) ([]models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	var args []any
	if filter.Role != nil {
		query += ` WHERE role = $1`
		args = append(args, *filter.Role)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id string, hash []byte, mustChangePassword bool) error {
	const query = `
		UPDATE users SET password_hash = $2, must_change_password = $3, updated_at = NOW() WHERE id = $1
	`
	cmd, err := r.q.Exec(ctx, query, id, hash, mustChangePassword)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return repository.ErrUserNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.AdmissionNumber,
		&user.FullName,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.MustChangePassword,
		&user.PaymentVerified,
		&user.ApplicationID,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	return user, err
}
