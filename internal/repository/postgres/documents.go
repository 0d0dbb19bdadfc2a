package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"

	"cyberwise/portal/internal/repository"
)

type DocumentRepository struct {
	q querier
}

func (r *DocumentRepository) Insert(ctx context.Context, doc repository.Document) error {
	const query = `INSERT INTO documents (kind, id, body, created_at) VALUES ($1, $2, $3, $4)`
	_, err := r.q.Exec(ctx, query, doc.Kind, doc.ID, []byte(doc.Body), doc.CreatedAt)
	return err
}

func (r *DocumentRepository) Get(ctx context.Context, kind, id string) (repository.Document, error) {
	const query = `SELECT kind, id, body, created_at FROM documents WHERE kind = $1 AND id = $2`

	var doc repository.Document
	var body []byte
	err := r.q.QueryRow(ctx, query, kind, id).Scan(&doc.Kind, &doc.ID, &body, &doc.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.Document{}, repository.ErrDocumentNotFound
	}
	if err != nil {
		return repository.Document{}, err
	}
	doc.Body = body
	return doc, nil
}

func (r *DocumentRepository) List(ctx context.Context, kind string, filter repository.DocumentFilter) ([]repository.Document, error) {
	where, args := whereClause(kind, filter)
	query := `SELECT kind, id, body, created_at FROM documents WHERE ` + where + ` ORDER BY created_at DESC, id DESC`

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := []repository.Document{}
	for rows.Next() {
		var doc repository.Document
		var body []byte
		if err := rows.Scan(&doc.Kind, &doc.ID, &body, &doc.CreatedAt); err != nil {
			return nil, err
		}
		doc.Body = body
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (r *DocumentRepository) Count(ctx context.Context, kind string, filter repository.DocumentFilter) (int, error) {
	where, args := whereClause(kind, filter)

	var count int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM documents WHERE `+where, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *DocumentRepository) Replace(ctx context.Context, doc repository.Document) error {
	const query = `UPDATE documents SET body = $3 WHERE kind = $1 AND id = $2`
	cmd, err := r.q.Exec(ctx, query, doc.Kind, doc.ID, []byte(doc.Body))
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return repository.ErrDocumentNotFound
	}
	return nil
}

func (r *DocumentRepository) Delete(ctx context.Context, kind, id string) error {
	cmd, err := r.q.Exec(ctx, `DELETE FROM documents WHERE kind = $1 AND id = $2`, kind, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return repository.ErrDocumentNotFound
	}
	return nil
}

// whereClause matches filter fields with body->>field, keys in sorted order.
func whereClause(kind string, filter repository.DocumentFilter) (string, []any) {
	keys := make([]string, 0, len(filter))
	for key := range filter {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	clauses := []string{"kind = $1"}
	args := []any{kind}
	for _, key := range keys {
		clauses = append(clauses, fmt.Sprintf("body->>($%d::text) = $%d", len(args)+1, len(args)+2))
		args = append(args, key, filter[key])
	}
	return strings.Join(clauses, " AND "), args
}
