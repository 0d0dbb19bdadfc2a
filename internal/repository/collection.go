package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Collection is a typed view of one document kind.
type Collection[T any] struct {
	kind string
	docs DocumentRepository
}

func NewCollection[T any](docs DocumentRepository, kind string) Collection[T] {
	return Collection[T]{kind: kind, docs: docs}
}

func (c Collection[T]) Kind() string {
	return c.kind
}

func (c Collection[T]) Insert(ctx context.Context, id string, createdAt time.Time, v T) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", c.kind, err)
	}
	return c.docs.Insert(ctx, Document{Kind: c.kind, ID: id, Body: body, CreatedAt: createdAt})
}

func (c Collection[T]) Get(ctx context.Context, id string) (T, error) {
	var v T
	doc, err := c.docs.Get(ctx, c.kind, id)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(doc.Body, &v); err != nil {
		return v, fmt.Errorf("decode %s %s: %w", c.kind, id, err)
	}
	return v, nil
}

func (c Collection[T]) List(ctx context.Context, filter DocumentFilter) ([]T, error) {
	docs, err := c.docs.List(ctx, c.kind, filter)
	if err != nil {
		return nil, err
	}
	items := make([]T, 0, len(docs))
	for _, doc := range docs {
		var v T
		if err := json.Unmarshal(doc.Body, &v); err != nil {
			return nil, fmt.Errorf("decode %s %s: %w", c.kind, doc.ID, err)
		}
		items = append(items, v)
	}
	return items, nil
}

func (c Collection[T]) Count(ctx context.Context, filter DocumentFilter) (int, error) {
	return c.docs.Count(ctx, c.kind, filter)
}

func (c Collection[T]) Replace(ctx context.Context, id string, v T) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", c.kind, err)
	}
	return c.docs.Replace(ctx, Document{Kind: c.kind, ID: id, Body: body})
}

func (c Collection[T]) Delete(ctx context.Context, id string) error {
	return c.docs.Delete(ctx, c.kind, id)
}
