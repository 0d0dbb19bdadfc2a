package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cyberwise/portal/internal/apperr"
	"cyberwise/portal/internal/ids"
	"cyberwise/portal/internal/repository"
	"cyberwise/portal/internal/validation"
)

// Resource is CRUD plumbing for one content kind. The hooks fill in
// server-owned fields: prepare runs on create, preserve on update (with the
// stored record), and check runs after both, before validation.
type Resource[T any] struct {
	coll     repository.Collection[T]
	label    string
	prepare  func(v *T, id string, now time.Time)
	preserve func(v *T, old T)
	check    func(v T) error
}

func (r *Resource[T]) Create(ctx context.Context, v T) (T, error) {
	var zero T
	now := utcNow()
	id := ids.New()
	r.prepare(&v, id, now)
	if err := r.validate(v); err != nil {
		return zero, err
	}
	if err := r.coll.Insert(ctx, id, now, v); err != nil {
		return zero, fmt.Errorf("create %s: %w", r.label, err)
	}
	return v, nil
}

func (r *Resource[T]) Get(ctx context.Context, id string) (T, error) {
	v, err := r.coll.Get(ctx, id)
	if err != nil {
		return v, notFoundAs(err, r.label)
	}
	return v, nil
}

func (r *Resource[T]) List(ctx context.Context, filter repository.DocumentFilter) ([]T, error) {
	return r.coll.List(ctx, filter)
}

func (r *Resource[T]) Count(ctx context.Context, filter repository.DocumentFilter) (int, error) {
	return r.coll.Count(ctx, filter)
}

// Update merges the top-level fields of patch into the stored record.
func (r *Resource[T]) Update(ctx context.Context, id string, patch json.RawMessage) (T, error) {
	var zero T
	var changes map[string]json.RawMessage
	if err := json.Unmarshal(patch, &changes); err != nil || changes == nil {
		return zero, apperr.Validation("request body must be a JSON object")
	}

	old, err := r.Get(ctx, id)
	if err != nil {
		return zero, err
	}

	merged, err := mergeFields(old, changes)
	if err != nil {
		return zero, err
	}
	var next T
	if err := json.Unmarshal(merged, &next); err != nil {
		return zero, apperr.Validation("invalid field value").Wrap(err)
	}
	r.preserve(&next, old)
	if err := r.validate(next); err != nil {
		return zero, err
	}
	if err := r.Replace(ctx, id, next); err != nil {
		return zero, err
	}
	return next, nil
}

// Replace stores v as the new body of id without running hooks.
func (r *Resource[T]) Replace(ctx context.Context, id string, v T) error {
	if err := r.coll.Replace(ctx, id, v); err != nil {
		return notFoundAs(err, r.label)
	}
	return nil
}

func (r *Resource[T]) Delete(ctx context.Context, id string) error {
	if err := r.coll.Delete(ctx, id); err != nil {
		return notFoundAs(err, r.label)
	}
	return nil
}

func (r *Resource[T]) validate(v T) error {
	if r.check != nil {
		if err := r.check(v); err != nil {
			return err
		}
	}
	return validation.Struct(v)
}

func mergeFields[T any](old T, changes map[string]json.RawMessage) ([]byte, error) {
	current, err := json.Marshal(old)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(current, &fields); err != nil {
		return nil, err
	}
	for key, value := range changes {
		fields[key] = value
	}
	return json.Marshal(fields)
}
