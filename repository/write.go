/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package repository

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/feature"
	"github.com/uptrace/bun/schema"
)

// stateOf classifies entity for a write path.
func (r *baseRepositoryImpl[T]) stateOf(s *Session, entity *T) (EntityState, error) {
	if entity == nil {
		return 0, ErrNilEntity
	}
	if err := checkIdentity(r.model, s, entity); err != nil {
		return 0, err
	}
	return classify(r.model, s, entity), nil
}

func (r *baseRepositoryImpl[T]) Create(ctx context.Context, s *Session, entity *T) (*T, error) {
	state, err := r.stateOf(s, entity)
	if err != nil {
		return nil, errors.WithMessage(err, "Create()")
	}
	if state != StateNew {
		return nil, errors.Wrapf(ErrNotTransient, "Create(): %s entity is %s", r.model.table.Name, state)
	}
	if err := r.insert(ctx, s, []*T{entity}); err != nil {
		return nil, err
	}
	return entity, nil
}

func (r *baseRepositoryImpl[T]) Save(ctx context.Context, s *Session, entity *T) (*T, error) {
	state, err := r.stateOf(s, entity)
	if err != nil {
		return nil, errors.WithMessage(err, "Save()")
	}
	switch state {
	case StateNew:
		if err := r.insert(ctx, s, []*T{entity}); err != nil {
			return nil, err
		}
		return entity, nil
	case StateTracked:
		key, _ := s.keyOf(entity)
		entry, _ := s.lookup(key)
		if err := r.writeChanged(ctx, s, entity, entry.snapshot, r.model.table.DataFields); err != nil {
			return nil, err
		}
		return entity, nil
	default:
		return r.merge(ctx, s, entity)
	}
}

// merge reconciles a foreign instance: the tracked or stored row with the
// same identity takes over all its columns. Without a stored row the values
// are inserted as a new row.
func (r *baseRepositoryImpl[T]) merge(ctx context.Context, s *Session, foreign *T) (*T, error) {
	key, vals, _ := r.model.identity(foreign)
	target, snap, attached, err := r.attach(ctx, s, key, vals)
	if err != nil {
		return nil, err
	}
	if target == nil {
		fresh := new(T)
		r.model.copyColumns(fresh, foreign, r.model.table.Fields)
		if err := r.insert(ctx, s, []*T{fresh}); err != nil {
			return nil, err
		}
		r.logger.Debug("Merged foreign entity as new row", "table", r.model.table.Name, "key", key.key)
		return fresh, nil
	}
	r.model.copyColumns(target, foreign, r.model.table.DataFields)
	if err := r.writeColumns(ctx, s, target, snap, r.model.table.DataFields); err != nil {
		return nil, err
	}
	if attached {
		s.track(key, target, snap)
	}
	r.logger.Debug("Merged foreign entity", "table", r.model.table.Name, "key", key.key)
	return target, nil
}

func (r *baseRepositoryImpl[T]) UpdateEntity(ctx context.Context, s *Session, patch *T, fields ...string) (*T, error) {
	if patch == nil {
		return nil, errors.WithMessage(ErrNilEntity, "UpdateEntity()")
	}
	key, vals, ok := r.model.identity(patch)
	if !ok {
		return nil, errors.Wrapf(ErrMissingKey, "UpdateEntity(): %s", r.model.table.Name)
	}
	targets, err := r.model.targetFields(fields)
	if err != nil {
		return nil, errors.WithMessage(err, "UpdateEntity()")
	}
	current, snap, attached, err := r.attach(ctx, s, key, vals)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, errors.Wrapf(ErrNotFound, "UpdateEntity(): %s key=%s", r.model.table.Name, key.key)
	}
	if current != patch {
		r.model.copyColumns(current, patch, targets)
	}
	if err := r.writeColumns(ctx, s, current, snap, targets); err != nil {
		return nil, err
	}
	if attached {
		s.track(key, current, snap)
	}
	return current, nil
}

func (r *baseRepositoryImpl[T]) Delete(ctx context.Context, s *Session, pk interface{}) (bool, error) {
	f, err := r.model.singleKey("Delete")
	if err != nil {
		return false, err
	}
	v, err := r.model.coerce(f, pk)
	if err != nil {
		return false, errors.WithMessage(err, "Delete()")
	}
	res, err := s.db.NewDelete().
		Model((*T)(nil)).
		Where("? = ?", bun.Ident(f.Name), v).
		Exec(ctx)
	if err != nil {
		return false, storeError(err, "delete %s", r.model.table.Name)
	}
	s.forget(r.model.keyFor([]interface{}{v}))
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "rows affected")
	}
	return n > 0, nil
}

// insert writes entities in one INSERT and tracks them. Generated columns are
// read back with RETURNING where the dialect supports it, otherwise Bun fills
// auto-increment keys from LastInsertId.
func (r *baseRepositoryImpl[T]) insert(ctx context.Context, s *Session, entities []*T) error {
	q := s.db.NewInsert().Model(&entities)
	if s.db.Dialect().Features().Has(feature.InsertReturning) {
		q = q.Returning("*")
	}
	if _, err := q.Exec(ctx); err != nil {
		return storeError(err, "insert %s", r.model.table.Name)
	}
	for _, e := range entities {
		key, _, ok := r.model.identity(e)
		if !ok {
			return errors.Wrapf(ErrMissingKey, "insert %s: no identity assigned", r.model.table.Name)
		}
		s.track(key, e, r.model.snapshot(e))
	}
	return nil
}

// attach returns the instance the session tracks for key, or loads the
// stored row. attached reports a freshly loaded row that the caller must
// track once its write succeeded. A nil entity means no row exists.
func (r *baseRepositoryImpl[T]) attach(ctx context.Context, s *Session, key identityKey, vals []interface{}) (entity *T, snap map[string]interface{}, attached bool, err error) {
	if entry, ok := s.lookup(key); ok {
		return entry.instance.(*T), entry.snapshot, false, nil
	}
	loaded, err := r.load(ctx, s, vals)
	if err != nil || loaded == nil {
		return nil, nil, false, err
	}
	return loaded, r.model.snapshot(loaded), true, nil
}

// writeChanged updates the columns among fields that differ from snap and
// records them in snap. Nothing is sent when no column changed.
func (r *baseRepositoryImpl[T]) writeChanged(ctx context.Context, s *Session, entity *T, snap map[string]interface{}, fields []*schema.Field) error {
	changed := r.model.changed(entity, snap, fields)
	if len(changed) == 0 {
		return nil
	}
	return r.writeColumns(ctx, s, entity, snap, changed)
}

// writeColumns updates every column in fields and records the written values
// in snap. The stored row may differ from snap, so nothing is skipped.
func (r *baseRepositoryImpl[T]) writeColumns(ctx context.Context, s *Session, entity *T, snap map[string]interface{}, fields []*schema.Field) error {
	_, err := s.db.NewUpdate().
		Model(entity).
		Column(fieldNames(fields)...).
		WherePK().
		Exec(ctx)
	if err != nil {
		return storeError(err, "update %s", r.model.table.Name)
	}
	for _, f := range fields {
		snap[f.Name] = r.model.value(entity, f)
	}
	return nil
}
