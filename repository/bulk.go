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
	"github.com/uptrace/bun/schema"
)

// BulkCreate inserts all entities with a single statement. Every entity must
// be new; otherwise nothing is written.
func (r *baseRepositoryImpl[T]) BulkCreate(ctx context.Context, s *Session, entities []*T) (int, error) {
	if len(entities) == 0 {
		return 0, nil
	}
	for i, e := range entities {
		state, err := r.stateOf(s, e)
		if err != nil {
			return 0, errors.WithMessagef(err, "BulkCreate(): entities[%d]", i)
		}
		if state != StateNew {
			return 0, errors.Wrapf(ErrNotTransient, "BulkCreate(): entities[%d] is %s", i, state)
		}
	}
	items := make([]*T, len(entities))
	copy(items, entities)
	if err := r.insert(ctx, s, items); err != nil {
		return 0, err
	}
	r.logger.Debug("Bulk created rows", "table", r.model.table.Name, "rows", len(items))
	return len(items), nil
}

// BulkUpdateEntities writes fields of every entity, one UPDATE per chunk:
//
//	UPDATE t SET c1 = CASE WHEN pk = k1 THEN v1 ... ELSE c1 END, ...
//	WHERE pk IN (k1, ...)
//
// No fields means nothing was requested and returns 0. Keys of a chunk are
// validated before its statement is sent; chunks already sent stay in the
// caller's transaction. The result sums the driver's affected-row counts,
// which some stores report as 0 for rows whose value did not change.
func (r *baseRepositoryImpl[T]) BulkUpdateEntities(ctx context.Context, s *Session, entities []*T, fields []string, opts ...BatchOption) (int64, error) {
	pk, err := r.model.singleKey("BulkUpdateEntities")
	if err != nil {
		return 0, err
	}
	if len(entities) == 0 || len(fields) == 0 {
		return 0, nil
	}
	targets, err := r.model.targetFields(fields)
	if err != nil {
		return 0, errors.WithMessage(err, "BulkUpdateEntities()")
	}
	o := r.batchOptions(opts)

	var total int64
	chunks := chunkSlice(entities, o.chunkSize)
	for i, chunk := range chunks {
		keys, err := r.chunkKeys(s, chunk, pk)
		if err != nil {
			return total, errors.WithMessagef(err, "BulkUpdateEntities(): chunk %d/%d", i+1, len(chunks))
		}
		q := s.db.NewUpdate().Model((*T)(nil))
		for _, f := range targets {
			q = q.Set("? = ?", bun.Ident(f.Name), r.caseFor(pk, f, chunk, keys))
		}
		res, err := q.Where("? IN (?)", bun.Ident(pk.Name), bun.In(keys)).Exec(ctx)
		if err != nil {
			return total, storeError(err, "BulkUpdateEntities(): chunk %d/%d of %s", i+1, len(chunks), r.model.table.Name)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, errors.Wrap(err, "rows affected")
		}
		total += n
		for j, e := range chunk {
			r.syncTracked(s, r.model.keyFor(keys[j:j+1]), e, targets)
		}
		r.logger.Debug("Bulk updated chunk", "table", r.model.table.Name, "chunk", i+1, "of", len(chunks), "rows", len(chunk), "affected", n)
	}
	return total, nil
}

// syncTracked brings the instance the session tracks for key in line with
// the columns just written from e. The tracked instance may be another
// pointer than e, in which case the written values are copied onto it.
func (r *baseRepositoryImpl[T]) syncTracked(s *Session, key identityKey, e *T, targets []*schema.Field) {
	entry, ok := s.lookup(key)
	if !ok {
		return
	}
	tracked := entry.instance.(*T)
	if tracked != e {
		r.model.copyColumns(tracked, e, targets)
	}
	for _, f := range targets {
		entry.snapshot[f.Name] = r.model.value(tracked, f)
	}
}

// chunkKeys returns the key of every entity in chunk.
func (r *baseRepositoryImpl[T]) chunkKeys(s *Session, chunk []*T, pk *schema.Field) ([]interface{}, error) {
	keys := make([]interface{}, len(chunk))
	for j, e := range chunk {
		if e == nil {
			return nil, errors.WithMessagef(ErrNilEntity, "entities[%d]", j)
		}
		if r.model.isZero(e, pk) {
			return nil, errors.Wrapf(ErrMissingKey, "%s.%s of entity %d", r.model.table.Name, pk.Name, j)
		}
		if err := checkIdentity(r.model, s, e); err != nil {
			return nil, err
		}
		keys[j] = r.model.value(e, pk)
	}
	return keys, nil
}

// caseFor builds the CASE expression assigning f for the rows of chunk.
func (r *baseRepositoryImpl[T]) caseFor(pk, f *schema.Field, chunk []*T, keys []interface{}) *CaseExpr {
	expr := NewCaseExpr(pk.Name, f.Name)
	for j, e := range chunk {
		expr.When(keys[j], fieldValue{field: f, strct: r.model.strct(e)})
	}
	return expr
}
