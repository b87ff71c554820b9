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

func (r *baseRepositoryImpl[T]) batchOptions(opts []BatchOption) batchOptions {
	o := batchOptions{chunkSize: r.chunkSize, dedupe: true}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// GetManyByIDs selects rows whose primary key is in ids, one query per chunk.
// With KeepOrder the result follows ids; ids without a row are skipped. On
// MySQL each chunk is ordered with ORDER BY FIELD unless duplicates are kept.
// Otherwise rows are reordered in memory after all chunks are read.
func (r *baseRepositoryImpl[T]) GetManyByIDs(ctx context.Context, s *Session, ids []interface{}, opts ...BatchOption) ([]*T, error) {
	if len(ids) == 0 {
		return []*T{}, nil
	}
	pk, err := r.model.singleKey("GetManyByIDs")
	if err != nil {
		return nil, err
	}
	o := r.batchOptions(opts)

	keys := make([]interface{}, len(ids))
	for i, id := range ids {
		if keys[i], err = r.model.coerce(pk, id); err != nil {
			return nil, errors.WithMessagef(err, "GetManyByIDs(): ids[%d]", i)
		}
	}
	if o.dedupe {
		keys = dedupe(keys)
	}

	// ORDER BY FIELD yields a row once however often its id repeats, so
	// ids kept with duplicates are ordered in memory.
	serverOrder := o.keepOrder && o.dedupe && r.orderByValueList
	rows := make([]*T, 0, len(keys))
	chunks := chunkSlice(keys, o.chunkSize)
	for i, chunk := range chunks {
		var part []*T
		q := r.chunkQuery(s.db.NewSelect().Model(&part), pk, chunk, serverOrder)
		if err := q.Scan(ctx); err != nil {
			return nil, errors.Wrapf(err, "GetManyByIDs(): chunk %d/%d of %s", i+1, len(chunks), r.model.table.Name)
		}
		rows = append(rows, part...)
	}
	r.logger.Debug("Fetched rows by id", "table", r.model.table.Name, "ids", len(keys), "rows", len(rows), "chunks", len(chunks))

	if o.keepOrder && !serverOrder {
		rows = reorder(keys, rows, func(e *T) interface{} { return r.model.value(e, pk) })
	}
	return rows, nil
}

func (r *baseRepositoryImpl[T]) chunkQuery(q *bun.SelectQuery, pk *schema.Field, chunk []interface{}, ordered bool) *bun.SelectQuery {
	q = q.Where("? IN (?)", bun.Ident(pk.Name), bun.In(chunk))
	if ordered {
		q = q.OrderExpr("FIELD(?, ?)", bun.Ident(pk.Name), bun.In(chunk))
	}
	return q
}
