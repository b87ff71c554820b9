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
	"database/sql"
	"reflect"

	"github.com/pkg/errors"
	"github.com/tomoncle/repokit/database"
	"github.com/tomoncle/repokit/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/schema"
)

type baseRepositoryImpl[T any] struct {
	db               *bun.DB
	model            *tableModel[T]
	chunkSize        int
	listLimit        int
	orderByValueList bool
	logger           database.Logger
}

// NewRepository returns a generic repository for T backed by the provided Bun
// DB. The DB is only used for table metadata and dialect detection;
// statements run on the Session passed to each call.
func NewRepository[T any](db *bun.DB, opts ...Option) Repository[T] {
	o := options{chunkSize: DefaultChunkSize, listLimit: DefaultListLimit}
	for _, opt := range opts {
		opt(&o)
	}
	r := &baseRepositoryImpl[T]{
		db:               db,
		model:            newTableModel[T](db),
		chunkSize:        o.chunkSize,
		listLimit:        o.listLimit,
		orderByValueList: db.Dialect().Name() == dialect.MySQL,
		logger:           o.logger,
	}
	if o.orderByValueList != nil {
		r.orderByValueList = *o.orderByValueList
	}
	if r.logger == nil {
		r.logger = database.GetLogger()
	}
	return r
}

func (r *baseRepositoryImpl[T]) Dialect() schema.Dialect { return r.db.Dialect() }

func (r *baseRepositoryImpl[T]) Model() Model[T] { return r.model }

func (r *baseRepositoryImpl[T]) State(s *Session, entity *T) EntityState {
	return classify(r.model, s, entity)
}

func (r *baseRepositoryImpl[T]) Get(ctx context.Context, s *Session, pk ...interface{}) (*T, error) {
	vals, err := r.model.keyValues(pk)
	if err != nil {
		return nil, errors.WithMessage(err, "Get()")
	}
	return r.load(ctx, s, vals)
}

// load selects the row with the given coerced key values.
func (r *baseRepositoryImpl[T]) load(ctx context.Context, s *Session, vals []interface{}) (*T, error) {
	entity := new(T)
	q := s.db.NewSelect().Model(entity)
	for i, f := range r.model.table.PKs {
		q = q.Where("? = ?", bun.Ident(f.Name), vals[i])
	}
	if err := q.Limit(1).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "select %s", r.model.table.Name)
	}
	return entity, nil
}

func (r *baseRepositoryImpl[T]) Exists(ctx context.Context, s *Session, filter *types.Filter) (bool, error) {
	q, err := r.where(s.db.NewSelect().Model((*T)(nil)), filter)
	if err != nil {
		return false, err
	}
	n, err := q.Count(ctx)
	if err != nil {
		return false, errors.Wrapf(err, "count %s", r.model.table.Name)
	}
	return n > 0, nil
}

func (r *baseRepositoryImpl[T]) Count(ctx context.Context, s *Session, filter *types.Filter) (int, error) {
	q, err := r.where(s.db.NewSelect().Model((*T)(nil)), filter)
	if err != nil {
		return 0, err
	}
	n, err := q.Count(ctx)
	if err != nil {
		return 0, errors.Wrapf(err, "count %s", r.model.table.Name)
	}
	return n, nil
}

func (r *baseRepositoryImpl[T]) List(ctx context.Context, s *Session, opts ListOptions) ([]*T, error) {
	entities := make([]*T, 0)
	q, err := r.where(s.db.NewSelect().Model(&entities), opts.Where)
	if err != nil {
		return nil, err
	}
	if q, err = r.orderBy(q, opts.OrderBy); err != nil {
		return nil, err
	}
	limit := opts.Limit
	if limit == 0 {
		limit = r.listLimit
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, errors.Wrapf(err, "list %s", r.model.table.Name)
	}
	return entities, nil
}

func (r *baseRepositoryImpl[T]) Page(ctx context.Context, s *Session, pageRequest *types.PageRequest) (*types.Pagination[T], error) {
	if pageRequest == nil {
		pageRequest = types.NewDefaultPageRequest(1, 10)
	}
	var entities []*T
	query, err := r.where(s.db.NewSelect().Model(&entities), pageRequest.GetFilter())
	if err != nil {
		return nil, err
	}
	pagination := types.NewDefaultPagination[T](pageRequest.GetPage(), pageRequest.GetPageSize())
	total, err := query.Count(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "count %s", r.model.table.Name)
	}
	if total == 0 {
		return pagination, nil
	}
	if query, err = r.orderBy(query, pageRequest.GetOrders()); err != nil {
		return nil, err
	}
	err = query.
		Offset(pageRequest.GetOffset()).
		Limit(pageRequest.GetPageSize()).
		Scan(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "page %s", r.model.table.Name)
	}
	pagination.Total = total
	pagination.Items = entities
	return pagination, nil
}

// where appends one equality condition per filter entry. A nil value is
// matched with IS NULL.
func (r *baseRepositoryImpl[T]) where(q *bun.SelectQuery, filter *types.Filter) (*bun.SelectQuery, error) {
	err := filter.Each(func(column string, value interface{}) error {
		if _, err := r.model.field(column); err != nil {
			return err
		}
		if isNil(value) {
			q = q.Where("? IS NULL", bun.Ident(column))
		} else {
			q = q.Where("? = ?", bun.Ident(column), value)
		}
		return nil
	})
	return q, err
}

func (r *baseRepositoryImpl[T]) orderBy(q *bun.SelectQuery, spec types.OrderSpec) (*bun.SelectQuery, error) {
	for _, o := range spec {
		if _, err := r.model.field(o.Column); err != nil {
			return nil, err
		}
		q = q.OrderExpr("? "+o.Direction.String(), bun.Ident(o.Column))
	}
	return q, nil
}

func isNil(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
