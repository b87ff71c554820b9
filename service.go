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

package repokit

import (
	"context"
	"database/sql"
	"sync"

	"github.com/tomoncle/repokit/database"
	"github.com/tomoncle/repokit/repository"
	"github.com/tomoncle/repokit/types"
	"github.com/uptrace/bun"
)

// UnitOfWork runs several repository calls on one session and transaction.
type UnitOfWork[T any] func(ctx context.Context, s *repository.Session, repo repository.Repository[T]) error

// Service wraps a repository so every call owns its own transaction and
// session. Returned entities are detached once the call returns.
type Service[T any] interface {
	// Get returns a single entity by its primary key, or nil.
	Get(ctx context.Context, pk ...any) (*T, error)

	// Exists reports whether any row matches filter.
	Exists(ctx context.Context, filter *types.Filter) (bool, error)

	// Count returns the number of rows matching filter.
	Count(ctx context.Context, filter *types.Filter) (int, error)

	// List returns rows selected by opts.
	List(ctx context.Context, opts repository.ListOptions) ([]*T, error)

	// Page returns a paginated list of entities.
	Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error)

	// GetManyByIDs loads rows by primary key in chunks.
	GetManyByIDs(ctx context.Context, ids []any, opts ...repository.BatchOption) ([]*T, error)

	// Create inserts a new entity.
	Create(ctx context.Context, entity *T) (*T, error)

	// Save inserts a new entity or merges an existing one.
	Save(ctx context.Context, entity *T) (*T, error)

	// UpdateEntity writes the given columns of patch to its stored row.
	UpdateEntity(ctx context.Context, patch *T, fields ...string) (*T, error)

	// Delete removes an entity by its primary key.
	Delete(ctx context.Context, pk any) (bool, error)

	// BulkCreate inserts new entities with one statement.
	BulkCreate(ctx context.Context, entities []*T) (int, error)

	// BulkUpdateEntities writes fields of all entities, one statement per chunk.
	BulkUpdateEntities(ctx context.Context, entities []*T, fields []string, opts ...repository.BatchOption) (int64, error)

	// InSession runs fn inside one transaction; an error rolls it back.
	InSession(ctx context.Context, fn UnitOfWork[T]) error

	// Repository returns the underlying repository.
	Repository() repository.Repository[T]
}

type baseServiceImpl[T any] struct {
	db     *bun.DB
	opts   []repository.Option
	txOpts *sql.TxOptions
	repo   repository.Repository[T]
	once   sync.Once
}

// NewService returns a Service backed by the global database connection.
// The repository is built on first use, so the service may be created
// before database.InitDB.
func NewService[T any](opts ...repository.Option) Service[T] {
	return &baseServiceImpl[T]{opts: opts}
}

// NewServiceWithDB returns a Service backed by db.
func NewServiceWithDB[T any](db *bun.DB, opts ...repository.Option) Service[T] {
	return &baseServiceImpl[T]{db: db, opts: opts}
}

// WithTxOptions sets the isolation level and read-only flag of the
// transactions a Service opens.
func WithTxOptions[T any](svc Service[T], txOpts *sql.TxOptions) Service[T] {
	if s, ok := svc.(*baseServiceImpl[T]); ok {
		s.txOpts = txOpts
	}
	return svc
}

func (s *baseServiceImpl[T]) bunDB() *bun.DB {
	if s.db != nil {
		return s.db
	}
	return database.GetDB()
}

func (s *baseServiceImpl[T]) Repository() repository.Repository[T] {
	s.once.Do(func() {
		rc := database.GetConfig().RepositoryConfig
		opts := append([]repository.Option{
			repository.WithDefaultChunkSize(rc.ChunkSize),
			repository.WithDefaultListLimit(rc.ListLimit),
		}, s.opts...)
		s.repo = repository.NewRepository[T](s.bunDB(), opts...)
	})
	return s.repo
}

func (s *baseServiceImpl[T]) InSession(ctx context.Context, fn UnitOfWork[T]) error {
	repo := s.Repository()
	return s.bunDB().RunInTx(ctx, s.txOpts, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, repository.NewSession(tx), repo)
	})
}

// run executes fn in its own session and hands back its result.
func run[T, R any](ctx context.Context, s *baseServiceImpl[T], fn func(ctx context.Context, sess *repository.Session, repo repository.Repository[T]) (R, error)) (R, error) {
	var out R
	err := s.InSession(ctx, func(ctx context.Context, sess *repository.Session, repo repository.Repository[T]) error {
		var err error
		out, err = fn(ctx, sess, repo)
		return err
	})
	if err != nil {
		var zero R
		return zero, err
	}
	return out, nil
}

func (s *baseServiceImpl[T]) Get(ctx context.Context, pk ...any) (*T, error) {
	return run(ctx, s, func(ctx context.Context, sess *repository.Session, repo repository.Repository[T]) (*T, error) {
		return repo.Get(ctx, sess, pk...)
	})
}

func (s *baseServiceImpl[T]) Exists(ctx context.Context, filter *types.Filter) (bool, error) {
	return run(ctx, s, func(ctx context.Context, sess *repository.Session, repo repository.Repository[T]) (bool, error) {
		return repo.Exists(ctx, sess, filter)
	})
}

func (s *baseServiceImpl[T]) Count(ctx context.Context, filter *types.Filter) (int, error) {
	return run(ctx, s, func(ctx context.Context, sess *repository.Session, repo repository.Repository[T]) (int, error) {
		return repo.Count(ctx, sess, filter)
	})
}

func (s *baseServiceImpl[T]) List(ctx context.Context, opts repository.ListOptions) ([]*T, error) {
	return run(ctx, s, func(ctx context.Context, sess *repository.Session, repo repository.Repository[T]) ([]*T, error) {
		return repo.List(ctx, sess, opts)
	})
}

func (s *baseServiceImpl[T]) Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error) {
	return run(ctx, s, func(ctx context.Context, sess *repository.Session, repo repository.Repository[T]) (*types.Pagination[T], error) {
		return repo.Page(ctx, sess, page)
	})
}

func (s *baseServiceImpl[T]) GetManyByIDs(ctx context.Context, ids []any, opts ...repository.BatchOption) ([]*T, error) {
	return run(ctx, s, func(ctx context.Context, sess *repository.Session, repo repository.Repository[T]) ([]*T, error) {
		return repo.GetManyByIDs(ctx, sess, ids, opts...)
	})
}

func (s *baseServiceImpl[T]) Create(ctx context.Context, entity *T) (*T, error) {
	return run(ctx, s, func(ctx context.Context, sess *repository.Session, repo repository.Repository[T]) (*T, error) {
		return repo.Create(ctx, sess, entity)
	})
}

func (s *baseServiceImpl[T]) Save(ctx context.Context, entity *T) (*T, error) {
	return run(ctx, s, func(ctx context.Context, sess *repository.Session, repo repository.Repository[T]) (*T, error) {
		return repo.Save(ctx, sess, entity)
	})
}

func (s *baseServiceImpl[T]) UpdateEntity(ctx context.Context, patch *T, fields ...string) (*T, error) {
	return run(ctx, s, func(ctx context.Context, sess *repository.Session, repo repository.Repository[T]) (*T, error) {
		return repo.UpdateEntity(ctx, sess, patch, fields...)
	})
}

func (s *baseServiceImpl[T]) Delete(ctx context.Context, pk any) (bool, error) {
	return run(ctx, s, func(ctx context.Context, sess *repository.Session, repo repository.Repository[T]) (bool, error) {
		return repo.Delete(ctx, sess, pk)
	})
}

func (s *baseServiceImpl[T]) BulkCreate(ctx context.Context, entities []*T) (int, error) {
	return run(ctx, s, func(ctx context.Context, sess *repository.Session, repo repository.Repository[T]) (int, error) {
		return repo.BulkCreate(ctx, sess, entities)
	})
}

func (s *baseServiceImpl[T]) BulkUpdateEntities(ctx context.Context, entities []*T, fields []string, opts ...repository.BatchOption) (int64, error) {
	return run(ctx, s, func(ctx context.Context, sess *repository.Session, repo repository.Repository[T]) (int64, error) {
		return repo.BulkUpdateEntities(ctx, sess, entities, fields, opts...)
	})
}
