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

	"github.com/tomoncle/repokit/types"
	"github.com/uptrace/bun/schema"
)

// ReadRepository defines side-effect-free lookups. Reads never make an
// instance tracked.
type ReadRepository[T any] interface {
	// Get returns the row with the given primary key, one value per key
	// column, or nil when there is none.
	Get(ctx context.Context, s *Session, pk ...interface{}) (*T, error)

	Exists(ctx context.Context, s *Session, filter *types.Filter) (bool, error)

	Count(ctx context.Context, s *Session, filter *types.Filter) (int, error)

	List(ctx context.Context, s *Session, opts ListOptions) ([]*T, error)

	Page(ctx context.Context, s *Session, page *types.PageRequest) (*types.Pagination[T], error)

	// GetManyByIDs loads rows by single-column primary key in chunks.
	GetManyByIDs(ctx context.Context, s *Session, ids []interface{}, opts ...BatchOption) ([]*T, error)
}

// WriteRepository defines single-entity writes.
type WriteRepository[T any] interface {
	// Create inserts a new entity and tracks it.
	Create(ctx context.Context, s *Session, entity *T) (*T, error)

	// Save inserts, writes through, or merges depending on the entity state.
	// Callers must continue with the returned instance.
	Save(ctx context.Context, s *Session, entity *T) (*T, error)

	// UpdateEntity copies the given columns (all when none) from patch onto
	// the stored row identified by patch's primary key.
	UpdateEntity(ctx context.Context, s *Session, patch *T, fields ...string) (*T, error)

	// Delete removes the row with the given single-column key.
	Delete(ctx context.Context, s *Session, pk interface{}) (bool, error)
}

// BulkRepository defines batched writes.
type BulkRepository[T any] interface {
	BulkCreate(ctx context.Context, s *Session, entities []*T) (int, error)

	// BulkUpdateEntities writes the given columns of every entity with one
	// CASE-keyed UPDATE per chunk and returns the affected row count.
	BulkUpdateEntities(ctx context.Context, s *Session, entities []*T, fields []string, opts ...BatchOption) (int64, error)
}

// Repository combines reads, writes, and bulk writes over one entity type.
type Repository[T any] interface {
	ReadRepository[T]
	WriteRepository[T]
	BulkRepository[T]
	Model() Model[T]
	State(s *Session, entity *T) EntityState
	Dialect() schema.Dialect
}
