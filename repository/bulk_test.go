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
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBulkCreate(t *testing.T) {
	f := newFixture(t)
	repo := NewRepository[article](f.db)
	s := f.session()

	items := newArticles(100)
	n, err := repo.BulkCreate(f.ctx, s, items)
	require.NoError(t, err)
	assert.Equal(t, 100, n)
	assert.Equal(t, 1, f.log.count("INSERT"))

	seen := make(map[int64]struct{}, len(items))
	for _, a := range items {
		require.NotZero(t, a.ID)
		seen[a.ID] = struct{}{}
		assert.Equal(t, StateTracked, repo.State(s, a))
	}
	assert.Len(t, seen, 100)

	count, err := repo.Count(f.ctx, s, nil)
	require.NoError(t, err)
	assert.Equal(t, 100, count)
}

func TestBulkCreateRequiresNewEntities(t *testing.T) {
	f := newFixture(t)
	repo := NewRepository[article](f.db)
	s := f.session()

	items := newArticles(3)
	items[2].ID = 77
	n, err := repo.BulkCreate(f.ctx, s, items)
	assert.True(t, errors.Is(err, ErrNotTransient))
	assert.Zero(t, n)
	assert.Zero(t, f.log.total())

	n, err = repo.BulkCreate(f.ctx, s, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestBulkUpdateEntitiesChunks(t *testing.T) {
	f := newFixture(t)
	repo := NewRepository[article](f.db)

	items := newArticles(5)
	_, err := repo.BulkCreate(f.ctx, f.session(), items)
	require.NoError(t, err)

	for i, a := range items {
		a.Title = strings.Repeat("t", i+1)
		a.Views = 10 * (i + 1)
		a.Body = "not written"
	}
	f.log.reset()

	n, err := repo.BulkUpdateEntities(f.ctx, f.session(), items, []string{"title", "views"}, WithChunkSize(2))
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
	assert.Equal(t, 3, f.log.total())
	assert.Equal(t, 3, f.log.count("UPDATE"))

	query := f.log.last("UPDATE")
	assert.Contains(t, query, "CASE WHEN")
	assert.Contains(t, query, `ELSE "title" END`)
	assert.Contains(t, query, `ELSE "views" END`)
	assert.NotContains(t, query, `"body"`)

	for _, a := range items {
		stored := f.stored(t, a.ID)
		assert.Equal(t, a.Title, stored.Title)
		assert.Equal(t, a.Views, stored.Views)
		assert.Equal(t, "body", stored.Body)
	}
}

func TestBulkUpdateEntitiesRefreshesTrackedSnapshots(t *testing.T) {
	f := newFixture(t)
	repo := NewRepository[article](f.db)
	s := f.session()

	items := newArticles(2)
	_, err := repo.BulkCreate(f.ctx, s, items)
	require.NoError(t, err)

	items[0].Title = "bulk"
	_, err = repo.BulkUpdateEntities(f.ctx, s, items, []string{"title"})
	require.NoError(t, err)

	f.log.reset()
	_, err = repo.Save(f.ctx, s, items[0])
	require.NoError(t, err)
	assert.Zero(t, f.log.total(), "bulk-written columns are not written again")
}

func TestBulkUpdateEntitiesValidation(t *testing.T) {
	f := newFixture(t)
	repo := NewRepository[article](f.db)
	s := f.session()

	items := newArticles(4)
	_, err := repo.BulkCreate(f.ctx, s, items)
	require.NoError(t, err)
	f.log.reset()

	n, err := repo.BulkUpdateEntities(f.ctx, s, items, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = repo.BulkUpdateEntities(f.ctx, s, nil, []string{"title"})
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = repo.BulkUpdateEntities(f.ctx, s, items, []string{"id"})
	assert.True(t, errors.Is(err, ErrEmptyFieldSet))

	_, err = repo.BulkUpdateEntities(f.ctx, s, items, []string{"nope"})
	assert.True(t, errors.Is(err, ErrUnknownColumn))
	assert.Zero(t, f.log.total())

	withHole := []*article{items[0], items[1], {Title: "no key"}, items[3]}
	n, err = repo.BulkUpdateEntities(f.ctx, f.session(), withHole, []string{"title"}, WithChunkSize(2))
	assert.True(t, errors.Is(err, ErrMissingKey))
	assert.Equal(t, int64(2), n, "first chunk was written")
	assert.Equal(t, 1, f.log.count("UPDATE"))
}

func TestBulkUpdateEntitiesRejectsCompositeKey(t *testing.T) {
	f := newFixture(t)
	repo := NewRepository[membership](f.db)

	_, err := repo.BulkUpdateEntities(f.ctx, f.session(), []*membership{{OrgID: 1, UserID: 1}}, []string{"role"})
	assert.True(t, errors.Is(err, ErrCompositeKey))

	_, err = repo.BulkUpdateEntities(f.ctx, f.session(), nil, nil)
	assert.True(t, errors.Is(err, ErrCompositeKey), "composite check precedes empty input")
	assert.Zero(t, f.log.total())
}

func TestBulkUpdateEntitiesSyncsTrackedInstance(t *testing.T) {
	f := newFixture(t)
	repo := NewRepository[article](f.db)
	s := f.session()

	a, err := repo.Create(f.ctx, s, &article{Slug: "sync", Title: "a"})
	require.NoError(t, err)

	_, err = repo.BulkUpdateEntities(f.ctx, s, []*article{{ID: a.ID, Slug: "sync", Title: "b"}}, []string{"title"})
	require.NoError(t, err)
	assert.Equal(t, "b", a.Title, "tracked instance follows the bulk write")

	got, err := repo.UpdateEntity(f.ctx, s, &article{ID: a.ID, Title: "a"}, "title")
	require.NoError(t, err)
	assert.Same(t, a, got)
	assert.Equal(t, "a", f.stored(t, a.ID).Title)

	_, err = repo.BulkUpdateEntities(f.ctx, s, []*article{{ID: a.ID, Slug: "sync", Title: "c"}}, []string{"title"})
	require.NoError(t, err)

	saved, err := repo.Save(f.ctx, s, &article{ID: a.ID, Slug: "sync", Title: "a"})
	require.NoError(t, err)
	assert.Equal(t, "a", saved.Title)
	assert.Equal(t, "a", f.stored(t, a.ID).Title)
}
