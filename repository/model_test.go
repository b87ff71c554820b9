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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelColumns(t *testing.T) {
	f := newFixture(t)
	m := NewRepository[article](f.db).Model()

	assert.Equal(t, "articles", m.Table())
	assert.Equal(t, []string{"id"}, m.PrimaryKeys())
	assert.Equal(t, []string{"id", "slug", "title", "body", "views"}, m.Columns())

	cm := NewRepository[membership](f.db).Model()
	assert.Equal(t, []string{"org_id", "user_id"}, cm.PrimaryKeys())
}

func TestModelGetSetColumn(t *testing.T) {
	f := newFixture(t)
	m := NewRepository[article](f.db).Model()
	a := &article{}

	require.NoError(t, m.SetColumn(a, "views", int64(12)))
	require.NoError(t, m.SetColumn(a, "title", "hello"))
	assert.Equal(t, 12, a.Views)

	v, err := m.GetColumn(a, "title")
	require.NoError(t, err)
	assert.Equal(t, "hello", v)

	require.NoError(t, m.SetColumn(a, "title", nil))
	assert.Empty(t, a.Title)

	assert.Error(t, m.SetColumn(a, "views", "many"))
	assert.True(t, errors.Is(m.SetColumn(a, "nope", 1), ErrUnknownColumn))
	_, err = m.GetColumn(nil, "title")
	assert.True(t, errors.Is(err, ErrNilEntity))
}

func TestModelCoerceKeys(t *testing.T) {
	f := newFixture(t)
	m := newTableModel[article](f.db)

	vals, err := m.keyValues([]interface{}{int32(4)})
	require.NoError(t, err)
	assert.Equal(t, []interface{}{int64(4)}, vals)

	_, err = m.keyValues([]interface{}{nil})
	assert.True(t, errors.Is(err, ErrInvalidKey))

	_, err = m.keyValues([]interface{}{1, 2})
	assert.True(t, errors.Is(err, ErrInvalidKey))

	a := m.keyFor([]interface{}{int64(4)})
	b := m.keyFor(vals)
	assert.Equal(t, a, b)
}

func TestTargetFields(t *testing.T) {
	f := newFixture(t)
	m := newTableModel[article](f.db)

	all, err := m.targetFields(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"slug", "title", "body", "views"}, fieldNames(all))

	some, err := m.targetFields([]string{"id", "title", "title", "views"})
	require.NoError(t, err)
	assert.Equal(t, []string{"title", "views"}, fieldNames(some))

	_, err = m.targetFields([]string{"id"})
	assert.True(t, errors.Is(err, ErrEmptyFieldSet))
}
