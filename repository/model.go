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
	"database/sql"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

// Model is the column-level view of an entity type. It is derived once per
// type from the Bun table metadata.
type Model[T any] interface {
	// Table returns the table name.
	Table() string
	// Columns returns every mapped column, primary keys first.
	Columns() []string
	// PrimaryKeys returns the primary-key columns in declaration order.
	PrimaryKeys() []string
	GetColumn(entity *T, column string) (interface{}, error)
	SetColumn(entity *T, column string, value interface{}) error
}

type identityKey struct {
	table string
	key   string
}

type tableModel[T any] struct {
	table   *schema.Table
	columns []string
	pks     []string
	fields  map[string]*schema.Field
}

var _ Model[struct{}] = (*tableModel[struct{}])(nil)

func newTableModel[T any](db *bun.DB) *tableModel[T] {
	typ := reflect.TypeOf((*T)(nil)).Elem()
	if typ.Kind() != reflect.Struct {
		panic(fmt.Sprintf("repository: entity type %s is not a struct", typ))
	}
	table := db.Table(typ)
	m := &tableModel[T]{
		table:  table,
		fields: make(map[string]*schema.Field, len(table.Fields)),
	}
	for _, f := range table.Fields {
		m.columns = append(m.columns, f.Name)
		m.fields[f.Name] = f
	}
	for _, f := range table.PKs {
		m.pks = append(m.pks, f.Name)
	}
	return m
}

func (m *tableModel[T]) Table() string { return m.table.Name }

func (m *tableModel[T]) Columns() []string {
	out := make([]string, len(m.columns))
	copy(out, m.columns)
	return out
}

func (m *tableModel[T]) PrimaryKeys() []string {
	out := make([]string, len(m.pks))
	copy(out, m.pks)
	return out
}

func (m *tableModel[T]) GetColumn(entity *T, column string) (interface{}, error) {
	f, err := m.field(column)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, ErrNilEntity
	}
	return m.value(entity, f), nil
}

func (m *tableModel[T]) SetColumn(entity *T, column string, value interface{}) error {
	f, err := m.field(column)
	if err != nil {
		return err
	}
	if entity == nil {
		return ErrNilEntity
	}
	fv := f.Value(m.strct(entity))
	if value == nil {
		fv.Set(reflect.Zero(fv.Type()))
		return nil
	}
	rv, ok := convertValue(reflect.ValueOf(value), fv.Type())
	if !ok {
		return errors.Errorf("repository: cannot assign %T to %s.%s (%s)", value, m.table.Name, column, fv.Type())
	}
	fv.Set(rv)
	return nil
}

func (m *tableModel[T]) field(column string) (*schema.Field, error) {
	f, ok := m.fields[column]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownColumn, "%s.%s", m.table.Name, column)
	}
	return f, nil
}

func (m *tableModel[T]) strct(entity *T) reflect.Value {
	return reflect.ValueOf(entity).Elem()
}

func (m *tableModel[T]) value(entity *T, f *schema.Field) interface{} {
	return f.Value(m.strct(entity)).Interface()
}

func (m *tableModel[T]) isZero(entity *T, f *schema.Field) bool {
	return f.Value(m.strct(entity)).IsZero()
}

// singleKey returns the only primary-key field or ErrCompositeKey.
func (m *tableModel[T]) singleKey(op string) (*schema.Field, error) {
	if len(m.table.PKs) != 1 {
		return nil, errors.Wrapf(ErrCompositeKey, "%s(): table %s has %d primary key columns", op, m.table.Name, len(m.table.PKs))
	}
	return m.table.PKs[0], nil
}

// identity returns the identity of entity and whether every key column holds
// a non-zero value.
func (m *tableModel[T]) identity(entity *T) (identityKey, []interface{}, bool) {
	vals := make([]interface{}, len(m.table.PKs))
	for i, f := range m.table.PKs {
		if m.isZero(entity, f) {
			return identityKey{}, nil, false
		}
		vals[i] = m.value(entity, f)
	}
	return m.keyFor(vals), vals, true
}

func (m *tableModel[T]) keyFor(vals []interface{}) identityKey {
	parts := make([]string, len(vals))
	for i, v := range vals {
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.Ptr && !rv.IsNil() {
			v = rv.Elem().Interface()
		}
		parts[i] = fmt.Sprintf("%v", v)
	}
	return identityKey{table: m.table.Name, key: strings.Join(parts, "\x1f")}
}

// coerce converts v to the Go type of the key field so that values supplied
// as int match int64 columns in lookups and identity keys.
func (m *tableModel[T]) coerce(f *schema.Field, v interface{}) (interface{}, error) {
	if v == nil {
		return nil, errors.Wrapf(ErrInvalidKey, "nil value for %s.%s", m.table.Name, f.Name)
	}
	typ := f.StructField.Type
	rv, ok := convertValue(reflect.ValueOf(v), typ)
	if !ok {
		rv, ok = parseNumeric(v, typ)
	}
	if !ok {
		p := reflect.New(typ)
		sc, isScanner := p.Interface().(sql.Scanner)
		if !isScanner {
			return nil, errors.Wrapf(ErrInvalidKey, "cannot use %T as %s.%s (%s)", v, m.table.Name, f.Name, typ)
		}
		if err := sc.Scan(v); err != nil {
			return nil, errors.Wrapf(ErrInvalidKey, "%s.%s: %v", m.table.Name, f.Name, err)
		}
		rv = p.Elem()
	}
	if !rv.Type().Comparable() {
		return nil, errors.Wrapf(ErrInvalidKey, "%s.%s of type %s is not comparable", m.table.Name, f.Name, rv.Type())
	}
	return rv.Interface(), nil
}

func (m *tableModel[T]) keyValues(vals []interface{}) ([]interface{}, error) {
	if len(vals) != len(m.table.PKs) {
		return nil, errors.Wrapf(ErrInvalidKey, "%s expects %d key values, got %d", m.table.Name, len(m.table.PKs), len(vals))
	}
	out := make([]interface{}, len(vals))
	for i, f := range m.table.PKs {
		v, err := m.coerce(f, vals[i])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (m *tableModel[T]) snapshot(entity *T) map[string]interface{} {
	snap := make(map[string]interface{}, len(m.table.Fields))
	for _, f := range m.table.Fields {
		snap[f.Name] = m.value(entity, f)
	}
	return snap
}

func (m *tableModel[T]) copyColumns(dst, src *T, fields []*schema.Field) {
	d, s := m.strct(dst), m.strct(src)
	for _, f := range fields {
		f.Value(d).Set(f.Value(s))
	}
}

// changed returns the fields whose value differs from the snapshot.
func (m *tableModel[T]) changed(entity *T, snap map[string]interface{}, fields []*schema.Field) []*schema.Field {
	var out []*schema.Field
	for _, f := range fields {
		old, ok := snap[f.Name]
		if !ok || !reflect.DeepEqual(old, m.value(entity, f)) {
			out = append(out, f)
		}
	}
	return out
}

// targetFields resolves the writable fields for an update. No columns means
// every data column; primary keys are always dropped.
func (m *tableModel[T]) targetFields(columns []string) ([]*schema.Field, error) {
	if len(columns) == 0 {
		return m.table.DataFields, nil
	}
	seen := make(map[string]struct{}, len(columns))
	var out []*schema.Field
	for _, c := range columns {
		f, err := m.field(c)
		if err != nil {
			return nil, err
		}
		if f.IsPK {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, f)
	}
	if len(out) == 0 {
		return nil, errors.Wrapf(ErrEmptyFieldSet, "%s: %v", m.table.Name, columns)
	}
	return out, nil
}

func fieldNames(fields []*schema.Field) []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}

// convertValue assigns or converts rv to typ. Conversions are limited to
// numeric-to-numeric and string-to-string so that an int never turns into a rune.
func convertValue(rv reflect.Value, typ reflect.Type) (reflect.Value, bool) {
	if rv.Type().AssignableTo(typ) {
		return rv, true
	}
	if typ.Kind() == reflect.Ptr {
		if inner, ok := convertValue(rv, typ.Elem()); ok {
			p := reflect.New(typ.Elem())
			p.Elem().Set(inner)
			return p, true
		}
		return rv, false
	}
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return rv, false
		}
		return convertValue(rv.Elem(), typ)
	}
	switch {
	case isNumeric(rv.Kind()) && isNumeric(typ.Kind()):
		return rv.Convert(typ), true
	case rv.Kind() == reflect.String && typ.Kind() == reflect.String:
		return rv.Convert(typ), true
	}
	return rv, false
}

// parseNumeric converts a decimal string to a numeric key type, as ids often
// arrive as strings from paths and query parameters.
func parseNumeric(v interface{}, typ reflect.Type) (reflect.Value, bool) {
	str, ok := v.(string)
	if !ok {
		return reflect.Value{}, false
	}
	str = strings.TrimSpace(str)
	out := reflect.New(typ).Elem()
	switch typ.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(str, 10, typ.Bits())
		if err != nil {
			return reflect.Value{}, false
		}
		out.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(str, 10, typ.Bits())
		if err != nil {
			return reflect.Value{}, false
		}
		out.SetUint(n)
	default:
		return reflect.Value{}, false
	}
	return out, true
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
