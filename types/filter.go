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

package types

import "strings"

// Filter is an ordered set of column equality conditions. The zero value and
// nil both match every row.
type Filter struct {
	columns []string
	values  map[string]interface{}
}

// NewFilter returns an empty filter.
func NewFilter() *Filter {
	return &Filter{values: make(map[string]interface{})}
}

// Eq requires column to equal value. A nil value matches NULL. Setting the
// same column twice keeps its first position and replaces the value.
func (f *Filter) Eq(column string, value interface{}) *Filter {
	if f.values == nil {
		f.values = make(map[string]interface{})
	}
	if _, ok := f.values[column]; !ok {
		f.columns = append(f.columns, column)
	}
	f.values[column] = value
	return f
}

// Len returns the number of conditions.
func (f *Filter) Len() int {
	if f == nil {
		return 0
	}
	return len(f.columns)
}

// IsEmpty reports whether the filter matches all rows.
func (f *Filter) IsEmpty() bool { return f.Len() == 0 }

// Columns returns the filtered columns in insertion order.
func (f *Filter) Columns() []string {
	if f == nil {
		return nil
	}
	out := make([]string, len(f.columns))
	copy(out, f.columns)
	return out
}

// Value returns the required value for column.
func (f *Filter) Value(column string) (interface{}, bool) {
	if f == nil {
		return nil, false
	}
	v, ok := f.values[column]
	return v, ok
}

// Each calls fn for every condition in insertion order and stops at the first error.
func (f *Filter) Each(fn func(column string, value interface{}) error) error {
	if f == nil {
		return nil
	}
	for _, c := range f.columns {
		if err := fn(c, f.values[c]); err != nil {
			return err
		}
	}
	return nil
}

// Direction is the sort direction of an order term.
type Direction int

const (
	Asc Direction = iota
	Desc
)

func (d Direction) String() string {
	if d == Desc {
		return "DESC"
	}
	return "ASC"
}

// Order is a single (column, direction) term.
type Order struct {
	Column    string
	Direction Direction
}

// OrderSpec is an ordered list of order terms.
type OrderSpec []Order

// OrderBy starts an OrderSpec with an ascending term.
func OrderBy(column string) OrderSpec {
	return OrderSpec{{Column: column, Direction: Asc}}
}

// OrderByDesc starts an OrderSpec with a descending term.
func OrderByDesc(column string) OrderSpec {
	return OrderSpec{{Column: column, Direction: Desc}}
}

// Then appends an ascending term.
func (o OrderSpec) Then(column string) OrderSpec {
	return append(o, Order{Column: column, Direction: Asc})
}

// ThenDesc appends a descending term.
func (o OrderSpec) ThenDesc(column string) OrderSpec {
	return append(o, Order{Column: column, Direction: Desc})
}

// ParseOrderSpec parses terms like "id ASC" or "created_at desc". A term
// without a direction sorts ascending.
func ParseOrderSpec(terms ...string) OrderSpec {
	spec := make(OrderSpec, 0, len(terms))
	for _, term := range terms {
		parts := strings.Fields(term)
		if len(parts) == 0 {
			continue
		}
		o := Order{Column: parts[0]}
		if len(parts) > 1 && strings.EqualFold(parts[1], "desc") {
			o.Direction = Desc
		}
		spec = append(spec, o)
	}
	return spec
}
