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
	"reflect"

	"github.com/uptrace/bun/schema"
)

// CaseExpr is a searched CASE keyed on one column:
//
//	CASE WHEN key = m1 THEN v1 WHEN key = m2 THEN v2 ... ELSE fallback END
//
// Fallback names a column, so rows matched by no branch keep their stored value.
type CaseExpr struct {
	Key      string
	Branches []CaseBranch
	Fallback string
}

// CaseBranch selects Then for rows whose key equals Match. Either value may
// be a schema.QueryAppender.
type CaseBranch struct {
	Match interface{}
	Then  interface{}
}

var _ schema.QueryAppender = (*CaseExpr)(nil)

// NewCaseExpr starts an expression over key that falls back to column.
func NewCaseExpr(key, column string) *CaseExpr {
	return &CaseExpr{Key: key, Fallback: column}
}

// When appends a branch.
func (c *CaseExpr) When(match, then interface{}) *CaseExpr {
	c.Branches = append(c.Branches, CaseBranch{Match: match, Then: then})
	return c
}

// AppendQuery renders the expression. Without branches it renders the
// fallback column alone.
func (c *CaseExpr) AppendQuery(fmter schema.Formatter, b []byte) ([]byte, error) {
	if len(c.Branches) == 0 {
		return fmter.AppendIdent(b, c.Fallback), nil
	}
	b = append(b, "CASE"...)
	for _, br := range c.Branches {
		b = append(b, " WHEN "...)
		b = fmter.AppendIdent(b, c.Key)
		b = append(b, " = "...)
		b = fmter.AppendQuery(b, "?", br.Match)
		b = append(b, " THEN "...)
		b = fmter.AppendQuery(b, "?", br.Then)
	}
	b = append(b, " ELSE "...)
	b = fmter.AppendIdent(b, c.Fallback)
	b = append(b, " END"...)
	return b, nil
}

// fieldValue renders a struct field with the field's own appender, so
// nullzero and custom types are written the way an INSERT would write them.
type fieldValue struct {
	field *schema.Field
	strct reflect.Value
}

var _ schema.QueryAppender = fieldValue{}

func (v fieldValue) AppendQuery(fmter schema.Formatter, b []byte) ([]byte, error) {
	return v.field.AppendValue(fmter, b, v.strct), nil
}
