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
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/repokit/database"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type article struct {
	bun.BaseModel `bun:"table:articles,alias:a"`

	ID    int64  `bun:"id,pk,autoincrement"`
	Slug  string `bun:"slug,notnull,unique"`
	Title string `bun:"title,notnull"`
	Body  string `bun:"body"`
	Views int    `bun:"views,notnull,default:0"`
}

type membership struct {
	bun.BaseModel `bun:"table:memberships,alias:m"`

	OrgID  int64  `bun:"org_id,pk"`
	UserID int64  `bun:"user_id,pk"`
	Role   string `bun:"role,notnull"`
}

type document struct {
	bun.BaseModel `bun:"table:documents,alias:d"`

	ID    uuid.UUID `bun:"id,pk,type:varchar(36)"`
	Title string    `bun:"title,notnull"`
}

var _ bun.BeforeAppendModelHook = (*document)(nil)

func (d *document) BeforeAppendModel(_ context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); ok && d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// statementLog records every statement sent to the store.
type statementLog struct {
	mu      sync.Mutex
	ops     []string
	queries []string
}

var _ bun.QueryHook = (*statementLog)(nil)

func (l *statementLog) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (l *statementLog) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ops = append(l.ops, event.Operation())
	l.queries = append(l.queries, event.Query)
}

func (l *statementLog) reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ops, l.queries = nil, nil
}

func (l *statementLog) count(op string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, o := range l.ops {
		if o == op {
			n++
		}
	}
	return n
}

func (l *statementLog) total() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.ops)
}

func (l *statementLog) last(op string) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.ops) - 1; i >= 0; i-- {
		if l.ops[i] == op {
			return l.queries[i]
		}
	}
	return ""
}

type fixture struct {
	ctx context.Context
	db  *bun.DB
	tx  bun.Tx
	log *statementLog
}

// newFixture opens a private in-memory SQLite database with the test tables
// and begins a transaction that is rolled back when the test ends.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	sqldb, err := sql.Open(sqliteshim.ShimName, "file:"+name+"?mode=memory&cache=shared")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	require.NoError(t, database.CreateTablesFor(ctx, db, database.NopLogger{},
		(*article)(nil), (*membership)(nil), (*document)(nil)))

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tx.Rollback() })

	log := &statementLog{}
	db.AddQueryHook(log)
	return &fixture{ctx: ctx, db: db, tx: tx, log: log}
}

func (f *fixture) session() *Session {
	return NewSession(f.tx)
}

// seed inserts rows directly, bypassing any session.
func (f *fixture) seed(t *testing.T, rows interface{}) {
	t.Helper()
	_, err := f.tx.NewInsert().Model(rows).Exec(f.ctx)
	require.NoError(t, err)
	f.log.reset()
}

// stored reads an article straight from the table.
func (f *fixture) stored(t *testing.T, id int64) *article {
	t.Helper()
	a := new(article)
	require.NoError(t, f.tx.NewSelect().Model(a).Where("id = ?", id).Scan(f.ctx))
	return a
}

func newArticles(n int) []*article {
	out := make([]*article, n)
	for i := range out {
		out[i] = &article{
			Slug:  fmt.Sprintf("post-%d", i),
			Title: "title",
			Body:  "body",
		}
	}
	return out
}
