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
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/repokit/database"
	"github.com/tomoncle/repokit/repository"
	"github.com/tomoncle/repokit/types"
	"github.com/uptrace/bun"
)

type testConfig struct {
	Database struct {
		Type   string
		DBName string
	}
	ChunkSize int
}

func (c *testConfig) ConfigLoader() *database.Config {
	cfg, err := database.NewConfig()
	if err != nil {
		panic(err)
	}
	cfg.ConnectionConfig.Type = c.Database.Type
	cfg.ConnectionConfig.DBName = c.Database.DBName
	cfg.ConnectionConfig.HealthCheckInterval = 0
	cfg.RepositoryConfig.ChunkSize = c.ChunkSize
	cfg.SchemaConfig.CreateTablesOnStartup = true
	return cfg
}

var _ database.AbstractDatabaseConfigProvider = (*testConfig)(nil)

type SystemConfig struct {
	bun.BaseModel `bun:"table:system_config,alias:sc"`

	ID          int64     `bun:"id,pk,autoincrement" json:"id"`
	ConfigKey   string    `bun:"config_key,notnull,unique" json:"config_key"`
	ConfigValue string    `bun:"config_value" json:"config_value"`
	Description string    `bun:"description" json:"description"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

func init() {
	database.RegisterModel[SystemConfig](1)
}

func setupService(t *testing.T) (context.Context, Service[SystemConfig]) {
	t.Helper()
	cfg := &testConfig{ChunkSize: 2}
	cfg.Database.Type = "sqlite"
	cfg.Database.DBName = "file:service_test?mode=memory&cache=shared"

	_, err := database.InitDB(cfg.ConfigLoader())
	require.NoError(t, err, "init database")
	t.Cleanup(func() { _ = database.CloseDB() })
	return context.Background(), NewService[SystemConfig]()
}

func TestServiceCRUD(t *testing.T) {
	ctx, svc := setupService(t)

	created, err := svc.Create(ctx, &SystemConfig{ConfigKey: "site.name", ConfigValue: "repokit"})
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "repokit", got.ConfigValue)

	got.ConfigValue = "repokit"
	merged, err := svc.Save(ctx, got)
	require.NoError(t, err)
	assert.Equal(t, "repokit", merged.ConfigValue)

	patched, err := svc.UpdateEntity(ctx, &SystemConfig{ID: created.ID, Description: "display name"}, "description")
	require.NoError(t, err)
	assert.Equal(t, "repokit", patched.ConfigValue)
	assert.Equal(t, "display name", patched.Description)

	exists, err := svc.Exists(ctx, types.NewFilter().Eq("config_key", "site.name"))
	require.NoError(t, err)
	assert.True(t, exists)

	removed, err := svc.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = svc.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestServiceBulk(t *testing.T) {
	ctx, svc := setupService(t)

	items := []*SystemConfig{
		{ConfigKey: "a", ConfigValue: "1"},
		{ConfigKey: "b", ConfigValue: "2"},
		{ConfigKey: "c", ConfigValue: "3"},
	}
	n, err := svc.BulkCreate(ctx, items)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	for _, it := range items {
		it.ConfigValue += "0"
	}
	affected, err := svc.BulkUpdateEntities(ctx, items, []string{"config_value"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), affected)

	rows, err := svc.GetManyByIDs(ctx, []any{items[2].ID, items[0].ID}, repository.KeepOrder())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "30", rows[0].ConfigValue)
	assert.Equal(t, "10", rows[1].ConfigValue)

	count, err := svc.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	page, err := svc.Page(ctx, types.NewPageRequestWithOrders(1, 2, types.OrderByDesc("config_key")))
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "c", page.Items[0].ConfigKey)

	list, err := svc.List(ctx, repository.ListOptions{Where: types.NewFilter().Eq("config_key", "b")})
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestServiceUsesConfiguredChunkSize(t *testing.T) {
	_, svc := setupService(t)
	assert.Equal(t, 2, database.GetConfig().RepositoryConfig.ChunkSize)
	assert.Equal(t, "system_config", svc.Repository().Model().Table())
}

func TestInSessionRollsBackOnError(t *testing.T) {
	ctx, svc := setupService(t)
	errAbort := errors.New("abort")

	err := svc.InSession(ctx, func(ctx context.Context, s *repository.Session, repo repository.Repository[SystemConfig]) error {
		a, err := repo.Create(ctx, s, &SystemConfig{ConfigKey: "tx.a"})
		if err != nil {
			return err
		}
		if repo.State(s, a) != repository.StateTracked {
			return errors.New("created entity is not tracked")
		}
		return errAbort
	})
	assert.ErrorIs(t, err, errAbort)

	exists, err := svc.Exists(ctx, types.NewFilter().Eq("config_key", "tx.a"))
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = svc.Create(ctx, &SystemConfig{ConfigKey: "dup"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, &SystemConfig{ConfigKey: "dup"})
	assert.ErrorIs(t, err, repository.ErrDuplicateKey)
}
