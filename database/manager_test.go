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

package database

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"go.uber.org/goleak"
)

type widget struct {
	bun.BaseModel `bun:"table:widgets,alias:w"`

	ID   int64  `bun:"id,pk,autoincrement"`
	Name string `bun:"name,notnull"`
}

type gadget struct {
	bun.BaseModel `bun:"table:gadgets,alias:g"`

	ID       int64 `bun:"id,pk,autoincrement"`
	WidgetID int64 `bun:"widget_id"`
}

func init() {
	RegisterModel[gadget](20)
	RegisterModel[widget](10)
	RegisterModel[widget](30)
}

func TestRegisteredModelsOrder(t *testing.T) {
	instances := RegisteredModelInstances()
	require.Len(t, instances, 2, "duplicate registrations are ignored")
	assert.IsType(t, (*widget)(nil), instances[0])
	assert.IsType(t, (*gadget)(nil), instances[1])
}

func TestManagerLifecycle(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	cfg := DefaultConnectionConfig()
	cfg.Type = "sqlite"
	cfg.DBName = "file:manager_lifecycle?mode=memory&cache=shared"
	cfg.MaxOpenConns = 1
	cfg.HealthCheckInterval = 10 * time.Millisecond
	cfg.EnableMetrics = true
	cfg.MetricsNamespace = "managertest"

	reg := prometheus.NewRegistry()
	dm := NewDatabaseManager(cfg).(*defaultDatabaseManager)
	dm.SetRegisterer(reg)
	log := &recordingLogger{}
	dm.SetLogger(log)

	ctx := context.Background()
	require.NoError(t, dm.Connect(ctx))
	require.NoError(t, dm.Connect(ctx), "connecting twice is a no-op")
	require.NoError(t, dm.Ping(ctx))
	require.NoError(t, dm.CreateTables(ctx))

	_, err := dm.GetDB().NewInsert().Model(&widget{Name: "w1"}).Exec(ctx)
	require.NoError(t, err)
	n, err := dm.GetDB().NewSelect().Model((*widget)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	status := dm.HealthCheck(ctx)
	assert.True(t, status.Healthy)
	assert.Equal(t, 1, status.MaxOpenConns)
	assert.Equal(t, 1, dm.GetStats().MaxOpenConns)

	series, err := testutil.GatherAndCount(reg, "managertest_db_queries_total")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, series, 2, "insert and select are counted separately")

	time.Sleep(30 * time.Millisecond)
	require.NoError(t, dm.Disconnect())
	assert.Nil(t, dm.GetDB())
	assert.Error(t, dm.Ping(ctx))
	assert.False(t, dm.HealthCheck(ctx).Healthy)
	assert.Equal(t, &DBStats{}, dm.GetStats())
	assert.Positive(t, log.count("info"))
}

func TestInitDB(t *testing.T) {
	cfg, err := NewConfig()
	require.NoError(t, err)
	cfg.ConnectionConfig.DBName = "file:init_db?mode=memory&cache=shared"
	cfg.ConnectionConfig.HealthCheckInterval = 0
	cfg.RepositoryConfig.ChunkSize = 5
	cfg.SchemaConfig.CreateTablesOnStartup = true

	db, err := InitDB(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = CloseDB() })

	assert.Same(t, db, GetDB())
	assert.Equal(t, 5, GetConfig().RepositoryConfig.ChunkSize)
	assert.True(t, GetHealthStatus(context.Background()).Healthy)

	exists, err := db.NewSelect().Model((*gadget)(nil)).Exists(context.Background())
	require.NoError(t, err)
	assert.False(t, exists, "table exists and is empty")

	require.NoError(t, CloseDB())
	assert.Nil(t, GetDB())
	assert.False(t, GetHealthStatus(context.Background()).Healthy)
}
