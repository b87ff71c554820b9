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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.ConnectionConfig.Type)
	assert.Equal(t, 100, cfg.ConnectionConfig.MaxOpenConns)
	assert.Equal(t, time.Hour, cfg.ConnectionConfig.ConnMaxLifetime)
	assert.Equal(t, 2*time.Second, cfg.ConnectionConfig.SlowQueryTime)
	assert.Equal(t, 1000, cfg.RepositoryConfig.ChunkSize)
	assert.Equal(t, 100, cfg.RepositoryConfig.ListLimit)
	assert.False(t, cfg.SchemaConfig.CreateTablesOnStartup)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
connection:
  type: mysql
  host: db.internal
  port: 3306
  dbname: app
  slow_query_time: 500ms
repository:
  chunk_size: 250
schema:
  create_tables_on_startup: true
`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "mysql", cfg.ConnectionConfig.Type)
	assert.Equal(t, "db.internal", cfg.ConnectionConfig.Host)
	assert.Equal(t, 3306, cfg.ConnectionConfig.Port)
	assert.Equal(t, 500*time.Millisecond, cfg.ConnectionConfig.SlowQueryTime)
	assert.Equal(t, 10, cfg.ConnectionConfig.MaxIdleConns, "unset keys keep defaults")
	assert.Equal(t, 250, cfg.RepositoryConfig.ChunkSize)
	assert.Equal(t, 100, cfg.RepositoryConfig.ListLimit)
	assert.True(t, cfg.SchemaConfig.CreateTablesOnStartup)
}

func TestParseConfigRejectsInvalidValues(t *testing.T) {
	_, err := ParseConfig([]byte("connection:\n  type: oracle\n"))
	assert.ErrorContains(t, err, "unsupported database type")

	_, err = ParseConfig([]byte("repository:\n  chunk_size: -1\n"))
	assert.ErrorContains(t, err, "chunk_size")

	_, err = ParseConfig([]byte("connection: [\n"))
	assert.ErrorContains(t, err, "failed to parse config file")

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestFactoryEnvOverrides(t *testing.T) {
	t.Setenv("DB_HOST", "env-host")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("DB_CONN_MAX_LIFETIME", "90")
	t.Setenv("DB_SLOW_QUERY_TIME", "250ms")
	t.Setenv("DB_ENABLE_METRICS", "true")
	t.Setenv("DB_CHUNK_SIZE", "64")
	t.Setenv("DB_LIST_LIMIT", "not-a-number")

	f := NewDatabaseFactory()
	cc := DefaultConnectionConfig()
	cc.Type = "postgres"
	f.overrideFromEnv(cc)
	assert.Equal(t, "env-host", cc.Host)
	assert.Equal(t, 6543, cc.Port)
	assert.Equal(t, 90*time.Second, cc.ConnMaxLifetime)
	assert.Equal(t, 250*time.Millisecond, cc.SlowQueryTime)
	assert.True(t, cc.EnableMetrics)

	rc := RepositoryConfig{ChunkSize: 1000, ListLimit: 100}
	f.overrideRepositoryFromEnv(&rc)
	assert.Equal(t, 64, rc.ChunkSize)
	assert.Equal(t, 100, rc.ListLimit)
}

func TestFactoryRejectsUnknownType(t *testing.T) {
	_, err := NewDatabaseFactory().CreateFromConfig(&ConnectionConfig{Type: "oracle"})
	assert.ErrorContains(t, err, "unsupported database type")

	_, err = NewDatabaseFactory().CreateFromConfig(nil)
	assert.Error(t, err)
}
