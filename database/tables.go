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
	"fmt"

	"github.com/uptrace/bun"
)

// CreateTables creates the tables of all registered models in priority
// order. Existing tables are left untouched.
func CreateTables(ctx context.Context, db bun.IDB, logger Logger) error {
	return CreateTablesFor(ctx, db, logger, RegisteredModelInstances()...)
}

// CreateTablesFor creates the tables of models in the given order.
func CreateTablesFor(ctx context.Context, db bun.IDB, logger Logger, models ...interface{}) error {
	if logger == nil {
		logger = NopLogger{}
	}
	ctx = WithHooksSilent(ctx)

	for _, model := range models {
		q := db.NewCreateTable().Model(model).IfNotExists()
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table for %T: %w", model, err)
		}
		logger.Debug("Table ensured", "model", fmt.Sprintf("%T", model))
	}
	logger.Info("Tables created", "count", len(models))
	return nil
}
