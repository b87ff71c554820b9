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
	"github.com/tomoncle/repokit/database"
	"github.com/tomoncle/repokit/types"
)

const (
	// DefaultChunkSize bounds the ids or entities sent in one statement.
	DefaultChunkSize = 1000
	// DefaultListLimit is the row limit of List when none is given.
	DefaultListLimit = 100
)

// Option configures a repository.
type Option func(*options)

type options struct {
	chunkSize        int
	listLimit        int
	orderByValueList *bool
	logger           database.Logger
}

// WithDefaultChunkSize sets the chunk size used when a call does not pass one.
func WithDefaultChunkSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.chunkSize = n
		}
	}
}

// WithDefaultListLimit sets the List limit used when a call does not pass one.
func WithDefaultListLimit(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.listLimit = n
		}
	}
}

// WithOrderByValueList overrides whether the store can order rows by an
// explicit value list (ORDER BY FIELD). By default only MySQL can.
func WithOrderByValueList(enabled bool) Option {
	return func(o *options) { o.orderByValueList = &enabled }
}

// WithLogger sets the logger. The database package logger is used otherwise.
func WithLogger(logger database.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// BatchOption configures a single chunked call.
type BatchOption func(*batchOptions)

type batchOptions struct {
	keepOrder bool
	chunkSize int
	dedupe    bool
}

// KeepOrder returns rows in the order of the requested ids.
func KeepOrder() BatchOption {
	return func(o *batchOptions) { o.keepOrder = true }
}

// WithChunkSize bounds the ids or entities per statement. Values below 1
// leave the repository default in place.
func WithChunkSize(n int) BatchOption {
	return func(o *batchOptions) {
		if n > 0 {
			o.chunkSize = n
		}
	}
}

// WithoutDedupe queries duplicate ids as given.
func WithoutDedupe() BatchOption {
	return func(o *batchOptions) { o.dedupe = false }
}

// ListOptions selects rows for List. A zero Limit means DefaultListLimit and
// a negative Limit means no limit.
type ListOptions struct {
	Where   *types.Filter
	OrderBy types.OrderSpec
	Limit   int
	Offset  int
}
