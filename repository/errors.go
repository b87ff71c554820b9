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
	"fmt"

	"github.com/pkg/errors"
	"github.com/tomoncle/repokit/database"
)

// Error kinds returned by repository operations. They are wrapped with
// context, so compare with errors.Is.
var (
	ErrCompositeKey    = errors.New("composite primary key is not supported")
	ErrNotTransient    = errors.New("entity is not transient (new)")
	ErrNotFound        = errors.New("entity not found")
	ErrMissingKey      = errors.New("primary key value is required")
	ErrEmptyFieldSet   = errors.New("no updatable fields")
	ErrUnknownColumn   = errors.New("unknown column")
	ErrIdentityChanged = errors.New("primary key of a tracked entity was changed")
	ErrInvalidKey      = errors.New("invalid primary key value")
	ErrNilEntity       = errors.New("nil entity")
	ErrDuplicateKey    = errors.New("duplicate key")
)

// storeError wraps a driver error and tags unique violations with ErrDuplicateKey.
func storeError(err error, format string, args ...interface{}) error {
	if is, kind := database.IsSqlError(err); is && kind == database.DuplicateKeyErr {
		err = fmt.Errorf("%w: %w", ErrDuplicateKey, err)
	}
	return errors.Wrapf(err, format, args...)
}
