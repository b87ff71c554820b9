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
	"github.com/pkg/errors"
	"github.com/tomoncle/repokit/types"
)

// EntityState is the lifecycle state of an entity instance relative to a Session.
type EntityState int

const (
	// StateNew: no primary key assigned and not tracked anywhere.
	StateNew EntityState = iota
	// StateTracked: the instance is the one the session watches for its identity.
	StateTracked
	// StateForeign: a primary key is assigned but the session does not watch
	// this instance, e.g. it came from another transaction or was built by hand.
	StateForeign
)

var _ types.BaseEnum = StateNew

var stateNames = [...]string{"new", "tracked", "foreign"}

var stateDescs = [...]string{
	"no backing row, not tracked",
	"tracked by the active session",
	"identity assigned, not tracked by the active session",
}

func (s EntityState) IsValid() bool { return s >= StateNew && s <= StateForeign }

func (s EntityState) Number() int {
	if !s.IsValid() {
		return types.IllegalValue
	}
	return int(s)
}

func (s EntityState) Name() string {
	if !s.IsValid() {
		return types.IllegalName
	}
	return stateNames[s]
}

func (s EntityState) Desc() string {
	if !s.IsValid() {
		return types.IllegalDesc
	}
	return stateDescs[s]
}

func (s EntityState) String() string { return s.Name() }

// ParseEntityState returns the state with the given name.
func ParseEntityState(name string) (EntityState, bool) {
	return types.EnumByName(name, StateNew, StateTracked, StateForeign)
}

// classify derives the state of entity. It never caches.
func classify[T any](m *tableModel[T], s *Session, entity *T) EntityState {
	key, _, ok := m.identity(entity)
	if !ok {
		return StateNew
	}
	if owned, tracked := s.keyOf(entity); tracked && owned == key {
		return StateTracked
	}
	return StateForeign
}

// checkIdentity rejects a tracked instance whose primary key was modified
// after it became tracked.
func checkIdentity[T any](m *tableModel[T], s *Session, entity *T) error {
	owned, tracked := s.keyOf(entity)
	if !tracked {
		return nil
	}
	key, _, ok := m.identity(entity)
	if !ok || key != owned {
		return errors.Wrapf(ErrIdentityChanged, "%s: tracked as %q", m.table.Name, owned.key)
	}
	return nil
}
