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
	"github.com/uptrace/bun"
)

// Session is the transaction context repository operations run in. It wraps
// the caller's bun.IDB, normally a bun.Tx, and remembers which instances were
// written through it. The caller owns commit and rollback; after a rollback
// the session should be discarded or Reset.
//
// A Session must not be used from more than one goroutine at a time.
type Session struct {
	db      bun.IDB
	tracked map[identityKey]*trackedEntry
	owners  map[interface{}]identityKey
}

type trackedEntry struct {
	instance interface{}
	snapshot map[string]interface{}
}

// NewSession returns a session executing statements on db.
func NewSession(db bun.IDB) *Session {
	return &Session{
		db:      db,
		tracked: make(map[identityKey]*trackedEntry),
		owners:  make(map[interface{}]identityKey),
	}
}

// DB returns the underlying query executor.
func (s *Session) DB() bun.IDB { return s.db }

// Len returns the number of tracked instances.
func (s *Session) Len() int { return len(s.tracked) }

// IsTracked reports whether entity (a pointer) is tracked by the session.
func (s *Session) IsTracked(entity interface{}) bool {
	_, ok := s.owners[entity]
	return ok
}

// Detach stops tracking entity. The backing row is not touched.
func (s *Session) Detach(entity interface{}) {
	if key, ok := s.owners[entity]; ok {
		s.forget(key)
	}
}

// Reset forgets every tracked instance.
func (s *Session) Reset() {
	s.tracked = make(map[identityKey]*trackedEntry)
	s.owners = make(map[interface{}]identityKey)
}

func (s *Session) track(key identityKey, instance interface{}, snapshot map[string]interface{}) {
	if prev, ok := s.tracked[key]; ok && prev.instance != instance {
		delete(s.owners, prev.instance)
	}
	s.tracked[key] = &trackedEntry{instance: instance, snapshot: snapshot}
	s.owners[instance] = key
}

func (s *Session) lookup(key identityKey) (*trackedEntry, bool) {
	e, ok := s.tracked[key]
	return e, ok
}

func (s *Session) keyOf(instance interface{}) (identityKey, bool) {
	key, ok := s.owners[instance]
	return key, ok
}

func (s *Session) forget(key identityKey) {
	if e, ok := s.tracked[key]; ok {
		delete(s.owners, e.instance)
		delete(s.tracked, key)
	}
}
