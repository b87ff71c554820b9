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

// chunkSlice splits items into consecutive chunks of at most size elements.
// The chunks share the backing array of items.
func chunkSlice[E any](items []E, size int) [][]E {
	if size < 1 {
		size = DefaultChunkSize
	}
	chunks := make([][]E, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunks = append(chunks, items[start:end:end])
	}
	return chunks
}

// dedupe drops repeated values and keeps the first occurrence order.
func dedupe[K comparable](items []K) []K {
	seen := make(map[K]struct{}, len(items))
	out := make([]K, 0, len(items))
	for _, it := range items {
		if _, ok := seen[it]; ok {
			continue
		}
		seen[it] = struct{}{}
		out = append(out, it)
	}
	return out
}

// reorder emits rows in the order of keys, skipping keys without a row.
// A key listed twice yields its row twice.
func reorder[T any](keys []interface{}, rows []*T, keyOf func(*T) interface{}) []*T {
	byKey := make(map[interface{}]*T, len(rows))
	for _, r := range rows {
		byKey[keyOf(r)] = r
	}
	out := make([]*T, 0, len(keys))
	for _, k := range keys {
		if r, ok := byKey[k]; ok {
			out = append(out, r)
		}
	}
	return out
}
