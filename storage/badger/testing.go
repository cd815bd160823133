// Copyright 2026 Fixbase Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package badger

import "github.com/fixbase/fixbase/storage"

// MustMemoryStore creates an in-memory store for testing.
// Panics on failure so tests can use it in one line.
// Caller must close the store when done.
func MustMemoryStore() storage.Store {
	store, err := NewMemoryStore()
	if err != nil {
		panic(err)
	}
	return store
}
