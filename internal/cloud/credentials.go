// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cloud

import "sync"

// TokenSource supplies the bearer token attached to backend requests. An
// empty token means the request is sent without an Authorization header.
type TokenSource interface {
	Get() string
}

// TokenStore is the process-wide credential holder. It is set at login, read
// on every outgoing request and never refreshed by the client.
type TokenStore struct {
	mu    sync.RWMutex
	token string
}

// NewTokenStore returns a store holding initial, which may be empty.
func NewTokenStore(initial string) *TokenStore {
	return &TokenStore{token: initial}
}

func (s *TokenStore) Set(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

func (s *TokenStore) Get() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Clear forgets the token, e.g. on logout.
func (s *TokenStore) Clear() {
	s.Set("")
}
