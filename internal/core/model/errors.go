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

package model

import "errors"

// Error kinds surfaced by the timeline engine. Callers wrap these with
// fmt.Errorf("...: %w") and match them with errors.Is.
var (
	// ErrNetworkFailure means a backend request was rejected, failed in transit
	// or timed out.
	ErrNetworkFailure = errors.New("network failure")
	// ErrNotFound means the referenced video no longer exists server-side.
	ErrNotFound = errors.New("not found")
	// ErrValidation means the input was rejected before reaching the backend.
	ErrValidation = errors.New("validation failure")
	// ErrPlayerUnavailable means a seek was attempted before a player was mounted.
	ErrPlayerUnavailable = errors.New("player unavailable")
	// ErrStaleResponse means a newer request superseded this one and its result
	// was discarded.
	ErrStaleResponse = errors.New("stale response")
)
