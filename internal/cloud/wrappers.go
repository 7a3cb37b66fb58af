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

// This file provides a quota-aware HTTP transport. The detection backend runs
// the model on the same hosts that answer catalog requests, so the client
// paces itself instead of relying on server-side throttling.
package cloud

import (
	"fmt"
	"net/http"

	"golang.org/x/time/rate"
)

// QuotaAwareTransport is an http.RoundTripper that waits on a token bucket
// before every request.
type QuotaAwareTransport struct {
	Base      http.RoundTripper
	RateLimit *rate.Limiter
}

// NewQuotaAwareTransport wraps base (http.DefaultTransport when nil). A
// non-positive requestsPerSecond disables pacing.
//
// Inputs:
//   - base: The transport doing the actual I/O.
//   - requestsPerSecond: Sustained request rate.
//   - burst: Requests allowed above the sustained rate; at least 1.
//
// Outputs:
//   - *QuotaAwareTransport: The wrapping transport.
func NewQuotaAwareTransport(base http.RoundTripper, requestsPerSecond float64, burst int) *QuotaAwareTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	if burst < 1 {
		burst = 1
	}
	return &QuotaAwareTransport{Base: base, RateLimit: rate.NewLimiter(limit, burst)}
}

// RoundTrip blocks until the limiter admits the request or the request's
// context is done.
func (q *QuotaAwareTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := q.RateLimit.Wait(req.Context()); err != nil {
		if req.Body != nil {
			_ = req.Body.Close()
		}
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	return q.Base.RoundTrip(req)
}
