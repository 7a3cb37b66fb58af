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

// Package api defines the HTTP surface of the review service. Each file
// registers one route group on a gin router; NewRouter assembles them under
// /api/v1 with tracing, CORS and the Prometheus endpoint.
package api

import (
	"context"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/jaycherian/gcp-go-detection-timeline/internal/core/catalog"
	"github.com/jaycherian/gcp-go-detection-timeline/internal/core/services"
)

// Authenticator exchanges user credentials for a backend token.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (string, error)
}

// TokenSetter stores the token returned by a successful login.
type TokenSetter interface {
	Set(token string)
}

// HealthChecker probes the detection backend.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Server holds the components the handlers call into. Media, Auth, Health
// and Gatherer may be nil; their routes then answer 503 or are omitted.
type Server struct {
	Catalog  *catalog.Store
	Review   *services.ReviewService
	Media    *services.MediaService
	Inbox    *services.Inbox
	Auth     Authenticator
	Tokens   TokenSetter
	Health   HealthChecker
	Gatherer prometheus.Gatherer
}

// NewRouter builds the gin engine serving s.
//
// Inputs:
//   - s: The handler dependencies.
//   - serviceName: The name reported by the tracing middleware.
//
// Outputs:
//   - *gin.Engine: The router, ready to be passed to an http.Server.
func NewRouter(s *Server, serviceName string) *gin.Engine {
	r := gin.Default()
	r.Use(otelgin.Middleware(serviceName))
	r.Use(cors.Default())

	apiV1 := r.Group("/api/v1")
	{
		SessionRouter(apiV1, s)
		VideoRouter(apiV1, s)
		TimelineRouter(apiV1, s)
	}

	if s.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{})))
	}
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no such route"})
	})
	return r
}
