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

package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jaycherian/gcp-go-detection-timeline/internal/cloud"
	"github.com/jaycherian/gcp-go-detection-timeline/internal/core/model"
	"github.com/jaycherian/gcp-go-detection-timeline/internal/core/services"
	"github.com/jaycherian/gcp-go-detection-timeline/internal/core/timeline"
)

// StatusFor maps an error to the HTTP status returned to the browser. Backend
// authentication failures keep their status so the UI can ask for a login.
func StatusFor(err error) int {
	var se *cloud.StatusError
	if errors.As(err, &se) && (se.StatusCode == http.StatusUnauthorized || se.StatusCode == http.StatusForbidden) {
		return se.StatusCode
	}
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, model.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrStaleResponse),
		errors.Is(err, timeline.ErrNoVideoLoaded),
		errors.Is(err, model.ErrPlayerUnavailable):
		return http.StatusConflict
	case errors.Is(err, services.ErrArchiveDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, model.ErrNetworkFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(c.Request.Context(), "request failed", "path", c.FullPath(), "status", status, "error", err)
	} else {
		slog.DebugContext(c.Request.Context(), "request rejected", "path", c.FullPath(), "status", status, "error", err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
