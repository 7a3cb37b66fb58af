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
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// SessionRouter registers login, health and the notification inbox.
func SessionRouter(r *gin.RouterGroup, s *Server) {
	r.POST("/session/login", func(c *gin.Context) {
		if s.Auth == nil || s.Tokens == nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "login is not available"})
			return
		}
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		token, err := s.Auth.Login(c.Request.Context(), req.Username, req.Password)
		if err != nil {
			abortWithError(c, err)
			return
		}
		if token == "" {
			abortWithError(c, errors.New("backend returned an empty token"))
			return
		}
		s.Tokens.Set(token)
		c.JSON(http.StatusOK, gin.H{"authenticated": true})
	})

	r.GET("/health", func(c *gin.Context) {
		backend := "unchecked"
		if s.Health != nil {
			backend = "ok"
			if err := s.Health.Health(c.Request.Context()); err != nil {
				backend = "unavailable"
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "backend": backend})
	})

	r.GET("/notifications", func(c *gin.Context) {
		if s.Inbox == nil {
			c.JSON(http.StatusOK, []any{})
			return
		}
		c.JSON(http.StatusOK, s.Inbox.Drain())
	})
}
