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
	"net/http"

	"github.com/gin-gonic/gin"
)

type openRequest struct {
	Filename string `json:"filename" binding:"required"`
}

type selectRequest struct {
	Index *int `json:"index" binding:"required"`
}

type seekedRequest struct {
	ID string `json:"id"`
}

type timeRequest struct {
	Seconds *float64 `json:"seconds" binding:"required"`
}

type playerRequest struct {
	Mounted bool    `json:"mounted"`
	FPS     float64 `json:"fps"`
}

// TimelineRouter registers the review session routes. Every mutating route
// answers with the session snapshot, so the browser can render the pending
// seek without a second request.
func TimelineRouter(r *gin.RouterGroup, s *Server) {
	tl := r.Group("/timeline")
	{
		tl.GET("", func(c *gin.Context) {
			c.JSON(http.StatusOK, s.Review.Snapshot())
		})

		tl.POST("/open", func(c *gin.Context) {
			var req openRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				badRequest(c, err)
				return
			}
			if _, err := s.Review.Open(c.Request.Context(), req.Filename); err != nil {
				abortWithError(c, err)
				return
			}
			c.JSON(http.StatusOK, s.Review.Snapshot())
		})

		tl.POST("/close", func(c *gin.Context) {
			s.Review.Close()
			c.JSON(http.StatusOK, s.Review.Snapshot())
		})

		tl.POST("/select", func(c *gin.Context) {
			var req selectRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				badRequest(c, err)
				return
			}
			if err := s.Review.Select(*req.Index); err != nil {
				abortWithError(c, err)
				return
			}
			c.JSON(http.StatusOK, s.Review.Snapshot())
		})

		tl.POST("/seeked", func(c *gin.Context) {
			var req seekedRequest
			// The body is optional.
			_ = c.ShouldBindJSON(&req)
			if err := s.Review.Seeked(req.ID); err != nil {
				abortWithError(c, err)
				return
			}
			c.JSON(http.StatusOK, s.Review.Snapshot())
		})

		tl.POST("/time", func(c *gin.Context) {
			var req timeRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				badRequest(c, err)
				return
			}
			s.Review.TimeUpdate(*req.Seconds)
			c.JSON(http.StatusOK, s.Review.Snapshot())
		})

		tl.POST("/player", func(c *gin.Context) {
			var req playerRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				badRequest(c, err)
				return
			}
			s.Review.SetPlayer(req.Mounted, req.FPS)
			c.JSON(http.StatusOK, s.Review.Snapshot())
		})
	}
}
