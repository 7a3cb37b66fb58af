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

	"github.com/jaycherian/gcp-go-detection-timeline/internal/core/model"
	"github.com/jaycherian/gcp-go-detection-timeline/internal/core/timeline"
)

type renameRequest struct {
	NewName string `json:"new_name"`
}

type eventsResponse struct {
	Filename string        `json:"filename"`
	Frames   int           `json:"frames"`
	Labelled int           `json:"labelled_frames"`
	Events   []model.Event `json:"events"`
}

// VideoRouter registers the catalog and media routes.
func VideoRouter(r *gin.RouterGroup, s *Server) {
	videos := r.Group("/videos")
	{
		videos.GET("", func(c *gin.Context) {
			out, err := s.Catalog.LoadAll(c.Request.Context())
			if err != nil {
				abortWithError(c, err)
				return
			}
			c.JSON(http.StatusOK, out)
		})

		videos.GET("/:filename/events", func(c *gin.Context) {
			filename := c.Param("filename")
			log, err := s.Catalog.LoadLog(c.Request.Context(), filename)
			if err != nil {
				abortWithError(c, err)
				return
			}
			c.JSON(http.StatusOK, eventsResponse{
				Filename: filename,
				Frames:   log.Len(),
				Labelled: log.LabelledCount(),
				Events:   timeline.ExtractEvents(log),
			})
		})

		videos.PUT("/:filename", func(c *gin.Context) {
			var req renameRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				badRequest(c, err)
				return
			}
			if err := s.Catalog.Rename(c.Request.Context(), c.Param("filename"), req.NewName); err != nil {
				abortWithError(c, err)
				return
			}
			c.JSON(http.StatusOK, s.Catalog.Videos())
		})

		videos.DELETE("/:filename", func(c *gin.Context) {
			if err := s.Catalog.Delete(c.Request.Context(), c.Param("filename")); err != nil {
				abortWithError(c, err)
				return
			}
			c.Status(http.StatusNoContent)
		})

		videos.GET("/:filename/media", func(c *gin.Context) {
			if s.Media == nil {
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "media is not available"})
				return
			}
			body, mimeType, err := s.Media.Download(c.Request.Context(), c.Param("filename"))
			if err != nil {
				abortWithError(c, err)
				return
			}
			defer body.Close()
			c.DataFromReader(http.StatusOK, -1, mimeType, body, nil)
		})

		videos.POST("/:filename/archive", func(c *gin.Context) {
			if s.Media == nil {
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "media is not available"})
				return
			}
			object, err := s.Media.Archive(c.Request.Context(), c.Param("filename"))
			if err != nil {
				abortWithError(c, err)
				return
			}
			c.JSON(http.StatusCreated, gin.H{
				"uri":       object.URI(),
				"bucket":    object.Bucket,
				"name":      object.Name,
				"mime_type": object.MIMEType,
				"size":      object.Size,
			})
		})
	}
}
