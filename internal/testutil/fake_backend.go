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
// Package test provides helpers shared by the package test suites: the test
package test

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/jaycherian/gcp-go-detection-timeline/internal/core/model"
)

// RecordedRequest is one request seen by the FakeBackend.
type RecordedRequest struct {
	Method        string
	Path          string
	Query         string
	Authorization string
}

type failure struct {
	status    int
	remaining int // negative means forever
}

// FakeBackend is an in-memory detection backend served over HTTP. Tests seed
// it with videos, logs and media, and can make individual requests fail.
type FakeBackend struct {
	Server *httptest.Server

	mu       sync.Mutex
	users    map[string]string
	token    string
	videos   []model.VideoRecord
	logs     map[string]string
	media    map[string][]byte
	renameTo map[string]string
	failures map[string]*failure
	stalls   map[string]bool
	requests []RecordedRequest
}

// NewFakeBackend starts the server. Callers must Close it.
func NewFakeBackend() *FakeBackend {
	gin.SetMode(gin.TestMode)
	f := &FakeBackend{
		users:    make(map[string]string),
		logs:     make(map[string]string),
		media:    make(map[string][]byte),
		renameTo: make(map[string]string),
		failures: make(map[string]*failure),
		stalls:   make(map[string]bool),
	}

	r := gin.New()
	r.Use(f.record, f.inject)
	r.POST("/login", f.login)
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/videos", f.listVideos)
	r.GET("/videos/:filename/logs", f.getLogs)
	r.PUT("/videos/:filename", f.renameVideo)
	r.DELETE("/videos/:filename", f.deleteVideo)
	r.GET("/video/:filename", f.mediaURL)
	r.GET("/video/:filename/url", f.mediaURL)
	r.GET("/media/:filename", f.serveMedia)

	f.Server = httptest.NewServer(r)
	return f
}

func (f *FakeBackend) Close() {
	f.Server.Close()
}

func (f *FakeBackend) URL() string {
	return f.Server.URL
}

// AddUser registers credentials accepted by POST /login, which answers with
// token.
func (f *FakeBackend) AddUser(username, password, token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[username] = password
	f.token = token
}

// AddVideo appends a video to the listing. A non-empty log is served from
// GET /videos/{filename}/logs.
func (f *FakeBackend) AddVideo(record model.VideoRecord, log string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.videos = append(f.videos, record)
	if log != "" {
		f.logs[record.Filename] = log
	}
}

// SetMedia sets the bytes served for filename's signed URL.
func (f *FakeBackend) SetMedia(filename string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.media[filename] = data
}

// RenameTo makes a rename of filename answer with newFilename.
func (f *FakeBackend) RenameTo(filename, newFilename string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.renameTo[filename] = newFilename
}

// Fail makes requests matching "METHOD /path" answer with status. times
// limits the number of failures; a negative value fails forever.
func (f *FakeBackend) Fail(method, path string, status, times int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[method+" "+path] = &failure{status: status, remaining: times}
}

// Stall makes requests matching "METHOD /path" hang until the client gives
// up on them.
func (f *FakeBackend) Stall(method, path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stalls[method+" "+path] = true
}

// Requests returns the requests seen so far.
func (f *FakeBackend) Requests() []RecordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]RecordedRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

// Count returns how many requests matched method and path.
func (f *FakeBackend) Count(method, path string) int {
	n := 0
	for _, r := range f.Requests() {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

func (f *FakeBackend) record(c *gin.Context) {
	f.mu.Lock()
	f.requests = append(f.requests, RecordedRequest{
		Method:        c.Request.Method,
		Path:          c.Request.URL.Path,
		Query:         c.Request.URL.RawQuery,
		Authorization: c.GetHeader("Authorization"),
	})
	f.mu.Unlock()
	c.Next()
}

func (f *FakeBackend) inject(c *gin.Context) {
	f.mu.Lock()
	key := c.Request.Method + " " + c.Request.URL.Path
	fl, ok := f.failures[key]
	stall := f.stalls[key]
	status := 0
	if ok && fl.remaining != 0 {
		status = fl.status
		if fl.remaining > 0 {
			fl.remaining--
		}
	}
	f.mu.Unlock()
	if stall {
		<-c.Request.Context().Done()
		c.Abort()
		return
	}
	if status != 0 {
		c.AbortWithStatusJSON(status, gin.H{"message": http.StatusText(status)})
		return
	}
	c.Next()
}

func (f *FakeBackend) login(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	f.mu.Lock()
	password, ok := f.users[req.Username]
	token := f.token
	f.mu.Unlock()
	if !ok || password != req.Password {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "invalid credentials"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (f *FakeBackend) listVideos(c *gin.Context) {
	f.mu.Lock()
	out := make([]model.VideoRecord, len(f.videos))
	copy(out, f.videos)
	f.mu.Unlock()
	c.JSON(http.StatusOK, out)
}

func (f *FakeBackend) indexOf(filename string) int {
	for i, v := range f.videos {
		if v.Filename == filename {
			return i
		}
	}
	return -1
}

func (f *FakeBackend) getLogs(c *gin.Context) {
	filename := c.Param("filename")
	f.mu.Lock()
	log, ok := f.logs[filename]
	known := f.indexOf(filename) >= 0
	f.mu.Unlock()
	if !known {
		c.JSON(http.StatusNotFound, gin.H{"message": "video not found"})
		return
	}
	if !ok {
		log = "[]"
	}
	c.Data(http.StatusOK, "application/json", []byte(log))
}

func (f *FakeBackend) renameVideo(c *gin.Context) {
	filename := c.Param("filename")
	var req struct {
		NewName string `json:"new_name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.NewName) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "new_name is required"})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.indexOf(filename)
	if i < 0 {
		c.JSON(http.StatusNotFound, gin.H{"message": "video not found"})
		return
	}
	newFilename := filename
	if to, ok := f.renameTo[filename]; ok {
		newFilename = to
		if log, ok := f.logs[filename]; ok {
			delete(f.logs, filename)
			f.logs[to] = log
		}
	}
	f.videos[i].Filename = newFilename
	f.videos[i].OriginalName = req.NewName
	c.JSON(http.StatusOK, gin.H{"new_filename": newFilename})
}

func (f *FakeBackend) deleteVideo(c *gin.Context) {
	filename := c.Param("filename")
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.indexOf(filename)
	if i < 0 {
		c.JSON(http.StatusNotFound, gin.H{"message": "video not found"})
		return
	}
	f.videos = append(f.videos[:i], f.videos[i+1:]...)
	delete(f.logs, filename)
	c.Status(http.StatusNoContent)
}

func (f *FakeBackend) mediaURL(c *gin.Context) {
	filename := c.Param("filename")
	f.mu.Lock()
	_, ok := f.media[filename]
	f.mu.Unlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "media not found"})
		return
	}
	out := gin.H{"url": f.Server.URL + "/media/" + filename}
	if expires := c.Query("expires"); expires != "" {
		n, _ := strconv.Atoi(expires)
		out["expires_in"] = n
	}
	c.JSON(http.StatusOK, out)
}

func (f *FakeBackend) serveMedia(c *gin.Context) {
	f.mu.Lock()
	data, ok := f.media[c.Param("filename")]
	f.mu.Unlock()
	if !ok {
		c.Status(http.StatusNotFound)
		return
	}
	c.Data(http.StatusOK, "application/octet-stream", data)
}
