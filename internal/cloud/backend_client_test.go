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
package cloud_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-detection-timeline/internal/cloud"
	"github.com/jaycherian/gcp-go-detection-timeline/internal/core/model"
	test "github.com/jaycherian/gcp-go-detection-timeline/internal/testutil"
)

// newClient points a client built from the test configuration at backend.
func newClient(t *testing.T, backend *test.FakeBackend, tokens cloud.TokenSource, opts ...cloud.ClientOption) *cloud.BackendClient {
	t.Helper()
	cfg := test.GetConfig().Backend
	cfg.BaseURL = backend.URL()
	client, err := cloud.NewBackendClient(cfg, tokens, opts...)
	test.HandleErr(err, t)
	return client
}

func TestNewBackendClientRejectsBadURL(t *testing.T) {
	for _, raw := range []string{"", "localhost:5000", "ftp://example.com", "http://"} {
		_, err := cloud.NewBackendClient(cloud.Backend{BaseURL: raw}, nil)
		assert.Error(t, err, raw)
	}
	client, err := cloud.NewBackendClient(cloud.Backend{BaseURL: "http://example.com/api/"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "http://example.com/api", client.BaseURL())
}

// TestBearerTokenInjection verifies that the token in the store is attached
// to every request and that clearing the store removes the header.
func TestBearerTokenInjection(t *testing.T) {
	backend := test.NewFakeBackend()
	defer backend.Close()
	backend.AddVideo(model.VideoRecord{Filename: "a.mp4"}, "")

	tokens := cloud.NewTokenStore("")
	client := newClient(t, backend, tokens)
	ctx := context.Background()

	_, err := client.ListVideos(ctx)
	require.NoError(t, err)
	tokens.Set("secret")
	_, err = client.ListVideos(ctx)
	require.NoError(t, err)
	tokens.Clear()
	_, err = client.ListVideos(ctx)
	require.NoError(t, err)

	requests := backend.Requests()
	require.Len(t, requests, 3)
	assert.Empty(t, requests[0].Authorization)
	assert.Equal(t, "Bearer secret", requests[1].Authorization)
	assert.Empty(t, requests[2].Authorization)
}

func TestLogin(t *testing.T) {
	backend := test.NewFakeBackend()
	defer backend.Close()
	backend.AddUser("analyst", "pa55", "issued-token")
	client := newClient(t, backend, nil)
	ctx := context.Background()

	token, err := client.Login(ctx, "analyst", "pa55")
	require.NoError(t, err)
	assert.Equal(t, "issued-token", token)

	_, err = client.Login(ctx, "analyst", "wrong")
	assert.ErrorIs(t, err, model.ErrNetworkFailure)
	var se *cloud.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusUnauthorized, se.StatusCode)
	assert.Equal(t, "invalid credentials", se.Message)

	_, err = client.Login(ctx, " ", "pa55")
	assert.ErrorIs(t, err, model.ErrValidation)
	assert.Equal(t, 2, backend.Count(http.MethodPost, "/login"))
}

func TestListAndLogs(t *testing.T) {
	backend := test.NewFakeBackend()
	defer backend.Close()
	backend.AddVideo(model.VideoRecord{Filename: "user_20240407_101500_clip.mp4", OriginalName: "clip.mp4"}, `[[1,1,0],[2,0,1]]`)
	backend.AddVideo(model.VideoRecord{Filename: "quiet.mp4"}, "")
	client := newClient(t, backend, nil)
	ctx := context.Background()

	videos, err := client.ListVideos(ctx)
	require.NoError(t, err)
	require.Len(t, videos, 2)
	assert.Equal(t, "clip.mp4", videos[0].OriginalName)

	log, err := client.GetLogs(ctx, "user_20240407_101500_clip.mp4")
	require.NoError(t, err)
	assert.Equal(t, 2, log.Len())

	log, err = client.GetLogs(ctx, "quiet.mp4")
	require.NoError(t, err)
	assert.Zero(t, log.Len())

	_, err = client.GetLogs(ctx, "missing.mp4")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusNotFound, model.ErrNotFound},
		{http.StatusBadRequest, model.ErrValidation},
		{http.StatusUnprocessableEntity, model.ErrValidation},
		{http.StatusUnauthorized, model.ErrNetworkFailure},
		{http.StatusForbidden, model.ErrNetworkFailure},
		{http.StatusConflict, model.ErrNetworkFailure},
		{http.StatusInternalServerError, model.ErrNetworkFailure},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			backend := test.NewFakeBackend()
			defer backend.Close()
			backend.AddVideo(model.VideoRecord{Filename: "a.mp4"}, "")
			backend.Fail(http.MethodDelete, "/videos/a.mp4", tt.status, 1)
			client := newClient(t, backend, nil)

			err := client.DeleteVideo(context.Background(), "a.mp4")
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, 1, backend.Count(http.MethodDelete, "/videos/a.mp4"))
		})
	}
}

func TestMalformedLogIsValidation(t *testing.T) {
	backend := test.NewFakeBackend()
	defer backend.Close()
	backend.AddVideo(model.VideoRecord{Filename: "bad.mp4"}, `{"frames": 3}`)
	client := newClient(t, backend, nil)

	_, err := client.GetLogs(context.Background(), "bad.mp4")
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestRetriesIdempotentRequests(t *testing.T) {
	backend := test.NewFakeBackend()
	defer backend.Close()
	backend.AddVideo(model.VideoRecord{Filename: "a.mp4"}, "")

	var mu sync.Mutex
	var statuses []int
	observer := func(method, route string, status int, _ time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		statuses = append(statuses, status)
	}
	client := newClient(t, backend, nil, cloud.WithRequestObserver(observer))

	// The test configuration allows two retries.
	backend.Fail(http.MethodGet, "/videos", http.StatusServiceUnavailable, 2)
	videos, err := client.ListVideos(context.Background())
	require.NoError(t, err)
	assert.Len(t, videos, 1)
	assert.Equal(t, 3, backend.Count(http.MethodGet, "/videos"))
	assert.Equal(t, []int{503, 503, 200}, statuses)

	backend.Fail(http.MethodGet, "/videos", http.StatusServiceUnavailable, -1)
	_, err = client.ListVideos(context.Background())
	assert.ErrorIs(t, err, model.ErrNetworkFailure)
	assert.Equal(t, 6, backend.Count(http.MethodGet, "/videos"))
}

func TestMutationsAreNotRetried(t *testing.T) {
	backend := test.NewFakeBackend()
	defer backend.Close()
	backend.AddVideo(model.VideoRecord{Filename: "a.mp4"}, "")
	backend.Fail(http.MethodPut, "/videos/a.mp4", http.StatusInternalServerError, 1)
	client := newClient(t, backend, nil)

	_, err := client.RenameVideo(context.Background(), "a.mp4", "b")
	assert.ErrorIs(t, err, model.ErrNetworkFailure)
	assert.Equal(t, 1, backend.Count(http.MethodPut, "/videos/a.mp4"))

	backend.RenameTo("a.mp4", "user_b.mp4")
	newFilename, err := client.RenameVideo(context.Background(), "a.mp4", "b")
	require.NoError(t, err)
	assert.Equal(t, "user_b.mp4", newFilename)
}

func TestNotFoundIsNotRetried(t *testing.T) {
	backend := test.NewFakeBackend()
	defer backend.Close()
	client := newClient(t, backend, nil)

	_, err := client.GetLogs(context.Background(), "gone.mp4")
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.Equal(t, 1, backend.Count(http.MethodGet, "/videos/gone.mp4/logs"))
}

func TestCancelledContext(t *testing.T) {
	backend := test.NewFakeBackend()
	defer backend.Close()
	client := newClient(t, backend, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.ListVideos(ctx)
	assert.ErrorIs(t, err, model.ErrNetworkFailure)
}

func TestContextErrorsStayVisible(t *testing.T) {
	backend := test.NewFakeBackend()
	defer backend.Close()
	backend.AddVideo(model.VideoRecord{Filename: "a.mp4"}, "")
	backend.Stall(http.MethodDelete, "/videos/a.mp4")
	backend.Stall(http.MethodGet, "/videos")
	client := newClient(t, backend, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := client.DeleteVideo(ctx, "a.mp4")
	assert.ErrorIs(t, err, model.ErrNetworkFailure)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// A request that timed out is not retried.
	ctx, cancel = context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = client.ListVideos(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, backend.Count(http.MethodGet, "/videos"))

	ctx, cancel = context.WithCancel(context.Background())
	cancel()
	_, err = client.ListVideos(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMediaURLAndOpenMedia(t *testing.T) {
	backend := test.NewFakeBackend()
	defer backend.Close()
	backend.SetMedia("clip.mp4", []byte("media-bytes"))
	tokens := cloud.NewTokenStore("secret")
	client := newClient(t, backend, tokens)
	ctx := context.Background()

	signed, err := client.MediaURL(ctx, "clip.mp4")
	require.NoError(t, err)
	assert.Equal(t, backend.URL()+"/media/clip.mp4", signed)

	signed, expires, err := client.MediaURLWithExpiry(ctx, "clip.mp4", 60)
	require.NoError(t, err)
	assert.Equal(t, 60, expires)

	body, _, err := client.OpenMedia(ctx, signed)
	require.NoError(t, err)
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	require.NoError(t, body.Close())
	assert.Equal(t, "media-bytes", string(data))

	// Signed URLs carry their own authorisation.
	requests := backend.Requests()
	assert.Empty(t, requests[len(requests)-1].Authorization)

	_, err = client.MediaURL(ctx, "missing.mp4")
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, _, err = client.OpenMedia(ctx, backend.URL()+"/media/missing.mp4")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestMediaURLUsesConfiguredExpiry(t *testing.T) {
	backend := test.NewFakeBackend()
	defer backend.Close()
	backend.SetMedia("clip.mp4", []byte("media-bytes"))

	cfg := test.GetConfig().Backend
	cfg.BaseURL = backend.URL()
	cfg.SignedURLExpirySeconds = 120
	client, err := cloud.NewBackendClient(cfg, nil)
	require.NoError(t, err)

	signed, err := client.MediaURL(context.Background(), "clip.mp4")
	require.NoError(t, err)
	assert.Equal(t, backend.URL()+"/media/clip.mp4", signed)
	requests := backend.Requests()
	require.Len(t, requests, 1)
	assert.Equal(t, "/video/clip.mp4/url", requests[0].Path)
	assert.Equal(t, "expires=120", requests[0].Query)

	cfg.SignedURLExpirySeconds = 0
	client, err = cloud.NewBackendClient(cfg, nil)
	require.NoError(t, err)
	_, err = client.MediaURL(context.Background(), "clip.mp4")
	require.NoError(t, err)
	assert.Equal(t, 1, backend.Count(http.MethodGet, "/video/clip.mp4"))
}

func TestHealth(t *testing.T) {
	backend := test.NewFakeBackend()
	defer backend.Close()
	client := newClient(t, backend, nil)
	assert.NoError(t, client.Health(context.Background()))

	backend.Fail(http.MethodGet, "/health", http.StatusBadGateway, -1)
	assert.ErrorIs(t, client.Health(context.Background()), model.ErrNetworkFailure)
}
