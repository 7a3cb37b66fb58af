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

// This file defines the catalog-facing video structures.
//
// Structs:
//   - VideoRecord: The wire shape of one entry of the backend's video listing.
//   - Video: The catalog's view of a video, including derived metadata.
//
// Functions:
//   - DisplayNameFromFilename: Recovers the user-facing name from a storage key.
package model

import (
	"encoding/json"
	"strings"
)

// VideoRecord maps to one element of the backend's GET /videos response.
// Logs are optional; when absent they are fetched separately.
type VideoRecord struct {
	Filename       string          `json:"filename"`
	OriginalName   string          `json:"original_name"`
	LogCount       int             `json:"log_count,omitempty"`
	Logs           json.RawMessage `json:"logs,omitempty"`
	UploadTime     string          `json:"upload_time,omitempty"`
	Status         string          `json:"status,omitempty"`
	VideoID        string          `json:"video_id,omitempty"`
	WeaponDetected bool            `json:"weapon_detected,omitempty"`
}

// HasInlineLogs reports whether the listing already carried the detection log.
func (r VideoRecord) HasInlineLogs() bool {
	trimmed := strings.TrimSpace(string(r.Logs))
	return trimmed != "" && trimmed != "null"
}

// Video is a catalog entry. Filename is the stable key used for every backend
// call; OriginalName is the user-renamable display name.
type Video struct {
	Filename       string `json:"filename"`
	OriginalName   string `json:"original_name"`
	EventCount     int    `json:"event_count"`
	CapturedAt     string `json:"captured_at,omitempty"`
	LogCount       int    `json:"log_count,omitempty"`
	UploadTime     string `json:"upload_time,omitempty"`
	Status         string `json:"status,omitempty"`
	VideoID        string `json:"video_id,omitempty"`
	WeaponDetected bool   `json:"weapon_detected,omitempty"`
}

// NewVideo builds the catalog entry for a backend record. EventCount is left
// for the caller, since it depends on the detection log.
func NewVideo(r VideoRecord) Video {
	name := r.OriginalName
	if name == "" {
		name = DisplayNameFromFilename(r.Filename)
	}
	capturedAt, _ := ParseCaptureTimestamp(r.Filename)
	return Video{
		Filename:       r.Filename,
		OriginalName:   name,
		CapturedAt:     capturedAt,
		LogCount:       r.LogCount,
		UploadTime:     r.UploadTime,
		Status:         r.Status,
		VideoID:        r.VideoID,
		WeaponDetected: r.WeaponDetected,
	}
}

// DisplayNameFromFilename strips the "<user>_<date>_<time>_" prefix the backend
// puts on storage keys. Keys without that prefix are returned unchanged.
func DisplayNameFromFilename(filename string) string {
	parts := strings.SplitN(filename, "_", 4)
	if len(parts) < 4 {
		return filename
	}
	return parts[3]
}
