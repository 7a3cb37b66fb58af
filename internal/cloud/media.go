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

// This file defines the structures that describe a video's media as it moves
// from the backend's signed URL, through a local temporary file, into the
// Cloud Storage archive bucket.
//
// Structs:
//   - MediaObject: The media being archived and what is known about it so far.
//   - GCSObject: A simplified reference to an object in Cloud Storage.
//
// Functions:
//   - GetMediaObjectName: Returns the context key under which the MediaObject travels.
package cloud

import "path"

// GetMediaObjectName returns the chain context key holding the *MediaObject,
// so every command of an archive run can reach it regardless of piping.
func GetMediaObjectName() string {
	return "__MEDIA__OBJ__"
}

// MediaObject accumulates what the archive commands learn about a video.
type MediaObject struct {
	Filename  string // Catalog key of the video.
	SignedURL string // Temporary URL issued by the backend.
	MIMEType  string // Sniffed from the downloaded bytes.
	Extension string // Sniffed file extension, without the dot.
	LocalPath string // Temporary file holding the download.
	Size      int64  // Bytes downloaded.
}

// GCSObject references an object in Cloud Storage.
type GCSObject struct {
	Bucket   string `json:"bucket"`
	Name     string `json:"name"`
	MIMEType string `json:"mime_type"`
	Size     int64  `json:"size"`
}

// URI renders the object as gs://bucket/name.
func (o GCSObject) URI() string {
	return "gs://" + o.Bucket + "/" + o.Name
}

// ArchiveObjectName places filename under prefix. Only the base name of
// filename is kept so catalog keys cannot escape the prefix.
func ArchiveObjectName(prefix, filename string) string {
	return prefix + path.Base("/"+filename)
}
