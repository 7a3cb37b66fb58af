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

// Package cloud holds everything that talks to the outside world: the
// detection backend's REST API, Google Cloud Storage and Pub/Sub, and the
// configuration that describes how to reach them.
//
// This file centralizes the configuration structs. Values are read from TOML
// files (see LoadConfig) and then overlaid with environment variables named in
// the `env` tags.
//
// Structs:
//   - Application: Service identity, worker pool size and timeline defaults.
//   - Backend: Location, timeouts, rate limits and credentials of the detection API.
//   - Storage: Google Cloud Storage settings for archiving downloaded videos.
//   - Notifications: Where user-visible failure notices are delivered.
//   - Logging: Log format and level.
//   - Config: The top-level struct aggregating all of the above.
//
// Functions:
//   - NewConfig: Returns a Config populated with defaults.
package cloud

import "time"

// Application describes the service itself.
type Application struct {
	Name             string  `toml:"name"`
	GoogleProjectId  string  `toml:"google_project_id" env:"GOOGLE_CLOUD_PROJECT"`
	GoogleLocation   string  `toml:"location"`
	ThreadPoolSize   int     `toml:"thread_pool_size"`   // Concurrent detection log fetches during a catalog refresh.
	DefaultFrameRate float64 `toml:"default_frame_rate"` // Used when the player does not report one.
	ListenAddr       string  `toml:"listen_addr" env:"DETECTION_LISTEN_ADDR"`
	Telemetry        string  `toml:"telemetry" env:"DETECTION_TELEMETRY"` // "gcp" exports to Cloud Trace/Monitoring, anything else keeps telemetry in-process.
}

// Backend describes how to reach the detection backend.
type Backend struct {
	BaseURL                string  `toml:"base_url" env:"DETECTION_BACKEND_URL"`
	TimeoutSeconds         int     `toml:"timeout_seconds"`
	RequestsPerSecond      float64 `toml:"requests_per_second"`
	Burst                  int     `toml:"burst"`
	MaxRetries             int     `toml:"max_retries"`
	RetryBackoffMillis     int     `toml:"retry_backoff_millis"`
	SignedURLExpirySeconds int     `toml:"signed_url_expiry_seconds"`
	Token                  string  `toml:"token" env:"DETECTION_API_TOKEN"` // Optional pre-issued bearer token.
}

// Timeout returns the per-request timeout.
func (b Backend) Timeout() time.Duration {
	return time.Duration(b.TimeoutSeconds) * time.Second
}

// RetryBackoff returns the delay before the first retry; later retries wait
// proportionally longer.
func (b Backend) RetryBackoff() time.Duration {
	return time.Duration(b.RetryBackoffMillis) * time.Millisecond
}

// Storage configures archiving of downloaded videos to Cloud Storage. An
// empty ArchiveBucket disables archiving.
type Storage struct {
	ArchiveBucket   string `toml:"archive_bucket" env:"DETECTION_ARCHIVE_BUCKET"`
	ArchivePrefix   string `toml:"archive_prefix"`
	CredentialsFile string `toml:"credentials_file" env:"GOOGLE_APPLICATION_CREDENTIALS"`
	TempFilePrefix  string `toml:"temp_file_prefix"`
}

// Notifications configures delivery of failure notices. An empty Topic keeps
// notices in the in-process inbox only.
type Notifications struct {
	Topic     string `toml:"topic" env:"DETECTION_NOTIFICATION_TOPIC"`
	InboxSize int    `toml:"inbox_size"`
}

// Logging selects the log handler.
type Logging struct {
	Format string `toml:"format" env:"DETECTION_LOG_FORMAT"` // "json" or "text".
	Level  string `toml:"level" env:"DETECTION_LOG_LEVEL"`
}

// Config is the root of the configuration tree.
type Config struct {
	Application   Application   `toml:"application"`
	Backend       Backend       `toml:"backend"`
	Storage       Storage       `toml:"storage"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// NewConfig returns a Config with defaults that the TOML files override.
func NewConfig() *Config {
	return &Config{
		Application: Application{
			Name:             "detection-timeline",
			ThreadPoolSize:   4,
			DefaultFrameRate: 30,
			ListenAddr:       ":8080",
			Telemetry:        "none",
		},
		Backend: Backend{
			BaseURL:                "http://localhost:5000",
			TimeoutSeconds:         30,
			RequestsPerSecond:      20,
			Burst:                  10,
			MaxRetries:             MaxRetries,
			RetryBackoffMillis:     250,
			SignedURLExpirySeconds: 900,
		},
		Storage: Storage{
			ArchivePrefix:  "archive/",
			TempFilePrefix: "detection-media-",
		},
		Notifications: Notifications{
			InboxSize: 64,
		},
		Logging: Logging{
			Format: "json",
			Level:  "info",
		},
	}
}
