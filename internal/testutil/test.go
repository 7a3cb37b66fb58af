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
// configuration loader and an in-process fake of the detection backend.
package test

import (
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/jaycherian/gcp-go-detection-timeline/internal/cloud"
)

// StateManager caches the test configuration so it is loaded once per test
// binary.
type StateManager struct {
	once   sync.Once
	config *cloud.Config
}

var state = &StateManager{}

// HandleErr fails the test when err is not nil.
func HandleErr(err error, t *testing.T) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// ConfigDir returns the absolute path of the repository's configs directory.
func ConfigDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "configs")
}

// SetupOS points the configuration loader at the repository's test
// configuration.
func SetupOS() (err error) {
	err = os.Setenv(cloud.EnvConfigFilePrefix, ConfigDir())
	if err != nil {
		return err
	}
	err = os.Setenv(cloud.EnvConfigRuntime, "test")
	return err
}

// GetConfig returns the configuration loaded from configs/.env.toml and
// configs/.env.test.toml.
func GetConfig() *cloud.Config {
	state.once.Do(func() {
		if err := SetupOS(); err != nil {
			log.Fatalf("failed to setup environment for test: %v\n", err)
		}
		config := cloud.NewConfig()
		if err := cloud.LoadConfig(config); err != nil {
			log.Fatalf("failed to load test configuration: %v\n", err)
		}
		state.config = config
	})
	return state.config
}
