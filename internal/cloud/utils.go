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

// This file contains the hierarchical configuration loader.
//
// Functions:
//   - fileExists: Reports whether a path exists.
//   - LoadConfig: Reads the base configuration file, then the runtime-specific
//     override file (e.g. .env.local.toml, .env.test.toml), then applies
//     environment variable overrides.
package cloud

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

const (
	ConfigFileBaseName  = ".env"
	ConfigFileExtension = ".toml"
	ConfigSeparator     = "."
	EnvConfigFilePrefix = "GCP_CONFIG_PREFIX" // Directory holding the configuration files.
	EnvConfigRuntime    = "GCP_RUNTIME"       // Runtime name, e.g. "local", "test", "prod".
	DefaultRuntime      = "test"
	MaxRetries          = 3 // Default retry budget for idempotent backend calls.
)

func fileExists(in string) bool {
	_, err := os.Stat(in)
	return !errors.Is(err, os.ErrNotExist)
}

// LoadConfig populates baseConfig from "<prefix>.env.toml", then from
// "<prefix>.env.<runtime>.toml", then from environment variables. Missing
// files are skipped; later sources override earlier ones.
//
// Inputs:
//   - baseConfig: A pointer to the struct to populate, usually *Config.
//
// Outputs:
//   - error: A decode failure of either file or of the environment overlay.
func LoadConfig(baseConfig any) error {
	configurationFilePrefix := os.Getenv(EnvConfigFilePrefix)
	if len(configurationFilePrefix) > 0 && !strings.HasSuffix(configurationFilePrefix, string(os.PathSeparator)) {
		configurationFilePrefix = configurationFilePrefix + string(os.PathSeparator)
	}

	runtimeEnvironment := os.Getenv(EnvConfigRuntime)
	if runtimeEnvironment == "" {
		runtimeEnvironment = DefaultRuntime
	}

	baseConfigFileName := configurationFilePrefix + ConfigFileBaseName + ConfigFileExtension
	envConfigFileName := configurationFilePrefix + ConfigFileBaseName + ConfigSeparator + runtimeEnvironment + ConfigFileExtension

	for _, name := range []string{baseConfigFileName, envConfigFileName} {
		if !fileExists(name) {
			slog.Debug("configuration file not found, skipping", "file", name)
			continue
		}
		if _, err := toml.DecodeFile(name, baseConfig); err != nil {
			return fmt.Errorf("failed to decode configuration file %s: %w", name, err)
		}
		slog.Debug("loaded configuration file", "file", name, "runtime", runtimeEnvironment)
	}

	if err := env.Parse(baseConfig); err != nil {
		return fmt.Errorf("failed to apply environment overrides: %w", err)
	}
	return nil
}
