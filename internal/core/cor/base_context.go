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

package cor

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sort"
)

// BaseContext is the default Context. It is not safe for concurrent use; a
// chain runs its commands one at a time.
type BaseContext struct {
	data      map[string]any
	errors    map[string]error
	tempFiles []string
	context   context.Context
}

// NewBaseContext returns an empty context. The Go context must be set with
// SetContext before the first command runs.
func NewBaseContext() Context {
	return &BaseContext{
		data:      make(map[string]any),
		errors:    make(map[string]error),
		tempFiles: make([]string, 0),
	}
}

// SetContext replaces the Go context. The chain swaps it per command so that
// each command's work is traced under its own span.
func (c *BaseContext) SetContext(context context.Context) {
	c.context = context
}

func (c *BaseContext) GetContext() context.Context {
	return c.context
}

// Close removes every registered temporary file. Files that are already gone
// are ignored; other removal failures are logged, not returned.
func (c *BaseContext) Close() {
	for _, file := range c.tempFiles {
		if err := os.Remove(file); err != nil && !errors.Is(err, os.ErrNotExist) {
			slog.Warn("failed to remove temporary file", "file", file, "error", err)
		}
	}
	c.tempFiles = c.tempFiles[:0]
}

// Add stores value under key, replacing any previous value.
//
// Inputs:
//   - key: The property name, e.g. CtxIn or a command-specific key.
//   - value: Any value; a nil value is stored as nil.
//
// Outputs:
//   - Context: The context itself, so calls can be chained.
func (c *BaseContext) Add(key string, value any) Context {
	c.data[key] = value
	return c
}

// AddTempFile registers a local path for removal by Close.
func (c *BaseContext) AddTempFile(file string) {
	c.tempFiles = append(c.tempFiles, file)
}

func (c *BaseContext) GetTempFiles() []string {
	return c.tempFiles
}

// AddError records err under key, normally the failing command's name. A
// second error under the same key replaces the first.
func (c *BaseContext) AddError(key string, err error) {
	c.errors[key] = err
}

func (c *BaseContext) GetErrors() map[string]error {
	return c.errors
}

// Err joins the recorded errors in command-name order so the message is
// stable across runs.
func (c *BaseContext) Err() error {
	if len(c.errors) == 0 {
		return nil
	}
	keys := make([]string, 0, len(c.errors))
	for k := range c.errors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	errs := make([]error, 0, len(keys))
	for _, k := range keys {
		errs = append(errs, c.errors[k])
	}
	return errors.Join(errs...)
}

// Get returns the value under key, or nil.
func (c *BaseContext) Get(key string) any {
	return c.data[key]
}

func (c *BaseContext) Remove(key string) {
	delete(c.data, key)
}

func (c *BaseContext) HasErrors() bool {
	return len(c.errors) > 0
}
