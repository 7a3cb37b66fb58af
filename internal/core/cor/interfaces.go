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

// Package cor (Chain of Responsibility) provides the building blocks used to
// express multi-step operations, such as a catalog refresh or a media archive,
// as a sequence of small traced commands sharing one Context.
package cor

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// CtxIn and CtxOut are the keys a BaseChain uses to pipe the output of one
// command into the input of the next.
const (
	CtxIn  = "__IN__"
	CtxOut = "__OUT__"
)

// Context is the property bag shared by all commands of one execution.
type Context interface {
	// SetContext sets the Go context carrying cancellation and the active span.
	SetContext(context context.Context)
	GetContext() context.Context

	// Add stores a value under key and returns the Context for chaining.
	Add(key string, value any) Context
	Get(key string) any
	Remove(key string)

	// AddError records a failure, keyed by the name of the failing command.
	AddError(key string, err error)
	GetErrors() map[string]error
	HasErrors() bool
	// Err joins all recorded errors, or returns nil.
	Err() error

	// AddTempFile registers a local file to be removed by Close.
	AddTempFile(file string)
	GetTempFiles() []string

	// Close releases everything registered on the context. Callers should
	// defer it right after creating the context.
	Close()
}

// Executable is anything with a body that runs against a Context.
type Executable interface {
	Execute(context Context)
}

// Command is one unit of work inside a chain.
type Command interface {
	Executable

	GetName() string

	// GetInputParam and GetOutputParam name the context keys the command reads
	// from and writes to.
	GetInputParam() string
	GetOutputParam() string

	// IsExecutable is checked by the chain before Execute is called.
	IsExecutable(context Context) bool

	GetTracer() trace.Tracer
	GetMeter() metric.Meter
	GetSuccessCounter() metric.Int64Counter
	GetErrorCounter() metric.Int64Counter
}

// Chain is a Command made of other commands, run in order.
type Chain interface {
	Command

	// ContinueOnFailure controls whether the chain keeps running after a
	// command records an error.
	ContinueOnFailure(bool) Chain
	AddCommand(command Command) Chain
}
