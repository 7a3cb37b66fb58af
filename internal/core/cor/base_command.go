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
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// MeterName is the instrumentation scope of every command counter.
const MeterName = "github.com/jaycherian/gcp-go-detection-timeline"

// BaseCommand is embedded by every concrete command. It carries the command
// name, the default CtxIn/CtxOut piping keys and the OpenTelemetry tracer and
// counters.
type BaseCommand struct {
	Name            string
	InputParamName  string // Defaults to CtxIn.
	OutputParamName string // Defaults to CtxOut.
	Tracer          trace.Tracer
	Meter           metric.Meter
	SuccessCounter  metric.Int64Counter
	ErrorCounter    metric.Int64Counter
}

// NewBaseCommand creates a command named name with "<name>.counter.success"
// and "<name>.counter.error" counters on the global meter provider.
//
// Inputs:
//   - name: The command name, used as span name and counter prefix.
//
// Outputs:
//   - *BaseCommand: The initialised command.
func NewBaseCommand(name string) *BaseCommand {
	meter := otel.Meter(MeterName)

	successCounter, err := meter.Int64Counter(fmt.Sprintf("%s.counter.success", name))
	if err != nil {
		slog.Warn("failed to create success counter", "command", name, "error", err)
	}
	errorCounter, err := meter.Int64Counter(fmt.Sprintf("%s.counter.error", name))
	if err != nil {
		slog.Warn("failed to create error counter", "command", name, "error", err)
	}

	return &BaseCommand{
		Name:           name,
		Tracer:         otel.Tracer(name),
		Meter:          meter,
		SuccessCounter: successCounter,
		ErrorCounter:   errorCounter,
	}
}

// GetName returns the command name.
func (c *BaseCommand) GetName() string {
	return c.Name
}

// IsExecutable requires a Go context and a value under the input key.
// Concrete commands usually call it first and then check the input's type.
//
// Inputs:
//   - context: The chain context about to be passed to Execute.
//
// Outputs:
//   - bool: true when Execute may run.
func (c *BaseCommand) IsExecutable(context Context) bool {
	return context != nil && context.GetContext() != nil && context.Get(c.GetInputParam()) != nil
}

// GetInputParam returns the context key the command reads, CtxIn unless
// InputParamName is set.
func (c *BaseCommand) GetInputParam() string {
	if len(c.InputParamName) == 0 {
		return CtxIn
	}
	return c.InputParamName
}

// GetOutputParam returns the context key the command writes, CtxOut unless
// OutputParamName is set.
func (c *BaseCommand) GetOutputParam() string {
	if len(c.OutputParamName) == 0 {
		return CtxOut
	}
	return c.OutputParamName
}

func (c *BaseCommand) GetTracer() trace.Tracer {
	return c.Tracer
}

func (c *BaseCommand) GetMeter() metric.Meter {
	return c.Meter
}

func (c *BaseCommand) GetSuccessCounter() metric.Int64Counter {
	return c.SuccessCounter
}

func (c *BaseCommand) GetErrorCounter() metric.Int64Counter {
	return c.ErrorCounter
}

// Succeed counts a successful execution and stores out under the output key,
// where the chain picks it up as the next command's input.
//
// Inputs:
//   - context: The chain context being executed.
//   - out: The command's result.
func (c *BaseCommand) Succeed(context Context, out any) {
	if c.SuccessCounter != nil {
		c.SuccessCounter.Add(context.GetContext(), 1)
	}
	context.Add(c.GetOutputParam(), out)
}

// Fail counts a failed execution and records err against the command name.
// Unless the chain continues on failure, no further command runs.
//
// Inputs:
//   - context: The chain context being executed.
//   - err: The failure; it should wrap a model error kind where one applies.
func (c *BaseCommand) Fail(context Context, err error) {
	if c.ErrorCounter != nil {
		c.ErrorCounter.Add(context.GetContext(), 1)
	}
	context.AddError(c.GetName(), err)
}
