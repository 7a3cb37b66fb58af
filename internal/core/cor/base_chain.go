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

// This file defines BaseChain, the default Chain.
//
// Logic Flow:
//
//  1. A span named "<chain>_execute" wraps the whole run.
//  2. Each command gets a child span. The chain stops before a command when
//     an earlier one failed (unless ContinueOnFailure is set) or when the Go
//     context has been cancelled.
//  3. After each command the value under CtxOut is moved to CtxIn, so the
//     output of one command becomes the input of the next. When the chain
//     finishes, the last output is therefore found under CtxIn.
package cor

import (
	"fmt"

	"go.opentelemetry.io/otel/codes"
)

// BaseChain runs its commands sequentially and pipes data between them. A
// BaseChain is itself a Command, so chains can be nested.
type BaseChain struct {
	BaseCommand
	continueOnFailure bool      // Keep running after a command records an error.
	commands          []Command // Run in insertion order.
}

// NewBaseChain creates an empty chain.
//
// Inputs:
//   - name: Used as the chain's span name prefix and counter prefix.
//
// Outputs:
//   - *BaseChain: A chain with no commands that stops on the first failure.
func NewBaseChain(name string) *BaseChain {
	return &BaseChain{BaseCommand: *NewBaseCommand(name)}
}

// ContinueOnFailure sets whether the chain keeps running after a command
// records an error. Cancellation of the Go context always stops the chain.
//
// Inputs:
//   - continueOnFailure: true runs every command regardless of earlier errors.
//
// Outputs:
//   - Chain: The chain itself, for fluent construction.
func (c *BaseChain) ContinueOnFailure(continueOnFailure bool) Chain {
	c.continueOnFailure = continueOnFailure
	return c
}

// AddCommand appends command to the execution sequence.
//
// Inputs:
//   - command: Any Command, including another chain.
//
// Outputs:
//   - Chain: The chain itself, for fluent construction.
func (c *BaseChain) AddCommand(command Command) Chain {
	c.commands = append(c.commands, command)
	return c
}

// IsExecutable only needs a Go context; the first command checks its input.
func (c *BaseChain) IsExecutable(context Context) bool {
	return context != nil && context.GetContext() != nil
}

// Execute runs every command in order against chCtx. A command whose
// IsExecutable reports false is recorded as an error under its own name.
// When Execute returns, the Go context of chCtx is the one it was called
// with, and the chain's success or error counter has been incremented.
//
// Inputs:
//   - chCtx: The context shared by every command of this run.
func (c *BaseChain) Execute(chCtx Context) {
	parentCtx := chCtx.GetContext()
	outerCtx, chainSpan := c.Tracer.Start(parentCtx, fmt.Sprintf("%s_execute", c.GetName()))
	defer chainSpan.End()

	for _, command := range c.commands {
		commandContext, commandSpan := c.Tracer.Start(outerCtx, command.GetName())

		if chCtx.HasErrors() && !c.continueOnFailure {
			commandSpan.SetStatus(codes.Error, "previous error on chain; skipping execution")
			commandSpan.End()
			break
		}
		if err := outerCtx.Err(); err != nil {
			chCtx.AddError(c.GetName(), fmt.Errorf("chain %s cancelled before %s: %w", c.GetName(), command.GetName(), err))
			commandSpan.SetStatus(codes.Error, "context cancelled")
			commandSpan.End()
			break
		}

		if command.IsExecutable(chCtx) {
			chCtx.SetContext(commandContext)
			command.Execute(chCtx)
			// Restore the chain's span so the next command is a sibling, not a grandchild.
			chCtx.SetContext(outerCtx)
		} else {
			chCtx.AddError(command.GetName(), fmt.Errorf("command %s is not executable", command.GetName()))
			commandSpan.SetStatus(codes.Error, fmt.Sprintf("command not executable: %s", command.GetName()))
		}

		if chCtx.HasErrors() {
			commandSpan.SetStatus(codes.Error, "error during or after command execution")
		} else {
			commandSpan.SetStatus(codes.Ok, "command completed successfully")
		}
		commandSpan.End()

		outputValue := chCtx.Get(CtxOut)
		chCtx.Remove(CtxIn)
		if outputValue != nil {
			chCtx.Add(CtxIn, outputValue)
		}
		chCtx.Remove(CtxOut)
	}

	chCtx.SetContext(parentCtx)
	if chCtx.HasErrors() {
		chainSpan.SetStatus(codes.Error, "chain failed to execute")
		if c.ErrorCounter != nil {
			c.ErrorCounter.Add(parentCtx, 1)
		}
	} else {
		chainSpan.SetStatus(codes.Ok, "chain completed successfully")
		if c.SuccessCounter != nil {
			c.SuccessCounter.Add(parentCtx, 1)
		}
	}
}
