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
package cor_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-detection-timeline/internal/core/cor"
)

type addCommand struct {
	cor.BaseCommand
	delta int
	runs  *int
}

func newAddCommand(name string, delta int, runs *int) *addCommand {
	return &addCommand{BaseCommand: *cor.NewBaseCommand(name), delta: delta, runs: runs}
}

func (c *addCommand) IsExecutable(context cor.Context) bool {
	if !c.BaseCommand.IsExecutable(context) {
		return false
	}
	_, ok := context.Get(c.GetInputParam()).(int)
	return ok
}

func (c *addCommand) Execute(context cor.Context) {
	*c.runs++
	c.Succeed(context, context.Get(c.GetInputParam()).(int)+c.delta)
}

type failCommand struct {
	cor.BaseCommand
	err error
}

func (c *failCommand) Execute(context cor.Context) {
	c.Fail(context, c.err)
}

type cancelCommand struct {
	cor.BaseCommand
	cancel context.CancelFunc
}

func (c *cancelCommand) Execute(context cor.Context) {
	c.cancel()
	c.Succeed(context, context.Get(c.GetInputParam()))
}

func newContext(ctx context.Context, in any) cor.Context {
	chCtx := cor.NewBaseContext()
	chCtx.SetContext(ctx)
	chCtx.Add(cor.CtxIn, in)
	return chCtx
}

func TestChainPipesOutputToInput(t *testing.T) {
	runs := 0
	chain := cor.NewBaseChain("pipe").
		AddCommand(newAddCommand("add-one", 1, &runs)).
		AddCommand(newAddCommand("add-ten", 10, &runs))

	chCtx := newContext(context.Background(), 5)
	require.True(t, chain.IsExecutable(chCtx))
	chain.Execute(chCtx)

	require.NoError(t, chCtx.Err())
	assert.Equal(t, 16, chCtx.Get(cor.CtxIn))
	assert.Nil(t, chCtx.Get(cor.CtxOut))
	assert.Equal(t, 2, runs)
}

func TestChainStopsOnFailure(t *testing.T) {
	runs := 0
	boom := errors.New("boom")
	chain := cor.NewBaseChain("stop").
		AddCommand(&failCommand{BaseCommand: *cor.NewBaseCommand("fail"), err: boom}).
		AddCommand(newAddCommand("after", 1, &runs))

	chCtx := newContext(context.Background(), 1)
	chain.Execute(chCtx)

	assert.ErrorIs(t, chCtx.Err(), boom)
	assert.Contains(t, chCtx.GetErrors(), "fail")
	assert.Zero(t, runs)
}

func TestChainContinueOnFailure(t *testing.T) {
	runs := 0
	boom := errors.New("boom")
	chain := cor.NewBaseChain("continue").
		AddCommand(newAddCommand("first", 1, &runs)).
		AddCommand(&failCommand{BaseCommand: *cor.NewBaseCommand("fail"), err: boom}).
		ContinueOnFailure(true)

	chCtx := newContext(context.Background(), 1)
	chain.Execute(chCtx)

	assert.ErrorIs(t, chCtx.Err(), boom)
	assert.Equal(t, 1, runs)
}

func TestChainNotExecutableCommand(t *testing.T) {
	runs := 0
	chain := cor.NewBaseChain("types").AddCommand(newAddCommand("add", 1, &runs))

	chCtx := newContext(context.Background(), "not an int")
	chain.Execute(chCtx)

	require.Error(t, chCtx.Err())
	assert.Contains(t, chCtx.Err().Error(), "command add is not executable")
	assert.Zero(t, runs)
}

func TestChainStopsWhenCancelled(t *testing.T) {
	runs := 0
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	chain := cor.NewBaseChain("cancel").
		AddCommand(&cancelCommand{BaseCommand: *cor.NewBaseCommand("cancel"), cancel: cancel}).
		AddCommand(newAddCommand("after", 1, &runs))

	chCtx := newContext(ctx, 1)
	chain.Execute(chCtx)

	assert.ErrorIs(t, chCtx.Err(), context.Canceled)
	assert.Zero(t, runs)
	assert.Equal(t, ctx, chCtx.GetContext())
}

func TestContextErrIsStable(t *testing.T) {
	chCtx := cor.NewBaseContext()
	assert.NoError(t, chCtx.Err())
	assert.False(t, chCtx.HasErrors())

	chCtx.AddError("b", errors.New("second"))
	chCtx.AddError("a", errors.New("first"))
	assert.True(t, chCtx.HasErrors())
	assert.Equal(t, "first\nsecond", chCtx.Err().Error())
}

func TestContextCloseRemovesTempFiles(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "download.tmp")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	chCtx := cor.NewBaseContext()
	chCtx.AddTempFile(file)
	chCtx.AddTempFile(filepath.Join(dir, "missing.tmp"))
	chCtx.Close()

	_, err := os.Stat(file)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Empty(t, chCtx.GetTempFiles())
}
