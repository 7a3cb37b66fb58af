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
package services_test

import (
	"errors"
	"testing"

	"github.com/zeebo/assert"

	"github.com/jaycherian/gcp-go-detection-timeline/internal/core/model"
	"github.com/jaycherian/gcp-go-detection-timeline/internal/core/services"
)

func TestRemotePlayer(t *testing.T) {
	p := services.NewRemotePlayer()
	assert.That(t, !p.Available())

	err := p.SeekTo(2)
	assert.Error(t, err)
	assert.That(t, errors.Is(err, model.ErrPlayerUnavailable))
	assert.That(t, p.Pending() == nil)

	p.Mount(25)
	assert.That(t, p.Available())
	assert.Equal(t, p.FrameRate(), 25.0)

	assert.NoError(t, p.SeekTo(2))
	first := p.Pending()
	assert.That(t, first != nil)
	assert.NoError(t, p.SeekTo(4))
	second := p.Pending()
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, second.Seconds, 4.0)

	assert.That(t, !p.Acknowledge(first.ID))
	assert.That(t, p.Acknowledge(second.ID))
	assert.That(t, !p.Acknowledge(""))
}
