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
package model_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-detection-timeline/internal/core/model"
)

func TestParseDetectionLog(t *testing.T) {
	log, err := model.ParseDetectionLog([]byte(`[[1,1,0],[2,0,0],[3,0,1],[4,1,1]]`))
	require.NoError(t, err)
	require.Equal(t, 4, log.Len())

	assert.Equal(t, model.Frame{Index: 1, Labels: model.Weapon}, log.At(0))
	assert.True(t, log.At(1).Labels.Empty())
	assert.Equal(t, model.Knife, log.At(2).Labels)
	assert.Equal(t, model.Weapon|model.Knife, log.At(3).Labels)
	assert.Equal(t, 3, log.LabelledCount())
}

func TestParseDetectionLogAcceptsBooleanFlags(t *testing.T) {
	log, err := model.ParseDetectionLog([]byte(`[[0,true,false],[1,false,true]]`))
	require.NoError(t, err)
	assert.Equal(t, model.Weapon, log.At(0).Labels)
	assert.Equal(t, model.Knife, log.At(1).Labels)
}

func TestParseDetectionLogEmpty(t *testing.T) {
	for _, in := range []string{"", "null", "[]", "  "} {
		log, err := model.ParseDetectionLog([]byte(in))
		require.NoError(t, err, in)
		assert.Equal(t, 0, log.Len(), in)
	}
}

func TestParseDetectionLogRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"unordered":     `[[2,1,0],[1,1,0]]`,
		"duplicate":     `[[1,1,0],[1,0,1]]`,
		"negative":      `[[-1,1,0]]`,
		"fractional":    `[[1.5,1,0]]`,
		"short record":  `[[1,1]]`,
		"string flag":   `[[1,"yes",0]]`,
		"not an array":  `{"frames":[]}`,
		"string index":  `[["1",1,0]]`,
		"four elements": `[[1,1,0,0]]`,
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := model.ParseDetectionLog([]byte(in))
			assert.ErrorIs(t, err, model.ErrValidation)
		})
	}
}

func TestDetectionLogJSON(t *testing.T) {
	log, err := model.NewDetectionLog([]model.Frame{
		{Index: 3, Labels: model.Weapon},
		{Index: 7, Labels: model.Weapon | model.Knife},
	})
	require.NoError(t, err)

	data, err := json.Marshal(log)
	require.NoError(t, err)
	assert.JSONEq(t, `[[3,1,0],[7,1,1]]`, string(data))

	var nilLog *model.DetectionLog
	data, err = json.Marshal(nilLog)
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))
}

func TestLabelSet(t *testing.T) {
	both := model.NewLabelSet(true, true)
	assert.True(t, both.Has(model.Weapon))
	assert.True(t, both.Has(model.Knife))
	assert.False(t, model.Weapon.Has(model.Knife))
	assert.False(t, model.Weapon.Has(0))
	assert.Equal(t, "weapon+knife", both.String())
	assert.Equal(t, "none", model.LabelSet(0).String())

	data, err := json.Marshal(both)
	require.NoError(t, err)
	assert.JSONEq(t, `["weapon","knife"]`, string(data))

	var decoded model.LabelSet
	require.NoError(t, json.Unmarshal([]byte(`["knife"]`), &decoded))
	assert.Equal(t, model.Knife, decoded)
	assert.ErrorIs(t, json.Unmarshal([]byte(`["axe"]`), &decoded), model.ErrValidation)
}

func TestDetectionLogFramesIsACopy(t *testing.T) {
	log, err := model.NewDetectionLog([]model.Frame{{Index: 1, Labels: model.Weapon}})
	require.NoError(t, err)

	frames := log.Frames()
	frames[0].Labels = model.Knife
	assert.Equal(t, model.Weapon, log.At(0).Labels)
}
