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

package timeline

// Player is the seek capability of a media player. Any playback component
// can serve as long as it reports seek completion through
// Controller.PlayerSeeked and playback time through Controller.PlayerTimeUpdate.
type Player interface {
	// Available reports whether the player is mounted and can accept seeks.
	Available() bool
	// SeekTo moves playback to the given offset in seconds.
	SeekTo(seconds float64) error
}

// FrameRateReporter is implemented by players that know the frame rate of the
// loaded media. A non-positive rate means unknown.
type FrameRateReporter interface {
	FrameRate() float64
}
