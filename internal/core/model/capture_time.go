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

package model

import (
	"regexp"
	"strconv"
	"time"
)

// CaptureTimeLayout is the display layout of a parsed capture timestamp.
const CaptureTimeLayout = "02.01.2006, 15:04:05"

// captureToken matches YYYYMMDD_HHMMSS bounded by an underscore, the start or
// end of the name, or the extension dot.
var captureToken = regexp.MustCompile(`(?:^|_)(\d{4})(\d{2})(\d{2})_(\d{2})(\d{2})(\d{2})(?:[_.]|$)`)

// ParseCaptureTime extracts the first valid capture time embedded in a
// filename such as "user_20230425_153045_clip.mp4". Tokens whose digits are
// outside the calendar or clock range are skipped.
func ParseCaptureTime(filename string) (time.Time, bool) {
	for _, m := range captureToken.FindAllStringSubmatch(filename, -1) {
		var parts [6]int
		for i := range parts {
			parts[i], _ = strconv.Atoi(m[i+1])
		}
		year, month, day, hour, minute, second := parts[0], parts[1], parts[2], parts[3], parts[4], parts[5]
		if month < 1 || month > 12 || hour > 23 || minute > 59 || second > 59 {
			continue
		}
		t := time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC)
		// time.Date normalizes overflow, e.g. 31 April becomes 1 May.
		if t.Day() != day || int(t.Month()) != month {
			continue
		}
		return t, true
	}
	return time.Time{}, false
}

// ParseCaptureTimestamp returns the capture time formatted as
// "DD.MM.YYYY, HH:MM:SS", or false when the filename carries none.
func ParseCaptureTimestamp(filename string) (string, bool) {
	t, ok := ParseCaptureTime(filename)
	if !ok {
		return "", false
	}
	return t.Format(CaptureTimeLayout), true
}
