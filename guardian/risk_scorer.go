// Copyright 2025 Athos
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package guardian

import "athos/platform/shared/types"

// Risk score bounds.
const (
	MinRiskScore = 0
	MaxRiskScore = 100
)

// longSelectionThreshold is the selected-text length above which a
// clipboard event gets a risk bump.
const longSelectionThreshold = 100

// baseRiskScores is the ingestion-time score table by event type.
// Unknown event types score like plain navigation.
var baseRiskScores = map[types.EventType]int{
	types.EventNavigation: 10,
	types.EventClick:      15,
	types.EventCopy:       25,
	types.EventPaste:      25,
	types.EventCut:        25,
	types.EventDownload:   35,
	types.EventFileUpload: 35,
	types.EventPrint:      30,
}

// sensitiveExtensions are document formats whose transfer scores extra.
var sensitiveExtensions = map[string]bool{
	"doc":  true,
	"docx": true,
	"pdf":  true,
	"xls":  true,
	"xlsx": true,
}

// ScoreEvent computes the risk score for one event: base score by event
// type, +10 for a clipboard selection longer than 100 characters, +15
// for a sensitive document extension on a download or upload. The
// result is clamped to [0,100].
//
// The function is pure and total: no I/O, deterministic, and defined
// for every input including unknown event types and opaque details.
// It runs exactly once at ingestion; reporting code may call it again
// transiently for legacy rows whose score was never stored, but the
// recomputed value is never written back.
func ScoreEvent(eventType types.EventType, details types.EventDetails) int {
	score, ok := baseRiskScores[eventType]
	if !ok {
		score = baseRiskScores[types.EventNavigation]
	}

	switch eventType {
	case types.EventCopy, types.EventPaste, types.EventCut:
		if len(details.SelectedText()) > longSelectionThreshold {
			score += 10
		}
	case types.EventDownload, types.EventFileUpload:
		ext := fileExtension(NormalizeFileName(details.FileName()))
		if sensitiveExtensions[ext] {
			score += 15
		}
	}

	return clampScore(score)
}

func clampScore(score int) int {
	if score < MinRiskScore {
		return MinRiskScore
	}
	if score > MaxRiskScore {
		return MaxRiskScore
	}
	return score
}

// EventRiskScore returns the event's stored score, or recomputes it
// transiently when the row predates ingestion-time scoring.
func EventRiskScore(e types.NavigationEvent) int {
	if e.RiskScore != nil {
		return clampScore(*e.RiskScore)
	}
	return ScoreEvent(e.EventType, e.Details)
}
