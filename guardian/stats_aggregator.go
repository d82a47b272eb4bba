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

import (
	"sort"
	"time"

	"athos/platform/shared/types"
)

// Severity thresholds over the risk score.
const (
	severityHighThreshold   = 80
	severityMediumThreshold = 50
)

// sessionGap splits a user's event stream into sessions: a pause longer
// than this starts a new session.
const sessionGap = 30 * time.Minute

// uncategorized is the category bucket for blocked events whose policy
// info carries no category.
const uncategorized = "uncategorized"

// SeverityBreakdown counts events by risk-score band: high above 80,
// medium above 50, low otherwise.
type SeverityBreakdown struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

// SessionStats summarizes browsing sessions reconstructed from event
// timestamps. AverageDuration averages only sessions holding two or
// more events; single-event sessions count toward SessionCount but
// carry zero duration.
type SessionStats struct {
	SessionCount    int           `json:"session_count"`
	AverageDuration time.Duration `json:"average_duration"`
}

// StatsReport is the rollup of one event window.
type StatsReport struct {
	TotalEvents   int               `json:"total_events"`
	BlockedEvents int               `json:"blocked_events"`
	ByCategory    map[string]int    `json:"by_category"`
	ByUser        map[string]int    `json:"by_user"`
	ByHour        [24]int           `json:"by_hour"`
	ByEventType   map[string]int    `json:"by_event_type"`
	Severity      SeverityBreakdown `json:"severity"`
	AverageRisk   float64           `json:"average_risk"`
	Sessions      SessionStats      `json:"sessions"`
}

// AggregateStats computes the full rollup over an event window in one
// pass plus a per-user session reconstruction. Events with a missing
// timestamp still count toward totals and category/user breakdowns but
// are excluded from the hour histogram and session analysis.
func AggregateStats(events []types.NavigationEvent) StatsReport {
	report := StatsReport{
		ByCategory:  make(map[string]int),
		ByUser:      make(map[string]int),
		ByEventType: make(map[string]int),
	}

	var riskSum int
	for _, e := range events {
		report.TotalEvents++
		if e.UserID != "" {
			report.ByUser[e.UserID]++
		}
		report.ByEventType[string(e.EventType)]++

		if e.Action == types.ActionBlocked {
			report.BlockedEvents++
			report.ByCategory[blockCategory(e)]++
		}

		score := EventRiskScore(e)
		riskSum += score
		switch {
		case score > severityHighThreshold:
			report.Severity.High++
		case score > severityMediumThreshold:
			report.Severity.Medium++
		default:
			report.Severity.Low++
		}

		if !e.Timestamp.IsZero() {
			report.ByHour[e.Timestamp.Hour()]++
		}
	}

	if report.TotalEvents > 0 {
		report.AverageRisk = float64(riskSum) / float64(report.TotalEvents)
	}
	report.Sessions = sessionStats(events)
	return report
}

// blockCategory resolves the category bucket of a blocked event from
// its stored policy info.
func blockCategory(e types.NavigationEvent) string {
	if e.PolicyInfo != nil && e.PolicyInfo.Category != "" {
		return e.PolicyInfo.Category
	}
	return uncategorized
}

// sessionStats reconstructs per-user sessions: chronological events
// where consecutive gaps stay within sessionGap belong to one session.
func sessionStats(events []types.NavigationEvent) SessionStats {
	perUser := groupByUserChronological(events)

	var stats SessionStats
	var durationSum time.Duration
	var measured int

	for _, userID := range sortedUserIDs(perUser) {
		userEvents := perUser[userID]
		start := 0
		for i := 1; i <= len(userEvents); i++ {
			if i < len(userEvents) && userEvents[i].Timestamp.Sub(userEvents[i-1].Timestamp) <= sessionGap {
				continue
			}
			stats.SessionCount++
			if i-start >= 2 {
				durationSum += userEvents[i-1].Timestamp.Sub(userEvents[start].Timestamp)
				measured++
			}
			start = i
		}
	}

	if measured > 0 {
		stats.AverageDuration = durationSum / time.Duration(measured)
	}
	return stats
}

// TopCategories returns the category counts sorted descending, capped
// at n. Ties break alphabetically so dashboards render stably.
func TopCategories(report StatsReport, n int) []CategoryCount {
	out := make([]CategoryCount, 0, len(report.ByCategory))
	for category, count := range report.ByCategory {
		out = append(out, CategoryCount{Category: category, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Category < out[j].Category
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// CategoryCount is one row of a category ranking.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}
