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
	"fmt"
	"sort"
	"time"

	"athos/platform/shared/types"
)

// AnomalyType classifies a behavioral anomaly signal.
type AnomalyType string

const (
	// AnomalySchedule flags activity outside working hours.
	AnomalySchedule AnomalyType = "schedule_anomaly"
	// AnomalyUnusualSite flags the first visit to a domain within the
	// analysis window.
	AnomalyUnusualSite AnomalyType = "unusual_site"
	// AnomalyIrregularPattern flags a burst: more than five events from
	// one user inside a rolling ten-minute span.
	AnomalyIrregularPattern AnomalyType = "irregular_pattern"
)

// Working-hours and burst parameters.
const (
	workdayStartHour = 8
	workdayEndHour   = 19

	burstWindow    = 10 * time.Minute
	burstThreshold = 5

	// MaxAnomalyWindow caps the analysis window; older events beyond
	// the cap are ignored.
	MaxAnomalyWindow = 1000
)

// Anomaly is one flagged deviation from a user's behavioral pattern
// within the analysis window.
type Anomaly struct {
	UserID    string      `json:"user_id"`
	Type      AnomalyType `json:"type"`
	Detail    string      `json:"detail"`
	Timestamp time.Time   `json:"timestamp"`
}

// AnomalyFilter narrows the detector's output. Zero values match
// everything.
type AnomalyFilter struct {
	Type   AnomalyType
	UserID string
	From   time.Time
	To     time.Time
}

// DetectAnomalies runs all anomaly signals over an event window and
// returns the matching anomalies sorted by timestamp descending, then
// paginated. The computation is window-relative and fully deterministic
// for a fixed input and filter: results depend on where the window
// starts, not on true lifetime history.
//
// Events with a missing timestamp are skipped, never fatal.
func DetectAnomalies(events []types.NavigationEvent, filter AnomalyFilter, page Pagination) []Anomaly {
	if len(events) > MaxAnomalyWindow {
		events = events[:MaxAnomalyWindow]
	}

	perUser := groupByUserChronological(events)

	var anomalies []Anomaly
	for _, userID := range sortedUserIDs(perUser) {
		userEvents := perUser[userID]
		anomalies = append(anomalies, scheduleAnomalies(userID, userEvents)...)
		anomalies = append(anomalies, unusualSiteAnomalies(userID, userEvents)...)
		anomalies = append(anomalies, burstAnomalies(userID, userEvents)...)
	}

	anomalies = filterAnomalies(anomalies, filter)

	// Newest first; ties break on user then type so output is stable.
	sort.SliceStable(anomalies, func(i, j int) bool {
		a, b := anomalies[i], anomalies[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.After(b.Timestamp)
		}
		if a.UserID != b.UserID {
			return a.UserID < b.UserID
		}
		return a.Type < b.Type
	})

	return paginateAnomalies(anomalies, page)
}

// groupByUserChronological buckets events per user in chronological
// order, dropping records without a usable timestamp.
func groupByUserChronological(events []types.NavigationEvent) map[string][]types.NavigationEvent {
	perUser := make(map[string][]types.NavigationEvent)
	for _, e := range events {
		if e.UserID == "" || e.Timestamp.IsZero() {
			continue
		}
		perUser[e.UserID] = append(perUser[e.UserID], e)
	}
	for userID := range perUser {
		evs := perUser[userID]
		sort.SliceStable(evs, func(i, j int) bool {
			return evs[i].Timestamp.Before(evs[j].Timestamp)
		})
		perUser[userID] = evs
	}
	return perUser
}

func sortedUserIDs(perUser map[string][]types.NavigationEvent) []string {
	ids := make([]string, 0, len(perUser))
	for id := range perUser {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// scheduleAnomalies flags every event whose local hour falls outside
// the 08..19 working band.
func scheduleAnomalies(userID string, events []types.NavigationEvent) []Anomaly {
	var out []Anomaly
	for _, e := range events {
		hour := e.Timestamp.Hour()
		if hour < workdayStartHour || hour > workdayEndHour {
			out = append(out, Anomaly{
				UserID:    userID,
				Type:      AnomalySchedule,
				Detail:    fmt.Sprintf("activity on %s at %02d:00, outside working hours", NormalizeDomain(e.Domain), hour),
				Timestamp: e.Timestamp,
			})
		}
	}
	return out
}

// unusualSiteAnomalies flags the first occurrence of each domain per
// user within the window. Later occurrences of the same domain in the
// same window are not flagged: the signal is streaming and relative to
// the window's start boundary.
func unusualSiteAnomalies(userID string, events []types.NavigationEvent) []Anomaly {
	seen := make(map[string]bool)
	var out []Anomaly
	for _, e := range events {
		domain := NormalizeDomain(e.Domain)
		if domain == "" || seen[domain] {
			continue
		}
		seen[domain] = true
		out = append(out, Anomaly{
			UserID:    userID,
			Type:      AnomalyUnusualSite,
			Detail:    fmt.Sprintf("first visit to %s in analysis window", domain),
			Timestamp: e.Timestamp,
		})
	}
	return out
}

// burstAnomalies flags at most one irregular-pattern anomaly per user:
// the earliest rolling ten-minute span holding more than five events.
// Overlapping qualifying spans do not produce extra anomalies.
func burstAnomalies(userID string, events []types.NavigationEvent) []Anomaly {
	for i := range events {
		end := events[i].Timestamp.Add(burstWindow)
		count := 0
		for j := i; j < len(events); j++ {
			if events[j].Timestamp.Before(end) {
				count++
			} else {
				break
			}
		}
		if count > burstThreshold {
			return []Anomaly{{
				UserID:    userID,
				Type:      AnomalyIrregularPattern,
				Detail:    fmt.Sprintf("%d events within %s", count, burstWindow),
				Timestamp: events[i].Timestamp,
			}}
		}
	}
	return nil
}

func filterAnomalies(anomalies []Anomaly, filter AnomalyFilter) []Anomaly {
	out := anomalies[:0]
	for _, a := range anomalies {
		if filter.Type != "" && a.Type != filter.Type {
			continue
		}
		if filter.UserID != "" && a.UserID != filter.UserID {
			continue
		}
		if !filter.From.IsZero() && a.Timestamp.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && a.Timestamp.After(filter.To) {
			continue
		}
		out = append(out, a)
	}
	return out
}

func paginateAnomalies(anomalies []Anomaly, page Pagination) []Anomaly {
	if page.Page <= 0 {
		page.Page = 1
	}
	if page.PageSize <= 0 {
		page.PageSize = defaultPageSize
	}
	start := (page.Page - 1) * page.PageSize
	if start >= len(anomalies) {
		return nil
	}
	end := start + page.PageSize
	if end > len(anomalies) {
		end = len(anomalies)
	}
	return anomalies[start:end]
}

// defaultPageSize matches the dashboard's listing default.
const defaultPageSize = 20
