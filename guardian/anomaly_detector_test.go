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
	"reflect"
	"testing"
	"time"

	"athos/platform/shared/types"
)

// workday is a reference instant inside working hours (10:00 local).
var workday = time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

func navEvent(userID, domain string, ts time.Time) types.NavigationEvent {
	return types.NavigationEvent{
		UserID:    userID,
		Domain:    domain,
		EventType: types.EventNavigation,
		Timestamp: ts,
	}
}

func anomaliesOf(anomalies []Anomaly, typ AnomalyType) []Anomaly {
	var out []Anomaly
	for _, a := range anomalies {
		if a.Type == typ {
			out = append(out, a)
		}
	}
	return out
}

func TestDetectAnomaliesSchedule(t *testing.T) {
	day := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	events := []types.NavigationEvent{
		navEvent("u1", "a.com", day.Add(6*time.Hour)),   // 06:00 -> anomalous
		navEvent("u1", "a.com", day.Add(8*time.Hour)),   // 08:00 -> working hours
		navEvent("u1", "a.com", day.Add(19*time.Hour)),  // 19:00 -> working hours
		navEvent("u1", "a.com", day.Add(20*time.Hour)),  // 20:00 -> anomalous
		navEvent("u2", "b.com", day.Add(23*time.Hour)),  // 23:00 -> anomalous
		navEvent("u2", "b.com", day.Add(12*time.Hour)),  // noon  -> fine
	}

	got := anomaliesOf(DetectAnomalies(events, AnomalyFilter{}, Pagination{}), AnomalySchedule)
	if len(got) != 3 {
		t.Fatalf("schedule anomalies = %d, want 3: %+v", len(got), got)
	}
	for _, a := range got {
		h := a.Timestamp.Hour()
		if h >= workdayStartHour && h <= workdayEndHour {
			t.Errorf("anomaly inside working hours: %+v", a)
		}
	}
}

func TestDetectAnomaliesUnusualSite(t *testing.T) {
	events := []types.NavigationEvent{
		navEvent("u1", "a.com", workday),
		navEvent("u1", "www.a.com", workday.Add(time.Minute)), // same site after normalization
		navEvent("u1", "b.com", workday.Add(2*time.Minute)),
		navEvent("u2", "a.com", workday.Add(3*time.Minute)), // first for u2
	}

	got := anomaliesOf(DetectAnomalies(events, AnomalyFilter{}, Pagination{}), AnomalyUnusualSite)
	if len(got) != 3 {
		t.Fatalf("unusual-site anomalies = %d, want 3: %+v", len(got), got)
	}

	// Only the first occurrence per user per domain is flagged, at its
	// first timestamp.
	for _, a := range got {
		if a.UserID == "u1" && a.Detail == "first visit to a.com in analysis window" {
			if !a.Timestamp.Equal(workday) {
				t.Errorf("first-visit anomaly at %v, want %v", a.Timestamp, workday)
			}
		}
	}
}

func TestDetectAnomaliesBurst(t *testing.T) {
	// Six events in four minutes: one burst anomaly, at the window start.
	var events []types.NavigationEvent
	for i := 0; i < 6; i++ {
		events = append(events, navEvent("u1", "a.com", workday.Add(time.Duration(i)*time.Minute)))
	}
	// A calm second user for contrast.
	events = append(events, navEvent("u2", "b.com", workday))

	got := anomaliesOf(DetectAnomalies(events, AnomalyFilter{}, Pagination{}), AnomalyIrregularPattern)
	if len(got) != 1 {
		t.Fatalf("burst anomalies = %d, want 1: %+v", len(got), got)
	}
	if got[0].UserID != "u1" {
		t.Errorf("burst user = %q, want u1", got[0].UserID)
	}
	if !got[0].Timestamp.Equal(workday) {
		t.Errorf("burst flagged at %v, want earliest window start %v", got[0].Timestamp, workday)
	}
}

func TestDetectAnomaliesBurstBelowThreshold(t *testing.T) {
	// Exactly five events within ten minutes: not a burst.
	var events []types.NavigationEvent
	for i := 0; i < 5; i++ {
		events = append(events, navEvent("u1", "a.com", workday.Add(time.Duration(i)*time.Minute)))
	}
	// A sixth event outside the rolling window.
	events = append(events, navEvent("u1", "a.com", workday.Add(15*time.Minute)))

	if got := anomaliesOf(DetectAnomalies(events, AnomalyFilter{}, Pagination{}), AnomalyIrregularPattern); len(got) != 0 {
		t.Fatalf("burst anomalies = %d, want 0: %+v", len(got), got)
	}
}

func TestDetectAnomaliesBurstSingleAnomalyPerUser(t *testing.T) {
	// A sustained burst spans many overlapping qualifying windows but
	// must yield exactly one anomaly, at the earliest window.
	var events []types.NavigationEvent
	for i := 0; i < 30; i++ {
		events = append(events, navEvent("u1", "a.com", workday.Add(time.Duration(i)*time.Minute)))
	}

	got := anomaliesOf(DetectAnomalies(events, AnomalyFilter{}, Pagination{}), AnomalyIrregularPattern)
	if len(got) != 1 {
		t.Fatalf("burst anomalies = %d, want exactly 1: %+v", len(got), got)
	}
	if !got[0].Timestamp.Equal(workday) {
		t.Errorf("burst flagged at %v, want %v", got[0].Timestamp, workday)
	}
}

func TestDetectAnomaliesFilter(t *testing.T) {
	events := []types.NavigationEvent{
		navEvent("u1", "a.com", workday),
		navEvent("u2", "b.com", workday.Add(time.Minute)),
	}

	byUser := DetectAnomalies(events, AnomalyFilter{UserID: "u1"}, Pagination{})
	for _, a := range byUser {
		if a.UserID != "u1" {
			t.Errorf("user filter leaked %+v", a)
		}
	}
	if len(byUser) == 0 {
		t.Error("user filter returned nothing")
	}

	byType := DetectAnomalies(events, AnomalyFilter{Type: AnomalyUnusualSite}, Pagination{})
	for _, a := range byType {
		if a.Type != AnomalyUnusualSite {
			t.Errorf("type filter leaked %+v", a)
		}
	}

	outOfRange := DetectAnomalies(events, AnomalyFilter{
		From: workday.Add(24 * time.Hour),
	}, Pagination{})
	if len(outOfRange) != 0 {
		t.Errorf("date filter leaked %d anomalies", len(outOfRange))
	}
}

func TestDetectAnomaliesOrderingAndPagination(t *testing.T) {
	events := []types.NavigationEvent{
		navEvent("u1", "a.com", workday),
		navEvent("u1", "b.com", workday.Add(time.Minute)),
		navEvent("u1", "c.com", workday.Add(2*time.Minute)),
	}

	all := DetectAnomalies(events, AnomalyFilter{}, Pagination{})
	for i := 1; i < len(all); i++ {
		if all[i].Timestamp.After(all[i-1].Timestamp) {
			t.Fatalf("not sorted newest-first at %d: %+v", i, all)
		}
	}

	page1 := DetectAnomalies(events, AnomalyFilter{}, Pagination{Page: 1, PageSize: 2})
	page2 := DetectAnomalies(events, AnomalyFilter{}, Pagination{Page: 2, PageSize: 2})
	if len(page1) != 2 {
		t.Fatalf("page 1 size = %d, want 2", len(page1))
	}
	if len(page1)+len(page2) != len(all) {
		t.Errorf("pages hold %d anomalies, window has %d", len(page1)+len(page2), len(all))
	}
	far := DetectAnomalies(events, AnomalyFilter{}, Pagination{Page: 99, PageSize: 2})
	if len(far) != 0 {
		t.Errorf("out-of-range page returned %d anomalies", len(far))
	}
}

func TestDetectAnomaliesDeterministic(t *testing.T) {
	var events []types.NavigationEvent
	for i := 0; i < 40; i++ {
		events = append(events, navEvent(
			fmt.Sprintf("u%d", i%4),
			fmt.Sprintf("site%d.com", i%7),
			workday.Add(time.Duration(i)*time.Minute),
		))
	}

	first := DetectAnomalies(events, AnomalyFilter{}, Pagination{PageSize: 100})
	for i := 0; i < 5; i++ {
		again := DetectAnomalies(events, AnomalyFilter{}, Pagination{PageSize: 100})
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differed from first run", i)
		}
	}
}

func TestDetectAnomaliesSkipsMalformedRecords(t *testing.T) {
	events := []types.NavigationEvent{
		{UserID: "u1", Domain: "a.com"}, // zero timestamp
		{Domain: "b.com", Timestamp: workday}, // missing user
		navEvent("u1", "c.com", workday),
	}

	got := DetectAnomalies(events, AnomalyFilter{}, Pagination{})
	for _, a := range got {
		if a.Timestamp.IsZero() || a.UserID == "" {
			t.Errorf("malformed record produced anomaly %+v", a)
		}
	}
	if len(anomaliesOf(got, AnomalyUnusualSite)) != 1 {
		t.Errorf("expected exactly one unusual-site anomaly from the valid record, got %+v", got)
	}
}

func TestDetectAnomaliesWindowCap(t *testing.T) {
	// Events beyond the cap are ignored entirely.
	var events []types.NavigationEvent
	for i := 0; i < MaxAnomalyWindow; i++ {
		events = append(events, navEvent("u1", "a.com", workday.Add(time.Duration(i)*time.Hour)))
	}
	events = append(events, navEvent("u-beyond", "z.com", workday))

	got := DetectAnomalies(events, AnomalyFilter{UserID: "u-beyond"}, Pagination{})
	if len(got) != 0 {
		t.Errorf("event beyond the window cap produced %d anomalies", len(got))
	}
}
