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

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"athos/platform/guardian"
	"athos/platform/shared/types"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db), mock
}

func expectationsMet(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func policyColumns() []string {
	return []string{"id", "tenant_id", "group_id", "user_id", "type", "action", "domain", "category", "reason", "created_at"}
}

func TestListAccessPolicies(t *testing.T) {
	store, mock := newMockStore(t)
	created := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT .+ FROM policies\s+WHERE type = 'access'`).
		WithArgs("t1", pq.Array([]string{"g1"})).
		WillReturnRows(sqlmock.NewRows(policyColumns()).
			AddRow("p1", "t1", "", "", "access", "block", "social.com", "", "distraction", created).
			AddRow("p2", "t1", "g1", "", "access", "allow", "docs.com", "", "", created))

	got, err := store.ListAccessPolicies(context.Background(), "t1", []string{"g1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d policies, want 2", len(got))
	}
	if got[0].Action != types.PolicyBlock || got[0].Domain != "social.com" {
		t.Errorf("policy[0] = %+v", got[0])
	}
	if got[1].GroupID != "g1" {
		t.Errorf("policy[1].GroupID = %q, want g1", got[1].GroupID)
	}
	expectationsMet(t, mock)
}

func TestListDownloadPolicies(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT .+ FROM policies\s+WHERE type = 'download'`).
		WithArgs("t1", pq.Array([]string{"g1", "g2"}), "u1").
		WillReturnRows(sqlmock.NewRows(policyColumns()).
			AddRow("p1", "t1", "", "", "download", "block", "", "", "", time.Time{}))

	got, err := store.ListDownloadPolicies(context.Background(), "t1", []string{"g1", "g2"}, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Type != types.PolicyTypeDownload {
		t.Errorf("got %+v, want one download policy", got)
	}
	expectationsMet(t, mock)
}

func TestGetTenantConfig(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT .+ FROM tenant_configs`).
		WithArgs("t1").
		WillReturnRows(sqlmock.NewRows([]string{"tenant_id", "extension_enabled", "blocked_domains", "allowed_domains"}).
			AddRow("t1", true, pq.Array([]string{"blocked.com"}), pq.Array([]string{"allowed.com"})))

	cfg, err := store.GetTenantConfig(context.Background(), "t1")
	if err != nil {
		t.Fatal(err)
	}
	if cfg == nil || !cfg.ExtensionEnabled || len(cfg.BlockedDomains) != 1 {
		t.Errorf("config = %+v", cfg)
	}
	expectationsMet(t, mock)
}

func TestGetTenantConfigMissingRow(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT .+ FROM tenant_configs`).
		WithArgs("t-missing").
		WillReturnRows(sqlmock.NewRows([]string{"tenant_id", "extension_enabled", "blocked_domains", "allowed_domains"}))

	cfg, err := store.GetTenantConfig(context.Background(), "t-missing")
	if err != nil {
		t.Fatalf("missing config must not be an error: %v", err)
	}
	if cfg != nil {
		t.Errorf("config = %+v, want nil", cfg)
	}
	expectationsMet(t, mock)
}

func TestListUserGroups(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT .+ FROM groups g\s+JOIN group_memberships m`).
		WithArgs("t1", "u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "name"}).
			AddRow("g1", "t1", "ventas").
			AddRow("g2", "t1", "soporte"))

	got, err := store.ListUserGroups(context.Background(), "t1", "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Name != "ventas" {
		t.Errorf("groups = %+v", got)
	}
	expectationsMet(t, mock)
}

func TestGetTenant(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT .+ FROM tenants\s+WHERE id = \$1`).
		WithArgs("t1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "admin_id", "max_users", "status"}).
			AddRow("t1", "Acme", "a1", 50, "active"))

	tenant, err := store.GetTenant(context.Background(), "t1")
	if err != nil {
		t.Fatal(err)
	}
	if tenant == nil || tenant.MaxUsers != 50 || tenant.AdminID != "a1" {
		t.Errorf("tenant = %+v", tenant)
	}

	mock.ExpectQuery(`SELECT .+ FROM tenants\s+WHERE id = \$1`).
		WithArgs("gone").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "admin_id", "max_users", "status"}))

	tenant, err = store.GetTenant(context.Background(), "gone")
	if err != nil || tenant != nil {
		t.Errorf("missing tenant = (%+v, %v), want (nil, nil)", tenant, err)
	}
	expectationsMet(t, mock)
}

func TestCountTenantUsers(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users`).
		WithArgs("t1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	n, err := store.CountTenantUsers(context.Background(), "t1")
	if err != nil || n != 7 {
		t.Errorf("count = (%d, %v), want (7, nil)", n, err)
	}
	expectationsMet(t, mock)
}

func TestQueryNavigationEvents(t *testing.T) {
	store, mock := newMockStore(t)
	ts := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM navigation_events WHERE 1=1 AND tenant_id = \$1 AND user_id = \$2`).
		WithArgs("t1", "u1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	mock.ExpectQuery(`SELECT .+ FROM navigation_events WHERE 1=1 AND tenant_id = \$1 AND user_id = \$2 ORDER BY timestamp DESC LIMIT \$3 OFFSET \$4`).
		WithArgs("t1", "u1", 20, 0).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "tenant_id", "domain", "url", "timestamp",
			"action", "event_type", "event_details", "risk_score",
			"ip", "city", "country", "policy_info",
		}).AddRow(
			"e1", "u1", "t1", "casino.com", "https://casino.com", ts,
			"bloqueado", "navigation", []byte(`{}`), 10,
			"", "", "", []byte(`{"category":"apuestas"}`),
		))

	events, total, err := store.QueryNavigationEvents(context.Background(),
		guardian.EventFilter{TenantID: "t1", UserID: "u1"},
		guardian.Pagination{Page: 1, PageSize: 20})
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || len(events) != 1 {
		t.Fatalf("got %d events (total %d), want 1", len(events), total)
	}
	e := events[0]
	if e.Action != types.ActionBlocked || e.RiskScore == nil || *e.RiskScore != 10 {
		t.Errorf("event = %+v", e)
	}
	if e.PolicyInfo == nil || e.PolicyInfo.Category != "apuestas" {
		t.Errorf("policy info = %+v, want apuestas category", e.PolicyInfo)
	}
	expectationsMet(t, mock)
}

func TestInsertNavigationEvents(t *testing.T) {
	store, mock := newMockStore(t)
	ts := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	score := 35

	mock.ExpectBegin()
	mock.ExpectPrepare(`INSERT INTO navigation_events`)
	mock.ExpectExec(`INSERT INTO navigation_events`).
		WithArgs("e1", "u1", "t1", "example.com", "https://example.com/f", ts,
			"visitado", "download", []byte(`{"nombre_archivo":"notes.txt"}`), 35,
			nil, nil, nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.InsertNavigationEvents(context.Background(), []types.NavigationEvent{{
		ID:        "e1",
		UserID:    "u1",
		TenantID:  "t1",
		Domain:    "example.com",
		URL:       "https://example.com/f",
		Timestamp: ts,
		Action:    types.ActionVisited,
		EventType: types.EventDownload,
		Details:   types.ParseEventDetails(types.EventDownload, []byte(`{"nombre_archivo":"notes.txt"}`)),
		RiskScore: &score,
	}})
	if err != nil {
		t.Fatal(err)
	}
	expectationsMet(t, mock)
}

func TestInsertNavigationEventsEmptyBatch(t *testing.T) {
	store, mock := newMockStore(t)

	if err := store.InsertNavigationEvents(context.Background(), nil); err != nil {
		t.Fatalf("empty batch: %v", err)
	}
	expectationsMet(t, mock)
}
