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
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/lib/pq"

	"athos/platform/guardian"
	"athos/platform/shared/logger"
	"athos/platform/shared/types"
)

// Config holds the connection settings for the store.
type Config struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// ConfigFromEnv builds a Config from DATABASE_URL. Pool limits keep
// their in-code defaults.
func ConfigFromEnv() Config {
	return Config{URL: os.Getenv("DATABASE_URL")}
}

// Store is the PostgreSQL-backed implementation of the guardian
// repository interfaces.
type Store struct {
	db  *sql.DB
	log *logger.Logger
}

var (
	_ guardian.PolicyRepository       = (*Store)(nil)
	_ guardian.TenantConfigRepository = (*Store)(nil)
	_ guardian.GroupRepository        = (*Store)(nil)
	_ guardian.TenantRepository       = (*Store)(nil)
	_ guardian.EventRepository        = (*Store)(nil)
)

// Open connects to PostgreSQL, configures the pool and verifies the
// connection with a ping.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 25
	}
	maxIdle := cfg.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = 5
	}
	lifetime := cfg.ConnMaxLifetime
	if lifetime <= 0 {
		lifetime = 5 * time.Minute
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(lifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := NewStore(db)
	s.log.Info("", "", "Connected to PostgreSQL", map[string]interface{}{
		"max_open_conns": maxOpen,
	})
	return s, nil
}

// NewStore wraps an existing database handle. Tests hand in a mock.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, log: logger.New("postgres.store")}
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping reports store health.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ListAccessPolicies implements guardian.PolicyRepository. Tenant-wide
// policies always match; group policies only for the given groups.
func (s *Store) ListAccessPolicies(ctx context.Context, tenantID string, groupIDs []string) ([]types.Policy, error) {
	query := `
		SELECT id, tenant_id, COALESCE(group_id, ''), COALESCE(user_id, ''),
		       type, action, COALESCE(domain, ''), COALESCE(category, ''),
		       COALESCE(reason, ''), created_at
		FROM policies
		WHERE type = 'access'
		  AND tenant_id = $1
		  AND (group_id IS NULL OR group_id = ANY($2))
	`
	rows, err := s.db.QueryContext(ctx, query, tenantID, pq.Array(groupIDs))
	if err != nil {
		return nil, fmt.Errorf("list access policies: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanPolicies(rows)
}

// ListDownloadPolicies implements guardian.PolicyRepository: the
// tenant-global rules plus those scoped to the caller's groups or to
// the caller itself.
func (s *Store) ListDownloadPolicies(ctx context.Context, tenantID string, groupIDs []string, userID string) ([]types.Policy, error) {
	query := `
		SELECT id, tenant_id, COALESCE(group_id, ''), COALESCE(user_id, ''),
		       type, action, COALESCE(domain, ''), COALESCE(category, ''),
		       COALESCE(reason, ''), created_at
		FROM policies
		WHERE type = 'download'
		  AND tenant_id = $1
		  AND (
		       (group_id IS NULL AND user_id IS NULL)
		    OR group_id = ANY($2)
		    OR user_id = $3
		  )
	`
	rows, err := s.db.QueryContext(ctx, query, tenantID, pq.Array(groupIDs), userID)
	if err != nil {
		return nil, fmt.Errorf("list download policies: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanPolicies(rows)
}

func scanPolicies(rows *sql.Rows) ([]types.Policy, error) {
	var out []types.Policy
	for rows.Next() {
		var p types.Policy
		var createdAt sql.NullTime
		err := rows.Scan(
			&p.ID, &p.TenantID, &p.GroupID, &p.UserID,
			&p.Type, &p.Action, &p.Domain, &p.Category,
			&p.Reason, &createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan policy: %w", err)
		}
		if createdAt.Valid {
			p.CreatedAt = createdAt.Time
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate policies: %w", err)
	}
	return out, nil
}

// GetTenantConfig implements guardian.TenantConfigRepository. A tenant
// without a config row yields nil, not an error.
func (s *Store) GetTenantConfig(ctx context.Context, tenantID string) (*types.TenantConfig, error) {
	query := `
		SELECT tenant_id, extension_enabled, blocked_domains, allowed_domains
		FROM tenant_configs
		WHERE tenant_id = $1
	`
	var cfg types.TenantConfig
	err := s.db.QueryRowContext(ctx, query, tenantID).Scan(
		&cfg.TenantID,
		&cfg.ExtensionEnabled,
		pq.Array(&cfg.BlockedDomains),
		pq.Array(&cfg.AllowedDomains),
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get tenant config: %w", err)
	}
	return &cfg, nil
}

// ListUserGroups implements guardian.GroupRepository.
func (s *Store) ListUserGroups(ctx context.Context, tenantID, userID string) ([]types.Group, error) {
	query := `
		SELECT g.id, g.tenant_id, g.name
		FROM groups g
		JOIN group_memberships m ON m.group_id = g.id
		WHERE g.tenant_id = $1 AND m.user_id = $2
	`
	rows, err := s.db.QueryContext(ctx, query, tenantID, userID)
	if err != nil {
		return nil, fmt.Errorf("list user groups: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []types.Group
	for rows.Next() {
		var g types.Group
		if err := rows.Scan(&g.ID, &g.TenantID, &g.Name); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate groups: %w", err)
	}
	return out, nil
}

// GetTenant implements guardian.TenantRepository. Missing tenants
// yield nil.
func (s *Store) GetTenant(ctx context.Context, tenantID string) (*types.Tenant, error) {
	query := `
		SELECT id, name, COALESCE(admin_id, ''), max_users, COALESCE(status, '')
		FROM tenants
		WHERE id = $1
	`
	var t types.Tenant
	err := s.db.QueryRowContext(ctx, query, tenantID).Scan(
		&t.ID, &t.Name, &t.AdminID, &t.MaxUsers, &t.Status,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get tenant: %w", err)
	}
	return &t, nil
}

// ListTenantsByAdmin implements guardian.TenantRepository.
func (s *Store) ListTenantsByAdmin(ctx context.Context, adminID string) ([]types.Tenant, error) {
	query := `
		SELECT id, name, COALESCE(admin_id, ''), max_users, COALESCE(status, '')
		FROM tenants
		WHERE admin_id = $1
	`
	rows, err := s.db.QueryContext(ctx, query, adminID)
	if err != nil {
		return nil, fmt.Errorf("list tenants by admin: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []types.Tenant
	for rows.Next() {
		var t types.Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.AdminID, &t.MaxUsers, &t.Status); err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tenants: %w", err)
	}
	return out, nil
}

// CountTenantUsers implements guardian.TenantRepository.
func (s *Store) CountTenantUsers(ctx context.Context, tenantID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE tenant_id = $1`, tenantID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count tenant users: %w", err)
	}
	return n, nil
}

// defaultEventPageSize caps unpaginated event queries.
const defaultEventPageSize = 50

// QueryNavigationEvents implements guardian.EventRepository. The filter
// builds a positional WHERE clause; the second return value is the
// total match count before pagination.
func (s *Store) QueryNavigationEvents(ctx context.Context, filter guardian.EventFilter, page guardian.Pagination) ([]types.NavigationEvent, int, error) {
	where := " WHERE 1=1"
	args := []interface{}{}
	argIndex := 1

	add := func(clause string, value interface{}) {
		where += fmt.Sprintf(clause, argIndex)
		args = append(args, value)
		argIndex++
	}

	if filter.TenantID != "" {
		add(" AND tenant_id = $%d", filter.TenantID)
	}
	if filter.UserID != "" {
		add(" AND user_id = $%d", filter.UserID)
	}
	if filter.Domain != "" {
		add(" AND domain ILIKE $%d", "%"+filter.Domain+"%")
	}
	if filter.URL != "" {
		add(" AND url ILIKE $%d", "%"+filter.URL+"%")
	}
	if filter.Action != "" {
		add(" AND action = $%d", filter.Action)
	}
	if !filter.From.IsZero() {
		add(" AND timestamp >= $%d", filter.From)
	}
	if !filter.To.IsZero() {
		add(" AND timestamp <= $%d", filter.To)
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM navigation_events" + where
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count navigation events: %w", err)
	}

	if page.Page <= 0 {
		page.Page = 1
	}
	if page.PageSize <= 0 {
		page.PageSize = defaultEventPageSize
	}

	query := `
		SELECT id, user_id, COALESCE(tenant_id, ''), domain, url, timestamp,
		       COALESCE(action, ''), event_type, event_details, risk_score,
		       COALESCE(ip, ''), COALESCE(city, ''), COALESCE(country, ''),
		       policy_info
		FROM navigation_events` + where +
		fmt.Sprintf(" ORDER BY timestamp DESC LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, page.PageSize, (page.Page-1)*page.PageSize)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query navigation events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []types.NavigationEvent
	for rows.Next() {
		var e types.NavigationEvent
		var details, policyInfo []byte
		var riskScore sql.NullInt64
		err := rows.Scan(
			&e.ID, &e.UserID, &e.TenantID, &e.Domain, &e.URL, &e.Timestamp,
			&e.Action, &e.EventType, &details, &riskScore,
			&e.IP, &e.City, &e.Country, &policyInfo,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan navigation event: %w", err)
		}
		if len(details) > 0 {
			e.Details = types.ParseEventDetails(e.EventType, details)
		}
		if riskScore.Valid {
			score := int(riskScore.Int64)
			e.RiskScore = &score
		}
		if len(policyInfo) > 0 {
			var pi types.PolicyInfo
			if err := json.Unmarshal(policyInfo, &pi); err == nil {
				e.PolicyInfo = &pi
			}
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate navigation events: %w", err)
	}
	return out, total, nil
}

// InsertNavigationEvents implements guardian.EventRepository: one
// transaction per batch, all rows or none.
func (s *Store) InsertNavigationEvents(ctx context.Context, events []types.NavigationEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert batch: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO navigation_events
			(id, user_id, tenant_id, domain, url, timestamp, action,
			 event_type, event_details, risk_score, ip, city, country, policy_info)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, e := range events {
		details, err := json.Marshal(e.Details)
		if err != nil {
			return fmt.Errorf("marshal event details: %w", err)
		}
		var policyInfo interface{}
		if e.PolicyInfo != nil {
			b, err := json.Marshal(e.PolicyInfo)
			if err != nil {
				return fmt.Errorf("marshal policy info: %w", err)
			}
			policyInfo = b
		}
		var riskScore interface{}
		if e.RiskScore != nil {
			riskScore = *e.RiskScore
		}

		_, err = stmt.ExecContext(ctx,
			e.ID, e.UserID, nullable(e.TenantID), e.Domain, e.URL, e.Timestamp,
			e.Action, string(e.EventType), details, riskScore,
			nullable(e.IP), nullable(e.City), nullable(e.Country), policyInfo,
		)
		if err != nil {
			return fmt.Errorf("insert navigation event %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert batch: %w", err)
	}
	return nil
}

// nullable maps "" to SQL NULL for optional text columns.
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
