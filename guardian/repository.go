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
	"context"
	"time"

	"athos/platform/shared/types"
)

// PolicyRepository is the read surface the resolvers pull policy state
// from. Implementations are per-request, role-scoped clients over the
// remote relational store; callers apply their own timeout through ctx.
type PolicyRepository interface {
	// ListAccessPolicies returns access-type policies for the tenant,
	// plus the policies of the given groups when groupIDs is non-empty.
	ListAccessPolicies(ctx context.Context, tenantID string, groupIDs []string) ([]types.Policy, error)

	// ListDownloadPolicies returns download-type policies visible to
	// the caller: tenant-global, the given groups', and the user's own.
	ListDownloadPolicies(ctx context.Context, tenantID string, groupIDs []string, userID string) ([]types.Policy, error)
}

// TenantConfigRepository serves the coarse pre-policy override lists.
type TenantConfigRepository interface {
	GetTenantConfig(ctx context.Context, tenantID string) (*types.TenantConfig, error)
}

// GroupRepository resolves a user's group memberships within a tenant.
type GroupRepository interface {
	ListUserGroups(ctx context.Context, tenantID, userID string) ([]types.Group, error)
}

// TenantRepository is consulted by the scope guard when an admin's
// owned-tenant set must be resolved, and for user-limit checks.
type TenantRepository interface {
	GetTenant(ctx context.Context, tenantID string) (*types.Tenant, error)
	ListTenantsByAdmin(ctx context.Context, adminID string) ([]types.Tenant, error)
	CountTenantUsers(ctx context.Context, tenantID string) (int, error)
}

// EventFilter narrows a navigation-event query. Zero values mean
// "no constraint on that dimension".
type EventFilter struct {
	TenantID string
	UserID   string
	// Domain and URL match as case-insensitive substrings, mirroring
	// the dashboard's ilike filters.
	Domain string
	URL    string
	Action string
	From   time.Time
	To     time.Time
}

// Pagination is 1-based; a zero PageSize falls back to the store's
// default page size.
type Pagination struct {
	Page     int
	PageSize int
}

// EventRepository reads and appends navigation events. Events are
// append-only: there is no update surface.
type EventRepository interface {
	QueryNavigationEvents(ctx context.Context, filter EventFilter, page Pagination) ([]types.NavigationEvent, int, error)
	InsertNavigationEvents(ctx context.Context, events []types.NavigationEvent) error
}

// RegistrySource loads the prohibited-domain snapshot from a static
// resource. The reserved "recomendaciones" category is advisory and
// excluded from enforcement by the registry constructor, not by sources.
type RegistrySource interface {
	LoadProhibitedRegistry(ctx context.Context) (map[string][]string, error)
}
