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

	"athos/platform/shared/types"
)

// In-memory repository fakes shared by the resolver and scope tests.

type fakePolicyRepo struct {
	access   []types.Policy
	download []types.Policy
	err      error

	lastGroupIDs []string
}

func (f *fakePolicyRepo) ListAccessPolicies(ctx context.Context, tenantID string, groupIDs []string) ([]types.Policy, error) {
	f.lastGroupIDs = groupIDs
	if f.err != nil {
		return nil, f.err
	}
	var out []types.Policy
	for _, p := range f.access {
		if p.TenantID != tenantID {
			continue
		}
		if p.GroupID != "" && !containsString(groupIDs, p.GroupID) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (f *fakePolicyRepo) ListDownloadPolicies(ctx context.Context, tenantID string, groupIDs []string, userID string) ([]types.Policy, error) {
	f.lastGroupIDs = groupIDs
	if f.err != nil {
		return nil, f.err
	}
	var out []types.Policy
	for _, p := range f.download {
		if p.TenantID != tenantID {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

type fakeConfigRepo struct {
	config *types.TenantConfig
	err    error
}

func (f *fakeConfigRepo) GetTenantConfig(ctx context.Context, tenantID string) (*types.TenantConfig, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.config, nil
}

type fakeGroupRepo struct {
	groups map[string][]types.Group // keyed by user ID
	err    error
}

func (f *fakeGroupRepo) ListUserGroups(ctx context.Context, tenantID, userID string) ([]types.Group, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.groups[userID], nil
}

type fakeTenantRepo struct {
	tenants    map[string]*types.Tenant
	byAdmin    map[string][]types.Tenant
	userCounts map[string]int
	err        error
}

func (f *fakeTenantRepo) GetTenant(ctx context.Context, tenantID string) (*types.Tenant, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.tenants[tenantID], nil
}

func (f *fakeTenantRepo) ListTenantsByAdmin(ctx context.Context, adminID string) ([]types.Tenant, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byAdmin[adminID], nil
}

func (f *fakeTenantRepo) CountTenantUsers(ctx context.Context, tenantID string) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.userCounts[tenantID], nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func newTestGuard(groups *fakeGroupRepo, tenants *fakeTenantRepo) *ScopeGuard {
	if groups == nil {
		groups = &fakeGroupRepo{}
	}
	if tenants == nil {
		tenants = &fakeTenantRepo{}
	}
	return NewScopeGuard(tenants, groups)
}

func userClaims(subject, tenantID string) types.Claims {
	return types.Claims{Subject: subject, Role: types.RoleUser, TenantID: tenantID}
}

func clientClaims(subject, tenantID string) types.Claims {
	return types.Claims{Subject: subject, Role: types.RoleClient, TenantID: tenantID}
}
