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

// ScopeKind names the shape of a caller's permitted data scope.
type ScopeKind string

const (
	// ScopeUnrestricted sees every tenant. athos_owner only.
	ScopeUnrestricted ScopeKind = "unrestricted"
	// ScopeAdminOwned restricts an admin to the tenants it owns.
	ScopeAdminOwned ScopeKind = "admin_owned"
	// ScopeAdminGlobal grants an admin every tenant. Some dashboard
	// call sites want this instead of owned-only; the call site picks.
	ScopeAdminGlobal ScopeKind = "admin_global"
	// ScopeTenant pins a client to exactly its own tenant.
	ScopeTenant ScopeKind = "tenant"
	// ScopeSelf pins a user to itself plus its group memberships,
	// inside its own tenant.
	ScopeSelf ScopeKind = "self"
)

// AdminScopeMode selects which of the two admin scopes a call site
// wants. The original system re-derived this ad hoc per endpoint; here
// the choice is explicit and named.
type AdminScopeMode int

const (
	AdminScopeOwned AdminScopeMode = iota
	AdminScopeGlobal
)

// Scope is a caller's resolved data scope. TenantIDs is only populated
// for ScopeAdminOwned; GroupIDs only for ScopeSelf.
type Scope struct {
	Kind      ScopeKind
	SubjectID string
	Role      types.Role
	TenantID  string
	TenantIDs []string
	GroupIDs  []string
}

// ScopeGuard maps claims to a permitted scope and authorizes resource
// access against it. All checks run before any resolver reads policy
// data; a failure means nothing was read.
type ScopeGuard struct {
	tenants TenantRepository
	groups  GroupRepository
}

// NewScopeGuard creates a ScopeGuard over the tenant and group
// repositories.
func NewScopeGuard(tenants TenantRepository, groups GroupRepository) *ScopeGuard {
	return &ScopeGuard{tenants: tenants, groups: groups}
}

// ScopeFor resolves the caller's scope from its claims. adminMode only
// matters for role=admin; other roles ignore it.
func (g *ScopeGuard) ScopeFor(ctx context.Context, claims types.Claims, adminMode AdminScopeMode) (*Scope, error) {
	if err := claims.Validate(); err != nil {
		return nil, NewValidationError("claims", claims.Subject, err.Error())
	}

	scope := &Scope{SubjectID: claims.Subject, Role: claims.Role, TenantID: claims.TenantID}

	switch claims.Role {
	case types.RoleAthosOwner:
		scope.Kind = ScopeUnrestricted

	case types.RoleAdmin:
		if adminMode == AdminScopeGlobal {
			scope.Kind = ScopeAdminGlobal
			break
		}
		scope.Kind = ScopeAdminOwned
		owned, err := g.tenants.ListTenantsByAdmin(ctx, claims.Subject)
		if err != nil {
			return nil, NewRepositoryError("ListTenantsByAdmin", err)
		}
		for _, t := range owned {
			scope.TenantIDs = append(scope.TenantIDs, t.ID)
		}

	case types.RoleClient:
		scope.Kind = ScopeTenant

	case types.RoleUser:
		scope.Kind = ScopeSelf
		groups, err := g.groups.ListUserGroups(ctx, claims.TenantID, claims.Subject)
		if err != nil {
			return nil, NewRepositoryError("ListUserGroups", err)
		}
		for _, grp := range groups {
			scope.GroupIDs = append(scope.GroupIDs, grp.ID)
		}
	}

	return scope, nil
}

// Authorize checks that a resource belonging to resourceTenant (and,
// for user-owned resources, resourceOwner) falls inside the scope.
// resourceOwner may be empty for tenant-level resources.
func (s *Scope) Authorize(resourceTenant, resourceOwner string) error {
	switch s.Kind {
	case ScopeUnrestricted, ScopeAdminGlobal:
		return nil

	case ScopeAdminOwned:
		for _, id := range s.TenantIDs {
			if id == resourceTenant {
				return nil
			}
		}

	case ScopeTenant:
		if resourceTenant == s.TenantID {
			return nil
		}

	case ScopeSelf:
		if resourceTenant != s.TenantID {
			break
		}
		if resourceOwner == "" || resourceOwner == s.SubjectID {
			return nil
		}
	}

	return &AuthorizationError{
		Subject:  s.SubjectID,
		Role:     string(s.Role),
		Resource: "tenant " + resourceTenant,
	}
}

// CoversTenant reports whether the scope may read data for tenantID.
func (s *Scope) CoversTenant(tenantID string) bool {
	return s.Authorize(tenantID, "") == nil
}

// CanAddUser reports whether tenantID has room for one more user under
// its max-user limit. The CRUD layer calls this before creating a user.
func (g *ScopeGuard) CanAddUser(ctx context.Context, tenantID string) (bool, error) {
	tenant, err := g.tenants.GetTenant(ctx, tenantID)
	if err != nil {
		return false, NewRepositoryError("GetTenant", err)
	}
	if tenant == nil {
		return false, ErrNotFound
	}
	count, err := g.tenants.CountTenantUsers(ctx, tenantID)
	if err != nil {
		return false, NewRepositoryError("CountTenantUsers", err)
	}
	return count < tenant.MaxUsers, nil
}
