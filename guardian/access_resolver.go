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
	"sync"
	"time"

	"athos/platform/shared/logger"
	"athos/platform/shared/types"
)

// DecisionTier names the tier that produced a verdict.
type DecisionTier string

const (
	TierProhibited   DecisionTier = "prohibited_list"
	TierPolicy       DecisionTier = "policy"
	TierTenantConfig DecisionTier = "tenant_config"
	TierDefault      DecisionTier = "default"
)

// AccessDecision is the outcome of a browsing check. PolicyID is set
// when a tenant or group policy produced the verdict; Category when the
// prohibited registry did.
type AccessDecision struct {
	Blocked  bool         `json:"blocked"`
	Reason   string       `json:"reason"`
	Tier     DecisionTier `json:"tier"`
	Category string       `json:"category,omitempty"`
	PolicyID string       `json:"policy_id,omitempty"`
}

// AccessResolver decides whether a caller may browse a domain. Tiers
// are evaluated most authoritative first and short-circuit on the first
// verdict:
//
//  1. global prohibited registry (tenant and role are ignored)
//  2. tenant and group access policies (block beats allow)
//  3. tenant configuration lists
//  4. default allow
//
// The resolver is read-only and stateless apart from the registry
// snapshot, which is replaced whole on refresh. Repository failures are
// surfaced to the caller as *RepositoryError.
type AccessResolver struct {
	policies PolicyRepository
	configs  TenantConfigRepository
	guard    *ScopeGuard
	log      *logger.Logger

	registryMu sync.RWMutex
	registry   *ProhibitedRegistry
}

// NewAccessResolver wires an access resolver. registry may be empty but
// not nil; pass NewProhibitedRegistry(nil) when no list is loaded yet.
func NewAccessResolver(registry *ProhibitedRegistry, policies PolicyRepository, configs TenantConfigRepository, guard *ScopeGuard) *AccessResolver {
	r := &AccessResolver{
		policies: policies,
		configs:  configs,
		guard:    guard,
		registry: registry,
		log:      logger.New("guardian.access"),
	}
	promRegistryEntries.Set(float64(registry.Len()))
	return r
}

// SwapRegistry installs a freshly loaded prohibited-registry snapshot.
// In-flight decisions keep the snapshot they started with.
func (r *AccessResolver) SwapRegistry(registry *ProhibitedRegistry) {
	r.registryMu.Lock()
	r.registry = registry
	r.registryMu.Unlock()
	promRegistryEntries.Set(float64(registry.Len()))
}

func (r *AccessResolver) snapshot() *ProhibitedRegistry {
	r.registryMu.RLock()
	defer r.registryMu.RUnlock()
	return r.registry
}

// CheckAccess resolves the browsing decision for a domain under the
// caller's claims. The returned decision is never nil when err is nil.
func (r *AccessResolver) CheckAccess(ctx context.Context, rawDomain string, claims types.Claims) (*AccessDecision, error) {
	start := time.Now()
	decision, err := r.resolve(ctx, rawDomain, claims)
	promDecisionDuration.WithLabelValues("access").Observe(float64(time.Since(start).Milliseconds()))

	if err != nil {
		r.log.ErrorWithErr(claims.TenantID, "", "access check failed", err, map[string]interface{}{
			"domain": NormalizeDomain(rawDomain),
		})
		return nil, err
	}

	verdict := "allow"
	if decision.Blocked {
		verdict = "block"
	}
	promDecisionsTotal.WithLabelValues("access", verdict, string(decision.Tier)).Inc()
	return decision, nil
}

func (r *AccessResolver) resolve(ctx context.Context, rawDomain string, claims types.Claims) (*AccessDecision, error) {
	domain := NormalizeDomain(rawDomain)
	if domain == "" {
		return nil, NewValidationError("domain", rawDomain, "empty after normalization")
	}

	// Tier 1: the global registry outranks everything, including any
	// tenant allow policy, and needs no scope.
	if category := r.snapshot().Match(domain); category != "" {
		return &AccessDecision{
			Blocked:  true,
			Reason:   "prohibited category: " + category,
			Tier:     TierProhibited,
			Category: category,
		}, nil
	}

	// Scope resolution happens before any policy read.
	scope, err := r.guard.ScopeFor(ctx, claims, AdminScopeOwned)
	if err != nil {
		return nil, err
	}

	// Tenant-less callers (athos_owner, unassigned admin) have no
	// tenant policy surface below the registry.
	if claims.TenantID == "" {
		return &AccessDecision{Blocked: false, Reason: "no tenant policy applies", Tier: TierDefault}, nil
	}
	if err := scope.Authorize(claims.TenantID, ""); err != nil {
		return nil, err
	}

	// Tier 2: tenant-wide policies plus, for users, their groups'.
	var groupIDs []string
	if scope.Kind == ScopeSelf {
		groupIDs = scope.GroupIDs
	}
	policies, err := r.policies.ListAccessPolicies(ctx, claims.TenantID, groupIDs)
	if err != nil {
		return nil, NewRepositoryError("ListAccessPolicies", err)
	}

	if d := matchAccessPolicies(policies, domain); d != nil {
		return d, nil
	}

	// Tier 3: coarse tenant lists.
	config, err := r.configs.GetTenantConfig(ctx, claims.TenantID)
	if err != nil {
		return nil, NewRepositoryError("GetTenantConfig", err)
	}
	if config != nil {
		if containsDomain(config.BlockedDomains, domain) {
			return &AccessDecision{Blocked: true, Reason: "domain in tenant blocklist", Tier: TierTenantConfig}, nil
		}
		if containsDomain(config.AllowedDomains, domain) {
			return &AccessDecision{Blocked: false, Reason: "domain in tenant allowlist", Tier: TierTenantConfig}, nil
		}
	}

	// Tier 4: default open.
	return &AccessDecision{Blocked: false, Reason: "no policy matched", Tier: TierDefault}, nil
}

// matchAccessPolicies applies tier 2: among policies whose domain
// matches exactly, a block wins over an allow even when both exist.
func matchAccessPolicies(policies []types.Policy, domain string) *AccessDecision {
	var allow *types.Policy
	for i := range policies {
		p := &policies[i]
		if p.Type != types.PolicyTypeAccess {
			continue
		}
		if NormalizeDomain(p.Domain) != domain {
			continue
		}
		if p.Action == types.PolicyBlock {
			return &AccessDecision{
				Blocked:  true,
				Reason:   blockReason(p),
				Tier:     TierPolicy,
				PolicyID: p.ID,
			}
		}
		if p.Action == types.PolicyAllow && allow == nil {
			allow = p
		}
	}
	if allow != nil {
		return &AccessDecision{
			Blocked:  false,
			Reason:   "allowed by policy",
			Tier:     TierPolicy,
			PolicyID: allow.ID,
		}
	}
	return nil
}

func blockReason(p *types.Policy) string {
	if p.Reason != "" {
		return p.Reason
	}
	return "blocked by policy"
}

func containsDomain(list []string, domain string) bool {
	for _, entry := range list {
		if NormalizeDomain(entry) == domain {
			return true
		}
	}
	return false
}
