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

	"athos/platform/shared/logger"
	"athos/platform/shared/types"
)

// FailOpenReason is returned when the repository is unreachable during
// a download check and the resolver defaults to allow.
const FailOpenReason = "policy lookup unavailable, defaulting to allow"

// DownloadDecision is the outcome of a download check.
type DownloadDecision struct {
	Allowed  bool         `json:"allowed"`
	Reason   string       `json:"reason"`
	Tier     DecisionTier `json:"tier"`
	PolicyID string       `json:"policy_id,omitempty"`
}

// Download decision tiers, most to least specific.
const (
	TierTenantGlobal DecisionTier = "tenant_global"
	TierGroup        DecisionTier = "group"
	TierUser         DecisionTier = "user"
	TierFailOpen     DecisionTier = "fail_open"
)

// DownloadResolver decides whether a caller may download a file.
// Evaluation is independent of the browsing decision and default-open:
//
//  1. tenant-global download policies (no user, no group)
//  2. the caller's group download policies
//  3. the caller's own user-scoped download policies
//  4. default allow
//
// Any block short-circuits. Unlike AccessResolver this resolver fails
// OPEN on repository errors: an outage must never stop legitimate work.
type DownloadResolver struct {
	policies PolicyRepository
	guard    *ScopeGuard
	log      *logger.Logger
}

// NewDownloadResolver wires a download resolver.
func NewDownloadResolver(policies PolicyRepository, guard *ScopeGuard) *DownloadResolver {
	return &DownloadResolver{
		policies: policies,
		guard:    guard,
		log:      logger.New("guardian.download"),
	}
}

// CheckDownload resolves the download decision for a file or source
// URL under the caller's claims. It never returns a repository error:
// lookup failures degrade to an allow with FailOpenReason.
func (r *DownloadResolver) CheckDownload(ctx context.Context, target string, claims types.Claims) (*DownloadDecision, error) {
	start := time.Now()
	decision, err := r.resolve(ctx, target, claims)
	promDecisionDuration.WithLabelValues("download").Observe(float64(time.Since(start).Milliseconds()))

	if err != nil {
		return nil, err
	}

	verdict := "allow"
	if !decision.Allowed {
		verdict = "block"
	}
	promDecisionsTotal.WithLabelValues("download", verdict, string(decision.Tier)).Inc()
	return decision, nil
}

func (r *DownloadResolver) resolve(ctx context.Context, target string, claims types.Claims) (*DownloadDecision, error) {
	if target == "" {
		return nil, NewValidationError("target", target, "empty download target")
	}

	scope, err := r.guard.ScopeFor(ctx, claims, AdminScopeOwned)
	if err != nil {
		if IsRepository(err) {
			return r.failOpen(claims, err), nil
		}
		return nil, err
	}

	// No tenant means no download policy surface at all.
	if claims.TenantID == "" {
		return &DownloadDecision{Allowed: true, Reason: "no tenant policy applies", Tier: TierDefault}, nil
	}
	if err := scope.Authorize(claims.TenantID, ""); err != nil {
		return nil, err
	}

	policies, err := r.policies.ListDownloadPolicies(ctx, claims.TenantID, scope.GroupIDs, claims.Subject)
	if err != nil {
		return r.failOpen(claims, err), nil
	}

	groups := make(map[string]bool, len(scope.GroupIDs))
	for _, id := range scope.GroupIDs {
		groups[id] = true
	}

	// Tier 1: tenant-global blocks bypass everything below.
	for i := range policies {
		p := &policies[i]
		if p.Type != types.PolicyTypeDownload || p.Action != types.PolicyBlock {
			continue
		}
		if p.GroupID == "" && p.UserID == "" {
			return &DownloadDecision{
				Allowed:  false,
				Reason:   blockReason(p),
				Tier:     TierTenantGlobal,
				PolicyID: p.ID,
			}, nil
		}
	}

	// Tier 2: the caller's groups.
	for i := range policies {
		p := &policies[i]
		if p.Type != types.PolicyTypeDownload || p.Action != types.PolicyBlock {
			continue
		}
		if p.GroupID != "" && groups[p.GroupID] {
			return &DownloadDecision{
				Allowed:  false,
				Reason:   blockReason(p),
				Tier:     TierGroup,
				PolicyID: p.ID,
			}, nil
		}
	}

	// Tier 3: the caller itself.
	for i := range policies {
		p := &policies[i]
		if p.Type != types.PolicyTypeDownload || p.Action != types.PolicyBlock {
			continue
		}
		if p.UserID == claims.Subject {
			return &DownloadDecision{
				Allowed:  false,
				Reason:   blockReason(p),
				Tier:     TierUser,
				PolicyID: p.ID,
			}, nil
		}
	}

	return &DownloadDecision{Allowed: true, Reason: "no download policy matched", Tier: TierDefault}, nil
}

func (r *DownloadResolver) failOpen(claims types.Claims, err error) *DownloadDecision {
	r.log.ErrorWithErr(claims.TenantID, "", "download policy lookup failed, failing open", err, nil)
	return &DownloadDecision{Allowed: true, Reason: FailOpenReason, Tier: TierFailOpen}
}
