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

package types

import "time"

// Role represents the authenticated caller's role. The role is
// authoritative for data scope; the UI derives nothing from it.
type Role string

const (
	// RoleAthosOwner is the platform operator. Unrestricted scope.
	RoleAthosOwner Role = "athos_owner"
	// RoleAdmin manages one or more tenants it owns. May be tenant-less.
	RoleAdmin Role = "admin"
	// RoleClient is a tenant administrator, bound to exactly one tenant.
	RoleClient Role = "client"
	// RoleUser is a monitored end user within a tenant.
	RoleUser Role = "user"
)

// IsValid returns true if the Role is a known value.
func (r Role) IsValid() bool {
	switch r {
	case RoleAthosOwner, RoleAdmin, RoleClient, RoleUser:
		return true
	default:
		return false
	}
}

// Tenant is the isolation boundary for policies, groups and navigation
// events. AdminID is the owning admin, empty for platform-managed tenants.
type Tenant struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	AdminID  string `json:"admin_id,omitempty"`
	MaxUsers int    `json:"max_users"`
	Status   string `json:"status,omitempty"`
}

// User is an authenticated account. TenantID is empty for tenant-less
// athos_owner/admin accounts.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
	TenantID string `json:"tenant_id,omitempty"`
	Status   string `json:"status,omitempty"`
}

// Group is a named set of users inside one tenant.
type Group struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`
	Name     string `json:"name"`
}

// GroupMembership links a user to a group. Membership must share the
// group's tenant; the CRUD layer enforces that invariant at write time.
type GroupMembership struct {
	GroupID string `json:"group_id"`
	UserID  string `json:"user_id"`
}

// PolicyAction is the verdict a policy carries.
type PolicyAction string

const (
	PolicyAllow PolicyAction = "allow"
	PolicyBlock PolicyAction = "block"
)

// PolicyType distinguishes browsing policies from download policies.
type PolicyType string

const (
	// PolicyTypeAccess governs browsing. Requires a domain.
	PolicyTypeAccess PolicyType = "access"
	// PolicyTypeDownload governs file downloads. Scoped by any
	// combination of group/user; absence of both means tenant-global.
	PolicyTypeDownload PolicyType = "download"
)

// Policy is a single allow/block rule. Optional fields are empty when
// the rule does not constrain that dimension.
type Policy struct {
	ID        string       `json:"id"`
	TenantID  string       `json:"tenant_id,omitempty"`
	GroupID   string       `json:"group_id,omitempty"`
	UserID    string       `json:"user_id,omitempty"`
	Type      PolicyType   `json:"type"`
	Action    PolicyAction `json:"action"`
	Domain    string       `json:"domain,omitempty"`
	Category  string       `json:"category,omitempty"`
	Reason    string       `json:"reason,omitempty"`
	CreatedAt time.Time    `json:"created_at,omitempty"`
}

// TenantConfig is the coarse pre-policy override surface a tenant
// carries: flat lists checked after policies, before the default verdict.
type TenantConfig struct {
	TenantID         string   `json:"tenant_id"`
	ExtensionEnabled bool     `json:"extension_enabled"`
	BlockedDomains   []string `json:"blocked_domains"`
	AllowedDomains   []string `json:"allowed_domains"`
}

// EventType classifies a captured navigation event.
type EventType string

const (
	EventNavigation EventType = "navigation"
	EventClick      EventType = "click"
	EventCopy       EventType = "copy"
	EventPaste      EventType = "paste"
	EventCut        EventType = "cut"
	EventDownload   EventType = "download"
	EventFileUpload EventType = "file_upload"
	EventPrint      EventType = "print"
)

// NavigationEvent is one observed browsing event. Rows are append-only:
// created once at ingestion and never mutated by the decision core.
// RiskScore is computed once at ingestion; a nil score is recomputed
// transiently at read time and never persisted back.
type NavigationEvent struct {
	ID        string       `json:"id"`
	UserID    string       `json:"user_id"`
	TenantID  string       `json:"tenant_id,omitempty"`
	Domain    string       `json:"domain"`
	URL       string       `json:"url"`
	Timestamp time.Time    `json:"timestamp"`
	Action    string       `json:"action,omitempty"`
	EventType EventType    `json:"event_type"`
	Details   EventDetails `json:"event_details,omitempty"`
	RiskScore *int         `json:"risk_score,omitempty"`
	IP        string       `json:"ip,omitempty"`
	City      string       `json:"city,omitempty"`
	Country   string       `json:"country,omitempty"`

	// PolicyInfo carries the decision metadata attached when the event
	// was blocked (policy reference or prohibited-list category).
	PolicyInfo *PolicyInfo `json:"policy_info,omitempty"`
}

// PolicyInfo is the audit detail stored alongside a blocked event.
type PolicyInfo struct {
	PolicyID    string `json:"policy_id,omitempty"`
	Action      string `json:"action,omitempty"`
	BlockReason string `json:"block_reason,omitempty"`
	Category    string `json:"category,omitempty"`
}

// Event actions as recorded by the browser extension. The wire values
// are the original Spanish ones; do not translate stored rows.
const (
	ActionVisited = "visitado"
	ActionBlocked = "bloqueado"
)
