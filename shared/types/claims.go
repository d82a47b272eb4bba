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

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the authenticated caller's identity as established by the
// transport layer. Signature verification happens upstream; this type
// only maps an already-verified token into a structured value the
// decision core can scope on.
type Claims struct {
	// Subject is the caller's user ID (JWT "sub").
	Subject string `json:"sub"`
	Email   string `json:"email,omitempty"`
	Role    Role   `json:"role"`
	// TenantID is empty for tenant-less athos_owner/admin accounts.
	TenantID string `json:"tenant_id,omitempty"`
}

// ClaimsFromToken extracts Claims from a verified JWT. It fails when the
// token carries no usable role; a missing tenant_id is legal for
// athos_owner and admin, an error for everyone else.
func ClaimsFromToken(token *jwt.Token) (Claims, error) {
	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, fmt.Errorf("unsupported claims type %T", token.Claims)
	}

	sub, _ := mc.GetSubject()
	c := Claims{Subject: sub}

	if email, ok := mc["email"].(string); ok {
		c.Email = email
	}
	if role, ok := mc["role"].(string); ok {
		c.Role = Role(role)
	}
	if tenantID, ok := mc["tenant_id"].(string); ok {
		c.TenantID = tenantID
	}

	if err := c.Validate(); err != nil {
		return Claims{}, err
	}
	return c, nil
}

// Validate checks structural consistency of the claims.
func (c Claims) Validate() error {
	if c.Subject == "" {
		return fmt.Errorf("claims missing subject")
	}
	if !c.Role.IsValid() {
		return fmt.Errorf("claims carry unknown role %q", c.Role)
	}
	if c.TenantID == "" && (c.Role == RoleClient || c.Role == RoleUser) {
		return fmt.Errorf("role %s requires a tenant_id", c.Role)
	}
	return nil
}

// TenantBound reports whether the caller is pinned to a single tenant.
func (c Claims) TenantBound() bool {
	return c.Role == RoleClient || c.Role == RoleUser
}
