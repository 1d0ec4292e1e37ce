package models

import "github.com/golang-jwt/jwt/v5"

// Roles recognised in access tokens.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Claims is the JWT claims structure issued by the identity provider.
type Claims struct {
	jwt.RegisteredClaims          // Standard JWT claims (sub, iss, aud, exp, iat, etc.)
	Email                string   `json:"email"`
	Role                 string   `json:"role"`
	OrganizationID       string   `json:"organization_id"`
	GroupIDs             []string `json:"group_ids"`
}

// GetUserID returns the user ID from the JWT subject claim.
func (c *Claims) GetUserID() string {
	return c.Subject
}

// Principal is the authenticated caller as seen by services.
type Principal struct {
	UserID         string
	Role           string
	OrganizationID string
	GroupIDs       []string
}

// IsAdmin reports whether the caller holds the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// InGroup reports whether the caller belongs to the group.
func (p Principal) InGroup(groupID string) bool {
	for _, g := range p.GroupIDs {
		if g == groupID {
			return true
		}
	}
	return false
}

// PrincipalFromClaims converts verified claims to a Principal.
func PrincipalFromClaims(c *Claims) Principal {
	role := c.Role
	if role != RoleAdmin {
		role = RoleUser
	}
	return Principal{
		UserID:         c.GetUserID(),
		Role:           role,
		OrganizationID: c.OrganizationID,
		GroupIDs:       c.GroupIDs,
	}
}
