package models

import "github.com/golang-jwt/jwt/v5"

// UserRole enumerates the roles consumed by the capability check.
type UserRole string

// Supported roles.
const (
	RoleAdmin      UserRole = "ADMIN"
	RoleMentor     UserRole = "MENTOR"
	RoleController UserRole = "CONTROLLER"
)

// JWTClaims represents the JWT payload for access tokens issued by the
// identity provider. Token issuance itself happens outside this service.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}

// Actor captures the identity and client context behind a mutating call.
// It is threaded explicitly through every lifecycle operation so audit
// entries are deterministic under test.
type Actor struct {
	ID        string
	Role      UserRole
	IPAddress string
	UserAgent string
}

// System is the actor recorded for scheduler-driven transitions.
var System = Actor{}

// IsSystem reports whether the actor is the background system itself.
func (a Actor) IsSystem() bool {
	return a.ID == ""
}

// Ref returns a nullable reference suitable for audit storage.
func (a Actor) Ref() *string {
	if a.IsSystem() {
		return nil
	}
	id := a.ID
	return &id
}
