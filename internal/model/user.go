package model

import "time"

// Role names as stored in users.role.
const (
	RoleClimber    = "CLIMBER"
	RoleGuide      = "GUIDE"
	RoleAdmin      = "ADMIN"
	RoleSuperAdmin = "SUPER_ADMIN"
)

// ValidRole reports whether r is one of the known role names.
func ValidRole(r string) bool {
	switch r {
	case RoleClimber, RoleGuide, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// IsAdminRole reports whether r may manage platform content.  SUPER_ADMIN
// carries every ADMIN permission.
func IsAdminRole(r string) bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// User represents a row of the `users` table.  PasswordHash never leaves
// the process; handlers serialise User directly because the field is
// excluded from JSON.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	Email        – unique, lower-cased email address.
//	PasswordHash – bcrypt hash.
//	Name         – display name (nullable).
//	Role         – CLIMBER, GUIDE, ADMIN or SUPER_ADMIN.
//	Image        – avatar URL (nullable).
//	Bio, Phone   – optional profile text.
//	IsActive     – whether the account may sign in.
type User struct {
	ID           uint64    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         *string   `json:"name"`
	Role         string    `json:"role"`
	Image        *string   `json:"image"`
	Bio          *string   `json:"bio"`
	Phone        *string   `json:"phone"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`

	Count *UserCounts `json:"_count,omitempty"`
}

// UserCounts aggregates the rows a user owns.
type UserCounts struct {
	SummitRecords  int `json:"summitRecords"`
	Bookings       int `json:"bookings"`
	Certificates   int `json:"certificates"`
	Rentals        int `json:"rentals"`
	CommunityPosts int `json:"communityPosts"`
}

// UserSummary is the public projection of a user embedded in other
// resources (post authors, expedition guides, certificate holders).
type UserSummary struct {
	ID    uint64  `json:"id"`
	Name  *string `json:"name"`
	Image *string `json:"image"`
	Bio   *string `json:"bio,omitempty"`
	Email string  `json:"email,omitempty"`
}

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA-256 hash of the raw token is stored.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
