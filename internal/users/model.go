package users

import "time"

// Role is the coarse permission level of a user. Roles are assigned out of band.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// ImpersonationMode selects how an admin's document queries are scoped.
// SELF scopes an admin to their own documents; USER or unset means unrestricted.
type ImpersonationMode string

const (
	ModeSelf ImpersonationMode = "SELF"
	ModeUser ImpersonationMode = "USER"
)

// Valid reports whether m is one of the persisted modes.
func (m ImpersonationMode) Valid() bool {
	return m == ModeSelf || m == ModeUser
}

type User struct {
	ID                       string            `json:"id"`
	Email                    string            `json:"email"`
	Name                     string            `json:"name,omitempty"`
	ImageURL                 string            `json:"image,omitempty"`
	Role                     Role              `json:"role"`
	CurrentImpersonationMode ImpersonationMode `json:"currentImpersonationMode,omitempty"`
	CreatedAt                time.Time         `json:"createdAt"`
	UpdatedAt                time.Time         `json:"updatedAt"`
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// DisplayName returns the name, falling back to the email.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

// Projection is the reduced view returned after an impersonation switch.
type Projection struct {
	ID                       string            `json:"id"`
	Role                     Role              `json:"role"`
	CurrentImpersonationMode ImpersonationMode `json:"currentImpersonationMode"`
}

// Project returns the id/role/mode projection of u.
func (u User) Project() Projection {
	return Projection{
		ID:                       u.ID,
		Role:                     u.Role,
		CurrentImpersonationMode: u.CurrentImpersonationMode,
	}
}
