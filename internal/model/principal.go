package model

import "github.com/google/uuid"

type Role string

const (
	RoleMechanic Role = "MECHANIC"
	RoleOffice   Role = "OFFICE"
	RoleManager  Role = "MANAGER"
	RoleAdmin    Role = "ADMIN"
)

// Principal is the authenticated caller extracted from the access token.
type Principal struct {
	UserID    uuid.UUID
	CompanyID uuid.UUID
	Role      Role
}

func (p Principal) IsMechanic() bool { return p.Role == RoleMechanic }
func (p Principal) IsOffice() bool   { return p.Role == RoleOffice }
func (p Principal) IsManager() bool  { return p.Role == RoleManager }
func (p Principal) IsAdmin() bool    { return p.Role == RoleAdmin }

// CanIssueDocuments reports whether the caller may create, revise or
// transition quotes and invoices. Mechanics get read-only access.
func (p Principal) CanIssueDocuments() bool {
	return p.Role == RoleOffice || p.Role == RoleManager || p.Role == RoleAdmin
}
