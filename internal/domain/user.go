package domain

import (
	"time"

	"golang.org/x/text/cases"
)

// AdminAssociation is the associatedServices value that grants admin rights.
const AdminAssociation = "Admin"

// IsAdminAssociation reports whether associatedServices names the admin role.
// The comparison is case-insensitive.
func IsAdminAssociation(associatedServices string) bool {
	caser := cases.Fold()
	return caser.String(associatedServices) == caser.String(AdminAssociation)
}

// User is a staff member with access to the admin panel.
// Password holds the bcrypt hash and is never serialized.
type User struct {
	ID                 string    `json:"_id"`
	Email              string    `json:"email"`
	Password           string    `json:"-"`
	AssociatedServices string    `json:"associatedServices"`
	IsAdmin            bool      `json:"isAdmin"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID             string
	Email              string
	IsAdmin            bool
	AssociatedServices string
}

// CanManageService reports whether the principal may write incidents for serviceName.
func (p *Principal) CanManageService(serviceName string) bool {
	return p.IsAdmin || p.AssociatedServices == serviceName
}
