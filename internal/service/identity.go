package service

import "github.com/otomatiktech/consult-booking/internal/model"

// Identity is the authenticated caller, extracted from the JWT claims
// by the HTTP layer.
type Identity struct {
	UserID uint64
	Email  string
	Role   string
}

// IsAdmin reports whether the caller holds the admin role.
func (i Identity) IsAdmin() bool { return i.Role == model.RoleAdmin }
