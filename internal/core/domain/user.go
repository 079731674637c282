package domain

import "github.com/google/uuid"

// User is the core's read-only view of a record owned by the identity service.
type User struct {
	ID         uuid.UUID `json:"id"`
	PINHash    *string   `json:"-"` // nil until the user sets a PIN
	SCAEnabled bool      `json:"sca_enabled"`
}

// HasPIN reports whether a PIN hash has been provisioned.
func (u *User) HasPIN() bool {
	return u.PINHash != nil && *u.PINHash != ""
}

// Role is the caller's privilege level, carried in the session token.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
	RoleSystem   Role = "system"
)

// SystemActorID is the principal that owns the trust account and drives
// custodian-initiated movements (voucher redemption, funding).
var SystemActorID = uuid.MustParse("00000000-0000-0000-0000-00000000ffff")
