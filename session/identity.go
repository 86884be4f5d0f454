package session

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Role is an admin's role as issued by the backend.
type Role string

const (
	RoleSuperAdmin     Role = "super_admin"
	RoleSellerVerifier Role = "seller_verifier"
	RoleAdmin          Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleSellerVerifier, RoleAdmin:
		return true
	}
	return false
}

// IdentityID accepts both string and numeric ids from the backend.
type IdentityID string

func (id *IdentityID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = IdentityID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("identity id must be a string or number: %w", err)
	}
	*id = IdentityID(n.String())
	return nil
}

// Identity is the admin the session belongs to. It is owned by the Store and
// handed out as copies only.
type Identity struct {
	ID    IdentityID `json:"id"`
	Name  string     `json:"name"`
	Email string     `json:"email"`
	Role  Role       `json:"role"`
}

func (i *Identity) clone() *Identity {
	if i == nil {
		return nil
	}
	c := *i
	return &c
}

// HasRole reports whether the identity carries exactly the given role.
func (i *Identity) HasRole(role Role) bool {
	return i != nil && i.Role == role
}
