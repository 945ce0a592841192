package domain

import (
	"encoding/json"
	"strings"

	dErrors "petcare/pkg/domain-errors"
)

// Role is a closed set of account roles. The zero value is not a valid role,
// so an uninitialised caller never matches a role check.
type Role uint8

const (
	RoleUnknown Role = iota
	RoleOwner
	RoleVet
	RoleShelter
	RoleAdmin
)

var roleNames = map[Role]string{
	RoleOwner:   "owner",
	RoleVet:     "vet",
	RoleShelter: "shelter",
	RoleAdmin:   "admin",
}

// ParseRole converts external input into a Role.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "owner":
		return RoleOwner, nil
	case "vet":
		return RoleVet, nil
	case "shelter":
		return RoleShelter, nil
	case "admin":
		return RoleAdmin, nil
	default:
		return RoleUnknown, dErrors.New(dErrors.CodeInvalidInput, "unknown role: "+s)
	}
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "unknown"
}

func (r Role) IsValid() bool {
	_, ok := roleNames[r]
	return ok
}

func (r Role) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *Role) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Roles renders a role list for logs and audit detail.
func Roles(roles []Role) []string {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		out = append(out, r.String())
	}
	return out
}
