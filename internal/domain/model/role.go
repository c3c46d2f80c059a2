package model

import "strings"

// Role is the participant role an address holds on the ledger.
type Role int

const (
	RoleNone Role = iota
	RoleManufacturer
	RoleMiddleman
	RoleConsumer
	// RoleUnknown is returned for raw ledger values that do not map to a
	// known role. It never grants any permission.
	RoleUnknown
)

var roleNames = map[Role]string{
	RoleNone:         "none",
	RoleManufacturer: "manufacturer",
	RoleMiddleman:    "middleman",
	RoleConsumer:     "consumer",
	RoleUnknown:      "unknown",
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "unknown"
}

// ParseRole maps a raw role string to a Role. Matching is exact after
// trimming and lower-casing; an empty string is RoleNone.
func ParseRole(raw string) Role {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "none":
		return RoleNone
	case "manufacturer":
		return RoleManufacturer
	case "middleman":
		return RoleMiddleman
	case "consumer":
		return RoleConsumer
	default:
		return RoleUnknown
	}
}

// IsParticipant reports whether r is one of the three assignable roles.
func (r Role) IsParticipant() bool {
	return r == RoleManufacturer || r == RoleMiddleman || r == RoleConsumer
}

// LedgerName is the string stored by the contract for r.
func (r Role) LedgerName() string {
	switch r {
	case RoleManufacturer:
		return "Manufacturer"
	case RoleMiddleman:
		return "Middleman"
	case RoleConsumer:
		return "Consumer"
	default:
		return ""
	}
}

func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	*r = ParseRole(string(text))
	return nil
}
