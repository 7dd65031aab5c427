package models

import "fmt"

// Role identifies a player's side in the even/odd game. The role decides
// which sum parity wins a round and is stable for the life of a match.
type Role string

const (
	RoleOdd  Role = "ODD"
	RoleEven Role = "EVEN"
)

// Legacy role aliases still emitted by older agents. They are accepted on
// the wire and normalized on receipt: PLAYER_A maps to ODD, PLAYER_B to EVEN.
const (
	legacyRoleA = "PLAYER_A"
	legacyRoleB = "PLAYER_B"
)

// ParseRole normalizes a wire role tag, accepting the legacy aliases.
func ParseRole(s string) (Role, error) {
	switch s {
	case string(RoleOdd), legacyRoleA:
		return RoleOdd, nil
	case string(RoleEven), legacyRoleB:
		return RoleEven, nil
	default:
		return "", fmt.Errorf("unknown role tag: %q", s)
	}
}

// Opposite returns the other side of the game.
func (r Role) Opposite() Role {
	if r == RoleOdd {
		return RoleEven
	}
	return RoleOdd
}

func (r Role) String() string {
	return string(r)
}
