package access

import (
	"encoding/hex"

	"kudomarket/core/types"
)

const (
	EventTypeRoleGranted    = "access.role.granted"
	EventTypeRoleRevoked    = "access.role.revoked"
	EventTypeAbilityRevoked = "access.ability.revoked"
)

// NewRoleGrantedEvent returns the canonical payload for a role grant.
func NewRoleGrantedEvent(role string, actor, member [20]byte) *types.Event {
	return &types.Event{Type: EventTypeRoleGranted, Attributes: map[string]string{
		"role":   role,
		"actor":  hex.EncodeToString(actor[:]),
		"member": hex.EncodeToString(member[:]),
	}}
}

// NewRoleRevokedEvent returns the canonical payload for a role revocation.
func NewRoleRevokedEvent(role string, actor, member [20]byte) *types.Event {
	return &types.Event{Type: EventTypeRoleRevoked, Attributes: map[string]string{
		"role":   role,
		"actor":  hex.EncodeToString(actor[:]),
		"member": hex.EncodeToString(member[:]),
	}}
}

// NewAbilityRevokedEvent returns the canonical payload emitted when a
// capability flag is permanently switched off.
func NewAbilityRevokedEvent(flag string, actor [20]byte) *types.Event {
	return &types.Event{Type: EventTypeAbilityRevoked, Attributes: map[string]string{
		"capability": flag,
		"actor":      hex.EncodeToString(actor[:]),
	}}
}
