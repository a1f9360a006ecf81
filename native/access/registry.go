package access

import (
	"errors"
	"fmt"
	"strings"

	"kudomarket/core/events"
	"kudomarket/core/types"
)

// Role identifiers understood by the marketplace. RoleAdmin is the only role
// allowed to grant or revoke membership and to flip pause or capability
// switches; RoleMinter may create cards and rewrite metadata subject to the
// capability flags.
const (
	RoleAdmin  = "ROLE_ADMIN"
	RoleMinter = "ROLE_MINTER"
)

// Capability flags that can be revoked exactly once. There is no un-revoke
// operation; once set the gated ability is gone for everyone, admins included.
const (
	CapabilitySetTokenURI     = "capability.set_token_uri"
	CapabilityApprovedMarkets = "capability.approved_markets"
)

var (
	// ErrNotAdmin rejects grants, revocations and flag flips from non-admins.
	ErrNotAdmin = errors.New("access: caller is not an admin")
	// ErrAlreadyRevoked rejects revoking a capability twice.
	ErrAlreadyRevoked = errors.New("access: already revoked")
	// ErrAbilityRevoked rejects use of a capability after its flag is set.
	ErrAbilityRevoked = errors.New("access: ability revoked")
	// ErrEmptyRole rejects blank role identifiers.
	ErrEmptyRole = errors.New("access: role must not be empty")
	// ErrUnknownCapability rejects flags outside the supported set.
	ErrUnknownCapability = errors.New("access: unknown capability")

	errNilState = errors.New("access registry: state not configured")
)

type registryState interface {
	RoleAdd(role string, addr [20]byte) error
	RoleRemove(role string, addr [20]byte) error
	RoleHas(role string, addr [20]byte) (bool, error)
	RoleMembers(role string) ([][20]byte, error)
	CapabilityRevoked(flag string) (bool, error)
	CapabilityRevoke(flag string) error
}

type accessEvent struct {
	evt *types.Event
}

func (e accessEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e accessEvent) Event() *types.Event { return e.evt }

// Registry gates role membership and one-way capability flags. All mutating
// operations take the effective caller explicitly so direct and relayed calls
// share a single authorization path.
type Registry struct {
	state   registryState
	emitter events.Emitter
}

// NewRegistry creates a registry with a no-op emitter. Callers can override
// the emitter via SetEmitter.
func NewRegistry() *Registry {
	return &Registry{emitter: events.NoopEmitter{}}
}

// SetState configures the state backend used by the registry.
func (r *Registry) SetState(state registryState) { r.state = state }

// SetEmitter configures the event emitter used by the registry. Passing nil
// resets the emitter to a no-op implementation.
func (r *Registry) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		r.emitter = events.NoopEmitter{}
		return
	}
	r.emitter = emitter
}

func (r *Registry) emit(event *types.Event) {
	if r == nil || r.emitter == nil || event == nil {
		return
	}
	r.emitter.Emit(accessEvent{evt: event})
}

func normalizeRole(role string) (string, error) {
	trimmed := strings.TrimSpace(role)
	if trimmed == "" {
		return "", ErrEmptyRole
	}
	return trimmed, nil
}

func normalizeCapability(flag string) (string, error) {
	trimmed := strings.TrimSpace(flag)
	switch trimmed {
	case CapabilitySetTokenURI, CapabilityApprovedMarkets:
		return trimmed, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownCapability, flag)
	}
}

// HasRole reports whether the address holds the role. Lookup errors degrade to
// false, matching the best-effort semantics expected by authorization checks.
func (r *Registry) HasRole(role string, addr [20]byte) bool {
	if r == nil || r.state == nil {
		return false
	}
	trimmed, err := normalizeRole(role)
	if err != nil {
		return false
	}
	ok, err := r.state.RoleHas(trimmed, addr)
	if err != nil {
		return false
	}
	return ok
}

// RoleMembers returns all addresses assigned to the provided role.
func (r *Registry) RoleMembers(role string) ([][20]byte, error) {
	if r == nil || r.state == nil {
		return nil, errNilState
	}
	trimmed, err := normalizeRole(role)
	if err != nil {
		return nil, err
	}
	return r.state.RoleMembers(trimmed)
}

func (r *Registry) requireAdmin(caller [20]byte) error {
	if !r.HasRole(RoleAdmin, caller) {
		return ErrNotAdmin
	}
	return nil
}

// GrantRole assigns the role to the address. Only administrators may grant.
// Duplicate grants are accepted and change nothing.
func (r *Registry) GrantRole(caller [20]byte, role string, addr [20]byte) error {
	if r == nil || r.state == nil {
		return errNilState
	}
	trimmed, err := normalizeRole(role)
	if err != nil {
		return err
	}
	if err := r.requireAdmin(caller); err != nil {
		return err
	}
	if err := r.state.RoleAdd(trimmed, addr); err != nil {
		return err
	}
	r.emit(NewRoleGrantedEvent(trimmed, caller, addr))
	return nil
}

// RevokeRole removes the role from the address. Only administrators may
// revoke. Removing an absent membership changes nothing.
func (r *Registry) RevokeRole(caller [20]byte, role string, addr [20]byte) error {
	if r == nil || r.state == nil {
		return errNilState
	}
	trimmed, err := normalizeRole(role)
	if err != nil {
		return err
	}
	if err := r.requireAdmin(caller); err != nil {
		return err
	}
	if err := r.state.RoleRemove(trimmed, addr); err != nil {
		return err
	}
	r.emit(NewRoleRevokedEvent(trimmed, caller, addr))
	return nil
}

// AbilityRevoked reports whether the capability flag has been permanently
// switched off.
func (r *Registry) AbilityRevoked(flag string) bool {
	if r == nil || r.state == nil {
		return false
	}
	normalized, err := normalizeCapability(flag)
	if err != nil {
		return false
	}
	revoked, err := r.state.CapabilityRevoked(normalized)
	if err != nil {
		return false
	}
	return revoked
}

// RequireAbility fails with ErrAbilityRevoked when the capability flag is set.
// Gated operations consult this before any role check so that even admins are
// rejected once a flag flips.
func (r *Registry) RequireAbility(flag string) error {
	normalized, err := normalizeCapability(flag)
	if err != nil {
		return err
	}
	if r.AbilityRevoked(normalized) {
		return ErrAbilityRevoked
	}
	return nil
}

// RevokeAbility permanently switches the capability flag off. Only
// administrators may revoke, and revoking twice fails with ErrAlreadyRevoked.
func (r *Registry) RevokeAbility(caller [20]byte, flag string) error {
	if r == nil || r.state == nil {
		return errNilState
	}
	normalized, err := normalizeCapability(flag)
	if err != nil {
		return err
	}
	if err := r.requireAdmin(caller); err != nil {
		return err
	}
	revoked, err := r.state.CapabilityRevoked(normalized)
	if err != nil {
		return err
	}
	if revoked {
		return ErrAlreadyRevoked
	}
	if err := r.state.CapabilityRevoke(normalized); err != nil {
		return err
	}
	r.emit(NewAbilityRevokedEvent(normalized, caller))
	return nil
}
