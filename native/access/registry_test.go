package access

import (
	"errors"
	"testing"
)

type mockRoleState struct {
	roles        map[string]map[[20]byte]bool
	capabilities map[string]bool
}

func newMockRoleState() *mockRoleState {
	return &mockRoleState{
		roles:        make(map[string]map[[20]byte]bool),
		capabilities: make(map[string]bool),
	}
}

func (m *mockRoleState) RoleAdd(role string, addr [20]byte) error {
	if m.roles[role] == nil {
		m.roles[role] = make(map[[20]byte]bool)
	}
	m.roles[role][addr] = true
	return nil
}

func (m *mockRoleState) RoleRemove(role string, addr [20]byte) error {
	delete(m.roles[role], addr)
	return nil
}

func (m *mockRoleState) RoleHas(role string, addr [20]byte) (bool, error) {
	return m.roles[role][addr], nil
}

func (m *mockRoleState) RoleMembers(role string) ([][20]byte, error) {
	members := make([][20]byte, 0, len(m.roles[role]))
	for addr := range m.roles[role] {
		members = append(members, addr)
	}
	return members, nil
}

func (m *mockRoleState) CapabilityRevoked(flag string) (bool, error) {
	return m.capabilities[flag], nil
}

func (m *mockRoleState) CapabilityRevoke(flag string) error {
	m.capabilities[flag] = true
	return nil
}

func testAddr(fill byte) [20]byte {
	var addr [20]byte
	for i := range addr {
		addr[i] = fill
	}
	return addr
}

func newTestRegistry(t *testing.T) (*Registry, *mockRoleState, [20]byte) {
	t.Helper()
	state := newMockRoleState()
	admin := testAddr(0xAD)
	if err := state.RoleAdd(RoleAdmin, admin); err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	registry := NewRegistry()
	registry.SetState(state)
	return registry, state, admin
}

func TestGrantAndRevokeRole(t *testing.T) {
	registry, _, admin := newTestRegistry(t)
	minter := testAddr(0x01)

	if registry.HasRole(RoleMinter, minter) {
		t.Fatalf("minter role must start unset")
	}
	if err := registry.GrantRole(admin, RoleMinter, minter); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if !registry.HasRole(RoleMinter, minter) {
		t.Fatalf("grant did not take effect")
	}

	// Duplicate grants are accepted and change nothing.
	if err := registry.GrantRole(admin, RoleMinter, minter); err != nil {
		t.Fatalf("duplicate grant: %v", err)
	}

	if err := registry.RevokeRole(admin, RoleMinter, minter); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if registry.HasRole(RoleMinter, minter) {
		t.Fatalf("revoke did not take effect")
	}
	// Revoking an absent membership is a no-op, not an error.
	if err := registry.RevokeRole(admin, RoleMinter, minter); err != nil {
		t.Fatalf("revoke absent: %v", err)
	}
}

func TestRoleMutationsRequireAdmin(t *testing.T) {
	registry, _, _ := newTestRegistry(t)
	stranger := testAddr(0x05)
	target := testAddr(0x06)

	if err := registry.GrantRole(stranger, RoleMinter, target); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("expected ErrNotAdmin on grant, got %v", err)
	}
	if err := registry.RevokeRole(stranger, RoleMinter, target); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("expected ErrNotAdmin on revoke, got %v", err)
	}
	if err := registry.RevokeAbility(stranger, CapabilitySetTokenURI); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("expected ErrNotAdmin on capability revoke, got %v", err)
	}
}

func TestBlankRoleRejected(t *testing.T) {
	registry, _, admin := newTestRegistry(t)
	if err := registry.GrantRole(admin, "  ", testAddr(0x01)); !errors.Is(err, ErrEmptyRole) {
		t.Fatalf("expected ErrEmptyRole, got %v", err)
	}
	if registry.HasRole("", testAddr(0x01)) {
		t.Fatalf("blank role lookup must report false")
	}
}

func TestAdminCanRevokeOwnAdminRole(t *testing.T) {
	registry, _, admin := newTestRegistry(t)
	second := testAddr(0x02)
	if err := registry.GrantRole(admin, RoleAdmin, second); err != nil {
		t.Fatalf("grant second admin: %v", err)
	}
	if err := registry.RevokeRole(admin, RoleAdmin, admin); err != nil {
		t.Fatalf("self revoke: %v", err)
	}
	if registry.HasRole(RoleAdmin, admin) {
		t.Fatalf("self revoke did not take effect")
	}
	// The demoted admin can no longer administer roles.
	if err := registry.GrantRole(admin, RoleMinter, testAddr(0x03)); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("expected ErrNotAdmin after self revoke, got %v", err)
	}
}

func TestCapabilityRevocationIsOneWay(t *testing.T) {
	registry, _, admin := newTestRegistry(t)

	if registry.AbilityRevoked(CapabilitySetTokenURI) {
		t.Fatalf("capability must start enabled")
	}
	if err := registry.RequireAbility(CapabilitySetTokenURI); err != nil {
		t.Fatalf("require enabled ability: %v", err)
	}

	if err := registry.RevokeAbility(admin, CapabilitySetTokenURI); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if !registry.AbilityRevoked(CapabilitySetTokenURI) {
		t.Fatalf("revocation did not take effect")
	}
	if err := registry.RequireAbility(CapabilitySetTokenURI); !errors.Is(err, ErrAbilityRevoked) {
		t.Fatalf("expected ErrAbilityRevoked, got %v", err)
	}
	if err := registry.RevokeAbility(admin, CapabilitySetTokenURI); !errors.Is(err, ErrAlreadyRevoked) {
		t.Fatalf("expected ErrAlreadyRevoked, got %v", err)
	}

	// The other flag is unaffected.
	if registry.AbilityRevoked(CapabilityApprovedMarkets) {
		t.Fatalf("unrelated capability must stay enabled")
	}
}

func TestUnknownCapabilityRejected(t *testing.T) {
	registry, _, admin := newTestRegistry(t)
	if err := registry.RevokeAbility(admin, "capability.bogus"); !errors.Is(err, ErrUnknownCapability) {
		t.Fatalf("expected ErrUnknownCapability, got %v", err)
	}
	if err := registry.RequireAbility("capability.bogus"); !errors.Is(err, ErrUnknownCapability) {
		t.Fatalf("expected ErrUnknownCapability from RequireAbility, got %v", err)
	}
}

func TestRoleMembers(t *testing.T) {
	registry, _, admin := newTestRegistry(t)
	a := testAddr(0x01)
	b := testAddr(0x02)
	if err := registry.GrantRole(admin, RoleMinter, a); err != nil {
		t.Fatalf("grant a: %v", err)
	}
	if err := registry.GrantRole(admin, RoleMinter, b); err != nil {
		t.Fatalf("grant b: %v", err)
	}
	members, err := registry.RoleMembers(RoleMinter)
	if err != nil {
		t.Fatalf("members: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(members))
	}
}
