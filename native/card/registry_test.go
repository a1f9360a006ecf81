package card

import (
	"errors"
	"math/big"
	"testing"

	"kudomarket/native/access"
)

type mockCardState struct {
	cards       map[uint64]*Card
	uris        map[string]bool
	approvals   map[uint64][20]byte
	markets     map[[20]byte]bool
	royalty     RoyaltyConfig
	hasConfig   bool
	nextID      uint64
	contractURI string
}

func newMockCardState() *mockCardState {
	return &mockCardState{
		cards:     make(map[uint64]*Card),
		uris:      make(map[string]bool),
		approvals: make(map[uint64][20]byte),
		markets:   make(map[[20]byte]bool),
	}
}

func (m *mockCardState) CardPut(c *Card) error {
	m.cards[c.TokenID] = c.Clone()
	return nil
}

func (m *mockCardState) CardGet(tokenID uint64) (*Card, bool) {
	c, ok := m.cards[tokenID]
	if !ok {
		return nil, false
	}
	return c.Clone(), true
}

func (m *mockCardState) CardNextID() (uint64, error) {
	m.nextID++
	return m.nextID, nil
}

func (m *mockCardState) CardURITaken(uri string) (bool, error) { return m.uris[uri], nil }
func (m *mockCardState) CardURIReserve(uri string) error       { m.uris[uri] = true; return nil }
func (m *mockCardState) CardURIRelease(uri string) error       { delete(m.uris, uri); return nil }

func (m *mockCardState) CardApprovalPut(tokenID uint64, operator [20]byte) error {
	m.approvals[tokenID] = operator
	return nil
}

func (m *mockCardState) CardApprovalGet(tokenID uint64) ([20]byte, error) {
	return m.approvals[tokenID], nil
}

func (m *mockCardState) ApprovedMarketSet(market [20]byte, approved bool) error {
	m.markets[market] = approved
	return nil
}

func (m *mockCardState) ApprovedMarket(market [20]byte) (bool, error) {
	return m.markets[market], nil
}

func (m *mockCardState) RoyaltyPut(cfg RoyaltyConfig) error {
	m.royalty = cfg
	m.hasConfig = true
	return nil
}

func (m *mockCardState) RoyaltyGet() (RoyaltyConfig, bool, error) {
	return m.royalty, m.hasConfig, nil
}

func (m *mockCardState) ContractURIPut(uri string) error { m.contractURI = uri; return nil }
func (m *mockCardState) ContractURIGet() (string, error) { return m.contractURI, nil }

type mockAccess struct {
	admins  map[[20]byte]bool
	minters map[[20]byte]bool
	revoked map[string]bool
}

func newMockAccess() *mockAccess {
	return &mockAccess{
		admins:  make(map[[20]byte]bool),
		minters: make(map[[20]byte]bool),
		revoked: make(map[string]bool),
	}
}

func (m *mockAccess) HasRole(role string, addr [20]byte) bool {
	switch role {
	case access.RoleAdmin:
		return m.admins[addr]
	case access.RoleMinter:
		return m.minters[addr]
	default:
		return false
	}
}

func (m *mockAccess) RequireAbility(flag string) error {
	if m.revoked[flag] {
		return access.ErrAbilityRevoked
	}
	return nil
}

func testAddr(fill byte) [20]byte {
	var addr [20]byte
	for i := range addr {
		addr[i] = fill
	}
	return addr
}

type cardEnv struct {
	registry *Registry
	state    *mockCardState
	roles    *mockAccess
	admin    [20]byte
	minter   [20]byte
}

func newCardEnv(t *testing.T) *cardEnv {
	t.Helper()
	env := &cardEnv{
		state:  newMockCardState(),
		roles:  newMockAccess(),
		admin:  testAddr(0xAD),
		minter: testAddr(0xA1),
	}
	env.roles.admins[env.admin] = true
	env.roles.minters[env.minter] = true

	registry := NewRegistry()
	registry.SetState(env.state)
	registry.SetRoles(env.roles)
	env.registry = registry
	return env
}

func TestSafeMintAssignsSequentialIDs(t *testing.T) {
	env := newCardEnv(t)
	holder := testAddr(0x01)

	first, err := env.registry.SafeMint(env.minter, holder, "ipfs://card-1")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	second, err := env.registry.SafeMint(env.minter, holder, "ipfs://card-2")
	if err != nil {
		t.Fatalf("second mint: %v", err)
	}
	if first != 1 || second != 2 {
		t.Fatalf("expected ids 1 and 2, got %d and %d", first, second)
	}
	owner, err := env.registry.OwnerOf(first)
	if err != nil {
		t.Fatalf("owner: %v", err)
	}
	if owner != holder {
		t.Fatalf("unexpected owner")
	}
}

func TestMintRequiresMinterRole(t *testing.T) {
	env := newCardEnv(t)
	if _, err := env.registry.SafeMint(testAddr(0x05), testAddr(0x01), "ipfs://x"); !errors.Is(err, ErrNotMinter) {
		t.Fatalf("expected ErrNotMinter, got %v", err)
	}
	// Admin role alone does not confer minting rights.
	if _, err := env.registry.SafeMint(env.admin, testAddr(0x01), "ipfs://x"); !errors.Is(err, ErrNotMinter) {
		t.Fatalf("expected ErrNotMinter for admin, got %v", err)
	}
}

func TestMintRejectsDuplicateAndBlankURIs(t *testing.T) {
	env := newCardEnv(t)
	holder := testAddr(0x01)

	if _, err := env.registry.SafeMint(env.minter, holder, "ipfs://unique"); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := env.registry.SafeMint(env.minter, holder, "ipfs://unique"); !errors.Is(err, ErrDuplicateTokenURI) {
		t.Fatalf("expected ErrDuplicateTokenURI, got %v", err)
	}
	// URI comparison ignores surrounding whitespace.
	if _, err := env.registry.SafeMint(env.minter, holder, "  ipfs://unique  "); !errors.Is(err, ErrDuplicateTokenURI) {
		t.Fatalf("expected ErrDuplicateTokenURI for padded URI, got %v", err)
	}
	if _, err := env.registry.SafeMint(env.minter, holder, "   "); err == nil {
		t.Fatalf("expected blank URI to fail")
	}
	if _, err := env.registry.SafeMint(env.minter, [20]byte{}, "ipfs://other"); !errors.Is(err, ErrInvalidRecipient) {
		t.Fatalf("expected ErrInvalidRecipient, got %v", err)
	}
}

func TestBatchMintIsAllOrNothing(t *testing.T) {
	env := newCardEnv(t)
	holder := testAddr(0x01)

	if _, err := env.registry.SafeMint(env.minter, holder, "ipfs://taken"); err != nil {
		t.Fatalf("seed mint: %v", err)
	}
	before := len(env.state.cards)

	_, err := env.registry.BatchMint(env.minter, holder, []string{"ipfs://a", "ipfs://taken", "ipfs://b"})
	if !errors.Is(err, ErrDuplicateTokenURI) {
		t.Fatalf("expected ErrDuplicateTokenURI, got %v", err)
	}
	if len(env.state.cards) != before {
		t.Fatalf("failed batch must not mint anything")
	}

	// Intra-batch duplicates fail too.
	_, err = env.registry.BatchMint(env.minter, holder, []string{"ipfs://c", "ipfs://c"})
	if !errors.Is(err, ErrDuplicateTokenURI) {
		t.Fatalf("expected ErrDuplicateTokenURI for intra-batch duplicate, got %v", err)
	}

	ids, err := env.registry.BatchMint(env.minter, holder, []string{"ipfs://d", "ipfs://e"})
	if err != nil {
		t.Fatalf("batch mint: %v", err)
	}
	if len(ids) != 2 || ids[1] != ids[0]+1 {
		t.Fatalf("expected two sequential ids, got %v", ids)
	}
}

func TestSetTokenURIs(t *testing.T) {
	env := newCardEnv(t)
	holder := testAddr(0x01)
	id, err := env.registry.SafeMint(env.minter, holder, "ipfs://old")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	if err := env.registry.SetTokenURIs(env.minter, []uint64{id}, []string{"ipfs://new"}); err != nil {
		t.Fatalf("set uris: %v", err)
	}
	c, err := env.registry.Get(id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if c.URI != "ipfs://new" {
		t.Fatalf("uri not rewritten, got %q", c.URI)
	}
	// The old URI is released for reuse.
	if _, err := env.registry.SafeMint(env.minter, holder, "ipfs://old"); err != nil {
		t.Fatalf("reuse released uri: %v", err)
	}

	if err := env.registry.SetTokenURIs(env.minter, []uint64{id}, []string{"ipfs://a", "ipfs://b"}); !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("expected ErrLengthMismatch, got %v", err)
	}
	if err := env.registry.SetTokenURIs(env.minter, []uint64{999}, []string{"ipfs://x"}); !errors.Is(err, ErrDataMismatch) {
		t.Fatalf("expected ErrDataMismatch for unknown token, got %v", err)
	}
	if err := env.registry.SetTokenURIs(testAddr(0x05), []uint64{id}, []string{"ipfs://y"}); !errors.Is(err, ErrNotMinter) {
		t.Fatalf("expected ErrNotMinter, got %v", err)
	}
}

func TestSetTokenURIsBlockedAfterCapabilityRevocation(t *testing.T) {
	env := newCardEnv(t)
	holder := testAddr(0x01)
	id, err := env.registry.SafeMint(env.minter, holder, "ipfs://frozen")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	env.roles.revoked[access.CapabilitySetTokenURI] = true
	err = env.registry.SetTokenURIs(env.minter, []uint64{id}, []string{"ipfs://changed"})
	if !errors.Is(err, access.ErrAbilityRevoked) {
		t.Fatalf("expected ErrAbilityRevoked, got %v", err)
	}
	// Minting is unaffected by the metadata freeze.
	if _, err := env.registry.SafeMint(env.minter, holder, "ipfs://still-minting"); err != nil {
		t.Fatalf("mint under metadata freeze: %v", err)
	}
}

func TestApproveMarketGating(t *testing.T) {
	env := newCardEnv(t)
	market := testAddr(0x10)

	if err := env.registry.ApproveMarket(env.minter, market, true); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("expected ErrNotAdmin, got %v", err)
	}
	if err := env.registry.ApproveMarket(env.admin, market, true); err != nil {
		t.Fatalf("approve market: %v", err)
	}

	env.roles.revoked[access.CapabilityApprovedMarkets] = true
	if err := env.registry.ApproveMarket(env.admin, market, false); !errors.Is(err, access.ErrAbilityRevoked) {
		t.Fatalf("expected ErrAbilityRevoked, got %v", err)
	}
	// The existing list keeps working after the flag flips.
	approved, err := env.state.ApprovedMarket(market)
	if err != nil || !approved {
		t.Fatalf("existing approval must survive the freeze: %v %v", approved, err)
	}
}

func TestTransferAuthorization(t *testing.T) {
	env := newCardEnv(t)
	owner := testAddr(0x01)
	operator := testAddr(0x02)
	recipient := testAddr(0x03)
	market := testAddr(0x10)
	id, err := env.registry.SafeMint(env.minter, owner, "ipfs://t")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	// Stranger cannot move the card.
	if err := env.registry.Transfer(operator, owner, recipient, id); !errors.Is(err, ErrTransferUnauthorized) {
		t.Fatalf("expected ErrTransferUnauthorized, got %v", err)
	}
	// Owner can always move their own card.
	if err := env.registry.Transfer(owner, owner, recipient, id); err != nil {
		t.Fatalf("owner transfer: %v", err)
	}
	// Move it back for the approval cases.
	if err := env.registry.Transfer(recipient, recipient, owner, id); err != nil {
		t.Fatalf("return transfer: %v", err)
	}

	// Per-token approval authorizes exactly one transfer.
	if err := env.registry.Approve(owner, operator, id); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := env.registry.Approve(operator, operator, id); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner for non-owner approve, got %v", err)
	}
	if err := env.registry.Transfer(operator, owner, recipient, id); err != nil {
		t.Fatalf("approved transfer: %v", err)
	}
	got, err := env.registry.ApprovedFor(id)
	if err != nil {
		t.Fatalf("approved for: %v", err)
	}
	if got != ([20]byte{}) {
		t.Fatalf("approval must clear on transfer")
	}
	if err := env.registry.Transfer(operator, recipient, owner, id); !errors.Is(err, ErrTransferUnauthorized) {
		t.Fatalf("cleared approval must not authorize again, got %v", err)
	}

	// Approved markets can move any card.
	if err := env.registry.ApproveMarket(env.admin, market, true); err != nil {
		t.Fatalf("approve market: %v", err)
	}
	if err := env.registry.Transfer(market, recipient, owner, id); err != nil {
		t.Fatalf("market transfer: %v", err)
	}

	// Wrong from fails even for authorized operators.
	if err := env.registry.Transfer(market, recipient, owner, id); !errors.Is(err, ErrTransferUnauthorized) {
		t.Fatalf("expected ErrTransferUnauthorized for stale from, got %v", err)
	}
}

func TestRoyaltyConfiguration(t *testing.T) {
	env := newCardEnv(t)
	recipient := testAddr(0x09)
	holder := testAddr(0x01)
	id, err := env.registry.SafeMint(env.minter, holder, "ipfs://r")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	// Unset config reports no royalty.
	who, amount, err := env.registry.RoyaltyInfo(id, big.NewInt(1000))
	if err != nil {
		t.Fatalf("royalty info: %v", err)
	}
	if who != ([20]byte{}) || amount.Sign() != 0 {
		t.Fatalf("unset royalty must be zero, got %x %s", who, amount)
	}

	if err := env.registry.SetRoyalty(env.minter, recipient, 100); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("expected ErrNotAdmin, got %v", err)
	}
	if err := env.registry.SetRoyalty(env.admin, recipient, MaxRoyaltyBps+1); !errors.Is(err, ErrFeeTooHigh) {
		t.Fatalf("expected ErrFeeTooHigh, got %v", err)
	}
	if err := env.registry.SetRoyalty(env.admin, recipient, 250); err != nil {
		t.Fatalf("set royalty: %v", err)
	}

	who, amount, err = env.registry.RoyaltyInfo(id, big.NewInt(1001))
	if err != nil {
		t.Fatalf("royalty info: %v", err)
	}
	if who != recipient {
		t.Fatalf("unexpected recipient")
	}
	// floor(1001 * 250 / 10000) = 25
	if amount.Cmp(big.NewInt(25)) != 0 {
		t.Fatalf("expected floored royalty 25, got %s", amount)
	}

	// Zero recipient disables the split while keeping the bps.
	if err := env.registry.SetRoyalty(env.admin, [20]byte{}, 250); err != nil {
		t.Fatalf("disable royalty: %v", err)
	}
	who, amount, err = env.registry.RoyaltyInfo(id, big.NewInt(1000))
	if err != nil {
		t.Fatalf("royalty info: %v", err)
	}
	if who != ([20]byte{}) || amount.Sign() != 0 {
		t.Fatalf("disabled royalty must be zero")
	}
}

func TestContractURIConfiguration(t *testing.T) {
	env := newCardEnv(t)
	const url = "https://some.url"

	uri, err := env.registry.ContractURI()
	if err != nil {
		t.Fatalf("contract uri: %v", err)
	}
	if uri != "" {
		t.Fatalf("expected empty default, got %q", uri)
	}

	if err := env.registry.SetContractURI(env.minter, url); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("expected ErrNotAdmin, got %v", err)
	}
	if err := env.registry.SetContractURI(env.admin, url); err != nil {
		t.Fatalf("set contract uri: %v", err)
	}
	uri, err = env.registry.ContractURI()
	if err != nil {
		t.Fatalf("contract uri: %v", err)
	}
	if uri != url {
		t.Fatalf("expected %q, got %q", url, uri)
	}

	// Restating the current value is a conflict, not a silent no-op.
	if err := env.registry.SetContractURI(env.admin, url); !errors.Is(err, ErrNoChange) {
		t.Fatalf("expected ErrNoChange, got %v", err)
	}

	if err := env.registry.SetContractURI(env.admin, "https://other.url"); err != nil {
		t.Fatalf("update contract uri: %v", err)
	}
	if env.state.contractURI != "https://other.url" {
		t.Fatalf("expected stored url update, got %q", env.state.contractURI)
	}
}

func TestCustodyAdapterBindsOperator(t *testing.T) {
	env := newCardEnv(t)
	owner := testAddr(0x01)
	marketAddr := testAddr(0x10)
	id, err := env.registry.SafeMint(env.minter, owner, "ipfs://c")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	custody := env.registry.Custody(marketAddr)

	// Unapproved market cannot take custody.
	if err := custody.TransferCustody(id, owner, marketAddr); !errors.Is(err, ErrTransferUnauthorized) {
		t.Fatalf("expected ErrTransferUnauthorized, got %v", err)
	}
	if err := env.registry.ApproveMarket(env.admin, marketAddr, true); err != nil {
		t.Fatalf("approve market: %v", err)
	}
	if err := custody.TransferCustody(id, owner, marketAddr); err != nil {
		t.Fatalf("custody transfer: %v", err)
	}
	got, err := custody.OwnerOf(id)
	if err != nil {
		t.Fatalf("owner: %v", err)
	}
	if got != marketAddr {
		t.Fatalf("custody not recorded")
	}
}
