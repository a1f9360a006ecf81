package core

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"kudomarket/core/events"
	"kudomarket/core/state"
	"kudomarket/core/types"
	"kudomarket/native/access"
	"kudomarket/native/card"
	"kudomarket/native/forwarder"
	"kudomarket/native/market"
	"kudomarket/native/token"
	"kudomarket/storage"
)

var (
	// ErrUntrustedRelayer rejects relay submissions from any identity other
	// than the configured trusted forwarder.
	ErrUntrustedRelayer = errors.New("node: untrusted relayer")
	// ErrUnknownTarget rejects relayed calls aimed at anything but the
	// marketplace application.
	ErrUnknownTarget = errors.New("node: unknown relay target")
	// ErrUnknownMethod rejects relayed calls naming an unregistered method.
	ErrUnknownMethod = errors.New("node: unknown relay method")
)

// Params fixes the construction-time identity of the node.
type Params struct {
	ChainID          uint64
	MarketAddress    [20]byte
	AdminAddress     [20]byte
	ForwarderAddress [20]byte
	DomainName       string
	DomainVersion    string
}

// Node owns all mutable marketplace state and serializes every operation
// behind a single mutex: no caller ever observes a partially applied effect
// of another operation. Engines emit into the node's append-only event log.
type Node struct {
	mu sync.Mutex

	db     storage.Database
	state  *state.Manager
	access *access.Registry
	cards  *card.Registry
	market *market.Engine
	token  *token.Ledger
	relay  *forwarder.Ledger
	params Params
	events []types.Event
}

// NewNode wires the engines over the given database and seeds the genesis
// administrator and initial trusted forwarder on first boot.
func NewNode(db storage.Database, params Params) (*Node, error) {
	if db == nil {
		return nil, fmt.Errorf("node: database is required")
	}
	if params.MarketAddress == ([20]byte{}) {
		return nil, fmt.Errorf("node: market address is required")
	}
	if params.AdminAddress == ([20]byte{}) {
		return nil, fmt.Errorf("node: admin address is required")
	}
	if params.ForwarderAddress == ([20]byte{}) {
		return nil, fmt.Errorf("node: forwarder address is required")
	}
	if params.DomainName == "" {
		params.DomainName = forwarder.DefaultDomainName
	}
	if params.DomainVersion == "" {
		params.DomainVersion = forwarder.DefaultDomainVersion
	}

	n := &Node{db: db, params: params}
	manager := state.NewManager(db)
	n.state = manager

	n.access = access.NewRegistry()
	n.access.SetState(manager)
	n.access.SetEmitter(n)

	n.cards = card.NewRegistry()
	n.cards.SetState(manager)
	n.cards.SetRoles(n.access)
	n.cards.SetEmitter(n)

	n.token = token.NewLedger(params.MarketAddress)
	n.token.SetState(manager)

	n.market = market.NewEngine()
	n.market.SetState(manager)
	n.market.SetCards(n.cards.Custody(params.MarketAddress))
	n.market.SetLedger(n.token)
	n.market.SetRoles(n.access)
	n.market.SetCustodyAccount(params.MarketAddress)
	n.market.SetEmitter(n)

	n.relay = forwarder.NewLedger(forwarder.Domain{
		Name:              params.DomainName,
		Version:           params.DomainVersion,
		ChainID:           params.ChainID,
		VerifyingContract: params.ForwarderAddress,
	})
	n.relay.SetState(manager)
	n.relay.SetDispatcher(forwarder.DispatcherFunc(n.dispatchRelayed))
	n.relay.SetEmitter(n)

	if err := n.seed(); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *Node) seed() error {
	if err := n.state.RoleAdd(access.RoleAdmin, n.params.AdminAddress); err != nil {
		return err
	}
	if err := n.state.RoleAdd(access.RoleMinter, n.params.AdminAddress); err != nil {
		return err
	}
	current, err := n.state.TrustedForwarder()
	if err != nil {
		return err
	}
	if current == ([20]byte{}) {
		return n.state.SetTrustedForwarder(n.params.ForwarderAddress)
	}
	return nil
}

// Emit implements events.Emitter: engine events land in the node's
// append-only log in emission order.
func (n *Node) Emit(evt events.Event) {
	carrier, ok := evt.(interface{ Event() *types.Event })
	if !ok {
		return
	}
	payload := carrier.Event()
	if payload == nil {
		return
	}
	n.events = append(n.events, *payload)
}

// Events returns a copy of the emitted event log.
func (n *Node) Events() []types.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]types.Event, len(n.events))
	copy(out, n.events)
	return out
}

// --- marketplace operations ---

// List escrows the caller's card and opens a listing.
func (n *Node) List(caller [20]byte, tokenID uint64, price *big.Int) (*market.Listing, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.market.List(caller, tokenID, price)
}

// Delist terminates the caller's active listing and returns the card.
func (n *Node) Delist(caller [20]byte, listingID uint64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.market.Delist(caller, listingID)
}

// Buy settles an active listing for the caller.
func (n *Node) Buy(caller [20]byte, listingID uint64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.market.Buy(caller, listingID)
}

// PauseMarket toggles the global trading freeze.
func (n *Node) PauseMarket(caller [20]byte, paused bool) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.market.PauseMarket(caller, paused)
}

// PauseListings toggles the new-listings freeze.
func (n *Node) PauseListings(caller [20]byte, paused bool) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.market.PauseListings(caller, paused)
}

// UpdateTrustedForwarder rotates the relay identity.
func (n *Node) UpdateTrustedForwarder(caller [20]byte, fwd [20]byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.market.UpdateTrustedForwarder(caller, fwd)
}

// Listing returns the stored listing for the id.
func (n *Node) Listing(listingID uint64) (*market.Listing, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.market.Listing(listingID)
}

// Listings returns the seller's listings in creation order.
func (n *Node) Listings(seller [20]byte) ([]*market.Listing, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.market.Listings(seller)
}

// --- relay operations ---

// RelayExecute verifies and dispatches a signed relay request submitted by
// the given relayer, which must match the trusted forwarder on record.
func (n *Node) RelayExecute(relayer [20]byte, req *forwarder.ForwardRequest, sig []byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	trusted, err := n.state.TrustedForwarder()
	if err != nil {
		return err
	}
	if relayer != trusted {
		return ErrUntrustedRelayer
	}
	return n.relay.Execute(req, sig)
}

// RelayNonce returns the signer's relay counter.
func (n *Node) RelayNonce(signer [20]byte) (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.relay.Nonce(signer)
}

// RelayDomain returns the typed-data domain relay clients must sign under.
func (n *Node) RelayDomain() forwarder.Domain {
	return n.relay.Domain()
}

// relayCall is the JSON payload carried in a ForwardRequest's data field.
type relayCall struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

type relayListParams struct {
	TokenID uint64 `json:"tokenId"`
	Price   string `json:"price"`
}

type relayListingParams struct {
	ListingID uint64 `json:"listingId"`
}

type relayApproveParams struct {
	Operator string `json:"operator"`
	TokenID  uint64 `json:"tokenId"`
}

// dispatchRelayed routes a verified relay call with the original signer as
// the effective caller. It runs under the node mutex (the relay entry point
// holds it), so engine internals are invoked directly.
func (n *Node) dispatchRelayed(from, to [20]byte, value *big.Int, data []byte) error {
	if to != n.params.MarketAddress {
		return ErrUnknownTarget
	}
	var call relayCall
	if err := json.Unmarshal(data, &call); err != nil {
		return fmt.Errorf("node: malformed relay payload: %w", err)
	}
	switch call.Method {
	case "market_list":
		var params relayListParams
		if err := json.Unmarshal(call.Params, &params); err != nil {
			return fmt.Errorf("node: malformed relay params: %w", err)
		}
		price, ok := new(big.Int).SetString(params.Price, 10)
		if !ok {
			return fmt.Errorf("node: invalid relay price %q", params.Price)
		}
		_, err := n.market.List(from, params.TokenID, price)
		return err
	case "market_delist":
		var params relayListingParams
		if err := json.Unmarshal(call.Params, &params); err != nil {
			return fmt.Errorf("node: malformed relay params: %w", err)
		}
		return n.market.Delist(from, params.ListingID)
	case "market_buy":
		var params relayListingParams
		if err := json.Unmarshal(call.Params, &params); err != nil {
			return fmt.Errorf("node: malformed relay params: %w", err)
		}
		return n.market.Buy(from, params.ListingID)
	case "card_approve":
		var params relayApproveParams
		if err := json.Unmarshal(call.Params, &params); err != nil {
			return fmt.Errorf("node: malformed relay params: %w", err)
		}
		operator, err := decodeHexAddress(params.Operator)
		if err != nil {
			return err
		}
		return n.cards.Approve(from, operator, params.TokenID)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownMethod, call.Method)
	}
}

// --- card operations ---

// MintCard mints a single card.
func (n *Node) MintCard(caller [20]byte, to [20]byte, uri string) (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.cards.SafeMint(caller, to, uri)
}

// BatchMintCards mints one card per URI, all-or-nothing.
func (n *Node) BatchMintCards(caller [20]byte, to [20]byte, uris []string) ([]uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.cards.BatchMint(caller, to, uris)
}

// SetTokenURIs rewrites card metadata.
func (n *Node) SetTokenURIs(caller [20]byte, tokenIDs []uint64, uris []string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.cards.SetTokenURIs(caller, tokenIDs, uris)
}

// ApproveCard grants a per-token transfer approval.
func (n *Node) ApproveCard(caller [20]byte, operator [20]byte, tokenID uint64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.cards.Approve(caller, operator, tokenID)
}

// ApproveMarket maintains the operator allow-list.
func (n *Node) ApproveMarket(caller [20]byte, marketAddr [20]byte, approved bool) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.cards.ApproveMarket(caller, marketAddr, approved)
}

// SetRoyalty updates the collection royalty configuration.
func (n *Node) SetRoyalty(caller [20]byte, recipient [20]byte, feeBps uint32) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.cards.SetRoyalty(caller, recipient, feeBps)
}

// SetContractURI updates the collection-level metadata URL.
func (n *Node) SetContractURI(caller [20]byte, uri string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.cards.SetContractURI(caller, uri)
}

// ContractURI returns the collection-level metadata URL.
func (n *Node) ContractURI() (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.cards.ContractURI()
}

// Card returns the stored card record.
func (n *Node) Card(tokenID uint64) (*card.Card, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.cards.Get(tokenID)
}

// CardOwner returns the owner of record.
func (n *Node) CardOwner(tokenID uint64) ([20]byte, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.cards.OwnerOf(tokenID)
}

// --- access operations ---

// GrantRole assigns a role; admin-only.
func (n *Node) GrantRole(caller [20]byte, role string, addr [20]byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.access.GrantRole(caller, role, addr)
}

// RevokeRole removes a role; admin-only.
func (n *Node) RevokeRole(caller [20]byte, role string, addr [20]byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.access.RevokeRole(caller, role, addr)
}

// HasRole reports role membership.
func (n *Node) HasRole(role string, addr [20]byte) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.access.HasRole(role, addr)
}

// RevokeAbility permanently switches a capability flag off; admin-only.
func (n *Node) RevokeAbility(caller [20]byte, flag string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.access.RevokeAbility(caller, flag)
}

// AbilityRevoked reports a capability flag.
func (n *Node) AbilityRevoked(flag string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.access.AbilityRevoked(flag)
}

// --- token operations (local issuance and reads) ---

// MintFunds credits payment units to an account; admin-only.
func (n *Node) MintFunds(caller [20]byte, to [20]byte, amount *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.access.HasRole(access.RoleAdmin, caller) {
		return market.ErrNotAdmin
	}
	return n.token.Mint(to, amount)
}

// ApproveFunds sets the marketplace allowance over the owner's balance.
func (n *Node) ApproveFunds(owner [20]byte, amount *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.token.Approve(owner, n.params.MarketAddress, amount)
}

// Balance returns an account's payment-unit balance.
func (n *Node) Balance(addr [20]byte) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.token.BalanceOf(addr)
}

func decodeHexAddress(s string) ([20]byte, error) {
	var out [20]byte
	trimmed := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	raw, err := hex.DecodeString(trimmed)
	if err != nil || len(raw) != 20 {
		return out, fmt.Errorf("node: invalid address %q", s)
	}
	copy(out[:], raw)
	return out, nil
}
