package card

import (
	"math/big"

	"kudomarket/core/events"
	"kudomarket/core/types"
	"kudomarket/native/access"
)

type registryState interface {
	CardPut(*Card) error
	CardGet(tokenID uint64) (*Card, bool)
	CardNextID() (uint64, error)
	CardURITaken(uri string) (bool, error)
	CardURIReserve(uri string) error
	CardURIRelease(uri string) error
	CardApprovalPut(tokenID uint64, operator [20]byte) error
	CardApprovalGet(tokenID uint64) ([20]byte, error)
	ApprovedMarketSet(market [20]byte, approved bool) error
	ApprovedMarket(market [20]byte) (bool, error)
	RoyaltyPut(RoyaltyConfig) error
	RoyaltyGet() (RoyaltyConfig, bool, error)
	ContractURIPut(uri string) error
	ContractURIGet() (string, error)
}

type accessRegistry interface {
	HasRole(role string, addr [20]byte) bool
	RequireAbility(flag string) error
}

type cardEvent struct {
	evt *types.Event
}

func (e cardEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e cardEvent) Event() *types.Event { return e.evt }

// Registry is the ownership registry for cards: minting with metadata-URI
// uniqueness, per-token approvals plus an admin-curated approved-market list,
// custody transfers, and the collection royalty and metadata configuration.
// Mutating operations take the effective caller explicitly.
type Registry struct {
	state   registryState
	roles   accessRegistry
	emitter events.Emitter
}

// NewRegistry creates a card registry with a no-op emitter.
func NewRegistry() *Registry {
	return &Registry{emitter: events.NoopEmitter{}}
}

// SetState configures the state backend used by the registry.
func (r *Registry) SetState(state registryState) { r.state = state }

// SetRoles configures the access registry consulted for role and capability
// gating.
func (r *Registry) SetRoles(roles accessRegistry) { r.roles = roles }

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
	r.emitter.Emit(cardEvent{evt: event})
}

func (r *Registry) ready() error {
	switch {
	case r == nil || r.state == nil:
		return errNilState
	case r.roles == nil:
		return errNilRoles
	}
	return nil
}

func (r *Registry) requireMinter(caller [20]byte) error {
	if !r.roles.HasRole(access.RoleMinter, caller) {
		return ErrNotMinter
	}
	return nil
}

func (r *Registry) requireAdmin(caller [20]byte) error {
	if !r.roles.HasRole(access.RoleAdmin, caller) {
		return ErrNotAdmin
	}
	return nil
}

// OwnerOf returns the current owner of record for the token.
func (r *Registry) OwnerOf(tokenID uint64) ([20]byte, error) {
	if r == nil || r.state == nil {
		return [20]byte{}, errNilState
	}
	c, ok := r.state.CardGet(tokenID)
	if !ok {
		return [20]byte{}, ErrCardNotFound
	}
	return c.Owner, nil
}

// Get returns the stored card record.
func (r *Registry) Get(tokenID uint64) (*Card, error) {
	if r == nil || r.state == nil {
		return nil, errNilState
	}
	c, ok := r.state.CardGet(tokenID)
	if !ok {
		return nil, ErrCardNotFound
	}
	return c.Clone(), nil
}

// SafeMint creates one card for the recipient. The metadata URI must be
// globally unique; minting requires the minter role.
func (r *Registry) SafeMint(caller [20]byte, to [20]byte, uri string) (uint64, error) {
	ids, err := r.BatchMint(caller, to, []string{uri})
	if err != nil {
		return 0, err
	}
	return ids[0], nil
}

// BatchMint creates one card per URI for the recipient. The batch is
// all-or-nothing: a single duplicate or blank URI fails the whole call before
// any card is stored.
func (r *Registry) BatchMint(caller [20]byte, to [20]byte, uris []string) ([]uint64, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	if err := r.requireMinter(caller); err != nil {
		return nil, err
	}
	if to == ([20]byte{}) {
		return nil, ErrInvalidRecipient
	}
	if len(uris) == 0 {
		return nil, ErrLengthMismatch
	}
	normalized := make([]string, len(uris))
	seen := make(map[string]bool, len(uris))
	for i, uri := range uris {
		trimmed, err := NormalizeURI(uri)
		if err != nil {
			return nil, err
		}
		taken, err := r.state.CardURITaken(trimmed)
		if err != nil {
			return nil, err
		}
		if taken || seen[trimmed] {
			return nil, ErrDuplicateTokenURI
		}
		seen[trimmed] = true
		normalized[i] = trimmed
	}
	ids := make([]uint64, 0, len(normalized))
	for _, uri := range normalized {
		id, err := r.state.CardNextID()
		if err != nil {
			return nil, err
		}
		if err := r.state.CardURIReserve(uri); err != nil {
			return nil, err
		}
		if err := r.state.CardPut(&Card{TokenID: id, Owner: to, URI: uri}); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if len(ids) == 1 {
		e, _ := r.state.CardGet(ids[0])
		r.emit(NewMintedEvent(e, caller))
	} else {
		r.emit(NewBatchMintedEvent(to, ids, caller))
	}
	return ids, nil
}

// SetTokenURIs rewrites metadata for existing tokens. Requires the minter
// role and is gated by the set-token-uri capability flag; once that flag is
// revoked even admins are rejected. The id and uri lists must pair up and
// every id must already exist.
func (r *Registry) SetTokenURIs(caller [20]byte, tokenIDs []uint64, uris []string) error {
	if err := r.ready(); err != nil {
		return err
	}
	if err := r.roles.RequireAbility(access.CapabilitySetTokenURI); err != nil {
		return err
	}
	if err := r.requireMinter(caller); err != nil {
		return err
	}
	if len(tokenIDs) == 0 || len(tokenIDs) != len(uris) {
		return ErrLengthMismatch
	}
	cards := make([]*Card, len(tokenIDs))
	normalized := make([]string, len(uris))
	seen := make(map[string]bool, len(uris))
	for i, id := range tokenIDs {
		c, ok := r.state.CardGet(id)
		if !ok {
			return ErrDataMismatch
		}
		trimmed, err := NormalizeURI(uris[i])
		if err != nil {
			return err
		}
		if trimmed != c.URI {
			taken, err := r.state.CardURITaken(trimmed)
			if err != nil {
				return err
			}
			if taken || seen[trimmed] {
				return ErrDuplicateTokenURI
			}
		}
		seen[trimmed] = true
		cards[i] = c
		normalized[i] = trimmed
	}
	for i, c := range cards {
		if normalized[i] == c.URI {
			continue
		}
		if err := r.state.CardURIRelease(c.URI); err != nil {
			return err
		}
		if err := r.state.CardURIReserve(normalized[i]); err != nil {
			return err
		}
		c.URI = normalized[i]
		if err := r.state.CardPut(c); err != nil {
			return err
		}
	}
	r.emit(NewTokenURIsUpdatedEvent(tokenIDs, caller))
	return nil
}

// Approve grants a single-token transfer approval. Only the owner may
// approve; the approval clears on the next transfer.
func (r *Registry) Approve(caller [20]byte, operator [20]byte, tokenID uint64) error {
	if err := r.ready(); err != nil {
		return err
	}
	c, ok := r.state.CardGet(tokenID)
	if !ok {
		return ErrCardNotFound
	}
	if c.Owner != caller {
		return ErrNotOwner
	}
	return r.state.CardApprovalPut(tokenID, operator)
}

// ApprovedFor returns the operator approved for the token, if any.
func (r *Registry) ApprovedFor(tokenID uint64) ([20]byte, error) {
	if r == nil || r.state == nil {
		return [20]byte{}, errNilState
	}
	if _, ok := r.state.CardGet(tokenID); !ok {
		return [20]byte{}, ErrCardNotFound
	}
	return r.state.CardApprovalGet(tokenID)
}

// ApproveMarket adds or removes a marketplace from the operator allow-list.
// Admin-only, and gated by the approved-markets capability flag.
func (r *Registry) ApproveMarket(caller [20]byte, market [20]byte, approved bool) error {
	if err := r.ready(); err != nil {
		return err
	}
	if err := r.roles.RequireAbility(access.CapabilityApprovedMarkets); err != nil {
		return err
	}
	if err := r.requireAdmin(caller); err != nil {
		return err
	}
	if err := r.state.ApprovedMarketSet(market, approved); err != nil {
		return err
	}
	r.emit(NewMarketApprovedEvent(market, approved, caller))
	return nil
}

// IsApprovedForTransfer reports whether the operator may move the token:
// owners may always move their own cards, otherwise the operator must hold
// the per-token approval or sit on the approved-market list.
func (r *Registry) IsApprovedForTransfer(operator [20]byte, tokenID uint64) (bool, error) {
	if r == nil || r.state == nil {
		return false, errNilState
	}
	c, ok := r.state.CardGet(tokenID)
	if !ok {
		return false, ErrCardNotFound
	}
	if c.Owner == operator {
		return true, nil
	}
	approved, err := r.state.CardApprovalGet(tokenID)
	if err != nil {
		return false, err
	}
	if approved == operator {
		return true, nil
	}
	return r.state.ApprovedMarket(operator)
}

// Transfer moves the card from its owner to the recipient on behalf of the
// operator. Fails with ErrTransferUnauthorized unless the operator is the
// owner, holds the token approval, or is an approved market. The per-token
// approval clears on success.
func (r *Registry) Transfer(operator [20]byte, from, to [20]byte, tokenID uint64) error {
	if err := r.ready(); err != nil {
		return err
	}
	c, ok := r.state.CardGet(tokenID)
	if !ok {
		return ErrCardNotFound
	}
	if c.Owner != from {
		return ErrTransferUnauthorized
	}
	ok, err := r.IsApprovedForTransfer(operator, tokenID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrTransferUnauthorized
	}
	c.Owner = to
	if err := r.state.CardPut(c); err != nil {
		return err
	}
	return r.state.CardApprovalPut(tokenID, [20]byte{})
}

// SetRoyalty updates the collection royalty split. Admin-only; the fee is
// capped at MaxRoyaltyBps and a zero recipient disables royalties.
func (r *Registry) SetRoyalty(caller [20]byte, recipient [20]byte, feeBps uint32) error {
	if err := r.ready(); err != nil {
		return err
	}
	if err := r.requireAdmin(caller); err != nil {
		return err
	}
	if feeBps > MaxRoyaltyBps {
		return ErrFeeTooHigh
	}
	cfg := RoyaltyConfig{Recipient: recipient, FeeBps: feeBps}
	if err := r.state.RoyaltyPut(cfg); err != nil {
		return err
	}
	r.emit(NewRoyaltyUpdatedEvent(cfg, caller))
	return nil
}

// RoyaltyInfo computes the royalty owed on a sale at the given price:
// floor(price * feeBps / 10000), never rounding against the seller. Unset
// config reports a zero recipient and amount.
func (r *Registry) RoyaltyInfo(tokenID uint64, salePrice *big.Int) ([20]byte, *big.Int, error) {
	if r == nil || r.state == nil {
		return [20]byte{}, nil, errNilState
	}
	if _, ok := r.state.CardGet(tokenID); !ok {
		return [20]byte{}, nil, ErrCardNotFound
	}
	cfg, ok, err := r.state.RoyaltyGet()
	if err != nil {
		return [20]byte{}, nil, err
	}
	if !ok || cfg.Recipient == ([20]byte{}) || cfg.FeeBps == 0 {
		return [20]byte{}, big.NewInt(0), nil
	}
	price := salePrice
	if price == nil {
		price = big.NewInt(0)
	}
	amount := new(big.Int).Mul(price, new(big.Int).SetUint64(uint64(cfg.FeeBps)))
	amount.Div(amount, big.NewInt(10_000))
	return cfg.Recipient, amount, nil
}

// ContractURI returns the collection-level metadata URL, empty until an admin
// sets one.
func (r *Registry) ContractURI() (string, error) {
	if r == nil || r.state == nil {
		return "", errNilState
	}
	return r.state.ContractURIGet()
}

// SetContractURI updates the collection-level metadata URL. Admin-only;
// restating the current value is rejected with ErrNoChange.
func (r *Registry) SetContractURI(caller [20]byte, uri string) error {
	if err := r.ready(); err != nil {
		return err
	}
	if err := r.requireAdmin(caller); err != nil {
		return err
	}
	current, err := r.state.ContractURIGet()
	if err != nil {
		return err
	}
	if uri == current {
		return ErrNoChange
	}
	if err := r.state.ContractURIPut(uri); err != nil {
		return err
	}
	r.emit(NewContractURIUpdatedEvent(uri, caller))
	return nil
}

// Custody binds the registry to a fixed operator, yielding the narrow
// capability surface the settlement engine consumes.
func (r *Registry) Custody(operator [20]byte) *Custody {
	return &Custody{registry: r, operator: operator}
}

// Custody is the registry viewed through a single operator identity.
type Custody struct {
	registry *Registry
	operator [20]byte
}

// OwnerOf returns the owner of record for the token.
func (c *Custody) OwnerOf(tokenID uint64) ([20]byte, error) {
	return c.registry.OwnerOf(tokenID)
}

// TransferCustody moves the token on behalf of the bound operator.
func (c *Custody) TransferCustody(tokenID uint64, from, to [20]byte) error {
	return c.registry.Transfer(c.operator, from, to, tokenID)
}

// RoyaltyInfo reports the royalty split for a sale at the given price.
func (c *Custody) RoyaltyInfo(tokenID uint64, salePrice *big.Int) ([20]byte, *big.Int, error) {
	return c.registry.RoyaltyInfo(tokenID, salePrice)
}
