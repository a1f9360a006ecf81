package market

import (
	"math/big"
	"time"

	"kudomarket/core/events"
	"kudomarket/core/types"
	"kudomarket/native/access"
)

type engineState interface {
	ListingPut(*Listing) error
	ListingGet(id uint64) (*Listing, bool)
	ListingNextID() (uint64, error)
	ListingIndexAppend(seller [20]byte, id uint64) error
	ListingIndex(seller [20]byte) ([]uint64, error)
	MarketPaused() (bool, error)
	SetMarketPaused(paused bool) error
	ListingsPaused() (bool, error)
	SetListingsPaused(paused bool) error
	TrustedForwarder() ([20]byte, error)
	SetTrustedForwarder(addr [20]byte) error
}

// CardRegistry is the slice of the ownership registry the settlement engine
// relies on. Custody moves through the registry; the engine never mutates
// ownership directly.
type CardRegistry interface {
	OwnerOf(tokenID uint64) ([20]byte, error)
	TransferCustody(tokenID uint64, from, to [20]byte) error
	RoyaltyInfo(tokenID uint64, salePrice *big.Int) ([20]byte, *big.Int, error)
}

// PaymentLedger is the external fungible-token ledger the engine settles
// against. Transfers debit the payer within the allowance granted to the
// marketplace operator.
type PaymentLedger interface {
	TransferFrom(payer, payee [20]byte, amount *big.Int) error
}

type roleChecker interface {
	HasRole(role string, addr [20]byte) bool
}

type marketEvent struct {
	evt *types.Event
}

func (e marketEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e marketEvent) Event() *types.Event { return e.evt }

// Engine owns the listing lifecycle: escrow custody on list, settlement with
// royalty split on buy, custody return on delist, and the two pause switches.
// Every operation takes the effective caller explicitly; the relay and direct
// paths share this single authorization surface.
type Engine struct {
	state   engineState
	cards   CardRegistry
	ledger  PaymentLedger
	roles   roleChecker
	emitter events.Emitter
	custody [20]byte
	nowFn   func() int64
}

// NewEngine creates a marketplace engine with a no-op emitter. Callers can
// override the emitter via SetEmitter.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetCards configures the ownership registry custody capability.
func (e *Engine) SetCards(cards CardRegistry) { e.cards = cards }

// SetLedger configures the payment ledger used for settlement.
func (e *Engine) SetLedger(ledger PaymentLedger) { e.ledger = ledger }

// SetRoles configures the role registry consulted for admin gating.
func (e *Engine) SetRoles(roles roleChecker) { e.roles = roles }

// SetCustodyAccount configures the account that holds escrowed cards and
// routes settlement funds.
func (e *Engine) SetCustodyAccount(addr [20]byte) { e.custody = addr }

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) emit(event *types.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(marketEvent{evt: event})
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) ready() error {
	switch {
	case e == nil || e.state == nil:
		return errNilState
	case e.cards == nil:
		return errNilCards
	case e.ledger == nil:
		return errNilLedger
	case e.custody == ([20]byte{}):
		return errNilVault
	}
	return nil
}

func (e *Engine) requireAdmin(caller [20]byte) error {
	if e.roles == nil || !e.roles.HasRole(access.RoleAdmin, caller) {
		return ErrNotAdmin
	}
	return nil
}

func (e *Engine) requireMarketOpen() error {
	paused, err := e.state.MarketPaused()
	if err != nil {
		return err
	}
	if paused {
		return ErrMarketPaused
	}
	return nil
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// List escrows the caller's card with the marketplace and records a new
// active listing. The caller must be the owner of record and must have
// approved the marketplace for the custody transfer.
func (e *Engine) List(caller [20]byte, tokenID uint64, price *big.Int) (*Listing, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	amount := cloneBigInt(price)
	if amount.Sign() <= 0 {
		return nil, ErrInvalidPrice
	}
	if err := e.requireMarketOpen(); err != nil {
		return nil, err
	}
	listingsPaused, err := e.state.ListingsPaused()
	if err != nil {
		return nil, err
	}
	if listingsPaused {
		return nil, ErrListingsPaused
	}
	owner, err := e.cards.OwnerOf(tokenID)
	if err != nil {
		return nil, err
	}
	if owner != caller {
		return nil, ErrNotCardOwner
	}
	// Custody moves before any listing state exists, so a registry failure
	// leaves the market untouched. A listing write failure after the move
	// hands the card back.
	if err := e.cards.TransferCustody(tokenID, caller, e.custody); err != nil {
		return nil, err
	}
	id, err := e.state.ListingNextID()
	if err != nil {
		return nil, e.unwindCustody(tokenID, caller, err)
	}
	listing := &Listing{
		ID:        id,
		TokenID:   tokenID,
		Seller:    caller,
		Price:     amount,
		Status:    ListingActive,
		CreatedAt: e.now(),
	}
	if err := e.state.ListingPut(listing); err != nil {
		return nil, e.unwindCustody(tokenID, caller, err)
	}
	if err := e.state.ListingIndexAppend(caller, id); err != nil {
		return nil, e.unwindCustody(tokenID, caller, err)
	}
	e.emit(NewListedEvent(listing))
	return listing.Clone(), nil
}

// unwindCustody returns an escrowed card to its seller after a failed listing
// write. The original write error wins over a failed unwind.
func (e *Engine) unwindCustody(tokenID uint64, seller [20]byte, cause error) error {
	_ = e.cards.TransferCustody(tokenID, e.custody, seller)
	return cause
}

// Delist terminates an active listing and returns custody of the card to the
// seller. Only the original lister may delist; the listings-only pause does
// not block exits.
func (e *Engine) Delist(caller [20]byte, listingID uint64) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.requireMarketOpen(); err != nil {
		return err
	}
	listing, ok := e.state.ListingGet(listingID)
	if !ok || !listing.Active() {
		return ErrListingNotFound
	}
	if listing.Seller != caller {
		return ErrNotSeller
	}
	if err := e.cards.TransferCustody(listing.TokenID, e.custody, listing.Seller); err != nil {
		return err
	}
	listing.Status = ListingDelisted
	if err := e.state.ListingPut(listing); err != nil {
		return err
	}
	e.emit(NewDelistedEvent(listing))
	return nil
}

// Buy settles an active listing: the full price is pulled from the buyer into
// the custody account in a single ledger call, then split between the royalty
// recipient and the seller, and the card moves to the buyer. Royalty rounding
// floors, so the seller never loses a unit to rounding.
func (e *Engine) Buy(caller [20]byte, listingID uint64) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.requireMarketOpen(); err != nil {
		return err
	}
	listing, ok := e.state.ListingGet(listingID)
	if !ok || !listing.Active() {
		return ErrListingNotFound
	}
	if listing.Seller == caller {
		return ErrBuyerIsSeller
	}
	price := cloneBigInt(listing.Price)
	recipient, royalty, err := e.cards.RoyaltyInfo(listing.TokenID, price)
	if err != nil {
		return err
	}
	royalty = cloneBigInt(royalty)
	if recipient == ([20]byte{}) || royalty.Cmp(price) > 0 {
		royalty = big.NewInt(0)
	}
	// The only fallible payment leg runs first; payouts below draw on funds
	// the custody account just received and cannot fail on allowance.
	if err := e.ledger.TransferFrom(caller, e.custody, price); err != nil {
		return err
	}
	if royalty.Sign() > 0 {
		if err := e.ledger.TransferFrom(e.custody, recipient, royalty); err != nil {
			return err
		}
	}
	payout := new(big.Int).Sub(price, royalty)
	if payout.Sign() > 0 {
		if err := e.ledger.TransferFrom(e.custody, listing.Seller, payout); err != nil {
			return err
		}
	}
	if err := e.cards.TransferCustody(listing.TokenID, e.custody, caller); err != nil {
		return err
	}
	listing.Status = ListingSold
	if err := e.state.ListingPut(listing); err != nil {
		return err
	}
	e.emit(NewSoldEvent(listing, caller))
	return nil
}

// PauseMarket toggles the global trading freeze. Toggling to the current
// value fails with ErrNoChange so operators notice stale views.
func (e *Engine) PauseMarket(caller [20]byte, paused bool) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	current, err := e.state.MarketPaused()
	if err != nil {
		return err
	}
	if current == paused {
		return ErrNoChange
	}
	if err := e.state.SetMarketPaused(paused); err != nil {
		return err
	}
	e.emit(NewMarketPausedEvent(caller, paused))
	return nil
}

// PauseListings toggles the new-listings freeze. Buy and delist stay
// available so sellers can exit positions during the freeze.
func (e *Engine) PauseListings(caller [20]byte, paused bool) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	current, err := e.state.ListingsPaused()
	if err != nil {
		return err
	}
	if current == paused {
		return ErrNoChange
	}
	if err := e.state.SetListingsPaused(paused); err != nil {
		return err
	}
	e.emit(NewListingsPausedEvent(caller, paused))
	return nil
}

// UpdateTrustedForwarder replaces the relay identity permitted to submit
// signed requests on behalf of users.
func (e *Engine) UpdateTrustedForwarder(caller [20]byte, forwarder [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if forwarder == ([20]byte{}) {
		return ErrInvalidForwarder
	}
	current, err := e.state.TrustedForwarder()
	if err != nil {
		return err
	}
	if current == forwarder {
		return ErrAlreadyForwarder
	}
	if err := e.state.SetTrustedForwarder(forwarder); err != nil {
		return err
	}
	e.emit(NewForwarderUpdatedEvent(caller, forwarder))
	return nil
}

// TrustedForwarder returns the relay identity currently permitted to submit
// signed requests.
func (e *Engine) TrustedForwarder() ([20]byte, error) {
	if e == nil || e.state == nil {
		return [20]byte{}, errNilState
	}
	return e.state.TrustedForwarder()
}

// Listing returns the stored listing for the id, terminal or not.
func (e *Engine) Listing(listingID uint64) (*Listing, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	listing, ok := e.state.ListingGet(listingID)
	if !ok {
		return nil, ErrListingNotFound
	}
	return listing.Clone(), nil
}

// Listings returns the seller's listings in creation order, including
// terminated ones. Sellers with no listings get an empty slice.
func (e *Engine) Listings(seller [20]byte) ([]*Listing, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	ids, err := e.state.ListingIndex(seller)
	if err != nil {
		return nil, err
	}
	listings := make([]*Listing, 0, len(ids))
	for _, id := range ids {
		listing, ok := e.state.ListingGet(id)
		if !ok {
			continue
		}
		listings = append(listings, listing.Clone())
	}
	return listings, nil
}
