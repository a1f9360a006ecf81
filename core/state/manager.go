package state

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/rlp"

	"kudomarket/native/card"
	"kudomarket/native/market"
	"kudomarket/storage"
)

var (
	listingPrefix        = []byte("market:listing:")
	listingSeqKey        = []byte("market:listing_seq")
	listingIndexPrefix   = []byte("market:index:")
	marketPausedKey      = []byte("market:paused")
	listingsPausedKey    = []byte("market:listings_paused")
	forwarderKey         = []byte("market:forwarder")
	noncePrefix          = []byte("forwarder:nonce:")
	rolePrefix           = []byte("role:")
	capabilityPrefix     = []byte("capability:")
	cardPrefix           = []byte("card:record:")
	cardSeqKey           = []byte("card:seq")
	cardURIPrefix        = []byte("card:uri:")
	cardApprovalPrefix   = []byte("card:approval:")
	approvedMarketPrefix = []byte("card:market:")
	royaltyKey           = []byte("card:royalty")
	contractURIKey       = []byte("card:contract_uri")
	balancePrefix        = []byte("token:balance:")
	allowancePrefix      = []byte("token:allowance:")

	flagTrue = []byte{0x01}
	errNilDB = fmt.Errorf("state: database not configured")
)

// Manager persists marketplace state as prefix-keyed RLP records over a
// key-value store. It implements the narrow state interfaces of the market
// engine, the forwarder ledger, the access registry, the card registry and
// the token ledger.
type Manager struct {
	db storage.Database
}

// NewManager wraps the given database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

func prefixed(prefix []byte, suffix []byte) []byte {
	buf := make([]byte, len(prefix)+len(suffix))
	copy(buf, prefix)
	copy(buf[len(prefix):], suffix)
	return buf
}

func uint64Key(prefix []byte, v uint64) []byte {
	var suffix [8]byte
	binary.BigEndian.PutUint64(suffix[:], v)
	return prefixed(prefix, suffix[:])
}

func (m *Manager) getUint64(key []byte) (uint64, error) {
	ok, err := m.db.Has(key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	data, err := m.db.Get(key)
	if err != nil {
		return 0, err
	}
	var out uint64
	if err := rlp.DecodeBytes(data, &out); err != nil {
		return 0, err
	}
	return out, nil
}

func (m *Manager) putUint64(key []byte, v uint64) error {
	encoded, err := rlp.EncodeToBytes(v)
	if err != nil {
		return err
	}
	return m.db.Put(key, encoded)
}

func (m *Manager) getBool(key []byte) (bool, error) {
	ok, err := m.db.Has(key)
	if err != nil || !ok {
		return false, err
	}
	data, err := m.db.Get(key)
	if err != nil {
		return false, err
	}
	return bytes.Equal(data, flagTrue), nil
}

func (m *Manager) putBool(key []byte, v bool) error {
	if v {
		return m.db.Put(key, flagTrue)
	}
	return m.db.Put(key, []byte{0x00})
}

// --- market engine state ---

type storedListing struct {
	ID        uint64
	TokenID   uint64
	Seller    [20]byte
	Price     *big.Int
	Status    uint8
	CreatedAt uint64
}

// ListingPut persists the listing record.
func (m *Manager) ListingPut(l *market.Listing) error {
	if m == nil || m.db == nil {
		return errNilDB
	}
	sanitized, err := market.SanitizeListing(l)
	if err != nil {
		return err
	}
	record := storedListing{
		ID:        sanitized.ID,
		TokenID:   sanitized.TokenID,
		Seller:    sanitized.Seller,
		Price:     sanitized.Price,
		Status:    uint8(sanitized.Status),
		CreatedAt: uint64(sanitized.CreatedAt),
	}
	encoded, err := rlp.EncodeToBytes(record)
	if err != nil {
		return err
	}
	return m.db.Put(uint64Key(listingPrefix, sanitized.ID), encoded)
}

// ListingGet loads a listing by id.
func (m *Manager) ListingGet(id uint64) (*market.Listing, bool) {
	if m == nil || m.db == nil {
		return nil, false
	}
	key := uint64Key(listingPrefix, id)
	ok, err := m.db.Has(key)
	if err != nil || !ok {
		return nil, false
	}
	data, err := m.db.Get(key)
	if err != nil {
		return nil, false
	}
	var record storedListing
	if err := rlp.DecodeBytes(data, &record); err != nil {
		return nil, false
	}
	return &market.Listing{
		ID:        record.ID,
		TokenID:   record.TokenID,
		Seller:    record.Seller,
		Price:     record.Price,
		Status:    market.ListingStatus(record.Status),
		CreatedAt: int64(record.CreatedAt),
	}, true
}

// ListingNextID allocates the next listing identifier, starting at 1.
func (m *Manager) ListingNextID() (uint64, error) {
	if m == nil || m.db == nil {
		return 0, errNilDB
	}
	current, err := m.getUint64(listingSeqKey)
	if err != nil {
		return 0, err
	}
	next := current + 1
	if err := m.putUint64(listingSeqKey, next); err != nil {
		return 0, err
	}
	return next, nil
}

// ListingIndexAppend records the listing id under the seller's index.
func (m *Manager) ListingIndexAppend(seller [20]byte, id uint64) error {
	if m == nil || m.db == nil {
		return errNilDB
	}
	key := prefixed(listingIndexPrefix, seller[:])
	ids, err := m.ListingIndex(seller)
	if err != nil {
		return err
	}
	ids = append(ids, id)
	encoded, err := rlp.EncodeToBytes(ids)
	if err != nil {
		return err
	}
	return m.db.Put(key, encoded)
}

// ListingIndex returns the seller's listing ids in creation order.
func (m *Manager) ListingIndex(seller [20]byte) ([]uint64, error) {
	if m == nil || m.db == nil {
		return nil, errNilDB
	}
	key := prefixed(listingIndexPrefix, seller[:])
	ok, err := m.db.Has(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []uint64{}, nil
	}
	data, err := m.db.Get(key)
	if err != nil {
		return nil, err
	}
	var ids []uint64
	if err := rlp.DecodeBytes(data, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// MarketPaused reports the global trading freeze flag.
func (m *Manager) MarketPaused() (bool, error) {
	if m == nil || m.db == nil {
		return false, errNilDB
	}
	return m.getBool(marketPausedKey)
}

// SetMarketPaused stores the global trading freeze flag.
func (m *Manager) SetMarketPaused(paused bool) error {
	if m == nil || m.db == nil {
		return errNilDB
	}
	return m.putBool(marketPausedKey, paused)
}

// ListingsPaused reports the new-listings freeze flag.
func (m *Manager) ListingsPaused() (bool, error) {
	if m == nil || m.db == nil {
		return false, errNilDB
	}
	return m.getBool(listingsPausedKey)
}

// SetListingsPaused stores the new-listings freeze flag.
func (m *Manager) SetListingsPaused(paused bool) error {
	if m == nil || m.db == nil {
		return errNilDB
	}
	return m.putBool(listingsPausedKey, paused)
}

// TrustedForwarder returns the configured relay identity.
func (m *Manager) TrustedForwarder() ([20]byte, error) {
	if m == nil || m.db == nil {
		return [20]byte{}, errNilDB
	}
	ok, err := m.db.Has(forwarderKey)
	if err != nil || !ok {
		return [20]byte{}, err
	}
	data, err := m.db.Get(forwarderKey)
	if err != nil {
		return [20]byte{}, err
	}
	var out [20]byte
	copy(out[:], data)
	return out, nil
}

// SetTrustedForwarder stores the relay identity.
func (m *Manager) SetTrustedForwarder(addr [20]byte) error {
	if m == nil || m.db == nil {
		return errNilDB
	}
	return m.db.Put(forwarderKey, append([]byte(nil), addr[:]...))
}

// --- forwarder ledger state ---

// NonceGet returns the signer's relay nonce; unseen signers report 0.
func (m *Manager) NonceGet(signer [20]byte) (uint64, error) {
	if m == nil || m.db == nil {
		return 0, errNilDB
	}
	return m.getUint64(prefixed(noncePrefix, signer[:]))
}

// NoncePut stores the signer's relay nonce.
func (m *Manager) NoncePut(signer [20]byte, nonce uint64) error {
	if m == nil || m.db == nil {
		return errNilDB
	}
	return m.putUint64(prefixed(noncePrefix, signer[:]), nonce)
}

// --- access registry state ---

func roleKey(role string) []byte {
	return prefixed(rolePrefix, []byte(role))
}

func (m *Manager) roleMembersRaw(role string) ([][]byte, error) {
	key := roleKey(role)
	ok, err := m.db.Has(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return [][]byte{}, nil
	}
	data, err := m.db.Get(key)
	if err != nil {
		return nil, err
	}
	var members [][]byte
	if err := rlp.DecodeBytes(data, &members); err != nil {
		return nil, err
	}
	return members, nil
}

func (m *Manager) roleMembersStore(role string, members [][]byte) error {
	sort.Slice(members, func(i, j int) bool {
		return hex.EncodeToString(members[i]) < hex.EncodeToString(members[j])
	})
	encoded, err := rlp.EncodeToBytes(members)
	if err != nil {
		return err
	}
	return m.db.Put(roleKey(role), encoded)
}

// RoleAdd associates an address with the role. Duplicate assignments are
// ignored while the stored list stays sorted for determinism.
func (m *Manager) RoleAdd(role string, addr [20]byte) error {
	if m == nil || m.db == nil {
		return errNilDB
	}
	members, err := m.roleMembersRaw(role)
	if err != nil {
		return err
	}
	for _, existing := range members {
		if bytes.Equal(existing, addr[:]) {
			return nil
		}
	}
	members = append(members, append([]byte(nil), addr[:]...))
	return m.roleMembersStore(role, members)
}

// RoleRemove drops the address from the role; absent members are ignored.
func (m *Manager) RoleRemove(role string, addr [20]byte) error {
	if m == nil || m.db == nil {
		return errNilDB
	}
	members, err := m.roleMembersRaw(role)
	if err != nil {
		return err
	}
	filtered := members[:0]
	for _, existing := range members {
		if !bytes.Equal(existing, addr[:]) {
			filtered = append(filtered, existing)
		}
	}
	return m.roleMembersStore(role, filtered)
}

// RoleHas reports whether the address is associated with the role.
func (m *Manager) RoleHas(role string, addr [20]byte) (bool, error) {
	if m == nil || m.db == nil {
		return false, errNilDB
	}
	members, err := m.roleMembersRaw(role)
	if err != nil {
		return false, err
	}
	for _, existing := range members {
		if bytes.Equal(existing, addr[:]) {
			return true, nil
		}
	}
	return false, nil
}

// RoleMembers returns all addresses assigned to the role.
func (m *Manager) RoleMembers(role string) ([][20]byte, error) {
	if m == nil || m.db == nil {
		return nil, errNilDB
	}
	members, err := m.roleMembersRaw(role)
	if err != nil {
		return nil, err
	}
	out := make([][20]byte, 0, len(members))
	for _, member := range members {
		if len(member) != 20 {
			continue
		}
		var addr [20]byte
		copy(addr[:], member)
		out = append(out, addr)
	}
	return out, nil
}

// CapabilityRevoked reports whether the one-way flag has been set.
func (m *Manager) CapabilityRevoked(flag string) (bool, error) {
	if m == nil || m.db == nil {
		return false, errNilDB
	}
	return m.getBool(prefixed(capabilityPrefix, []byte(flag)))
}

// CapabilityRevoke sets the one-way flag. There is no clearing counterpart.
func (m *Manager) CapabilityRevoke(flag string) error {
	if m == nil || m.db == nil {
		return errNilDB
	}
	return m.putBool(prefixed(capabilityPrefix, []byte(flag)), true)
}

// --- card registry state ---

type storedCard struct {
	TokenID uint64
	Owner   [20]byte
	URI     string
}

// CardPut persists a card record.
func (m *Manager) CardPut(c *card.Card) error {
	if m == nil || m.db == nil {
		return errNilDB
	}
	if c == nil {
		return fmt.Errorf("state: nil card")
	}
	encoded, err := rlp.EncodeToBytes(storedCard{TokenID: c.TokenID, Owner: c.Owner, URI: c.URI})
	if err != nil {
		return err
	}
	return m.db.Put(uint64Key(cardPrefix, c.TokenID), encoded)
}

// CardGet loads a card by token id.
func (m *Manager) CardGet(tokenID uint64) (*card.Card, bool) {
	if m == nil || m.db == nil {
		return nil, false
	}
	key := uint64Key(cardPrefix, tokenID)
	ok, err := m.db.Has(key)
	if err != nil || !ok {
		return nil, false
	}
	data, err := m.db.Get(key)
	if err != nil {
		return nil, false
	}
	var record storedCard
	if err := rlp.DecodeBytes(data, &record); err != nil {
		return nil, false
	}
	return &card.Card{TokenID: record.TokenID, Owner: record.Owner, URI: record.URI}, true
}

// CardNextID allocates the next token identifier, starting at 1.
func (m *Manager) CardNextID() (uint64, error) {
	if m == nil || m.db == nil {
		return 0, errNilDB
	}
	current, err := m.getUint64(cardSeqKey)
	if err != nil {
		return 0, err
	}
	next := current + 1
	if err := m.putUint64(cardSeqKey, next); err != nil {
		return 0, err
	}
	return next, nil
}

func cardURIKey(uri string) []byte {
	return prefixed(cardURIPrefix, []byte(uri))
}

// CardURITaken reports whether the metadata URI is already reserved.
func (m *Manager) CardURITaken(uri string) (bool, error) {
	if m == nil || m.db == nil {
		return false, errNilDB
	}
	return m.getBool(cardURIKey(uri))
}

// CardURIReserve marks the metadata URI as used.
func (m *Manager) CardURIReserve(uri string) error {
	if m == nil || m.db == nil {
		return errNilDB
	}
	return m.putBool(cardURIKey(uri), true)
}

// CardURIRelease frees a metadata URI after a rewrite.
func (m *Manager) CardURIRelease(uri string) error {
	if m == nil || m.db == nil {
		return errNilDB
	}
	return m.putBool(cardURIKey(uri), false)
}

// CardApprovalPut stores the per-token transfer approval; the zero address
// clears it.
func (m *Manager) CardApprovalPut(tokenID uint64, operator [20]byte) error {
	if m == nil || m.db == nil {
		return errNilDB
	}
	return m.db.Put(uint64Key(cardApprovalPrefix, tokenID), append([]byte(nil), operator[:]...))
}

// CardApprovalGet returns the operator approved for the token, if any.
func (m *Manager) CardApprovalGet(tokenID uint64) ([20]byte, error) {
	if m == nil || m.db == nil {
		return [20]byte{}, errNilDB
	}
	key := uint64Key(cardApprovalPrefix, tokenID)
	ok, err := m.db.Has(key)
	if err != nil || !ok {
		return [20]byte{}, err
	}
	data, err := m.db.Get(key)
	if err != nil {
		return [20]byte{}, err
	}
	var out [20]byte
	copy(out[:], data)
	return out, nil
}

// ApprovedMarketSet stores a marketplace operator allow-list entry.
func (m *Manager) ApprovedMarketSet(market [20]byte, approved bool) error {
	if m == nil || m.db == nil {
		return errNilDB
	}
	return m.putBool(prefixed(approvedMarketPrefix, market[:]), approved)
}

// ApprovedMarket reports whether the marketplace is allow-listed.
func (m *Manager) ApprovedMarket(market [20]byte) (bool, error) {
	if m == nil || m.db == nil {
		return false, errNilDB
	}
	return m.getBool(prefixed(approvedMarketPrefix, market[:]))
}

type storedRoyalty struct {
	Recipient [20]byte
	FeeBps    uint32
}

// RoyaltyPut stores the collection royalty configuration.
func (m *Manager) RoyaltyPut(cfg card.RoyaltyConfig) error {
	if m == nil || m.db == nil {
		return errNilDB
	}
	encoded, err := rlp.EncodeToBytes(storedRoyalty{Recipient: cfg.Recipient, FeeBps: cfg.FeeBps})
	if err != nil {
		return err
	}
	return m.db.Put(royaltyKey, encoded)
}

// RoyaltyGet loads the collection royalty configuration.
func (m *Manager) RoyaltyGet() (card.RoyaltyConfig, bool, error) {
	if m == nil || m.db == nil {
		return card.RoyaltyConfig{}, false, errNilDB
	}
	ok, err := m.db.Has(royaltyKey)
	if err != nil || !ok {
		return card.RoyaltyConfig{}, false, err
	}
	data, err := m.db.Get(royaltyKey)
	if err != nil {
		return card.RoyaltyConfig{}, false, err
	}
	var record storedRoyalty
	if err := rlp.DecodeBytes(data, &record); err != nil {
		return card.RoyaltyConfig{}, false, err
	}
	return card.RoyaltyConfig{Recipient: record.Recipient, FeeBps: record.FeeBps}, true, nil
}

// ContractURIPut stores the collection-level metadata URL.
func (m *Manager) ContractURIPut(uri string) error {
	if m == nil || m.db == nil {
		return errNilDB
	}
	return m.db.Put(contractURIKey, []byte(uri))
}

// ContractURIGet loads the collection-level metadata URL, empty when unset.
func (m *Manager) ContractURIGet() (string, error) {
	if m == nil || m.db == nil {
		return "", errNilDB
	}
	ok, err := m.db.Has(contractURIKey)
	if err != nil || !ok {
		return "", err
	}
	data, err := m.db.Get(contractURIKey)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// --- token ledger state ---

func (m *Manager) getBigInt(key []byte) (*big.Int, error) {
	ok, err := m.db.Has(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	data, err := m.db.Get(key)
	if err != nil {
		return nil, err
	}
	out := new(big.Int)
	if err := rlp.DecodeBytes(data, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *Manager) putBigInt(key []byte, v *big.Int) error {
	if v == nil {
		v = big.NewInt(0)
	}
	encoded, err := rlp.EncodeToBytes(v)
	if err != nil {
		return err
	}
	return m.db.Put(key, encoded)
}

// BalanceGet returns the payment-unit balance for the account.
func (m *Manager) BalanceGet(addr [20]byte) (*big.Int, error) {
	if m == nil || m.db == nil {
		return nil, errNilDB
	}
	return m.getBigInt(prefixed(balancePrefix, addr[:]))
}

// BalancePut stores the payment-unit balance for the account.
func (m *Manager) BalancePut(addr [20]byte, amount *big.Int) error {
	if m == nil || m.db == nil {
		return errNilDB
	}
	return m.putBigInt(prefixed(balancePrefix, addr[:]), amount)
}

func allowanceKey(owner, spender [20]byte) []byte {
	return prefixed(allowancePrefix, append(append([]byte(nil), owner[:]...), spender[:]...))
}

// AllowanceGet returns the spender's allowance over the owner's balance.
func (m *Manager) AllowanceGet(owner, spender [20]byte) (*big.Int, error) {
	if m == nil || m.db == nil {
		return nil, errNilDB
	}
	return m.getBigInt(allowanceKey(owner, spender))
}

// AllowancePut stores the spender's allowance over the owner's balance.
func (m *Manager) AllowancePut(owner, spender [20]byte, amount *big.Int) error {
	if m == nil || m.db == nil {
		return errNilDB
	}
	return m.putBigInt(allowanceKey(owner, spender), amount)
}
