package market

import (
	"fmt"
	"math/big"
)

// ListingStatus captures the lifecycle of a single listing. Sold and delisted
// are terminal; the transition table below is the only authority on allowed
// moves.
type ListingStatus uint8

const (
	ListingActive ListingStatus = iota + 1
	ListingSold
	ListingDelisted
)

var listingTransitions = map[ListingStatus]map[ListingStatus]bool{
	ListingActive: {
		ListingSold:     true,
		ListingDelisted: true,
	},
	ListingSold:     {},
	ListingDelisted: {},
}

// Valid reports whether the status value is within the supported range.
func (s ListingStatus) Valid() bool {
	switch s {
	case ListingActive, ListingSold, ListingDelisted:
		return true
	default:
		return false
	}
}

// Terminal reports whether the status permits no further transitions.
func (s ListingStatus) Terminal() bool {
	allowed, ok := listingTransitions[s]
	return ok && len(allowed) == 0
}

// CanTransition reports whether a listing may move from s to next.
func (s ListingStatus) CanTransition(next ListingStatus) bool {
	return listingTransitions[s][next]
}

func (s ListingStatus) String() string {
	switch s {
	case ListingActive:
		return "active"
	case ListingSold:
		return "sold"
	case ListingDelisted:
		return "delisted"
	default:
		return fmt.Sprintf("0x%02x", uint8(s))
	}
}

// Listing records a card held in marketplace custody together with its asking
// price. Identifiers are allocated monotonically starting at 1 and are never
// reused; records are terminated (sold or delisted) but never deleted.
type Listing struct {
	ID        uint64
	TokenID   uint64
	Seller    [20]byte
	Price     *big.Int
	Status    ListingStatus
	CreatedAt int64
}

// Active reports whether the listing can still be bought or delisted.
func (l *Listing) Active() bool {
	return l != nil && l.Status == ListingActive
}

// Sold reports whether the listing settled to a buyer.
func (l *Listing) Sold() bool {
	return l != nil && l.Status == ListingSold
}

// Clone returns a deep copy of the listing so callers can safely mutate the
// copy without affecting the stored instance.
func (l *Listing) Clone() *Listing {
	if l == nil {
		return nil
	}
	clone := *l
	if l.Price != nil {
		clone.Price = new(big.Int).Set(l.Price)
	} else {
		clone.Price = big.NewInt(0)
	}
	return &clone
}

// SanitizeListing validates and normalises the supplied listing, returning a
// cloned instance with a non-nil price. The original value is not mutated.
func SanitizeListing(l *Listing) (*Listing, error) {
	if l == nil {
		return nil, fmt.Errorf("nil listing")
	}
	clone := l.Clone()
	if clone.ID == 0 {
		return nil, fmt.Errorf("listing id must be positive")
	}
	if clone.Price.Sign() <= 0 {
		return nil, fmt.Errorf("listing price must be positive")
	}
	if !clone.Status.Valid() {
		return nil, fmt.Errorf("invalid listing status: %d", clone.Status)
	}
	return clone, nil
}
