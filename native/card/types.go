package card

import (
	"fmt"
	"strings"
)

// Card records ownership and metadata for a single minted collectible.
// Token identifiers are allocated monotonically starting at 1.
type Card struct {
	TokenID uint64
	Owner   [20]byte
	URI     string
}

// Clone returns a copy of the card record.
func (c *Card) Clone() *Card {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// RoyaltyConfig is the collection-wide royalty split applied on sales.
// FeeBps is capped at MaxRoyaltyBps; a zero recipient disables the split.
type RoyaltyConfig struct {
	Recipient [20]byte
	FeeBps    uint32
}

// MaxRoyaltyBps is the hard ceiling on the royalty fee (10%).
const MaxRoyaltyBps uint32 = 1000

// NormalizeURI trims the metadata URI and rejects blanks.
func NormalizeURI(uri string) (string, error) {
	trimmed := strings.TrimSpace(uri)
	if trimmed == "" {
		return "", fmt.Errorf("card: token uri must not be empty")
	}
	return trimmed, nil
}
