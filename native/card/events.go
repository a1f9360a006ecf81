package card

import (
	"encoding/hex"
	"strconv"
	"strings"

	"kudomarket/core/types"
)

const (
	EventTypeMinted          = "card.minted"
	EventTypeBatchMinted     = "card.batch_minted"
	EventTypeTokenURIsUpdate = "card.uris_updated"
	EventTypeRoyaltyUpdated  = "card.royalty_updated"
	EventTypeMarketApproved  = "card.market_approved"
	EventTypeContractURI     = "card.contract_uri_updated"
)

// NewMintedEvent returns the canonical payload for a single mint.
func NewMintedEvent(c *Card, actor [20]byte) *types.Event {
	attrs := make(map[string]string)
	if c != nil {
		attrs["tokenId"] = strconv.FormatUint(c.TokenID, 10)
		attrs["owner"] = hex.EncodeToString(c.Owner[:])
		attrs["uri"] = c.URI
	}
	attrs["actor"] = hex.EncodeToString(actor[:])
	return &types.Event{Type: EventTypeMinted, Attributes: attrs}
}

// NewBatchMintedEvent returns the canonical payload for a batch mint.
func NewBatchMintedEvent(to [20]byte, tokenIDs []uint64, actor [20]byte) *types.Event {
	return &types.Event{Type: EventTypeBatchMinted, Attributes: map[string]string{
		"owner":    hex.EncodeToString(to[:]),
		"tokenIds": joinIDs(tokenIDs),
		"actor":    hex.EncodeToString(actor[:]),
	}}
}

// NewTokenURIsUpdatedEvent returns the payload for a metadata rewrite.
func NewTokenURIsUpdatedEvent(tokenIDs []uint64, actor [20]byte) *types.Event {
	return &types.Event{Type: EventTypeTokenURIsUpdate, Attributes: map[string]string{
		"tokenIds": joinIDs(tokenIDs),
		"actor":    hex.EncodeToString(actor[:]),
	}}
}

// NewRoyaltyUpdatedEvent returns the payload for a royalty config change.
func NewRoyaltyUpdatedEvent(cfg RoyaltyConfig, actor [20]byte) *types.Event {
	return &types.Event{Type: EventTypeRoyaltyUpdated, Attributes: map[string]string{
		"recipient": hex.EncodeToString(cfg.Recipient[:]),
		"feeBps":    strconv.FormatUint(uint64(cfg.FeeBps), 10),
		"actor":     hex.EncodeToString(actor[:]),
	}}
}

// NewMarketApprovedEvent returns the payload for an approved-market change.
func NewMarketApprovedEvent(market [20]byte, approved bool, actor [20]byte) *types.Event {
	return &types.Event{Type: EventTypeMarketApproved, Attributes: map[string]string{
		"market":   hex.EncodeToString(market[:]),
		"approved": strconv.FormatBool(approved),
		"actor":    hex.EncodeToString(actor[:]),
	}}
}

// NewContractURIUpdatedEvent returns the payload for a collection metadata
// URL change.
func NewContractURIUpdatedEvent(uri string, actor [20]byte) *types.Event {
	return &types.Event{Type: EventTypeContractURI, Attributes: map[string]string{
		"uri":   uri,
		"actor": hex.EncodeToString(actor[:]),
	}}
}

func joinIDs(ids []uint64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatUint(id, 10)
	}
	return strings.Join(parts, ",")
}
