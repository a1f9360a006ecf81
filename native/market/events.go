package market

import (
	"encoding/hex"
	"strconv"

	"kudomarket/core/types"
)

const (
	EventTypeListingCreated   = "market.listing.created"
	EventTypeListingDelisted  = "market.listing.delisted"
	EventTypeListingSold      = "market.listing.sold"
	EventTypeMarketPaused     = "market.paused"
	EventTypeListingsPaused   = "market.listings_paused"
	EventTypeForwarderUpdated = "market.forwarder_updated"
)

// NewListedEvent returns the canonical payload for a freshly created listing.
func NewListedEvent(l *Listing) *types.Event {
	return newListingEvent(EventTypeListingCreated, l, nil)
}

// NewDelistedEvent returns the canonical payload emitted when a seller pulls
// a listing.
func NewDelistedEvent(l *Listing) *types.Event {
	return newListingEvent(EventTypeListingDelisted, l, nil)
}

// NewSoldEvent returns the canonical payload for a settled sale.
func NewSoldEvent(l *Listing, buyer [20]byte) *types.Event {
	return newListingEvent(EventTypeListingSold, l, map[string]string{
		"buyer": hex.EncodeToString(buyer[:]),
	})
}

// NewMarketPausedEvent returns the payload for a global pause toggle.
func NewMarketPausedEvent(actor [20]byte, paused bool) *types.Event {
	return newPauseEvent(EventTypeMarketPaused, actor, paused)
}

// NewListingsPausedEvent returns the payload for a new-listings pause toggle.
func NewListingsPausedEvent(actor [20]byte, paused bool) *types.Event {
	return newPauseEvent(EventTypeListingsPaused, actor, paused)
}

// NewForwarderUpdatedEvent returns the payload emitted when the trusted relay
// identity changes.
func NewForwarderUpdatedEvent(actor [20]byte, forwarder [20]byte) *types.Event {
	return &types.Event{Type: EventTypeForwarderUpdated, Attributes: map[string]string{
		"actor":     hex.EncodeToString(actor[:]),
		"forwarder": hex.EncodeToString(forwarder[:]),
	}}
}

func newListingEvent(eventType string, l *Listing, extra map[string]string) *types.Event {
	attrs := make(map[string]string)
	if l == nil {
		return &types.Event{Type: eventType, Attributes: attrs}
	}
	sanitized, err := SanitizeListing(l)
	if err != nil {
		return &types.Event{Type: eventType, Attributes: attrs}
	}
	attrs["listingId"] = strconv.FormatUint(sanitized.ID, 10)
	attrs["tokenId"] = strconv.FormatUint(sanitized.TokenID, 10)
	attrs["seller"] = hex.EncodeToString(sanitized.Seller[:])
	attrs["price"] = sanitized.Price.String()
	attrs["status"] = sanitized.Status.String()
	for k, v := range extra {
		attrs[k] = v
	}
	return &types.Event{Type: eventType, Attributes: attrs}
}

func newPauseEvent(eventType string, actor [20]byte, paused bool) *types.Event {
	return &types.Event{Type: eventType, Attributes: map[string]string{
		"actor":    hex.EncodeToString(actor[:]),
		"newValue": strconv.FormatBool(paused),
	}}
}
