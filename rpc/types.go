package rpc

import (
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"kudomarket/core"
	"kudomarket/crypto"
	"kudomarket/native/access"
	"kudomarket/native/card"
	"kudomarket/native/forwarder"
	"kudomarket/native/market"
	"kudomarket/native/token"
)

const (
	codeMarketInvalidParams = -32031
	codeMarketNotFound      = -32032
	codeMarketForbidden     = -32033
	codeMarketConflict      = -32034
	codeMarketDependency    = -32035
	codeMarketInternal      = -32036
)

// ListingJSON is the RPC projection of a listing. The isActive/isSold pair
// mirrors the shape indexers already consume.
type ListingJSON struct {
	ListingID uint64 `json:"listingId"`
	TokenID   uint64 `json:"tokenId"`
	Seller    string `json:"seller"`
	Price     string `json:"price"`
	IsActive  bool   `json:"isActive"`
	IsSold    bool   `json:"isSold"`
	Status    string `json:"status"`
	CreatedAt int64  `json:"createdAt"`
}

func listingJSON(l *market.Listing) ListingJSON {
	return ListingJSON{
		ListingID: l.ID,
		TokenID:   l.TokenID,
		Seller:    crypto.MustAddressFromBytes(l.Seller).String(),
		Price:     l.Price.String(),
		IsActive:  l.Status == market.ListingActive,
		IsSold:    l.Status == market.ListingSold,
		Status:    l.Status.String(),
		CreatedAt: l.CreatedAt,
	}
}

// CardJSON is the RPC projection of a card record.
type CardJSON struct {
	TokenID uint64 `json:"tokenId"`
	Owner   string `json:"owner"`
	URI     string `json:"uri"`
}

func cardJSON(c *card.Card) CardJSON {
	return CardJSON{
		TokenID: c.TokenID,
		Owner:   crypto.MustAddressFromBytes(c.Owner).String(),
		URI:     c.URI,
	}
}

func parseAddress(value, field string) ([20]byte, error) {
	addr, err := crypto.DecodeAddress(strings.TrimSpace(value))
	if err != nil {
		return [20]byte{}, fmt.Errorf("invalid %s: %w", field, err)
	}
	return addr.Array(), nil
}

func parseAmount(value, field string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok || amount.Sign() < 0 {
		return nil, fmt.Errorf("invalid %s: %q", field, value)
	}
	return amount, nil
}

// writeModuleError maps engine sentinel errors onto the module's RPC error
// codes: not-found, forbidden, conflict, dependency and internal buckets.
func writeModuleError(w http.ResponseWriter, id interface{}, err error) {
	switch {
	case errors.Is(err, market.ErrListingNotFound), errors.Is(err, card.ErrCardNotFound):
		writeError(w, http.StatusNotFound, id, codeMarketNotFound, err.Error(), nil)
	case errors.Is(err, market.ErrNotSeller),
		errors.Is(err, market.ErrBuyerIsSeller),
		errors.Is(err, market.ErrNotCardOwner),
		errors.Is(err, market.ErrNotAdmin),
		errors.Is(err, access.ErrNotAdmin),
		errors.Is(err, access.ErrAbilityRevoked),
		errors.Is(err, card.ErrNotMinter),
		errors.Is(err, card.ErrNotAdmin),
		errors.Is(err, card.ErrNotOwner),
		errors.Is(err, core.ErrUntrustedRelayer),
		errors.Is(err, forwarder.ErrBadSignature):
		writeError(w, http.StatusForbidden, id, codeMarketForbidden, err.Error(), nil)
	case errors.Is(err, market.ErrNoChange),
		errors.Is(err, market.ErrMarketPaused),
		errors.Is(err, market.ErrListingsPaused),
		errors.Is(err, market.ErrAlreadyForwarder),
		errors.Is(err, access.ErrAlreadyRevoked),
		errors.Is(err, card.ErrDuplicateTokenURI),
		errors.Is(err, card.ErrNoChange),
		errors.Is(err, forwarder.ErrBadNonce):
		writeError(w, http.StatusConflict, id, codeMarketConflict, err.Error(), nil)
	case errors.Is(err, token.ErrInsufficientBalance),
		errors.Is(err, token.ErrInsufficientAllowance),
		errors.Is(err, card.ErrTransferUnauthorized):
		writeError(w, http.StatusBadRequest, id, codeMarketDependency, err.Error(), nil)
	case errors.Is(err, market.ErrInvalidPrice),
		errors.Is(err, market.ErrInvalidForwarder),
		errors.Is(err, card.ErrLengthMismatch),
		errors.Is(err, card.ErrDataMismatch),
		errors.Is(err, card.ErrFeeTooHigh),
		errors.Is(err, card.ErrInvalidRecipient):
		writeError(w, http.StatusBadRequest, id, codeMarketInvalidParams, err.Error(), nil)
	default:
		writeError(w, http.StatusInternalServerError, id, codeMarketInternal, err.Error(), nil)
	}
}
