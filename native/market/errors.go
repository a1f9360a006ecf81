package market

import "errors"

var (
	// ErrInvalidPrice rejects listings priced at zero.
	ErrInvalidPrice = errors.New("market: price can't be 0")
	// ErrNotCardOwner rejects listings by anyone but the owner of record.
	ErrNotCardOwner = errors.New("market: not card owner")
	// ErrListingNotFound covers unknown ids and listings in a terminal state.
	ErrListingNotFound = errors.New("market: invalid listing")
	// ErrNotSeller rejects delisting by anyone but the original lister.
	ErrNotSeller = errors.New("market: not the seller")
	// ErrBuyerIsSeller rejects self-purchases.
	ErrBuyerIsSeller = errors.New("market: buyer is seller")
	// ErrMarketPaused blocks all trading operations during a full freeze.
	ErrMarketPaused = errors.New("market: market paused")
	// ErrListingsPaused blocks new listings only; exits stay open.
	ErrListingsPaused = errors.New("market: new listings paused")
	// ErrNoChange rejects pause toggles that match the current value.
	ErrNoChange = errors.New("market: no change")
	// ErrNotAdmin rejects administrative calls from non-admin callers.
	ErrNotAdmin = errors.New("market: caller is not an admin")
	// ErrInvalidForwarder rejects the zero address as a trusted forwarder.
	ErrInvalidForwarder = errors.New("market: invalid forwarder")
	// ErrAlreadyForwarder rejects forwarder updates that change nothing.
	ErrAlreadyForwarder = errors.New("market: already the forwarder")
)

var (
	errNilState  = errors.New("market engine: state not configured")
	errNilCards  = errors.New("market engine: card registry not configured")
	errNilLedger = errors.New("market engine: payment ledger not configured")
	errNilVault  = errors.New("market engine: custody account not configured")
)
