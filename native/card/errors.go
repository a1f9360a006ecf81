package card

import "errors"

var (
	// ErrCardNotFound rejects lookups for unminted token ids.
	ErrCardNotFound = errors.New("card: unknown token")
	// ErrTransferUnauthorized rejects custody moves the caller has no
	// approval for.
	ErrTransferUnauthorized = errors.New("card: transfer unauthorized")
	// ErrDuplicateTokenURI enforces metadata-URI uniqueness across mints
	// and rewrites.
	ErrDuplicateTokenURI = errors.New("card: already minted tokenURI")
	// ErrLengthMismatch rejects batch calls with uneven id/uri lists.
	ErrLengthMismatch = errors.New("card: invalid data")
	// ErrDataMismatch rejects metadata rewrites aimed at unminted tokens.
	ErrDataMismatch = errors.New("card: data mismatch")
	// ErrFeeTooHigh caps royalties at MaxRoyaltyBps.
	ErrFeeTooHigh = errors.New("card: fee too high")
	// ErrNotMinter rejects mint or metadata calls without the minter role.
	ErrNotMinter = errors.New("card: caller is not a minter")
	// ErrNotAdmin rejects admin-gated calls from other callers.
	ErrNotAdmin = errors.New("card: caller is not an admin")
	// ErrNotOwner rejects approvals from anyone but the card owner.
	ErrNotOwner = errors.New("card: caller is not the owner")
	// ErrInvalidRecipient rejects mints to the zero address.
	ErrInvalidRecipient = errors.New("card: invalid recipient")
	// ErrNoChange rejects contract metadata updates that restate the
	// current value.
	ErrNoChange = errors.New("card: no change")

	errNilState = errors.New("card registry: state not configured")
	errNilRoles = errors.New("card registry: access registry not configured")
)
