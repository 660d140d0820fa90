package engine

import "errors"

// Error kinds surfaced by the engine. Book-level kinds
// (book.ErrOrderNotFound, book.ErrPartialExceedsOrder) and
// state.ErrNameTooLong pass through wrapped; classify with errors.Is.
var (
	ErrNotInitialized     = errors.New("global state not initialized")
	ErrAlreadyInitialized = errors.New("global state already initialized")

	ErrNotAdmin          = errors.New("caller is not the configured admin")
	ErrNotAuthority      = errors.New("caller is not the market authority")
	ErrOwnerMismatch     = errors.New("record owner does not match caller")
	ErrMarketNotFound    = errors.New("market not found")
	ErrOpenOrdersMissing = errors.New("open orders record not found")
	ErrOpenOrdersExists  = errors.New("open orders record already exists")

	ErrCapacityExceeded = errors.New("order limit reached")

	// InsufficientBalance splits into the deposit-side and vault-side
	// variants for diagnostics.
	ErrInsufficientDeposit = errors.New("deposit source balance insufficient")
	ErrInsufficientVault   = errors.New("market vault balance insufficient")

	ErrNonEmptyMarket = errors.New("cannot close a non-empty market")

	ErrInvalidOrder = errors.New("price and quantity must be positive")

	// ErrArchiveFailed wraps an Archiver.Commit error. The transition has
	// fully applied in memory; only its persistence failed, so in-memory
	// state is authoritative and the node needs a storage check before
	// the next restart.
	ErrArchiveFailed = errors.New("state transition applied but not archived")
)
