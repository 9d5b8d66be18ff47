package service

import "errors"

// Typed business errors returned to the boundary layer. The core never logs
// these; the HTTP layer maps them onto status codes.
var (
	ErrNotFound          = errors.New("entity not found")
	ErrAlreadyPlaced     = errors.New("member already placed in the network")
	ErrAlreadyActive     = errors.New("wallet already active")
	ErrAlreadySponsored  = errors.New("member already has an accepted sponsor")
	ErrDuplicatePending  = errors.New("member already has a pending referral request")
	ErrCircularReference = errors.New("sponsorship would create a circular reference")
	ErrInsufficientFunds = errors.New("insufficient wallet balance")
	ErrWalletInactive    = errors.New("wallet is not active")
	ErrNonZeroBalance    = errors.New("wallet balance must be zero")
	ErrInvalidAmount     = errors.New("amount must be greater than zero")
	ErrConflict          = errors.New("concurrent update conflict, retries exhausted")
	ErrAlreadyResolved   = errors.New("request already resolved")
	ErrNoActiveWallets   = errors.New("no active wallets to recharge")
	ErrAlreadyReversed   = errors.New("bulk recharge already reversed")
	ErrSelfReferral      = errors.New("requester and sponsor are the same member")
	ErrCodeUsed          = errors.New("referral code invalid or already used")
	ErrUsernameTaken     = errors.New("username already in use")
)
