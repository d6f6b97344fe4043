package staking

import "errors"

var (
	errNilState = errors.New("staking engine: state not configured")
	errNilToken = errors.New("staking engine: token bridge not configured")

	// ErrNotOwner rejects administrative calls from anyone but the owner.
	ErrNotOwner = errors.New("staking engine: caller is not the owner")
	// ErrInvalidPeriod rejects period selectors outside the four lockups.
	ErrInvalidPeriod = errors.New("staking engine: invalid lockup period")
	// ErrInvalidAmount rejects nil, zero or negative amounts.
	ErrInvalidAmount = errors.New("staking engine: amount must be positive")
	// ErrAmountTooSmall rejects amounts below one whole unit after truncation.
	ErrAmountTooSmall = errors.New("staking engine: amount below one whole unit")
	// ErrInsufficientBalance rejects requests exceeding the unlocked balance.
	ErrInsufficientBalance = errors.New("staking engine: amount exceeds unlocked balance")
	// ErrAccountNotFound is returned when the caller holds no ledger account.
	ErrAccountNotFound = errors.New("staking engine: account not found")
	// ErrAccountAlreadyExists rejects imports targeting a live account.
	ErrAccountAlreadyExists = errors.New("staking engine: account already exists")
	// ErrStakeNotFound is returned when amend finds no active stake for the period.
	ErrStakeNotFound = errors.New("staking engine: no active stake for period")
	// ErrTooManyStakes enforces the per-account stake cap on append.
	ErrTooManyStakes = errors.New("staking engine: too many stakes on account")
	// ErrMustExtend rejects non-extending amends while the force-extend toggle is on.
	ErrMustExtend = errors.New("staking engine: amend must extend the lockup")
	// ErrNothingToWithdraw rejects withdrawals from an empty unlocked balance.
	ErrNothingToWithdraw = errors.New("staking engine: nothing to withdraw")
	// ErrInvalidRewardsPeriod signals a rewards window that ends before it starts.
	ErrInvalidRewardsPeriod = errors.New("staking engine: rewards period ends before it starts")
	// ErrLengthMismatch rejects import batches with unequal array lengths.
	ErrLengthMismatch = errors.New("staking engine: import batch length mismatch")
	// ErrTokenTransfer wraps failures surfaced by the external token bridge.
	ErrTokenTransfer = errors.New("staking engine: token transfer failed")
)
