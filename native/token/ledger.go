package token

import (
	"errors"
	"math/big"

	"github.com/loomnetwork/loom-token/core/types"
)

var (
	errNilState = errors.New("token ledger: state not configured")

	// ErrInvalidAmount rejects nil, zero or negative transfer amounts.
	ErrInvalidAmount = errors.New("token ledger: amount must be positive")
	// ErrInsufficientFunds rejects transfers exceeding the source balance.
	ErrInsufficientFunds = errors.New("token ledger: insufficient funds")
)

type ledgerState interface {
	TokenAccount(addr [20]byte) (*types.TokenAccount, error)
	PutTokenAccount(addr [20]byte, acct *types.TokenAccount) error
}

// Ledger is the fungible-token collaborator backing the staking bridge.
// Staked funds sit in a vault account; both bridge calls are atomic and a
// returned error aborts the caller's ledger operation.
type Ledger struct {
	state ledgerState
	vault [20]byte
}

// NewLedger creates a token ledger whose staked funds accumulate in vault.
func NewLedger(vault [20]byte) *Ledger {
	return &Ledger{vault: vault}
}

// SetState wires the ledger to the external persistence layer.
func (l *Ledger) SetState(state ledgerState) { l.state = state }

// Vault returns the address holding all staked funds.
func (l *Ledger) Vault() [20]byte { return l.vault }

// TransferInto moves amount from the holder into the staking vault.
func (l *Ledger) TransferInto(from [20]byte, amount *big.Int) error {
	return l.transfer(from, l.vault, amount)
}

// TransferOut pays amount from the staking vault back to the holder.
func (l *Ledger) TransferOut(to [20]byte, amount *big.Int) error {
	return l.transfer(l.vault, to, amount)
}

// Mint credits freshly issued tokens to an address. The staking engine's
// reward accrual settles against the vault through this path at deployment
// time; tests use it to fund holders.
func (l *Ledger) Mint(to [20]byte, amount *big.Int) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	acc, err := l.load(to)
	if err != nil {
		return err
	}
	acc.Balance = new(big.Int).Add(acc.Balance, amount)
	return l.state.PutTokenAccount(to, acc)
}

// BalanceOf returns the holder's current balance.
func (l *Ledger) BalanceOf(addr [20]byte) (*big.Int, error) {
	if l == nil || l.state == nil {
		return nil, errNilState
	}
	acc, err := l.load(addr)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(acc.Balance), nil
}

func (l *Ledger) transfer(from, to [20]byte, amount *big.Int) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	src, err := l.load(from)
	if err != nil {
		return err
	}
	if src.Balance.Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}
	// A self-transfer would load the same account twice and double-write it.
	if from == to {
		return nil
	}
	dst, err := l.load(to)
	if err != nil {
		return err
	}
	src.Balance = new(big.Int).Sub(src.Balance, amount)
	dst.Balance = new(big.Int).Add(dst.Balance, amount)
	if err := l.state.PutTokenAccount(from, src); err != nil {
		return err
	}
	return l.state.PutTokenAccount(to, dst)
}

func (l *Ledger) load(addr [20]byte) (*types.TokenAccount, error) {
	acc, err := l.state.TokenAccount(addr)
	if err != nil {
		return nil, err
	}
	return types.EnsureTokenAccount(acc), nil
}
