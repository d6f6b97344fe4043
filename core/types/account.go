package types

import "math/big"

// TokenAccount holds the external token balance for an address. The staking
// ledger never touches these balances directly; all movement goes through the
// token bridge.
type TokenAccount struct {
	Balance *big.Int `json:"balance"`
	Nonce   uint64   `json:"nonce"`
}

// EnsureTokenAccount normalises a possibly-nil account into a usable value.
func EnsureTokenAccount(acc *TokenAccount) *TokenAccount {
	if acc == nil {
		return &TokenAccount{Balance: big.NewInt(0)}
	}
	if acc.Balance == nil {
		acc.Balance = big.NewInt(0)
	}
	return acc
}
