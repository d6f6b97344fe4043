package state

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/loomnetwork/loom-token/core/types"
	"github.com/loomnetwork/loom-token/native/staking"
	"github.com/loomnetwork/loom-token/storage"
)

const (
	stakingAccountPrefix = "staking/acct/"
	stakingGlobalsKey    = "staking/globals"
	tokenAccountPrefix   = "token/acct/"
)

// Store persists staking accounts, the global aggregates and token balances
// in a key-value database. It backs both the staking engine and the token
// ledger.
type Store struct {
	db storage.Database
}

// NewStore wraps the provided database.
func NewStore(db storage.Database) *Store {
	return &Store{db: db}
}

// EnsureGlobals seeds the aggregate record on first boot and leaves an
// existing record untouched so administrative changes survive restarts.
func (s *Store) EnsureGlobals(defaults *staking.Globals) error {
	ok, err := s.db.Has([]byte(stakingGlobalsKey))
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	if defaults == nil {
		return errors.New("state: nil default globals")
	}
	return s.PutStakingGlobals(defaults)
}

// StakingAccount loads an account record; the second return reports presence.
func (s *Store) StakingAccount(addr [20]byte) (*staking.Account, bool, error) {
	raw, err := s.db.Get(stakingAccountKey(addr))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	acct := new(staking.Account)
	if err := json.Unmarshal(raw, acct); err != nil {
		return nil, false, fmt.Errorf("state: decode staking account: %w", err)
	}
	return acct, true, nil
}

// PutStakingAccount stores an account record.
func (s *Store) PutStakingAccount(addr [20]byte, acct *staking.Account) error {
	raw, err := json.Marshal(acct)
	if err != nil {
		return fmt.Errorf("state: encode staking account: %w", err)
	}
	return s.db.Put(stakingAccountKey(addr), raw)
}

// DeleteStakingAccount releases the storage slot for a purged account.
func (s *Store) DeleteStakingAccount(addr [20]byte) error {
	return s.db.Delete(stakingAccountKey(addr))
}

// StakingGlobals loads the aggregate record.
func (s *Store) StakingGlobals() (*staking.Globals, error) {
	raw, err := s.db.Get([]byte(stakingGlobalsKey))
	if err != nil {
		return nil, fmt.Errorf("state: load staking globals: %w", err)
	}
	g := new(staking.Globals)
	if err := json.Unmarshal(raw, g); err != nil {
		return nil, fmt.Errorf("state: decode staking globals: %w", err)
	}
	return g, nil
}

// PutStakingGlobals stores the aggregate record.
func (s *Store) PutStakingGlobals(g *staking.Globals) error {
	raw, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("state: encode staking globals: %w", err)
	}
	return s.db.Put([]byte(stakingGlobalsKey), raw)
}

// TokenAccount loads a token balance record, nil when absent.
func (s *Store) TokenAccount(addr [20]byte) (*types.TokenAccount, error) {
	raw, err := s.db.Get(tokenAccountKey(addr))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	acc := new(types.TokenAccount)
	if err := json.Unmarshal(raw, acc); err != nil {
		return nil, fmt.Errorf("state: decode token account: %w", err)
	}
	return acc, nil
}

// PutTokenAccount stores a token balance record.
func (s *Store) PutTokenAccount(addr [20]byte, acc *types.TokenAccount) error {
	raw, err := json.Marshal(acc)
	if err != nil {
		return fmt.Errorf("state: encode token account: %w", err)
	}
	return s.db.Put(tokenAccountKey(addr), raw)
}

func stakingAccountKey(addr [20]byte) []byte {
	return []byte(stakingAccountPrefix + hex.EncodeToString(addr[:]))
}

func tokenAccountKey(addr [20]byte) []byte {
	return []byte(tokenAccountPrefix + hex.EncodeToString(addr[:]))
}
