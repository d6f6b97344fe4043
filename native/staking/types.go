package staking

import "math/big"

// Stake is a single lockup record. Amount is a whole-unit principal; any
// fractional remainder lives in the owning account's unlocked balance.
type Stake struct {
	Period   Period   `json:"period"`
	UnlockAt int64    `json:"unlockAt"`
	Amount   *big.Int `json:"amount"`
}

// Clone returns an independent copy of the stake.
func (s Stake) Clone() Stake {
	return Stake{Period: s.Period, UnlockAt: s.UnlockAt, Amount: cloneBigInt(s.Amount)}
}

// Account is the per-address ledger record. Existence is derived: an account
// with a zero balance and no stakes does not exist and is purged from state.
type Account struct {
	LastClaimedAt   int64    `json:"lastClaimedAt"`
	UnlockedBalance *big.Int `json:"unlockedBalance"`
	Stakes          []Stake  `json:"stakes,omitempty"`
}

// Exists reports whether the account still holds any value.
func (a *Account) Exists() bool {
	if a == nil {
		return false
	}
	return (a.UnlockedBalance != nil && a.UnlockedBalance.Sign() > 0) || len(a.Stakes) > 0
}

// Clone returns a deep copy safe to mutate without touching stored state.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	out := &Account{
		LastClaimedAt:   a.LastClaimedAt,
		UnlockedBalance: cloneBigInt(a.UnlockedBalance),
	}
	if len(a.Stakes) > 0 {
		out.Stakes = make([]Stake, len(a.Stakes))
		for i, s := range a.Stakes {
			out.Stakes[i] = s.Clone()
		}
	}
	return out
}

// Globals is the process-wide aggregate record maintained alongside the keyed
// account collection.
type Globals struct {
	Owner               [20]byte     `json:"owner"`
	TotalStaked         *big.Int     `json:"totalStaked"`
	TotalRewardsClaimed *big.Int     `json:"totalRewardsClaimed"`
	AccountCount        uint64       `json:"accountCount"`
	RewardsRateBps      uint64       `json:"rewardsRateBps"`
	MaxStakesPerAccount uint64       `json:"maxStakesPerAccount"`
	MigrationStartTime  int64        `json:"migrationStartTime"`
	Features            FeatureFlags `json:"features"`
}

// Clone returns a deep copy of the aggregates.
func (g *Globals) Clone() *Globals {
	if g == nil {
		return nil
	}
	out := *g
	out.TotalStaked = cloneBigInt(g.TotalStaked)
	out.TotalRewardsClaimed = cloneBigInt(g.TotalRewardsClaimed)
	return &out
}

func (g *Globals) normalize() *Globals {
	if g.TotalStaked == nil {
		g.TotalStaked = big.NewInt(0)
	}
	if g.TotalRewardsClaimed == nil {
		g.TotalRewardsClaimed = big.NewInt(0)
	}
	return g
}

// ImportAccount is one externally supplied snapshot consumed by the bulk
// importer. Balance and stake amounts are whole units; unlock times are
// absolute and appended verbatim.
type ImportAccount struct {
	Balance *big.Int `json:"balance"`
	Stakes  []Stake  `json:"stakes"`
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
