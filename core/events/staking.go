package events

import (
	"math/big"
	"strconv"

	"github.com/loomnetwork/loom-token/core/types"
	"github.com/loomnetwork/loom-token/crypto"
)

const (
	// TypeStakingAccountOpened marks the implicit creation of a ledger account.
	TypeStakingAccountOpened = "staking.accountOpened"
	// TypeStakingAccountClosed marks the implicit purge of an emptied account.
	TypeStakingAccountClosed = "staking.accountClosed"
	// TypeStakingStaked captures principal entering a lockup.
	TypeStakingStaked = "staking.staked"
	// TypeStakingUnstaked captures principal leaving a lockup. Amend emits an
	// unstaked/staked pair even though the record is mutated in place.
	TypeStakingUnstaked = "staking.unstaked"
	// TypeStakingWithdrawn captures unlocked balance leaving the ledger.
	TypeStakingWithdrawn = "staking.withdrawn"
	// TypeStakingRewardsClaimed is emitted when a claim credits rewards.
	TypeStakingRewardsClaimed = "staking.rewardsClaimed"
	// TypeStakingFeaturesChanged reports the full replacement feature set.
	TypeStakingFeaturesChanged = "staking.featuresChanged"
)

// StakingAccountOpened is emitted when a first stake or import creates an
// account record.
type StakingAccountOpened struct {
	Account [20]byte
}

// EventType satisfies the Event interface.
func (StakingAccountOpened) EventType() string { return TypeStakingAccountOpened }

// Event converts the payload into a broadcastable event.
func (e StakingAccountOpened) Event() *types.Event {
	return &types.Event{Type: TypeStakingAccountOpened, Attributes: map[string]string{
		"addr": crypto.MustNewAddress(e.Account[:]).String(),
	}}
}

// StakingAccountClosed is emitted when both the unlocked balance and the stake
// collection become empty and the account record is released.
type StakingAccountClosed struct {
	Account [20]byte
}

// EventType satisfies the Event interface.
func (StakingAccountClosed) EventType() string { return TypeStakingAccountClosed }

// Event converts the payload into a broadcastable event.
func (e StakingAccountClosed) Event() *types.Event {
	return &types.Event{Type: TypeStakingAccountClosed, Attributes: map[string]string{
		"addr": crypto.MustNewAddress(e.Account[:]).String(),
	}}
}

// StakingStaked captures whole-unit principal locked for a period.
type StakingStaked struct {
	Account  [20]byte
	Amount   *big.Int
	Period   uint8
	UnlockAt int64
}

// EventType satisfies the Event interface.
func (StakingStaked) EventType() string { return TypeStakingStaked }

// Event converts the payload into a broadcastable event.
func (e StakingStaked) Event() *types.Event {
	return &types.Event{Type: TypeStakingStaked, Attributes: map[string]string{
		"addr":     crypto.MustNewAddress(e.Account[:]).String(),
		"amount":   formatAmount(e.Amount),
		"period":   strconv.FormatUint(uint64(e.Period), 10),
		"unlockAt": strconv.FormatInt(e.UnlockAt, 10),
	}}
}

// StakingUnstaked captures whole-unit principal released from a lockup.
type StakingUnstaked struct {
	Account  [20]byte
	Amount   *big.Int
	Period   uint8
	UnlockAt int64
}

// EventType satisfies the Event interface.
func (StakingUnstaked) EventType() string { return TypeStakingUnstaked }

// Event converts the payload into a broadcastable event.
func (e StakingUnstaked) Event() *types.Event {
	return &types.Event{Type: TypeStakingUnstaked, Attributes: map[string]string{
		"addr":     crypto.MustNewAddress(e.Account[:]).String(),
		"amount":   formatAmount(e.Amount),
		"period":   strconv.FormatUint(uint64(e.Period), 10),
		"unlockAt": strconv.FormatInt(e.UnlockAt, 10),
	}}
}

// StakingWithdrawn captures unlocked balance paid back out through the token
// bridge.
type StakingWithdrawn struct {
	Account [20]byte
	Amount  *big.Int
	Closed  bool
}

// EventType satisfies the Event interface.
func (StakingWithdrawn) EventType() string { return TypeStakingWithdrawn }

// Event converts the payload into a broadcastable event.
func (e StakingWithdrawn) Event() *types.Event {
	attrs := map[string]string{
		"addr":   crypto.MustNewAddress(e.Account[:]).String(),
		"amount": formatAmount(e.Amount),
	}
	if e.Closed {
		attrs["closed"] = "true"
	}
	return &types.Event{Type: TypeStakingWithdrawn, Attributes: attrs}
}

// StakingRewardsClaimed captures the reward credited by a claim sweep.
type StakingRewardsClaimed struct {
	Account  [20]byte
	Reward   *big.Int
	Unlocked *big.Int
}

// EventType satisfies the Event interface.
func (StakingRewardsClaimed) EventType() string { return TypeStakingRewardsClaimed }

// Event converts the payload into a broadcastable event.
func (e StakingRewardsClaimed) Event() *types.Event {
	attrs := map[string]string{
		"addr":   crypto.MustNewAddress(e.Account[:]).String(),
		"reward": formatAmount(e.Reward),
	}
	if e.Unlocked != nil && e.Unlocked.Sign() > 0 {
		attrs["unlocked"] = e.Unlocked.String()
	}
	return &types.Event{Type: TypeStakingRewardsClaimed, Attributes: attrs}
}

// StakingFeaturesChanged reports every toggle after a full-replace update.
type StakingFeaturesChanged struct {
	StakingEnabled  bool
	AmendEnabled    bool
	WithdrawEnabled bool
	RewardsEnabled  bool
	ImportEnabled   bool
	AmendMustExtend bool
}

// EventType satisfies the Event interface.
func (StakingFeaturesChanged) EventType() string { return TypeStakingFeaturesChanged }

// Event converts the payload into a broadcastable event.
func (e StakingFeaturesChanged) Event() *types.Event {
	return &types.Event{Type: TypeStakingFeaturesChanged, Attributes: map[string]string{
		"stakingEnabled":  strconv.FormatBool(e.StakingEnabled),
		"amendEnabled":    strconv.FormatBool(e.AmendEnabled),
		"withdrawEnabled": strconv.FormatBool(e.WithdrawEnabled),
		"rewardsEnabled":  strconv.FormatBool(e.RewardsEnabled),
		"importEnabled":   strconv.FormatBool(e.ImportEnabled),
		"amendMustExtend": strconv.FormatBool(e.AmendMustExtend),
	}}
}

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
