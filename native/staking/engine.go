package staking

import (
	"fmt"
	"math/big"
	"time"

	"github.com/loomnetwork/loom-token/core/events"
	nativecommon "github.com/loomnetwork/loom-token/native/common"
)

// TokenBridge is the consumed token-movement interface. Both calls are
// atomic at the boundary: a returned error aborts the in-progress ledger
// operation with no state change.
type TokenBridge interface {
	TransferInto(from [20]byte, amount *big.Int) error
	TransferOut(to [20]byte, amount *big.Int) error
}

type engineState interface {
	StakingAccount(addr [20]byte) (*Account, bool, error)
	PutStakingAccount(addr [20]byte, acct *Account) error
	DeleteStakingAccount(addr [20]byte) error
	StakingGlobals() (*Globals, error)
	PutStakingGlobals(g *Globals) error
}

// Engine implements the staking ledger's state transitions. Operations are
// strictly sequential: each call runs to completion on cloned state and
// persists atomically at the end, so a failed precondition or a failed token
// transfer leaves stored state untouched.
type Engine struct {
	state   engineState
	token   TokenBridge
	emitter events.Emitter
	nowFn   func() int64
}

// NewEngine creates a staking engine with a no-op emitter. Callers wire the
// state backend and token bridge before use.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetToken configures the external token bridge.
func (e *Engine) SetToken(token TokenBridge) { e.token = token }

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source, primarily for deterministic tests.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(evt)
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

// Now reports the engine's current clock reading.
func (e *Engine) Now() int64 {
	return e.now()
}

func (e *Engine) globals() (*Globals, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	g, err := e.state.StakingGlobals()
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, errNilState
	}
	return g.Clone().normalize(), nil
}

func (e *Engine) loadAccount(addr [20]byte) (*Account, bool, error) {
	acct, ok, err := e.state.StakingAccount(addr)
	if err != nil {
		return nil, false, err
	}
	if !ok || acct == nil {
		return &Account{UnlockedBalance: big.NewInt(0)}, false, nil
	}
	clone := acct.Clone()
	if clone.UnlockedBalance == nil {
		clone.UnlockedBalance = big.NewInt(0)
	}
	return clone, true, nil
}

// runClaim performs the claim sweep on the cloned account: accrues stake
// rewards, base-rate rewards on the unlocked balance, folds newly unlocked
// principal into the balance and advances the claim timestamp. Globals are
// updated in place. The returned values are the total reward (fractional
// scale) and the unlocked whole-unit principal.
func (e *Engine) runClaim(acct *Account, g *Globals, now int64) (*big.Int, *big.Int, error) {
	swept, err := sweepStakes(acct, now, g.RewardsRateBps)
	if err != nil {
		return nil, nil, err
	}
	elapsed := now - acct.LastClaimedAt
	if elapsed < 0 {
		return nil, nil, ErrInvalidRewardsPeriod
	}
	reward := accrue(acct.UnlockedBalance, g.RewardsRateBps, 1, 1, elapsed)
	reward.Add(reward, swept.Rewards)

	if reward.Sign() > 0 {
		acct.UnlockedBalance.Add(acct.UnlockedBalance, reward)
		g.TotalStaked.Add(g.TotalStaked, reward)
		g.TotalRewardsClaimed.Add(g.TotalRewardsClaimed, reward)
	}
	// Unlocked principal folds into the balance even when no reward accrued.
	acct.UnlockedBalance.Add(acct.UnlockedBalance, scaleUnits(swept.Unlocked))
	acct.LastClaimedAt = now
	return reward, swept.Unlocked, nil
}

func (e *Engine) persist(addr [20]byte, acct *Account, g *Globals) error {
	if acct.Exists() {
		if err := e.state.PutStakingAccount(addr, acct); err != nil {
			return err
		}
	} else {
		if err := e.state.DeleteStakingAccount(addr); err != nil {
			return err
		}
	}
	return e.state.PutStakingGlobals(g)
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.token == nil {
		return errNilToken
	}
	return nil
}

// Stake pulls amount (fractional scale) from the caller's external balance
// and locks its whole-unit part for the period. Any sub-unit remainder is
// credited to the unlocked balance rather than dropped. A first stake creates
// the account.
func (e *Engine) Stake(caller [20]byte, amount *big.Int, period Period) (*Account, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	g, err := e.globals()
	if err != nil {
		return nil, err
	}
	if err := nativecommon.Guard(g.Features, FeatureStaking); err != nil {
		return nil, err
	}
	if !period.Valid() {
		return nil, ErrInvalidPeriod
	}
	if amount == nil || amount.Sign() <= 0 || IsAllAmount(amount) {
		return nil, ErrInvalidAmount
	}
	units, scaled := wholeUnits(amount)
	if units.Sign() == 0 {
		return nil, ErrAmountTooSmall
	}
	remainder := new(big.Int).Sub(amount, scaled)

	acct, exists, err := e.loadAccount(caller)
	if err != nil {
		return nil, err
	}
	now := e.now()
	if !exists {
		acct.LastClaimedAt = now
	}
	stake, err := appendStake(acct, units, period, now, g.MaxStakesPerAccount)
	if err != nil {
		return nil, err
	}
	acct.UnlockedBalance.Add(acct.UnlockedBalance, remainder)
	g.TotalStaked.Add(g.TotalStaked, amount)
	if !exists {
		g.AccountCount++
	}

	if err := e.token.TransferInto(caller, amount); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenTransfer, err)
	}
	if err := e.persist(caller, acct, g); err != nil {
		return nil, err
	}

	if !exists {
		e.emit(events.StakingAccountOpened{Account: caller})
	}
	e.emit(events.StakingStaked{Account: caller, Amount: stake.Amount, Period: uint8(period), UnlockAt: stake.UnlockAt})
	return acct, nil
}

// Restake moves unlocked balance back into a fresh lockup. AllAmount resolves
// to the full unlocked balance; the amount is truncated to whole units and
// only the truncated part leaves the balance. Global totalStaked is unchanged
// since the funds were already counted.
func (e *Engine) Restake(caller [20]byte, amount *big.Int, period Period, claimFirst bool) (*Account, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	g, err := e.globals()
	if err != nil {
		return nil, err
	}
	if err := nativecommon.Guard(g.Features, FeatureStaking); err != nil {
		return nil, err
	}
	if !period.Valid() {
		return nil, ErrInvalidPeriod
	}
	acct, exists, err := e.loadAccount(caller)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrAccountNotFound
	}

	now := e.now()
	var reward, unlocked *big.Int
	if claimFirst {
		if reward, unlocked, err = e.runClaim(acct, g, now); err != nil {
			return nil, err
		}
	}

	if IsAllAmount(amount) {
		amount = new(big.Int).Set(acct.UnlockedBalance)
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if amount.Cmp(acct.UnlockedBalance) > 0 {
		return nil, ErrInsufficientBalance
	}
	units, scaled := wholeUnits(amount)
	if units.Sign() == 0 {
		return nil, ErrAmountTooSmall
	}
	stake, err := appendStake(acct, units, period, now, g.MaxStakesPerAccount)
	if err != nil {
		return nil, err
	}
	acct.UnlockedBalance.Sub(acct.UnlockedBalance, scaled)

	if err := e.persist(caller, acct, g); err != nil {
		return nil, err
	}
	e.emitClaim(caller, reward, unlocked)
	e.emit(events.StakingStaked{Account: caller, Amount: stake.Amount, Period: uint8(period), UnlockAt: stake.UnlockAt})
	return acct, nil
}

// Amend grows the most recent active stake for the period, funding the
// increase from the external wallet, the unlocked balance, or both. With
// extend the lockup restarts from now; without it the unlock time is kept,
// which the force-extend toggle can forbid. The record mutates in place but
// an unstaked/staked event pair is emitted for audit-log compatibility.
func (e *Engine) Amend(caller [20]byte, fromWallet, fromBalance *big.Int, period Period, extend bool) (*Account, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	g, err := e.globals()
	if err != nil {
		return nil, err
	}
	if err := nativecommon.Guard(g.Features, FeatureAmend); err != nil {
		return nil, err
	}
	if !extend && g.Features.AmendMustExtend {
		return nil, ErrMustExtend
	}
	if !period.Valid() {
		return nil, ErrInvalidPeriod
	}
	acct, exists, err := e.loadAccount(caller)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrAccountNotFound
	}

	now := e.now()
	var reward, unlocked *big.Int
	// Skip the sweep when a claim already ran this instant so the same
	// second cannot credit twice.
	if acct.LastClaimedAt != now {
		if reward, unlocked, err = e.runClaim(acct, g, now); err != nil {
			return nil, err
		}
	}

	if IsAllAmount(fromBalance) {
		fromBalance = new(big.Int).Set(acct.UnlockedBalance)
	}
	if fromBalance == nil {
		fromBalance = big.NewInt(0)
	}
	if fromWallet == nil {
		fromWallet = big.NewInt(0)
	}
	if fromBalance.Sign() < 0 || fromWallet.Sign() < 0 || IsAllAmount(fromWallet) {
		return nil, ErrInvalidAmount
	}
	if fromBalance.Cmp(acct.UnlockedBalance) > 0 {
		return nil, ErrInsufficientBalance
	}
	combined := new(big.Int).Add(fromWallet, fromBalance)
	units, scaled := wholeUnits(combined)
	if units.Sign() == 0 {
		return nil, ErrAmountTooSmall
	}

	idx, err := findMostRecent(acct, period, now)
	if err != nil {
		return nil, err
	}
	target := &acct.Stakes[idx]
	oldAmount := cloneBigInt(target.Amount)
	oldUnlockAt := target.UnlockAt
	target.Amount = new(big.Int).Add(target.Amount, units)
	if extend {
		target.UnlockAt = now + period.Duration()
	}

	// Only the balance-sourced part leaves the unlocked pool; a wallet
	// overpayment's sub-unit remainder lands in it instead.
	balanceDebit := new(big.Int).Sub(scaled, fromWallet)
	acct.UnlockedBalance.Sub(acct.UnlockedBalance, balanceDebit)

	if fromWallet.Sign() > 0 {
		g.TotalStaked.Add(g.TotalStaked, fromWallet)
		if err := e.token.TransferInto(caller, fromWallet); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTokenTransfer, err)
		}
	}
	if err := e.persist(caller, acct, g); err != nil {
		return nil, err
	}

	e.emitClaim(caller, reward, unlocked)
	e.emit(events.StakingUnstaked{Account: caller, Amount: oldAmount, Period: uint8(period), UnlockAt: oldUnlockAt})
	e.emit(events.StakingStaked{Account: caller, Amount: target.Amount, Period: uint8(period), UnlockAt: target.UnlockAt})
	return acct, nil
}

// Withdraw pays unlocked balance back out through the token bridge. AllAmount
// resolves to the full balance. An account emptied of both balance and stakes
// is purged and the account count decremented.
func (e *Engine) Withdraw(caller [20]byte, amount *big.Int, claimFirst bool) (*Account, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	g, err := e.globals()
	if err != nil {
		return nil, err
	}
	if err := nativecommon.Guard(g.Features, FeatureWithdraw); err != nil {
		return nil, err
	}
	if amount == nil || (!IsAllAmount(amount) && amount.Sign() <= 0) {
		return nil, ErrInvalidAmount
	}
	acct, exists, err := e.loadAccount(caller)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrAccountNotFound
	}

	now := e.now()
	var reward, unlocked *big.Int
	if claimFirst {
		if reward, unlocked, err = e.runClaim(acct, g, now); err != nil {
			return nil, err
		}
	}
	if acct.UnlockedBalance.Sign() == 0 {
		return nil, ErrNothingToWithdraw
	}
	if IsAllAmount(amount) {
		amount = new(big.Int).Set(acct.UnlockedBalance)
	}
	if amount.Cmp(acct.UnlockedBalance) > 0 {
		return nil, ErrInsufficientBalance
	}

	acct.UnlockedBalance.Sub(acct.UnlockedBalance, amount)
	g.TotalStaked.Sub(g.TotalStaked, amount)
	closed := !acct.Exists()
	if closed {
		if g.AccountCount > 0 {
			g.AccountCount--
		}
	}

	if err := e.token.TransferOut(caller, amount); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenTransfer, err)
	}
	if err := e.persist(caller, acct, g); err != nil {
		return nil, err
	}

	e.emitClaim(caller, reward, unlocked)
	e.emit(events.StakingWithdrawn{Account: caller, Amount: amount, Closed: closed})
	if closed {
		e.emit(events.StakingAccountClosed{Account: caller})
	}
	return acct, nil
}

// ClaimRewards is the public claim entry: it sweeps the caller's stakes,
// accrues base-rate rewards on the unlocked balance and credits the total.
// The claim timestamp advances and expired principal unlocks even when the
// reward is zero.
func (e *Engine) ClaimRewards(caller [20]byte) (*big.Int, *Account, error) {
	if e == nil || e.state == nil {
		return nil, nil, errNilState
	}
	g, err := e.globals()
	if err != nil {
		return nil, nil, err
	}
	if err := nativecommon.Guard(g.Features, FeatureRewards); err != nil {
		return nil, nil, err
	}
	acct, exists, err := e.loadAccount(caller)
	if err != nil {
		return nil, nil, err
	}
	if !exists {
		return nil, nil, ErrAccountNotFound
	}

	reward, unlocked, err := e.runClaim(acct, g, e.now())
	if err != nil {
		return nil, nil, err
	}
	if err := e.persist(caller, acct, g); err != nil {
		return nil, nil, err
	}
	e.emitClaim(caller, reward, unlocked)
	return reward, acct, nil
}

// PendingRewards projects the claim arithmetic at an arbitrary timestamp
// without mutating state. It returns the reward (fractional scale) and the
// whole-unit principal that would unlock. asOf must not precede the last
// claim or any stake's bonus window start.
func (e *Engine) PendingRewards(addr [20]byte, asOf int64) (*big.Int, *big.Int, error) {
	if e == nil || e.state == nil {
		return nil, nil, errNilState
	}
	g, err := e.globals()
	if err != nil {
		return nil, nil, err
	}
	acct, exists, err := e.loadAccount(addr)
	if err != nil {
		return nil, nil, err
	}
	if !exists {
		return nil, nil, ErrAccountNotFound
	}
	if asOf < acct.LastClaimedAt {
		return nil, nil, ErrInvalidRewardsPeriod
	}

	rewards := accrue(acct.UnlockedBalance, g.RewardsRateBps, 1, 1, asOf-acct.LastClaimedAt)
	unlocked := big.NewInt(0)
	for _, s := range acct.Stakes {
		reward, expired, err := stakeReward(s, acct.LastClaimedAt, asOf, g.RewardsRateBps)
		if err != nil {
			return nil, nil, err
		}
		rewards.Add(rewards, reward)
		if expired {
			unlocked.Add(unlocked, s.Amount)
		}
	}
	return rewards, unlocked, nil
}

// AccountSnapshot returns a read-only copy of the account record.
func (e *Engine) AccountSnapshot(addr [20]byte) (*Account, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	acct, exists, err := e.loadAccount(addr)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrAccountNotFound
	}
	return acct, nil
}

// Stats returns a copy of the global aggregates.
func (e *Engine) Stats() (*Globals, error) {
	return e.globals()
}

func (e *Engine) emitClaim(caller [20]byte, reward, unlocked *big.Int) {
	if reward == nil || reward.Sign() <= 0 {
		return
	}
	e.emit(events.StakingRewardsClaimed{Account: caller, Reward: reward, Unlocked: unlocked})
}
