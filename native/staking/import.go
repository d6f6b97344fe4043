package staking

import (
	"math/big"

	"github.com/loomnetwork/loom-token/core/events"
	nativecommon "github.com/loomnetwork/loom-token/native/common"
)

// ImportAccounts seeds the ledger from externally supplied snapshots. This is
// the privileged one-time migration path: it bypasses the token bridge,
// trusts the snapshot to be consistent with the off-ledger balance, appends
// stakes verbatim with their absolute unlock times and backdates every
// account's claim clock to the migration start so accrual is retroactive.
// Callers are expected to split large datasets into bounded batches.
func (e *Engine) ImportAccounts(caller [20]byte, addrs [][20]byte, snapshots []ImportAccount) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	g, err := e.adminGlobals(caller)
	if err != nil {
		return err
	}
	if err := nativecommon.Guard(g.Features, FeatureImport); err != nil {
		return err
	}
	if len(addrs) != len(snapshots) {
		return ErrLengthMismatch
	}

	// Validate and build every account before touching state so a bad entry
	// aborts the whole batch.
	staged := make([]*Account, len(addrs))
	seen := make(map[[20]byte]struct{}, len(addrs))
	imported := big.NewInt(0)
	for i, addr := range addrs {
		if _, dup := seen[addr]; dup {
			return ErrAccountAlreadyExists
		}
		seen[addr] = struct{}{}
		_, exists, err := e.state.StakingAccount(addr)
		if err != nil {
			return err
		}
		if exists {
			return ErrAccountAlreadyExists
		}
		snap := snapshots[i]
		if snap.Balance != nil && snap.Balance.Sign() < 0 {
			return ErrInvalidAmount
		}
		acct := &Account{
			LastClaimedAt:   g.MigrationStartTime,
			UnlockedBalance: scaleUnits(snap.Balance),
		}
		for _, s := range snap.Stakes {
			if !s.Period.Valid() {
				return ErrInvalidPeriod
			}
			if s.Amount == nil || s.Amount.Sign() <= 0 {
				return ErrInvalidAmount
			}
			acct.Stakes = append(acct.Stakes, s.Clone())
			imported.Add(imported, scaleUnits(s.Amount))
		}
		if !acct.Exists() {
			return ErrInvalidAmount
		}
		imported.Add(imported, acct.UnlockedBalance)
		staged[i] = acct
	}

	for i, addr := range addrs {
		if err := e.state.PutStakingAccount(addr, staged[i]); err != nil {
			return err
		}
	}
	g.AccountCount += uint64(len(staged))
	g.TotalStaked.Add(g.TotalStaked, imported)
	if err := e.state.PutStakingGlobals(g); err != nil {
		return err
	}

	for _, addr := range addrs {
		e.emit(events.StakingAccountOpened{Account: addr})
	}
	return nil
}
