package staking

import (
	"github.com/loomnetwork/loom-token/core/events"
)

func (e *Engine) adminGlobals(caller [20]byte) (*Globals, error) {
	g, err := e.globals()
	if err != nil {
		return nil, err
	}
	if g.Owner != caller {
		return nil, ErrNotOwner
	}
	return g, nil
}

// Features returns the current toggle record.
func (e *Engine) Features() (FeatureFlags, error) {
	g, err := e.globals()
	if err != nil {
		return FeatureFlags{}, err
	}
	return g.Features, nil
}

// SetFeatures replaces the whole toggle record. Owner only. The change event
// carries all six new values.
func (e *Engine) SetFeatures(caller [20]byte, flags FeatureFlags) error {
	g, err := e.adminGlobals(caller)
	if err != nil {
		return err
	}
	g.Features = flags
	if err := e.state.PutStakingGlobals(g); err != nil {
		return err
	}
	e.emit(events.StakingFeaturesChanged{
		StakingEnabled:  flags.StakingEnabled,
		AmendEnabled:    flags.AmendEnabled,
		WithdrawEnabled: flags.WithdrawEnabled,
		RewardsEnabled:  flags.RewardsEnabled,
		ImportEnabled:   flags.ImportEnabled,
		AmendMustExtend: flags.AmendMustExtend,
	})
	return nil
}

// SetRewardsRate updates the annual base rate in basis points. Owner only.
func (e *Engine) SetRewardsRate(caller [20]byte, rateBps uint64) error {
	g, err := e.adminGlobals(caller)
	if err != nil {
		return err
	}
	g.RewardsRateBps = rateBps
	return e.state.PutStakingGlobals(g)
}

// SetMaxStakes updates the per-account stake cap. Zero removes enforcement.
// Owner only; existing accounts above a lowered cap keep their stakes and can
// still amend them.
func (e *Engine) SetMaxStakes(caller [20]byte, max uint64) error {
	g, err := e.adminGlobals(caller)
	if err != nil {
		return err
	}
	g.MaxStakesPerAccount = max
	return e.state.PutStakingGlobals(g)
}

// TransferOwnership hands the administrator role to a new address. Owner only.
func (e *Engine) TransferOwnership(caller, newOwner [20]byte) error {
	g, err := e.adminGlobals(caller)
	if err != nil {
		return err
	}
	g.Owner = newOwner
	return e.state.PutStakingGlobals(g)
}

// Owner returns the current administrator address.
func (e *Engine) Owner() ([20]byte, error) {
	g, err := e.globals()
	if err != nil {
		return [20]byte{}, err
	}
	return g.Owner, nil
}
