package staking

import "math/big"

// accrue computes a reward amount in fractional scale from a fractional-scale
// principal. The evaluation order is principal * bonusNum / bonusDen * rate /
// basisPoints * elapsed / secondsPerYear with truncation after every
// division. The order is observable through rounding and must not be
// algebraically rearranged.
func accrue(principal *big.Int, rateBps uint64, bonusNum, bonusDen, elapsed int64) *big.Int {
	if principal == nil || principal.Sign() <= 0 || rateBps == 0 || elapsed <= 0 {
		return big.NewInt(0)
	}
	r := new(big.Int).Mul(principal, big.NewInt(bonusNum))
	r.Quo(r, big.NewInt(bonusDen))
	r.Mul(r, new(big.Int).SetUint64(rateBps))
	r.Quo(r, basisPoints)
	r.Mul(r, big.NewInt(elapsed))
	r.Quo(r, big.NewInt(SecondsPerYear))
	return r
}

// stakeReward computes the reward a single stake has earned between the
// account's last claim and asOf. The bonus rate applies inside the lockup
// window; time past the unlock accrues at the base rate. The second return
// reports whether the lockup has fully elapsed at asOf.
func stakeReward(s Stake, lastClaimedAt, asOf int64, rateBps uint64) (*big.Int, bool, error) {
	duration := s.Period.Duration()
	bonusStart := lastClaimedAt
	if start := s.UnlockAt - duration; start > bonusStart {
		bonusStart = start
	}
	bonusEnd := asOf
	if s.UnlockAt < bonusEnd {
		bonusEnd = s.UnlockAt
	}
	if bonusEnd < bonusStart {
		return nil, false, ErrInvalidRewardsPeriod
	}

	principal := scaleUnits(s.Amount)
	num, den := s.Period.Bonus()
	reward := accrue(principal, rateBps, num, den, bonusEnd-bonusStart)
	if asOf > s.UnlockAt {
		reward.Add(reward, accrue(principal, rateBps, 1, 1, asOf-s.UnlockAt))
	}
	return reward, asOf >= s.UnlockAt, nil
}

// scaleUnits converts a whole-unit amount into fractional scale.
func scaleUnits(units *big.Int) *big.Int {
	if units == nil || units.Sign() == 0 {
		return big.NewInt(0)
	}
	return new(big.Int).Mul(units, unitScale)
}

// wholeUnits truncates a fractional-scale amount down to whole-unit
// granularity, returning both the unit count and its fractional-scale value.
func wholeUnits(amount *big.Int) (units, scaled *big.Int) {
	if amount == nil || amount.Sign() <= 0 {
		return big.NewInt(0), big.NewInt(0)
	}
	units = new(big.Int).Quo(amount, unitScale)
	scaled = new(big.Int).Mul(units, unitScale)
	return units, scaled
}
