package staking

import "math/big"

// appendStake pushes a new lockup opening now. The per-account cap applies
// only here; amending an existing stake never consults it.
func appendStake(a *Account, units *big.Int, period Period, now int64, maxStakes uint64) (Stake, error) {
	if maxStakes > 0 && uint64(len(a.Stakes)) >= maxStakes {
		return Stake{}, ErrTooManyStakes
	}
	s := Stake{
		Period:   period,
		UnlockAt: now + period.Duration(),
		Amount:   cloneBigInt(units),
	}
	a.Stakes = append(a.Stakes, s)
	return s, nil
}

// findMostRecent locates the stake with the greatest unlock time among those
// matching the period whose lockup has not yet elapsed. Expired stakes are
// never amend targets even while they still sit in the collection. Ties on
// the unlock time resolve to the lowest index, the canonical traversal order.
func findMostRecent(a *Account, period Period, now int64) (int, error) {
	best := -1
	for i, s := range a.Stakes {
		if s.Period != period || s.UnlockAt <= now {
			continue
		}
		if best == -1 || s.UnlockAt > a.Stakes[best].UnlockAt {
			best = i
		}
	}
	if best == -1 {
		return 0, ErrStakeNotFound
	}
	return best, nil
}

// sweepOutcome aggregates one claim-time pass over a stake collection.
type sweepOutcome struct {
	// Rewards is the fractional-scale reward earned across all stakes.
	Rewards *big.Int
	// Unlocked is the whole-unit principal released by expired stakes.
	Unlocked *big.Int
	// Removed lists the expired stakes taken out of the collection.
	Removed []Stake
}

// sweepStakes walks the collection once, accruing rewards for every stake and
// removing expired ones via swap-with-last. Iteration is back-to-front so the
// element swapped into the current slot has already been visited; forward
// iteration with swap-removal would skip it.
func sweepStakes(a *Account, now int64, rateBps uint64) (sweepOutcome, error) {
	out := sweepOutcome{Rewards: big.NewInt(0), Unlocked: big.NewInt(0)}
	for i := len(a.Stakes) - 1; i >= 0; i-- {
		reward, expired, err := stakeReward(a.Stakes[i], a.LastClaimedAt, now, rateBps)
		if err != nil {
			return sweepOutcome{}, err
		}
		out.Rewards.Add(out.Rewards, reward)
		if !expired {
			continue
		}
		out.Unlocked.Add(out.Unlocked, a.Stakes[i].Amount)
		out.Removed = append(out.Removed, a.Stakes[i])
		last := len(a.Stakes) - 1
		a.Stakes[i] = a.Stakes[last]
		a.Stakes[last] = Stake{}
		a.Stakes = a.Stakes[:last]
	}
	return out, nil
}
