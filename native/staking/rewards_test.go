package staking

import (
	"math/big"
	"testing"
)

func units(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), unitScale)
}

func mustBig(t *testing.T, s string) *big.Int {
	t.Helper()
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		t.Fatalf("invalid big integer literal %q", s)
	}
	return v
}

func TestAccrueBaseRateFourteenDays(t *testing.T) {
	// 7300 units at 5% over 14 days is exactly 14 units.
	got := accrue(units(7300), 500, 1, 1, 14*secondsPerDay)
	if got.Cmp(units(14)) != 0 {
		t.Fatalf("unexpected reward: %s", got)
	}
}

func TestAccrueBonusRateFullQuarter(t *testing.T) {
	// 7300 units, x1.5 bonus, 5%, 91.25 days: 136.875 units.
	got := accrue(units(7300), 500, 3, 2, SecondsPerYear/4)
	want := mustBig(t, "136875000000000000000")
	if got.Cmp(want) != 0 {
		t.Fatalf("unexpected reward: %s, want %s", got, want)
	}
}

func TestAccrueTruncatesAfterEachDivision(t *testing.T) {
	// 3 * 1 / 2 truncates to 1 before the rate is applied, so a 150% rate
	// over a full year yields 1, not the algebraically simplified 2.
	got := accrue(big.NewInt(3), 15_000, 1, 2, SecondsPerYear)
	if got.Cmp(big.NewInt(1)) != 0 {
		t.Fatalf("division order not preserved: got %s", got)
	}
}

func TestAccrueZeroInputs(t *testing.T) {
	if got := accrue(nil, 500, 1, 1, 100); got.Sign() != 0 {
		t.Fatalf("nil principal: %s", got)
	}
	if got := accrue(units(100), 0, 1, 1, 100); got.Sign() != 0 {
		t.Fatalf("zero rate: %s", got)
	}
	if got := accrue(units(100), 500, 1, 1, 0); got.Sign() != 0 {
		t.Fatalf("zero elapsed: %s", got)
	}
	if got := accrue(units(100), 500, 1, 1, -5); got.Sign() != 0 {
		t.Fatalf("negative elapsed: %s", got)
	}
}

func TestStakeRewardSplitsBonusAndBaseWindows(t *testing.T) {
	// 2-week stake claimed 14 days after its unlock: 14 days of bonus
	// accrual inside the lockup plus 14 days at the base rate after it.
	start := int64(1_000_000)
	s := Stake{Period: PeriodTwoWeeks, UnlockAt: start + PeriodTwoWeeks.Duration(), Amount: big.NewInt(7300)}
	reward, expired, err := stakeReward(s, start, start+2*PeriodTwoWeeks.Duration(), 500)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !expired {
		t.Fatalf("stake past unlock must be expired")
	}
	if reward.Cmp(units(28)) != 0 {
		t.Fatalf("unexpected reward: %s", reward)
	}
}

func TestStakeRewardWindowInversion(t *testing.T) {
	start := int64(1_000_000)
	s := Stake{Period: PeriodTwoWeeks, UnlockAt: start + PeriodTwoWeeks.Duration(), Amount: big.NewInt(100)}
	// asOf before the bonus window opens violates the accrual invariant.
	if _, _, err := stakeReward(s, start, start-1, 500); err != ErrInvalidRewardsPeriod {
		t.Fatalf("expected ErrInvalidRewardsPeriod, got %v", err)
	}
}

func TestWholeUnitsTruncation(t *testing.T) {
	amount := new(big.Int).Add(units(7), big.NewInt(123))
	u, scaled := wholeUnits(amount)
	if u.Cmp(big.NewInt(7)) != 0 {
		t.Fatalf("unexpected units: %s", u)
	}
	if scaled.Cmp(units(7)) != 0 {
		t.Fatalf("unexpected scaled value: %s", scaled)
	}
	if rem := new(big.Int).Sub(amount, scaled); rem.Cmp(big.NewInt(123)) != 0 {
		t.Fatalf("remainder lost: %s", rem)
	}
}

func TestPeriodBonusTable(t *testing.T) {
	cases := []struct {
		period Period
		num    int64
		den    int64
	}{
		{PeriodTwoWeeks, 1, 1},
		{PeriodThreeMonths, 3, 2},
		{PeriodSixMonths, 2, 1},
		{PeriodTwelveMonths, 4, 1},
	}
	for _, tc := range cases {
		num, den := tc.period.Bonus()
		if num != tc.num || den != tc.den {
			t.Fatalf("period %s: bonus %d/%d, want %d/%d", tc.period, num, den, tc.num, tc.den)
		}
	}
	if PeriodTwelveMonths.Duration() != SecondsPerYear {
		t.Fatalf("12m duration mismatch")
	}
	if 2*PeriodSixMonths.Duration() != SecondsPerYear || 4*PeriodThreeMonths.Duration() != SecondsPerYear {
		t.Fatalf("quarter/half durations must tile the year")
	}
}
