package staking

import "math/big"

// Period selects one of the four fixed lockup durations.
type Period uint8

const (
	PeriodTwoWeeks Period = iota
	PeriodThreeMonths
	PeriodSixMonths
	PeriodTwelveMonths
)

const secondsPerDay int64 = 24 * 60 * 60

// SecondsPerYear is the accrual year: 365 days flat, no leap adjustment.
const SecondsPerYear int64 = 365 * secondsPerDay

// Decimals is the fractional scale carried by unlocked balances and the
// global aggregates. Individual stake amounts are whole units only.
const Decimals = 18

var unitScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(Decimals), nil)

// basisPoints is the precision of the annual rewards rate.
var basisPoints = big.NewInt(10_000)

// DefaultRewardsRateBps is the 5% annual base rate the ledger launches with.
const DefaultRewardsRateBps uint64 = 500

// AllAmount is the sentinel resolving to the caller's full unlocked balance.
var AllAmount = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// IsAllAmount reports whether the supplied amount is the full-balance sentinel.
func IsAllAmount(v *big.Int) bool {
	return v != nil && v.Cmp(AllAmount) == 0
}

// Valid reports whether the period is one of the four supported selectors.
func (p Period) Valid() bool {
	return p <= PeriodTwelveMonths
}

// Duration returns the lockup length in seconds. Three and six month periods
// are exact quarters and halves of the accrual year.
func (p Period) Duration() int64 {
	switch p {
	case PeriodTwoWeeks:
		return 14 * secondsPerDay
	case PeriodThreeMonths:
		return SecondsPerYear / 4
	case PeriodSixMonths:
		return SecondsPerYear / 2
	case PeriodTwelveMonths:
		return SecondsPerYear
	default:
		return 0
	}
}

// Bonus returns the period's reward multiplier as an integer fraction.
func (p Period) Bonus() (num, den int64) {
	switch p {
	case PeriodTwoWeeks:
		return 1, 1
	case PeriodThreeMonths:
		return 3, 2
	case PeriodSixMonths:
		return 2, 1
	case PeriodTwelveMonths:
		return 4, 1
	default:
		return 1, 1
	}
}

func (p Period) String() string {
	switch p {
	case PeriodTwoWeeks:
		return "2w"
	case PeriodThreeMonths:
		return "3m"
	case PeriodSixMonths:
		return "6m"
	case PeriodTwelveMonths:
		return "12m"
	default:
		return "invalid"
	}
}

// ParsePeriod converts a short period label ("2w", "3m", "6m", "12m")
// into its enum value.
func ParsePeriod(label string) (Period, error) {
	switch label {
	case "2w":
		return PeriodTwoWeeks, nil
	case "3m":
		return PeriodThreeMonths, nil
	case "6m":
		return PeriodSixMonths, nil
	case "12m":
		return PeriodTwelveMonths, nil
	default:
		return 0, ErrInvalidPeriod
	}
}

// Feature toggle names consulted by the gate before each operation.
const (
	FeatureStaking  = "staking"
	FeatureAmend    = "amend"
	FeatureWithdraw = "withdraw"
	FeatureRewards  = "rewards"
	FeatureImport   = "import"
)

// FeatureFlags is the administrator-mutable toggle record. Updates replace
// the whole record, never merge.
type FeatureFlags struct {
	StakingEnabled  bool `json:"stakingEnabled"`
	AmendEnabled    bool `json:"amendEnabled"`
	WithdrawEnabled bool `json:"withdrawEnabled"`
	RewardsEnabled  bool `json:"rewardsEnabled"`
	ImportEnabled   bool `json:"importEnabled"`
	AmendMustExtend bool `json:"amendMustExtend"`
}

// FeatureEnabled satisfies the feature gate view.
func (f FeatureFlags) FeatureEnabled(feature string) bool {
	switch feature {
	case FeatureStaking:
		return f.StakingEnabled
	case FeatureAmend:
		return f.AmendEnabled
	case FeatureWithdraw:
		return f.WithdrawEnabled
	case FeatureRewards:
		return f.RewardsEnabled
	case FeatureImport:
		return f.ImportEnabled
	default:
		return false
	}
}

// DefaultFeatures enables every operation except the one-shot import path.
func DefaultFeatures() FeatureFlags {
	return FeatureFlags{
		StakingEnabled:  true,
		AmendEnabled:    true,
		WithdrawEnabled: true,
		RewardsEnabled:  true,
	}
}
