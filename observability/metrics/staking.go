package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type StakingMetrics struct {
	opsTotal      *prometheus.CounterVec
	opFailures    *prometheus.CounterVec
	opDuration    *prometheus.HistogramVec
	rewardsIssued prometheus.Counter
	totalStaked   prometheus.Gauge
	accountCount  prometheus.Gauge
}

var (
	stakingOnce     sync.Once
	stakingRegistry *StakingMetrics
)

func Staking() *StakingMetrics {
	stakingOnce.Do(func() {
		stakingRegistry = &StakingMetrics{
			opsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "staking_operations_total",
				Help: "Count of ledger operations processed by method.",
			}, []string{"method"}),
			opFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "staking_operation_failures_total",
				Help: "Count of rejected ledger operations by method.",
			}, []string{"method"}),
			opDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "staking_operation_duration_seconds",
				Help:    "Latency of ledger operations by method.",
				Buckets: prometheus.DefBuckets,
			}, []string{"method"}),
			rewardsIssued: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "staking_rewards_issued_units_total",
				Help: "Whole token units issued as staking rewards.",
			}),
			totalStaked: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "staking_total_staked_units",
				Help: "Whole token units currently held by the ledger.",
			}),
			accountCount: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "staking_account_count",
				Help: "Number of open staking accounts.",
			}),
		}
		prometheus.MustRegister(
			stakingRegistry.opsTotal,
			stakingRegistry.opFailures,
			stakingRegistry.opDuration,
			stakingRegistry.rewardsIssued,
			stakingRegistry.totalStaked,
			stakingRegistry.accountCount,
		)
	})
	return stakingRegistry
}

// ObserveOperation records one completed operation with its outcome.
func (m *StakingMetrics) ObserveOperation(method string, start time.Time, err error) {
	if m == nil {
		return
	}
	if method == "" {
		method = "unknown"
	}
	m.opsTotal.WithLabelValues(method).Inc()
	if err != nil {
		m.opFailures.WithLabelValues(method).Inc()
	}
	m.opDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
}

// AddRewardsIssued accumulates issued reward units.
func (m *StakingMetrics) AddRewardsIssued(units float64) {
	if m == nil || units <= 0 {
		return
	}
	m.rewardsIssued.Add(units)
}

// SetLedgerTotals refreshes the point-in-time gauges.
func (m *StakingMetrics) SetLedgerTotals(stakedUnits float64, accounts uint64) {
	if m == nil {
		return
	}
	m.totalStaked.Set(stakedUnits)
	m.accountCount.Set(float64(accounts))
}
