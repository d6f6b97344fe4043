package main

import (
	"io"
	"log/slog"
	"math/big"
	"testing"

	"github.com/loomnetwork/loom-token/core/events"
	"github.com/loomnetwork/loom-token/native/staking"
)

type recordingMeter struct {
	issued []float64
}

func (m *recordingMeter) AddRewardsIssued(units float64) {
	m.issued = append(m.issued, units)
}

func testAddr(b byte) [20]byte {
	var addr [20]byte
	addr[0] = b
	return addr
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func scaled(n int64) *big.Int {
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(staking.Decimals), nil)
	return new(big.Int).Mul(big.NewInt(n), scale)
}

func TestEmitterFeedsRewardsCounter(t *testing.T) {
	meter := &recordingMeter{}
	emitter := logEmitter{log: discardLogger(), meter: meter}

	emitter.Emit(events.StakingRewardsClaimed{
		Account:  testAddr(1),
		Reward:   scaled(14),
		Unlocked: big.NewInt(7300),
	})

	if len(meter.issued) != 1 {
		t.Fatalf("expected one counter sample, got %d", len(meter.issued))
	}
	if meter.issued[0] != 14 {
		t.Fatalf("expected 14 whole units, got %f", meter.issued[0])
	}
}

func TestEmitterIgnoresNonClaimEvents(t *testing.T) {
	meter := &recordingMeter{}
	emitter := logEmitter{log: discardLogger(), meter: meter}

	emitter.Emit(events.StakingAccountOpened{Account: testAddr(1)})
	emitter.Emit(nil)

	if len(meter.issued) != 0 {
		t.Fatalf("expected no counter samples, got %d", len(meter.issued))
	}
}

func TestUnitsFloat(t *testing.T) {
	if got := unitsFloat(nil); got != 0 {
		t.Fatalf("nil: %f", got)
	}
	if got := unitsFloat(scaled(7300)); got != 7300 {
		t.Fatalf("7300 units: %f", got)
	}
	half := new(big.Int).Div(scaled(1), big.NewInt(2))
	if got := unitsFloat(half); got != 0.5 {
		t.Fatalf("half unit: %f", got)
	}
}
