package common

import (
	"errors"
	"testing"
)

type stubView map[string]bool

func (v stubView) FeatureEnabled(feature string) bool { return v[feature] }

func TestGuardDisabledFeature(t *testing.T) {
	view := stubView{"staking": true, "withdraw": false}

	if err := Guard(view, "staking"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := Guard(view, "withdraw")
	if !errors.Is(err, ErrFeatureDisabled) {
		t.Fatalf("expected ErrFeatureDisabled, got %v", err)
	}
}

func TestGuardNilView(t *testing.T) {
	if err := Guard(nil, "staking"); err != nil {
		t.Fatalf("nil view must not gate: %v", err)
	}
	if err := Guard(stubView{}, ""); err != nil {
		t.Fatalf("empty feature must not gate: %v", err)
	}
}
