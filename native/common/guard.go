package common

import (
	"errors"
	"fmt"
)

// ErrFeatureDisabled is the root error for every gated capability. Callers
// match it with errors.Is; the wrapped message names the specific toggle.
var ErrFeatureDisabled = errors.New("feature disabled")

// FeatureView exposes the current toggle state consulted before each gated
// operation.
type FeatureView interface {
	FeatureEnabled(feature string) bool
}

// Guard rejects the operation when the named feature toggle is off. A nil
// view or empty feature name leaves the operation ungated.
func Guard(v FeatureView, feature string) error {
	if v == nil || feature == "" {
		return nil
	}
	if !v.FeatureEnabled(feature) {
		return fmt.Errorf("%w: %s", ErrFeatureDisabled, feature)
	}
	return nil
}
