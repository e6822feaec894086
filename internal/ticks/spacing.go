package ticks

import (
	"errors"
	"fmt"
)

// ErrUnknownFeeTier is returned for fee tiers without a tick spacing.
var ErrUnknownFeeTier = errors.New("unknown fee tier")

// feeTierSpacing maps fee tiers (in hundredths of a bip) to tick spacing.
var feeTierSpacing = map[int]int{
	1000: 200,
	300:  60,
	40:   8,
	10:   1,
	8:    1,
}

// TickSpacing returns the tick spacing for a fee tier.
func TickSpacing(feeTier int) (int, error) {
	spacing, ok := feeTierSpacing[feeTier]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownFeeTier, feeTier)
	}
	return spacing, nil
}

// ActiveTick rounds currentTick down to a multiple of spacing.
func ActiveTick(currentTick, spacing int) int {
	q := currentTick / spacing
	if currentTick%spacing != 0 && (currentTick < 0) != (spacing < 0) {
		q--
	}
	return q * spacing
}
