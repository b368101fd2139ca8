package game

import (
	"errors"
	"fmt"
)

// WheelWeightTotal is the sum every tier table must reach.
const WheelWeightTotal = 100

// DefaultSpinCost is the price of one spin
const DefaultSpinCost int64 = 500

// WheelTier represents a single reward tier on the wheel
type WheelTier struct {
	Name   string `json:"name"`
	Reward int64  `json:"reward"`
	Weight int    `json:"weight"` // out of WheelWeightTotal
	Color  string `json:"color"`
}

// DefaultWheelTiers returns the default wheel configuration
func DefaultWheelTiers() []WheelTier {
	return []WheelTier{
		{Name: "MISS", Reward: 0, Weight: 40, Color: "#4a4a4a"},
		{Name: "SMALL", Reward: 200, Weight: 30, Color: "#2ecc71"},
		{Name: "MEDIUM", Reward: 500, Weight: 20, Color: "#3498db"},
		{Name: "BIG", Reward: 1000, Weight: 9, Color: "#9b59b6"},
		{Name: "JACKPOT", Reward: 10000, Weight: 1, Color: "#f1c40f"},
	}
}

// Wheel resolves draws against an ordered tier table.
type Wheel struct {
	Tiers []WheelTier `json:"tiers"`
	Cost  int64       `json:"cost"`
}

// NewWheel creates a wheel with default tiers
func NewWheel(cost int64) *Wheel {
	return &Wheel{Tiers: DefaultWheelTiers(), Cost: cost}
}

// NewWheelWithTiers creates a wheel with custom tiers. Weights must be positive
// and sum to WheelWeightTotal.
func NewWheelWithTiers(cost int64, tiers []WheelTier) (*Wheel, error) {
	if cost <= 0 {
		return nil, errors.New("spin cost must be positive")
	}
	if len(tiers) == 0 {
		return nil, errors.New("wheel has no tiers")
	}
	sum := 0
	for _, t := range tiers {
		if t.Weight <= 0 {
			return nil, fmt.Errorf("tier %s has non-positive weight", t.Name)
		}
		if t.Reward < 0 {
			return nil, fmt.Errorf("tier %s has negative reward", t.Name)
		}
		sum += t.Weight
	}
	if sum != WheelWeightTotal {
		return nil, fmt.Errorf("tier weights sum to %d, want %d", sum, WheelWeightTotal)
	}
	return &Wheel{Tiers: tiers, Cost: cost}, nil
}

// Resolve returns the first tier whose cumulative weight exceeds draw.
// draw is expected in [0, WheelWeightTotal).
func (w *Wheel) Resolve(draw int) WheelTier {
	cumulative := 0
	for _, t := range w.Tiers {
		cumulative += t.Weight
		if draw < cumulative {
			return t
		}
	}
	// out-of-range draws land on the last tier
	return w.Tiers[len(w.Tiers)-1]
}

// Spin draws once and resolves it.
func (w *Wheel) Spin(rng RNG) (WheelTier, int) {
	draw := rng.Intn(WheelWeightTotal)
	return w.Resolve(draw), draw
}

// ExpectedReward calculates the mean payout of one spin
func (w *Wheel) ExpectedReward() float64 {
	expected := 0.0
	for _, t := range w.Tiers {
		expected += float64(t.Weight) / WheelWeightTotal * float64(t.Reward)
	}
	return expected
}
