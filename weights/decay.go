// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package weights

import (
	"fmt"
	"math"
	"time"
)

// DecayAlgorithm selects how dynamic weights decay over time.
type DecayAlgorithm string

const (
	// DecayEMA applies an exponential moving average on each update:
	// new = factor*old + (1-factor)*observation. Time-independent.
	DecayEMA DecayAlgorithm = "ema"

	// DecayHalfLife applies lazy wall-clock decay: the stored weight
	// halves every HalfLife of elapsed time, applied on both reads and
	// updates.
	DecayHalfLife DecayAlgorithm = "half_life"

	// DecayNone accumulates observations without decay.
	DecayNone DecayAlgorithm = "none"
)

// unitObservation is the contribution of a single recorded transition.
const unitObservation = 1.0

// DecayConfig holds the decay model parameters.
type DecayConfig struct {
	// Algorithm selects the decay model.
	// Default: DecayEMA
	Algorithm DecayAlgorithm `json:"algorithm"`

	// Factor is the EMA decay factor, in (0, 1). Higher values retain
	// more of the old weight.
	// Default: 0.9
	Factor float64 `json:"decay_factor,omitempty"`

	// HalfLife is the half-life duration for DecayHalfLife.
	// Default: 1h
	HalfLife time.Duration `json:"half_life_ms,omitempty"`
}

// DefaultDecayConfig returns the default decay model (EMA, factor 0.9).
func DefaultDecayConfig() DecayConfig {
	return DecayConfig{
		Algorithm: DecayEMA,
		Factor:    0.9,
		HalfLife:  time.Hour,
	}
}

// Validate checks the decay configuration.
func (c DecayConfig) Validate() error {
	switch c.Algorithm {
	case DecayEMA:
		if c.Factor <= 0 || c.Factor >= 1 {
			return fmt.Errorf("%w: EMA factor must be in (0, 1), got %g", ErrInvalidConfig, c.Factor)
		}
	case DecayHalfLife:
		if c.HalfLife <= 0 {
			return fmt.Errorf("%w: half-life must be positive, got %v", ErrInvalidConfig, c.HalfLife)
		}
	case DecayNone:
	default:
		return fmt.Errorf("%w: unknown decay algorithm %q", ErrInvalidConfig, c.Algorithm)
	}
	return nil
}

// decayed returns the weight after lazy time decay from last update to now.
// Only DecayHalfLife is time-dependent; the other models return the stored
// weight unchanged.
func (c DecayConfig) decayed(weight float64, lastUpdate, now time.Time) float64 {
	if c.Algorithm != DecayHalfLife || lastUpdate.IsZero() {
		return weight
	}
	elapsed := now.Sub(lastUpdate)
	if elapsed <= 0 {
		return weight
	}
	return weight * math.Exp2(-float64(elapsed)/float64(c.HalfLife))
}

// updated returns the new stored weight after one observation at now.
func (c DecayConfig) updated(old float64, lastUpdate, now time.Time) float64 {
	switch c.Algorithm {
	case DecayEMA:
		return c.Factor*old + (1-c.Factor)*unitObservation
	case DecayHalfLife:
		return c.decayed(old, lastUpdate, now) + unitObservation
	default:
		return old + unitObservation
	}
}
