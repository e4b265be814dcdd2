// go-nfclock
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-nfclock.
//
// go-nfclock is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-nfclock is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-nfclock; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package config

import (
	"encoding/hex"
	"fmt"
	"strings"

	nfclock "github.com/ZaparooProject/go-nfclock"
	"github.com/ZaparooProject/go-nfclock/tag"
)

// Validate checks configuration correctness.
// It does not mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: nil config", nfclock.ErrInvalidParameter)
	}

	l := cfg.Lock
	switch {
	case l.Passcode == 0:
		return fmt.Errorf("lock: passcode must be non-zero")
	case l.Pulses < 1 || l.Pulses > nfclock.MaxPulses:
		return fmt.Errorf("lock: pulses %d not in 1..%d", l.Pulses, nfclock.MaxPulses)
	case l.HarvestTimeout < 0 || l.MotorWait < 0:
		return fmt.Errorf("lock: timeouts must not be negative")
	case l.Discharge <= 0 || l.Recharge < 0:
		return fmt.Errorf("lock: discharge must be positive and recharge non-negative")
	case l.ThresholdTicks == 0:
		return fmt.Errorf("lock: threshold_ticks must be non-zero")
	case l.MaxRetries < 0:
		return fmt.Errorf("lock: max_retries must not be negative")
	}

	f := cfg.Flash
	if f.PageSize < nfclock.RecordSize || f.Pages < 3 {
		return fmt.Errorf("flash: need page_size >= %d and at least 3 pages", nfclock.RecordSize)
	}
	if err := cfg.Layout().Validate(); err != nil {
		return fmt.Errorf("flash: %w", err)
	}

	h := cfg.Hardware
	switch strings.ToLower(h.Mode) {
	case ModeSim, "":
		if h.Sim.ChargePerMs <= 0 || h.Sim.MaxTicks <= 0 {
			return fmt.Errorf("hardware: sim charge_per_ms and max_ticks must be positive")
		}
		if h.Sim.MaxTicks < float64(l.ThresholdTicks) {
			return fmt.Errorf("hardware: sim max_ticks %.0f never reaches threshold %d", h.Sim.MaxTicks, l.ThresholdTicks)
		}
	case ModeGPIO:
		pins := []string{h.Bridge.HS1, h.Bridge.LS1, h.Bridge.HS2, h.Bridge.LS2}
		seen := make(map[string]bool, len(pins)+1)
		for _, p := range append(pins, h.ComparatorPin) {
			if p == "" {
				return fmt.Errorf("hardware: gpio mode needs all bridge pins and comparator_pin")
			}
			if seen[p] {
				return fmt.Errorf("hardware: pin %q assigned twice", p)
			}
			seen[p] = true
		}
		// the comparator never trips above its own reference
		if h.ReferenceTicks != 0 && h.ReferenceTicks < l.ThresholdTicks {
			return fmt.Errorf("hardware: reference_ticks %d below threshold_ticks %d",
				h.ReferenceTicks, l.ThresholdTicks)
		}
	default:
		return fmt.Errorf("hardware: unknown mode %q", h.Mode)
	}

	if cfg.Link.Baud < 0 {
		return fmt.Errorf("link: baud must not be negative")
	}
	if cfg.Mirror.Timeout < 0 || cfg.Mirror.Interval < 0 {
		return fmt.Errorf("mirror: durations must not be negative")
	}

	if cfg.Tag.UID != "" {
		uid, err := hex.DecodeString(cfg.Tag.UID)
		if err != nil || len(uid) != tag.UIDSize {
			return fmt.Errorf("tag: uid must be %d hex bytes", tag.UIDSize)
		}
	}
	return nil
}
