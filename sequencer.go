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

package nfclock

import (
	"fmt"
	"sync"
)

// MaxSequenceFlips bounds the number of single-line flips in one Apply
const MaxSequenceFlips = 4

// Sequencer moves the H-bridge between configurations one switch line at a
// time, break-before-make on each leg, so no committed configuration ever
// turns on both sides of a leg.
type Sequencer struct {
	driver  BridgeDriver
	current BridgeOutputs
	mu      sync.Mutex
}

// NewSequencer creates a sequencer for driver. The bridge is assumed to be
// off, which is the hardware reset state.
func NewSequencer(driver BridgeDriver) *Sequencer {
	return &Sequencer{driver: driver, current: BridgeOff}
}

// Current returns the last committed configuration
func (s *Sequencer) Current() BridgeOutputs {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Reset tells the sequencer what the hardware is currently driving without
// touching the driver. An unsafe configuration is accepted so the next Apply
// can repair it.
func (s *Sequencer) Reset(out BridgeOutputs) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = out
}

// Apply drives the bridge to target and returns every committed configuration
// in order. On a driver error the sequencer keeps the last configuration that
// was committed successfully.
func (s *Sequencer) Apply(target BridgeOutputs) ([]BridgeOutputs, error) {
	if !target.Safe() {
		return nil, fmt.Errorf("%w: target %s", ErrShootThrough, target)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	steps := plan(s.current, target)
	trace := make([]BridgeOutputs, 0, len(steps))
	for _, step := range steps {
		if err := s.driver.SetSwitches(step); err != nil {
			return trace, fmt.Errorf("%w: step %s: %w", ErrBridgeWrite, step, err)
		}
		s.current = step
		trace = append(trace, step)
	}

	if len(trace) > 0 {
		debugf("bridge %s after %d flips", target, len(trace))
	}
	return trace, nil
}

// leg is a view of one half of the bridge
type leg struct {
	high *bool
	low  *bool
}

func legs(out *BridgeOutputs) [2]leg {
	return [2]leg{
		{high: &out.HS1, low: &out.LS1},
		{high: &out.HS2, low: &out.LS2},
	}
}

// plan lists the configurations that take from to target, one line flip
// per entry. On each leg the switches to release come first, then the
// switch to engage. Every line flips at most once.
func plan(from, target BridgeOutputs) []BridgeOutputs {
	steps := make([]BridgeOutputs, 0, MaxSequenceFlips)
	cur := from
	want := legs(&target)

	// Shorted legs are opened before anything else moves.
	for i, l := range legs(&cur) {
		if !*l.high || !*l.low {
			continue
		}
		if !*want[i].high {
			*l.high = false
		} else {
			*l.low = false
		}
		steps = append(steps, cur)
	}

	for i, l := range legs(&cur) {
		if *l.high && !*want[i].high {
			*l.high = false
			steps = append(steps, cur)
		}
		if *l.low && !*want[i].low {
			*l.low = false
			steps = append(steps, cur)
		}
		if !*l.high && *want[i].high {
			*l.high = true
			steps = append(steps, cur)
		}
		if !*l.low && *want[i].low {
			*l.low = true
			steps = append(steps, cur)
		}
	}
	return steps
}
