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

// Package gpio drives the lock hardware through periph.io GPIO lines: the four
// H-bridge switches and the harvest comparator output.
package gpio

import (
	"errors"
	"fmt"

	nfclock "github.com/ZaparooProject/go-nfclock"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// ErrPinNotFound is returned when a named pin is not registered
var ErrPinNotFound = errors.New("gpio pin not found")

// Init initializes the periph host drivers
func Init() error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph host: %w", err)
	}
	return nil
}

// BridgePins names the GPIO lines of the H-bridge switches
type BridgePins struct {
	HS1 string `yaml:"hs1"`
	LS1 string `yaml:"ls1"`
	HS2 string `yaml:"hs2"`
	LS2 string `yaml:"ls2"`
}

// Bridge implements nfclock.BridgeDriver on four output pins. Only lines that
// change are written, releases before engagements, so a caller flipping one
// line per call never shorts a leg even for an instant.
type Bridge struct {
	pins  [4]gpio.PinOut
	state nfclock.BridgeOutputs
}

// NewBridge looks up the named pins and drives them all low
func NewBridge(names BridgePins) (*Bridge, error) {
	var pins [4]gpio.PinOut
	for i, name := range []string{names.HS1, names.LS1, names.HS2, names.LS2} {
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, fmt.Errorf("%w: %q", ErrPinNotFound, name)
		}
		pins[i] = p
	}
	return NewBridgeFromPins(pins[0], pins[1], pins[2], pins[3])
}

// NewBridgeFromPins creates a bridge on already opened pins and drives them
// all low
func NewBridgeFromPins(hs1, ls1, hs2, ls2 gpio.PinOut) (*Bridge, error) {
	b := &Bridge{pins: [4]gpio.PinOut{hs1, ls1, hs2, ls2}}
	for _, p := range b.pins {
		if p == nil {
			return nil, fmt.Errorf("%w: nil pin", nfclock.ErrInvalidParameter)
		}
		if err := p.Out(gpio.Low); err != nil {
			return nil, fmt.Errorf("failed to drive %s low: %w", p.Name(), err)
		}
	}
	return b, nil
}

func lines(out nfclock.BridgeOutputs) [4]bool {
	return [4]bool{out.HS1, out.LS1, out.HS2, out.LS2}
}

func outputs(l [4]bool) nfclock.BridgeOutputs {
	return nfclock.BridgeOutputs{HS1: l[0], LS1: l[1], HS2: l[2], LS2: l[3]}
}

// SetSwitches writes the lines that differ from the current outputs
func (b *Bridge) SetSwitches(out nfclock.BridgeOutputs) error {
	cur := lines(b.state)
	want := lines(out)

	// releases first
	for _, level := range []bool{false, true} {
		for i, p := range b.pins {
			if cur[i] == want[i] || want[i] != level {
				continue
			}
			if err := p.Out(gpio.Level(level)); err != nil {
				// keep the lines already written so the next diff sees them
				b.state = outputs(cur)
				return fmt.Errorf("failed to set %s: %w", p.Name(), err)
			}
			cur[i] = level
		}
	}
	b.state = out
	return nil
}

// Outputs returns the last configuration written
func (b *Bridge) Outputs() nfclock.BridgeOutputs {
	return b.state
}

// Comparator implements nfclock.VoltageMonitor on the digital output of an
// analog comparator whose reference is fixed in hardware at ReferenceTicks.
type Comparator struct {
	pin            gpio.PinIn
	ReferenceTicks uint16
	Channel        uint8
}

// NewComparator configures the named pin as a pulled-down input
func NewComparator(name string, channel uint8, referenceTicks uint16) (*Comparator, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("%w: %q", ErrPinNotFound, name)
	}
	return NewComparatorFromPin(p, channel, referenceTicks)
}

// NewComparatorFromPin creates a comparator on an already opened pin
func NewComparatorFromPin(p gpio.PinIn, channel uint8, referenceTicks uint16) (*Comparator, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil pin", nfclock.ErrInvalidParameter)
	}
	if err := p.In(gpio.PullDown, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("failed to configure %s as input: %w", p.Name(), err)
	}
	return &Comparator{pin: p, Channel: channel, ReferenceTicks: referenceTicks}, nil
}

// Compare reports a high comparator output. Thresholds above the hardware
// reference cannot be confirmed and compare false.
func (c *Comparator) Compare(channel uint8, thresholdTicks uint16) bool {
	if channel != c.Channel || thresholdTicks > c.ReferenceTicks {
		return false
	}
	return c.pin.Read() == gpio.High
}
