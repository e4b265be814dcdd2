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

import "fmt"

// PowerState is the control-flow position of the lock controller.
// A fresh power-up always starts at PowerOff.
type PowerState int

const (
	PowerOff PowerState = iota
	ReadyForPasscode
	Harvesting
	HarvestingDone
	Idle
)

// String returns a human readable name for the state
func (s PowerState) String() string {
	switch s {
	case PowerOff:
		return "PowerOff"
	case ReadyForPasscode:
		return "ReadyForPasscode"
	case Harvesting:
		return "Harvesting"
	case HarvestingDone:
		return "HarvestingDone"
	case Idle:
		return "Idle"
	default:
		return fmt.Sprintf("PowerState(%d)", int(s))
	}
}

// LockState is the logical position of the bolt.
type LockState uint32

const (
	Locked   LockState = 0
	Unlocked LockState = 1
)

// Toggle returns the opposite lock state
func (s LockState) Toggle() LockState {
	if s == Locked {
		return Unlocked
	}
	return Locked
}

// String returns a human readable name for the lock state
func (s LockState) String() string {
	switch s {
	case Locked:
		return "locked"
	case Unlocked:
		return "unlocked"
	default:
		return fmt.Sprintf("LockState(%d)", uint32(s))
	}
}

// BridgeOutputs holds the four switch lines of the H-bridge. HS/LS are the
// high-side and low-side transistors of leg 1 and leg 2.
type BridgeOutputs struct {
	HS1 bool
	LS1 bool
	HS2 bool
	LS2 bool
}

// Named bridge configurations.
var (
	BridgeOff    = BridgeOutputs{}
	BridgeLock   = BridgeOutputs{HS1: false, LS1: true, HS2: true, LS2: false}
	BridgeUnlock = BridgeOutputs{HS1: true, LS1: false, HS2: false, LS2: true}
)

// Safe reports whether no leg has both of its switches conducting.
func (b BridgeOutputs) Safe() bool {
	return !(b.HS1 && b.LS1) && !(b.HS2 && b.LS2)
}

// String renders the outputs as four binary digits in hs1 ls1 hs2 ls2 order
func (b BridgeOutputs) String() string {
	bit := func(v bool) byte {
		if v {
			return '1'
		}
		return '0'
	}
	return string([]byte{bit(b.HS1), bit(b.LS1), bit(b.HS2), bit(b.LS2)})
}

// BridgeTarget returns the bridge configuration that drives the motor toward state.
func BridgeTarget(state LockState) BridgeOutputs {
	if state == Unlocked {
		return BridgeUnlock
	}
	return BridgeLock
}

// halfOpen returns target with the low side opposite the active high side
// switched off. The motor circuit is broken while one high side stays on.
func halfOpen(target BridgeOutputs) BridgeOutputs {
	out := target
	switch {
	case target.HS2:
		out.LS1 = false
	case target.HS1:
		out.LS2 = false
	}
	return out
}
