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

import "time"

// BridgeDriver applies switch-line states to the H-bridge hardware.
// Implementations apply the outputs immediately and do no safety checking;
// the Sequencer is responsible for never committing an unsafe configuration.
type BridgeDriver interface {
	SetSwitches(out BridgeOutputs) error
}

// VoltageMonitor compares a harvested-energy channel against a threshold
type VoltageMonitor interface {
	// Compare returns true when channel is at or above thresholdTicks
	Compare(channel uint8, thresholdTicks uint16) bool
}

// FlashPageDriver is the page-granular non-volatile memory driver.
//
// Programming follows the assembly buffer protocol: OpenBuffer stages the
// page containing addr, CopyToBuffer updates the staged contents, ErasePage
// and ProgramPage commit it, VerifyProgram compares the page against the
// buffer. AbortProgram releases the buffer without programming.
type FlashPageDriver interface {
	PageSize() int
	Read(addr uint32, buf []byte) error
	OpenBuffer(addr uint32) error
	CopyToBuffer(addr uint32, data []byte) error
	ErasePage() error
	ProgramPage() error
	VerifyProgram() error
	AbortProgram()
}

// Clock provides time and blocking delays
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) Sleep(d time.Duration) { time.Sleep(d) }

// SystemClock returns a Clock backed by the time package
func SystemClock() Clock {
	return systemClock{}
}
