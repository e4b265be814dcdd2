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

/*
Package nfclock implements the controller of a battery-less door lock powered
by the field of an NFC reader.

The reader writes a passcode into a shared mailbox. When it matches, the lock
harvests energy into a storage capacitor, records the new lock state in flash
and turns the bolt motor by discharging the capacitor through an H-bridge in
short pulses. Progress and status codes are published back through the
mailbox for the reader to display.

Features:
  - Power/lock state machine (PowerOff, ReadyForPasscode, Harvesting,
    HarvestingDone, Idle) with a bounded harvest wait
  - Break-before-make H-bridge sequencing that never shorts a leg
  - Pulsed motor actuation gated on the capacitor voltage comparator
  - Lock state persisted to a dedicated flash page with verify, retry and
    last-known-good restore
  - Simulated capacitor and motor (package sim), GPIO hardware (package
    hardware/gpio), a file-backed flash image (package flash)
  - Serial mailbox link for reader hosts (package link), a Modbus mirror of
    the mailbox (package mirror) and an NDEF status tag image (package tag)

Basic Usage:

	import (
	    nfclock "github.com/ZaparooProject/go-nfclock"
	    "github.com/ZaparooProject/go-nfclock/flash"
	    "github.com/ZaparooProject/go-nfclock/sim"
	)

	image, err := flash.OpenFile("lock.img", nfclock.DefaultFlashBase,
	    nfclock.DefaultPageSize, nfclock.DefaultFlashPages)
	if err != nil {
	    log.Fatal(err)
	}
	defer image.Close()

	clock := nfclock.SystemClock()
	supply := sim.NewCapacitor(clock, sim.DefaultCapacitorConfig())
	motor := sim.NewMotor(clock, supply)

	mailbox := nfclock.NewMailbox()
	ctrl, err := nfclock.NewController(mailbox, motor, supply, image,
	    nfclock.WithPasscode(0x12345678),
	    nfclock.WithHarvestTimeout(30*time.Second),
	)
	if err != nil {
	    log.Fatal(err)
	}

	// The reader side presents the passcode
	_ = mailbox.Store(nfclock.SlotPasscode, 0x12345678)

	if err := ctrl.Run(ctx); err != nil {
	    log.Fatal(err)
	}

Thread Safety:

Controller, Sequencer, Actuator and Store are driven from a single goroutine.
Mailbox words may be read and written from any goroutine.

Debugging:

	nfclock.SetDebugEnabled(true)
	nfclock.SetDebugOutput(os.Stderr)
*/
package nfclock
