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
	"sync/atomic"
)

// MailboxWords is the number of 32-bit words in the mailbox
const MailboxWords = 16

// Mailbox slot indices
const (
	SlotMCUValid     = 1
	SlotPasscode     = 2
	SlotStatus       = 3
	SlotProgress     = 5
	SlotVoltageSweep = 6
)

// Mailbox markers and status codes
const (
	MCUValid uint32 = 0x600DF00D

	StatusPasscodeValid   uint32 = 0x0000C0DE
	StatusPasscodeInvalid uint32 = 0x0000BAD0
	StatusHarvestingDone  uint32 = 0x0000D0E5
	StatusHarvestTimeout  uint32 = 0x00007140
	StatusPersistFailed   uint32 = 0x0000FA11
	StatusActuationFailed uint32 = 0x0000DEAD

	ProgressHarvested    uint32 = 0x11111111
	ProgressMotorWaiting uint32 = 0x22222222
	ProgressDischarging  uint32 = 0x33333333
	ProgressRecharging   uint32 = 0x44444444
)

// Mailbox is the word array shared with the NFC reader. Each word is read and
// written atomically, but updates spanning several words are not.
type Mailbox struct {
	words [MailboxWords]atomic.Uint32
}

// NewMailbox returns a zeroed mailbox
func NewMailbox() *Mailbox {
	return &Mailbox{}
}

// Load returns the word at index i. Out of range indices read as zero.
func (m *Mailbox) Load(i int) uint32 {
	if i < 0 || i >= MailboxWords {
		return 0
	}
	return m.words[i].Load()
}

// Store writes v to index i
func (m *Mailbox) Store(i int, v uint32) error {
	if i < 0 || i >= MailboxWords {
		return fmt.Errorf("%w: mailbox index %d", ErrInvalidParameter, i)
	}
	m.words[i].Store(v)
	return nil
}

// Snapshot copies every word. Words written concurrently may come from
// different points in time.
func (m *Mailbox) Snapshot() [MailboxWords]uint32 {
	var out [MailboxWords]uint32
	for i := range m.words {
		out[i] = m.words[i].Load()
	}
	return out
}

// set is Store for the fixed slots used internally
func (m *Mailbox) set(i int, v uint32) {
	m.words[i].Store(v)
}
