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
	"encoding/binary"
	"fmt"
)

// Record encoding
const (
	// RecordSize is the encoded size of a LockStateRecord
	RecordSize = 16
	// RegisteredMarker marks a programmed record
	RegisteredMarker uint32 = 0x52454731
	// ErasedWord is the value of an erased flash word
	ErasedWord uint32 = 0xFFFFFFFF
)

// LockStateRecord is the durable lock intent
type LockStateRecord struct {
	Registered bool
	Passcode   uint32
	State      LockState
	Reserved   uint32
}

// RecordStatus describes what Read found in the lock state page
type RecordStatus int

const (
	// RecordValid is a programmed record
	RecordValid RecordStatus = iota
	// RecordErased is the sentinel pattern: never registered, or erased
	// by a write that lost power before programming
	RecordErased
	// RecordCorrupt is neither a valid record nor the sentinel
	RecordCorrupt
)

// String returns a human readable record status
func (s RecordStatus) String() string {
	switch s {
	case RecordValid:
		return "valid"
	case RecordErased:
		return "erased"
	case RecordCorrupt:
		return "corrupt"
	default:
		return fmt.Sprintf("RecordStatus(%d)", int(s))
	}
}

// UnregisteredRecord is what an erased or unreadable page decodes to
func UnregisteredRecord() LockStateRecord {
	return LockStateRecord{Registered: false, State: Locked}
}

// MarshalBinary encodes the record as four little-endian words
func (r LockStateRecord) MarshalBinary() ([]byte, error) {
	if !r.Registered {
		return nil, fmt.Errorf("%w: unregistered records are never programmed", ErrInvalidParameter)
	}
	if r.State != Locked && r.State != Unlocked {
		return nil, fmt.Errorf("%w: lock state %d", ErrInvalidParameter, uint32(r.State))
	}
	buf := make([]byte, RecordSize)
	binary.LittleEndian.PutUint32(buf[0:], RegisteredMarker)
	binary.LittleEndian.PutUint32(buf[4:], r.Passcode)
	binary.LittleEndian.PutUint32(buf[8:], uint32(r.State))
	binary.LittleEndian.PutUint32(buf[12:], r.Reserved)
	return buf, nil
}

// decodeRecord classifies and decodes a raw record
func decodeRecord(buf []byte) (LockStateRecord, RecordStatus) {
	if len(buf) < RecordSize {
		return UnregisteredRecord(), RecordCorrupt
	}

	erased := true
	for _, b := range buf[:RecordSize] {
		if b != 0xFF {
			erased = false
			break
		}
	}
	if erased {
		return UnregisteredRecord(), RecordErased
	}

	if binary.LittleEndian.Uint32(buf[0:]) != RegisteredMarker {
		return UnregisteredRecord(), RecordCorrupt
	}
	state := LockState(binary.LittleEndian.Uint32(buf[8:]))
	if state != Locked && state != Unlocked {
		return UnregisteredRecord(), RecordCorrupt
	}

	return LockStateRecord{
		Registered: true,
		Passcode:   binary.LittleEndian.Uint32(buf[4:]),
		State:      state,
		Reserved:   binary.LittleEndian.Uint32(buf[12:]),
	}, RecordValid
}
