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
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockStateRecord_Encoding(t *testing.T) {
	t.Parallel()

	rec := LockStateRecord{Registered: true, Passcode: 0x12345678, State: Unlocked, Reserved: 0}
	buf, err := rec.MarshalBinary()
	require.NoError(t, err)

	want := []byte{
		0x31, 0x47, 0x45, 0x52,
		0x78, 0x56, 0x34, 0x12,
		0x01, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
	}
	assert.Equal(t, want, buf)

	got, status := decodeRecord(buf)
	assert.Equal(t, RecordValid, status)
	assert.Equal(t, rec, got)
}

func TestLockStateRecord_RejectsUnprogrammable(t *testing.T) {
	t.Parallel()

	_, err := UnregisteredRecord().MarshalBinary()
	require.ErrorIs(t, err, ErrInvalidParameter)

	_, err = LockStateRecord{Registered: true, State: LockState(7)}.MarshalBinary()
	require.ErrorIs(t, err, ErrInvalidParameter)
}

func TestDecodeRecord(t *testing.T) {
	t.Parallel()

	valid, err := LockStateRecord{Registered: true, Passcode: 1, State: Locked}.MarshalBinary()
	require.NoError(t, err)

	badState := append([]byte(nil), valid...)
	badState[8] = 0x02

	tests := []struct {
		name string
		buf  []byte
		want RecordStatus
	}{
		{name: "erased", buf: bytes.Repeat([]byte{0xFF}, RecordSize), want: RecordErased},
		{name: "valid", buf: valid, want: RecordValid},
		{name: "zeros", buf: make([]byte, RecordSize), want: RecordCorrupt},
		{name: "bad lock state", buf: badState, want: RecordCorrupt},
		{name: "short", buf: valid[:8], want: RecordCorrupt},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec, status := decodeRecord(tt.buf)
			assert.Equal(t, tt.want, status)
			if status != RecordValid {
				assert.Equal(t, UnregisteredRecord(), rec)
			}
		})
	}
}

func TestLockState_Toggle(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Unlocked, Locked.Toggle())
	assert.Equal(t, Locked, Unlocked.Toggle())
	assert.Equal(t, Locked, Locked.Toggle().Toggle())
	assert.Equal(t, "locked", Locked.String())
	assert.Equal(t, "unlocked", Unlocked.String())
}
