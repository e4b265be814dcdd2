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

package frame

import "testing"

func TestCalculateChecksum(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		data []byte
		want byte
	}{
		{
			name: "empty data",
			data: []byte{},
			want: 0,
		},
		{
			name: "single byte",
			data: []byte{0x42},
			want: 0x42,
		},
		{
			name: "overflow handling",
			data: []byte{0xFF, 0x01},
			want: 0x00,
		},
		{
			name: "multiple bytes",
			data: []byte{0x01, 0x02, 0x03, 0x04},
			want: 0x0A,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := CalculateChecksum(tt.data); got != tt.want {
				t.Errorf("CalculateChecksum() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEncodeDecode(t *testing.T) {
	t.Parallel()

	buf := Encode(Frame{Cmd: CmdWrite, Index: 2, Value: 0x12345678})
	want := []byte{0xA5, 0x02, 0x02, 0x12, 0x34, 0x56, 0x78, 0x00}
	want[7] = -CalculateChecksum(want[1:7])
	for i := range want {
		if buf[i] != want[i] {
			t.Fatalf("Encode() = % X, want % X", buf, want)
		}
	}

	f, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if f.Cmd != CmdWrite || f.Index != 2 || f.Value != 0x12345678 {
		t.Errorf("Decode() = %+v", f)
	}
}

func TestDecodeErrors(t *testing.T) {
	t.Parallel()

	good := Encode(Frame{Cmd: CmdRead, Index: 3})
	corrupt := append([]byte(nil), good...)
	corrupt[5] ^= 0x10
	badStart := append([]byte(nil), good...)
	badStart[0] = 0x00

	tests := []struct {
		want error
		name string
		buf  []byte
	}{
		{name: "short", buf: good[:Length-1], want: ErrShortFrame},
		{name: "bad start", buf: badStart, want: ErrBadStart},
		{name: "corrupt", buf: corrupt, want: ErrChecksumMismatch},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := Decode(tt.buf); err != tt.want {
				t.Errorf("Decode() error = %v, want %v", err, tt.want)
			}
		})
	}
}
