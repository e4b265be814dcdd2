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

// Package frame provides the frame layout and checksum of the mailbox link
package frame

import (
	"encoding/binary"
	"errors"
)

// Frame markers and commands
const (
	StartOfFrame = 0xA5

	CmdRead  = 0x01
	CmdWrite = 0x02
	CmdError = 0x7F

	// ResponseFlag is set on the command byte of every reply
	ResponseFlag = 0x80
)

// Error codes carried in the value field of a CmdError reply
const (
	ErrCodeChecksum = 0x01
	ErrCodeIndex    = 0x02
	ErrCodeCommand  = 0x03
	ErrCodeReadOnly = 0x04
)

// Length is the size of every frame: start, command, index, four value
// bytes and the checksum.
const Length = 8

// Frame errors
var (
	ErrShortFrame       = errors.New("frame too short")
	ErrBadStart         = errors.New("frame does not begin with start byte")
	ErrChecksumMismatch = errors.New("frame checksum mismatch")
)

// Frame is one decoded link frame
type Frame struct {
	Value uint32
	Cmd   byte
	Index byte
}

// CalculateChecksum returns the byte sum of data
func CalculateChecksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return sum
}

// ValidateChecksum reports whether data, including its trailing checksum
// byte, sums to zero
func ValidateChecksum(data []byte) bool {
	return CalculateChecksum(data) == 0
}

// Encode serializes f with a checksum that makes the bytes after the start
// byte sum to zero
func Encode(f Frame) []byte {
	buf := make([]byte, Length)
	buf[0] = StartOfFrame
	buf[1] = f.Cmd
	buf[2] = f.Index
	binary.BigEndian.PutUint32(buf[3:7], f.Value)
	buf[7] = -CalculateChecksum(buf[1:7])
	return buf
}

// Decode parses one frame
func Decode(buf []byte) (Frame, error) {
	if len(buf) < Length {
		return Frame{}, ErrShortFrame
	}
	if buf[0] != StartOfFrame {
		return Frame{}, ErrBadStart
	}
	if !ValidateChecksum(buf[1:Length]) {
		return Frame{}, ErrChecksumMismatch
	}
	return Frame{
		Cmd:   buf[1],
		Index: buf[2],
		Value: binary.BigEndian.Uint32(buf[3:7]),
	}, nil
}
