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

// Package tag renders the lock status as an NFC Forum Type 2 tag memory
// image holding a single NDEF text record, the format a phone reads when it
// is held against the lock.
package tag

import (
	"errors"
	"fmt"

	nfclock "github.com/ZaparooProject/go-nfclock"
	"github.com/hsanjuan/go-ndef"
)

// Type 2 tag memory layout
const (
	BlockSize  = 4
	UIDSize    = 7
	ccOffset   = 12
	DataOffset = 16

	// DataSize is the user memory of an NTAG213
	DataSize = 144

	ccMagic    = 0xE1
	ccVersion  = 0x10
	ccReadOnly = 0x0F

	tlvNull       = 0x00
	tlvNDEF       = 0x03
	tlvTerminator = 0xFE

	cascadeTag = 0x88
)

// Language is the language code of the status text record
const Language = "en"

// Tag errors
var (
	ErrNoCapabilityContainer = errors.New("tag: capability container missing")
	ErrNoNDEF                = errors.New("tag: no NDEF message TLV")
	ErrTooLarge              = errors.New("tag: message exceeds tag memory")
	ErrEmptyMessage          = errors.New("tag: NDEF message has no records")
)

// StatusText describes the lock state and the last status code
func StatusText(state nfclock.LockState, status uint32) string {
	return fmt.Sprintf("lock %s, status 0x%04X", state, status)
}

// Build returns the full memory image of a tag with the given UID whose
// user area holds text as an NDEF text record. The capability container
// marks the tag read-only.
func Build(uid [UIDSize]byte, text string) ([]byte, error) {
	msg, err := ndef.NewTextMessage(text, Language).Marshal()
	if err != nil {
		return nil, fmt.Errorf("tag: marshal NDEF: %w", err)
	}

	tlv := make([]byte, 0, len(msg)+5)
	tlv = append(tlv, tlvNDEF)
	if len(msg) < 0xFF {
		tlv = append(tlv, byte(len(msg)))
	} else {
		tlv = append(tlv, 0xFF, byte(len(msg)>>8), byte(len(msg)))
	}
	tlv = append(tlv, msg...)
	tlv = append(tlv, tlvTerminator)
	if len(tlv) > DataSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, len(tlv))
	}

	img := make([]byte, DataOffset+DataSize)
	copy(img[0:3], uid[0:3])
	img[3] = cascadeTag ^ uid[0] ^ uid[1] ^ uid[2]
	copy(img[4:8], uid[3:7])
	img[8] = uid[3] ^ uid[4] ^ uid[5] ^ uid[6]
	img[9] = 0x48
	img[ccOffset] = ccMagic
	img[ccOffset+1] = ccVersion
	img[ccOffset+2] = DataSize / 8
	img[ccOffset+3] = ccReadOnly
	copy(img[DataOffset:], tlv)
	return img, nil
}

// StatusImage builds a tag image describing state and status
func StatusImage(uid [UIDSize]byte, state nfclock.LockState, status uint32) ([]byte, error) {
	return Build(uid, StatusText(state, status))
}

// Parse returns the text of the first record of the NDEF message in img
func Parse(img []byte) (string, error) {
	if len(img) < DataOffset || img[ccOffset] != ccMagic {
		return "", ErrNoCapabilityContainer
	}

	data := img[DataOffset:]
	for i := 0; i < len(data); {
		t := data[i]
		switch t {
		case tlvNull:
			i++
			continue
		case tlvTerminator:
			return "", ErrNoNDEF
		}
		if i+1 >= len(data) {
			return "", ErrNoNDEF
		}

		length, hdr := int(data[i+1]), 2
		if length == 0xFF {
			if i+3 >= len(data) {
				return "", ErrNoNDEF
			}
			length, hdr = int(data[i+2])<<8|int(data[i+3]), 4
		}
		start := i + hdr
		if start+length > len(data) {
			return "", fmt.Errorf("%w: TLV length %d overruns memory", ErrNoNDEF, length)
		}
		if t == tlvNDEF {
			return decodeText(data[start : start+length])
		}
		i = start + length
	}
	return "", ErrNoNDEF
}

func decodeText(buf []byte) (string, error) {
	msg := &ndef.Message{}
	if _, err := msg.Unmarshal(buf); err != nil {
		return "", fmt.Errorf("tag: unmarshal NDEF: %w", err)
	}
	if len(msg.Records) == 0 {
		return "", ErrEmptyMessage
	}
	payload, err := msg.Records[0].Payload()
	if err != nil {
		return "", fmt.Errorf("tag: record payload: %w", err)
	}
	return payload.String(), nil
}
