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

package config

import (
	"encoding/hex"
	"strings"

	"github.com/ZaparooProject/go-nfclock/link"
	"github.com/ZaparooProject/go-nfclock/tag"
)

// defaultTagUID is used when no tag uid is configured
var defaultTagUID = [tag.UIDSize]byte{0x04, 0x4E, 0x46, 0x43, 0x4C, 0x4B, 0x01}

// Normalize fills derived defaults. It must be called only after Validate.
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	cfg.Hardware.Mode = strings.ToLower(cfg.Hardware.Mode)
	if cfg.Hardware.Mode == "" {
		cfg.Hardware.Mode = ModeSim
	}
	if cfg.Hardware.ReferenceTicks == 0 {
		cfg.Hardware.ReferenceTicks = cfg.Lock.ThresholdTicks
	}

	if cfg.Link.Port != "" && cfg.Link.Baud == 0 {
		cfg.Link.Baud = link.DefaultBaudRate
	}
	cfg.Tag.UID = strings.ToLower(cfg.Tag.UID)
}

// TagUID returns the configured tag UID or the built-in one
func (c *Config) TagUID() [tag.UIDSize]byte {
	uid := defaultTagUID
	if b, err := hex.DecodeString(c.Tag.UID); err == nil && len(b) == tag.UIDSize {
		copy(uid[:], b)
	}
	return uid
}
