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

package main

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	nfclock "github.com/ZaparooProject/go-nfclock"
	"github.com/ZaparooProject/go-nfclock/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePasscode(t *testing.T) {
	t.Parallel()

	got, err := parsePasscode(math.MaxUint32)
	require.NoError(t, err)
	assert.Equal(t, uint32(math.MaxUint32), got)

	// 0x100000000 would truncate to 0, the empty mailbox value
	_, err = parsePasscode(0x100000000)
	assert.ErrorIs(t, err, nfclock.ErrInvalidParameter)
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, config.ModeSim, cfg.Hardware.Mode)

	path := filepath.Join(t.TempDir(), "lock.yaml")
	require.NoError(t, os.WriteFile(path, []byte("lock:\n  pulses: 99\n"), 0o600))
	_, err = loadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pulses")
}
