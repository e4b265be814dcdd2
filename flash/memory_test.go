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

package flash

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testBase     = 0x1000
	testPageSize = 64
	testPages    = 4
)

func programPage(t *testing.T, d interface {
	OpenBuffer(uint32) error
	CopyToBuffer(uint32, []byte) error
	ErasePage() error
	ProgramPage() error
	VerifyProgram() error
}, addr uint32, data []byte,
) {
	t.Helper()
	require.NoError(t, d.OpenBuffer(addr))
	require.NoError(t, d.CopyToBuffer(addr, data))
	require.NoError(t, d.ErasePage())
	require.NoError(t, d.ProgramPage())
	require.NoError(t, d.VerifyProgram())
}

func TestMemory_StartsErased(t *testing.T) {
	t.Parallel()
	m := NewMemory(testBase, testPageSize, testPages)

	buf := make([]byte, testPageSize*testPages)
	require.NoError(t, m.Read(testBase, buf))
	assert.Equal(t, bytes.Repeat([]byte{ErasedByte}, len(buf)), buf)
	assert.Equal(t, testPageSize, m.PageSize())
}

func TestMemory_ProgramKeepsRestOfPage(t *testing.T) {
	t.Parallel()
	m := NewMemory(testBase, testPageSize, testPages)

	programPage(t, m, testBase+testPageSize, []byte{1, 2, 3, 4})
	programPage(t, m, testBase+testPageSize+8, []byte{5, 6})

	buf := make([]byte, 10)
	require.NoError(t, m.Read(testBase+testPageSize, buf))
	assert.Equal(t, []byte{1, 2, 3, 4, 0xFF, 0xFF, 0xFF, 0xFF, 5, 6}, buf)

	// Neighbouring pages are untouched.
	other := make([]byte, testPageSize)
	require.NoError(t, m.Read(testBase, other))
	assert.Equal(t, bytes.Repeat([]byte{ErasedByte}, testPageSize), other)
	assert.Equal(t, Stats{Erases: 2, Programs: 2}, m.Stats())
}

func TestMemory_ProgramWithoutEraseFailsVerify(t *testing.T) {
	t.Parallel()
	m := NewMemory(testBase, testPageSize, testPages)
	programPage(t, m, testBase, []byte{0x0F})

	require.NoError(t, m.OpenBuffer(testBase))
	require.NoError(t, m.CopyToBuffer(testBase, []byte{0xF0}))
	require.NoError(t, m.ProgramPage())
	require.ErrorIs(t, m.VerifyProgram(), ErrVerify)

	buf := make([]byte, 1)
	require.NoError(t, m.Read(testBase, buf))
	assert.Equal(t, byte(0x00), buf[0], "programming only clears bits")
}

func TestMemory_BufferProtocol(t *testing.T) {
	t.Parallel()
	m := NewMemory(testBase, testPageSize, testPages)

	require.ErrorIs(t, m.CopyToBuffer(testBase, []byte{1}), ErrBufferClosed)
	require.ErrorIs(t, m.ErasePage(), ErrBufferClosed)
	require.ErrorIs(t, m.ProgramPage(), ErrBufferClosed)

	require.NoError(t, m.OpenBuffer(testBase+3))
	require.ErrorIs(t, m.CopyToBuffer(testBase+testPageSize, []byte{1}), ErrPageMismatch)
	require.ErrorIs(t, m.CopyToBuffer(testBase+testPageSize-1, []byte{1, 2}), ErrPageMismatch)

	m.AbortProgram()
	require.ErrorIs(t, m.ProgramPage(), ErrBufferClosed)
	assert.Equal(t, 1, m.Stats().Aborts)

	require.ErrorIs(t, m.OpenBuffer(testBase-1), ErrOutOfRange)
	require.ErrorIs(t, m.Read(testBase+testPageSize*testPages-1, make([]byte, 2)), ErrOutOfRange)
}

func TestMemory_InjectFault(t *testing.T) {
	t.Parallel()
	m := NewMemory(testBase, testPageSize, testPages)
	boom := errors.New("boom")

	m.InjectFault(OpErase, boom, 1)
	require.NoError(t, m.OpenBuffer(testBase))
	require.ErrorIs(t, m.ErasePage(), boom)
	require.NoError(t, m.ErasePage())
}

func TestMemory_PowerCut(t *testing.T) {
	t.Parallel()
	m := NewMemory(testBase, testPageSize, testPages)
	programPage(t, m, testBase, []byte{0xAA})

	m.CutPowerAfter(OpErase)
	require.NoError(t, m.OpenBuffer(testBase))
	require.NoError(t, m.CopyToBuffer(testBase, []byte{0x55}))
	require.NoError(t, m.ErasePage())
	require.ErrorIs(t, m.ProgramPage(), ErrPowerLost)
	require.ErrorIs(t, m.Read(testBase, make([]byte, 1)), ErrPowerLost)

	m.PowerCycle()
	buf := make([]byte, 1)
	require.NoError(t, m.Read(testBase, buf))
	assert.Equal(t, byte(ErasedByte), buf[0], "erased page was never programmed")
	require.ErrorIs(t, m.ProgramPage(), ErrBufferClosed, "assembly buffer does not survive power loss")
}

func TestFile_PersistsAcrossOpen(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "flash.img")

	f, err := OpenFile(path, testBase, testPageSize, testPages)
	require.NoError(t, err)
	assert.Equal(t, path, f.Path())
	programPage(t, f, testBase+2*testPageSize, []byte{9, 8, 7})
	require.NoError(t, f.Close())

	f, err = OpenFile(path, testBase, testPageSize, testPages)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	buf := make([]byte, 4)
	require.NoError(t, f.Read(testBase+2*testPageSize, buf))
	assert.Equal(t, []byte{9, 8, 7, 0xFF}, buf)
}
