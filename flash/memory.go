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

// Package flash provides page-granular flash drivers for the lock state store:
// an in-memory driver with fault injection and an image-file backed driver.
package flash

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
)

// Driver errors
var (
	ErrOutOfRange   = errors.New("address out of range")
	ErrBufferClosed = errors.New("assembly buffer not open")
	ErrPageMismatch = errors.New("address outside the open page")
	ErrVerify       = errors.New("page contents differ from assembly buffer")
	ErrPowerLost    = errors.New("flash lost power")
)

// ErasedByte is the value of every byte of an erased page
const ErasedByte = 0xFF

// Op identifies a driver operation for fault injection
type Op int

const (
	OpRead Op = iota
	OpOpen
	OpCopy
	OpErase
	OpProgram
	OpVerify
)

// String returns the operation name
func (o Op) String() string {
	switch o {
	case OpRead:
		return "read"
	case OpOpen:
		return "open"
	case OpCopy:
		return "copy"
	case OpErase:
		return "erase"
	case OpProgram:
		return "program"
	case OpVerify:
		return "verify"
	default:
		return fmt.Sprintf("Op(%d)", int(o))
	}
}

// Stats counts operations that reached the flash array
type Stats struct {
	Erases   int
	Programs int
	Aborts   int
}

type fault struct {
	err   error
	times int
}

// Memory is a flash array held in RAM. Programming can only clear bits, as on
// NOR flash, so a page must be erased before it is reprogrammed.
type Memory struct {
	faults     map[Op]*fault
	data       []byte
	buffer     []byte
	stats      Stats
	base       uint32
	bufferPage uint32
	pageSize   int
	cutAfter   Op
	mu         sync.Mutex
	open       bool
	cutArmed   bool
	powerLost  bool
}

// NewMemory creates an erased flash array of pages pages starting at base
func NewMemory(base uint32, pageSize, pages int) *Memory {
	data := bytes.Repeat([]byte{ErasedByte}, pageSize*pages)
	return &Memory{
		faults:   make(map[Op]*fault),
		data:     data,
		base:     base,
		pageSize: pageSize,
	}
}

// PageSize returns the erase granularity in bytes
func (m *Memory) PageSize() int {
	return m.pageSize
}

// Read copies len(buf) bytes starting at addr
func (m *Memory) Read(addr uint32, buf []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.check(OpRead); err != nil {
		return err
	}
	off, err := m.offset(addr, len(buf))
	if err != nil {
		return err
	}
	copy(buf, m.data[off:off+len(buf)])
	return nil
}

// OpenBuffer stages the page containing addr in the assembly buffer
func (m *Memory) OpenBuffer(addr uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.check(OpOpen); err != nil {
		return err
	}
	off, err := m.offset(addr, 1)
	if err != nil {
		return err
	}
	start := off - off%m.pageSize
	m.bufferPage = m.base + uint32(start)
	m.buffer = append(m.buffer[:0], m.data[start:start+m.pageSize]...)
	m.open = true
	return m.cut(OpOpen)
}

// CopyToBuffer writes data into the assembly buffer at addr
func (m *Memory) CopyToBuffer(addr uint32, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.check(OpCopy); err != nil {
		return err
	}
	if !m.open {
		return ErrBufferClosed
	}
	if addr < m.bufferPage || int(addr-m.bufferPage)+len(data) > m.pageSize {
		return fmt.Errorf("%w: 0x%08X+%d", ErrPageMismatch, addr, len(data))
	}
	copy(m.buffer[addr-m.bufferPage:], data)
	return m.cut(OpCopy)
}

// ErasePage erases the page of the open buffer
func (m *Memory) ErasePage() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.check(OpErase); err != nil {
		return err
	}
	if !m.open {
		return ErrBufferClosed
	}
	page := m.pageData(m.bufferPage)
	for i := range page {
		page[i] = ErasedByte
	}
	m.stats.Erases++
	return m.cut(OpErase)
}

// ProgramPage programs the assembly buffer into its page
func (m *Memory) ProgramPage() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.check(OpProgram); err != nil {
		return err
	}
	if !m.open {
		return ErrBufferClosed
	}
	page := m.pageData(m.bufferPage)
	for i := range page {
		page[i] &= m.buffer[i]
	}
	m.stats.Programs++
	return m.cut(OpProgram)
}

// VerifyProgram compares the programmed page with the assembly buffer
func (m *Memory) VerifyProgram() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.check(OpVerify); err != nil {
		return err
	}
	if !m.open {
		return ErrBufferClosed
	}
	if !bytes.Equal(m.pageData(m.bufferPage), m.buffer) {
		return fmt.Errorf("%w: page 0x%08X", ErrVerify, m.bufferPage)
	}
	return nil
}

// AbortProgram closes the assembly buffer without programming
func (m *Memory) AbortProgram() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.open = false
	m.buffer = m.buffer[:0]
	m.stats.Aborts++
}

// InjectFault makes the next times calls of op fail with err
func (m *Memory) InjectFault(op Op, err error, times int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faults[op] = &fault{err: err, times: times}
}

// CutPowerAfter makes the device lose power once op next completes. Every
// call fails with ErrPowerLost until PowerCycle.
func (m *Memory) CutPowerAfter(op Op) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cutAfter = op
	m.cutArmed = true
}

// PowerCycle restores power. The assembly buffer does not survive.
func (m *Memory) PowerCycle() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.powerLost = false
	m.open = false
	m.buffer = m.buffer[:0]
}

// Stats returns operation counters
func (m *Memory) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// Bytes returns a copy of the whole array
func (m *Memory) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.data...)
}

// load replaces the array contents, used when restoring from an image
func (m *Memory) load(image []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy(m.data, image)
}

// page returns a copy of the page at pageAddr
func (m *Memory) page(pageAddr uint32) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.pageData(pageAddr)...)
}

// openPage returns the page address of the assembly buffer
func (m *Memory) openPage() (uint32, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bufferPage, m.open
}

func (m *Memory) pageData(pageAddr uint32) []byte {
	off := int(pageAddr - m.base)
	return m.data[off : off+m.pageSize]
}

func (m *Memory) offset(addr uint32, n int) (int, error) {
	if addr < m.base || int(addr-m.base)+n > len(m.data) {
		return 0, fmt.Errorf("%w: 0x%08X+%d", ErrOutOfRange, addr, n)
	}
	return int(addr - m.base), nil
}

func (m *Memory) check(op Op) error {
	if m.powerLost {
		return fmt.Errorf("%s: %w", op, ErrPowerLost)
	}
	if f, ok := m.faults[op]; ok && f.times > 0 {
		f.times--
		return f.err
	}
	return nil
}

func (m *Memory) cut(op Op) error {
	if m.cutArmed && m.cutAfter == op {
		m.cutArmed = false
		m.powerLost = true
		m.open = false
	}
	return nil
}
