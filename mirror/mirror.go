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

// Package mirror publishes the lock mailbox as Modbus holding registers so a
// panel or PLC can watch the lock without an NFC reader.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	nfclock "github.com/ZaparooProject/go-nfclock"
	"github.com/goburrow/modbus"
)

// RegistersPerWord is the number of 16-bit registers used for each mailbox
// word, high half first
const RegistersPerWord = 2

// Defaults applied by Dial
const (
	DefaultTimeout  = time.Second
	DefaultInterval = 250 * time.Millisecond
)

// ErrNoEndpoint is returned by Dial when no endpoint is configured
var ErrNoEndpoint = errors.New("mirror: endpoint required")

// RegisterWriter is the subset of modbus.Client used by the mirror
type RegisterWriter interface {
	WriteMultipleRegisters(address, quantity uint16, value []byte) ([]byte, error)
}

// Config selects the Modbus target
type Config struct {
	Endpoint    string        `yaml:"endpoint"`
	Timeout     time.Duration `yaml:"timeout"`
	Interval    time.Duration `yaml:"interval"`
	UnitID      uint8         `yaml:"unit_id"`
	BaseAddress uint16        `yaml:"base_address"`
}

// Mirror copies mailbox snapshots into a block of holding registers
type Mirror struct {
	client  RegisterWriter
	closer  func() error
	mailbox *nfclock.Mailbox
	cfg     Config
	last    [nfclock.MailboxWords]uint32
	mu      sync.Mutex
	sent    bool
}

// Dial connects to cfg.Endpoint over Modbus TCP
func Dial(cfg Config, mailbox *nfclock.Mailbox) (*Mirror, error) {
	if cfg.Endpoint == "" {
		return nil, ErrNoEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	h := modbus.NewTCPClientHandler(cfg.Endpoint)
	h.Timeout = cfg.Timeout
	h.SlaveId = cfg.UnitID

	if err := h.Connect(); err != nil {
		return nil, fmt.Errorf("mirror: connect %s: %w", cfg.Endpoint, err)
	}

	m := New(modbus.NewClient(h), mailbox, cfg)
	m.closer = h.Close
	return m, nil
}

// New mirrors mailbox through client
func New(client RegisterWriter, mailbox *nfclock.Mailbox, cfg Config) *Mirror {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	return &Mirror{client: client, mailbox: mailbox, cfg: cfg}
}

// Close releases the connection opened by Dial
func (m *Mirror) Close() error {
	if m.closer == nil {
		return nil
	}
	return m.closer()
}

// Publish writes the current mailbox if it changed since the last
// successful write. It reports whether registers were written.
func (m *Mirror) Publish() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.mailbox.Snapshot()
	if m.sent && snap == m.last {
		return false, nil
	}

	qty := uint16(len(snap) * RegistersPerWord)
	if _, err := m.client.WriteMultipleRegisters(m.cfg.BaseAddress, qty, packWords(snap[:])); err != nil {
		return false, fmt.Errorf("mirror: write %d registers at %d: %w", qty, m.cfg.BaseAddress, err)
	}
	m.last = snap
	m.sent = true
	return true, nil
}

// Run publishes every interval until ctx is done. Write failures are logged
// and retried on the next tick.
func (m *Mirror) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		if _, err := m.Publish(); err != nil {
			nfclock.Debugf("%v", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func packWords(words []uint32) []byte {
	out := make([]byte, len(words)*4)
	for i, w := range words {
		out[4*i] = byte(w >> 24)
		out[4*i+1] = byte(w >> 16)
		out[4*i+2] = byte(w >> 8)
		out[4*i+3] = byte(w)
	}
	return out
}
