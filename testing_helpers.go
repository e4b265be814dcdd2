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
	"sync"
	"time"
)

// MockBridgeDriver records every configuration it is asked to apply.
// It is used in tests to audit sequencer traces.
type MockBridgeDriver struct {
	// FailAt makes the call with this 1-based index fail with Err
	Err     error
	applied []BridgeOutputs
	FailAt  int
	mu      sync.Mutex
}

// NewMockBridgeDriver creates a recording bridge driver
func NewMockBridgeDriver() *MockBridgeDriver {
	return &MockBridgeDriver{}
}

// SetSwitches records out, or fails if configured to
func (m *MockBridgeDriver) SetSwitches(out BridgeOutputs) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailAt > 0 && len(m.applied)+1 == m.FailAt {
		m.FailAt = 0
		return m.Err
	}
	m.applied = append(m.applied, out)
	return nil
}

// Applied returns every configuration applied so far
func (m *MockBridgeDriver) Applied() []BridgeOutputs {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]BridgeOutputs, len(m.applied))
	copy(out, m.applied)
	return out
}

// Reset forgets the recorded configurations
func (m *MockBridgeDriver) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.applied = nil
}

// MockVoltageMonitor answers comparisons from a script, then from a fallback
type MockVoltageMonitor struct {
	// CompareFunc, when set, answers every comparison
	CompareFunc func(channel uint8, thresholdTicks uint16) bool
	script      []bool
	calls       int
	fallback    bool
	mu          sync.Mutex
}

// NewMockVoltageMonitor creates a monitor that always answers fallback
func NewMockVoltageMonitor(fallback bool) *MockVoltageMonitor {
	return &MockVoltageMonitor{fallback: fallback}
}

// Script queues answers returned before the fallback
func (m *MockVoltageMonitor) Script(answers ...bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, answers...)
}

// SetFallback changes the answer used once the script is exhausted
func (m *MockVoltageMonitor) SetFallback(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallback = v
}

// Compare pops the next scripted answer
func (m *MockVoltageMonitor) Compare(channel uint8, thresholdTicks uint16) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.CompareFunc != nil {
		return m.CompareFunc(channel, thresholdTicks)
	}
	if len(m.script) > 0 {
		v := m.script[0]
		m.script = m.script[1:]
		return v
	}
	return m.fallback
}

// Calls returns the number of comparisons made
func (m *MockVoltageMonitor) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// FakeClock is a Clock whose time only moves when Sleep or Advance is called
type FakeClock struct {
	now   time.Time
	slept []time.Duration
	mu    sync.Mutex
}

// NewFakeClock creates a fake clock at a fixed instant
func NewFakeClock() *FakeClock {
	return &FakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

// Now returns the fake time
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Sleep advances the fake time by d without blocking
func (c *FakeClock) Sleep(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	c.slept = append(c.slept, d)
}

// Advance moves the fake time forward without recording a sleep
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Sleeps returns every duration passed to Sleep
func (c *FakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.slept...)
}
