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

// Package sim models the energy path of the lock for running the controller
// without hardware: a storage capacitor charged by the NFC field and a motor
// that drains it while the H-bridge conducts.
package sim

import (
	"sync"
	"time"

	nfclock "github.com/ZaparooProject/go-nfclock"
)

// CapacitorConfig describes the simulated harvest circuit in comparator ticks
type CapacitorConfig struct {
	ChargePerMs float64 `yaml:"charge_per_ms"`
	DrainPerMs  float64 `yaml:"drain_per_ms"`
	MaxTicks    float64 `yaml:"max_ticks"`
	Initial     float64 `yaml:"initial"`
}

// DefaultCapacitorConfig charges past the actuation threshold in about
// 150 ms and loses roughly a pulse's worth of charge per discharge.
func DefaultCapacitorConfig() CapacitorConfig {
	return CapacitorConfig{
		ChargePerMs: 2,
		DrainPerMs:  8,
		MaxTicks:    450,
	}
}

// Capacitor is a linear model of the storage capacitor. It implements
// nfclock.VoltageMonitor for ChannelHarvest.
type Capacitor struct {
	last       time.Time
	clock      nfclock.Clock
	config     CapacitorConfig
	level      float64
	mu         sync.Mutex
	conducting bool
}

// NewCapacitor creates a capacitor whose charge follows clock
func NewCapacitor(clock nfclock.Clock, config CapacitorConfig) *Capacitor {
	if clock == nil {
		clock = nfclock.SystemClock()
	}
	return &Capacitor{
		last:   clock.Now(),
		clock:  clock,
		config: config,
		level:  config.Initial,
	}
}

// Compare reports whether the capacitor is at or above thresholdTicks
func (c *Capacitor) Compare(channel uint8, thresholdTicks uint16) bool {
	if channel != nfclock.ChannelHarvest {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.update()
	return c.level >= float64(thresholdTicks)
}

// Level returns the current charge in ticks
func (c *Capacitor) Level() uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.update()
	return uint16(c.level)
}

func (c *Capacitor) setConducting(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.update()
	c.conducting = on
}

func (c *Capacitor) update() {
	now := c.clock.Now()
	ms := float64(now.Sub(c.last)) / float64(time.Millisecond)
	c.last = now
	if ms <= 0 {
		return
	}

	rate := c.config.ChargePerMs
	if c.conducting {
		rate -= c.config.DrainPerMs
	}
	c.level += rate * ms
	switch {
	case c.level < 0:
		c.level = 0
	case c.level > c.config.MaxTicks:
		c.level = c.config.MaxTicks
	}
}

// Motor is a simulated bolt motor behind an H-bridge. It implements
// nfclock.BridgeDriver, drains the capacitor while the motor circuit is
// closed and accumulates drive time per direction.
type Motor struct {
	since   time.Time
	supply  *Capacitor
	clock   nfclock.Clock
	drive   map[nfclock.LockState]time.Duration
	outputs nfclock.BridgeOutputs
	shorts  int
	mu      sync.Mutex
}

// NewMotor creates a motor powered from supply
func NewMotor(clock nfclock.Clock, supply *Capacitor) *Motor {
	if clock == nil {
		clock = nfclock.SystemClock()
	}
	return &Motor{
		since:  clock.Now(),
		supply: supply,
		clock:  clock,
		drive:  make(map[nfclock.LockState]time.Duration),
	}
}

func direction(out nfclock.BridgeOutputs) (nfclock.LockState, bool) {
	switch {
	case out.HS2 && out.LS1:
		return nfclock.Locked, true
	case out.HS1 && out.LS2:
		return nfclock.Unlocked, true
	default:
		return nfclock.Locked, false
	}
}

// SetSwitches applies out. Unsafe configurations are counted, not rejected,
// as real hardware would not reject them either.
func (m *Motor) SetSwitches(out nfclock.BridgeOutputs) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	if dir, on := direction(m.outputs); on {
		m.drive[dir] += now.Sub(m.since)
	}
	m.since = now

	if !out.Safe() {
		m.shorts++
	}
	m.outputs = out
	_, on := direction(out)
	if m.supply != nil {
		m.supply.setConducting(on)
	}
	return nil
}

// DriveTime returns how long the motor has been driven toward state
func (m *Motor) DriveTime(state nfclock.LockState) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.drive[state]
}

// Shorts returns the number of unsafe configurations applied
func (m *Motor) Shorts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shorts
}

// Outputs returns the current switch configuration
func (m *Motor) Outputs() nfclock.BridgeOutputs {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.outputs
}
