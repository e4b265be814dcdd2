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
	"fmt"
	"time"
)

// DefaultPasscode is the credential compared against the mailbox passcode slot
const DefaultPasscode uint32 = 0x12345678

// ControllerConfig contains configuration options for the Controller
type ControllerConfig struct {
	Actuator *ActuatorConfig
	Store    *StoreConfig
	// HarvestTimeout bounds the wait in Harvesting; zero waits forever
	HarvestTimeout time.Duration
	// PollInterval is the pause between steps while the machine is active
	PollInterval time.Duration
	// IdleInterval is the pause between steps in Idle
	IdleInterval time.Duration
	Pulses       int
	Passcode     uint32
}

// DefaultControllerConfig returns default controller configuration
func DefaultControllerConfig() *ControllerConfig {
	return &ControllerConfig{
		Actuator:       DefaultActuatorConfig(),
		Store:          DefaultStoreConfig(),
		HarvestTimeout: 30 * time.Second,
		PollInterval:   time.Millisecond,
		IdleInterval:   100 * time.Millisecond,
		Pulses:         3,
		Passcode:       DefaultPasscode,
	}
}

// Validate checks the configuration for values the controller cannot run with
func (c *ControllerConfig) Validate() error {
	switch {
	case c.Actuator == nil || c.Store == nil:
		return fmt.Errorf("%w: missing actuator or store config", ErrInvalidParameter)
	case c.Passcode == 0:
		return fmt.Errorf("%w: passcode 0 is the empty mailbox value", ErrInvalidParameter)
	case c.Pulses < 1 || c.Pulses > MaxPulses:
		return fmt.Errorf("%w: pulses %d not in 1..%d", ErrInvalidParameter, c.Pulses, MaxPulses)
	case c.HarvestTimeout < 0 || c.Actuator.MaxWait < 0:
		return fmt.Errorf("%w: negative timeout", ErrInvalidParameter)
	case c.PollInterval < 0 || c.IdleInterval < 0:
		return fmt.Errorf("%w: negative interval", ErrInvalidParameter)
	}
	return nil
}

// Option is a functional option for configuring a Controller
type Option func(*Controller) error

// WithPasscode sets the passcode the reader must present
func WithPasscode(passcode uint32) Option {
	return func(c *Controller) error {
		c.config.Passcode = passcode
		return nil
	}
}

// WithPulses sets the number of discharge cycles per activation
func WithPulses(pulses int) Option {
	return func(c *Controller) error {
		c.config.Pulses = pulses
		return nil
	}
}

// WithHarvestTimeout bounds the harvest wait. Zero waits forever.
func WithHarvestTimeout(timeout time.Duration) Option {
	return func(c *Controller) error {
		c.config.HarvestTimeout = timeout
		return nil
	}
}

// WithMotorWaitTimeout bounds each capacitor wait during actuation. Zero
// waits forever.
func WithMotorWaitTimeout(timeout time.Duration) Option {
	return func(c *Controller) error {
		c.config.Actuator.MaxWait = timeout
		return nil
	}
}

// WithPollIntervals sets the pause between steps while active and in Idle
func WithPollIntervals(active, idle time.Duration) Option {
	return func(c *Controller) error {
		c.config.PollInterval = active
		c.config.IdleInterval = idle
		return nil
	}
}

// WithActuatorConfig replaces the motor timing configuration
func WithActuatorConfig(config *ActuatorConfig) Option {
	return func(c *Controller) error {
		if config == nil {
			return fmt.Errorf("%w: nil actuator config", ErrInvalidParameter)
		}
		c.config.Actuator = config
		return nil
	}
}

// WithStoreConfig replaces the persistence configuration
func WithStoreConfig(config *StoreConfig) Option {
	return func(c *Controller) error {
		if config == nil {
			return fmt.Errorf("%w: nil store config", ErrInvalidParameter)
		}
		c.config.Store = config
		return nil
	}
}

// WithClock replaces the clock used for delays and timeouts
func WithClock(clock Clock) Option {
	return func(c *Controller) error {
		if clock == nil {
			return fmt.Errorf("%w: nil clock", ErrInvalidParameter)
		}
		c.clock = clock
		return nil
	}
}

// WithOnTransition registers a callback run after every state change
func WithOnTransition(fn func(from, to PowerState)) Option {
	return func(c *Controller) error {
		c.onTransition = fn
		return nil
	}
}
