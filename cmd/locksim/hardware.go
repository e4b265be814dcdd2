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
	"fmt"

	nfclock "github.com/ZaparooProject/go-nfclock"
	"github.com/ZaparooProject/go-nfclock/config"
	"github.com/ZaparooProject/go-nfclock/hardware/gpio"
	"github.com/ZaparooProject/go-nfclock/sim"
)

type hardware struct {
	bridge  nfclock.BridgeDriver
	monitor nfclock.VoltageMonitor
	// motor is set in sim mode only
	motor *sim.Motor
}

func newHardware(cfg *config.Config) (hardware, error) {
	switch cfg.Hardware.Mode {
	case config.ModeGPIO:
		if err := gpio.Init(); err != nil {
			return hardware{}, err
		}
		bridge, err := gpio.NewBridge(cfg.Hardware.Bridge)
		if err != nil {
			return hardware{}, fmt.Errorf("failed to open bridge: %w", err)
		}
		comparator, err := gpio.NewComparator(cfg.Hardware.ComparatorPin,
			nfclock.ChannelHarvest, cfg.Hardware.ReferenceTicks)
		if err != nil {
			return hardware{}, fmt.Errorf("failed to open comparator: %w", err)
		}
		_, _ = fmt.Printf("Driving H-bridge on %s/%s/%s/%s\n",
			cfg.Hardware.Bridge.HS1, cfg.Hardware.Bridge.LS1, cfg.Hardware.Bridge.HS2, cfg.Hardware.Bridge.LS2)
		return hardware{bridge: bridge, monitor: comparator}, nil

	default:
		clock := nfclock.SystemClock()
		supply := sim.NewCapacitor(clock, cfg.Hardware.Sim)
		motor := sim.NewMotor(clock, supply)
		_, _ = fmt.Println("Running against the simulated capacitor and motor")
		return hardware{bridge: motor, monitor: supply, motor: motor}, nil
	}
}
