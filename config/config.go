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

// Package config loads the YAML configuration of the lock daemon
package config

import (
	"fmt"
	"os"
	"time"

	nfclock "github.com/ZaparooProject/go-nfclock"
	"github.com/ZaparooProject/go-nfclock/hardware/gpio"
	"github.com/ZaparooProject/go-nfclock/mirror"
	"github.com/ZaparooProject/go-nfclock/sim"
	"gopkg.in/yaml.v3"
)

// Hardware modes
const (
	ModeSim  = "sim"
	ModeGPIO = "gpio"
)

type Config struct {
	Lock     LockConfig     `yaml:"lock"`
	Flash    FlashConfig    `yaml:"flash"`
	Hardware HardwareConfig `yaml:"hardware"`
	Link     LinkConfig     `yaml:"link"`
	Mirror   mirror.Config  `yaml:"mirror"`
	Tag      TagConfig      `yaml:"tag"`
}

// ---- LOCK ----

type LockConfig struct {
	Passcode       uint32        `yaml:"passcode"`
	Pulses         int           `yaml:"pulses"`
	HarvestTimeout time.Duration `yaml:"harvest_timeout"`
	MotorWait      time.Duration `yaml:"motor_wait"`
	Discharge      time.Duration `yaml:"discharge"`
	Recharge       time.Duration `yaml:"recharge"`
	ThresholdTicks uint16        `yaml:"threshold_ticks"`
	MaxRetries     int           `yaml:"max_retries"`
}

// ---- FLASH ----

type FlashConfig struct {
	Image    string `yaml:"image"`
	Base     uint32 `yaml:"base"`
	PageSize int    `yaml:"page_size"`
	Pages    int    `yaml:"pages"`
}

// ---- HARDWARE ----

type HardwareConfig struct {
	Mode           string              `yaml:"mode"`
	Bridge         gpio.BridgePins     `yaml:"bridge"`
	ComparatorPin  string              `yaml:"comparator_pin"`
	ReferenceTicks uint16              `yaml:"reference_ticks"`
	Sim            sim.CapacitorConfig `yaml:"sim"`
}

// ---- LINK ----

type LinkConfig struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

// ---- TAG ----

type TagConfig struct {
	Output string `yaml:"output"`
	UID    string `yaml:"uid"`
}

// Default returns the configuration used for keys absent from the file
func Default() *Config {
	lock := nfclock.DefaultControllerConfig()
	store := lock.Store
	return &Config{
		Lock: LockConfig{
			Passcode:       lock.Passcode,
			Pulses:         lock.Pulses,
			HarvestTimeout: lock.HarvestTimeout,
			MotorWait:      lock.Actuator.MaxWait,
			Discharge:      lock.Actuator.Discharge,
			Recharge:       lock.Actuator.Recharge,
			ThresholdTicks: lock.Actuator.ThresholdTicks,
			MaxRetries:     store.MaxRetries,
		},
		Flash: FlashConfig{
			Image:    "nfclock.img",
			Base:     nfclock.DefaultFlashBase,
			PageSize: nfclock.DefaultPageSize,
			Pages:    nfclock.DefaultFlashPages,
		},
		Hardware: HardwareConfig{
			Mode:           ModeSim,
			ReferenceTicks: nfclock.DefaultThresholdTicks,
			Sim:            sim.DefaultCapacitorConfig(),
		},
	}
}

// Load reads path over the defaults. The result is not validated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ControllerOptions translates the lock section into controller options
func (c *Config) ControllerOptions() []nfclock.Option {
	actuator := nfclock.DefaultActuatorConfig()
	actuator.MaxWait = c.Lock.MotorWait
	actuator.Discharge = c.Lock.Discharge
	actuator.Recharge = c.Lock.Recharge
	actuator.ThresholdTicks = c.Lock.ThresholdTicks

	store := nfclock.DefaultStoreConfig()
	store.Layout = c.Layout()
	store.MaxRetries = c.Lock.MaxRetries

	return []nfclock.Option{
		nfclock.WithPasscode(c.Lock.Passcode),
		nfclock.WithPulses(c.Lock.Pulses),
		nfclock.WithHarvestTimeout(c.Lock.HarvestTimeout),
		nfclock.WithActuatorConfig(actuator),
		nfclock.WithStoreConfig(store),
	}
}

// Layout returns the flash layout for the configured geometry
func (c *Config) Layout() nfclock.Layout {
	page := uint32(c.Flash.PageSize)
	pages := uint32(c.Flash.Pages)
	return nfclock.Layout{
		ImageAddr:     c.Flash.Base,
		ImageSize:     (pages - 2) * page,
		VersionAddr:   c.Flash.Base + (pages-2)*page,
		LockStateAddr: c.Flash.Base + (pages-1)*page,
		PageSize:      page,
	}
}
