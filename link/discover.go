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

package link

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	nfclock "github.com/ZaparooProject/go-nfclock"
	"go.bug.st/serial/enumerator"
)

// ProbeTimeout bounds the marker read on each candidate port
const ProbeTimeout = 500 * time.Millisecond

// ErrNoLockFound is returned by Discover when no port answers with the MCU
// marker
var ErrNoLockFound = errors.New("no lock found on any serial port")

// IsBlocked reports whether a USB VID:PID is in blocklist. Matching is case
// insensitive.
func IsBlocked(vid, pid string, blocklist []string) bool {
	vidpid := strings.ToUpper(strings.TrimSpace(vid + ":" + pid))
	for _, blocked := range blocklist {
		if vidpid == strings.ToUpper(strings.TrimSpace(blocked)) {
			return true
		}
	}
	return false
}

// Candidates lists USB serial ports that are not blocked
func Candidates(blocklist []string) ([]string, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("enumerate serial ports: %w", err)
	}
	return filterPorts(details, blocklist), nil
}

func filterPorts(details []*enumerator.PortDetails, blocklist []string) []string {
	var names []string
	for _, d := range details {
		if d == nil || !d.IsUSB {
			continue
		}
		if IsBlocked(d.VID, d.PID, blocklist) {
			nfclock.Debugf("link: skipping blocked port %s (%s:%s)", d.Name, d.VID, d.PID)
			continue
		}
		names = append(names, d.Name)
	}
	return names
}

// Discover returns the first candidate port whose mailbox carries the MCU
// marker
func Discover(ctx context.Context, baud int, blocklist []string) (string, error) {
	names, err := Candidates(blocklist)
	if err != nil {
		return "", err
	}

	var errs []error
	for _, name := range names {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if err := probe(ctx, name, baud); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		return name, nil
	}
	return "", errors.Join(append([]error{ErrNoLockFound}, errs...)...)
}

func probe(ctx context.Context, name string, baud int) error {
	port, err := OpenPort(name, baud)
	if err != nil {
		return err
	}
	defer func() { _ = port.Close() }()

	ctx, cancel := context.WithTimeout(ctx, ProbeTimeout)
	defer cancel()

	marker, err := NewClient(port).ReadWord(ctx, nfclock.SlotMCUValid)
	if err != nil {
		return err
	}
	if marker != nfclock.MCUValid {
		return fmt.Errorf("unexpected marker 0x%08X", marker)
	}
	return nil
}
