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
	"testing"

	"github.com/stretchr/testify/assert"
	"go.bug.st/serial/enumerator"
)

func TestIsBlocked(t *testing.T) {
	t.Parallel()

	blocklist := []string{"1a86:7523", " 10C4:EA60 "}
	tests := []struct {
		name string
		vid  string
		pid  string
		want bool
	}{
		{name: "exact", vid: "1a86", pid: "7523", want: true},
		{name: "case insensitive", vid: "10c4", pid: "ea60", want: true},
		{name: "not listed", vid: "0403", pid: "6001", want: false},
		{name: "empty", vid: "", pid: "", want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsBlocked(tt.vid, tt.pid, blocklist))
		})
	}
}

func TestFilterPorts(t *testing.T) {
	t.Parallel()

	details := []*enumerator.PortDetails{
		{Name: "/dev/ttyS0"},
		{Name: "/dev/ttyUSB0", IsUSB: true, VID: "1A86", PID: "7523"},
		{Name: "/dev/ttyUSB1", IsUSB: true, VID: "0403", PID: "6001"},
		nil,
	}

	assert.Equal(t, []string{"/dev/ttyUSB1"}, filterPorts(details, []string{"1a86:7523"}))
	assert.Equal(t, []string{"/dev/ttyUSB0", "/dev/ttyUSB1"}, filterPorts(details, nil))
}
