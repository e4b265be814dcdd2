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

import "fmt"

// Default flash layout of the lock controller
const (
	DefaultPageSize      = 128
	DefaultFlashBase     = 0x00010000
	DefaultFlashPages    = 64
	DefaultImageAddr     = DefaultFlashBase
	DefaultVersionAddr   = DefaultFlashBase + (DefaultFlashPages-2)*DefaultPageSize
	DefaultLockStateAddr = DefaultFlashBase + (DefaultFlashPages-1)*DefaultPageSize
)

// Layout names the reserved regions of flash. The image region spans
// ImageSize bytes from ImageAddr; the version and lock state regions are
// one page each.
type Layout struct {
	ImageAddr     uint32
	ImageSize     uint32
	VersionAddr   uint32
	LockStateAddr uint32
	PageSize      uint32
}

// DefaultLayout returns the lock controller's flash layout
func DefaultLayout() Layout {
	return Layout{
		ImageAddr:     DefaultImageAddr,
		ImageSize:     (DefaultFlashPages - 2) * DefaultPageSize,
		VersionAddr:   DefaultVersionAddr,
		LockStateAddr: DefaultLockStateAddr,
		PageSize:      DefaultPageSize,
	}
}

func (l Layout) pageOf(addr uint32) uint32 {
	return addr - addr%l.PageSize
}

// Validate checks that the lock state record has a page to itself. Erase is
// page granular, so sharing the page would destroy co-resident data.
func (l Layout) Validate() error {
	if l.PageSize == 0 {
		return fmt.Errorf("%w: zero page size", ErrInvalidParameter)
	}
	if l.LockStateAddr%l.PageSize+RecordSize > l.PageSize {
		return fmt.Errorf("%w: record at 0x%08X crosses a page boundary", ErrInvalidParameter, l.LockStateAddr)
	}

	lockPage := l.pageOf(l.LockStateAddr)
	if l.pageOf(l.VersionAddr) == lockPage {
		return fmt.Errorf("%w: version page 0x%08X", ErrLayoutOverlap, lockPage)
	}
	if l.ImageSize > 0 {
		imageStart := l.pageOf(l.ImageAddr)
		imageEnd := l.ImageAddr + l.ImageSize
		if lockPage+l.PageSize > imageStart && lockPage < imageEnd {
			return fmt.Errorf("%w: image 0x%08X-0x%08X", ErrLayoutOverlap, l.ImageAddr, imageEnd)
		}
	}
	return nil
}
