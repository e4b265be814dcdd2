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

package flash

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrLocked is returned when another process owns the image file
var ErrLocked = errors.New("flash image is locked by another process")

// File is a flash array persisted in an image file. Erase and program write
// the affected page back and sync it, so the file always reflects what the
// array would hold after a power cut at that point.
type File struct {
	*Memory
	f    *os.File
	path string
}

// OpenFile opens or creates the image at path holding pages pages. A new or
// short image is padded with erased bytes. The file is locked for exclusive
// use until Close.
func OpenFile(path string, base uint32, pageSize, pages int) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open flash image %s: %w", path, err)
	}
	if err := lockFile(f); err != nil {
		_ = f.Close()
		return nil, err
	}

	mem := NewMemory(base, pageSize, pages)
	image := mem.Bytes()
	n, err := f.ReadAt(image, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		_ = unlockFile(f)
		_ = f.Close()
		return nil, fmt.Errorf("failed to read flash image %s: %w", path, err)
	}
	mem.load(image)

	file := &File{Memory: mem, f: f, path: path}
	if n < len(image) {
		if _, err := f.WriteAt(image, 0); err != nil {
			_ = file.Close()
			return nil, fmt.Errorf("failed to initialize flash image %s: %w", path, err)
		}
		if err := f.Sync(); err != nil {
			_ = file.Close()
			return nil, fmt.Errorf("failed to sync flash image %s: %w", path, err)
		}
	}
	return file, nil
}

// Path returns the image file path
func (f *File) Path() string {
	return f.path
}

// ErasePage erases the open page and writes it to the image
func (f *File) ErasePage() error {
	pageAddr, _ := f.openPage()
	if err := f.Memory.ErasePage(); err != nil {
		return err
	}
	return f.flushPage(pageAddr)
}

// ProgramPage programs the open page and writes it to the image
func (f *File) ProgramPage() error {
	pageAddr, _ := f.openPage()
	if err := f.Memory.ProgramPage(); err != nil {
		return err
	}
	return f.flushPage(pageAddr)
}

func (f *File) flushPage(pageAddr uint32) error {
	off := int64(pageAddr - f.base)
	if _, err := f.f.WriteAt(f.page(pageAddr), off); err != nil {
		return fmt.Errorf("failed to write page 0x%08X: %w", pageAddr, err)
	}
	if err := f.f.Sync(); err != nil {
		return fmt.Errorf("failed to sync page 0x%08X: %w", pageAddr, err)
	}
	return nil
}

// Close releases the lock and closes the image file
func (f *File) Close() error {
	unlockErr := unlockFile(f.f)
	if err := f.f.Close(); err != nil {
		return fmt.Errorf("failed to close flash image: %w", err)
	}
	return unlockErr
}
