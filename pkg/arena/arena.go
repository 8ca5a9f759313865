/*
   OqtaDrive - Sinclair Microdrive emulator
   Copyright (c) 2021, Alexander Vollschwitz

   This file is part of OqtaDrive.

   OqtaDrive is free software: you can redistribute it and/or modify
   it under the terms of the GNU General Public License as published by
   the Free Software Foundation, either version 3 of the License, or
   (at your option) any later version.

   OqtaDrive is distributed in the hope that it will be useful,
   but WITHOUT ANY WARRANTY; without even the implied warranty of
   MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
   GNU General Public License for more details.

   You should have received a copy of the GNU General Public License
   along with OqtaDrive. If not, see <http://www.gnu.org/licenses/>.
*/

// Package arena implements the bump-pointer byte allocator the track and
// HFE engines carve their fixed scratch buffers out of at mount time.
// There is one arena per mounted image; it is never individually freed,
// only reset on unmount.
package arena

import "fmt"

// Arena is a fixed-size byte pool handed out in 4-byte-aligned chunks,
// bump-pointer style: allocation is O(1) and there is no free.
type Arena struct {
	buf []byte
	pos int
}

// New creates an arena backed by a pool of the given total size.
func New(size int) *Arena {
	return &Arena{buf: make([]byte, size)}
}

// Alloc returns a zeroed slice of sz bytes, rounding sz up to a multiple
// of 4. It panics if the arena is exhausted — a mount-time sizing bug,
// not a recoverable runtime condition.
func (a *Arena) Alloc(sz int) []byte {
	aligned := (sz + 3) &^ 3
	if a.pos+aligned > len(a.buf) {
		panic(fmt.Sprintf("arena: alloc of %d bytes exceeds remaining %d", sz, len(a.buf)-a.pos))
	}
	p := a.buf[a.pos : a.pos+aligned : a.pos+aligned]
	for i := range p {
		p[i] = 0
	}
	a.pos += aligned
	return p[:sz]
}

// Total returns the arena's total capacity in bytes.
func (a *Arena) Total() int {
	return len(a.buf)
}

// Avail returns the number of bytes still available to Alloc.
func (a *Arena) Avail() int {
	return len(a.buf) - a.pos
}

// Reset returns the arena to empty, invalidating every slice previously
// handed out by Alloc. Called when a mounted image is unmounted.
func (a *Arena) Reset() {
	a.pos = 0
}
