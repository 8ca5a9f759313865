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

// Package secmap builds the rotational sector map for one track and
// translates (cylinder, side) into the track's byte offset within the
// image file.
package secmap

import "github.com/oqtaflux/trackengine/pkg/typetable"

// Build lays out nrSectors logical sector numbers into rotational-order
// slots, applying skew (from cylinder or from absolute track number,
// depending on skewCylsOnly) and interleave, then adding base (and, for
// inter-track numbering, an extra +nrSectors on side 1). It mirrors
// img_seek_track's sector-map construction: start at a skewed slot,
// linear-probe forward for the next empty slot, place, then jump ahead by
// interleave for the next placement.
func Build(nrSectors, interleave, skew int, skewCylsOnly bool, cyl, absTrack, base int) []int {
	if nrSectors <= 0 {
		return nil
	}
	m := make([]int, nrSectors)
	for i := range m {
		m[i] = -1
	}

	key := absTrack
	if skewCylsOnly {
		key = cyl
	}
	pos := (key * skew) % nrSectors
	if pos < 0 {
		pos += nrSectors
	}

	for i := 0; i < nrSectors; i++ {
		for m[pos] != -1 {
			pos = (pos + 1) % nrSectors
		}
		m[pos] = i + base
		pos = (pos + interleave) % nrSectors
	}
	return m
}

// InterTrackBase returns the sector number base for side 1 when
// inter-track numbering is in effect: side 1's sector IDs continue on
// from side 0's, rather than restarting.
func InterTrackBase(base, nrSectors int, interTrackNumbering bool) int {
	if interTrackNumbering {
		return base + nrSectors
	}
	return base
}

// TrackOffset returns the byte offset of the (cyl, side) track within the
// image file, before adding the format's fixed base-offset header skip,
// per the layout selected for this image.
func TrackOffset(layout typetable.Layout, cyl, side, nrCyls, nrSides, trackLen int) int64 {
	trk := cyl*nrSides + side
	switch layout {
	case typetable.LayoutSequentialReverseSide1:
		if side != 0 {
			return int64(2*nrCyls-cyl-1) * int64(trackLen)
		}
		return int64(cyl) * int64(trackLen)
	case typetable.LayoutInterleavedSwapSides:
		trk ^= nrSides - 1
		return int64(trk) * int64(trackLen)
	default:
		return int64(trk) * int64(trackLen)
	}
}
