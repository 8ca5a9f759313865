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

// Package geometry turns a matched (or probed) sector geometry into the
// concrete track layout the flux engine needs: gap sizes, encoded track
// length in bitcells, data rate class, and ticks-per-cell.
package geometry

import (
	"fmt"

	"github.com/oqtaflux/trackengine/pkg/codec"
)

// MFM gap defaults, per track (post-index, post-IDAM, post-index-mark,
// sync run length).
const (
	Gap1    = 50
	Gap2    = 22
	Gap4a   = 80
	GapSync = 12
)

// FM gap defaults.
const (
	FMGap2    = 11
	FMGap4a   = 16
	FMGapSync = 6
)

// Gap3 is the MFM default gap-3 (post-CRC, pre-next-sync) size indexed by
// the FDC sector-size code (0..7); an entry of 255 marks a code that has
// no assigned default and must come from an explicit override.
var Gap3 = [8]int{32, 54, 84, 116, 255, 255, 255, 255}

// FMGap3 is the FM equivalent of Gap3.
var FMGap3 = [8]int{27, 42, 58, 138, 255, 255, 255, 255}

// Params is the resolved geometry a track builder consumes: everything a
// matched typetable.Entry or header.Geometry can supply, with defaults
// already applied by the caller for zero fields the source didn't set.
type Params struct {
	NrCyls       int
	NrSides      int
	SecNo        int
	NrSectors    int
	Interleave   int
	Skew         int
	SkewCylsOnly bool
	SecBase      [2]int
	Gap2         int // 0 requests the class default
	Gap3         int // 0 requests the class default
	Gap4a        int // 0 requests the class default
	PostCRCSyncs int
	HasIAM       bool
	RPM          int // 0 requests 300
	FM           bool
}

// Track is the fully built geometry: everything the sector mapper and
// track state machine need to place and decode sectors on the wire.
type Track struct {
	Params
	DataRate     int // bitcell rate, kbit/s: 250, 500 (MFM DD), 1000, or 2000
	TrackLenBC   int // encoded track length, bitcells, multiple of 32
	TicksPerCell int
	StkPerRev    int
	WriteBCTicks int
	IdxSz        int // post-index gap size in encoded bytes
	IdamSz       int
	DamSzPre     int
	DamSzPost    int
	Gap4         int // computed pre-index gap size in encoded bytes
	Sync         codec.SyncMode
}

// encSecSz returns the fully encoded size in bytes of one sector: IDAM +
// pre-DAM sync/mark + data + post-DAM CRC/gap.
func encSecSz(p Params, idamSz, damPre, damPost int) int {
	return idamSz + damPre + (128<<uint(p.SecNo)) + damPost
}

// Build resolves a Params into a Track, running the MFM or FM open
// algorithm depending on p.FM. It mirrors mfm_open/fm_open exactly,
// including the "long track" extension when the natural encoded length
// exceeds the standard track length for the inferred data rate.
func Build(p Params) (Track, error) {
	if p.NrSides < 1 || p.NrSides > 2 {
		return Track{}, fmt.Errorf("geometry: nr_sides %d out of range", p.NrSides)
	}
	if p.NrCyls < 1 || p.NrCyls > 254 {
		return Track{}, fmt.Errorf("geometry: nr_cyls %d out of range", p.NrCyls)
	}
	if p.NrSectors < 1 || p.NrSectors > 255 {
		return Track{}, fmt.Errorf("geometry: nr_sectors %d out of range", p.NrSectors)
	}

	if p.RPM == 0 {
		p.RPM = 300
	}

	if p.FM {
		return buildFM(p)
	}
	return buildMFM(p)
}

func buildMFM(p Params) (Track, error) {
	t := Track{Params: p, Sync: codec.MFM}

	if t.Gap2 == 0 {
		t.Gap2 = Gap2
	}
	if t.Gap3 == 0 {
		t.Gap3 = Gap3[p.SecNo]
	}
	if t.Gap4a == 0 {
		t.Gap4a = Gap4a
	}

	t.StkPerRev = (stkMS(200) * 300) / p.RPM

	t.IdxSz = t.Gap4a
	if p.HasIAM {
		t.IdxSz += GapSync + 4 + Gap1
	}
	idamGapSync := t.Gap3
	if idamGapSync > GapSync {
		idamGapSync = GapSync
	}
	t.IdamSz = idamGapSync + 8 + 2 + t.Gap2
	t.DamSzPre = GapSync + 4
	t.DamSzPost = 2 + t.Gap3

	t.IdamSz += t.PostCRCSyncs
	t.DamSzPost += t.PostCRCSyncs

	tracklen := encSecSz(p, t.IdamSz, t.DamSzPre, t.DamSzPost) * p.NrSectors
	tracklen += t.IdxSz
	tracklen *= 16

	shift := 0
	for ; shift < 3; shift++ {
		maxlen := ((50000*300)/p.RPM)<<uint(shift) + 5000
		if tracklen < maxlen {
			break
		}
	}
	t.DataRate = 250 << uint(shift)
	t.TrackLenBC = (t.DataRate * 200 * 300) / p.RPM

	if t.TrackLenBC < tracklen {
		if tracklen-t.Gap4a*16 <= t.TrackLenBC {
			tracklen -= t.Gap4a * 16
			t.IdxSz -= t.Gap4a
			t.Gap4a = 0
		} else {
			t.TrackLenBC = tracklen + 100
		}
	}

	t.TrackLenBC = (t.TrackLenBC + 31) &^ 31

	t.TicksPerCell = (sysclkStk(t.StkPerRev) * 16) / t.TrackLenBC
	t.Gap4 = (t.TrackLenBC - tracklen) / 16

	t.WriteBCTicks = sysclkMS(1) / t.DataRate

	return t, nil
}

func buildFM(p Params) (Track, error) {
	t := Track{Params: p, Sync: codec.FM}

	if t.Gap2 == 0 {
		t.Gap2 = FMGap2
	}
	if t.Gap3 == 0 {
		t.Gap3 = FMGap3[p.SecNo]
	}
	if t.Gap4a == 0 {
		t.Gap4a = FMGap4a
	}

	t.StkPerRev = (stkMS(200) * 300) / p.RPM

	t.IdxSz = t.Gap4a
	t.IdamSz = FMGapSync + 5 + 2 + t.Gap2
	t.DamSzPre = FMGapSync + 1
	t.DamSzPost = 2 + t.Gap3

	tracklen := encSecSz(p, t.IdamSz, t.DamSzPre, t.DamSzPost) * p.NrSectors
	tracklen += t.IdxSz
	tracklen *= 16

	t.DataRate = 250
	t.TrackLenBC = (t.DataRate * 200 * 300) / p.RPM

	if t.TrackLenBC <= tracklen {
		return Track{}, fmt.Errorf("geometry: FM track does not fit standard track length (%d > %d bitcells)", tracklen, t.TrackLenBC)
	}

	t.TrackLenBC = (t.TrackLenBC + 31) &^ 31

	t.TicksPerCell = (sysclkStk(t.StkPerRev) * 16) / t.TrackLenBC
	t.Gap4 = (t.TrackLenBC - tracklen) / 16

	t.WriteBCTicks = sysclkMS(1) / t.DataRate

	return t, nil
}

// stkMS/sysclkMS/sysclkStk mirror the host controller's tick-conversion
// helpers, duplicated here in integer arithmetic rather than imported
// from iohandle to keep this package free of a dependency on the runtime
// clock abstraction; both sides agree on
// the same constants (72 ticks/us, 200 stk/ms).
func stkMS(ms int) int       { return ms * 200 }
func sysclkMS(ms int) int    { return ms * 72000 }
func sysclkStk(stk int) int  { return (stk * 72000) / 200 }
