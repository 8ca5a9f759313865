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

// Package typetable holds the built-in per-host geometry hint tables and
// the matcher that walks a table looking for a (cylinder count, file size)
// match.
package typetable

import "github.com/oqtaflux/trackengine/pkg/host"

// Layout selects how a matched track's byte offset within the image file
// is computed from (cylinder, side).
type Layout int

const (
	// LayoutInterleaved lays tracks out cylinder-major, side-minor:
	// (cyl*nrSides + side) * trackLen.
	LayoutInterleaved Layout = iota
	// LayoutInterleavedSwapSides is LayoutInterleaved but with side 0 and
	// side 1 swapped within each cylinder (used by Commodore 1581 D81s).
	LayoutInterleavedSwapSides
	// LayoutSequentialReverseSide1 stores side 0 forward, cyl 0..N-1, then
	// side 1 in reverse, cyl N-1..0.
	LayoutSequentialReverseSide1
)

// Entry is one geometry hint row, corresponding to one candidate (nr_secs,
// sides, has_iam, gap3, interleave, skew, base, inter_track_numbering,
// cyls_class, rpm_class) tuple in the original per-host tables. Cyls and
// RPM are the raw candidate values (80 or 40 cylinders; RPM in whole
// revolutions per minute), not the encoded classes used on the wire.
type Entry struct {
	NrSecs               int
	Sides                int // number of sides, 1 or 2
	HasIAM               bool
	Gap3                 int
	Interleave           int
	Skew                 int
	Base                 int
	InterTrackNumbering  bool // side 1 sector numbers continue from side 0
	Cyls                 int  // 40 or 80, nominal cylinder count for this row
	RPM                  int  // 300 or 360
}

// Match is one resolved geometry: an Entry plus the cylinder count that
// made the file-size arithmetic work out.
type Match struct {
	Entry
	NrCyls int
}

// SecSize returns 128 << no for the given sector-size code, matching the
// FDC SIZE byte convention (0 = 128 bytes, 1 = 256, 2 = 512, 3 = 1024...).
func SecSize(no int) int {
	return 128 << uint(no)
}

// Lookup walks table looking for a row whose (nr_secs, sec_sz, sides)
// implies a cylinder count in [minCyls,maxCyls] (77..85 for an 80-track
// nominal, 38..42 for 40-track) that makes nrCyls*cylSize equal fileSize
// exactly, for the given sector-size code secNo. It returns the first
// match found, walking rows in table order the way the original probes
// its host-specific list before falling back to the generic one.
func Lookup(table []Entry, secNo int, fileSize int64) (Match, bool) {
	cylSz := 0
	for _, e := range table {
		minCyls, maxCyls := 77, 85
		if e.Cyls == 40 {
			minCyls, maxCyls = 38, 42
		}
		cylSz = e.NrSecs * SecSize(secNo) * e.Sides
		if cylSz == 0 {
			continue
		}
		for n := minCyls; n <= maxCyls; n++ {
			if int64(n)*int64(cylSz) == fileSize {
				return Match{Entry: e, NrCyls: n}, true
			}
		}
	}
	return Match{}, false
}

// LookupAnySize walks table trying every sector-size code 0..6, the way
// pc_dos_open does when disambiguating BPB-less images by brute force
// rather than a signalled sector size. It is exported for probers that
// need this two-dimensional search; most probers know the sector size
// from the row itself and call Lookup directly.
func LookupAnySize(table []Entry, fileSize int64) (Match, int, bool) {
	for no := 0; no <= 6; no++ {
		if m, ok := Lookup(table, no, fileSize); ok {
			return m, no, true
		}
	}
	return Match{}, 0, false
}

// Default is the generic PC 5.25"/3.5" type table (SD/DD/HD/ED, 8..36
// sectors), used by any host profile not otherwise listed and as the
// final fallback for a host-specific table that failed to match.
var Default = []Entry{
	{NrSecs: 8, Sides: 1, HasIAM: true, Gap3: 84, Interleave: 1, Base: 1, Cyls: 40, RPM: 300},
	{NrSecs: 9, Sides: 1, HasIAM: true, Gap3: 84, Interleave: 1, Base: 1, Cyls: 40, RPM: 300},
	{NrSecs: 8, Sides: 2, HasIAM: true, Gap3: 84, Interleave: 1, Base: 1, Cyls: 40, RPM: 300},
	{NrSecs: 9, Sides: 2, HasIAM: true, Gap3: 84, Interleave: 1, Base: 1, Cyls: 40, RPM: 300},
	{NrSecs: 8, Sides: 1, HasIAM: true, Gap3: 84, Interleave: 1, Base: 1, Cyls: 80, RPM: 300},
	{NrSecs: 9, Sides: 1, HasIAM: true, Gap3: 84, Interleave: 1, Base: 1, Cyls: 80, RPM: 300},
	{NrSecs: 8, Sides: 2, HasIAM: true, Gap3: 84, Interleave: 1, Base: 1, Cyls: 80, RPM: 300},
	{NrSecs: 9, Sides: 2, HasIAM: true, Gap3: 84, Interleave: 1, Base: 1, Cyls: 80, RPM: 300},
	{NrSecs: 15, Sides: 2, HasIAM: true, Gap3: 84, Interleave: 1, Base: 1, Cyls: 80, RPM: 360},
	{NrSecs: 18, Sides: 2, HasIAM: true, Gap3: 84, Interleave: 1, Base: 1, Cyls: 80, RPM: 300},
	{NrSecs: 21, Sides: 2, HasIAM: true, Gap3: 84, Interleave: 1, Base: 1, Cyls: 80, RPM: 300},
	{NrSecs: 36, Sides: 2, HasIAM: true, Gap3: 84, Interleave: 1, Base: 1, Cyls: 80, RPM: 300},
}

// D81 is the Commodore 1581 geometry, opened with LayoutInterleavedSwapSides.
var D81 = []Entry{
	{NrSecs: 10, Sides: 2, HasIAM: true, Gap3: 35, Interleave: 1, Base: 0, Cyls: 80, RPM: 300},
}

// Akai lists the Akai S-series sampler geometries.
var Akai = []Entry{
	{NrSecs: 10, Sides: 2, HasIAM: true, Gap3: 116, Interleave: 5, Base: 1, Cyls: 80, RPM: 300},
}

// Casio lists the Casio FZ-series geometries.
var Casio = []Entry{
	{NrSecs: 8, Sides: 2, HasIAM: true, Gap3: 84, Interleave: 1, Base: 1, Cyls: 80, RPM: 300},
}

// Dec lists DEC Rainbow-100 geometries.
var Dec = []Entry{
	{NrSecs: 10, Sides: 1, HasIAM: true, Gap3: 84, Interleave: 2, Base: 1, Cyls: 80, RPM: 300},
}

// Ensoniq lists Ensoniq sampler geometries.
var Ensoniq = []Entry{
	{NrSecs: 10, Sides: 2, HasIAM: true, Gap3: 24, Interleave: 1, Base: 1, Cyls: 80, RPM: 300},
}

// Fluke lists Fluke 9100-series test-equipment geometries.
var Fluke = []Entry{
	{NrSecs: 16, Sides: 1, HasIAM: true, Gap3: 42, Interleave: 1, Base: 1, Cyls: 80, RPM: 300},
}

// Kaypro lists Kaypro CP/M-machine geometries.
var Kaypro = []Entry{
	{NrSecs: 10, Sides: 1, HasIAM: true, Gap3: 42, Interleave: 1, Base: 0, Cyls: 40, RPM: 300},
}

// Memotech lists Memotech geometries.
var Memotech = []Entry{
	{NrSecs: 16, Sides: 2, HasIAM: true, Gap3: 57, Interleave: 3, Base: 0, Cyls: 80, RPM: 300},
}

// Mbd lists the MBD (Amstrad) geometries.
var Mbd = []Entry{
	{NrSecs: 9, Sides: 2, HasIAM: true, Gap3: 84, Interleave: 1, Base: 1, Cyls: 40, RPM: 300},
}

// Msx lists the small MSX-specific fallback set, tried only after the BPB
// probe in msxOpen has already failed to disambiguate an overloaded size.
var Msx = []Entry{
	{NrSecs: 8, Sides: 1, HasIAM: true, Gap3: 84, Interleave: 1, Base: 1, Cyls: 80, RPM: 300},
	{NrSecs: 9, Sides: 1, HasIAM: true, Gap3: 84, Interleave: 1, Base: 1, Cyls: 80, RPM: 300},
}

// Nascom lists Nascom geometries, matched cylinder-only for skew.
var Nascom = []Entry{
	{NrSecs: 16, Sides: 1, HasIAM: true, Gap3: 57, Interleave: 3, Base: 8, Cyls: 80, RPM: 300},
	{NrSecs: 16, Sides: 2, HasIAM: true, Gap3: 57, Interleave: 3, Base: 8, Cyls: 80, RPM: 300},
}

// PC98 lists NEC PC-98 geometries (360RPM class).
var PC98 = []Entry{
	{NrSecs: 8, Sides: 2, HasIAM: true, Gap3: 116, Interleave: 1, Base: 1, Cyls: 80, RPM: 360},
	{NrSecs: 9, Sides: 2, HasIAM: true, Gap3: 116, Interleave: 1, Base: 1, Cyls: 80, RPM: 360},
}

// UKNC lists the Soviet UKNC geometry (no IAM, non-standard gap2/gap4a
// applied separately as host.Tweaks).
var UKNC = []Entry{
	{NrSecs: 10, Sides: 2, HasIAM: false, Gap3: 38, Interleave: 1, Base: 0, Cyls: 80, RPM: 300},
}

// ForProfile returns the type table a host profile searches before
// falling back to Default, and the layout its images use.
func ForProfile(p host.Profile) ([]Entry, Layout) {
	switch p {
	case host.Akai, host.Gem:
		return Akai, LayoutInterleaved
	case host.Casio:
		return Casio, LayoutInterleaved
	case host.Dec:
		return Dec, LayoutInterleaved
	case host.Ensoniq:
		return Ensoniq, LayoutInterleaved
	case host.Fluke:
		return Fluke, LayoutInterleaved
	case host.Kaypro:
		return Kaypro, LayoutInterleaved
	case host.Memotech:
		return Memotech, LayoutInterleaved
	case host.Msx:
		return Msx, LayoutInterleaved
	case host.Nascom:
		return Nascom, LayoutInterleaved
	case host.PC98:
		return PC98, LayoutInterleaved
	case host.UKNC:
		return UKNC, LayoutInterleaved
	default:
		return Default, LayoutInterleaved
	}
}
