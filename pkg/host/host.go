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

// Package host enumerates the host platforms the type-table matcher
// dispatches on, and the small per-host tweaks layered on top of the
// matched geometry.
package host

// Profile identifies the host platform an image is being opened for.
type Profile int

const (
	Default Profile = iota
	Akai
	Gem
	Casio
	Dec
	Ensoniq
	Fluke
	Kaypro
	Memotech
	Msx
	Nascom
	PC98
	PCDOS
	TI99
	UKNC
)

//
func (p Profile) String() string {
	switch p {
	case Default:
		return "default"
	case Akai:
		return "akai"
	case Gem:
		return "gem"
	case Casio:
		return "casio"
	case Dec:
		return "dec"
	case Ensoniq:
		return "ensoniq"
	case Fluke:
		return "fluke"
	case Kaypro:
		return "kaypro"
	case Memotech:
		return "memotech"
	case Msx:
		return "msx"
	case Nascom:
		return "nascom"
	case PC98:
		return "pc98"
	case PCDOS:
		return "pc_dos"
	case TI99:
		return "ti99"
	case UKNC:
		return "uknc"
	default:
		return "<unknown>"
	}
}

// Tweaks holds the small per-host overrides applied on top of a matched
// type-table entry.
type Tweaks struct {
	Gap2         int  // 0 means "use class default"
	Gap4a        int  // 0 means "use class default"
	PostCRCSyncs int
	SkewCylsOnly bool
}

// TweaksFor returns the tweaks for the given profile. Most profiles have
// none.
func TweaksFor(p Profile) Tweaks {
	switch p {
	case UKNC:
		return Tweaks{Gap2: 24, Gap4a: 27, PostCRCSyncs: 1}
	case Nascom:
		return Tweaks{SkewCylsOnly: true}
	default:
		return Tweaks{}
	}
}

// UsesBPBProbe reports whether this profile's matcher should try the BPB
// probe before falling back to the built-in type table.
func (p Profile) UsesBPBProbe() bool {
	return p == Msx || p == PCDOS
}

// RequiresBPBSignature reports whether the 0xAA55 BPB signature is
// mandatory for this profile (PC-DOS) or merely tolerated when absent
// (MSX).
func (p Profile) RequiresBPBSignature() bool {
	return p == PCDOS
}
