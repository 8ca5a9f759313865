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

// Package codec implements the MFM/FM bitstream codec: the "suppress clock
// if previous data bit was 1" MFM encoding rule, FM clock/data
// interleaving, CRC16-CCITT over address-mark sequences, and the raw-cell
// sync scan used by the write-path decoder to re-lock onto a sector.
package codec

// SyncMode is the codec mode of the image currently mounted.
type SyncMode int

const (
	MFM SyncMode = iota
	FM
	NONE
)

func (s SyncMode) String() string {
	switch s {
	case MFM:
		return "MFM"
	case FM:
		return "FM"
	default:
		return "NONE"
	}
}

// Address mark sync words, written raw onto the wire (missing-clock
// violations of the normal MFM encoding rule).
const (
	SyncA1 uint16 = 0x4489 // A1 with missing clock, ID/data address marks
	SyncC2 uint16 = 0x5224 // C2 with missing clock, index address mark
)

// FMSyncClk is the ordinary FM clock/data interleave of an all-zero byte
// (every clock bit set); address marks replace it with the per-mark clock
// patterns in fmSyncClocks.
const FMSyncClk uint16 = 0xAAAA

// fmSyncClocks gives the clock nibble pattern for each recognized FM
// address mark byte, keyed by the data byte.
var fmSyncClocks = map[byte]uint16{
	0xFE: 0xC7, // IDAM clock: violates bit 4 gap the same way MFM does via A1
	0xFB: 0xC7, // DAM
	0xF8: 0xC7, // deleted DAM
	0xFC: 0xD7, // IAM
}

// FMSync encodes a single address-mark byte using FM encoding, but with a
// custom clock pattern rather than the usual all-ones FM clock, producing
// the deliberate sync violation a real FDC's PLL locks onto.
func FMSync(b byte) uint16 {
	clk, ok := fmSyncClocks[b]
	if !ok {
		clk = 0xFF
	}
	var out uint16
	for bit := 7; bit >= 0; bit-- {
		out <<= 2
		c := uint16((clk >> uint(bit)) & 1)
		d := uint16((b >> uint(bit)) & 1)
		out |= (c << 1) | d
	}
	return out
}

// Scanner searches a big-endian bit stream for address-mark sync words.
// Bits are shifted in one at a time into a 16-bit sliding window, so a
// sync word is found at any bit offset without separate realignment.
type Scanner struct {
	window uint16
	seen   int
}

// Reset clears any partially matched sync sequence.
func (s *Scanner) Reset() {
	s.window = 0
	s.seen = 0
}

// Feed pushes one bit (0 or 1, in the low bit of b) into the scanner, MSB
// first as bits arrive off the wire. It returns true once `want` has been
// observed in the trailing window.
func (s *Scanner) Feed(bit byte, want uint16) bool {
	s.window = (s.window << 1) | uint16(bit&1)
	return s.window == want
}
