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

package codec

// mfmtab[b] gives the 16-bit clock+data pattern for data byte b, assuming
// the bit immediately preceding this byte was a data 0. Bit layout, MSB
// first: c0 d0 c1 d1 c2 d2 c3 d3 c4 d4 c5 d5 c6 d6 c7 d7.
var mfmtab [256]uint16

// mfmDataMask picks out the eight data-bit positions of a 16-bit MFM word.
const mfmDataMask uint16 = 0x5555 // bits 0,2,4,6,8,10,12,14

func init() {
	for b := 0; b < 256; b++ {
		mfmtab[b] = buildMFMWord(byte(b))
	}
}

func buildMFMWord(b byte) uint16 {
	var word uint16
	prevData := byte(0)
	for i := 7; i >= 0; i-- {
		d := (b >> uint(i)) & 1
		var clk byte
		if prevData == 0 && d == 0 {
			clk = 1
		}
		word <<= 2
		word |= uint16(clk)<<1 | uint16(d)
		prevData = d
	}
	return word
}

// Encoder turns plain data bytes into the MFM (or FM, selected at
// construction) bitstream, carrying the previous byte's trailing data bit
// across calls so adjacent-byte clock suppression is correct at byte
// boundaries.
type Encoder struct {
	fm       bool
	prevLow  uint16
}

// NewEncoder creates an encoder for the given sync mode. FM must not be
// NONE.
func NewEncoder(mode SyncMode) *Encoder {
	return &Encoder{fm: mode == FM}
}

// EncodeByte returns the 16-bit on-wire word for a plain data byte,
// applying the MFM "suppress clock if previous data bit was 1" rule across
// the byte boundary, or forcing the FM all-ones clock when in FM mode.
func (e *Encoder) EncodeByte(b byte) uint16 {

	word := mfmtab[b]

	if e.fm {
		word |= 0xAAAA
	} else {
		// suppress the leading clock bit (position 15) if the previous
		// word's trailing data bit (position 0) was 1
		word &^= e.prevLow << 15
	}

	e.prevLow = word & 1
	return word
}

// EncodeSyncWord emits a deliberate address-mark sync violation
// (SyncA1/SyncC2 for MFM, codec.FMSync(b) for FM) raw onto the wire,
// without going through the normal encode table, and updates the carry
// state as if that word had been a regularly encoded byte.
func (e *Encoder) EncodeSyncWord(word uint16) uint16 {
	e.prevLow = word & 1
	return word
}

// Reset clears the cross-byte carry, e.g. at the start of a track.
func (e *Encoder) Reset() {
	e.prevLow = 0
}

// DecodeWord extracts the plain data byte from an on-wire 16-bit word,
// ignoring clock bits. This is valid for both MFM and FM words since data
// bits occupy the same (even, counting from the LSB) bit positions in
// both encodings.
func DecodeWord(word uint16) byte {
	var b byte
	w := word & mfmDataMask
	for i := 0; i < 8; i++ {
		bit := (w >> uint(i*2)) & 1
		b |= byte(bit) << uint(i)
	}
	return b
}
