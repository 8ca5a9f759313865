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

import "testing"

func TestChecksumKnownVector(t *testing.T) {
	// standard CRC16-CCITT (0xFFFF seed) test vector
	got := Checksum([]byte("123456789"))
	if got != 0x29B1 {
		t.Fatalf("Checksum(123456789) = %04x, want 29b1", got)
	}
}

func TestCRC16ValidOnTrailer(t *testing.T) {
	data := []byte{0xa1, 0xa1, 0xa1, 0xfe, 1, 0, 3, 2}
	crc := Checksum(data)

	c := NewCRC16()
	c.UpdateBytes(data)
	c.Update(byte(crc >> 8))
	c.Update(byte(crc))

	if !c.Valid() {
		t.Fatalf("CRC not zero after consuming its own trailer: %04x", c.Value())
	}
}

func TestCRC16UpdateMatchesUpdateBytes(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5}

	a := NewCRC16()
	for _, b := range data {
		a.Update(b)
	}

	b := NewCRC16()
	b.UpdateBytes(data)

	if a.Value() != b.Value() {
		t.Fatalf("Update loop diverged from UpdateBytes: %04x != %04x", a.Value(), b.Value())
	}
}
