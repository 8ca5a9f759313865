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

// CRC16 accumulates a CRC16-CCITT checksum: polynomial 0x1021, seed
// 0xFFFF, no reflection, no output XOR. A valid sector trailer leaves the
// running value at 0.
type CRC16 struct {
	reg uint16
}

// NewCRC16 returns a CRC16 ready for the first update call.
func NewCRC16() *CRC16 {
	return &CRC16{reg: 0xFFFF}
}

var crc16Table [256]uint16

func init() {
	const poly = 0x1021
	for i := 0; i < 256; i++ {
		crc := uint16(i) << 8
		for b := 0; b < 8; b++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ poly
			} else {
				crc <<= 1
			}
		}
		crc16Table[i] = crc
	}
}

// Update folds one byte into the running CRC.
func (c *CRC16) Update(b byte) {
	c.reg = (c.reg << 8) ^ crc16Table[byte(c.reg>>8)^b]
}

// UpdateBytes folds a byte slice into the running CRC.
func (c *CRC16) UpdateBytes(data []byte) {
	for _, b := range data {
		c.Update(b)
	}
}

// Value returns the current CRC register.
func (c *CRC16) Value() uint16 {
	return c.reg
}

// Valid reports whether the running CRC, having consumed the trailer CRC
// bytes themselves, is 0 — the standard self-checking property of CRC.
func (c *CRC16) Valid() bool {
	return c.reg == 0
}

// Checksum computes the CRC16-CCITT of data in one call, seeded at 0xFFFF.
func Checksum(data []byte) uint16 {
	c := NewCRC16()
	c.UpdateBytes(data)
	return c.Value()
}
