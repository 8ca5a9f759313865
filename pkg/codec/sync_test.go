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

func TestScannerFeedMatches(t *testing.T) {
	var s Scanner
	var matched bool
	for i := 15; i >= 0; i-- {
		bit := byte((SyncA1 >> uint(i)) & 1)
		matched = s.Feed(bit, SyncA1)
	}
	if !matched {
		t.Fatal("scanner did not match SyncA1 after feeding its exact bit pattern")
	}
}

func TestScannerResetClearsWindow(t *testing.T) {
	var s Scanner
	s.Feed(1, 0xFFFF)
	s.Feed(1, 0xFFFF) // window now 0x0003, not a match for SyncA1
	s.Reset()
	if s.window != 0 || s.seen != 0 {
		t.Fatalf("Reset left window=%04x seen=%d", s.window, s.seen)
	}
}

func TestFMSyncDecodesToOriginalByte(t *testing.T) {
	for _, b := range []byte{0xFE, 0xFB, 0xF8, 0xFC} {
		word := FMSync(b)
		if got := DecodeWord(word); got != b {
			t.Fatalf("FMSync(%02x) decodes to %02x", b, got)
		}
	}
}

func TestSyncModeString(t *testing.T) {
	cases := map[SyncMode]string{MFM: "MFM", FM: "FM", NONE: "NONE"}
	for mode, want := range cases {
		if got := mode.String(); got != want {
			t.Fatalf("%v.String() = %q, want %q", mode, got, want)
		}
	}
}
