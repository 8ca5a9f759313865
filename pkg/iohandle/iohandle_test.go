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

package iohandle

import (
	"errors"
	"testing"
)

func TestFatalErrorWrapsOpAndCause(t *testing.T) {
	cause := errors.New("disk full")
	f := &Fatal{Op: "write", Err: cause}
	if f.Error() != "fatal I/O error during write: disk full" {
		t.Fatalf("unexpected Error(): %q", f.Error())
	}
	if !errors.Is(f, cause) {
		t.Fatal("expected errors.Is to see through Unwrap")
	}
}

func TestSysclkConversions(t *testing.T) {
	if got := SysclkUS(10); got != 720 {
		t.Fatalf("SysclkUS(10) = %d, want 720", got)
	}
	if got := SysclkMS(1); got != 72000 {
		t.Fatalf("SysclkMS(1) = %d, want 72000", got)
	}
	if got := SysclkNS(1000); got != 72 {
		t.Fatalf("SysclkNS(1000) = %d, want 72", got)
	}
}

func TestStkConversions(t *testing.T) {
	if got := StkMS(1); got != 200 {
		t.Fatalf("StkMS(1) = %d, want 200", got)
	}
	if got := StkSysclk(200); got != SysclkMS(1) {
		t.Fatalf("StkSysclk(200) = %d, want %d (1ms of sysclk ticks)", got, SysclkMS(1))
	}
}
