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

package run

import (
	"testing"
)

func newTestCommand(t *testing.T) *Command {
	t.Helper()
	return NewCommand("test", "short", "long", "", "", func() error { return nil })
}

func TestAddSettingStringDefault(t *testing.T) {
	c := newTestCommand(t)
	var target string
	c.AddSetting(&target, "name", "n", "", "bob", "a name", false)
	c.ParseSettings()
	if target != "bob" {
		t.Fatalf("target = %q, want bob", target)
	}
}

func TestAddSettingIntDefault(t *testing.T) {
	c := newTestCommand(t)
	var target int
	c.AddSetting(&target, "count", "c", "", 42, "a count", false)
	c.ParseSettings()
	if target != 42 {
		t.Fatalf("target = %d, want 42", target)
	}
}

func TestAddSettingBoolDefault(t *testing.T) {
	c := newTestCommand(t)
	var target bool
	c.AddSetting(&target, "flag", "f", "", true, "a flag", false)
	c.ParseSettings()
	if !target {
		t.Fatal("target = false, want true")
	}
}

func TestAddSettingFromCommandLineFlag(t *testing.T) {
	c := newTestCommand(t)
	var target string
	c.AddSetting(&target, "name", "n", "", "bob", "a name", false)
	if err := c.Execute([]string{"--name", "alice"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	c.ParseSettings()
	if target != "alice" {
		t.Fatalf("target = %q, want alice", target)
	}
}

func TestGetSettingUnknownFlag(t *testing.T) {
	c := newTestCommand(t)
	if _, err := c.GetSetting("nope"); err == nil {
		t.Fatal("expected error for undefined setting")
	}
}

func TestGetSettingReturnsBoundValue(t *testing.T) {
	c := newTestCommand(t)
	var target int
	c.AddSetting(&target, "count", "c", "", 7, "a count", false)
	v, err := c.GetSetting("count")
	if err != nil {
		t.Fatalf("GetSetting: %v", err)
	}
	if v.(int) != 7 {
		t.Fatalf("GetSetting returned %v, want 7", v)
	}
}

func TestRequiredSettingMissingDies(t *testing.T) {
	UnderTest = true
	defer func() { UnderTest = false }()

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for missing required setting")
		}
	}()

	c := newTestCommand(t)
	var target string
	c.AddSetting(&target, "name", "n", "", nil, "a name", true)
	c.ParseSettings()
}

func TestRequiredSettingWithDefaultDies(t *testing.T) {
	UnderTest = true
	defer func() { UnderTest = false }()

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for required setting given a default value")
		}
	}()

	c := newTestCommand(t)
	var target string
	c.AddSetting(&target, "name", "n", "", "bob", "a name", true)
}

func TestExecuteRunsExecFunc(t *testing.T) {
	ran := false
	c := NewCommand("test", "short", "long", "", "",
		func() error { ran = true; return nil })
	if err := c.Execute([]string{"--"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !ran {
		t.Fatal("expected exec function to run")
	}
}
