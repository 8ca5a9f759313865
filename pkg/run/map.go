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
	"fmt"
	"io/ioutil"
)

//
func NewMap() *Map {

	m := &Map{}
	m.Runner = *NewRunner(
		"map -c|--cyl {cyl} -s|--side {side} [-p|--port {port}]",
		"show sector placement for a track of the mounted image",
		"\nUse the map command to see which sector occupies each rotational slot of a track.",
		"", runnerHelpEpilogue, m.Run)

	m.AddBaseSettings()
	m.AddSetting(&m.Cyl, "cyl", "c", "", 0, "cylinder number", false)
	m.AddSetting(&m.Side, "side", "s", "", 0, "side number", false)

	return m
}

//
type Map struct {
	//
	Runner
	//
	Cyl  int
	Side int
}

//
func (m *Map) Run() error {

	m.ParseSettings()

	resp, err := m.apiCall("GET",
		fmt.Sprintf("/map?cyl=%d&side=%d", m.Cyl, m.Side), true, nil)
	if err != nil {
		return err
	}
	defer resp.Close()

	msg, err := ioutil.ReadAll(resp)
	if err != nil {
		return err
	}

	fmt.Printf("%s\n", msg)
	return nil
}
