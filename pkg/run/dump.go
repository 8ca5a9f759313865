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
func NewDump() *Dump {

	d := &Dump{}
	d.Runner = *NewRunner(
		"dump -c|--cyl {cyl} -s|--side {side} [-p|--port {port}]",
		"hex dump a track from the mounted image",
		"\nUse the dump command to output the raw encoded bytes for one track of the mounted image.",
		"", runnerHelpEpilogue, d.Run)

	d.AddBaseSettings()
	d.AddSetting(&d.Cyl, "cyl", "c", "", 0, "cylinder number", false)
	d.AddSetting(&d.Side, "side", "s", "", 0, "side number", false)

	return d
}

//
type Dump struct {
	//
	Runner
	//
	Cyl  int
	Side int
}

//
func (d *Dump) Run() error {

	d.ParseSettings()

	resp, err := d.apiCall("GET",
		fmt.Sprintf("/dump?cyl=%d&side=%d", d.Cyl, d.Side), true, nil)
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
