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
func NewTypeTables() *TypeTables {

	t := &TypeTables{}
	t.Runner = *NewRunner(
		"typetables [-p|--port {port}]",
		"list built-in geometry type tables",
		"\nUse the typetables command to see what a bare .img is matched against per host profile.",
		"", runnerHelpEpilogue, t.Run)

	t.AddBaseSettings()

	return t
}

//
type TypeTables struct {
	//
	Runner
}

//
func (t *TypeTables) Run() error {

	t.ParseSettings()

	resp, err := t.apiCall("GET", "/typetables", true, nil)
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
