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
func NewUnmount() *Unmount {

	u := &Unmount{}
	u.Runner = *NewRunner(
		"unmount [-p|--port {port}]",
		"unmount the image on the running engine",
		"\nUse the unmount command to release whatever image is currently mounted.",
		"", runnerHelpEpilogue, u.Run)

	u.AddBaseSettings()

	return u
}

//
type Unmount struct {
	//
	Runner
}

//
func (u *Unmount) Run() error {

	u.ParseSettings()

	resp, err := u.apiCall("POST", "/unmount", true, nil)
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
