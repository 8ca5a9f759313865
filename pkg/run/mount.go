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
	"net/url"
)

//
func NewMount() *Mount {

	m := &Mount{}
	m.Runner = *NewRunner(
		"mount -f|--file {ref} [-H|--host {profile}] [-p|--port {port}]",
		"mount an image on the running engine",
		"\nUse the mount command to mount a local image file on a running serve instance.",
		"", runnerHelpEpilogue, m.Run)

	m.AddBaseSettings()
	m.AddSetting(&m.File, "file", "f", "", nil, "image file or repo:// reference", true)
	m.AddSetting(&m.Host, "host", "H", "", "", "host profile for geometry disambiguation", false)

	return m
}

//
type Mount struct {
	//
	Runner
	//
	File string
	Host string
}

//
func (m *Mount) Run() error {

	m.ParseSettings()

	q := url.Values{}
	q.Set("ref", m.File)
	if m.Host != "" {
		q.Set("host", m.Host)
	}

	resp, err := m.apiCall("POST", fmt.Sprintf("/mount?%s", q.Encode()), true, nil)
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
