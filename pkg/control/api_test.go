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

package control

import (
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/oqtaflux/trackengine/pkg/engine"
	_ "github.com/oqtaflux/trackengine/pkg/imgformat"
)

func newTestAPI(t *testing.T) *api {
	t.Helper()
	eng, err := engine.New()
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	return &api{engine: eng}
}

func writeTestImage(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "disk.img")
	buf := make([]byte, 40*8*128)
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestStatusUnmounted(t *testing.T) {
	a := newTestAPI(t)
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/status", nil)
	a.status(w, r)

	var st Status
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if st.Mounted {
		t.Fatal("expected Mounted=false")
	}
}

func TestMountMissingRef(t *testing.T) {
	a := newTestAPI(t)
	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/mount", nil)
	a.mount(w, r)
	if w.Code != 422 {
		t.Fatalf("status = %d, want 422", w.Code)
	}
}

func TestMountAndUnmountAndDump(t *testing.T) {
	a := newTestAPI(t)
	path := writeTestImage(t)

	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/mount?ref="+path, nil)
	a.mount(w, r)
	if w.Code != 200 {
		t.Fatalf("mount status = %d, body=%s", w.Code, w.Body.String())
	}

	var st Status
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !st.Mounted || st.NrCyls != 40 || st.NrSides != 1 {
		t.Fatalf("unexpected status after mount: %+v", st)
	}

	w2 := httptest.NewRecorder()
	r2 := httptest.NewRequest("GET", "/dump?cyl=0&side=0", nil)
	a.dump(w2, r2)
	if w2.Code != 200 {
		t.Fatalf("dump status = %d, body=%s", w2.Code, w2.Body.String())
	}

	w3 := httptest.NewRecorder()
	r3 := httptest.NewRequest("GET", "/map?cyl=0&side=0", nil)
	a.secmap(w3, r3)
	if w3.Code != 200 {
		t.Fatalf("map status = %d, body=%s", w3.Code, w3.Body.String())
	}

	w4 := httptest.NewRecorder()
	r4 := httptest.NewRequest("POST", "/unmount", nil)
	a.unmount(w4, r4)
	if w4.Code != 200 {
		t.Fatalf("unmount status = %d", w4.Code)
	}
}

func TestTypeTables(t *testing.T) {
	a := newTestAPI(t)
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/typetables", nil)
	a.typeTables(w, r)
	if w.Code != 200 {
		t.Fatalf("status = %d", w.Code)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := out["default"]; !ok {
		t.Fatal("expected a \"default\" entry in the type table report")
	}
}
