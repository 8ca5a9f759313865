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
	"os"
	"os/signal"
	"sync"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/oqtaflux/trackengine/pkg/conduit"
	"github.com/oqtaflux/trackengine/pkg/control"
	"github.com/oqtaflux/trackengine/pkg/engine"
)

//
func NewServe() *Serve {

	s := &Serve{}
	s.Runner = *NewRunner(
		`serve [-d|--device {device}] [-a|--address {address}] [-r|--repo {repo base folder}]`,
		"track engine & API server command",
		`Use the serve command for running the track engine and its API server. When
a serial device is given, the engine's ring buffer and write-descriptor queue are
pumped across it to a connected host adapter; when omitted, the engine still runs
and can be driven entirely through the API server, which is useful for testing
image handling without hardware attached.`,
		"", `- Logging can be configured with these environment variables:

  LOG_FORMAT		set to 'json' for JSON logging
  LOG_FORCE_COLORS	set to non-empty for forcing colorized log entries
  LOG_METHODS		set to non-empty for including methods in log
  LOG_LEVEL		panic, fatal, error, warn, info, debug, trace

`+runnerHelpEpilogue, s.Run)

	s.AddBaseSettings()
	s.AddSetting(&s.Device, "device", "d", "TRACKENGINE_DEVICE", "",
		"serial port device for flux conduit; when omitted, no hardware is driven", false)
	s.AddSetting(&s.BindAddress, "address", "a", "", "0.0.0.0",
		"bind address for the API server", false)
	s.AddSetting(&s.Repository, "repo", "r", "", "",
		`image repo base folder; when omitted, loading
images via repo:// references is prohibited`, false)

	return s
}

//
type Serve struct {
	//
	Runner
	//
	Device      string
	BindAddress string
	Repository  string
}

//
func (s *Serve) Run() error {

	s.ParseSettings()

	eng, err := engine.New()
	if err != nil {
		return err
	}

	var cd *conduit.Conduit
	if s.Device != "" {
		cd, err = conduit.OpenSerial(s.Device, eng)
		if err != nil {
			return err
		}
	} else {
		cd = conduit.NewLoopback(eng)
	}

	wg := &sync.WaitGroup{}
	wg.Add(2)

	go func() {
		defer wg.Done()
		err := cd.Serve()
		if err != nil && err != conduit.ErrConduitStopped {
			log.Errorf("conduit closed with error: %v", err)
		} else {
			log.Info("conduit stopped")
		}
	}()

	addr := fmt.Sprintf("%s:%d", s.BindAddress, s.Port)
	api := control.NewAPIServer(addr, eng, s.Repository)
	go func() {
		defer wg.Done()
		if err := api.Serve(); err != nil {
			log.Errorf("API server closed with error: %v", err)
		} else {
			log.Info("API server stopped")
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	sigCount := 0
	done := make(chan bool)

	for {

		select {

		case sig := <-sigs: // interrupt signal
			log.WithField("signal", sig).Info("signal received")
			sigCount++

			switch sigCount {

			case 1:
				go func() {
					log.Info("shutting down, hit Ctrl-C twice to force exit...")
					api.Stop()
					cd.Close()
					wg.Wait()
					log.Info("track engine stopped")
					done <- true
				}()

			case 2:
				log.Warn("shutdown in progress, hit Ctrl-C again to force exit")

			default:
				log.Warn("forcing engine to stop immediately")
				os.Exit(1)
			}

		case <-done: // shutdown sequence complete
			return nil
		}
	}
}
