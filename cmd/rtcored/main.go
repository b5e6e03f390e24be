// Copyright (C) 2024 Canonical Ltd
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License version 3 as
// published by the Free Software Foundation.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Command rtcored loads an application description and runs it: a thin
// host around rtapp/rtruntime for applications whose task bodies don't
// need anything beyond structured logging of what fired. Real embedders
// link rtruntime directly and register their own TaskFunc/InitFunc
// bodies (see rtruntime.Registry); rtcored exists to drive and observe a
// described application without writing a Go program for it first.
package main

import (
	"fmt"
	"os"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/jessevdk/go-flags"
	"github.com/sirupsen/logrus"

	"github.com/snapcore/rtcore/rtapp"
	"github.com/snapcore/rtcore/rtruntime"
)

type options struct {
	Verbose bool `short:"v" long:"verbose" description:"log every task/init invocation, not just lifecycle events"`

	Positional struct {
		App string `positional-arg-name:"app.yaml" description:"path to the application's YAML description"`
	} `positional-args:"yes" required:"yes"`
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		logrus.WithError(err).Error("rtcored: exiting")
		os.Exit(1)
	}
}

func run(args []string) error {
	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.ParseArgs(args); err != nil {
		if ferr, ok := err.(*flags.Error); ok && ferr.Type == flags.ErrHelp {
			return nil
		}
		return err
	}
	if opts.Verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	app, err := rtapp.LoadApplication(opts.Positional.App)
	if err != nil {
		return fmt.Errorf("loading %s: %w", opts.Positional.App, err)
	}

	reg := rtruntime.NewRegistry()
	if err := registerDemoHandlers(app, reg); err != nil {
		return err
	}

	rt, err := rtruntime.Build(app, reg)
	if err != nil {
		return fmt.Errorf("building application: %w", err)
	}

	logrus.WithField("cores", app.Cores).Info("rtcored: application built, starting executors")
	if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		logrus.WithError(err).Warn("rtcored: sd_notify failed")
	} else if ok {
		logrus.Debug("rtcored: notified systemd readiness")
	}

	return rt.Run()
}

// registerDemoHandlers wires a logging-only TaskFunc into every declared
// task, a no-op InitFunc into every core (publishing a zero value for any
// late resource it owns) and a zero initial value for every non-late
// resource, so any well-formed application description can be driven
// without its own compiled Go task bodies.
func registerDemoHandlers(app *rtapp.Application, reg *rtruntime.Registry) error {
	for name := range app.Tasks {
		name := name
		if err := reg.RegisterTask(name, func(ctx *rtruntime.Context, input interface{}) {
			logrus.WithFields(logrus.Fields{
				"core": ctx.Core(),
				"task": name,
			}).Debugf("rtcored: %s(%v)", name, input)
		}); err != nil {
			return err
		}
	}

	lateOwned := make(map[int][]string)
	for name, r := range app.Resources {
		if r.Late {
			lateOwned[r.OwnerCore] = append(lateOwned[r.OwnerCore], name)
		} else if err := reg.RegisterResource(name, 0); err != nil {
			return err
		}
	}

	for core := range app.CoreSpecs {
		core := core
		owned := lateOwned[core]
		if err := reg.RegisterInit(core, func(ctx *rtruntime.Context) map[string]interface{} {
			logrus.WithField("core", core).Info("rtcored: core init")
			values := make(map[string]interface{}, len(owned))
			for _, name := range owned {
				values[name] = 0
			}
			return values
		}); err != nil {
			return err
		}
	}
	return nil
}
