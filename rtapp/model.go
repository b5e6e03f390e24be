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

// Package rtapp holds the application model: the validated-shape AST an
// RTFM application reduces to once parsed — tasks with their priority,
// capacity, target core and resource/spawn/schedule sets, per-core
// init/idle symbols, and resource declarations. In the original this AST
// is produced by an attribute-macro DSL frontend that is out of scope for
// the core (spec.md §1); here it is produced either by LoadApplication
// from a YAML description, or assembled in Go with a Builder.
package rtapp

// Task is one task declaration: spec.md §3 "Task".
type Task struct {
	// Name is the task's symbol; it is the map key in Application.Tasks
	// and is repeated here so a Task value is self-describing once
	// extracted from the map.
	Name string `yaml:"-"`

	Priority  uint8    `yaml:"priority"`
	Capacity  int      `yaml:"capacity"`
	Core      int      `yaml:"core"`
	Resources []string `yaml:"resources,omitempty"`
	Spawn     []string `yaml:"spawn,omitempty"`
	Schedule  []string `yaml:"schedule,omitempty"`

	// Scheduled is true if any Schedule call site anywhere in the
	// application targets this task; it is computed by Application.Finish,
	// not set directly, and determines whether an INSTANTS[t] buffer is
	// allocated (spec.md §3 "Instants buffer").
	Scheduled bool `yaml:"-"`
}

// Resource is one resource declaration: spec.md §3 "Resource". A resource
// with no static initial value (Late == true) must be written exactly once, by
// some core's init, before any task may observe it; OwnerCore names which
// core's init does the writing and is only meaningful when Late is true.
type Resource struct {
	Name      string `yaml:"-"`
	Late      bool   `yaml:"late"`
	OwnerCore int    `yaml:"owner_core,omitempty"`
}

// Core is one executor's init/idle declaration: spec.md §6 "per-core init
// function (required) ... optional idle". Resources lists resources this
// core's init accesses directly (priority-0 accessors for ceiling
// purposes, per spec.md §4.5 step 2): "init/idle contribute priority 0".
type Core struct {
	Init      string   `yaml:"init"`
	Idle      string   `yaml:"idle,omitempty"`
	Resources []string `yaml:"resources,omitempty"`

	// Spawn/Schedule name tasks this core's init may spawn or schedule
	// directly (e.g. spec.md §8 scenario S1: "init spawns foo(42)"),
	// mirroring the `#[init(spawn = [...])]` attribute in the source DSL.
	Spawn    []string `yaml:"spawn,omitempty"`
	Schedule []string `yaml:"schedule,omitempty"`
}

// Application is the complete, not-yet-analyzed description of an RTFM
// program: spec.md §6 "Source DSL (analyzer input)".
type Application struct {
	Cores     int                 `yaml:"cores"`
	CoreSpecs map[int]Core        `yaml:"core_specs"`
	Tasks     map[string]Task     `yaml:"tasks"`
	Resources map[string]Resource `yaml:"resources"`
}

// Finish fills in derived fields (Name on each Task/Resource, Scheduled)
// after an Application has been populated by unmarshalling or by a
// Builder. It performs no cross-referential validation; that is
// rtanalyze's job.
func (a *Application) Finish() {
	for name, t := range a.Tasks {
		t.Name = name
		a.Tasks[name] = t
	}
	for name, r := range a.Resources {
		r.Name = name
		a.Resources[name] = r
	}
	for _, t := range a.Tasks {
		for _, target := range t.Schedule {
			if dst, ok := a.Tasks[target]; ok {
				dst.Scheduled = true
				a.Tasks[target] = dst
			}
		}
	}
	for _, spec := range a.CoreSpecs {
		for _, target := range spec.Schedule {
			if dst, ok := a.Tasks[target]; ok {
				dst.Scheduled = true
				a.Tasks[target] = dst
			}
		}
	}
}
