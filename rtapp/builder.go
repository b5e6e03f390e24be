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

package rtapp

// Builder assembles an Application with fluent calls instead of YAML,
// for callers that would rather describe an application in Go (tests,
// or a program generating its own topology). It mirrors the shape of the
// attribute-macro DSL being distilled, one declaration at a time.
type Builder struct {
	app Application
}

// NewBuilder starts a Builder for an application with the given number
// of executor cores.
func NewBuilder(cores int) *Builder {
	return &Builder{app: Application{
		Cores:     cores,
		CoreSpecs: make(map[int]Core),
		Tasks:     make(map[string]Task),
		Resources: make(map[string]Resource),
	}}
}

// Core registers core n's init function (required) and idle function
// (optional, pass "" for none). resources names resources core n's init
// accesses directly.
func (b *Builder) Core(n int, init, idle string, resources ...string) *Builder {
	c := b.app.CoreSpecs[n]
	c.Init, c.Idle, c.Resources = init, idle, resources
	b.app.CoreSpecs[n] = c
	return b
}

// CoreSpawn declares tasks core n's init may spawn directly.
func (b *Builder) CoreSpawn(n int, tasks ...string) *Builder {
	c := b.app.CoreSpecs[n]
	c.Spawn = tasks
	b.app.CoreSpecs[n] = c
	return b
}

// CoreSchedule declares tasks core n's init may schedule directly.
func (b *Builder) CoreSchedule(n int, tasks ...string) *Builder {
	c := b.app.CoreSpecs[n]
	c.Schedule = tasks
	b.app.CoreSpecs[n] = c
	return b
}

// Task registers a task declaration. t.Name is ignored; name is
// authoritative and is copied onto the stored Task by Build.
func (b *Builder) Task(name string, t Task) *Builder {
	t.Name = name
	b.app.Tasks[name] = t
	return b
}

// Resource registers a resource declaration. late marks a resource with
// no statically-known initial value (spec.md §3 "late resource");
// ownerCore is the core whose init eventually writes it and is ignored
// when late is false.
func (b *Builder) Resource(name string, late bool, ownerCore int) *Builder {
	b.app.Resources[name] = Resource{Name: name, Late: late, OwnerCore: ownerCore}
	return b
}

// Build finalizes the Application, computing derived fields via Finish.
func (b *Builder) Build() *Application {
	b.app.Finish()
	return &b.app
}
