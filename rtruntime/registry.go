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

package rtruntime

import "golang.org/x/xerrors"

// TaskFunc is a task body: spec.md §4.6 "the user body invoked as
// t(locals, context, inputs...)". Go has no per-task input tuple type, so
// input is boxed; callers agree out of band on its dynamic type per task,
// the same way the original DSL ties a task symbol to one input tuple
// type at compile time.
type TaskFunc func(ctx *Context, input interface{})

// InitFunc is a core's init function. It returns the initial values of
// every late resource this core owns, keyed by resource name (spec.md §6
// "per-core init function ... returning a record of late resources it
// defines").
type InitFunc func(ctx *Context) map[string]interface{}

// IdleFunc is a core's optional idle function: spec.md §6 "per-core
// optional idle (diverging)". A core with no registered IdleFunc runs
// its dispatch loop instead (see runExecutor).
type IdleFunc func(ctx *Context)

// Registry is the Go-native stand-in for the DSL's per-symbol function
// bodies (SPEC_FULL.md §3 "Task registry"): the embedding program
// registers one TaskFunc per declared task, one InitFunc per core, an
// optional IdleFunc per core, and the initial value of every
// non-late resource.
type Registry struct {
	Tasks     map[string]TaskFunc
	Inits     map[int]InitFunc
	Idles     map[int]IdleFunc
	Resources map[string]interface{}
}

// NewRegistry returns an empty Registry ready for Register* calls.
func NewRegistry() *Registry {
	return &Registry{
		Tasks:     make(map[string]TaskFunc),
		Inits:     make(map[int]InitFunc),
		Idles:     make(map[int]IdleFunc),
		Resources: make(map[string]interface{}),
	}
}

// RegisterTask binds name to fn. Registering the same name twice is an
// error (SPEC_FULL.md §9), returned here rather than deferred to Build so
// the mistake is caught at the call site that causes it.
func (r *Registry) RegisterTask(name string, fn TaskFunc) error {
	if _, dup := r.Tasks[name]; dup {
		return xerrors.Errorf("task %q already registered", name)
	}
	r.Tasks[name] = fn
	return nil
}

// RegisterInit binds core n's init function. Duplicate registration for
// the same core is a build-time error.
func (r *Registry) RegisterInit(core int, fn InitFunc) error {
	if _, dup := r.Inits[core]; dup {
		return xerrors.Errorf("core %d already has an init function registered", core)
	}
	r.Inits[core] = fn
	return nil
}

// RegisterIdle binds core n's idle function.
func (r *Registry) RegisterIdle(core int, fn IdleFunc) error {
	if _, dup := r.Idles[core]; dup {
		return xerrors.Errorf("core %d already has an idle function registered", core)
	}
	r.Idles[core] = fn
	return nil
}

// RegisterResource sets the initial value of a non-late resource.
// Registering the same name twice is a build-time error.
func (r *Registry) RegisterResource(name string, value interface{}) error {
	if _, dup := r.Resources[name]; dup {
		return xerrors.Errorf("resource %q already has an initial value registered", name)
	}
	r.Resources[name] = value
	return nil
}
