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

package rtanalyze

import (
	"sort"

	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"

	"github.com/snapcore/rtcore/rtapp"
)

// Validate rejects app per spec.md §4.5 step 6. The four checks are
// independent read-only passes over app, so they run concurrently via
// errgroup and Validate surfaces whichever fails first; Wait's error,
// wrapped with xerrors.Errorf by each check, already carries a frame.
func Validate(app *rtapp.Application) error {
	var g errgroup.Group
	g.Go(func() error { return validateIdentifierNamespace(app) })
	g.Go(func() error { return validateTaskReferences(app) })
	g.Go(func() error { return validateResourceSharing(app) })
	g.Go(func() error { return validateLateResourceAccess(app) })
	return g.Wait()
}

// validateIdentifierNamespace rejects a task whose symbol collides with
// any core's init/idle symbol, mirroring the original's single
// compiled-module symbol table (rtruntime's Registry itself keys tasks by
// name but init/idle functions by core number).
func validateIdentifierNamespace(app *rtapp.Application) error {
	reserved := make(map[string]string) // symbol -> "init" or "idle"
	cores := sortedCoreIDs(app)
	for _, n := range cores {
		spec := app.CoreSpecs[n]
		if spec.Init != "" {
			reserved[spec.Init] = "init"
		}
		if spec.Idle != "" {
			reserved[spec.Idle] = "idle"
		}
	}
	for name := range app.Tasks {
		if kind, collides := reserved[name]; collides {
			return xerrors.Errorf("identifier collision: task %q reuses the symbol of a core %s", name, kind)
		}
	}
	return nil
}

// validateTaskReferences rejects a spawn/schedule naming a task that was
// never declared.
func validateTaskReferences(app *rtapp.Application) error {
	for name, t := range app.Tasks {
		for _, target := range t.Spawn {
			if _, ok := app.Tasks[target]; !ok {
				return xerrors.Errorf("task %q spawns undeclared task %q", name, target)
			}
		}
		for _, target := range t.Schedule {
			if _, ok := app.Tasks[target]; !ok {
				return xerrors.Errorf("task %q schedules undeclared task %q", name, target)
			}
		}
	}
	for n, spec := range app.CoreSpecs {
		for _, target := range spec.Spawn {
			if _, ok := app.Tasks[target]; !ok {
				return xerrors.Errorf("core %d init spawns undeclared task %q", n, target)
			}
		}
		for _, target := range spec.Schedule {
			if _, ok := app.Tasks[target]; !ok {
				return xerrors.Errorf("core %d init schedules undeclared task %q", n, target)
			}
		}
	}
	return nil
}

// validateResourceSharing rejects a non-late resource touched by tasks or
// core inits on more than one core: spec.md §3 "cross-core sharing is
// disallowed by the analyzer". Late resources are exempt here by design: a
// core init legitimately reads another core's late resource through the
// initialization-barrier path (see buildBarrierGraph and
// validateLateResourceAccess, which enforces the narrower rule that
// actually applies to them).
func validateResourceSharing(app *rtapp.Application) error {
	owner := make(map[string]int)
	haveOwner := make(map[string]bool)
	check := func(rname string, core int) error {
		r, ok := app.Resources[rname]
		if !ok {
			return xerrors.Errorf("references undeclared resource %q", rname)
		}
		if r.Late {
			return nil
		}
		if haveOwner[rname] && owner[rname] != core {
			return xerrors.Errorf("resource %q is shared across cores %d and %d", rname, owner[rname], core)
		}
		owner[rname], haveOwner[rname] = core, true
		return nil
	}
	for _, t := range app.Tasks {
		for _, rname := range t.Resources {
			if err := check(rname, t.Core); err != nil {
				return xerrors.Errorf("task %q %w", t.Name, err)
			}
		}
	}
	for n, spec := range app.CoreSpecs {
		for _, rname := range spec.Resources {
			if err := check(rname, n); err != nil {
				return xerrors.Errorf("core %d init %w", n, err)
			}
		}
	}
	return nil
}

// validateLateResourceAccess rejects a task locking a late resource it
// does not own: a ceiling-raising lock only ever masks signals on its own
// core, so it cannot protect an access to a resource another core writes.
// A core's own init listing another core's late resource is the opposite
// case and is legitimate: buildBarrierGraph turns exactly that reference
// into a wait edge, so the reading core blocks on the owner's init barrier
// before it ever touches the value (spec.md §4.5 step 6, §9 "Cyclic
// init/resource references").
func validateLateResourceAccess(app *rtapp.Application) error {
	for _, t := range app.Tasks {
		for _, rname := range t.Resources {
			r, ok := app.Resources[rname]
			if !ok || !r.Late {
				continue // reported by validateResourceSharing
			}
			if r.OwnerCore != t.Core {
				return xerrors.Errorf("task %q (core %d) locks late resource %q owned by core %d; cross-core locks are not supported", t.Name, t.Core, rname, r.OwnerCore)
			}
		}
	}
	return nil
}

func sortedCoreIDs(app *rtapp.Application) []int {
	ids := make([]int, 0, len(app.CoreSpecs))
	for n := range app.CoreSpecs {
		ids = append(ids, n)
	}
	sort.Ints(ids)
	return ids
}
