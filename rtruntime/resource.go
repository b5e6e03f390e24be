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

import "github.com/snapcore/rtcore/rtprio"

// Resource is the generated user-facing proxy from spec.md §6:
// "resources.r.lock(|&mut r| ...) is the SRP critical section". Its
// value is boxed (interface{}) rather than generated as a concrete typed
// field, since rtruntime binds resources at Build time rather than at
// compile time; f type-asserts *value to the type the embedding program
// agreed on when it called Registry.RegisterResource or returned the
// value from an InitFunc.
type Resource struct {
	name    string
	core    int
	ceiling uint8 // local rank within the owning core's priority range
	cell    *rtprio.Cell
	box     interface{}
}

// Name returns the resource's declared symbol.
func (r *Resource) Name() string { return r.name }

// Lock runs f with the resource's value, raising the calling executor's
// dynamic priority to the resource's ceiling for the duration: spec.md
// §4.3. f may replace *value with a new boxed value.
func (r *Resource) Lock(f func(value *interface{})) {
	rtprio.Lock(r.cell, &r.box, r.ceiling, f)
}
