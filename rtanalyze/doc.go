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

// Package rtanalyze implements the analyzer: spec.md §4.5. It consumes a
// validated-shape rtapp.Application and deterministically produces a Plan
// (priority→signal assignment per core, resource ceilings, per-task
// free-slot layout, initialization-barrier graph) consumed by
// rtruntime.Build, or rejects the application with a wrapped error
// identifying which of Validate's four checks it fails: identifier
// collisions, undeclared spawn/schedule targets, cross-core sharing of a
// non-late resource, and a task locking another core's late resource.
package rtanalyze
