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

package rtprio

// Lock runs f with exclusive access to *res, raising the calling
// executor's dynamic priority to ceiling for the duration if (and only
// if) it is not already there or above — the Stack Resource Policy
// critical section described in spec.md §4.3. No lock is ever actually
// taken: nothing but f itself ever runs between Raise and Lower (see
// SPEC_FULL.md §1), so once the priority cell excludes every peer that
// could touch *res, mutual exclusion is free. Raise/Lower only update
// the cell's current priority; the next rtsys.RtSigtimedwait call is
// what turns that into which signals the kernel may actually deliver.
func Lock[T any](cell *Cell, res *T, ceiling uint8, f func(*T)) {
	previous, raised := cell.Raise(ceiling)
	if !raised {
		f(res)
		return
	}
	f(res)
	cell.Lower(previous)
}
