// symlink.go - no-follow symlink comparison
//
// (c) 2024 Sudhi Herle <sudhi@herle.net>
//
// Licensing Terms: GPLv2
//
// If you need a commercial license for this work, please contact
// the author.
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim  is made to its
// suitability for any purpose.

package dircmp

import "github.com/opencoff/go-dircmp/entry"

// symlinksEqual implements the no-follow symlink policy's comparator
// (spec.md section 4.4): two symlinks are equal iff their raw, unresolved
// textual targets match byte for byte. It is never consulted under the
// follow policy - there, entry.List has already resolved each symlink to
// its target's type and path, so a symlink pair never reaches the
// merge's symlink branch in the first place.
func symlinksEqual(lhs, rhs *entry.View) (bool, error) {
	lt, err := lhs.LinkTarget()
	if err != nil {
		return false, err
	}
	rt, err := rhs.LinkTarget()
	if err != nil {
		return false, err
	}
	return lt == rt, nil
}
