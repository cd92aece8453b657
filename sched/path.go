// path.go - relative paths shared by every work item and diff event
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

// Package sched implements the work-stealing traversal scheduler: one
// LIFO deque per worker, cross-worker stealers, and the non_idle
// termination protocol described in spec.md section 4.5. It has no
// notion of filesystems or diffs - it schedules opaque RelativePath work
// items and calls back into caller-supplied processing.
package sched

import "strings"

// RelativePath is a sequence of path components interpreted against both
// comparison roots. The empty sequence denotes the roots themselves.
// A child's RelativePath always equals its parent's RelativePath with
// one component appended - Join is the only way to grow one, and it
// always returns a fresh slice so that the parent's path is never
// mutated by a child holding a reference into the same backing array.
type RelativePath []string

// Root is the empty relative path, denoting the two comparison roots.
var Root = RelativePath(nil)

// Join returns a new RelativePath with name appended.
func (p RelativePath) Join(name string) RelativePath {
	next := make(RelativePath, len(p)+1)
	copy(next, p)
	next[len(p)] = name
	return next
}

// String renders the relative path the way a filesystem join would,
// with the empty path rendering as "".
func (p RelativePath) String() string {
	return strings.Join(p, "/")
}
