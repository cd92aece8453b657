// cycle.go - symlink-follow cycle guard
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

import (
	"fmt"

	"github.com/opencoff/go-dircmp/entry"
	"github.com/puzpuzpuz/xsync/v3"
)

// cycleGuard answers spec.md section 9's open question for the
// follow-symlink policy: a directory reached through a resolved symlink
// is only ever pushed as new work the first time its (dev, ino) pair is
// seen on that side of the comparison. It lives in this package rather
// than sched, which (per its own doc comment) has no notion of
// filesystems; this is the same dev:ino dedup walk.go's isEntrySeen
// performs for a single tree, generalized to be shared safely across
// every worker goroutine via xsync.MapOf.
type cycleGuard struct {
	left  *xsync.MapOf[string, struct{}]
	right *xsync.MapOf[string, struct{}]
}

func newCycleGuard() *cycleGuard {
	return &cycleGuard{
		left:  xsync.NewMapOf[string, struct{}](),
		right: xsync.NewMapOf[string, struct{}](),
	}
}

// enter reports whether v (a directory reached via a followed symlink on
// the given side) is being visited for the first time. Subsequent visits
// of the same (dev, ino) pair - a symlink cycle, or two different paths
// resolving to the same directory - are rejected so the traversal always
// terminates.
func (g *cycleGuard) enter(side int, v *entry.View) (bool, error) {
	m, err := v.Stat()
	if err != nil {
		return false, err
	}

	key := fmt.Sprintf("%d:%d", m.Dev, m.Ino)

	tbl := g.left
	if side == 1 {
		tbl = g.right
	}
	_, seen := tbl.LoadOrStore(key, struct{}{})
	return !seen, nil
}
