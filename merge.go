// merge.go - the per-directory sorted pair-merge
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
	"path"

	"github.com/opencoff/go-dircmp/entry"
	"github.com/opencoff/go-dircmp/sched"
)

// mergeProcess builds the sched.Process that drives one run: for each
// relative path popped off a worker's deque, it lists both sides' children
// and merges the two sorted listings exactly as original_source's
// process_path does - consuming from the high (lexicographically
// greatest) end of each slice, classifying by TypeOrder on a tie.
func mergeProcess(leftRoot, rightRoot string, cfg *config) sched.Process {
	return func(w *sched.WorkerHandle, rel sched.RelativePath) error {
		ldir := joinRoot(leftRoot, rel)
		rdir := joinRoot(rightRoot, rel)

		lhs, err := entry.List(ldir, cfg.followSymlinks, cfg.cache)
		if err != nil {
			return err
		}
		rhs, err := entry.List(rdir, cfg.followSymlinks, cfg.cache)
		if err != nil {
			return err
		}

		lhs = filterExcluded(lhs, cfg.excludes)
		rhs = filterExcluded(rhs, cfg.excludes)

		return mergePair(w, rel, leftRoot, rightRoot, lhs, rhs, cfg)
	}
}

// mergePair consumes lhs and rhs - both sorted by entry.View's SortKey -
// from their high end, emitting a DiffEvent for every name present on
// only one side and dispatching by type for every matching pair. It
// mutates neither slice's backing array beyond shrinking its own local
// view of it, since each worker owns the slices entry.List just handed it.
func mergePair(w *sched.WorkerHandle, rel sched.RelativePath, leftRoot, rightRoot string, lhs, rhs []*entry.View, cfg *config) error {
	for len(lhs) > 0 || len(rhs) > 0 {
		switch {
		case len(lhs) == 0:
			cfg.emitter.Emit(leftRoot, rightRoot, DiffEvent{Kind: InRightOnly, Dir: rel, Name: rhs[len(rhs)-1].Name})
			rhs = rhs[:len(rhs)-1]

		case len(rhs) == 0:
			cfg.emitter.Emit(leftRoot, rightRoot, DiffEvent{Kind: InLeftOnly, Dir: rel, Name: lhs[len(lhs)-1].Name})
			lhs = lhs[:len(lhs)-1]

		default:
			l := lhs[len(lhs)-1]
			r := rhs[len(rhs)-1]

			switch {
			case greater(l, r):
				cfg.emitter.Emit(leftRoot, rightRoot, DiffEvent{Kind: InLeftOnly, Dir: rel, Name: l.Name})
				lhs = lhs[:len(lhs)-1]

			case greater(r, l):
				cfg.emitter.Emit(leftRoot, rightRoot, DiffEvent{Kind: InRightOnly, Dir: rel, Name: r.Name})
				rhs = rhs[:len(rhs)-1]

			default:
				lhs = lhs[:len(lhs)-1]
				rhs = rhs[:len(rhs)-1]
				if err := comparePair(w, rel, leftRoot, rightRoot, l, r, cfg); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// greater reports whether a sorts after b under SortKey - (TypeOrder,
// name) - meaning a is the one that should be popped and emitted when the
// other side has no matching entry at this position.
func greater(a, b *entry.View) bool {
	oa, ob := a.ObservedType.Order(), b.ObservedType.Order()
	if oa != ob {
		return oa > ob
	}
	return a.Name > b.Name
}

// comparePair dispatches an equal-named pair by type, mirroring
// process_path's match on file_type: a type mismatch is always
// Different; matching directories recurse by pushing new work; matching
// symlinks and regular files go to their respective comparators; any
// other matching type (block/char device, fifo, socket) is rejected with
// UnsupportedTypeError since spec.md section 4.2 leaves it explicitly
// unimplemented, same as the original's bail!.
func comparePair(w *sched.WorkerHandle, rel sched.RelativePath, leftRoot, rightRoot string, l, r *entry.View, cfg *config) error {
	if l.ObservedType != r.ObservedType {
		cfg.emitter.Emit(leftRoot, rightRoot, DiffEvent{Kind: Different, Dir: rel, Name: l.Name})
		return nil
	}

	switch l.ObservedType {
	case entry.Directory:
		return recurseInto(w, rel, l, r, cfg)

	case entry.Symlink:
		eq, err := symlinksEqual(l, r)
		if err != nil {
			return err
		}
		if !eq {
			cfg.emitter.Emit(leftRoot, rightRoot, DiffEvent{Kind: Different, Dir: rel, Name: l.Name})
		}
		return nil

	case entry.Regular:
		return compareRegular(rel, leftRoot, rightRoot, l, r, cfg)

	default:
		return &UnsupportedTypeError{Path: rel.Join(l.Name).String(), Type: l.ObservedType.String()}
	}
}

// recurseInto pushes rel/name as new work, unless the active policy
// follows symlinks and a cycle guard rejects one or both sides as an
// already-visited (dev, ino) pair - spec.md section 9's open question on
// symlink cycles, resolved here rather than in sched, which has no
// notion of filesystems.
func recurseInto(w *sched.WorkerHandle, rel sched.RelativePath, l, r *entry.View, cfg *config) error {
	if cfg.followSymlinks && cfg.cycles != nil {
		if l.ResolvedPath != "" {
			first, err := cfg.cycles.enter(0, l)
			if err != nil {
				return err
			}
			if !first {
				return nil
			}
		}
		if r.ResolvedPath != "" {
			first, err := cfg.cycles.enter(1, r)
			if err != nil {
				return err
			}
			if !first {
				return nil
			}
		}
	}

	w.Push(rel.Join(l.Name))
	return nil
}

// compareRegular implements the Different / SameContentDifferentMTime /
// equal trichotomy for a pair of regular files.
func compareRegular(rel sched.RelativePath, leftRoot, rightRoot string, l, r *entry.View, cfg *config) error {
	eq, err := filesEqual(l, r)
	if err != nil {
		return err
	}
	if !eq {
		cfg.emitter.Emit(leftRoot, rightRoot, DiffEvent{Kind: Different, Dir: rel, Name: l.Name})
		return nil
	}

	if cfg.ignoreAttr != fullAttrSet || cfg.checkMtime {
		if cfg.checkMtime {
			lm, err := l.Stat()
			if err != nil {
				return err
			}
			rm, err := r.Stat()
			if err != nil {
				return err
			}
			if !lm.Mtime.Equal(rm.Mtime) {
				cfg.emitter.Emit(leftRoot, rightRoot, DiffEvent{Kind: SameContentDifferentMTime, Dir: rel, Name: l.Name})
			}
		}

		if cfg.ignoreAttr != fullAttrSet {
			attrsEq, err := extendedAttrsEqual(l, r, cfg.ignoreAttr)
			if err != nil {
				return err
			}
			if !attrsEq {
				cfg.emitter.Emit(leftRoot, rightRoot, DiffEvent{Kind: Different, Dir: rel, Name: l.Name})
			}
		}
	}
	return nil
}

// fullAttrSet disables every extended check: the default, matching
// spec.md's four-category classification with no supplemented checks.
const fullAttrSet = IgnoreUID | IgnoreGID | IgnoreXattr

func filterExcluded(views []*entry.View, patterns []string) []*entry.View {
	if len(patterns) == 0 {
		return views
	}
	out := views[:0]
	for _, v := range views {
		excluded := false
		for _, pat := range patterns {
			if ok, _ := path.Match(pat, v.Name); ok {
				excluded = true
				break
			}
		}
		if !excluded {
			out = append(out, v)
		}
	}
	return out
}

func joinRoot(root string, rel sched.RelativePath) string {
	if len(rel) == 0 {
		return root
	}
	return root + "/" + rel.String()
}
