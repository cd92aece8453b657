// list.go - read and sort one directory's entries
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

package entry

import (
	"os"
	"path/filepath"
	"sort"
)

// List reads the children of dir and returns them as a slice of *View,
// sorted by SortKey: TypeOrder first (directory, symlink, regular,
// other), then lexicographic on the raw name bytes within a type class.
// The sort is unstable, matching spec - duplicate names cannot occur
// within one directory so stability does not matter.
//
// When follow is true and a raw entry is a symlink, its target is
// canonicalized and (re)stat'd via cache (see ResolveCache); ObservedType
// and Path() then reflect the target, not the symlink itself.
// Enumeration, stat, and canonicalization errors are all fatal and
// returned as-is (wrapped in *Error) - a partial, silently-incomplete
// listing would mask real differences. cache may be nil, in which case
// every symlink is resolved without memoization.
func List(dir string, follow bool, cache *ResolveCache) ([]*View, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, &Error{"readdir", dir, err}
	}

	views := make([]*View, 0, len(ents))
	for _, de := range ents {
		full := filepath.Join(dir, de.Name())

		v := &View{
			Name: de.Name(),
			path: full,
		}

		rawType := typeFromMode(de.Type())
		if follow && rawType == Symlink {
			var (
				target string
				typ    Type
				err    error
			)
			if cache != nil {
				target, typ, err = cache.Resolve(full, filepath.EvalSymlinks)
			} else {
				target, typ, err = resolveSymlink(full)
			}
			if err != nil {
				return nil, err
			}

			v.ObservedType = typ
			v.ResolvedPath = target
			v.path = target
		} else {
			v.ObservedType = rawType
		}

		views = append(views, v)
	}

	sort.Slice(views, func(i, j int) bool {
		return less(views[i], views[j])
	})

	return views, nil
}

// less implements the SortKey ordering: (TypeOrder, name).
func less(a, b *View) bool {
	oa, ob := a.ObservedType.Order(), b.ObservedType.Order()
	if oa != ob {
		return oa < ob
	}
	return a.Name < b.Name
}
