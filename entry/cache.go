// cache.go - a concurrency-safe cache of resolved symlink targets
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

	"github.com/puzpuzpuz/xsync/v3"
)

// ResolveCache memoizes filepath.EvalSymlinks + os.Stat results across
// workers during a single run, the same role cmp/cache.go's statCache
// plays for the teacher's DirTree: most trees have a small number of
// distinct symlink targets reused across many directories (shared
// vendor/ or lib/ symlinks), so caching avoids repeating the
// canonicalization syscalls per worker.
type ResolveCache struct {
	targets *xsync.MapOf[string, resolved]
}

type resolved struct {
	path string
	mode os.FileMode
}

// NewResolveCache creates an empty cache.
func NewResolveCache() *ResolveCache {
	return &ResolveCache{
		targets: xsync.NewMapOf[string, resolved](),
	}
}

// Resolve canonicalizes raw (a symlink path) and returns its target's
// path and type, consulting and populating the cache.
func (c *ResolveCache) Resolve(raw string, evalSymlinks func(string) (string, error)) (string, Type, error) {
	if r, ok := c.targets.Load(raw); ok {
		return r.path, typeFromMode(r.mode), nil
	}

	target, typ, err := resolveVia(raw, evalSymlinks)
	if err != nil {
		return "", Other, err
	}

	r := resolved{path: target, mode: modeOf(typ)}
	r, _ = c.targets.LoadOrStore(raw, r)
	return r.path, typeFromMode(r.mode), nil
}

// resolveSymlink canonicalizes raw without any memoization.
func resolveSymlink(raw string) (string, Type, error) {
	return resolveVia(raw, filepath.EvalSymlinks)
}

func resolveVia(raw string, evalSymlinks func(string) (string, error)) (string, Type, error) {
	target, err := evalSymlinks(raw)
	if err != nil {
		return "", Other, &Error{"canonicalize", raw, err}
	}

	fi, err := os.Stat(target)
	if err != nil {
		return "", Other, &Error{"stat-target", target, err}
	}

	return target, typeFromMode(fi.Mode()), nil
}

// modeOf recovers a representative os.FileMode for a Type, sufficient
// for round-tripping through the cache (only the type bits matter to
// callers; permission bits are never consulted from a cached entry).
func modeOf(t Type) os.FileMode {
	switch t {
	case Directory:
		return os.ModeDir
	case Symlink:
		return os.ModeSymlink
	case Regular:
		return 0
	case BlockDevice:
		return os.ModeDevice
	case CharDevice:
		return os.ModeDevice | os.ModeCharDevice
	case Fifo:
		return os.ModeNamedPipe
	case Socket:
		return os.ModeSocket
	default:
		return os.ModeIrregular
	}
}

// Clear purges the cache. Call once a run completes; the cache is not
// needed past that point.
func (c *ResolveCache) Clear() {
	c.targets.Clear()
}
