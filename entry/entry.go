// entry.go - a directory entry view honoring the active symlink policy
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

// Package entry represents one directory entry after enumeration: its
// name, its type (honoring the caller's symlink-follow policy) and,
// lazily, its stat metadata. A View is built while reading a directory
// (a followed symlink's target path is resolved at that point); its stat
// metadata and raw link target are each read on first use and cached.
// It is owned exclusively by the worker goroutine that created it - it
// is never shared across goroutines.
package entry

import (
	"fmt"
	"io/fs"
	"time"

	"golang.org/x/sys/unix"
)

// Type is the kind of filesystem object a View represents. It follows
// file_type_enum's variant set (see original_source/src/file_type_enum.rs)
// with Directory ordered first so recursion work surfaces early for
// stealers.
type Type int

const (
	Directory Type = iota
	Symlink
	Regular
	BlockDevice
	CharDevice
	Fifo
	Socket
	Other
)

func (t Type) String() string {
	switch t {
	case Directory:
		return "directory"
	case Symlink:
		return "symlink"
	case Regular:
		return "regular"
	case BlockDevice:
		return "block-device"
	case CharDevice:
		return "char-device"
	case Fifo:
		return "fifo"
	case Socket:
		return "socket"
	default:
		return "other"
	}
}

// Order returns the TypeOrder rank used for sorting: 0 = directory,
// 1 = symlink, 2 = regular file, 3 = everything else. The ranking is a
// load-balancing device, not a semantic one: it exists so that directory
// work (recursion) surfaces at the low end of the sorted slice while leaf
// comparisons are popped first from the high end, keeping directory work
// available for stealers as long as possible.
func (t Type) Order() int {
	switch t {
	case Directory:
		return 0
	case Symlink:
		return 1
	case Regular:
		return 2
	default:
		return 3
	}
}

func typeFromMode(m fs.FileMode) Type {
	switch {
	case m.IsDir():
		return Directory
	case m&fs.ModeSymlink != 0:
		return Symlink
	case m.IsRegular():
		return Regular
	case m&fs.ModeDevice != 0 && m&fs.ModeCharDevice != 0:
		return CharDevice
	case m&fs.ModeDevice != 0:
		return BlockDevice
	case m&fs.ModeNamedPipe != 0:
		return Fifo
	case m&fs.ModeSocket != 0:
		return Socket
	default:
		return Other
	}
}

// Meta is the lazily-populated stat metadata of a View. It is read via
// golang.org/x/sys/unix rather than the teacher's raw syscall.Stat_t
// (info.go / info_darbsd.go), which keeps dev/ino/rdev/nlink/uid/gid
// access off build-tagged per-GOOS files for the Linux target this tool
// is built against; unix.Stat_t's Mtim field is Linux/BSD-shaped
// (darwin's is Mtimespec), so porting to darwin would still need a
// build-tagged accessor here, same as the teacher's own info_darwin.go.
type Meta struct {
	Size  int64
	Mtime time.Time
	Dev   uint64
	Ino   uint64
	Rdev  uint64
	Nlink uint32
	Uid   uint32
	Gid   uint32
}

// View represents one directory entry after enumeration.
type View struct {
	// Name is the raw entry name, suitable for filesystem-native
	// byte-wise comparison (SortKey).
	Name string

	// ObservedType reflects the target's type when the active policy
	// follows symlinks and this entry is a symlink; otherwise it
	// reflects the entry itself.
	ObservedType Type

	// ResolvedPath holds the canonicalized target path, populated only
	// when the follow policy resolved a symlink.
	ResolvedPath string

	// path is what Stat()/Open() should use: the entry's own path,
	// or ResolvedPath when one was recorded.
	path string

	// linkTarget is the raw (unresolved) textual target of a symlink,
	// read on demand for the no-follow symlink comparator.
	linkTarget *string

	meta    *Meta
	metaErr error
}

// Path returns the path to stat/open for this entry: the resolved target
// when the follow policy applies, otherwise the entry's own path.
func (v *View) Path() string { return v.path }

// Stat lazily populates and returns this entry's metadata. It is cached:
// a View is mutated at most once for this purpose.
func (v *View) Stat() (*Meta, error) {
	if v.meta != nil || v.metaErr != nil {
		return v.meta, v.metaErr
	}

	var st unix.Stat_t
	if err := unix.Stat(v.path, &st); err != nil {
		v.metaErr = &Error{"stat", v.path, err}
		return nil, v.metaErr
	}

	v.meta = &Meta{
		Size:  st.Size,
		Mtime: time.Unix(st.Mtim.Sec, st.Mtim.Nsec),
		Dev:   uint64(st.Dev),
		Ino:   st.Ino,
		Rdev:  uint64(st.Rdev),
		Nlink: uint32(st.Nlink),
		Uid:   st.Uid,
		Gid:   st.Gid,
	}
	return v.meta, nil
}

// LinkTarget reads and caches the raw (unresolved) textual target of a
// symlink View, used by the no-follow symlink comparator.
func (v *View) LinkTarget() (string, error) {
	if v.linkTarget != nil {
		return *v.linkTarget, nil
	}

	buf := make([]byte, 4096)
	for {
		n, err := unix.Readlink(v.path, buf)
		if err != nil {
			return "", &Error{"readlink", v.path, err}
		}
		if n < len(buf) {
			s := string(buf[:n])
			v.linkTarget = &s
			return s, nil
		}
		// target didn't fit; grow and retry
		buf = make([]byte, len(buf)*2)
	}
}

// Error is the descriptive error type for the entry package, in the same
// shape as cmp/errors.go and walk/errors.go.
type Error struct {
	Op   string
	Name string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("entry: %s '%s': %s", e.Op, e.Name, e.Err.Error())
}

func (e *Error) Unwrap() error { return e.Err }

var _ error = &Error{}
