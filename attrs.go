// attrs.go - supplemental extended-attribute/ownership comparison
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
	"strings"

	"github.com/opencoff/go-dircmp/entry"
	"github.com/pkg/xattr"
)

// IgnoreFlag captures the attributes WithIgnoreAttr should leave out of
// the extended equality check. Ported from cmp.go's IgnoreFlag: the
// distilled spec only classifies by size/mtime/content, but the teacher
// (and its own test DSL) always additionally compared uid, gid, link
// count and xattr - this supplements the uid, gid and xattr part of that
// dropped behavior as an opt-in; link count is not compared.
type IgnoreFlag uint

const (
	IgnoreUID IgnoreFlag = 1 << iota
	IgnoreGID
	IgnoreXattr
)

func (f IgnoreFlag) String() string {
	var z []string
	if f&IgnoreUID > 0 {
		z = append(z, "uid")
	}
	if f&IgnoreGID > 0 {
		z = append(z, "gid")
	}
	if f&IgnoreXattr > 0 {
		z = append(z, "xattr")
	}
	return strings.Join(z, ",")
}

// extendedAttrsEqual folds uid/gid/xattr equality into the classification
// of an already size-and-content-equal pair of regular files; directory
// and symlink pairs never reach it. It is only consulted when the caller opted in via
// WithIgnoreAttr's complement - i.e. when at least one of these checks is
// not ignored and the option set is non-empty - so that the common case
// (spec.md's four categories only) never pays for a single extra stat or
// xattr.List syscall.
func extendedAttrsEqual(lhs, rhs *entry.View, ignore IgnoreFlag) (bool, error) {
	if ignore&IgnoreUID == 0 || ignore&IgnoreGID == 0 {
		lm, err := lhs.Stat()
		if err != nil {
			return false, err
		}
		rm, err := rhs.Stat()
		if err != nil {
			return false, err
		}
		if ignore&IgnoreUID == 0 && lm.Uid != rm.Uid {
			return false, nil
		}
		if ignore&IgnoreGID == 0 && lm.Gid != rm.Gid {
			return false, nil
		}
	}

	if ignore&IgnoreXattr == 0 {
		eq, err := xattrEqual(lhs.Path(), rhs.Path())
		if err != nil {
			return false, err
		}
		if !eq {
			return false, nil
		}
	}

	return true, nil
}

func xattrEqual(lhs, rhs string) (bool, error) {
	a, err := listXattr(lhs)
	if err != nil {
		return false, err
	}
	b, err := listXattr(rhs)
	if err != nil {
		return false, err
	}

	if len(a) != len(b) {
		return false, nil
	}
	for k, v := range a {
		if b[k] != v {
			return false, nil
		}
	}
	return true, nil
}

// listXattr reads every extended attribute of nm into a name->value map,
// the same shape as the teacher's Xattr type (xattr.go), built directly
// on github.com/pkg/xattr rather than through fio.Info's marshaled form.
func listXattr(nm string) (map[string]string, error) {
	names, err := xattr.LList(nm)
	if err != nil {
		return nil, &Error{"xattr-list", nm, err}
	}

	m := make(map[string]string, len(names))
	for _, n := range names {
		v, err := xattr.LGet(nm, n)
		if err != nil {
			return nil, &Error{"xattr-get", nm, err}
		}
		m[n] = string(v)
	}
	return m, nil
}
