// filecmp.go - byte-wise regular file comparison
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
	"bytes"
	"io"
	"os"

	"github.com/opencoff/go-dircmp/entry"
	"github.com/opencoff/go-mmap"
)

// filesEqual implements spec.md section 4.3's comparator: a size
// fast-path, then a common-prefix byte comparison. lhs is streamed
// through mmap.Reader (the same primitive copy_mmap.go uses to move
// file content without a user-space read loop); rhs is read directly in
// lock-step with io.ReadFull into a buffer exactly as long as each lhs
// chunk, so every lhs window is compared against the same byte range of
// rhs. Once a window differs, the remaining chunks are skipped without
// reading rhs.
func filesEqual(lhs, rhs *entry.View) (bool, error) {
	lm, err := lhs.Stat()
	if err != nil {
		return false, err
	}
	rm, err := rhs.Stat()
	if err != nil {
		return false, err
	}
	if lm.Size != rm.Size {
		return false, nil
	}
	if lm.Size == 0 {
		return true, nil
	}

	lf, err := os.Open(lhs.Path())
	if err != nil {
		return false, &Error{"open", lhs.Path(), err}
	}
	defer lf.Close()

	rf, err := os.Open(rhs.Path())
	if err != nil {
		return false, &Error{"open", rhs.Path(), err}
	}
	defer rf.Close()

	equal := true
	rbuf := make([]byte, 0, 256*1024)
	_, err = mmap.Reader(lf, func(b []byte) error {
		if !equal {
			return nil
		}
		if cap(rbuf) < len(b) {
			rbuf = make([]byte, len(b))
		}
		rbuf = rbuf[:len(b)]
		if _, err := io.ReadFull(rf, rbuf); err != nil {
			return &Error{"read", rhs.Path(), err}
		}
		if !bytes.Equal(b, rbuf) {
			equal = false
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return equal, nil
}
