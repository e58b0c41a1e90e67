//go:build linux
// +build linux

package segment

import (
	"os"

	"golang.org/x/sys/unix"
)

// advise hints the kernel that segment files are read sequentially.
func advise(f *os.File) {
	_ = unix.Fadvise(int(f.Fd()), 0, 0, unix.FADV_SEQUENTIAL)
}
