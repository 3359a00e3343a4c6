//go:build linux || darwin

package netfs

import (
	"os"

	"golang.org/x/sys/unix"
)

// fsyncDir fsyncs dir's own directory entry, so a completed rename
// survives a crash even if the containing directory's entry update was
// still sitting in the page cache. os.File.Sync calls fsync(2)
// internally too, but going through unix.Fsync directly keeps this on
// the same syscall surface as the rest of the atomic-rename path
// instead of routing through *os.File for a call that never touches
// its buffering.
func fsyncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return unix.Fsync(int(f.Fd()))
}
