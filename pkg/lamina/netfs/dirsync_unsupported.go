//go:build !linux && !darwin

package netfs

// fsyncDir is a no-op on platforms without a directory-fsync syscall
// reachable through golang.org/x/sys/unix.
func fsyncDir(dir string) error {
	return nil
}
