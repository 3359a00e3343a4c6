// Package netfs wraps filesystem operations with the retry and
// atomic-rename behavior needed to survive the transient failure modes
// of CIFS and NFS network mounts. When the configured mode is None,
// every call below degrades to a single direct attempt.
package netfs

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/laminastore/lamina/internal/logger"
)

// Mode selects which network filesystem's failure modes the retry
// pipeline classifies as transient.
type Mode string

const (
	ModeNone Mode = "None"
	ModeCIFS Mode = "CIFS"
	ModeNFS  Mode = "NFS"
)

// Policy configures the retry pipeline. RetryCount is the number of
// retries after the first attempt, so MaxAttempts = 1 + RetryCount.
type Policy struct {
	Mode         Mode
	RetryCount   int
	RetryDelayMs int
}

func (p Policy) maxAttempts() int {
	if p.RetryCount < 0 {
		return 1
	}
	return 1 + p.RetryCount
}

func (p Policy) baseDelay() time.Duration {
	if p.RetryDelayMs <= 0 {
		return 100 * time.Millisecond
	}
	return time.Duration(p.RetryDelayMs) * time.Millisecond
}

// cifsNeedles are lower-cased substrings of a CIFS I/O error message
// that mark it as transient.
var cifsNeedles = []string{
	"being used by another process",
	"network path was not found",
	"access is denied",
	"the process cannot access",
	"sharing violation",
	"specified network name is no longer available",
	"directory not empty",
	"the directory is not empty",
}

// nfsNeedles are lower-cased substrings of an NFS I/O error message
// that mark it as transient.
var nfsNeedles = []string{
	"stale file handle",
	"stale nfs file handle",
	"input/output error",
	"no such file or directory",
}

// isRetryable classifies err per the configured mode's retry predicate.
func isRetryable(mode Mode, err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())

	switch mode {
	case ModeCIFS:
		for _, needle := range cifsNeedles {
			if strings.Contains(msg, needle) {
				return true
			}
		}
		return os.IsPermission(err)
	case ModeNFS:
		if os.IsPermission(err) {
			return false
		}
		for _, needle := range nfsNeedles {
			if strings.Contains(msg, needle) {
				return true
			}
		}
		if runtime.GOOS == "linux" {
			var errno syscall.Errno
			if errors.As(err, &errno) && errno == 116 { // ESTALE
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Do runs fn, retrying per policy when its mode is CIFS or NFS and the
// returned error matches that mode's retry predicate. On exhaustion the
// last error is returned verbatim. Each retry is logged with the
// attempt number, delay, and error. ctx cancellation is honored during
// the backoff wait.
func Do(ctx context.Context, policy Policy, op string, fn func() error) error {
	if policy.Mode == ModeNone {
		return fn()
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = policy.baseDelay()
	bo.Multiplier = 2
	bo.RandomizationFactor = 0.25
	bo.MaxElapsedTime = 0 // bounded by attempt count below, not elapsed time

	maxAttempts := policy.maxAttempts()
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if attempt == maxAttempts || !isRetryable(policy.Mode, lastErr) {
			return lastErr
		}

		delay := bo.NextBackOff()
		logger.WarnCtx(ctx, "netfs: retrying operation",
			logger.Operation(op),
			logger.Attempt(attempt),
			logger.MaxRetries(policy.RetryCount),
			logger.BackoffMs(float64(delay.Milliseconds())),
			logger.Err(lastErr))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("netfs: %s failed after %d attempts: %w", op, maxAttempts, lastErr)
}

// AtomicMove renames src to dst. In CIFS mode, when dst already exists,
// it performs a three-step safe-overwrite (rename dst aside, rename src
// onto dst, delete or restore the backup) so a crash mid-rename never
// leaves dst missing. In NFS or no-network mode a single
// rename-with-overwrite is used, which POSIX rename already provides
// atomically. Every step is wrapped in the retry pipeline.
func AtomicMove(ctx context.Context, policy Policy, src, dst string) error {
	if policy.Mode != ModeCIFS {
		if err := Do(ctx, policy, "atomic_move", func() error {
			return os.Rename(src, dst)
		}); err != nil {
			return err
		}
		return fsyncDir(filepath.Dir(dst))
	}

	var destExists bool
	if err := Do(ctx, policy, "atomic_move_stat", func() error {
		_, statErr := os.Stat(dst)
		if statErr == nil {
			destExists = true
			return nil
		}
		if os.IsNotExist(statErr) {
			destExists = false
			return nil
		}
		return statErr
	}); err != nil {
		return err
	}

	if !destExists {
		if err := Do(ctx, policy, "atomic_move", func() error {
			return os.Rename(src, dst)
		}); err != nil {
			return err
		}
		return fsyncDir(filepath.Dir(dst))
	}

	backupPath := fmt.Sprintf("%s.backup_%d", dst, rand.Int63())

	if err := Do(ctx, policy, "atomic_move_backup", func() error {
		return os.Rename(dst, backupPath)
	}); err != nil {
		return fmt.Errorf("netfs: backing up existing destination: %w", err)
	}

	if err := Do(ctx, policy, "atomic_move_replace", func() error {
		return os.Rename(src, dst)
	}); err != nil {
		restoreErr := Do(ctx, policy, "atomic_move_restore", func() error {
			return os.Rename(backupPath, dst)
		})
		if restoreErr != nil {
			return fmt.Errorf("netfs: replace failed (%v) and restoring backup also failed: %w", err, restoreErr)
		}
		return fmt.Errorf("netfs: replace failed, original destination restored: %w", err)
	}

	_ = Do(ctx, policy, "atomic_move_cleanup_backup", func() error {
		return os.Remove(backupPath)
	})

	return fsyncDir(filepath.Dir(dst))
}

// EnsureDirectoryExists creates path and any missing parents. If a
// regular file already occupies path it returns an error rather than
// silently replacing it. Concurrent creation of the same directory by
// another process is tolerated.
func EnsureDirectoryExists(ctx context.Context, policy Policy, path string) error {
	return Do(ctx, policy, "ensure_directory", func() error {
		info, err := os.Stat(path)
		if err == nil {
			if !info.IsDir() {
				return fmt.Errorf("netfs: %s exists and is a regular file, not a directory", path)
			}
			return nil
		}
		if !os.IsNotExist(err) {
			return err
		}
		if mkErr := os.MkdirAll(path, 0o755); mkErr != nil {
			if info, statErr := os.Stat(path); statErr == nil && info.IsDir() {
				return nil
			}
			return mkErr
		}
		return nil
	})
}

// DeleteDirectoryIfEmpty removes path and walks upward removing each
// now-empty parent, stopping at (and never removing) boundary. A
// directory already gone — removed concurrently by another deletion —
// is treated as success, not an error.
func DeleteDirectoryIfEmpty(ctx context.Context, policy Policy, path, boundary string) error {
	boundary = filepath.Clean(boundary)
	current := filepath.Clean(path)

	for {
		if current == boundary || !strings.HasPrefix(current, boundary) {
			return nil
		}

		err := Do(ctx, policy, "delete_directory_if_empty", func() error {
			removeErr := os.Remove(current)
			if removeErr == nil || os.IsNotExist(removeErr) {
				return nil
			}
			if isNotEmpty(removeErr) {
				return errNotEmptyStop
			}
			return removeErr
		})

		if errors.Is(err, errNotEmptyStop) {
			return nil
		}
		if err != nil {
			return err
		}

		parent := filepath.Dir(current)
		if parent == current {
			return nil
		}
		current = parent
	}
}

// errNotEmptyStop is a sentinel used internally to stop the upward walk
// without surfacing "directory not empty" as a failure: a non-empty
// parent means a sibling is still using it, which is expected.
var errNotEmptyStop = errors.New("netfs: directory not empty, stopping upward cleanup")

func isNotEmpty(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "directory not empty") || strings.Contains(msg, "not empty")
}
