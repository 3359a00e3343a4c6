// Package lockmgr provides the two interchangeable lock-manager
// backends that serialize metadata file access: an in-process
// reader-writer table for single-node deployments, and a BadgerDB-backed
// lease table for cluster-wide coordination. Both are keyed by file
// path and expose the same Manager contract, so callers never know or
// care which backend is wired in.
package lockmgr

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/laminastore/lamina/pkg/lamina/errs"
)

// Mode selects the strength of a lock acquisition.
type Mode int

const (
	// ModeRead is a shared lock: many concurrent readers allowed.
	ModeRead Mode = iota
	// ModeWrite is an exclusive lock: no other reader or writer allowed.
	// Delete operations acquire ModeWrite, since a delete mutates the
	// same file a write would.
	ModeWrite
)

// Release ends a held lock. It is idempotent-safe to call exactly once;
// callers should defer it immediately after a successful Acquire.
type Release func()

// Manager acquires and releases a single-file lock. The engine never
// holds two file locks at once, so Manager exposes no cross-file
// transaction primitive — only one (path, mode) at a time.
type Manager interface {
	Acquire(ctx context.Context, path string, mode Mode) (Release, error)
}

// normalize produces the canonical lock key for a filesystem path:
// cleaned and made absolute-relative comparison safe regardless of the
// caller's working directory assumptions.
func normalize(path string) string {
	return filepath.Clean(path)
}

// Local is an in-process reader-writer lock table keyed by normalized
// path. Many concurrent readers are allowed per key; a writer excludes
// everyone else. Entries are reference-counted and removed once idle so
// the table does not grow unbounded over the life of the process.
type Local struct {
	mu      sync.Mutex
	entries map[string]*localEntry
}

type localEntry struct {
	lock     sync.RWMutex
	refCount int
}

// NewLocal creates an empty single-process lock table.
func NewLocal() *Local {
	return &Local{entries: make(map[string]*localEntry)}
}

// Acquire blocks until the requested mode is available for path, or ctx
// is cancelled. Cancellation during the wait is honored on a best-effort
// basis: the underlying sync.RWMutex has no cancellable acquire, so a
// cancelled context only prevents acquisition from starting, not an
// in-flight blocking call.
func (l *Local) Acquire(ctx context.Context, path string, mode Mode) (Release, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := normalize(path)
	entry := l.retain(key)

	switch mode {
	case ModeWrite:
		entry.lock.Lock()
	default:
		entry.lock.RLock()
	}

	released := false
	release := func() {
		if released {
			return
		}
		released = true
		if mode == ModeWrite {
			entry.lock.Unlock()
		} else {
			entry.lock.RUnlock()
		}
		l.release(key)
	}

	return release, nil
}

func (l *Local) retain(key string) *localEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[key]
	if !ok {
		entry = &localEntry{}
		l.entries[key] = entry
	}
	entry.refCount++
	return entry
}

func (l *Local) release(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[key]
	if !ok {
		return
	}
	entry.refCount--
	if entry.refCount <= 0 {
		delete(l.entries, key)
	}
}

// Distributed backend key prefixes.
const (
	writeLockPrefix = "lockmgr:w:"
	readLockPrefix  = "lockmgr:r:"
)

// DistributedConfig configures a Distributed lock manager.
type DistributedConfig struct {
	// DB is the shared BadgerDB instance every node in the cluster
	// coordinates through.
	DB *badgerdb.DB
	// KeyPrefix namespaces lock keys, so the same DB can host lock
	// tables for more than one tenant or bucket-set without collision.
	KeyPrefix string
	// LeaseTTL bounds how long a held lock survives a crashed holder
	// before another node can reclaim it.
	LeaseTTL time.Duration
	// PollInterval is how often a blocked Acquire retries.
	PollInterval time.Duration
}

// Distributed is a BadgerDB-backed lock manager identified by
// "<prefix>:<lowercased absolute path>" keys, suitable for coordinating
// lock state across multiple gateway processes sharing the same
// BadgerDB instance. Acquisition waits up to the caller's context
// deadline; failure to acquire within that bound surfaces as an
// operational error rather than blocking forever.
type Distributed struct {
	cfg DistributedConfig
}

// NewDistributed creates a cluster-wide lock manager over cfg.DB.
// LeaseTTL and PollInterval default to 30s and 20ms respectively.
func NewDistributed(cfg DistributedConfig) *Distributed {
	if cfg.LeaseTTL <= 0 {
		cfg.LeaseTTL = 30 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 20 * time.Millisecond
	}
	return &Distributed{cfg: cfg}
}

func (d *Distributed) key(path string) string {
	return d.cfg.KeyPrefix + ":" + strings.ToLower(normalize(path))
}

// Acquire obtains the requested lock mode, retrying on conflict until
// ctx is done. Write locks exclude all readers and the one other
// writer; read locks exclude only a writer. The returned Release
// deletes the caller's lease entry (or entries) from BadgerDB.
func (d *Distributed) Acquire(ctx context.Context, path string, mode Mode) (Release, error) {
	key := d.key(path)
	token := uuid.NewString()

	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()

	for {
		acquired, err := d.tryAcquire(key, token, mode)
		if err != nil {
			return nil, errs.New("lockmgr.Acquire", errs.IOError, "", path, err).WithBackend("badger")
		}
		if acquired {
			release := func() {
				_ = d.releaseToken(key, token, mode)
			}
			return release, nil
		}

		select {
		case <-ctx.Done():
			return nil, errs.New("lockmgr.Acquire", errs.Cancelled, "", path,
				fmt.Errorf("timed out waiting for %v lock: %w", modeName(mode), ctx.Err()))
		case <-ticker.C:
		}
	}
}

// tryAcquire attempts one non-blocking acquisition inside a single
// BadgerDB transaction, so the check-then-set is atomic against other
// nodes racing on the same key.
func (d *Distributed) tryAcquire(key, token string, mode Mode) (bool, error) {
	var acquired bool
	err := d.cfg.DB.Update(func(txn *badgerdb.Txn) error {
		writeKey := []byte(writeLockPrefix + key)
		_, writeErr := txn.Get(writeKey)
		writeHeld := writeErr == nil

		switch mode {
		case ModeWrite:
			if writeHeld {
				return nil
			}
			if hasAnyReader(txn, key) {
				return nil
			}
			entry := badgerdb.NewEntry(writeKey, []byte(token)).WithTTL(d.cfg.LeaseTTL)
			if err := txn.SetEntry(entry); err != nil {
				return err
			}
			acquired = true
			return nil
		default:
			if writeHeld {
				return nil
			}
			readKey := []byte(readLockPrefix + key + ":" + token)
			entry := badgerdb.NewEntry(readKey, []byte(token)).WithTTL(d.cfg.LeaseTTL)
			if err := txn.SetEntry(entry); err != nil {
				return err
			}
			acquired = true
			return nil
		}
	})
	if err != nil {
		return false, err
	}
	return acquired, nil
}

func hasAnyReader(txn *badgerdb.Txn, key string) bool {
	opts := badgerdb.DefaultIteratorOptions
	opts.PrefetchValues = false
	prefix := []byte(readLockPrefix + key + ":")
	it := txn.NewIterator(opts)
	defer it.Close()
	it.Seek(prefix)
	return it.ValidForPrefix(prefix)
}

func (d *Distributed) releaseToken(key, token string, mode Mode) error {
	return d.cfg.DB.Update(func(txn *badgerdb.Txn) error {
		var delKey []byte
		if mode == ModeWrite {
			delKey = []byte(writeLockPrefix + key)
		} else {
			delKey = []byte(readLockPrefix + key + ":" + token)
		}
		if err := txn.Delete(delKey); err != nil && err != badgerdb.ErrKeyNotFound {
			return err
		}
		return nil
	})
}

func modeName(mode Mode) string {
	if mode == ModeWrite {
		return "write"
	}
	return "read"
}
