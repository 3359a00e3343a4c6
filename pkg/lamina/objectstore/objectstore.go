// Package objectstore implements the Object Data Store: placement of
// object bytes on disk with atomic visibility, byte-range reads,
// directory-tree LIST with S3 prefix/delimiter semantics, and copy.
//
// Every store/copy goes through a same-directory temp file, fsync, and
// an atomic rename via netfs so a reader never observes a partial
// write; deletes clean up now-empty ancestor directories back to (but
// excluding) the bucket root.
package objectstore

import (
	"context"
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/laminastore/lamina/pkg/lamina/checksum"
	"github.com/laminastore/lamina/pkg/lamina/chunked"
	"github.com/laminastore/lamina/pkg/lamina/errs"
	"github.com/laminastore/lamina/pkg/lamina/netfs"
	"github.com/laminastore/lamina/pkg/lamina/types"
)

// DefaultTempPrefix names temp files created during an atomic write
// when the caller's config leaves TempPrefix unset.
const DefaultTempPrefix = ".lamina-tmp-"

// DefaultInlineMetaDir is the reserved directory name for inline
// sidecar metadata; List and the path validator both exclude it.
const DefaultInlineMetaDir = ".lamina-meta"

const copyReadBufferSize = 4 << 10

// Config configures a Store instance.
type Config struct {
	DataRoot         string
	TempPrefix       string
	InlineMetaDir    string
	NetFS            netfs.Policy
}

func (c Config) tempPrefix() string {
	if c.TempPrefix == "" {
		return DefaultTempPrefix
	}
	return c.TempPrefix
}

func (c Config) inlineMetaDir() string {
	if c.InlineMetaDir == "" {
		return DefaultInlineMetaDir
	}
	return c.InlineMetaDir
}

// Store is the filesystem-backed Object Data Store.
type Store struct {
	cfg Config
}

// New creates a Store rooted at cfg.DataRoot.
func New(cfg Config) *Store {
	return &Store{cfg: cfg}
}

// ValidateKey enforces the path policy from §4.1: non-empty, not the
// temp prefix, no segment equal to the inline-metadata directory name.
func (s *Store) ValidateKey(key string) error {
	if key == "" {
		return errs.New("ValidateKey", errs.InvalidArgument, "", key, errs.ErrForbiddenKey)
	}
	if strings.HasPrefix(filepath.Base(key), s.cfg.tempPrefix()) {
		return errs.New("ValidateKey", errs.InvalidArgument, "", key, errs.ErrForbiddenKey)
	}
	for _, segment := range strings.Split(key, "/") {
		if segment == s.cfg.inlineMetaDir() {
			return errs.New("ValidateKey", errs.InvalidArgument, "", key, errs.ErrForbiddenKey)
		}
	}
	return nil
}

func (s *Store) bucketPath(bucket string) string {
	return filepath.Join(s.cfg.DataRoot, bucket)
}

func (s *Store) objectPath(bucket, key string) string {
	return filepath.Join(s.bucketPath(bucket), filepath.FromSlash(key))
}

func (s *Store) tempName() (string, error) {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	return s.cfg.tempPrefix() + hex.EncodeToString(buf[:]), nil
}

// ChunkOptions carries the optional chunked-encoding validator passed
// to Store when the caller streamed AWS chunked-encoded bytes.
type ChunkOptions struct {
	Validator  chunked.ChunkValidator
	HasTrailer bool
}

// Store writes src to bucket/key via the atomic write protocol,
// optionally decoding AWS chunked transfer-encoding and validating a
// requested checksum against a client-supplied expected value.
func (s *Store) Store(
	ctx context.Context,
	bucket, key string,
	src io.Reader,
	chunkOpts *ChunkOptions,
	checksumReq []types.ChecksumRequest,
) (types.StoreResult, error) {
	if err := s.ValidateKey(key); err != nil {
		return types.StoreResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return types.StoreResult{}, err
	}

	finalPath := s.objectPath(bucket, key)
	dir := filepath.Dir(finalPath)
	if err := netfs.EnsureDirectoryExists(ctx, s.cfg.NetFS, dir); err != nil {
		return types.StoreResult{}, errs.New("Store", errs.IOError, bucket, key, err)
	}

	tempName, err := s.tempName()
	if err != nil {
		return types.StoreResult{}, errs.New("Store", errs.IOError, bucket, key, err)
	}
	tempPath := filepath.Join(dir, tempName)

	algos := make([]types.Algorithm, 0, len(checksumReq))
	expected := &types.ChecksumSet{}
	anyExpected := false
	for _, req := range checksumReq {
		algos = append(algos, req.Algorithm)
		if req.Expected != "" {
			anyExpected = true
			assignExpected(expected, req.Algorithm, req.Expected)
		}
	}
	acc := checksum.NewAccumulator(algos...)

	size, err := s.writeTemp(ctx, tempPath, src, chunkOpts, acc.Append)
	if err != nil {
		os.Remove(tempPath)
		return types.StoreResult{}, err
	}

	var expectedArg *types.ChecksumSet
	if anyExpected {
		expectedArg = expected
	}
	checksums, err := acc.Finish(expectedArg)
	if err != nil {
		os.Remove(tempPath)
		return types.StoreResult{}, errs.New("Store", errs.IntegrityError, bucket, key, err)
	}

	etag, err := md5File(tempPath)
	if err != nil {
		os.Remove(tempPath)
		return types.StoreResult{}, errs.New("Store", errs.IOError, bucket, key, err)
	}

	if err := netfs.AtomicMove(ctx, s.cfg.NetFS, tempPath, finalPath); err != nil {
		os.Remove(tempPath)
		return types.StoreResult{}, errs.New("Store", errs.IOError, bucket, key, err)
	}

	return types.StoreResult{Size: size, ETag: etag, Checksums: checksums}, nil
}

func assignExpected(set *types.ChecksumSet, algo types.Algorithm, value string) {
	switch algo {
	case types.AlgorithmCRC32:
		set.CRC32 = value
	case types.AlgorithmCRC32C:
		set.CRC32C = value
	case types.AlgorithmCRC64NVME:
		set.CRC64NVME = value
	case types.AlgorithmSHA1:
		set.SHA1 = value
	case types.AlgorithmSHA256:
		set.SHA256 = value
	}
}

// writeTemp streams src into tempPath, optionally through the chunked
// decoder, feeding every written slice to onData, then fsyncs and
// closes the file before returning the total bytes written.
func (s *Store) writeTemp(ctx context.Context, tempPath string, src io.Reader, chunkOpts *ChunkOptions, onData chunked.DataWritten) (int64, error) {
	f, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return 0, err
	}

	var size int64
	if chunkOpts != nil {
		size, err = chunked.Decode(src, f, chunked.Options{
			Validator:  chunkOpts.Validator,
			OnData:     onData,
			HasTrailer: chunkOpts.HasTrailer,
		})
		if err != nil {
			f.Close()
			return size, errs.New("Store", errs.IntegrityError, "", "", err)
		}
	} else {
		size, err = copyWithCallback(f, src, onData)
		if err != nil {
			f.Close()
			return size, errs.New("Store", errs.IOError, "", "", err)
		}
	}

	if err := ctx.Err(); err != nil {
		f.Close()
		return size, err
	}

	if err := f.Sync(); err != nil {
		f.Close()
		return size, errs.New("Store", errs.IOError, "", "", err)
	}
	if err := f.Close(); err != nil {
		return size, errs.New("Store", errs.IOError, "", "", err)
	}

	return size, nil
}

func copyWithCallback(dst io.Writer, src io.Reader, onData chunked.DataWritten) (int64, error) {
	buf := make([]byte, copyReadBufferSize)
	var total int64
	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			if _, err := dst.Write(buf[:n]); err != nil {
				return total, err
			}
			if onData != nil {
				onData(buf[:n])
			}
			total += int64(n)
		}
		if readErr == io.EOF {
			return total, nil
		}
		if readErr != nil {
			return total, readErr
		}
	}
}

// StoreFromParts concatenates the given readers in order into a fresh
// object under bucket/key, used by multipart completion. etag is the
// already-computed multipart ETag (MD5-of-MD5s-dash-partcount form);
// the concatenated bytes are never re-hashed here since S3's multipart
// ETag is not the plain MD5 of the assembled object.
func (s *Store) StoreFromParts(ctx context.Context, bucket, key string, parts []io.Reader, etag string) (types.StoreResult, error) {
	if err := s.ValidateKey(key); err != nil {
		return types.StoreResult{}, err
	}

	finalPath := s.objectPath(bucket, key)
	dir := filepath.Dir(finalPath)
	if err := netfs.EnsureDirectoryExists(ctx, s.cfg.NetFS, dir); err != nil {
		return types.StoreResult{}, errs.New("StoreFromParts", errs.IOError, bucket, key, err)
	}

	tempName, err := s.tempName()
	if err != nil {
		return types.StoreResult{}, errs.New("StoreFromParts", errs.IOError, bucket, key, err)
	}
	tempPath := filepath.Join(dir, tempName)

	f, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return types.StoreResult{}, errs.New("StoreFromParts", errs.IOError, bucket, key, err)
	}

	var size int64
	for _, part := range parts {
		if err := ctx.Err(); err != nil {
			f.Close()
			os.Remove(tempPath)
			return types.StoreResult{}, err
		}
		n, err := io.Copy(f, part)
		size += n
		if err != nil {
			f.Close()
			os.Remove(tempPath)
			return types.StoreResult{}, errs.New("StoreFromParts", errs.IOError, bucket, key, err)
		}
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tempPath)
		return types.StoreResult{}, errs.New("StoreFromParts", errs.IOError, bucket, key, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tempPath)
		return types.StoreResult{}, errs.New("StoreFromParts", errs.IOError, bucket, key, err)
	}

	if err := netfs.AtomicMove(ctx, s.cfg.NetFS, tempPath, finalPath); err != nil {
		os.Remove(tempPath)
		return types.StoreResult{}, errs.New("StoreFromParts", errs.IOError, bucket, key, err)
	}

	return types.StoreResult{Size: size, ETag: etag}, nil
}

// Read streams bucket/key to dst, optionally windowed to the inclusive
// [byteStart, byteEnd] range. It returns false (no error) when the
// object is missing or the requested range is unsatisfiable, matching
// the contract's boolean-not-found convention.
func (s *Store) Read(ctx context.Context, bucket, key string, dst io.Writer, byteStart, byteEnd *int64) (bool, error) {
	path := s.objectPath(bucket, key)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errs.New("Read", errs.IOError, bucket, key, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return false, errs.New("Read", errs.IOError, bucket, key, err)
	}
	size := info.Size()

	start, end := int64(0), size-1
	if byteStart != nil {
		start = *byteStart
	}
	if byteEnd != nil {
		end = *byteEnd
	}

	if byteStart != nil || byteEnd != nil {
		if start >= size || start > end {
			return false, nil
		}
		if end >= size {
			if byteEnd != nil {
				return false, nil
			}
			end = size - 1
		}
	}

	if size == 0 {
		return true, nil
	}

	if _, err := f.Seek(start, io.SeekStart); err != nil {
		return false, errs.New("Read", errs.IOError, bucket, key, err)
	}

	if err := ctx.Err(); err != nil {
		return false, err
	}

	if _, err := io.CopyN(dst, f, end-start+1); err != nil {
		return false, errs.New("Read", errs.IOError, bucket, key, err)
	}
	return true, nil
}

// Exists reports whether bucket/key has a data file.
func (s *Store) Exists(bucket, key string) bool {
	_, err := os.Stat(s.objectPath(bucket, key))
	return err == nil
}

// Info returns the size and mtime of bucket/key's data file, or nil if
// it does not exist.
func (s *Store) Info(bucket, key string) *types.ObjectInfo {
	info, err := os.Stat(s.objectPath(bucket, key))
	if err != nil {
		return nil
	}
	return &types.ObjectInfo{Size: info.Size(), LastModified: info.ModTime()}
}

// Delete removes bucket/key's data file, then walks upward removing
// now-empty ancestor directories up to (excluding) the bucket root.
func (s *Store) Delete(ctx context.Context, bucket, key string) bool {
	path := s.objectPath(bucket, key)
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return false
	}

	_ = netfs.DeleteDirectoryIfEmpty(ctx, s.cfg.NetFS, filepath.Dir(path), s.bucketPath(bucket))
	return true
}

// ComputeEtag returns the MD5-hex ETag of bucket/key's current bytes,
// or nil if the object does not exist.
func (s *Store) ComputeEtag(bucket, key string) *string {
	etag, err := md5File(s.objectPath(bucket, key))
	if err != nil {
		return nil
	}
	return &etag
}

// Copy duplicates srcBucket/srcKey to dstBucket/dstKey via a
// temp-file-then-rename in the destination directory, recomputing the
// ETag on the copy.
func (s *Store) Copy(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) (*types.StoreResult, error) {
	if err := s.ValidateKey(dstKey); err != nil {
		return nil, err
	}

	srcPath := s.objectPath(srcBucket, srcKey)
	src, err := os.Open(srcPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errs.New("Copy", errs.IOError, srcBucket, srcKey, err)
	}
	defer src.Close()

	dstPath := s.objectPath(dstBucket, dstKey)
	dir := filepath.Dir(dstPath)
	if err := netfs.EnsureDirectoryExists(ctx, s.cfg.NetFS, dir); err != nil {
		return nil, errs.New("Copy", errs.IOError, dstBucket, dstKey, err)
	}

	tempName, err := s.tempName()
	if err != nil {
		return nil, errs.New("Copy", errs.IOError, dstBucket, dstKey, err)
	}
	tempPath := filepath.Join(dir, tempName)

	dstFile, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, errs.New("Copy", errs.IOError, dstBucket, dstKey, err)
	}

	buf := make([]byte, copyReadBufferSize)
	size, err := io.CopyBuffer(dstFile, src, buf)
	if err != nil {
		dstFile.Close()
		os.Remove(tempPath)
		return nil, errs.New("Copy", errs.IOError, dstBucket, dstKey, err)
	}
	if err := dstFile.Sync(); err != nil {
		dstFile.Close()
		os.Remove(tempPath)
		return nil, errs.New("Copy", errs.IOError, dstBucket, dstKey, err)
	}
	if err := dstFile.Close(); err != nil {
		os.Remove(tempPath)
		return nil, errs.New("Copy", errs.IOError, dstBucket, dstKey, err)
	}

	etag, err := md5File(tempPath)
	if err != nil {
		os.Remove(tempPath)
		return nil, errs.New("Copy", errs.IOError, dstBucket, dstKey, err)
	}

	if err := netfs.AtomicMove(ctx, s.cfg.NetFS, tempPath, dstPath); err != nil {
		os.Remove(tempPath)
		return nil, errs.New("Copy", errs.IOError, dstBucket, dstKey, err)
	}

	return &types.StoreResult{Size: size, ETag: etag}, nil
}

// List implements the §4.1 listing algorithm: directory-tree walk
// under the bucket/prefix with prefix/delimiter grouping, temp- and
// inline-metadata filtering, and optional lexicographic ordering for
// GeneralPurpose buckets.
func (s *Store) List(bucket string, bucketType types.BucketType, prefix, delimiter, startAfter string, maxKeys int) (types.ListResult, error) {
	if strings.Contains(prefix, "..") {
		return types.ListResult{}, errs.New("List", errs.InvalidArgument, bucket, prefix, fmt.Errorf("prefix escapes bucket root"))
	}

	root := s.bucketPath(bucket)
	searchDir := root
	if idx := strings.LastIndex(prefix, "/"); idx >= 0 {
		searchDir = filepath.Join(root, filepath.FromSlash(prefix[:idx]))
	}

	recursive := delimiter != "/"
	needsFilter := (delimiter != "" && delimiter != "/") || !strings.HasSuffix(prefix, "/")
	orderedLexically := bucketType == types.BucketGeneralPurpose

	entries, err := s.enumerate(searchDir, root, recursive)
	if err != nil {
		if os.IsNotExist(err) {
			return types.ListResult{}, nil
		}
		return types.ListResult{}, errs.New("List", errs.IOError, bucket, prefix, err)
	}

	if orderedLexically {
		entries.sortByKey()
	}

	var keys []string
	prefixSet := make(map[string]struct{})
	var prefixOrder []string
	truncated := false
	var lastEmitted string

	skipping := startAfter != ""
	for _, e := range entries.items {
		if needsFilter && !strings.HasPrefix(e.key, prefix) {
			continue
		}
		if isReservedEntry(e.key, s.cfg.tempPrefix(), s.cfg.inlineMetaDir()) {
			continue
		}

		if skipping {
			if e.key == startAfter {
				skipping = false
			}
			continue
		}

		var emitted string
		isCommonPrefix := false

		switch {
		case e.isDir && delimiter == "/":
			emitted = e.key + "/"
			isCommonPrefix = true
		case !e.isDir && delimiter != "" && delimiter != "/":
			remainder := strings.TrimPrefix(e.key, prefix)
			if idx := strings.Index(remainder, delimiter); idx >= 0 {
				emitted = prefix + remainder[:idx+len(delimiter)]
				isCommonPrefix = true
			} else {
				emitted = e.key
			}
		default:
			emitted = e.key
		}

		if isCommonPrefix {
			if _, seen := prefixSet[emitted]; !seen {
				prefixSet[emitted] = struct{}{}
				prefixOrder = append(prefixOrder, emitted)
			}
		} else {
			keys = append(keys, emitted)
		}

		lastEmitted = e.key
		if len(keys)+len(prefixSet) >= maxKeys && maxKeys > 0 {
			truncated = true
			break
		}
	}

	if orderedLexically {
		sort.Strings(prefixOrder)
	}

	return types.ListResult{
		Keys:           keys,
		CommonPrefixes: prefixOrder,
		IsTruncated:    truncated,
		StartAfter:     lastEmitted,
	}, nil
}

func isReservedEntry(key, tempPrefix, inlineMetaDir string) bool {
	base := key
	if idx := strings.LastIndex(key, "/"); idx >= 0 {
		base = key[idx+1:]
	}
	if strings.HasPrefix(base, tempPrefix) {
		return true
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == inlineMetaDir {
			return true
		}
	}
	return false
}

type listEntry struct {
	key   string
	isDir bool
}

type listEntries struct {
	items []listEntry
}

// sortByKey sorts items in place by key, byte-ordinal (Go string
// comparison is already byte-ordinal).
func (l *listEntries) sortByKey() {
	sort.Slice(l.items, func(i, j int) bool { return l.items[i].key < l.items[j].key })
}

func (s *Store) enumerate(searchDir, root string, recursive bool) (*listEntries, error) {
	out := &listEntries{}

	if recursive {
		err := filepath.Walk(searchDir, func(p string, info os.FileInfo, err error) error {
			if err != nil {
				if os.IsNotExist(err) {
					return nil
				}
				return err
			}
			if p == searchDir {
				return nil
			}
			rel, relErr := filepath.Rel(root, p)
			if relErr != nil {
				return relErr
			}
			key := filepath.ToSlash(rel)
			if info.IsDir() {
				return nil // only files become keys in recursive mode
			}
			out.items = append(out.items, listEntry{key: key, isDir: false})
			return nil
		})
		if err != nil {
			return nil, err
		}
		return out, nil
	}

	dirEntries, err := os.ReadDir(searchDir)
	if err != nil {
		return nil, err
	}
	for _, de := range dirEntries {
		full := filepath.Join(searchDir, de.Name())
		rel, relErr := filepath.Rel(root, full)
		if relErr != nil {
			return nil, relErr
		}
		key := filepath.ToSlash(rel)
		out.items = append(out.items, listEntry{key: key, isDir: de.IsDir()})
	}
	return out, nil
}

// md5File computes the lowercase-hex MD5 ETag of path by streaming it
// through a fresh read handle in fixed-size chunks, per §4.4's "async
// file read (4 KiB buffer)" ETag computation.
func md5File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := md5.New()
	buf := make([]byte, copyReadBufferSize)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
