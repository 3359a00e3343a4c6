// Package multipart implements the multipart upload subsystem:
// Initiate/StorePart/ListParts/Complete/Abort, staged under a
// reserved "_multipart_uploads" directory alongside the object data
// tree. Completion assembles the final object via objectstore's
// StoreFromParts, using the S3 multipart ETag form (MD5 of the
// concatenated part MD5 digests, suffixed with the part count).
package multipart

import (
	"context"
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/laminastore/lamina/pkg/lamina/checksum"
	"github.com/laminastore/lamina/pkg/lamina/chunked"
	"github.com/laminastore/lamina/pkg/lamina/errs"
	"github.com/laminastore/lamina/pkg/lamina/netfs"
	"github.com/laminastore/lamina/pkg/lamina/objectstore"
	"github.com/laminastore/lamina/pkg/lamina/types"
)

// StagingDirName is the reserved directory name under which every
// in-progress upload is staged.
const StagingDirName = "_multipart_uploads"

const uploadMetadataFile = "upload.metadata.json"

var partFileRe = regexp.MustCompile(`^part_(\d+)$`)

func partFileName(partNumber int) string {
	return fmt.Sprintf("part_%d", partNumber)
}

// Store is the filesystem-backed multipart upload subsystem.
type Store struct {
	stagingRoot string
	objects     *objectstore.Store
	netfsPolicy netfs.Policy
}

// Config configures a Store.
type Config struct {
	StagingRoot string
	Objects     *objectstore.Store
	NetFS       netfs.Policy
}

// New creates a multipart Store rooted at cfg.StagingRoot, publishing
// completed uploads through cfg.Objects.
func New(cfg Config) *Store {
	return &Store{stagingRoot: cfg.StagingRoot, objects: cfg.Objects, netfsPolicy: cfg.NetFS}
}

func (s *Store) uploadDir(uploadID string) string {
	return filepath.Join(s.stagingRoot, StagingDirName, uploadID)
}

func (s *Store) metadataPath(uploadID string) string {
	return filepath.Join(s.uploadDir(uploadID), uploadMetadataFile)
}

func (s *Store) partPath(uploadID string, partNumber int) string {
	return filepath.Join(s.uploadDir(uploadID), partFileName(partNumber))
}

type uploadMetadataBody struct {
	Bucket       string            `json:"bucket"`
	Key          string            `json:"key"`
	InitiatedAt  time.Time         `json:"initiatedAt"`
	ContentType  string            `json:"contentType"`
	UserMetadata map[string]string `json:"userMetadata,omitempty"`
	ChecksumAlgo types.Algorithm   `json:"checksumAlgo,omitempty"`
}

// Initiate generates a fresh upload-id and persists the upload's
// metadata record under the staging directory.
func (s *Store) Initiate(ctx context.Context, bucket, key, contentType string, userMetadata map[string]string, checksumAlgo types.Algorithm) (types.MultipartUpload, error) {
	uploadID := uuid.New().String()
	dir := s.uploadDir(uploadID)

	if err := netfs.EnsureDirectoryExists(ctx, s.netfsPolicy, dir); err != nil {
		return types.MultipartUpload{}, errs.New("Initiate", errs.IOError, bucket, key, err).WithBackend("multipart")
	}

	initiatedAt := time.Now().UTC()
	body := uploadMetadataBody{
		Bucket:       bucket,
		Key:          key,
		InitiatedAt:  initiatedAt,
		ContentType:  contentType,
		UserMetadata: userMetadata,
		ChecksumAlgo: checksumAlgo,
	}
	data, err := json.Marshal(body)
	if err != nil {
		return types.MultipartUpload{}, errs.New("Initiate", errs.IOError, bucket, key, err).WithBackend("multipart")
	}
	if err := os.WriteFile(s.metadataPath(uploadID), data, 0o644); err != nil {
		return types.MultipartUpload{}, errs.New("Initiate", errs.IOError, bucket, key, err).WithBackend("multipart")
	}

	return types.MultipartUpload{
		UploadID:     uploadID,
		Bucket:       bucket,
		Key:          key,
		InitiatedAt:  initiatedAt,
		ContentType:  contentType,
		UserMetadata: userMetadata,
		ChecksumAlgo: checksumAlgo,
	}, nil
}

func (s *Store) loadMetadata(uploadID string) (uploadMetadataBody, error) {
	data, err := os.ReadFile(s.metadataPath(uploadID))
	if err != nil {
		return uploadMetadataBody{}, err
	}
	var body uploadMetadataBody
	if err := json.Unmarshal(data, &body); err != nil {
		return uploadMetadataBody{}, err
	}
	return body, nil
}

// uploadExists reports whether uploadID has a live staging directory.
func (s *Store) uploadExists(uploadID string) bool {
	_, err := os.Stat(s.metadataPath(uploadID))
	return err == nil
}

// StorePart writes part N of uploadID via the same atomic temp-file
// protocol as the object data store, optionally decoding AWS chunked
// transfer encoding and computing per-part checksums.
func (s *Store) StorePart(
	ctx context.Context,
	uploadID string,
	partNumber int,
	src io.Reader,
	chunkOpts *objectstore.ChunkOptions,
	checksumReq []types.ChecksumRequest,
) (types.UploadPart, error) {
	if !s.uploadExists(uploadID) {
		return types.UploadPart{}, errs.New("StorePart", errs.NotFound, "", "", errs.ErrUploadNotFound).WithBackend("multipart")
	}

	finalPath := s.partPath(uploadID, partNumber)
	dir := filepath.Dir(finalPath)

	tempPath, err := s.tempPartPath(dir)
	if err != nil {
		return types.UploadPart{}, errs.New("StorePart", errs.IOError, "", "", err).WithBackend("multipart")
	}

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

	size, err := s.writePartTemp(ctx, tempPath, src, chunkOpts, acc.Append)
	if err != nil {
		os.Remove(tempPath)
		return types.UploadPart{}, err
	}

	var expectedArg *types.ChecksumSet
	if anyExpected {
		expectedArg = expected
	}
	checksums, err := acc.Finish(expectedArg)
	if err != nil {
		os.Remove(tempPath)
		return types.UploadPart{}, errs.New("StorePart", errs.IntegrityError, "", "", err).WithBackend("multipart")
	}

	etag, err := md5File(tempPath)
	if err != nil {
		os.Remove(tempPath)
		return types.UploadPart{}, errs.New("StorePart", errs.IOError, "", "", err).WithBackend("multipart")
	}

	if err := netfs.AtomicMove(ctx, s.netfsPolicy, tempPath, finalPath); err != nil {
		os.Remove(tempPath)
		return types.UploadPart{}, errs.New("StorePart", errs.IOError, "", "", err).WithBackend("multipart")
	}

	info, statErr := os.Stat(finalPath)
	lastModified := time.Now().UTC()
	if statErr == nil {
		lastModified = info.ModTime()
	}

	return types.UploadPart{
		PartNumber:   partNumber,
		Size:         size,
		ETag:         etag,
		LastModified: lastModified,
		Checksums:    checksums,
	}, nil
}

func (s *Store) tempPartPath(dir string) (string, error) {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	return filepath.Join(dir, ".part-tmp-"+hex.EncodeToString(buf[:])), nil
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

func (s *Store) writePartTemp(ctx context.Context, tempPath string, src io.Reader, chunkOpts *objectstore.ChunkOptions, onData chunked.DataWritten) (int64, error) {
	f, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return 0, errs.New("StorePart", errs.IOError, "", "", err).WithBackend("multipart")
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
			return size, errs.New("StorePart", errs.IntegrityError, "", "", err).WithBackend("multipart")
		}
	} else {
		size, err = copyWithCallback(f, src, onData)
		if err != nil {
			f.Close()
			return size, errs.New("StorePart", errs.IOError, "", "", err).WithBackend("multipart")
		}
	}

	if err := ctx.Err(); err != nil {
		f.Close()
		return size, err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return size, errs.New("StorePart", errs.IOError, "", "", err).WithBackend("multipart")
	}
	if err := f.Close(); err != nil {
		return size, errs.New("StorePart", errs.IOError, "", "", err).WithBackend("multipart")
	}
	return size, nil
}

const copyBufferSize = 4 << 10

func copyWithCallback(dst io.Writer, src io.Reader, onData chunked.DataWritten) (int64, error) {
	buf := make([]byte, copyBufferSize)
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

// ListParts enumerates the part files currently staged for uploadID,
// ordered by part number, recomputing each part's ETag from disk.
func (s *Store) ListParts(ctx context.Context, uploadID string) ([]types.UploadPart, error) {
	if !s.uploadExists(uploadID) {
		return nil, errs.New("ListParts", errs.NotFound, "", "", errs.ErrUploadNotFound).WithBackend("multipart")
	}

	entries, err := os.ReadDir(s.uploadDir(uploadID))
	if err != nil {
		return nil, errs.New("ListParts", errs.IOError, "", "", err).WithBackend("multipart")
	}

	var parts []types.UploadPart
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := partFileRe.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		partNumber, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}

		path := filepath.Join(s.uploadDir(uploadID), e.Name())
		info, err := e.Info()
		if err != nil {
			return nil, errs.New("ListParts", errs.IOError, "", "", err).WithBackend("multipart")
		}
		etag, err := md5File(path)
		if err != nil {
			return nil, errs.New("ListParts", errs.IOError, "", "", err).WithBackend("multipart")
		}

		parts = append(parts, types.UploadPart{
			PartNumber:   partNumber,
			Size:         info.Size(),
			ETag:         etag,
			LastModified: info.ModTime(),
		})
	}

	sort.Slice(parts, func(i, j int) bool { return parts[i].PartNumber < parts[j].PartNumber })
	return parts, nil
}

// Complete verifies every supplied (partNumber, expectedETag) pair
// against what is actually staged, assembles the final object via
// StoreFromParts, and removes the staging directory on success.
func (s *Store) Complete(ctx context.Context, uploadID string, completedParts []types.CompletedPart) (types.StoreResult, error) {
	meta, err := s.loadMetadata(uploadID)
	if err != nil {
		if os.IsNotExist(err) {
			return types.StoreResult{}, errs.New("Complete", errs.NotFound, "", "", errs.ErrUploadNotFound).WithBackend("multipart")
		}
		return types.StoreResult{}, errs.New("Complete", errs.IOError, "", "", err).WithBackend("multipart")
	}

	readers := make([]io.Reader, 0, len(completedParts))
	files := make([]*os.File, 0, len(completedParts))
	defer func() {
		for _, f := range files {
			f.Close()
		}
	}()

	digests := make([][md5.Size]byte, 0, len(completedParts))
	for _, cp := range completedParts {
		path := s.partPath(uploadID, cp.PartNumber)
		f, err := os.Open(path)
		if err != nil {
			if os.IsNotExist(err) {
				return types.StoreResult{}, errs.New("Complete", errs.InvalidArgument, meta.Bucket, meta.Key, fmt.Errorf("part %d not found", cp.PartNumber)).WithBackend("multipart")
			}
			return types.StoreResult{}, errs.New("Complete", errs.IOError, meta.Bucket, meta.Key, err).WithBackend("multipart")
		}
		files = append(files, f)

		digest, err := md5Digest(path)
		if err != nil {
			return types.StoreResult{}, errs.New("Complete", errs.IOError, meta.Bucket, meta.Key, err).WithBackend("multipart")
		}
		actualETag := hexDigest(digest)
		if actualETag != strings.Trim(cp.ETag, `"`) {
			return types.StoreResult{}, errs.New("Complete", errs.IntegrityError, meta.Bucket, meta.Key, errs.ErrETagMismatch).WithBackend("multipart")
		}

		digests = append(digests, digest)
		readers = append(readers, f)
	}

	etag := checksum.MD5HexFromDigests(digests)

	result, err := s.objects.StoreFromParts(ctx, meta.Bucket, meta.Key, readers, etag)
	if err != nil {
		return types.StoreResult{}, err
	}

	if err := os.RemoveAll(s.uploadDir(uploadID)); err != nil {
		return result, errs.New("Complete", errs.IOError, meta.Bucket, meta.Key, err).WithBackend("multipart")
	}

	return result, nil
}

// md5Digest returns the raw 16-byte MD5 digest of path's contents.
func md5Digest(path string) ([md5.Size]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return [md5.Size]byte{}, err
	}
	defer f.Close()

	h := md5.New()
	buf := make([]byte, copyBufferSize)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return [md5.Size]byte{}, err
		}
	}

	var digest [md5.Size]byte
	copy(digest[:], h.Sum(nil))
	return digest, nil
}

func hexDigest(digest [md5.Size]byte) string {
	return hex.EncodeToString(digest[:])
}

// md5File returns the lowercase-hex MD5 ETag of path's contents.
func md5File(path string) (string, error) {
	digest, err := md5Digest(path)
	if err != nil {
		return "", err
	}
	return hexDigest(digest), nil
}

// Abort deletes uploadID's entire staging directory.
func (s *Store) Abort(ctx context.Context, uploadID string) error {
	if !s.uploadExists(uploadID) {
		return errs.New("Abort", errs.NotFound, "", "", errs.ErrUploadNotFound).WithBackend("multipart")
	}
	if err := os.RemoveAll(s.uploadDir(uploadID)); err != nil {
		return errs.New("Abort", errs.IOError, "", "", err).WithBackend("multipart")
	}
	return nil
}
