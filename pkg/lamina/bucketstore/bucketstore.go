// Package bucketstore implements bucket-level operations
// (Create/Delete/Head/UpdateTags/GetMetadata/List) against a JSON
// sidecar per bucket, plus the physical bucket directory on disk.
package bucketstore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/laminastore/lamina/pkg/lamina/errs"
	"github.com/laminastore/lamina/pkg/lamina/netfs"
	"github.com/laminastore/lamina/pkg/lamina/types"
)

// BucketsDirName is the reserved directory, under the metadata root,
// holding one JSON sidecar per bucket.
const BucketsDirName = "_buckets"

// DefaultInlineMetaDir mirrors objectstore.DefaultInlineMetaDir: the
// reserved directory name a bucket must not collide with.
const DefaultInlineMetaDir = ".lamina-meta"

const minBucketNameLen = 3
const maxBucketNameLen = 63

// Config configures a Store.
type Config struct {
	DataRoot      string
	MetadataRoot  string // defaults to DataRoot when empty (inline/xattr modes)
	InlineMetaDir string // reserved directory name a bucket name must not equal
	NetFS         netfs.Policy
}

func (c Config) metadataRoot() string {
	if c.MetadataRoot == "" {
		return c.DataRoot
	}
	return c.MetadataRoot
}

func (c Config) inlineMetaDir() string {
	if c.InlineMetaDir == "" {
		return DefaultInlineMetaDir
	}
	return c.InlineMetaDir
}

// Store manages bucket entities: their data directory and their
// metadata sidecar.
type Store struct {
	cfg Config
}

// New creates a bucketstore Store.
func New(cfg Config) *Store {
	return &Store{cfg: cfg}
}

func (s *Store) sidecarPath(name string) string {
	return filepath.Join(s.cfg.metadataRoot(), BucketsDirName, name+".json")
}

func (s *Store) dataPath(name string) string {
	return filepath.Join(s.cfg.DataRoot, name)
}

type bucketBody struct {
	Name         string            `json:"name"`
	CreatedAt    time.Time         `json:"createdAt"`
	Type         types.BucketType  `json:"type"`
	StorageClass string            `json:"storageClass,omitempty"`
	OwnerID      string            `json:"ownerId,omitempty"`
	Tags         map[string]string `json:"tags,omitempty"`
}

func toBucket(b bucketBody) types.Bucket {
	return types.Bucket{
		Name:         b.Name,
		CreatedAt:    b.CreatedAt,
		Type:         b.Type,
		StorageClass: b.StorageClass,
		OwnerID:      b.OwnerID,
		Tags:         b.Tags,
	}
}

func fromBucket(b types.Bucket) bucketBody {
	return bucketBody{
		Name:         b.Name,
		CreatedAt:    b.CreatedAt,
		Type:         b.Type,
		StorageClass: b.StorageClass,
		OwnerID:      b.OwnerID,
		Tags:         b.Tags,
	}
}

// ValidateName enforces §3's bucket naming policy: 3-63 characters,
// lowercase letters/digits/hyphens/dots only, must start and end with
// a letter or digit, and must not equal the reserved inline-metadata
// directory name (invariant 7), since that would collide with the
// reserved directory inside the data root.
func (s *Store) ValidateName(name string) error {
	if len(name) < minBucketNameLen || len(name) > maxBucketNameLen {
		return errs.New("ValidateName", errs.InvalidArgument, name, "", errs.ErrInvalidBucketName).WithBackend("bucketstore")
	}
	if name == s.cfg.inlineMetaDir() {
		return errs.New("ValidateName", errs.InvalidArgument, name, "", errs.ErrInvalidBucketName).WithBackend("bucketstore")
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '.':
		default:
			return errs.New("ValidateName", errs.InvalidArgument, name, "", errs.ErrInvalidBucketName).WithBackend("bucketstore")
		}
	}
	if !isAlnum(name[0]) || !isAlnum(name[len(name)-1]) {
		return errs.New("ValidateName", errs.InvalidArgument, name, "", errs.ErrInvalidBucketName).WithBackend("bucketstore")
	}
	return nil
}

func isAlnum(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}

// Create makes bucket's data directory and metadata sidecar. It fails
// with errs.AlreadyExists if the bucket already exists.
func (s *Store) Create(ctx context.Context, bucket types.Bucket) (types.Bucket, error) {
	if err := s.ValidateName(bucket.Name); err != nil {
		return types.Bucket{}, err
	}
	if s.Exists(bucket.Name) {
		return types.Bucket{}, errs.New("Create", errs.AlreadyExists, bucket.Name, "", errs.ErrBucketExists).WithBackend("bucketstore")
	}

	if bucket.CreatedAt.IsZero() {
		bucket.CreatedAt = time.Now().UTC()
	}

	if err := netfs.EnsureDirectoryExists(ctx, s.cfg.NetFS, s.dataPath(bucket.Name)); err != nil {
		return types.Bucket{}, errs.New("Create", errs.IOError, bucket.Name, "", err).WithBackend("bucketstore")
	}

	sidecarDir := filepath.Dir(s.sidecarPath(bucket.Name))
	if err := netfs.EnsureDirectoryExists(ctx, s.cfg.NetFS, sidecarDir); err != nil {
		return types.Bucket{}, errs.New("Create", errs.IOError, bucket.Name, "", err).WithBackend("bucketstore")
	}

	if err := s.write(bucket.Name, fromBucket(bucket)); err != nil {
		return types.Bucket{}, errs.New("Create", errs.IOError, bucket.Name, "", err).WithBackend("bucketstore")
	}

	return bucket, nil
}

func (s *Store) write(name string, body bucketBody) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return os.WriteFile(s.sidecarPath(name), data, 0o644)
}

func (s *Store) read(name string) (bucketBody, error) {
	data, err := os.ReadFile(s.sidecarPath(name))
	if err != nil {
		return bucketBody{}, err
	}
	var body bucketBody
	if err := json.Unmarshal(data, &body); err != nil {
		return bucketBody{}, err
	}
	return body, nil
}

// Head returns bucket metadata without content, or errs.NotFound.
func (s *Store) Head(ctx context.Context, name string) (types.Bucket, error) {
	body, err := s.read(name)
	if err != nil {
		if os.IsNotExist(err) {
			return types.Bucket{}, errs.New("Head", errs.NotFound, name, "", errs.ErrBucketNotFound).WithBackend("bucketstore")
		}
		return types.Bucket{}, errs.New("Head", errs.IOError, name, "", err).WithBackend("bucketstore")
	}
	return toBucket(body), nil
}

// GetMetadata is an alias of Head kept for wire-protocol parity with
// the bucket metadata read operation named in the external interface.
func (s *Store) GetMetadata(ctx context.Context, name string) (types.Bucket, error) {
	return s.Head(ctx, name)
}

// Exists reports whether bucket name has a metadata sidecar.
func (s *Store) Exists(name string) bool {
	_, err := os.Stat(s.sidecarPath(name))
	return err == nil
}

// UpdateTags replaces bucket name's tag mapping.
func (s *Store) UpdateTags(ctx context.Context, name string, tags map[string]string) (types.Bucket, error) {
	body, err := s.read(name)
	if err != nil {
		if os.IsNotExist(err) {
			return types.Bucket{}, errs.New("UpdateTags", errs.NotFound, name, "", errs.ErrBucketNotFound).WithBackend("bucketstore")
		}
		return types.Bucket{}, errs.New("UpdateTags", errs.IOError, name, "", err).WithBackend("bucketstore")
	}

	body.Tags = tags
	if err := s.write(name, body); err != nil {
		return types.Bucket{}, errs.New("UpdateTags", errs.IOError, name, "", err).WithBackend("bucketstore")
	}
	return toBucket(body), nil
}

// Delete removes the bucket's metadata sidecar and, if empty (or
// force is set), its data directory. A non-empty data directory with
// force=false fails with errs.InvalidArgument (ErrBucketNotEmpty).
func (s *Store) Delete(ctx context.Context, name string, force bool) error {
	if !s.Exists(name) {
		return errs.New("Delete", errs.NotFound, name, "", errs.ErrBucketNotFound).WithBackend("bucketstore")
	}

	dataPath := s.dataPath(name)
	empty, err := isEmptyDir(dataPath)
	if err != nil && !os.IsNotExist(err) {
		return errs.New("Delete", errs.IOError, name, "", err).WithBackend("bucketstore")
	}

	if !empty && !force {
		return errs.New("Delete", errs.InvalidArgument, name, "", errs.ErrBucketNotEmpty).WithBackend("bucketstore")
	}

	if force {
		if err := os.RemoveAll(dataPath); err != nil {
			return errs.New("Delete", errs.IOError, name, "", err).WithBackend("bucketstore")
		}
	} else {
		if err := os.Remove(dataPath); err != nil && !os.IsNotExist(err) {
			return errs.New("Delete", errs.IOError, name, "", err).WithBackend("bucketstore")
		}
	}

	if err := os.Remove(s.sidecarPath(name)); err != nil && !os.IsNotExist(err) {
		return errs.New("Delete", errs.IOError, name, "", err).WithBackend("bucketstore")
	}
	return nil
}

func isEmptyDir(path string) (bool, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return true, err
	}
	return len(entries) == 0, nil
}

// List returns every registered bucket, sorted by name.
func (s *Store) List(ctx context.Context) ([]types.Bucket, error) {
	dir := filepath.Join(s.cfg.metadataRoot(), BucketsDirName)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errs.New("List", errs.IOError, "", "", err).WithBackend("bucketstore")
	}

	var buckets []types.Bucket
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := trimJSONSuffix(e.Name())
		body, err := s.read(name)
		if err != nil {
			continue
		}
		buckets = append(buckets, toBucket(body))
	}

	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Name < buckets[j].Name })
	return buckets, nil
}

func trimJSONSuffix(name string) string {
	const suffix = ".json"
	if len(name) > len(suffix) && name[len(name)-len(suffix):] == suffix {
		return name[:len(name)-len(suffix)]
	}
	return name
}
