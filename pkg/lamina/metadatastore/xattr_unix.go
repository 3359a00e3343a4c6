//go:build linux || darwin

package metadatastore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/xattr"

	"github.com/laminastore/lamina/pkg/lamina/errs"
	"github.com/laminastore/lamina/pkg/lamina/types"
)

// DefaultXattrPrefix is the extended-attribute namespace prefix used
// when XattrConfig.Prefix is left unset.
const DefaultXattrPrefix = "user.lamina"

// maxXattrValue bounds a single attribute value; most filesystems cap
// individual xattr values well below this, but 64 KiB is the contract's
// stated ceiling regardless of the underlying filesystem's own limit.
const maxXattrValue = 64 << 10

const (
	xattrETag            = "etag"
	xattrContentType     = "content-type"
	xattrOwnerID         = "owner-id"
	xattrOwnerDisplayName = "owner-display-name"
	xattrUserMetadataPfx = "metadata."
)

// XattrConfig configures the Xattr backend.
type XattrConfig struct {
	DataRoot string
	Prefix   string // defaults to DefaultXattrPrefix
	Info     ObjectInfoProvider
}

func (c XattrConfig) prefix() string {
	if c.Prefix == "" {
		return DefaultXattrPrefix
	}
	return c.Prefix
}

// Xattr stores metadata as extended attributes directly on the
// object's data file, on Linux and macOS only. NewXattr fails on any
// other platform or when xattr support cannot be confirmed.
type Xattr struct {
	cfg XattrConfig
}

// xattrSupported reports whether this platform can run the Xattr backend.
func xattrSupported() bool {
	return xattr.XATTR_SUPPORTED
}

// NewXattr creates an Xattr backend rooted at cfg.DataRoot.
func NewXattr(cfg XattrConfig) (*Xattr, error) {
	if !xattr.XATTR_SUPPORTED {
		return nil, errs.New("NewXattr", errs.Unsupported, "", "", fmt.Errorf("extended attributes are not supported on this platform"))
	}
	return &Xattr{cfg: cfg}, nil
}

func (x *Xattr) objectPath(bucket, key string) string {
	return filepath.Join(x.cfg.DataRoot, bucket, filepath.FromSlash(key))
}

func (x *Xattr) attrName(name string) string {
	return x.cfg.prefix() + "." + name
}

func (x *Xattr) IsValidKey(key string) error {
	if key == "" {
		return errs.New("IsValidKey", errs.InvalidArgument, "", key, errs.ErrForbiddenKey)
	}
	return nil
}

func (x *Xattr) Store(ctx context.Context, bucket, key string, rec Record) (types.Object, error) {
	path := x.objectPath(bucket, key)

	if err := x.setAttr(path, xattrETag, rec.ETag); err != nil {
		return types.Object{}, errs.New("Store", errs.IOError, bucket, key, err).WithBackend("xattr")
	}
	if err := x.setAttr(path, xattrContentType, rec.ContentType); err != nil {
		return types.Object{}, errs.New("Store", errs.IOError, bucket, key, err).WithBackend("xattr")
	}
	if err := x.setAttr(path, xattrOwnerID, rec.OwnerID); err != nil {
		return types.Object{}, errs.New("Store", errs.IOError, bucket, key, err).WithBackend("xattr")
	}
	if rec.OwnerDisplayName != "" {
		if err := x.setAttr(path, xattrOwnerDisplayName, rec.OwnerDisplayName); err != nil {
			return types.Object{}, errs.New("Store", errs.IOError, bucket, key, err).WithBackend("xattr")
		}
	}
	for name, value := range rec.UserMetadata {
		if err := x.setAttr(path, xattrUserMetadataPfx+name, value); err != nil {
			return types.Object{}, errs.New("Store", errs.IOError, bucket, key, err).WithBackend("xattr")
		}
	}
	if err := x.storeChecksums(path, rec.Checksums); err != nil {
		return types.Object{}, errs.New("Store", errs.IOError, bucket, key, err).WithBackend("xattr")
	}

	info := x.cfg.Info.Info(bucket, key)
	return buildObject(bucket, key, rec, info), nil
}

func (x *Xattr) setAttr(path, name, value string) error {
	if len(value) > maxXattrValue {
		value = value[:maxXattrValue]
	}
	return xattr.Set(path, x.attrName(name), []byte(value))
}

func (x *Xattr) getAttr(path, name string) (string, bool, error) {
	value, err := xattr.Get(path, x.attrName(name))
	if err != nil {
		if isNoAttr(err) {
			return "", false, nil
		}
		return "", false, err
	}
	return string(value), true, nil
}

func (x *Xattr) storeChecksums(path string, cs types.ChecksumSet) error {
	pairs := map[string]string{
		"checksum.crc32":     cs.CRC32,
		"checksum.crc32c":    cs.CRC32C,
		"checksum.crc64nvme": cs.CRC64NVME,
		"checksum.sha1":      cs.SHA1,
		"checksum.sha256":    cs.SHA256,
	}
	for name, value := range pairs {
		if value == "" {
			continue
		}
		if err := x.setAttr(path, name, value); err != nil {
			return err
		}
	}
	return nil
}

func (x *Xattr) loadChecksums(path string) (types.ChecksumSet, error) {
	var cs types.ChecksumSet
	fields := []struct {
		name string
		dst  *string
	}{
		{"checksum.crc32", &cs.CRC32},
		{"checksum.crc32c", &cs.CRC32C},
		{"checksum.crc64nvme", &cs.CRC64NVME},
		{"checksum.sha1", &cs.SHA1},
		{"checksum.sha256", &cs.SHA256},
	}
	for _, f := range fields {
		value, ok, err := x.getAttr(path, f.name)
		if err != nil {
			return types.ChecksumSet{}, err
		}
		if ok {
			*f.dst = value
		}
	}
	return cs, nil
}

func (x *Xattr) Get(ctx context.Context, bucket, key string) (types.Object, error) {
	path := x.objectPath(bucket, key)

	etag, ok, err := x.getAttr(path, xattrETag)
	if err != nil {
		if os.IsNotExist(err) {
			return types.Object{}, errs.New("Get", errs.NotFound, bucket, key, errs.ErrObjectNotFound).WithBackend("xattr")
		}
		return types.Object{}, errs.New("Get", errs.IOError, bucket, key, err).WithBackend("xattr")
	}
	if !ok {
		return types.Object{}, errs.New("Get", errs.NotFound, bucket, key, errs.ErrObjectNotFound).WithBackend("xattr")
	}

	contentType, _, err := x.getAttr(path, xattrContentType)
	if err != nil {
		return types.Object{}, errs.New("Get", errs.IOError, bucket, key, err).WithBackend("xattr")
	}
	ownerID, _, err := x.getAttr(path, xattrOwnerID)
	if err != nil {
		return types.Object{}, errs.New("Get", errs.IOError, bucket, key, err).WithBackend("xattr")
	}
	ownerDisplayName, _, err := x.getAttr(path, xattrOwnerDisplayName)
	if err != nil {
		return types.Object{}, errs.New("Get", errs.IOError, bucket, key, err).WithBackend("xattr")
	}

	userMetadata, err := x.loadUserMetadata(path)
	if err != nil {
		return types.Object{}, errs.New("Get", errs.IOError, bucket, key, err).WithBackend("xattr")
	}
	checksums, err := x.loadChecksums(path)
	if err != nil {
		return types.Object{}, errs.New("Get", errs.IOError, bucket, key, err).WithBackend("xattr")
	}

	info := x.cfg.Info.Info(bucket, key)
	if info == nil {
		return types.Object{}, checkOrphan(bucket, key, info)
	}

	rec := Record{
		ETag:             etag,
		ContentType:      contentType,
		OwnerID:          ownerID,
		OwnerDisplayName: ownerDisplayName,
		UserMetadata:     userMetadata,
		Checksums:        checksums,
	}
	return buildObject(bucket, key, rec, info), nil
}

func (x *Xattr) loadUserMetadata(path string) (map[string]string, error) {
	names, err := xattr.List(path)
	if err != nil {
		return nil, err
	}
	prefix := x.attrName(xattrUserMetadataPfx)
	out := make(map[string]string)
	for _, name := range names {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		key := strings.TrimPrefix(name, prefix)
		value, err := xattr.Get(path, name)
		if err != nil {
			if isNoAttr(err) {
				continue
			}
			return nil, err
		}
		out[key] = string(value)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

func (x *Xattr) Delete(ctx context.Context, bucket, key string) error {
	path := x.objectPath(bucket, key)
	names, err := xattr.List(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errs.New("Delete", errs.IOError, bucket, key, err).WithBackend("xattr")
	}
	prefix := x.cfg.prefix()
	for _, name := range names {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		if err := xattr.Remove(path, name); err != nil && !isNoAttr(err) {
			return errs.New("Delete", errs.IOError, bucket, key, err).WithBackend("xattr")
		}
	}
	return nil
}

func (x *Xattr) Exists(ctx context.Context, bucket, key string) bool {
	_, ok, err := x.getAttr(x.objectPath(bucket, key), xattrETag)
	return err == nil && ok
}

// ListAllKeys walks the data tree and reports every file carrying this
// backend's ETag attribute.
func (x *Xattr) ListAllKeys(ctx context.Context, bucket string) ([]string, error) {
	root := filepath.Join(x.cfg.DataRoot, bucket)
	var keys []string

	err := filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() {
			return nil
		}
		if _, ok, attrErr := x.getAttr(p, xattrETag); attrErr == nil && ok {
			rel, relErr := filepath.Rel(root, p)
			if relErr != nil {
				return relErr
			}
			keys = append(keys, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		return nil, errs.New("ListAllKeys", errs.IOError, bucket, "", err).WithBackend("xattr")
	}
	return keys, nil
}

func isNoAttr(err error) bool {
	var xerr *xattr.Error
	if e, ok := err.(*xattr.Error); ok {
		xerr = e
	}
	return xerr != nil && xerr.Err == xattr.ENOATTR
}
