package metadatastore

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/laminastore/lamina/pkg/lamina/errs"
	"github.com/laminastore/lamina/pkg/lamina/netfs"
	"github.com/laminastore/lamina/pkg/lamina/types"
)

// DefaultInlineDirName is the reserved sidecar directory name created
// inside every directory of the data tree that holds an object.
const DefaultInlineDirName = ".lamina-meta"

// InlineConfig configures the Inline backend.
type InlineConfig struct {
	DataRoot string
	DirName  string // defaults to DefaultInlineDirName
	Info     ObjectInfoProvider
	NetFS    netfs.Policy
}

func (c InlineConfig) dirName() string {
	if c.DirName == "" {
		return DefaultInlineDirName
	}
	return c.DirName
}

// Inline stores sidecars at
// <data-root>/<bucket>/<dir-of-key>/.lamina-meta/<filename>.json,
// alongside the object's own data file.
type Inline struct {
	cfg InlineConfig
}

// NewInline creates an Inline backend.
func NewInline(cfg InlineConfig) *Inline {
	return &Inline{cfg: cfg}
}

func (in *Inline) sidecarPath(bucket, key string) string {
	objectPath := filepath.Join(in.cfg.DataRoot, bucket, filepath.FromSlash(key))
	dir := filepath.Dir(objectPath)
	base := filepath.Base(objectPath)
	return filepath.Join(dir, in.cfg.dirName(), base+".json")
}

// IsValidKey rejects any key containing a path segment equal to the
// reserved inline-metadata directory name.
func (in *Inline) IsValidKey(key string) error {
	if key == "" {
		return errs.New("IsValidKey", errs.InvalidArgument, "", key, errs.ErrForbiddenKey)
	}
	for _, segment := range strings.Split(key, "/") {
		if segment == in.cfg.dirName() {
			return errs.New("IsValidKey", errs.InvalidArgument, "", key, errs.ErrForbiddenKey)
		}
	}
	return nil
}

func (in *Inline) Store(ctx context.Context, bucket, key string, rec Record) (types.Object, error) {
	if err := in.IsValidKey(key); err != nil {
		return types.Object{}, err
	}

	path := in.sidecarPath(bucket, key)
	dir := filepath.Dir(path)
	if err := netfs.EnsureDirectoryExists(ctx, in.cfg.NetFS, dir); err != nil {
		return types.Object{}, errs.New("Store", errs.IOError, bucket, key, err).WithBackend("inline")
	}
	if err := writeSidecarJSON(path, recordToBody(rec)); err != nil {
		return types.Object{}, errs.New("Store", errs.IOError, bucket, key, err).WithBackend("inline")
	}

	info := in.cfg.Info.Info(bucket, key)
	return buildObject(bucket, key, rec, info), nil
}

func (in *Inline) Get(ctx context.Context, bucket, key string) (types.Object, error) {
	path := in.sidecarPath(bucket, key)
	body, err := readSidecarJSON(path)
	if err != nil {
		if os.IsNotExist(err) {
			return types.Object{}, errs.New("Get", errs.NotFound, bucket, key, errs.ErrObjectNotFound).WithBackend("inline")
		}
		return types.Object{}, errs.New("Get", errs.IOError, bucket, key, err).WithBackend("inline")
	}

	info := in.cfg.Info.Info(bucket, key)
	if info == nil {
		_ = in.Delete(ctx, bucket, key)
		return types.Object{}, checkOrphan(bucket, key, info)
	}

	return buildObject(bucket, key, body.toRecord(), info), nil
}

func (in *Inline) Delete(ctx context.Context, bucket, key string) error {
	path := in.sidecarPath(bucket, key)
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return errs.New("Delete", errs.IOError, bucket, key, err).WithBackend("inline")
	}

	boundary := filepath.Join(in.cfg.DataRoot, bucket)
	_ = netfs.DeleteDirectoryIfEmpty(ctx, in.cfg.NetFS, filepath.Dir(path), boundary)
	return nil
}

func (in *Inline) Exists(ctx context.Context, bucket, key string) bool {
	_, err := os.Stat(in.sidecarPath(bucket, key))
	return err == nil
}

// ListAllKeys walks the data tree looking for inline-metadata
// directories and reconstructs each sidecar's object key relative to
// the bucket root.
func (in *Inline) ListAllKeys(ctx context.Context, bucket string) ([]string, error) {
	root := filepath.Join(in.cfg.DataRoot, bucket)
	var keys []string

	err := filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() || !strings.HasSuffix(p, ".json") {
			return nil
		}
		dir := filepath.Dir(p)
		if filepath.Base(dir) != in.cfg.dirName() {
			return nil
		}

		objectDir := filepath.Dir(dir)
		objectFile := strings.TrimSuffix(filepath.Base(p), ".json")
		objectPath := filepath.Join(objectDir, objectFile)
		rel, relErr := filepath.Rel(root, objectPath)
		if relErr != nil {
			return relErr
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, errs.New("ListAllKeys", errs.IOError, bucket, "", err).WithBackend("inline")
	}
	return keys, nil
}
