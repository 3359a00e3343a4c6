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

// SeparateDirectoryConfig configures the separate-directory backend.
type SeparateDirectoryConfig struct {
	MetaRoot string
	Info     ObjectInfoProvider
	NetFS    netfs.Policy
}

// SeparateDirectory stores one JSON sidecar per object at
// <meta-root>/<bucket>/<key>.json, fully independent of the data tree.
type SeparateDirectory struct {
	cfg SeparateDirectoryConfig
}

// NewSeparateDirectory creates a SeparateDirectory backend.
func NewSeparateDirectory(cfg SeparateDirectoryConfig) *SeparateDirectory {
	return &SeparateDirectory{cfg: cfg}
}

func (s *SeparateDirectory) sidecarPath(bucket, key string) string {
	return filepath.Join(s.cfg.MetaRoot, bucket, filepath.FromSlash(key)+".json")
}

func (s *SeparateDirectory) IsValidKey(key string) error {
	if key == "" {
		return errs.New("IsValidKey", errs.InvalidArgument, "", key, errs.ErrForbiddenKey)
	}
	return nil
}

func (s *SeparateDirectory) Store(ctx context.Context, bucket, key string, rec Record) (types.Object, error) {
	path := s.sidecarPath(bucket, key)
	dir := filepath.Dir(path)
	if err := netfs.EnsureDirectoryExists(ctx, s.cfg.NetFS, dir); err != nil {
		return types.Object{}, errs.New("Store", errs.IOError, bucket, key, err).WithBackend("separate-directory")
	}
	if err := writeSidecarJSON(path, recordToBody(rec)); err != nil {
		return types.Object{}, errs.New("Store", errs.IOError, bucket, key, err).WithBackend("separate-directory")
	}

	info := s.cfg.Info.Info(bucket, key)
	return buildObject(bucket, key, rec, info), nil
}

func (s *SeparateDirectory) Get(ctx context.Context, bucket, key string) (types.Object, error) {
	path := s.sidecarPath(bucket, key)
	body, err := readSidecarJSON(path)
	if err != nil {
		if os.IsNotExist(err) {
			return types.Object{}, errs.New("Get", errs.NotFound, bucket, key, errs.ErrObjectNotFound).WithBackend("separate-directory")
		}
		return types.Object{}, errs.New("Get", errs.IOError, bucket, key, err).WithBackend("separate-directory")
	}

	info := s.cfg.Info.Info(bucket, key)
	if info == nil {
		_ = s.Delete(ctx, bucket, key)
		return types.Object{}, checkOrphan(bucket, key, info)
	}

	return buildObject(bucket, key, body.toRecord(), info), nil
}

func (s *SeparateDirectory) Delete(ctx context.Context, bucket, key string) error {
	path := s.sidecarPath(bucket, key)
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return errs.New("Delete", errs.IOError, bucket, key, err).WithBackend("separate-directory")
	}

	boundary := filepath.Join(s.cfg.MetaRoot, bucket)
	_ = netfs.DeleteDirectoryIfEmpty(ctx, s.cfg.NetFS, filepath.Dir(path), boundary)
	return nil
}

func (s *SeparateDirectory) Exists(ctx context.Context, bucket, key string) bool {
	_, err := os.Stat(s.sidecarPath(bucket, key))
	return err == nil
}

func (s *SeparateDirectory) ListAllKeys(ctx context.Context, bucket string) ([]string, error) {
	root := filepath.Join(s.cfg.MetaRoot, bucket)
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
		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			return relErr
		}
		keys = append(keys, filepath.ToSlash(strings.TrimSuffix(rel, ".json")))
		return nil
	})
	if err != nil {
		return nil, errs.New("ListAllKeys", errs.IOError, bucket, "", err).WithBackend("separate-directory")
	}
	return keys, nil
}
