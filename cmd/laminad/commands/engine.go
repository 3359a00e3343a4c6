package commands

import (
	"fmt"

	"github.com/laminastore/lamina/internal/config"
	"github.com/laminastore/lamina/internal/metrics"
	"github.com/laminastore/lamina/pkg/lamina/bucketstore"
	"github.com/laminastore/lamina/pkg/lamina/facade"
	"github.com/laminastore/lamina/pkg/lamina/lockmgr"
	"github.com/laminastore/lamina/pkg/lamina/metadatastore"
	"github.com/laminastore/lamina/pkg/lamina/multipart"
	"github.com/laminastore/lamina/pkg/lamina/netfs"
	"github.com/laminastore/lamina/pkg/lamina/objectstore"
)

// buildEngine wires cfg into the full set of lower-level stores and
// composes them into a facade.Facade, the same assembly an embedding
// application performs to obtain a ready-to-use storage engine.
func buildEngine(cfg *config.Config) (*facade.Facade, error) {
	policy := netfs.Policy{
		Mode:         netfs.Mode(cfg.NetworkMode),
		RetryCount:   cfg.RetryCount,
		RetryDelayMs: cfg.RetryDelayMs,
	}

	objects := objectstore.New(objectstore.Config{
		DataRoot:      cfg.DataDirectory,
		InlineMetaDir: cfg.InlineMetadataDirectoryName,
		NetFS:         policy,
	})

	metaBackend, err := buildMetadataBackend(cfg, objects, policy)
	if err != nil {
		return nil, err
	}

	buckets := bucketstore.New(bucketstore.Config{
		DataRoot:      cfg.DataDirectory,
		MetadataRoot:  cfg.MetadataDirectory,
		InlineMetaDir: cfg.InlineMetadataDirectoryName,
		NetFS:         policy,
	})

	mp := multipart.New(multipart.Config{
		StagingRoot: cfg.DataDirectory,
		Objects:     objects,
		NetFS:       policy,
	})

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	return facade.New(facade.Config{
		Objects:   objects,
		Metadata:  metaBackend,
		Buckets:   buckets,
		Multipart: mp,
		Locks:     lockmgr.NewLocal(),
		Metrics:   m,
	}), nil
}

func buildMetadataBackend(cfg *config.Config, objects *objectstore.Store, policy netfs.Policy) (metadatastore.Backend, error) {
	switch cfg.MetadataMode {
	case config.MetadataModeSeparateDirectory, "":
		return metadatastore.NewSeparateDirectory(metadatastore.SeparateDirectoryConfig{
			MetaRoot: cfg.MetadataDirectory,
			Info:     objects,
			NetFS:    policy,
		}), nil
	case config.MetadataModeInline:
		return metadatastore.NewInline(metadatastore.InlineConfig{
			DataRoot: cfg.DataDirectory,
			DirName:  cfg.InlineMetadataDirectoryName,
			Info:     objects,
			NetFS:    policy,
		}), nil
	case config.MetadataModeXattr:
		return metadatastore.NewXattr(metadatastore.XattrConfig{
			DataRoot: cfg.DataDirectory,
			Prefix:   cfg.XattrPrefix,
			Info:     objects,
		})
	case config.MetadataModeDatabase:
		return metadatastore.NewDatabase(metadatastore.DatabaseConfig{
			Host:         cfg.Database.Host,
			Port:         cfg.Database.Port,
			Database:     cfg.Database.Database,
			User:         cfg.Database.User,
			Password:     cfg.Database.Password,
			SSLMode:      cfg.Database.SSLMode,
			MaxOpenConns: cfg.Database.MaxOpenConns,
			MaxIdleConns: cfg.Database.MaxIdleConns,
			Info:         objects,
		})
	default:
		return nil, fmt.Errorf("metadata mode %q has no standalone CLI backend; configure it through the embedding application", cfg.MetadataMode)
	}
}
