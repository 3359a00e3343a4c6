package metadatastore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/laminastore/lamina/pkg/lamina/errs"
	"github.com/laminastore/lamina/pkg/lamina/types"
)

// objectRecord is the GORM model backing the Database metadata mode:
// one row per bucket/key, with ContentType/OwnerID etc. as plain
// columns and UserMetadata/Checksums serialized to JSON text, mirroring
// the sidecar backends' on-disk shape rather than inventing a second
// encoding for the same data.
type objectRecord struct {
	ID               uint   `gorm:"primaryKey"`
	Bucket           string `gorm:"uniqueIndex:idx_bucket_key;not null"`
	Key              string `gorm:"uniqueIndex:idx_bucket_key;not null"`
	ETag             string
	ContentType      string
	OwnerID          string
	OwnerDisplayName string
	UserMetadataJSON string
	ChecksumsJSON    string
}

func (objectRecord) TableName() string { return "lamina_object_metadata" }

// DatabaseConfig configures the relational metadata backend.
type DatabaseConfig struct {
	Host         string
	Port         int
	Database     string
	User         string
	Password     string
	SSLMode      string // disable, require, verify-ca, verify-full
	MaxOpenConns int
	MaxIdleConns int
	Info         ObjectInfoProvider
}

func (c DatabaseConfig) dsn() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, sslMode)
}

// Database is the relational Object Metadata Store backend: one row
// per object, keyed by (bucket, key), with Size/LastModified still
// sourced from the data file through Info like every other backend.
type Database struct {
	cfg DatabaseConfig
	db  *gorm.DB
}

// NewDatabase opens a PostgreSQL connection per cfg, runs
// AutoMigrate for the metadata table, and returns a ready Database
// backend.
func NewDatabase(cfg DatabaseConfig) (*Database, error) {
	db, err := gorm.Open(postgres.Open(cfg.dsn()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, errs.New("NewDatabase", errs.IOError, "", "", fmt.Errorf("connect: %w", err)).WithBackend("database")
	}

	maxOpen := cfg.MaxOpenConns
	if maxOpen == 0 {
		maxOpen = 25
	}
	maxIdle := cfg.MaxIdleConns
	if maxIdle == 0 {
		maxIdle = 5
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(maxOpen)
		sqlDB.SetMaxIdleConns(maxIdle)
	}

	if err := db.AutoMigrate(&objectRecord{}); err != nil {
		return nil, errs.New("NewDatabase", errs.IOError, "", "", fmt.Errorf("migrate: %w", err)).WithBackend("database")
	}

	return &Database{cfg: cfg, db: db}, nil
}

// DB returns the underlying GORM connection, for administrative tooling.
func (d *Database) DB() *gorm.DB {
	return d.db
}

func (d *Database) IsValidKey(key string) error {
	if key == "" {
		return errs.New("IsValidKey", errs.InvalidArgument, "", key, errs.ErrForbiddenKey)
	}
	return nil
}

func (d *Database) Store(ctx context.Context, bucket, key string, rec Record) (types.Object, error) {
	userMetaJSON, err := json.Marshal(rec.UserMetadata)
	if err != nil {
		return types.Object{}, errs.New("Store", errs.InvalidArgument, bucket, key, err).WithBackend("database")
	}
	checksumsJSON, err := json.Marshal(rec.Checksums)
	if err != nil {
		return types.Object{}, errs.New("Store", errs.InvalidArgument, bucket, key, err).WithBackend("database")
	}

	row := objectRecord{
		Bucket:           bucket,
		Key:              key,
		ETag:             rec.ETag,
		ContentType:      rec.ContentType,
		OwnerID:          rec.OwnerID,
		OwnerDisplayName: rec.OwnerDisplayName,
		UserMetadataJSON: string(userMetaJSON),
		ChecksumsJSON:    string(checksumsJSON),
	}

	err = d.db.WithContext(ctx).
		Where(objectRecord{Bucket: bucket, Key: key}).
		Assign(row).
		FirstOrCreate(&row).Error
	if err != nil {
		return types.Object{}, errs.New("Store", errs.IOError, bucket, key, err).WithBackend("database")
	}

	info := d.cfg.Info.Info(bucket, key)
	return buildObject(bucket, key, rec, info), nil
}

func (d *Database) Get(ctx context.Context, bucket, key string) (types.Object, error) {
	rec, err := d.getRecord(ctx, bucket, key)
	if err != nil {
		return types.Object{}, err
	}

	info := d.cfg.Info.Info(bucket, key)
	if info == nil {
		_ = d.Delete(ctx, bucket, key)
		return types.Object{}, checkOrphan(bucket, key, info)
	}
	return buildObject(bucket, key, rec, info), nil
}

func (d *Database) getRecord(ctx context.Context, bucket, key string) (Record, error) {
	var row objectRecord
	err := d.db.WithContext(ctx).
		Where("bucket = ? AND key = ?", bucket, key).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Record{}, errs.New("Get", errs.NotFound, bucket, key, errs.ErrObjectNotFound).WithBackend("database")
		}
		return Record{}, errs.New("Get", errs.IOError, bucket, key, err).WithBackend("database")
	}

	var userMeta map[string]string
	_ = json.Unmarshal([]byte(row.UserMetadataJSON), &userMeta)
	var checksums types.ChecksumSet
	_ = json.Unmarshal([]byte(row.ChecksumsJSON), &checksums)

	return Record{
		ETag:             row.ETag,
		ContentType:      row.ContentType,
		OwnerID:          row.OwnerID,
		OwnerDisplayName: row.OwnerDisplayName,
		UserMetadata:     userMeta,
		Checksums:        checksums,
	}, nil
}

func (d *Database) Delete(ctx context.Context, bucket, key string) error {
	err := d.db.WithContext(ctx).
		Where("bucket = ? AND key = ?", bucket, key).
		Delete(&objectRecord{}).Error
	if err != nil {
		return errs.New("Delete", errs.IOError, bucket, key, err).WithBackend("database")
	}
	return nil
}

func (d *Database) Exists(ctx context.Context, bucket, key string) bool {
	var count int64
	d.db.WithContext(ctx).Model(&objectRecord{}).
		Where("bucket = ? AND key = ?", bucket, key).
		Count(&count)
	return count > 0
}

func (d *Database) ListAllKeys(ctx context.Context, bucket string) ([]string, error) {
	var keys []string
	err := d.db.WithContext(ctx).Model(&objectRecord{}).
		Where("bucket = ?", bucket).
		Order("key").
		Pluck("key", &keys).Error
	if err != nil {
		return nil, errs.New("ListAllKeys", errs.IOError, bucket, "", err).WithBackend("database")
	}
	return keys, nil
}
