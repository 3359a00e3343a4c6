// Package metadatastore implements the Object Metadata Store contract
// and its three filesystem-native backends: separate-directory sidecar
// JSON, inline sidecar JSON, and Linux/macOS extended attributes.
//
// The metadata record is authoritative for ETag, content-type,
// user-metadata, owner, and checksums; size and last-modified always
// come from the data file itself, so every backend is constructed with
// an ObjectInfoProvider it consults on Store and Get.
package metadatastore

import (
	"context"
	"strings"

	"github.com/laminastore/lamina/pkg/lamina/errs"
	"github.com/laminastore/lamina/pkg/lamina/types"
)

// ObjectInfoProvider supplies the size/mtime pair a metadata backend
// cannot itself compute; pkg/lamina/objectstore.Store satisfies it.
type ObjectInfoProvider interface {
	Info(bucket, key string) *types.ObjectInfo
}

// Record is the caller-supplied metadata written on Store. LastModified
// and Size are never part of Record: they are read from the data file
// by the backend itself.
type Record struct {
	ETag             string
	ContentType      string
	OwnerID          string
	OwnerDisplayName string
	UserMetadata     map[string]string
	Checksums        types.ChecksumSet
}

// Backend is the shared contract every metadata backend implements.
type Backend interface {
	// Store persists rec for bucket/key and returns the fully-populated
	// Object, with Size/LastModified sourced from the data file.
	Store(ctx context.Context, bucket, key string, rec Record) (types.Object, error)
	// Get returns bucket/key's object record. If metadata exists but
	// the data file does not, the metadata is orphaned: it is removed
	// and Get returns errs.ErrObjectNotFound.
	Get(ctx context.Context, bucket, key string) (types.Object, error)
	Delete(ctx context.Context, bucket, key string) error
	Exists(ctx context.Context, bucket, key string) bool
	// ListAllKeys enumerates every key with a metadata record in
	// bucket, used for rebuilds and migrations.
	ListAllKeys(ctx context.Context, bucket string) ([]string, error)
	IsValidKey(key string) error
}

// userMetadataLookup makes UserMetadata case-insensitive on read,
// matching the data model's "case-insensitive string mapping"
// attribute, while preserving the caller's original casing on write.
func userMetadataLookup(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[strings.ToLower(k)] = v
	}
	return out
}

func buildObject(bucket, key string, rec Record, info *types.ObjectInfo) types.Object {
	obj := types.Object{
		Bucket:           bucket,
		Key:              key,
		ETag:             rec.ETag,
		ContentType:      rec.ContentType,
		OwnerID:          rec.OwnerID,
		OwnerDisplayName: rec.OwnerDisplayName,
		UserMetadata:     userMetadataLookup(rec.UserMetadata),
		Checksums:        rec.Checksums,
	}
	if info != nil {
		obj.Size = info.Size
		obj.LastModified = info.LastModified
	}
	return obj
}

// checkOrphan returns errs.ErrObjectNotFound when the metadata record
// exists but the backing data file does not (info == nil), signaling
// the caller that it removed the orphaned record.
func checkOrphan(bucket, key string, info *types.ObjectInfo) error {
	if info == nil {
		return errs.New("Get", errs.NotFound, bucket, key, errs.ErrObjectNotFound)
	}
	return nil
}
