package metadatastore

import (
	"context"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/laminastore/lamina/pkg/lamina/errs"
	"github.com/laminastore/lamina/pkg/lamina/netfs"
	"github.com/laminastore/lamina/pkg/lamina/objectstore"
	"github.com/laminastore/lamina/pkg/lamina/types"
)

// backendFactory builds a fresh Backend rooted in its own temp
// directory, plus the objectstore.Store it shares data-file info with.
type backendFactory func(t *testing.T) (Backend, *objectstore.Store)

func factories(t *testing.T) map[string]backendFactory {
	t.Helper()
	out := map[string]backendFactory{
		"SeparateDirectory": func(t *testing.T) (Backend, *objectstore.Store) {
			dataRoot := t.TempDir()
			metaRoot := t.TempDir()
			store := objectstore.New(objectstore.Config{DataRoot: dataRoot, NetFS: netfs.Policy{Mode: netfs.ModeNone}})
			be := NewSeparateDirectory(SeparateDirectoryConfig{MetaRoot: metaRoot, Info: store, NetFS: netfs.Policy{Mode: netfs.ModeNone}})
			return be, store
		},
		"Inline": func(t *testing.T) (Backend, *objectstore.Store) {
			dataRoot := t.TempDir()
			store := objectstore.New(objectstore.Config{DataRoot: dataRoot, NetFS: netfs.Policy{Mode: netfs.ModeNone}})
			be := NewInline(InlineConfig{DataRoot: dataRoot, Info: store, NetFS: netfs.Policy{Mode: netfs.ModeNone}})
			return be, store
		},
	}
	if xattrSupported() {
		out["Xattr"] = func(t *testing.T) (Backend, *objectstore.Store) {
			dataRoot := t.TempDir()
			store := objectstore.New(objectstore.Config{DataRoot: dataRoot, NetFS: netfs.Policy{Mode: netfs.ModeNone}})
			be, err := NewXattr(XattrConfig{DataRoot: dataRoot, Info: store})
			require.NoError(t, err)
			return be, store
		}
	}
	return out
}

func writeDataFile(t *testing.T, store *objectstore.Store, bucket, key, body string) {
	t.Helper()
	_, err := store.Store(context.Background(), bucket, key, strings.NewReader(body), nil, nil)
	require.NoError(t, err)
}

func TestBackendConformance(t *testing.T) {
	for name, factory := range factories(t) {
		t.Run(name, func(t *testing.T) {
			t.Run("StoreThenGetRoundTrips", func(t *testing.T) {
				be, store := factory(t)
				writeDataFile(t, store, "b", "k.txt", "hello world")

				rec := Record{
					ETag:         "abc123",
					ContentType:  "text/plain",
					OwnerID:      "owner-1",
					UserMetadata: map[string]string{"X-Custom": "v1"},
					Checksums:    types.ChecksumSet{SHA256: "deadbeef"},
				}
				obj, err := be.Store(context.Background(), "b", "k.txt", rec)
				require.NoError(t, err)
				require.Equal(t, "abc123", obj.ETag)
				require.Equal(t, int64(len("hello world")), obj.Size)

				got, err := be.Get(context.Background(), "b", "k.txt")
				require.NoError(t, err)
				require.Equal(t, "abc123", got.ETag)
				require.Equal(t, "text/plain", got.ContentType)
				require.Equal(t, "owner-1", got.OwnerID)
				require.Equal(t, "v1", got.UserMetadata["x-custom"])
				require.Equal(t, "deadbeef", got.Checksums.SHA256)
				require.Equal(t, int64(len("hello world")), got.Size)
			})

			t.Run("GetMissingReturnsNotFound", func(t *testing.T) {
				be, _ := factory(t)
				_, err := be.Get(context.Background(), "b", "missing.txt")
				require.Error(t, err)
				require.Equal(t, errs.NotFound, errs.CodeOf(err))
			})

			t.Run("OrphanMetadataIsCleanedUpOnGet", func(t *testing.T) {
				be, store := factory(t)
				writeDataFile(t, store, "b", "k.txt", "x")
				_, err := be.Store(context.Background(), "b", "k.txt", Record{ETag: "e"})
				require.NoError(t, err)

				store.Delete(context.Background(), "b", "k.txt")

				_, err = be.Get(context.Background(), "b", "k.txt")
				require.Error(t, err)
				require.Equal(t, errs.NotFound, errs.CodeOf(err))
				require.False(t, be.Exists(context.Background(), "b", "k.txt"))
			})

			t.Run("DeleteIsIdempotent", func(t *testing.T) {
				be, store := factory(t)
				writeDataFile(t, store, "b", "k.txt", "x")
				_, err := be.Store(context.Background(), "b", "k.txt", Record{ETag: "e"})
				require.NoError(t, err)

				require.NoError(t, be.Delete(context.Background(), "b", "k.txt"))
				require.NoError(t, be.Delete(context.Background(), "b", "k.txt"))
				require.False(t, be.Exists(context.Background(), "b", "k.txt"))
			})

			t.Run("ListAllKeysEnumeratesStoredRecords", func(t *testing.T) {
				be, store := factory(t)
				writeDataFile(t, store, "b", "a/one.txt", "1")
				writeDataFile(t, store, "b", "a/two.txt", "2")
				writeDataFile(t, store, "b", "three.txt", "3")

				for _, key := range []string{"a/one.txt", "a/two.txt", "three.txt"} {
					_, err := be.Store(context.Background(), "b", key, Record{ETag: "e"})
					require.NoError(t, err)
				}

				keys, err := be.ListAllKeys(context.Background(), "b")
				require.NoError(t, err)
				sort.Strings(keys)
				require.Equal(t, []string{"a/one.txt", "a/two.txt", "three.txt"}, keys)
			})

			t.Run("UserMetadataLookupIsCaseInsensitive", func(t *testing.T) {
				be, store := factory(t)
				writeDataFile(t, store, "b", "k.txt", "x")
				_, err := be.Store(context.Background(), "b", "k.txt", Record{
					ETag:         "e",
					UserMetadata: map[string]string{"Content-Language": "en"},
				})
				require.NoError(t, err)

				got, err := be.Get(context.Background(), "b", "k.txt")
				require.NoError(t, err)
				require.Equal(t, "en", got.UserMetadata["content-language"])
			})
		})
	}
}

func TestInlineRejectsReservedSegment(t *testing.T) {
	in := NewInline(InlineConfig{DataRoot: t.TempDir()})
	err := in.IsValidKey("foo/" + DefaultInlineDirName + "/bar.txt")
	require.Error(t, err)
	require.ErrorIs(t, err, errs.ErrForbiddenKey)
}

func TestInlineAcceptsOrdinaryKey(t *testing.T) {
	in := NewInline(InlineConfig{DataRoot: t.TempDir()})
	require.NoError(t, in.IsValidKey("foo/bar.txt"))
}
