package metadatastore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/laminastore/lamina/pkg/lamina/types"
)

func TestRebuildReportsMissingAndOrphanedMetadata(t *testing.T) {
	for name, factory := range factories(t) {
		t.Run(name, func(t *testing.T) {
			be, store := factory(t)
			ctx := context.Background()

			// k1 has both data and metadata: should not be reported.
			writeDataFile(t, store, "b", "k1.txt", "hello")
			_, err := be.Store(ctx, "b", "k1.txt", Record{ETag: "e1"})
			require.NoError(t, err)

			// k2 has a data file but no metadata record.
			writeDataFile(t, store, "b", "k2.txt", "world")

			// k3 has a metadata record but its data file is removed
			// directly, bypassing the backend's own orphan cleanup.
			// Xattr stores metadata on the data file's inode itself, so
			// that backend cannot produce this case: removing the file
			// removes the attribute with it.
			writeDataFile(t, store, "b", "k3.txt", "gone")
			_, err = be.Store(ctx, "b", "k3.txt", Record{ETag: "e3"})
			require.NoError(t, err)
			store.Delete(ctx, "b", "k3.txt")

			report, err := Rebuild(ctx, store, be, "b", types.BucketGeneralPurpose)
			require.NoError(t, err)
			require.Equal(t, "b", report.Bucket)
			require.ElementsMatch(t, []string{"k2.txt"}, report.MissingMetadata)
			if name == "Xattr" {
				require.Empty(t, report.OrphanedMetadata)
			} else {
				require.ElementsMatch(t, []string{"k3.txt"}, report.OrphanedMetadata)
			}
		})
	}
}

func TestRebuildCleanBucketReportsNothing(t *testing.T) {
	for name, factory := range factories(t) {
		t.Run(name, func(t *testing.T) {
			be, store := factory(t)
			ctx := context.Background()

			writeDataFile(t, store, "b", "k.txt", "hello")
			_, err := be.Store(ctx, "b", "k.txt", Record{ETag: "e"})
			require.NoError(t, err)

			report, err := Rebuild(ctx, store, be, "b", types.BucketGeneralPurpose)
			require.NoError(t, err)
			require.Empty(t, report.MissingMetadata)
			require.Empty(t, report.OrphanedMetadata)
			require.Equal(t, 1, report.DataKeys)
			require.Equal(t, 1, report.MetadataKeys)
		})
	}
}
