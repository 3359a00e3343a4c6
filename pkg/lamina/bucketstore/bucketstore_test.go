package bucketstore

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/laminastore/lamina/pkg/lamina/errs"
	"github.com/laminastore/lamina/pkg/lamina/netfs"
	"github.com/laminastore/lamina/pkg/lamina/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(Config{DataRoot: t.TempDir(), NetFS: netfs.Policy{Mode: netfs.ModeNone}})
}

func TestCreateThenHead(t *testing.T) {
	s := newTestStore(t)
	created, err := s.Create(context.Background(), types.Bucket{Name: "my-bucket", Type: types.BucketGeneralPurpose})
	require.NoError(t, err)
	require.False(t, created.CreatedAt.IsZero())

	got, err := s.Head(context.Background(), "my-bucket")
	require.NoError(t, err)
	require.Equal(t, "my-bucket", got.Name)
	require.Equal(t, types.BucketGeneralPurpose, got.Type)
}

func TestCreateRejectsDuplicate(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Create(context.Background(), types.Bucket{Name: "dup"})
	require.NoError(t, err)

	_, err = s.Create(context.Background(), types.Bucket{Name: "dup"})
	require.Error(t, err)
	require.Equal(t, errs.AlreadyExists, errs.CodeOf(err))
}

func TestCreateRejectsInvalidNames(t *testing.T) {
	s := newTestStore(t)
	cases := []string{
		"",
		"ab",                              // too short
		"this-bucket-name-is-far-too-long-to-satisfy-the-sixty-three-char-limit",
		"Has-Upper-Case",
		"bad_underscore",
		"-leading-hyphen",
		"trailing-hyphen-",
		".lamina-meta", // reserved inline-metadata directory name
	}
	for _, name := range cases {
		_, err := s.Create(context.Background(), types.Bucket{Name: name})
		require.Error(t, err, "name %q should be rejected", name)
		require.Equal(t, errs.InvalidArgument, errs.CodeOf(err))
	}
}

func TestHeadMissingBucketReturnsNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Head(context.Background(), "nope")
	require.Error(t, err)
	require.Equal(t, errs.NotFound, errs.CodeOf(err))
}

func TestUpdateTagsRoundTrips(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Create(context.Background(), types.Bucket{Name: "buk"})
	require.NoError(t, err)

	updated, err := s.UpdateTags(context.Background(), "buk", map[string]string{"env": "prod"})
	require.NoError(t, err)
	require.Equal(t, "prod", updated.Tags["env"])

	got, err := s.GetMetadata(context.Background(), "buk")
	require.NoError(t, err)
	require.Equal(t, "prod", got.Tags["env"])
}

func TestDeleteEmptyBucketSucceeds(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Create(context.Background(), types.Bucket{Name: "buk"})
	require.NoError(t, err)

	require.NoError(t, s.Delete(context.Background(), "buk", false))
	require.False(t, s.Exists("buk"))
}

func TestDeleteNonEmptyBucketFailsWithoutForce(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Create(context.Background(), types.Bucket{Name: "buk"})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(s.dataPath("buk")+"/object.txt", []byte("x"), 0o644))

	err = s.Delete(context.Background(), "buk", false)
	require.Error(t, err)
	require.Equal(t, errs.InvalidArgument, errs.CodeOf(err))
	require.True(t, s.Exists("buk"))
}

func TestDeleteNonEmptyBucketWithForceSucceeds(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Create(context.Background(), types.Bucket{Name: "buk"})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(s.dataPath("buk")+"/object.txt", []byte("x"), 0o644))

	require.NoError(t, s.Delete(context.Background(), "buk", true))
	require.False(t, s.Exists("buk"))
}

func TestListReturnsBucketsSortedByName(t *testing.T) {
	s := newTestStore(t)
	for _, name := range []string{"zeta", "alpha", "mid"} {
		_, err := s.Create(context.Background(), types.Bucket{Name: name})
		require.NoError(t, err)
	}

	buckets, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, buckets, 3)
	require.Equal(t, []string{"alpha", "mid", "zeta"}, []string{buckets[0].Name, buckets[1].Name, buckets[2].Name})
}
