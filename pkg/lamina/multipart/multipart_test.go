package multipart

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/laminastore/lamina/pkg/lamina/errs"
	"github.com/laminastore/lamina/pkg/lamina/netfs"
	"github.com/laminastore/lamina/pkg/lamina/objectstore"
	"github.com/laminastore/lamina/pkg/lamina/types"
)

func newTestStore(t *testing.T) (*Store, *objectstore.Store) {
	t.Helper()
	dataRoot := t.TempDir()
	objects := objectstore.New(objectstore.Config{DataRoot: dataRoot, NetFS: netfs.Policy{Mode: netfs.ModeNone}})
	mp := New(Config{StagingRoot: dataRoot, Objects: objects, NetFS: netfs.Policy{Mode: netfs.ModeNone}})
	return mp, objects
}

func mustStorePart(t *testing.T, mp *Store, uploadID string, partNumber int, body string) types.UploadPart {
	t.Helper()
	part, err := mp.StorePart(context.Background(), uploadID, partNumber, strings.NewReader(body), nil, nil)
	require.NoError(t, err)
	return part
}

func TestInitiateCreatesStagingDirectory(t *testing.T) {
	mp, _ := newTestStore(t)
	upload, err := mp.Initiate(context.Background(), "bucket", "key.txt", "text/plain", map[string]string{"a": "b"}, "")
	require.NoError(t, err)
	require.NotEmpty(t, upload.UploadID)
	require.True(t, mp.uploadExists(upload.UploadID))
}

func TestStorePartThenListParts(t *testing.T) {
	mp, _ := newTestStore(t)
	upload, err := mp.Initiate(context.Background(), "bucket", "key.txt", "text/plain", nil, "")
	require.NoError(t, err)

	p1 := mustStorePart(t, mp, upload.UploadID, 1, "hello ")
	p2 := mustStorePart(t, mp, upload.UploadID, 2, "world")

	parts, err := mp.ListParts(context.Background(), upload.UploadID)
	require.NoError(t, err)
	require.Len(t, parts, 2)
	require.Equal(t, 1, parts[0].PartNumber)
	require.Equal(t, 2, parts[1].PartNumber)
	require.Equal(t, p1.ETag, parts[0].ETag)
	require.Equal(t, p2.ETag, parts[1].ETag)
}

func TestStorePartUnknownUploadFails(t *testing.T) {
	mp, _ := newTestStore(t)
	_, err := mp.StorePart(context.Background(), "does-not-exist", 1, strings.NewReader("x"), nil, nil)
	require.Error(t, err)
	require.Equal(t, errs.NotFound, errs.CodeOf(err))
}

func TestCompleteAssemblesObjectAndCleansUpStaging(t *testing.T) {
	mp, objects := newTestStore(t)
	upload, err := mp.Initiate(context.Background(), "bucket", "key.txt", "text/plain", nil, "")
	require.NoError(t, err)

	p1 := mustStorePart(t, mp, upload.UploadID, 1, "hello ")
	p2 := mustStorePart(t, mp, upload.UploadID, 2, "world")

	result, err := mp.Complete(context.Background(), upload.UploadID, []types.CompletedPart{
		{PartNumber: 1, ETag: p1.ETag},
		{PartNumber: 2, ETag: p2.ETag},
	})
	require.NoError(t, err)
	require.Equal(t, int64(len("hello world")), result.Size)
	require.Contains(t, result.ETag, "-2")

	require.True(t, objects.Exists("bucket", "key.txt"))
	require.False(t, mp.uploadExists(upload.UploadID))
}

func TestCompleteRejectsMismatchedETag(t *testing.T) {
	mp, _ := newTestStore(t)
	upload, err := mp.Initiate(context.Background(), "bucket", "key.txt", "text/plain", nil, "")
	require.NoError(t, err)
	mustStorePart(t, mp, upload.UploadID, 1, "hello")

	_, err = mp.Complete(context.Background(), upload.UploadID, []types.CompletedPart{
		{PartNumber: 1, ETag: "not-the-real-etag"},
	})
	require.Error(t, err)
	require.Equal(t, errs.IntegrityError, errs.CodeOf(err))
}

func TestCompleteRejectsMissingPart(t *testing.T) {
	mp, _ := newTestStore(t)
	upload, err := mp.Initiate(context.Background(), "bucket", "key.txt", "text/plain", nil, "")
	require.NoError(t, err)
	mustStorePart(t, mp, upload.UploadID, 1, "hello")

	_, err = mp.Complete(context.Background(), upload.UploadID, []types.CompletedPart{
		{PartNumber: 1, ETag: mp.mustETag(t, upload.UploadID, 1)},
		{PartNumber: 2, ETag: "whatever"},
	})
	require.Error(t, err)
	require.Equal(t, errs.InvalidArgument, errs.CodeOf(err))
}

// mustETag is a tiny test-only convenience wrapping ListParts to avoid
// threading the part's ETag through every test case manually.
func (s *Store) mustETag(t *testing.T, uploadID string, partNumber int) string {
	t.Helper()
	parts, err := s.ListParts(context.Background(), uploadID)
	require.NoError(t, err)
	for _, p := range parts {
		if p.PartNumber == partNumber {
			return p.ETag
		}
	}
	t.Fatalf("part %d not found", partNumber)
	return ""
}

func TestAbortRemovesStaging(t *testing.T) {
	mp, _ := newTestStore(t)
	upload, err := mp.Initiate(context.Background(), "bucket", "key.txt", "text/plain", nil, "")
	require.NoError(t, err)
	mustStorePart(t, mp, upload.UploadID, 1, "hello")

	require.NoError(t, mp.Abort(context.Background(), upload.UploadID))
	require.False(t, mp.uploadExists(upload.UploadID))
}

func TestAbortUnknownUploadFails(t *testing.T) {
	mp, _ := newTestStore(t)
	err := mp.Abort(context.Background(), "does-not-exist")
	require.Error(t, err)
	require.Equal(t, errs.NotFound, errs.CodeOf(err))
}
