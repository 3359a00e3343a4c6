package checksum

import (
	"crypto/md5"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/laminastore/lamina/pkg/lamina/types"
)

func TestMD5Hex(t *testing.T) {
	etag := MD5Hex([]byte("hello"))
	assert.Equal(t, "5d41402abc4b2a76b9719d911017c592", etag)
}

func TestMD5HexFromDigests(t *testing.T) {
	d1 := md5.Sum([]byte("part one"))
	d2 := md5.Sum([]byte("part two"))

	got := MD5HexFromDigests([][md5.Size]byte{d1, d2})

	combined := md5.New()
	combined.Write(d1[:])
	combined.Write(d2[:])
	want := hex.EncodeToString(combined.Sum(nil)) + "-2"

	assert.Equal(t, want, got)
}

func TestAccumulatorAppendAndFinish(t *testing.T) {
	acc := NewAccumulator(types.AlgorithmSHA256, types.AlgorithmCRC32)

	acc.Append([]byte("hello "))
	acc.Append([]byte("world"))

	result, err := acc.Finish(nil)
	require.NoError(t, err)

	assert.NotEmpty(t, result.SHA256)
	assert.NotEmpty(t, result.CRC32)
	assert.Empty(t, result.SHA1)
	assert.Empty(t, result.CRC32C)
	assert.Empty(t, result.CRC64NVME)
}

func TestAccumulatorFinishMismatch(t *testing.T) {
	acc := NewAccumulator(types.AlgorithmSHA256)
	acc.Append([]byte("hello world"))

	_, err := acc.Finish(&types.ChecksumSet{SHA256: "not-the-right-value"})
	require.Error(t, err)
}

func TestAccumulatorFinishMatch(t *testing.T) {
	acc := NewAccumulator(types.AlgorithmSHA256)
	acc.Append([]byte("hello world"))
	result, err := acc.Finish(nil)
	require.NoError(t, err)

	acc2 := NewAccumulator(types.AlgorithmSHA256)
	acc2.Append([]byte("hello world"))
	_, err = acc2.Finish(&result)
	require.NoError(t, err)
}

func TestAccumulatorEmptyAlgorithmSet(t *testing.T) {
	acc := NewAccumulator()
	acc.Append([]byte("ignored"))

	result, err := acc.Finish(nil)
	require.NoError(t, err)
	assert.Equal(t, types.ChecksumSet{}, result)
}
