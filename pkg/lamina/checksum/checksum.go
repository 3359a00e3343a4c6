// Package checksum implements the streaming multi-algorithm checksum
// accumulator and the MD5-based ETag computation used by the object data
// store and the multipart subsystem.
package checksum

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"hash"
	"hash/crc32"
	"hash/crc64"

	"github.com/laminastore/lamina/pkg/lamina/errs"
	"github.com/laminastore/lamina/pkg/lamina/types"
)

// crc64NVMETable is the Rocksoft CRC-64/NVME polynomial table (reflected
// form), the variant AWS uses for the x-amz-checksum-crc64nvme header.
// hash/crc64 only ships the ISO and ECMA tables, so the polynomial is
// declared here explicitly.
var crc64NVMETable = crc64.MakeTable(0xad93d23594c93659)

// Accumulator feeds incoming bytes to every requested algorithm
// incrementally and produces base64-encoded results on Finish. It is not
// safe for concurrent use by multiple goroutines; each in-flight write
// owns its own Accumulator.
type Accumulator struct {
	algos map[types.Algorithm]hash.Hash
}

// NewAccumulator creates an Accumulator for the given set of algorithms.
// An empty set is valid and Append becomes a no-op.
func NewAccumulator(algos ...types.Algorithm) *Accumulator {
	a := &Accumulator{algos: make(map[types.Algorithm]hash.Hash, len(algos))}
	for _, algo := range algos {
		a.algos[algo] = newHash(algo)
	}
	return a
}

func newHash(algo types.Algorithm) hash.Hash {
	switch algo {
	case types.AlgorithmCRC32:
		return crc32.NewIEEE()
	case types.AlgorithmCRC32C:
		return crc32.New(crc32.MakeTable(crc32.Castagnoli))
	case types.AlgorithmCRC64NVME:
		return crc64.New(crc64NVMETable)
	case types.AlgorithmSHA1:
		return sha1.New()
	case types.AlgorithmSHA256:
		return sha256.New()
	default:
		return nil
	}
}

// Append feeds p to every configured algorithm. It never fails: hash.Hash
// implementations in the standard library never return an error from
// Write.
func (a *Accumulator) Append(p []byte) {
	for _, h := range a.algos {
		h.Write(p) //nolint:errcheck // hash.Hash.Write never errors
	}
}

// Finish returns the finalized checksum set. If expected is non-nil, each
// present entry is compared against the computed value; a mismatch
// returns errs.ErrChecksumMismatch identifying the failing algorithm via
// the wrapped error message.
func (a *Accumulator) Finish(expected *types.ChecksumSet) (types.ChecksumSet, error) {
	var result types.ChecksumSet
	for algo, h := range a.algos {
		encoded := base64.StdEncoding.EncodeToString(h.Sum(nil))
		assign(&result, algo, encoded)
	}
	if expected != nil {
		if err := compare(&result, expected); err != nil {
			return result, err
		}
	}
	return result, nil
}

func assign(set *types.ChecksumSet, algo types.Algorithm, value string) {
	switch algo {
	case types.AlgorithmCRC32:
		set.CRC32 = value
	case types.AlgorithmCRC32C:
		set.CRC32C = value
	case types.AlgorithmCRC64NVME:
		set.CRC64NVME = value
	case types.AlgorithmSHA1:
		set.SHA1 = value
	case types.AlgorithmSHA256:
		set.SHA256 = value
	}
}

func compare(computed, expected *types.ChecksumSet) error {
	pairs := []struct {
		name          string
		computed, exp string
	}{
		{"crc32", computed.CRC32, expected.CRC32},
		{"crc32c", computed.CRC32C, expected.CRC32C},
		{"crc64nvme", computed.CRC64NVME, expected.CRC64NVME},
		{"sha1", computed.SHA1, expected.SHA1},
		{"sha256", computed.SHA256, expected.SHA256},
	}
	for _, p := range pairs {
		if p.exp == "" {
			continue
		}
		if p.computed != p.exp {
			return fmt.Errorf("%w: %s", errs.ErrChecksumMismatch, p.name)
		}
	}
	return nil
}

// MD5Hex returns the lowercase-hex MD5 digest of p, the form used for
// regular-object ETags.
func MD5Hex(p []byte) string {
	sum := md5.Sum(p)
	return hex.EncodeToString(sum[:])
}

// MD5HexFromDigests computes the S3 multipart ETag form: the lowercase
// hex MD5 of the concatenated *binary* MD5 digests of each part, suffixed
// with "-<partCount>". partMD5s are each part's raw 16-byte MD5 digest in
// upload order.
func MD5HexFromDigests(partMD5s [][md5.Size]byte) string {
	h := md5.New()
	for _, digest := range partMD5s {
		h.Write(digest[:]) //nolint:errcheck
	}
	return fmt.Sprintf("%s-%d", hex.EncodeToString(h.Sum(nil)), len(partMD5s))
}
