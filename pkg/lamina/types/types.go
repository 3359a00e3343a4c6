// Package types holds the data-model records shared across every
// storage-engine subpackage: buckets, objects, multipart uploads and
// parts, and the small result structs the component contracts return.
// It exists separately from pkg/lamina so that objectstore, metadatastore,
// multipart, and the other components can share one vocabulary without
// importing the top-level facade package that assembles them.
package types

import "time"

// BucketType selects the S3 bucket flavor. Directory buckets trade
// lexicographic LIST ordering for filesystem-native enumeration speed.
type BucketType string

const (
	BucketGeneralPurpose BucketType = "GeneralPurpose"
	BucketDirectory      BucketType = "Directory"
)

// Bucket is the top-level container entity. Physically a directory under
// the configured data root.
type Bucket struct {
	Name         string
	CreatedAt    time.Time
	Type         BucketType
	StorageClass string
	OwnerID      string
	Tags         map[string]string
}

// Object describes an object's attributes as recorded by the metadata
// store, with Size/LastModified sourced from the data file itself.
type Object struct {
	Bucket           string
	Key              string
	Size             int64
	LastModified     time.Time
	ETag             string
	ContentType      string
	OwnerID          string
	OwnerDisplayName string
	UserMetadata     map[string]string
	Checksums        ChecksumSet
}

// ChecksumSet holds the optional per-algorithm checksum values computed
// for an object or a single multipart part. Values are base64-encoded,
// matching the S3 x-amz-checksum-* header convention. An empty string
// means the algorithm was not requested.
type ChecksumSet struct {
	CRC32     string
	CRC32C    string
	CRC64NVME string
	SHA1      string
	SHA256    string
}

// Algorithm identifies one of the supported checksum algorithms.
type Algorithm string

const (
	AlgorithmCRC32     Algorithm = "CRC32"
	AlgorithmCRC32C    Algorithm = "CRC32C"
	AlgorithmCRC64NVME Algorithm = "CRC64NVME"
	AlgorithmSHA1      Algorithm = "SHA1"
	AlgorithmSHA256    Algorithm = "SHA256"
)

// MultipartUpload identifies an in-progress multipart upload.
type MultipartUpload struct {
	UploadID     string
	Bucket       string
	Key          string
	InitiatedAt  time.Time
	ContentType  string
	UserMetadata map[string]string
	ChecksumAlgo Algorithm // empty if the upload did not request one
}

// UploadPart describes one staged part of a multipart upload.
type UploadPart struct {
	PartNumber   int
	Size         int64
	ETag         string
	LastModified time.Time
	Checksums    ChecksumSet
}

// CompletedPart is the caller-supplied (partNumber, expectedETag) pair
// used to verify and assemble a multipart upload at Complete time.
type CompletedPart struct {
	PartNumber int
	ETag       string
}

// ObjectInfo is the lightweight size/mtime pair returned by Info, sourced
// directly from the data file — never from metadata.
type ObjectInfo struct {
	Size         int64
	LastModified time.Time
}

// StoreResult is returned by Store/StoreFromParts/Copy.
type StoreResult struct {
	Size      int64
	ETag      string
	Checksums ChecksumSet
}

// ListResult is returned by the data store's List operation.
type ListResult struct {
	Keys           []string
	CommonPrefixes []string
	IsTruncated    bool
	StartAfter     string
}

// ChecksumRequest asks the data store to validate an in-flight checksum
// against a client-supplied expected value, for one algorithm.
type ChecksumRequest struct {
	Algorithm Algorithm
	Expected  string // base64-encoded; empty means compute-only, no compare
}
