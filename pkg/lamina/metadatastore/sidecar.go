package metadatastore

import (
	"encoding/json"
	"os"

	"github.com/laminastore/lamina/pkg/lamina/types"
)

// sidecarBody is the on-disk JSON shape shared by the separate-directory
// and inline backends.
type sidecarBody struct {
	ETag             string            `json:"etag"`
	ContentType      string            `json:"contentType"`
	OwnerID          string            `json:"ownerId"`
	OwnerDisplayName string            `json:"ownerDisplayName,omitempty"`
	UserMetadata     map[string]string `json:"userMetadata,omitempty"`
	Checksums        types.ChecksumSet `json:"checksums"`
}

func recordToBody(rec Record) sidecarBody {
	return sidecarBody{
		ETag:             rec.ETag,
		ContentType:      rec.ContentType,
		OwnerID:          rec.OwnerID,
		OwnerDisplayName: rec.OwnerDisplayName,
		UserMetadata:     rec.UserMetadata,
		Checksums:        rec.Checksums,
	}
}

func (b sidecarBody) toRecord() Record {
	return Record{
		ETag:             b.ETag,
		ContentType:      b.ContentType,
		OwnerID:          b.OwnerID,
		OwnerDisplayName: b.OwnerDisplayName,
		UserMetadata:     b.UserMetadata,
		Checksums:        b.Checksums,
	}
}

func writeSidecarJSON(path string, body sidecarBody) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func readSidecarJSON(path string) (sidecarBody, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return sidecarBody{}, err
	}
	var body sidecarBody
	if err := json.Unmarshal(data, &body); err != nil {
		return sidecarBody{}, err
	}
	return body, nil
}
