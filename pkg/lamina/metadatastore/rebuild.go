package metadatastore

import (
	"context"
	"sort"

	"github.com/laminastore/lamina/pkg/lamina/types"
)

// DataLister is the subset of objectstore.Store a Rebuild pass needs:
// enumerating every data-file key actually present in a bucket,
// independent of any metadata backend's own bookkeeping.
type DataLister interface {
	List(bucket string, bucketType types.BucketType, prefix, delimiter, startAfter string, maxKeys int) (types.ListResult, error)
}

// RebuildReport cross-checks a bucket's metadata keys against its data
// keys and reports the two ways they can diverge: a data file with no
// metadata record, and a metadata record with no backing data file.
// It is an administrative, read-only helper; nothing in the request-
// serving path calls it.
type RebuildReport struct {
	Bucket            string
	DataKeys          int
	MetadataKeys      int
	MissingMetadata   []string // data file present, no metadata record
	OrphanedMetadata  []string // metadata record present, no data file
}

// Rebuild walks every data key and every metadata key for bucket and
// reports the keys present on only one side. It does not repair
// anything; callers decide whether to re-derive metadata for
// MissingMetadata or to delete OrphanedMetadata entries.
func Rebuild(ctx context.Context, data DataLister, meta Backend, bucket string, bucketType types.BucketType) (RebuildReport, error) {
	dataKeys, err := listAllDataKeys(data, bucket, bucketType)
	if err != nil {
		return RebuildReport{}, err
	}
	metaKeys, err := meta.ListAllKeys(ctx, bucket)
	if err != nil {
		return RebuildReport{}, err
	}

	dataSet := toSet(dataKeys)
	metaSet := toSet(metaKeys)

	report := RebuildReport{
		Bucket:       bucket,
		DataKeys:     len(dataKeys),
		MetadataKeys: len(metaKeys),
	}
	for _, k := range dataKeys {
		if _, ok := metaSet[k]; !ok {
			report.MissingMetadata = append(report.MissingMetadata, k)
		}
	}
	for _, k := range metaKeys {
		if _, ok := dataSet[k]; !ok {
			report.OrphanedMetadata = append(report.OrphanedMetadata, k)
		}
	}
	sort.Strings(report.MissingMetadata)
	sort.Strings(report.OrphanedMetadata)
	return report, nil
}

func listAllDataKeys(data DataLister, bucket string, bucketType types.BucketType) ([]string, error) {
	var keys []string
	startAfter := ""
	for {
		result, err := data.List(bucket, bucketType, "", "", startAfter, 1000)
		if err != nil {
			return nil, err
		}
		keys = append(keys, result.Keys...)
		if !result.IsTruncated || len(result.Keys) == 0 {
			break
		}
		startAfter = result.Keys[len(result.Keys)-1]
	}
	return keys, nil
}

func toSet(keys []string) map[string]struct{} {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return set
}
