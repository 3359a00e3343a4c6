package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/laminastore/lamina/internal/config"
	"github.com/laminastore/lamina/pkg/lamina/metadatastore"
)

var rebuildBucket string

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Cross-check a bucket's data files against its metadata records",
	Long: `rebuild walks a bucket's data files and its metadata records
and reports the two ways they can diverge: a data file with no
metadata record, and a metadata record with no backing data file. It
is read-only; nothing is repaired automatically.`,
	RunE: runRebuild,
}

func init() {
	rebuildCmd.Flags().StringVar(&rebuildBucket, "bucket", "", "bucket to check (required)")
}

func runRebuild(cmd *cobra.Command, args []string) error {
	if rebuildBucket == "" {
		return fmt.Errorf("--bucket is required")
	}

	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return fmt.Errorf("rebuild: load config: %w", err)
	}

	engine, err := buildEngine(cfg)
	if err != nil {
		return fmt.Errorf("rebuild: build engine: %w", err)
	}

	ctx := context.Background()
	bucket, err := engine.HeadBucket(ctx, rebuildBucket)
	if err != nil {
		return fmt.Errorf("rebuild: %w", err)
	}

	report, err := metadatastore.Rebuild(ctx, engine.Objects(), engine.Metadata(), rebuildBucket, bucket.Type)
	if err != nil {
		return fmt.Errorf("rebuild: %w", err)
	}

	cmd.Printf("bucket %q: %d data keys, %d metadata keys\n", report.Bucket, report.DataKeys, report.MetadataKeys)
	if len(report.MissingMetadata) == 0 && len(report.OrphanedMetadata) == 0 {
		cmd.Println("no divergence found")
		return nil
	}
	for _, k := range report.MissingMetadata {
		cmd.Printf("missing metadata: %s\n", k)
	}
	for _, k := range report.OrphanedMetadata {
		cmd.Printf("orphaned metadata: %s\n", k)
	}
	return nil
}
