package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dvloznov/settlement-tracker/internal/app"
	"github.com/dvloznov/settlement-tracker/internal/gcsuploader"
	infraBQ "github.com/dvloznov/settlement-tracker/internal/infra/bigquery"
	"github.com/dvloznov/settlement-tracker/internal/pipeline"
	"github.com/spf13/cobra"
)

// ingestTimeout bounds one ingestion run.
const ingestTimeout = 5 * time.Minute

func newIngestCmd(st *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest gs://BUCKET/OBJECT",
		Short: "Parse a settlement export from GCS and store it in BigQuery",
		Long: `Parse a settlement export from GCS and store the import and its sales
in BigQuery. A file that was already imported successfully is skipped.

Requires SETTLEMENT_PROJECT_ID and SETTLEMENT_DATASET.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, _, err := gcsuploader.ParseGCSURI(args[0]); err != nil {
				return err
			}
			result, err := st.ingest(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printIngestResult(cmd, args[0], result)
			return nil
		},
	}
}

func (st *cliState) ingest(ctx context.Context, gcsURI string) (*pipeline.IngestResult, error) {
	if err := st.cfg.RequireCloud(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, ingestTimeout)
	defer cancel()

	proc, err := app.NewProcessor(st.cfg, nil)
	if err != nil {
		return nil, err
	}

	repo, err := infraBQ.NewRepository(ctx, st.cfg.ProjectID, st.cfg.Dataset)
	if err != nil {
		return nil, err
	}
	defer repo.Close()

	st.log.Info().Str("gcs_uri", gcsURI).Msg("Starting ingestion")
	return pipeline.IngestSettlementFromGCSWithDeps(ctx, gcsURI, gcsuploader.NewGCSStorageService(), repo, proc)
}

func printIngestResult(cmd *cobra.Command, gcsURI string, result *pipeline.IngestResult) {
	out := cmd.OutOrStdout()
	if result.Skipped {
		fmt.Fprintf(out, "%s was already imported as %s; skipped.\n", gcsURI, result.ImportID)
		return
	}
	fmt.Fprintf(out, "Imported %d sales from %s as %s.\n", result.Records, gcsURI, result.ImportID)
}

func newUploadCmd(st *cliState) *cobra.Command {
	var bucket, object string
	var ingest bool

	cmd := &cobra.Command{
		Use:   "upload FILE",
		Short: "Upload a settlement export to GCS",
		Long: `Upload a settlement export to GCS, optionally ingesting it right away.

The bucket defaults to SETTLEMENT_BUCKET and the object name to
settlements/YYYY-MM/<random>-<filename>.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filePath := args[0]
			if bucket == "" {
				bucket = st.cfg.Bucket
			}
			if bucket == "" {
				return fmt.Errorf("--bucket or SETTLEMENT_BUCKET is required")
			}
			if object == "" {
				object = gcsuploader.ObjectNameFor(filepath.Base(filePath), time.Now())
			}

			ctx := cmd.Context()
			st.log.Info().
				Str("bucket", bucket).
				Str("object", object).
				Str("file", filePath).
				Msg("Uploading file to GCS")

			if err := gcsuploader.UploadFile(ctx, bucket, object, filePath); err != nil {
				return err
			}

			gcsURI := gcsuploader.BuildGCSURI(bucket, object)
			fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %s to %s\n", filePath, gcsURI)

			if !ingest {
				return nil
			}
			result, err := st.ingest(ctx, gcsURI)
			if err != nil {
				return err
			}
			printIngestResult(cmd, gcsURI, result)
			return nil
		},
	}

	cmd.Flags().StringVar(&bucket, "bucket", "", "GCS bucket (default SETTLEMENT_BUCKET)")
	cmd.Flags().StringVar(&object, "object", "", "object name (default settlements/YYYY-MM/<random>-<filename>)")
	cmd.Flags().BoolVar(&ingest, "ingest", false, "ingest the file after uploading")
	return cmd
}
