package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dvloznov/settlement-tracker/internal/app"
	"github.com/dvloznov/settlement-tracker/internal/config"
	"github.com/dvloznov/settlement-tracker/internal/gcsuploader"
	"github.com/dvloznov/settlement-tracker/internal/logger"
	"github.com/dvloznov/settlement-tracker/internal/pipeline"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// cliState is shared by all subcommands once the root command has loaded
// the configuration.
type cliState struct {
	envFile  string
	logLevel string

	cfg *config.Config
	log zerolog.Logger
}

func newRootCmd() *cobra.Command {
	st := &cliState{}

	root := &cobra.Command{
		Use:   "cli",
		Short: "Parse and ingest marketplace settlement exports",
		Long: `cli reads the "ventas" settlement spreadsheet exported by the
marketplace (.xls or .xlsx) and turns every sale row into a normalized
record with the fee breakdown split into taxes, shipping and commission.

Example:
  cli parse ventas.xlsx
  cli report ventas.xlsx --from 2024-01-01 --to 2024-01-31
  cli upload ventas.xlsx --ingest
  cli ingest gs://bucket/settlements/ventas.xlsx`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(st.envFile)
			if err != nil {
				return err
			}
			if st.logLevel != "" {
				cfg.LogLevel = st.logLevel
			}
			log, err := app.NewLogger(cfg)
			if err != nil {
				return err
			}
			st.cfg = cfg
			st.log = log
			cmd.SetContext(logger.WithContext(cmd.Context(), log))
			return nil
		},
	}

	root.PersistentFlags().StringVar(&st.envFile, "env-file", "", "path to a .env file (default is ./.env when present)")
	root.PersistentFlags().StringVar(&st.logLevel, "log-level", "", "override SETTLEMENT_LOG_LEVEL")

	root.AddCommand(
		newParseCmd(st),
		newReportCmd(st),
		newIngestCmd(st),
		newUploadCmd(st),
		newImportsCmd(st),
	)
	return root
}

// process parses a local file or a gs:// object.
func (st *cliState) process(ctx context.Context, src string) (*pipeline.Result, error) {
	proc, err := app.NewProcessor(st.cfg, nil)
	if err != nil {
		return nil, err
	}

	if gcsuploader.IsGCSURI(src) {
		data, err := gcsuploader.FetchFromGCS(ctx, src, proc.MaxInputBytes())
		if err != nil {
			return nil, err
		}
		return proc.ProcessBytes(ctx, data)
	}

	f, err := os.Open(src)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", src, err)
	}
	defer f.Close()
	return proc.ProcessSettlement(ctx, f)
}
