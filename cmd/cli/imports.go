package main

import (
	"fmt"
	"text/tabwriter"

	infraBQ "github.com/dvloznov/settlement-tracker/internal/infra/bigquery"
	"github.com/spf13/cobra"
)

func newImportsCmd(st *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "imports",
		Short: "List settlement imports stored in BigQuery",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := st.cfg.RequireCloud(); err != nil {
				return err
			}
			ctx := cmd.Context()

			repo, err := infraBQ.NewRepository(ctx, st.cfg.ProjectID, st.cfg.Dataset)
			if err != nil {
				return err
			}
			defer repo.Close()

			imports, err := repo.ListImports(ctx)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "IMPORT\tSTATUS\tFILE\tYEAR\tSALES\tSTARTED")
			for _, imp := range imports {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					imp.ImportID,
					imp.Status,
					imp.OriginalFilename,
					imp.ReportYear,
					imp.RecordCount,
					imp.StartedTS.Format("2006-01-02 15:04"),
				)
			}
			return tw.Flush()
		},
	}
}
