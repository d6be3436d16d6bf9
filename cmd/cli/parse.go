package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dvloznov/settlement-tracker/internal/domain"
	"github.com/dvloznov/settlement-tracker/internal/pipeline"
	"github.com/spf13/cobra"
)

func newParseCmd(st *cliState) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "parse FILE|gs://BUCKET/OBJECT",
		Short: "Parse a settlement export and print its sales",
		Long: `Parse a settlement export and print its sales, newest first.

Nothing is stored. Use --output json for the full result including the
detected header, reporting year and row statistics.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := st.process(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			switch output {
			case "json":
				return writeJSON(cmd.OutOrStdout(), result)
			case "table":
				writeSalesTable(cmd.OutOrStdout(), result.Records)
				writeStats(cmd.OutOrStdout(), result)
				return nil
			default:
				return fmt.Errorf("unknown output %q (want table or json)", output)
			}
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "table", "output format: table or json")
	return cmd
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeSalesTable(w io.Writer, records []domain.SaleRecord) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "DATE\tOPERATION\tPRODUCT\tGROSS\tCOSTS\tTAXES\tSHIPPING\tCOMMISSION\tNET\t")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			r.Date.Format("2006-01-02 15:04"),
			r.OperationID,
			r.Product,
			r.GrossAmount.StringFixed(2),
			r.TotalCosts.StringFixed(2),
			r.TaxesAmount.StringFixed(2),
			r.ShippingAmount.StringFixed(2),
			r.CommissionAmount.StringFixed(2),
			r.NetAmount.StringFixed(2),
		)
	}
	tw.Flush()
}

func writeStats(w io.Writer, result *pipeline.Result) {
	if !result.HeaderFound {
		fmt.Fprintln(w, "\nNo header row found.")
		return
	}
	fmt.Fprintf(w, "\n%d sales (%s, year %d, header at row %d); %d rows skipped, %d dates and %d amounts defaulted\n",
		len(result.Records), result.Format, result.Year, result.HeaderRow+1,
		result.Stats.SkippedRows, result.Stats.DegradedDates, result.Stats.DegradedAmounts)
}
