package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/settlement-tracker/internal/report"
	"github.com/spf13/cobra"
)

func newReportCmd(st *cliState) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "report FILE|gs://BUCKET/OBJECT",
		Short: "Print daily totals of a settlement export",
		Long: `Print per-day totals of a settlement export and a summary line.

Without --from/--to the range spans the sales in the file; a file whose
sales all fall on one day is reported from one month earlier.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := st.process(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			start, end, _ := report.DefaultRange(result.Records)
			if from != "" {
				if start, err = report.ParseDay(from); err != nil {
					return fmt.Errorf("invalid --from: %w", err)
				}
			}
			if to != "" {
				if end, err = report.ParseDay(to); err != nil {
					return fmt.Errorf("invalid --to: %w", err)
				}
			}
			if end.Before(start) {
				return fmt.Errorf("--to %s is before --from %s", end, start)
			}

			records := report.FilterByDateRange(result.Records, start, end)
			summary := report.Summarize(records)
			summary.From, summary.To = start, end

			writeDailyTable(cmd.OutOrStdout(), report.DailyTotals(records))
			writeSummary(cmd.OutOrStdout(), summary)
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "first day to include (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "last day to include (YYYY-MM-DD)")
	return cmd
}

func writeDailyTable(w io.Writer, days []report.DailyTotal) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "DAY\tSALES\tGROSS\tTAXES\tSHIPPING\tCOMMISSION\tNET\t")
	for _, d := range days {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\t%s\t\n",
			d.Day,
			d.Count,
			d.Gross.StringFixed(2),
			d.Taxes.StringFixed(2),
			d.Shipping.StringFixed(2),
			d.Commission.StringFixed(2),
			d.Net.StringFixed(2),
		)
	}
	tw.Flush()
}

func writeSummary(w io.Writer, s report.Summary) {
	fmt.Fprintf(w, "\n%s to %s: %d sales, gross %s, net %s\n",
		formatDay(s.From), formatDay(s.To), s.Count, s.Gross.StringFixed(2), s.Net.StringFixed(2))
}

func formatDay(d civil.Date) string {
	if !d.IsValid() {
		return "-"
	}
	return d.String()
}
