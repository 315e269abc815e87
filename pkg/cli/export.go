package cli

import (
	"fmt"
	"time"

	"github.com/harrisonrobin/applytrack/pkg/export"
	"github.com/harrisonrobin/applytrack/pkg/google"
	"github.com/harrisonrobin/applytrack/pkg/view"
	"github.com/spf13/cobra"
)

func (a *app) exportCmd() *cobra.Command {
	var (
		filters filterFlags
		out     string
		sheet   string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export applications to an .xlsx file or a Google Sheets tab",
		Long: `Export every application matching the filters.

By default a workbook named clickup-inscricoes-YYYY-MM-DD.xlsx is written to the
current directory. With --sheet the rows go to that tab of the spreadsheet set by
SPREADSHEET_ID instead; the first run opens a browser to authorize Google access.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := filters.query()
			if err != nil {
				return err
			}
			records, err := a.loadRecords(cmd.Context())
			if err != nil {
				return err
			}
			records = view.Filter(records, q)
			if q.Sort == "" {
				q.Sort = view.DefaultSort
			}
			view.SortBy(records, q.Sort, q.Order)

			if cmd.Flags().Changed("sheet") {
				client, err := google.NewClient(cmd.Context(), a.cfg.SpreadsheetID, a.log)
				if err != nil {
					return err
				}
				rng, err := client.Export(cmd.Context(), sheet, records)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d applications to %s\n", len(records), rng)
				return nil
			}

			if out == "" {
				out = export.FileName(time.Now().In(a.cfg.Location()))
			}
			if err := export.SaveXLSX(out, records); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d applications to %s\n", len(records), out)
			return nil
		},
	}
	filters.register(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output .xlsx path (default clickup-inscricoes-<date>.xlsx)")
	cmd.Flags().StringVar(&sheet, "sheet", export.SheetName, "Write to this Google Sheets tab instead of a file")
	return cmd
}
