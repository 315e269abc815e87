package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/harrisonrobin/applytrack/pkg/applicant"
	"github.com/harrisonrobin/applytrack/pkg/view"
	"github.com/spf13/cobra"
)

// filterFlags are shared by list and export.
type filterFlags struct {
	name, form, date, role string
	sort, order            string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "Filter by applicant name (substring, case-insensitive)")
	cmd.Flags().StringVar(&f.form, "form", "", "Filter by form name (substring, case-insensitive)")
	cmd.Flags().StringVar(&f.date, "date", "", "Filter by submission date, dd/mm/yyyy (substring)")
	cmd.Flags().StringVar(&f.role, "role", "", "Filter by role applied for (substring, case-insensitive)")
	cmd.Flags().StringVar(&f.sort, "sort", view.DefaultSort, "Sort column (created, name, role, form, status, ...)")
	cmd.Flags().StringVar(&f.order, "order", string(view.Desc), "Sort order (asc or desc)")
}

func (f *filterFlags) query() (view.Query, error) {
	order, err := view.ParseOrder(f.order)
	if err != nil {
		return view.Query{}, err
	}
	if f.sort != "" && !applicant.HasKey(f.sort) {
		return view.Query{}, fmt.Errorf("unknown sort field %q", f.sort)
	}
	return view.Query{
		Name:  f.name,
		Form:  f.form,
		Date:  f.date,
		Role:  f.role,
		Sort:  f.sort,
		Order: order,
	}, nil
}

func (a *app) listCmd() *cobra.Command {
	var (
		filters  filterFlags
		page     int
		pageSize int
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List applications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := filters.query()
			if err != nil {
				return err
			}
			q.Page, q.PageSize = page, pageSize

			records, err := a.loadRecords(cmd.Context())
			if err != nil {
				return err
			}
			res, err := view.Apply(records, q)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			renderTable(cmd.OutOrStdout(), res)
			return nil
		},
	}
	filters.register(cmd)
	cmd.Flags().IntVar(&page, "page", 1, "Page number, starting at 1")
	cmd.Flags().IntVar(&pageSize, "size", view.DefaultPageSize, "Records per page")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the page as JSON")
	return cmd
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

var listColumns = []struct {
	key, title string
	width      int
}{
	{applicant.KeyCreated, "Data", 10},
	{applicant.KeyName, "Nome", 28},
	{applicant.KeyRole, "Cargo", 22},
	{applicant.KeyForm, "Formulário", 20},
	{applicant.KeyStatus, "Status", 14},
	{applicant.KeyPhone1, "Telefone", 15},
	{applicant.KeyEmail1, "Email", 26},
}

func renderTable(w io.Writer, res view.Result) {
	if res.Total == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No applications found."))
		return
	}

	headers := make([]string, len(listColumns))
	for i, c := range listColumns {
		headers[i] = c.title
	}
	rows := make([][]string, 0, len(res.Records))
	for i := range res.Records {
		row := make([]string, len(listColumns))
		for j, c := range listColumns {
			row[j] = truncate(res.Records[i].Get(c.key), c.width)
		}
		rows = append(rows, row)
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(mutedStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	fmt.Fprintln(w, t.Render())
	fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("Page %d of %d, %d applications", res.Page, res.Pages, res.Total)))
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
