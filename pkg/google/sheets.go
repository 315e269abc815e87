package google

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/harrisonrobin/applytrack/pkg/applicant"
	"github.com/harrisonrobin/applytrack/pkg/export"
	"google.golang.org/api/sheets/v4"
)

// SheetsClient writes application records into a Google spreadsheet.
type SheetsClient struct {
	srv           *sheets.Service
	spreadsheetID string
	log           *log.Logger
}

func NewSheetsClient(srv *sheets.Service, spreadsheetID string, logger *log.Logger) *SheetsClient {
	if logger == nil {
		logger = log.Default()
	}
	return &SheetsClient{srv: srv, spreadsheetID: spreadsheetID, log: logger}
}

// Export replaces the contents of the tab with the header and one row per
// record, creating the tab first when the spreadsheet lacks it. It returns
// the range Sheets reports as updated.
func (c *SheetsClient) Export(ctx context.Context, tab string, records []applicant.Record) (string, error) {
	if len(records) == 0 {
		return "", export.ErrNoRecords
	}
	if tab == "" {
		tab = export.SheetName
	}
	if err := c.ensureSheet(ctx, tab); err != nil {
		return "", err
	}

	rng := quoteSheet(tab)
	if _, err := c.srv.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &sheets.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("unable to clear sheet %q: %w", tab, err)
	}

	values := make([][]interface{}, 0, len(records)+1)
	values = append(values, toValues(export.Header()))
	for _, row := range export.Rows(records) {
		values = append(values, toValues(row))
	}

	resp, err := c.srv.Spreadsheets.Values.
		Update(c.spreadsheetID, rng+"!A1", &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("unable to write sheet %q: %w", tab, err)
	}
	c.log.Info("exported to google sheets", "spreadsheet", c.spreadsheetID, "range", resp.UpdatedRange, "rows", resp.UpdatedRows)
	return resp.UpdatedRange, nil
}

func (c *SheetsClient) ensureSheet(ctx context.Context, tab string) error {
	ss, err := c.srv.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("unable to retrieve spreadsheet %s: %w", c.spreadsheetID, err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == tab {
			return nil
		}
	}

	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: tab}},
		}},
	}
	if _, err := c.srv.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("unable to add sheet %q: %w", tab, err)
	}
	c.log.Debug("added sheet", "title", tab)
	return nil
}

// quoteSheet makes a tab title safe for A1 notation.
func quoteSheet(tab string) string {
	return "'" + strings.ReplaceAll(tab, "'", "''") + "'"
}

func toValues(row []string) []interface{} {
	out := make([]interface{}, len(row))
	for i, v := range row {
		out[i] = v
	}
	return out
}
