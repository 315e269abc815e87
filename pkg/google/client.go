package google

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/harrisonrobin/applytrack/pkg/auth"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// NewClient creates a Sheets client for one spreadsheet using the cached
// Google authorization, running the browser flow when there is none.
func NewClient(ctx context.Context, spreadsheetID string, logger *log.Logger) (*SheetsClient, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("no spreadsheet configured, set SPREADSHEET_ID or run `applytrack config set spreadsheet_id <id>`")
	}
	client, err := auth.GetClient(ctx, auth.SheetsScopes, logger)
	if err != nil {
		return nil, err
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve Sheets client: %w", err)
	}
	return NewSheetsClient(srv, spreadsheetID, logger), nil
}
