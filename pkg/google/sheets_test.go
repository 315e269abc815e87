package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/harrisonrobin/applytrack/pkg/applicant"
	"github.com/harrisonrobin/applytrack/pkg/export"
	"github.com/harrisonrobin/applytrack/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

type fakeSheets struct {
	mu       sync.Mutex
	titles   []string
	added    []string
	cleared  bool
	written  [][]string
	inputOpt string
}

func (f *fakeSheets) handler(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/v4/spreadsheets/sid":
		var sheetsJSON []map[string]any
		for _, title := range f.titles {
			sheetsJSON = append(sheetsJSON, map[string]any{"properties": map[string]any{"title": title}})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"spreadsheetId": "sid", "sheets": sheetsJSON})
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":batchUpdate"):
		var req sheets.BatchUpdateSpreadsheetRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		for _, rq := range req.Requests {
			if rq.AddSheet != nil {
				f.added = append(f.added, rq.AddSheet.Properties.Title)
				f.titles = append(f.titles, rq.AddSheet.Properties.Title)
			}
		}
		_, _ = w.Write([]byte(`{"spreadsheetId":"sid","replies":[{}]}`))
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":clear"):
		f.cleared = true
		_, _ = w.Write([]byte(`{"spreadsheetId":"sid"}`))
	case r.Method == http.MethodPut:
		var vr struct {
			Values [][]string `json:"values"`
		}
		_ = json.NewDecoder(r.Body).Decode(&vr)
		f.written = vr.Values
		f.inputOpt = r.URL.Query().Get("valueInputOption")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"spreadsheetId": "sid",
			"updatedRange":  "'Inscrições'!A1:Q2",
			"updatedRows":   len(vr.Values),
		})
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":404,"message":"not found"}}`))
	}
}

func newTestClient(t *testing.T, fake *fakeSheets) *SheetsClient {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(fake.handler))
	t.Cleanup(srv.Close)

	svc, err := sheets.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return NewSheetsClient(svc, "sid", logger.Discard())
}

func TestSheetsClient_Export(t *testing.T) {
	role := "Enfermeiro"
	records := []applicant.Record{{ID: "t1", Name: "Maria", Role: &role, FormName: "Saúde"}}

	t.Run("Should add a missing tab and write header plus rows", func(t *testing.T) {
		fake := &fakeSheets{titles: []string{"Sheet1"}}
		c := newTestClient(t, fake)

		rng, err := c.Export(context.Background(), "", records)
		require.NoError(t, err)
		assert.Equal(t, "'Inscrições'!A1:Q2", rng)

		assert.Equal(t, []string{export.SheetName}, fake.added)
		assert.True(t, fake.cleared)
		assert.Equal(t, "RAW", fake.inputOpt)
		require.Len(t, fake.written, 2)
		assert.Equal(t, export.Header(), fake.written[0])
		assert.Equal(t, "Saúde", fake.written[1][0])
		assert.Equal(t, "Enfermeiro", fake.written[1][2])
		assert.Equal(t, export.NotAvailable, fake.written[1][4])
	})

	t.Run("Should reuse an existing tab", func(t *testing.T) {
		fake := &fakeSheets{titles: []string{"Abril"}}
		c := newTestClient(t, fake)

		_, err := c.Export(context.Background(), "Abril", records)
		require.NoError(t, err)
		assert.Empty(t, fake.added)
	})

	t.Run("Should refuse an empty export", func(t *testing.T) {
		c := newTestClient(t, &fakeSheets{})
		_, err := c.Export(context.Background(), "", nil)
		assert.ErrorIs(t, err, export.ErrNoRecords)
	})
}

func TestQuoteSheet(t *testing.T) {
	assert.Equal(t, "'Inscrições'", quoteSheet("Inscrições"))
	assert.Equal(t, "'It''s'", quoteSheet("It's"))
}
