package applicant

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/harrisonrobin/applytrack/pkg/clickup"
	"github.com/harrisonrobin/applytrack/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pageServer serves pages[i] for ?page=i and an empty page past the end.
func pageServer(t *testing.T, pages [][]string, failOn int) (*httptest.Server, *[]int) {
	t.Helper()
	var requested []int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		requested = append(requested, page)
		if page == failOn {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		var tasks []string
		if page < len(pages) {
			for _, id := range pages[page] {
				tasks = append(tasks, fmt.Sprintf(`{"id":%q,"name":%q,"space":{"id":"space-1"}}`, id, "name-"+id))
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"tasks":[%s]}`, strings.Join(tasks, ","))
	}))
	t.Cleanup(srv.Close)
	return srv, &requested
}

func newTestFetcher(srv *httptest.Server, opts FetchOptions) *Fetcher {
	client := clickup.NewClient(clickup.Options{BaseURL: srv.URL, Token: "tok", TeamID: "team"}, logger.Discard())
	return NewFetcher(client, NewNormalizer(time.UTC, logger.Discard()), opts, logger.Discard())
}

func ids(records []Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}

func TestFetcher_FetchAll(t *testing.T) {
	t.Run("Should concatenate pages until an empty one", func(t *testing.T) {
		srv, requested := pageServer(t, [][]string{{"a", "b", "c"}, {"d", "e"}}, -1)
		records, err := newTestFetcher(srv, FetchOptions{}).FetchAll(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c", "d", "e"}, ids(records))
		assert.Equal(t, []int{0, 1, 2}, *requested)
	})

	t.Run("Should return an empty list when the first page is empty", func(t *testing.T) {
		srv, _ := pageServer(t, nil, -1)
		records, err := newTestFetcher(srv, FetchOptions{}).FetchAll(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, records)
		assert.Empty(t, records)
	})

	t.Run("Should fail without partial results on a server error", func(t *testing.T) {
		srv, requested := pageServer(t, [][]string{{"a", "b"}, {"c"}}, 1)
		records, err := newTestFetcher(srv, FetchOptions{}).FetchAll(context.Background())
		require.Error(t, err)
		assert.Nil(t, records)
		assert.Equal(t, []int{0, 1}, *requested)

		var apiErr *clickup.APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	})

	t.Run("Should stop at the page limit", func(t *testing.T) {
		srv, _ := pageServer(t, [][]string{{"a"}, {"b"}, {"c"}}, -1)
		records, err := newTestFetcher(srv, FetchOptions{MaxPages: 2}).FetchAll(context.Background())
		require.ErrorIs(t, err, ErrTooManyPages)
		assert.Nil(t, records)
	})

	t.Run("Should accept exactly the page limit when the next page is empty", func(t *testing.T) {
		pager := &fakePager{pages: map[int][]clickup.Task{
			0: {{ID: "a"}},
			1: {{ID: "b"}},
		}}
		f := NewFetcher(pager, nil, FetchOptions{MaxPages: 2}, logger.Discard())
		records, err := f.FetchAll(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, ids(records))
		assert.Equal(t, 3, pager.calls)
	})
}

type fakePager struct {
	pages map[int][]clickup.Task
	calls int
}

func (p *fakePager) FetchPage(_ context.Context, page int) ([]clickup.Task, error) {
	p.calls++
	return p.pages[page], nil
}

func TestFetcher_SpaceFilterAndGuards(t *testing.T) {
	t.Run("Should keep only tasks in the target space", func(t *testing.T) {
		pager := &fakePager{pages: map[int][]clickup.Task{
			0: {
				{ID: "in", Space: &clickup.Space{ID: "target"}},
				{ID: "other", Space: &clickup.Space{ID: "elsewhere"}},
				{ID: "nospace"},
			},
			1: {{ID: "in2", Space: &clickup.Space{ID: "target"}}},
		}}
		f := NewFetcher(pager, nil, FetchOptions{SpaceID: "target"}, logger.Discard())
		records, err := f.FetchAll(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"in", "in2"}, ids(records))
		assert.Equal(t, 3, pager.calls)
	})

	t.Run("Should keep walking past a page with no task in the target space", func(t *testing.T) {
		pager := &fakePager{pages: map[int][]clickup.Task{
			0: {{ID: "x", Space: &clickup.Space{ID: "elsewhere"}}},
			1: {{ID: "y", Space: &clickup.Space{ID: "target"}}},
		}}
		f := NewFetcher(pager, nil, FetchOptions{SpaceID: "target"}, logger.Discard())
		records, err := f.FetchAll(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"y"}, ids(records))
	})

	t.Run("Should detect a repeated page", func(t *testing.T) {
		same := []clickup.Task{{ID: "a"}, {ID: "b"}}
		pager := &fakePager{pages: map[int][]clickup.Task{0: same, 1: same, 2: same}}
		f := NewFetcher(pager, nil, FetchOptions{}, logger.Discard())
		records, err := f.FetchAll(context.Background())
		require.ErrorIs(t, err, ErrRepeatedPage)
		assert.Nil(t, records)
		assert.Equal(t, 2, pager.calls)
	})

	t.Run("Should honor a cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		pager := &fakePager{}
		_, err := NewFetcher(pager, nil, FetchOptions{}, logger.Discard()).FetchAll(ctx)
		require.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, pager.calls)
	})
}
