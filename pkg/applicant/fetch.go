package applicant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/harrisonrobin/applytrack/pkg/clickup"
)

const DefaultMaxPages = 500

var (
	ErrTooManyPages = errors.New("page limit reached before the task list was exhausted")
	ErrRepeatedPage = errors.New("task list returned the same page twice")
)

// TaskPager fetches one page of raw tasks. *clickup.Client implements it.
type TaskPager interface {
	FetchPage(ctx context.Context, page int) ([]clickup.Task, error)
}

type FetchOptions struct {
	// SpaceID keeps only tasks in this space. Empty keeps every task.
	SpaceID  string
	MaxPages int
}

type Fetcher struct {
	pager      TaskPager
	normalizer *Normalizer
	spaceID    string
	maxPages   int
	log        *log.Logger
}

func NewFetcher(pager TaskPager, normalizer *Normalizer, opts FetchOptions, logger *log.Logger) *Fetcher {
	if logger == nil {
		logger = log.Default()
	}
	if normalizer == nil {
		normalizer = NewNormalizer(nil, logger)
	}
	maxPages := opts.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	return &Fetcher{
		pager:      pager,
		normalizer: normalizer,
		spaceID:    opts.SpaceID,
		maxPages:   maxPages,
		log:        logger,
	}
}

// FetchAll walks pages from 0 until one comes back empty and returns every
// record in page order, then source order. Any page error aborts the walk and
// no records are returned.
func (f *Fetcher) FetchAll(ctx context.Context) ([]Record, error) {
	records := make([]Record, 0)
	var prev string

	for page := 0; ; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		tasks, err := f.pager.FetchPage(ctx, page)
		if err != nil {
			return nil, fmt.Errorf("fetching page %d: %w", page, err)
		}
		if len(tasks) == 0 {
			f.log.Info("task list exhausted", "pages", page, "records", len(records))
			return records, nil
		}
		// Page maxPages is only requested to confirm the list ended.
		if page >= f.maxPages {
			return nil, fmt.Errorf("%w (%d pages)", ErrTooManyPages, f.maxPages)
		}

		sig := pageSignature(tasks)
		if sig != "" && sig == prev {
			return nil, fmt.Errorf("%w (page %d)", ErrRepeatedPage, page)
		}
		prev = sig

		kept := 0
		for _, task := range tasks {
			if f.spaceID != "" && !task.InSpace(f.spaceID) {
				continue
			}
			records = append(records, f.normalizer.Normalize(task))
			kept++
		}
		f.log.Debug("page normalized", "page", page, "tasks", len(tasks), "kept", kept)
	}
}

// pageSignature joins task IDs. It is empty when any task lacks an ID, which
// disables the repeated-page check for that page.
func pageSignature(tasks []clickup.Task) string {
	ids := make([]string, 0, len(tasks))
	for _, t := range tasks {
		if t.ID == "" {
			return ""
		}
		ids = append(ids, t.ID)
	}
	return strings.Join(ids, "\x00")
}
