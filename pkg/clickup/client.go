package clickup

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-resty/resty/v2"
)

const DefaultBaseURL = "https://api.clickup.com/api/v2"

// APIError is returned for any non-2xx response.
type APIError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("clickup api error: %s", e.Status)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

type Options struct {
	BaseURL string
	Token   string
	TeamID  string
	Timeout time.Duration
}

type Client struct {
	http   *resty.Client
	teamID string
	log    *log.Logger
}

func NewClient(opts Options, logger *log.Logger) *Client {
	base := opts.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = log.Default()
	}
	http := resty.New().
		SetBaseURL(strings.TrimRight(base, "/")).
		SetTimeout(timeout).
		SetHeader("Authorization", opts.Token).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &Client{http: http, teamID: opts.TeamID, log: logger}
}

// FetchPage requests one page of tasks for the team, closed tasks and subtasks
// included, custom fields expanded.
func (c *Client) FetchPage(ctx context.Context, page int) ([]Task, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("team", c.teamID).
		SetQueryParams(map[string]string{
			"include_closed":        "true",
			"subtasks":              "true",
			"include_custom_fields": "true",
			"page":                  strconv.Itoa(page),
		}).
		Get("/team/{team}/task")
	if err != nil {
		return nil, fmt.Errorf("clickup request for page %d failed: %w", page, err)
	}
	if !resp.IsSuccess() {
		return nil, &APIError{
			StatusCode: resp.StatusCode(),
			Status:     resp.Status(),
			Body:       strings.TrimSpace(resp.String()),
		}
	}

	var out TasksResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("failed to decode clickup page %d: %w", page, err)
	}
	c.log.Debug("clickup page received", "page", page, "tasks", len(out.Tasks))
	return out.Tasks, nil
}
