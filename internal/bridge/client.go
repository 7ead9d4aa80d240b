// Package bridge is the Go side of the polling UI bridge: it starts an export
// on the local API and follows its progress until the record is terminal.
package bridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/mangaexporter/backend/internal/domain"
)

var (
	ErrMissingCredentials = errors.New("bridge: skey and tfv cookies are required")
	ErrNotStarted         = errors.New("bridge: export was not started")
)

const defaultTimeout = 10 * time.Second

// APIError is a non-2xx answer from the local API.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: status %d", e.Code)
	}
	return fmt.Sprintf("api: status %d: %s", e.Code, e.Message)
}

// Client talks to the local API over the fiber HTTP agent.
type Client struct {
	baseURL string
	token   string
	timeout time.Duration
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		timeout: defaultTimeout,
	}
}

type startResponse struct {
	Status  string `json:"status"`
	ID      string `json:"id"`
	Message string `json:"message"`
}

// Start checks the credentials locally, posts them, and returns the session
// id. Any reply other than status "started" is an error.
func (c *Client) Start(req domain.ExportRequest) (string, error) {
	if problems := req.Validate(); len(problems) > 0 {
		return "", ErrMissingCredentials
	}

	agent := c.prepare(fiber.Post(c.baseURL + "/api/export/start"))
	agent.JSON(req)

	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return "", fmt.Errorf("post start: %w", errors.Join(errs...))
	}

	var resp startResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &APIError{Code: code, Message: strings.TrimSpace(string(body))}
	}
	if code != fiber.StatusOK || resp.Status != "started" {
		if resp.Message != "" {
			return "", fmt.Errorf("%w: %s", ErrNotStarted, resp.Message)
		}
		return "", fmt.Errorf("%w: status %d", ErrNotStarted, code)
	}
	return resp.ID, nil
}

// Progress fetches the record of sessionID holding log entries after seq.
func (c *Client) Progress(sessionID string, after int64) (domain.ProgressRecord, error) {
	q := url.Values{}
	if sessionID != "" {
		q.Set("id", sessionID)
	}
	if after > 0 {
		q.Set("after", strconv.FormatInt(after, 10))
	}

	var record domain.ProgressRecord
	err := c.getJSON("/api/export/progress", q, &record)
	return record, err
}

func (c *Client) Sites() ([]domain.Site, error) {
	var sites []domain.Site
	err := c.getJSON("/api/sites", nil, &sites)
	return sites, err
}

func (c *Client) History(limit int) ([]domain.ExportHistory, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var entries []domain.ExportHistory
	err := c.getJSON("/api/export/history", q, &entries)
	return entries, err
}

func (c *Client) OpenOutput() error {
	code, body, errs := c.prepare(fiber.Post(c.baseURL + "/api/output/open")).Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("post open: %w", errors.Join(errs...))
	}
	if code != fiber.StatusOK {
		return decodeAPIError(code, body)
	}
	return nil
}

func (c *Client) getJSON(path string, q url.Values, out any) error {
	target := c.baseURL + path
	if len(q) > 0 {
		target += "?" + q.Encode()
	}

	code, body, errs := c.prepare(fiber.Get(target)).Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("get %s: %w", path, errors.Join(errs...))
	}
	if code != fiber.StatusOK {
		return decodeAPIError(code, body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) prepare(agent *fiber.Agent) *fiber.Agent {
	agent.Timeout(c.timeout)
	if c.token != "" {
		agent.Set("X-Api-Token", c.token)
	}
	return agent
}

func decodeAPIError(code int, body []byte) error {
	var env struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &env); err != nil || env.Message == "" {
		return &APIError{Code: code, Message: strings.TrimSpace(string(body))}
	}
	return &APIError{Code: code, Message: env.Message}
}
