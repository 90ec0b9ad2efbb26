package hoursapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultTimeout = 30 * time.Second
	defaultRetries = 3
	defaultBackoff = time.Second
)

// Options configures a Client
type Options struct {
	BaseURL           string // e.g. http://localhost:8000/api
	CSRFCookie        string
	CSRFBootstrapPath string
	Timeout           time.Duration
	Retries           int
	Backoff           time.Duration // multiplied by the attempt number
}

// Client represents the hours REST API client
type Client struct {
	baseURL    string
	httpClient *http.Client
	csrf       *CSRFManager
	retries    int
	backoff    time.Duration
	logger     *zap.Logger
}

// NewClient creates a new hours API client with its own cookie jar
func NewClient(opts Options, logger *zap.Logger) (*Client, error) {
	base, err := url.Parse(opts.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid API base URL %q", opts.BaseURL)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	if opts.Timeout == 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Retries <= 0 {
		opts.Retries = defaultRetries
	}
	if opts.Backoff == 0 {
		opts.Backoff = defaultBackoff
	}

	httpClient := &http.Client{
		Timeout: opts.Timeout,
		Jar:     jar,
	}

	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: httpClient,
		csrf:       NewCSRFManager(httpClient, base, opts.CSRFCookie, opts.CSRFBootstrapPath, logger),
		retries:    opts.Retries,
		backoff:    opts.Backoff,
		logger:     logger,
	}, nil
}

// GetHoursByDate lists the entries registered on one date
func (c *Client) GetHoursByDate(ctx context.Context, date string) ([]DateEntry, error) {
	var entries []DateEntry
	path := fmt.Sprintf("/horas/api/fecha/%s/", url.PathEscape(date))
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &entries); err != nil {
		return nil, fmt.Errorf("failed to get hours for %s: %w", date, err)
	}

	c.logger.Debug("Hours by date retrieved",
		zap.String("date", date),
		zap.Int("count", len(entries)))

	return entries, nil
}

// ListHours lists hour entries matching filter, ordered by date
func (c *Client) ListHours(ctx context.Context, filter Filter) ([]HourEntry, error) {
	path := "/horas/"
	if q := filter.query().Encode(); q != "" {
		path += "?" + q
	}

	var entries []HourEntry
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &entries); err != nil {
		return nil, fmt.Errorf("failed to list hours: %w", err)
	}

	c.logger.Info("Hours listed",
		zap.String("from", filter.From),
		zap.String("to", filter.To),
		zap.Int("count", len(entries)))

	return entries, nil
}

// GetHolidays lists the user's holidays
func (c *Client) GetHolidays(ctx context.Context) ([]Holiday, error) {
	var holidays []Holiday
	if err := c.doRequest(ctx, http.MethodGet, "/feriados/", nil, &holidays); err != nil {
		return nil, fmt.Errorf("failed to get holidays: %w", err)
	}

	c.logger.Info("Holidays retrieved", zap.Int("count", len(holidays)))

	return holidays, nil
}

// GetActivePeriod returns the active period, or nil when none is configured
func (c *Client) GetActivePeriod(ctx context.Context) (*Period, error) {
	var resp activePeriodResponse
	if err := c.doRequest(ctx, http.MethodGet, "/periodos/activo/", nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to get active period: %w", err)
	}

	if resp.Period == nil {
		c.logger.Info("No active period", zap.String("message", resp.Message))
	}

	return resp.Period, nil
}

// CreateHour registers a new block of hours
func (c *Client) CreateHour(ctx context.Context, req HourRequest) (*CreatedHour, error) {
	var resp envelope
	if err := c.doRequest(ctx, http.MethodPost, "/horas/api/", req, &resp); err != nil {
		return nil, fmt.Errorf("failed to create hours for %s: %w", req.Date, err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("failed to create hours for %s: %s", req.Date, resp.Error)
	}

	var created CreatedHour
	if err := json.Unmarshal(resp.Data, &created); err != nil {
		return nil, fmt.Errorf("failed to parse created entry: %w", err)
	}

	c.logger.Info("Hours created",
		zap.Int64("id", created.ID),
		zap.String("date", created.Date),
		zap.String("hours", created.Hours.String()))

	return &created, nil
}

// UpdateHour replaces an existing entry
func (c *Client) UpdateHour(ctx context.Context, id int64, req HourRequest) error {
	path := fmt.Sprintf("/horas/api/%d/", id)
	if err := c.doRequest(ctx, http.MethodPut, path, req, nil); err != nil {
		return fmt.Errorf("failed to update hour entry %d: %w", id, err)
	}

	c.logger.Info("Hours updated", zap.Int64("id", id))
	return nil
}

// DeleteHour deletes an entry
func (c *Client) DeleteHour(ctx context.Context, id int64) error {
	path := fmt.Sprintf("/horas/api/%d/", id)
	if err := c.doRequest(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("failed to delete hour entry %d: %w", id, err)
	}

	c.logger.Info("Hours deleted", zap.Int64("id", id))
	return nil
}

// doRequest performs HTTP request with retries.
// Transport errors and 5xx are retried with linear backoff; a 403 on an
// unsafe method refreshes the CSRF token once.
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	url := c.baseURL + path
	csrfRetried := false

	var lastErr error
	for attempt := 1; attempt <= c.retries; attempt++ {
		err := c.doRequestOnce(ctx, method, url, payload, result)
		if err == nil {
			return nil
		}
		lastErr = err

		var apiErr *APIError
		if errors.As(err, &apiErr) {
			if apiErr.StatusCode == http.StatusForbidden && isUnsafe(method) && !csrfRetried {
				csrfRetried = true
				c.logger.Warn("Request forbidden, refreshing CSRF token", zap.String("url", url))
				if rerr := c.csrf.Refresh(ctx); rerr != nil {
					return fmt.Errorf("%w (CSRF refresh failed: %v)", err, rerr)
				}
				attempt--
				continue
			}
			if !apiErr.Temporary() {
				return err
			}
		}
		if ctx.Err() != nil {
			return err
		}

		c.logger.Warn("Request failed, retrying",
			zap.String("method", method),
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Int("max_retries", c.retries),
			zap.Error(err))

		if attempt < c.retries {
			select {
			case <-ctx.Done():
				return fmt.Errorf("request canceled: %w", ctx.Err())
			case <-time.After(c.backoff * time.Duration(attempt)):
			}
		}
	}

	return fmt.Errorf("request failed after %d attempts: %w", c.retries, lastErr)
}

// doRequestOnce performs a single HTTP request
func (c *Client) doRequestOnce(ctx context.Context, method, url string, payload []byte, result interface{}) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if isUnsafe(method) {
		token, err := c.csrf.Ensure(ctx)
		if err != nil {
			return fmt.Errorf("failed to get CSRF token: %w", err)
		}
		req.Header.Set(csrfHeader, token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(respBody)}
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}

	return nil
}

// errorMessage extracts {"error": "..."} when the backend sends one
func errorMessage(body []byte) string {
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error != "" {
		return env.Error
	}
	return strings.TrimSpace(string(body))
}

func isUnsafe(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	default:
		return true
	}
}
