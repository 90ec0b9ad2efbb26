package hoursapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"

	"go.uber.org/zap"
)

const (
	defaultCSRFCookie = "csrftoken"
	csrfHeader        = "X-CSRFToken"
)

// CSRFManager reads the anti-forgery token the backend stores in a cookie
// and bootstraps it when missing.
type CSRFManager struct {
	mu            sync.Mutex
	httpClient    *http.Client
	baseURL       *url.URL
	cookieName    string
	bootstrapPath string
	logger        *zap.Logger
}

// NewCSRFManager creates a CSRF manager sharing the cookie jar of httpClient
func NewCSRFManager(httpClient *http.Client, baseURL *url.URL, cookieName, bootstrapPath string, logger *zap.Logger) *CSRFManager {
	if cookieName == "" {
		cookieName = defaultCSRFCookie
	}
	if bootstrapPath == "" {
		bootstrapPath = "/"
	}

	return &CSRFManager{
		httpClient:    httpClient,
		baseURL:       baseURL,
		cookieName:    cookieName,
		bootstrapPath: bootstrapPath,
		logger:        logger,
	}
}

// Token returns the current token, or "" if the cookie is not set
func (m *CSRFManager) Token() string {
	if m.httpClient.Jar == nil {
		return ""
	}
	for _, cookie := range m.httpClient.Jar.Cookies(m.baseURL) {
		if cookie.Name == m.cookieName {
			return cookie.Value
		}
	}
	return ""
}

// Ensure bootstraps the cookie when it is not set yet
func (m *CSRFManager) Ensure(ctx context.Context) (string, error) {
	if token := m.Token(); token != "" {
		return token, nil
	}
	if err := m.Refresh(ctx); err != nil {
		return "", err
	}
	return m.Token(), nil
}

// Refresh issues a GET that makes the backend set a fresh token cookie
func (m *CSRFManager) Refresh(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	target := m.baseURL.ResolveReference(&url.URL{Path: m.bootstrapPath})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create CSRF bootstrap request: %w", err)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("CSRF bootstrap request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return &APIError{StatusCode: resp.StatusCode, Message: "CSRF bootstrap rejected"}
	}

	if m.Token() == "" {
		return fmt.Errorf("backend did not set the %s cookie", m.cookieName)
	}

	m.logger.Debug("CSRF token refreshed", zap.String("url", target.String()))

	return nil
}
