// Package client provides the HTTP implementation of the
// usagewatch.UsageService contract. Every call carries the caller's
// context, so the retry executor's per-attempt deadline cancels the
// in-flight request instead of merely abandoning it.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/usagewatch/usagewatch/pkg/usagewatch"
)

const (
	defaultHTTPTimeout = 30 * time.Second
	sessionCookieName  = "SessionToken"
)

// ErrUnauthorized is returned when the upstream rejects the session
// credential.
var ErrUnauthorized = errors.New("upstream rejected credential")

// Config holds HTTP client configuration.
type Config struct {
	// BaseURL is the upstream service root, without a trailing slash.
	BaseURL string

	// Credentials supplies the session cookie. It is re-read on every
	// request so credential updates take effect without a restart.
	Credentials usagewatch.CredentialStore

	// CredentialName is the credential-store entry to read
	// (default: usagewatch.DefaultCredentialName).
	CredentialName string

	// HTTPClient overrides the default client. The default carries its
	// own 30s timeout as a backstop behind the per-attempt deadline.
	HTTPClient *http.Client
}

// Client implements usagewatch.UsageService over HTTP with cookie auth.
type Client struct {
	baseURL        string
	credentials    usagewatch.CredentialStore
	credentialName string
	httpClient     *http.Client
}

// New creates an HTTP usage-service client.
func New(config Config) (*Client, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if config.Credentials == nil {
		return nil, fmt.Errorf("credential store is required")
	}
	if config.CredentialName == "" {
		config.CredentialName = usagewatch.DefaultCredentialName
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: defaultHTTPTimeout}
	}

	return &Client{
		baseURL:        config.BaseURL,
		credentials:    config.Credentials,
		credentialName: config.CredentialName,
		httpClient:     config.HTTPClient,
	}, nil
}

// CurrentUser implements usagewatch.UsageService.
func (c *Client) CurrentUser(ctx context.Context) (*usagewatch.UserInfo, error) {
	var user usagewatch.UserInfo
	if err := c.get(ctx, "/api/me", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// QuotaUsage implements usagewatch.UsageService.
func (c *Client) QuotaUsage(ctx context.Context) (*usagewatch.QuotaUsage, error) {
	var usage usagewatch.QuotaUsage
	if err := c.get(ctx, "/api/usage", &usage); err != nil {
		return nil, err
	}
	return &usage, nil
}

// Teams implements usagewatch.UsageService.
func (c *Client) Teams(ctx context.Context) ([]usagewatch.Team, error) {
	var resp struct {
		Teams []usagewatch.Team `json:"teams"`
	}
	if err := c.get(ctx, "/api/teams", &resp); err != nil {
		return nil, err
	}
	return resp.Teams, nil
}

// TeamDetails implements usagewatch.UsageService.
func (c *Client) TeamDetails(ctx context.Context, teamID int) (*usagewatch.TeamDetails, error) {
	var details usagewatch.TeamDetails
	if err := c.get(ctx, "/api/teams/"+strconv.Itoa(teamID), &details); err != nil {
		return nil, err
	}
	return &details, nil
}

// TeamSpend implements usagewatch.UsageService.
func (c *Client) TeamSpend(ctx context.Context, teamID int) (*usagewatch.TeamSpend, error) {
	var spend usagewatch.TeamSpend
	if err := c.get(ctx, "/api/teams/"+strconv.Itoa(teamID)+"/spend", &spend); err != nil {
		return nil, err
	}
	return &spend, nil
}

func (c *Client) get(ctx context.Context, path string, dest interface{}) error {
	secret, err := c.credentials.Get(ctx, c.credentialName)
	if err != nil {
		return fmt.Errorf("read credential: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: secret})
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("GET %s: %w", path, ErrUnauthorized)
	case resp.StatusCode != http.StatusOK:
		// Drain a little of the body for the error message; upstream
		// errors are short JSON or plain text.
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("GET %s: decode response: %w", path, err)
	}
	return nil
}
