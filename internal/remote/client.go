// package remote implements the HTTP client for the identity-management
// service records are imported into.
//
// Status classification is part of the client's contract: a 422 response wraps
// [shared.ErrConflict] (the external identifier was already imported), a 429
// wraps [shared.ErrRateLimited], and every other non-2xx status surfaces as a
// [*StatusError] carrying the response body for the failure log. Callers branch
// with errors.Is / errors.As rather than inspecting response shapes.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"idmigrate/internal/records"
	"idmigrate/internal/shared"
)

const (
	usersPath  = "/api/v2/users"
	orgsPath   = "/api/v2/organizations"
	searchPath = "/api/v2/users/search"

	// failure bodies are truncated before logging
	maxBodySnippet = 900
)

// StatusError is an unclassified gateway failure: any status that is neither
// success, conflict, nor rate-limiting.
type StatusError struct {
	Method string
	URL    string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("identity API error: %s %s status=%d body=%s", e.Method, e.URL, e.Code, e.Body)
}

// Client talks to the identity service with static bearer-token auth.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a new identity-service client.
func NewClient(baseURL, token string, client *http.Client) *Client {
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: client,
	}
}

type userBody struct {
	ExternalID     string `json:"external_id"`
	Email          string `json:"email"`
	Name           string `json:"name,omitempty"`
	Locale         string `json:"locale,omitempty"`
	Role           string `json:"role,omitempty"`
	Password       string `json:"password,omitempty"`
	Admin          bool   `json:"admin,omitempty"`
	OrganizationID string `json:"organization_external_id,omitempty"`
}

type orgBody struct {
	ExternalID string `json:"external_id"`
	Email      string `json:"email"`
	Name       string `json:"name,omitempty"`
	OwnerID    string `json:"owner_id,omitempty"`
	Notes      string `json:"notes,omitempty"`
}

type entityEnvelope struct {
	User *struct {
		ID json.Number `json:"id"`
	} `json:"user"`
	Organization *struct {
		ID json.Number `json:"id"`
	} `json:"organization"`
}

type searchEnvelope struct {
	Users []struct {
		ID json.Number `json:"id"`
	} `json:"users"`
}

// Create creates the remote entity for a validated record, dispatching on its
// kind, and returns the remote identifier.
func (c *Client) Create(ctx context.Context, rec *records.Record) (string, error) {
	switch rec.Kind {
	case records.KindUser:
		return c.CreateUser(ctx, rec)
	case records.KindOrganization:
		return c.CreateOrganization(ctx, rec)
	default:
		return "", fmt.Errorf("%w: unknown record kind %q", shared.ErrInvalidArgument, rec.Kind)
	}
}

// CreateUser creates a remote user and returns its remote ID.
func (c *Client) CreateUser(ctx context.Context, rec *records.Record) (string, error) {
	payload := map[string]userBody{"user": {
		ExternalID:     rec.ExternalID,
		Email:          rec.Email,
		Name:           rec.Name,
		Locale:         rec.Locale,
		Role:           rec.Role,
		Password:       rec.Password,
		Admin:          rec.Admin,
		OrganizationID: rec.OrganizationExternalID,
	}}

	var envelope entityEnvelope
	if err := c.do(ctx, http.MethodPost, usersPath, payload, &envelope); err != nil {
		return "", err
	}
	if envelope.User == nil {
		return "", fmt.Errorf("%w: response missing user", shared.ErrAPIRequest)
	}
	return envelope.User.ID.String(), nil
}

// CreateOrganization creates a remote organization and returns its remote ID.
func (c *Client) CreateOrganization(ctx context.Context, rec *records.Record) (string, error) {
	payload := map[string]orgBody{"organization": {
		ExternalID: rec.ExternalID,
		Email:      rec.Email,
		Name:       rec.Name,
		OwnerID:    rec.OwnerID,
		Notes:      rec.Notes,
	}}

	var envelope entityEnvelope
	if err := c.do(ctx, http.MethodPost, orgsPath, payload, &envelope); err != nil {
		return "", err
	}
	if envelope.Organization == nil {
		return "", fmt.Errorf("%w: response missing organization", shared.ErrAPIRequest)
	}
	return envelope.Organization.ID.String(), nil
}

// FindUserIDByEmail resolves a remote user ID by email address.
//
// Best-effort: any failure, including transport errors and empty results,
// reports not-found rather than propagating. A missing creator reference
// degrades to an unset field, never an aborted record.
func (c *Client) FindUserIDByEmail(ctx context.Context, email string) (string, bool) {
	query := url.Values{"query": {"email:" + email}}
	path := searchPath + "?" + query.Encode()

	var envelope searchEnvelope
	if err := c.do(ctx, http.MethodGet, path, nil, &envelope); err != nil {
		return "", false
	}
	if len(envelope.Users) == 0 {
		return "", false
	}
	return envelope.Users[0].ID.String(), true
}

// do performs an authenticated request and classifies the response status.
func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	fullURL := c.baseURL + path

	var reqBody *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if result != nil {
			if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
				return fmt.Errorf("failed to decode response: %w", err)
			}
		}
		return nil
	case resp.StatusCode == http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s", shared.ErrConflict, readSnippet(resp))
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: status 429", shared.ErrRateLimited)
	default:
		return &StatusError{
			Method: method,
			URL:    fullURL,
			Code:   resp.StatusCode,
			Body:   readSnippet(resp),
		}
	}
}

// readSnippet drains and truncates a response body for error reporting.
// Truncation backs up to a rune boundary so snippets stay valid UTF-8.
func readSnippet(resp *http.Response) string {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodySnippet+1))
	s := strings.TrimSpace(string(data))
	if len(s) > maxBodySnippet {
		cut := maxBodySnippet
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		return s[:cut] + "…"
	}
	return s
}
