package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/catalogsync/internal/models"
)

// ErrPayloadTooLarge is returned when the remote store rejects a write for its size
var ErrPayloadTooLarge = errors.New("payload too large")

// CodePayloadTooLarge is the structured error code the remote store uses for size rejections
const CodePayloadTooLarge = "payload_too_large"

// ErrorContractVersion is the structured error body version this client understands
const ErrorContractVersion = 1

// maxErrorBody caps how much of an error response is kept for diagnostics
const maxErrorBody = 4096

// StatusError is a non-2xx response from the remote store
type StatusError struct {
	StatusCode int
	Code       string // structured error code, if the body carried one
	Version    int    // structured error contract version, 0 if absent
	Body       string
}

func (e *StatusError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("remote store returned status %d (%s): %s", e.StatusCode, e.Code, e.Body)
	}
	return fmt.Sprintf("remote store returned status %d: %s", e.StatusCode, e.Body)
}

// Is lets errors.Is match size rejections against ErrPayloadTooLarge
func (e *StatusError) Is(target error) bool {
	return target == ErrPayloadTooLarge &&
		(e.StatusCode == http.StatusRequestEntityTooLarge ||
			(e.Code == CodePayloadTooLarge && e.Version == ErrorContractVersion))
}

// Client talks to the remote catalog store
type Client struct {
	BaseURL    string
	APIKey     string
	httpClient *http.Client
}

// NewClient creates a new remote store client
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// FetchDocument retrieves the full catalog document
func (c *Client) FetchDocument(ctx context.Context) (*models.CatalogDocument, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/data", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, readStatusError(resp)
	}

	var doc models.CatalogDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}

	return &doc, nil
}

// ReplaceDocument overwrites the stored catalog document
func (c *Client) ReplaceDocument(ctx context.Context, doc *models.CatalogDocument) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/api/data", body)
	if err != nil {
		return fmt.Errorf("failed to write catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return readStatusError(resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	return nil
}

// CreateUser creates a single user through the entity endpoint
func (c *Client) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	body, err := json.Marshal(user)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal user: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/api/users", body)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, readStatusError(resp)
	}

	var created models.User
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		// Some deployments answer 201 with an empty body
		if errors.Is(err, io.EOF) {
			return user, nil
		}
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}

	return &created, nil
}

// DeleteUser removes a single user through the entity endpoint
func (c *Client) DeleteUser(ctx context.Context, id string) error {
	resp, err := c.do(ctx, http.MethodDelete, "/api/users/"+url.PathEscape(id), nil)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return readStatusError(resp)
	}

	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	return c.httpClient.Do(req)
}

// readStatusError builds a StatusError, extracting the structured error code when present.
// Size rejections are recognised only by status 413 or the structured code, never by body text.
func readStatusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	statusErr := &StatusError{
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
	}

	var structured struct {
		Error struct {
			Code    string `json:"code"`
			Version int    `json:"version"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &structured) == nil {
		statusErr.Code = structured.Error.Code
		statusErr.Version = structured.Error.Version
	}

	return statusErr
}
