// Package client is the Go API client for a Harbor server. It keeps the
// access token in memory, carries the refresh token in a cookie jar, and
// transparently refreshes the session when the server answers 401. At most
// one refresh request is in flight per Client no matter how many callers
// hit a 401 at once.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"
)

// ErrSessionExpired is returned when the session cannot be refreshed and
// the caller must log in again.
var ErrSessionExpired = errors.New("client: session expired")

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("client: server returned %d: %s", e.Status, e.Message)
}

// User mirrors the server's user shape.
type User struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Roles     []string  `json:"roles"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Document mirrors the server's document shape.
type Document struct {
	ID         uint64    `json:"id"`
	Name       string    `json:"name"`
	XMLContent string    `json:"xmlContent"`
	Version    uint32    `json:"version"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// DocumentVersion is one archived document body.
type DocumentVersion struct {
	Version    uint32    `json:"version"`
	XMLContent string    `json:"xmlContent"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Connection is the safe view of a stored database connection. The server
// never returns the password.
type Connection struct {
	ID           uint64    `json:"id"`
	Name         string    `json:"name"`
	DBType       string    `json:"dbType"`
	Host         string    `json:"host"`
	Port         int       `json:"port"`
	Username     string    `json:"username"`
	DatabaseName string    `json:"databaseName"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// ConnectionParams is the write shape for creating or updating a
// connection. Nil fields are omitted on update.
type ConnectionParams struct {
	Name         *string `json:"name,omitempty"`
	DBType       *string `json:"dbType,omitempty"`
	Host         *string `json:"host,omitempty"`
	Port         *int    `json:"port,omitempty"`
	Username     *string `json:"username,omitempty"`
	Password     *string `json:"password,omitempty"`
	DatabaseName *string `json:"databaseName,omitempty"`
}

// Options configures a Client.
type Options struct {
	// BaseURL is the server root, e.g. "https://api.example.com".
	BaseURL string
	// HTTPClient is optional. A cookie jar is installed if it has none;
	// the refresh token lives in the jar.
	HTTPClient *http.Client
}

// Client is safe for concurrent use.
type Client struct {
	baseURL string
	hc      *http.Client

	mu      sync.Mutex
	access  string
	refresh *refreshCall
	closed  bool
}

// New builds a Client. The HTTP client gets a cookie jar if it lacks one.
func New(opts Options) (*Client, error) {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		return nil, errors.New("client: base URL is required")
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	if hc.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		hc.Jar = jar
	}
	return &Client{baseURL: base, hc: hc}, nil
}

// Close fails any callers waiting on an in-flight refresh with
// ErrSessionExpired and stops future refreshes. It does not close the
// underlying HTTP client.
func (c *Client) Close() {
	c.mu.Lock()
	call := c.refresh
	c.refresh = nil
	c.closed = true
	c.access = ""
	c.mu.Unlock()

	if call != nil {
		call.fail(ErrSessionExpired)
	}
}

// AccessToken returns the current in-memory access token. Mostly useful
// for diagnostics.
func (c *Client) AccessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.access
}

func (c *Client) setAccess(token string) {
	c.mu.Lock()
	c.access = token
	c.mu.Unlock()
}

type authEnvelope struct {
	User        User   `json:"user"`
	AccessToken string `json:"accessToken"`
}

// Register creates an account and opens a session.
func (c *Client) Register(ctx context.Context, name, email, password string) (User, error) {
	var resp authEnvelope
	body := map[string]string{"name": name, "email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/v1/auth/register", body, &resp); err != nil {
		return User{}, err
	}
	c.setAccess(resp.AccessToken)
	return resp.User, nil
}

// Login opens a session with existing credentials.
func (c *Client) Login(ctx context.Context, email, password string) (User, error) {
	var resp authEnvelope
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/v1/auth/login", body, &resp); err != nil {
		return User{}, err
	}
	c.setAccess(resp.AccessToken)
	return resp.User, nil
}

// Logout ends the session server-side and drops the local access token.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/v1/auth/logout", nil, nil)
	c.setAccess("")
	return err
}

// Me fetches the authenticated user's profile.
func (c *Client) Me(ctx context.Context) (User, error) {
	var resp struct {
		User User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/auth/me", nil, &resp); err != nil {
		return User{}, err
	}
	return resp.User, nil
}

// ListDocuments returns the caller's documents, newest first.
func (c *Client) ListDocuments(ctx context.Context) ([]Document, error) {
	var resp struct {
		Documents []Document `json:"documents"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/documents", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Documents, nil
}

// CreateDocument stores a new document. An empty name gets a server-side
// default.
func (c *Client) CreateDocument(ctx context.Context, name, xmlContent string) (Document, error) {
	var doc Document
	body := map[string]string{"name": name, "xmlContent": xmlContent}
	if err := c.do(ctx, http.MethodPost, "/v1/documents", body, &doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// GetDocument fetches one document by id.
func (c *Client) GetDocument(ctx context.Context, id uint64) (Document, error) {
	var doc Document
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/v1/documents/%d", id), nil, &doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// UpdateDocument changes a document's name, content, or both. Nil fields
// are left untouched.
func (c *Client) UpdateDocument(ctx context.Context, id uint64, name, xmlContent *string) (Document, error) {
	var doc Document
	body := map[string]*string{}
	if name != nil {
		body["name"] = name
	}
	if xmlContent != nil {
		body["xmlContent"] = xmlContent
	}
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/v1/documents/%d", id), body, &doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// DeleteDocument removes a document and its archived versions.
func (c *Client) DeleteDocument(ctx context.Context, id uint64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/v1/documents/%d", id), nil, nil)
}

// DocumentVersions returns the archived bodies of a document.
func (c *Client) DocumentVersions(ctx context.Context, id uint64) ([]DocumentVersion, error) {
	var resp struct {
		Versions []DocumentVersion `json:"versions"`
	}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/v1/documents/%d/versions", id), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Versions, nil
}

// ListConnections returns the caller's stored database connections.
func (c *Client) ListConnections(ctx context.Context) ([]Connection, error) {
	var resp struct {
		Connections []Connection `json:"connections"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/connections", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Connections, nil
}

// CreateConnection stores a new database connection.
func (c *Client) CreateConnection(ctx context.Context, params ConnectionParams) (Connection, error) {
	var resp struct {
		Connection Connection `json:"connection"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/connections", params, &resp); err != nil {
		return Connection{}, err
	}
	return resp.Connection, nil
}

// GetConnection fetches one connection by id.
func (c *Client) GetConnection(ctx context.Context, id uint64) (Connection, error) {
	var resp struct {
		Connection Connection `json:"connection"`
	}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/v1/connections/%d", id), nil, &resp); err != nil {
		return Connection{}, err
	}
	return resp.Connection, nil
}

// UpdateConnection changes the given fields of a connection.
func (c *Client) UpdateConnection(ctx context.Context, id uint64, params ConnectionParams) (Connection, error) {
	var resp struct {
		Connection Connection `json:"connection"`
	}
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/v1/connections/%d", id), params, &resp); err != nil {
		return Connection{}, err
	}
	return resp.Connection, nil
}

// DeleteConnection removes a stored connection.
func (c *Client) DeleteConnection(ctx context.Context, id uint64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/v1/connections/%d", id), nil, nil)
}

// authExempt marks the endpoints that must never trigger a refresh-and-retry
// cycle; a 401 from these is final.
func authExempt(path string) bool {
	switch path {
	case "/v1/auth/register", "/v1/auth/login", "/v1/auth/refresh", "/v1/auth/logout":
		return true
	}
	return false
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	return c.doRetry(ctx, method, path, body, out, false)
}

// doRetry performs one request. On 401 from a non-exempt endpoint it joins
// the shared refresh and retries exactly once; the retried flag caps the
// recursion.
func (c *Client) doRetry(ctx context.Context, method, path string, body, out any, retried bool) error {
	var rdr io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.AccessToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized && !retried && !authExempt(path) {
		io.Copy(io.Discard, resp.Body)
		if err := c.waitForRefresh(ctx); err != nil {
			return err
		}
		return c.doRetry(ctx, method, path, body, out, true)
	}

	if resp.StatusCode >= 400 {
		msg := ""
		var apiErr struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil {
			msg = apiErr.Error
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
