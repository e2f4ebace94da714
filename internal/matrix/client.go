// Package matrix is a minimal Matrix client-server API client covering
// what a reporting bot needs: login, long-polling sync, sending room
// messages and reactions, media upload, and profile lookups.
package matrix

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// Error is a structured error response from the homeserver. All Matrix
// error bodies share the same JSON shape.
type Error struct {
	Code       string `json:"errcode"`
	Message    string `json:"error"`
	StatusCode int    `json:"-"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("matrix: %s (%d): %s", e.Code, e.StatusCode, e.Message)
}

// ClientConfig holds what a Client needs to talk to a homeserver.
type ClientConfig struct {
	// HomeserverURL is the base URL of the homeserver, e.g.
	// "https://matrix.example.org".
	HomeserverURL string
	// HTTPClient is used for all requests. If nil, http.DefaultClient
	// is used.
	HTTPClient *http.Client
	// Logger is used for structured logging. If nil, slog.Default()
	// is used.
	Logger *slog.Logger
}

// Client is an authenticated Matrix client. Construct with NewClient,
// then call Login before any other method.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	logger      *slog.Logger
	userID      string
	accessToken string

	// transactionCounter generates unique transaction IDs for
	// idempotent sends.
	transactionCounter atomic.Int64
}

// NewClient creates an unauthenticated Client.
//
// The URL is stored in string form with the trailing slash stripped, and
// request URLs are built by direct concatenation. This avoids the
// double-encoding issues of url.URL.String() with pre-escaped paths.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.HomeserverURL == "" {
		return nil, fmt.Errorf("matrix: HomeserverURL is required")
	}
	if _, err := url.Parse(cfg.HomeserverURL); err != nil {
		return nil, fmt.Errorf("matrix: invalid HomeserverURL %q: %w", cfg.HomeserverURL, err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.HomeserverURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// UserID returns the fully-qualified user ID after a successful login.
func (c *Client) UserID() string {
	return c.userID
}

// Login authenticates with username and password.
func (c *Client) Login(ctx context.Context, username, password string) error {
	if username == "" {
		return fmt.Errorf("matrix: username is required for login")
	}
	if password == "" {
		return fmt.Errorf("matrix: password is required for login")
	}

	request := loginRequest{
		Type:                     "m.login.password",
		User:                     username,
		Password:                 password,
		InitialDeviceDisplayName: "news-bot",
	}
	body, err := c.doRequest(ctx, http.MethodPost, "/_matrix/client/v3/login", request)
	if err != nil {
		return fmt.Errorf("matrix: login failed: %w", err)
	}

	var response authResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return fmt.Errorf("matrix: failed to parse login response: %w", err)
	}
	c.userID = response.UserID
	c.accessToken = response.AccessToken

	c.logger.Info("logged in to matrix",
		"user_id", response.UserID,
		"device_id", response.DeviceID,
	)
	return nil
}

// JoinRoom joins a room by ID.
func (c *Client) JoinRoom(ctx context.Context, roomID string) error {
	path := "/_matrix/client/v3/join/" + url.PathEscape(roomID)
	if _, err := c.doRequest(ctx, http.MethodPost, path, struct{}{}); err != nil {
		return fmt.Errorf("matrix: join room %q failed: %w", roomID, err)
	}
	return nil
}

// SendEvent sends an event of any type to a room using Matrix's
// idempotent PUT with a transaction ID. Returns the event ID.
func (c *Client) SendEvent(ctx context.Context, roomID, eventType string, content any) (string, error) {
	path := fmt.Sprintf("/_matrix/client/v3/rooms/%s/send/%s/%s",
		url.PathEscape(roomID),
		url.PathEscape(eventType),
		url.PathEscape(c.nextTransactionID()),
	)

	body, err := c.doRequest(ctx, http.MethodPut, path, content)
	if err != nil {
		return "", fmt.Errorf("matrix: send event to %q failed: %w", roomID, err)
	}

	var response sendEventResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("matrix: failed to parse send response: %w", err)
	}
	return response.EventID, nil
}

// RoomEvent fetches a single event from a room by its ID.
func (c *Client) RoomEvent(ctx context.Context, roomID, eventID string) (*Event, error) {
	path := fmt.Sprintf("/_matrix/client/v3/rooms/%s/event/%s",
		url.PathEscape(roomID),
		url.PathEscape(eventID),
	)

	body, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("matrix: get event %q in %q failed: %w", eventID, roomID, err)
	}

	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("matrix: failed to parse event response: %w", err)
	}
	return &event, nil
}

// Sync performs an incremental sync. For the initial sync, leave
// options.Since empty. For long-polling, set options.Timeout to the
// desired wait in milliseconds.
func (c *Client) Sync(ctx context.Context, options SyncOptions) (*SyncResponse, error) {
	query := url.Values{}
	if options.Since != "" {
		query.Set("since", options.Since)
	}
	query.Set("timeout", strconv.Itoa(options.Timeout))
	if options.Filter != "" {
		query.Set("filter", options.Filter)
	}

	body, err := c.doRequest(ctx, http.MethodGet, "/_matrix/client/v3/sync?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("matrix: sync failed: %w", err)
	}

	var response SyncResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("matrix: failed to parse sync response: %w", err)
	}
	return &response, nil
}

// DisplayName fetches a user's profile display name. Returns an empty
// string (not an error) when the user has none set.
func (c *Client) DisplayName(ctx context.Context, userID string) (string, error) {
	path := "/_matrix/client/v3/profile/" + url.PathEscape(userID) + "/displayname"
	body, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return "", fmt.Errorf("matrix: get display name for %q failed: %w", userID, err)
	}

	var response displayNameResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("matrix: failed to parse display name response: %w", err)
	}
	return response.DisplayName, nil
}

// UploadMedia uploads content to the homeserver's media repository and
// returns the MXC URI, e.g. "mxc://example.org/abc123".
func (c *Client) UploadMedia(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	path := "/_matrix/media/v3/upload?filename=" + url.QueryEscape(filename)
	body, err := c.doRequestRaw(ctx, http.MethodPost, path, contentType, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("matrix: media upload failed: %w", err)
	}

	var response uploadResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("matrix: failed to parse upload response: %w", err)
	}
	return response.ContentURI, nil
}

// MediaDownloadURL converts an MXC URI to the authenticated media
// download URL on this homeserver. Unparseable locators are returned
// unchanged.
func (c *Client) MediaDownloadURL(mxcURI string) string {
	rest, ok := strings.CutPrefix(mxcURI, "mxc://")
	if !ok {
		return mxcURI
	}
	server, mediaID, ok := strings.Cut(rest, "/")
	if !ok {
		return mxcURI
	}
	return fmt.Sprintf("%s/_matrix/client/v1/media/download/%s/%s",
		c.baseURL, url.PathEscape(server), url.PathEscape(mediaID))
}

// doRequest performs a JSON request and returns the response body. On
// 4xx/5xx the error is a *Error carrying the Matrix error code.
func (c *Client) doRequest(ctx context.Context, method, path string, requestBody any) ([]byte, error) {
	var bodyReader io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return nil, fmt.Errorf("matrix: failed to encode request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("matrix: failed to create request: %w", err)
	}
	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if c.accessToken != "" {
		request.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	return c.do(request, method, path)
}

// doRequestRaw performs a request with a raw body, for media upload.
func (c *Client) doRequestRaw(ctx context.Context, method, path, contentType string, body io.Reader) ([]byte, error) {
	request, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("matrix: failed to create request: %w", err)
	}
	if contentType != "" {
		request.Header.Set("Content-Type", contentType)
	}
	if c.accessToken != "" {
		request.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	return c.do(request, method, path)
}

func (c *Client) do(request *http.Request, method, path string) ([]byte, error) {
	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("matrix: request to %s %s failed: %w", method, path, err)
	}
	defer func() { _ = response.Body.Close() }()

	responseBody, err := io.ReadAll(io.LimitReader(response.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("matrix: failed to read response body: %w", err)
	}

	if response.StatusCode >= 200 && response.StatusCode < 300 {
		return responseBody, nil
	}

	var matrixErr Error
	if jsonErr := json.Unmarshal(responseBody, &matrixErr); jsonErr != nil {
		return nil, fmt.Errorf("matrix: unexpected %d response from %s %s: %s",
			response.StatusCode, method, path, string(responseBody))
	}
	matrixErr.StatusCode = response.StatusCode
	return responseBody, &matrixErr
}

// nextTransactionID generates a unique transaction ID for idempotent
// event sending. Uniqueness across restarts comes from the timestamp.
func (c *Client) nextTransactionID() string {
	return fmt.Sprintf("newsbot-%d-%d", time.Now().UnixMilli(), c.transactionCounter.Add(1))
}
