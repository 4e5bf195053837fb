package gist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tidwall/gjson"
)

const defaultBaseURL = "https://api.github.com"

const (
	// Filename is the fixed name of the encrypted payload file inside
	// the storage gist.
	Filename = "cs-cli-session-data.enc"

	// Description marks the storage gist as tool-managed.
	Description = "session-sync encrypted session data - DO NOT EDIT"
)

const (
	// maxRedirects is the maximum number of HTTP redirects to follow
	// before giving up, matching the default net/http limit.
	maxRedirects = 10

	// httpClientTimeout is the timeout for the default HTTP client used
	// by the API client when no custom client is provided.
	httpClientTimeout = 30 * time.Second

	// maxAPIResponseBytes caps response body reads. Gist payloads are a
	// few hundred KB of base64 at most; anything past 10MB is a
	// misbehaving server.
	maxAPIResponseBytes = 10 * 1024 * 1024

	// apiVersion is sent in the X-GitHub-Api-Version header.
	apiVersion = "2022-11-28"
)

// Client talks to the GitHub REST API for gist and user operations.
// It implements only the calls session-sync needs; authorization is
// per-request so a single client serves any token.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// sameHostRedirectPolicy follows redirects only when the target host
// matches the original request host. This prevents the Authorization
// header from leaking to third-party domains.
func sameHostRedirectPolicy(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return errors.New("stopped after 10 redirects")
	}

	if len(via) > 0 {
		origHost := via[0].URL.Host
		if req.URL.Host != origHost {
			return fmt.Errorf("redirect to different host blocked: %s -> %s", origHost, req.URL.Host)
		}
	}

	return nil
}

// NewClient creates an API client with the given http.Client.
// If httpClient is nil, a client with a 30-second timeout and
// same-host redirect policy is created.
func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:       httpClientTimeout,
			CheckRedirect: sameHostRedirectPolicy,
		}
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    defaultBaseURL,
	}
}

// NewClientWithBaseURL creates a client against a non-default API base.
// Used by tests to point at a local server.
func NewClientWithBaseURL(httpClient *http.Client, baseURL string) *Client {
	c := NewClient(httpClient)
	c.baseURL = strings.TrimRight(baseURL, "/")

	return c
}

// sanitizeResponseBody truncates and sanitizes a response body for
// inclusion in error messages. Limits to 256 bytes and replaces
// non-printable characters to prevent log injection.
func sanitizeResponseBody(body []byte) string {
	const maxLen = 256
	if len(body) > maxLen {
		body = body[:maxLen]
	}

	var clean []byte

	for len(body) > 0 {
		r, size := utf8.DecodeRune(body)
		if r == utf8.RuneError && size <= 1 {
			clean = append(clean, '?')
			body = body[1:]

			continue
		}

		if r < 0x20 && r != '\n' && r != '\r' && r != '\t' {
			clean = append(clean, '?')
		} else {
			clean = append(clean, body[:size]...)
		}

		body = body[size:]
	}

	return string(clean)
}

// do sends an authenticated request and returns the raw response body.
// Failures are mapped onto the storage error taxonomy: deadline
// overruns become KindNetworkTimeout, 404 on gists KindGistNotFound,
// rate-limit rejections KindRateLimit, everything else KindAPIRequest.
func (c *Client) do(ctx context.Context, method, endpoint, token string, body interface{}) ([]byte, error) {
	operation := method + " " + endpoint

	var reader io.Reader

	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, SerializationErr("marshalling request body", err)
		}

		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return nil, SerializationErr("creating request", err)
	}

	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	req.Header.Set("Authorization", "Bearer "+token)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return nil, errTimeout(operation, c.httpClient.Timeout, err)
		}
		// Connection refused, DNS failure and friends read as a zero-status
		// API failure; status 0 is below 500 so they are not retried blindly.
		return nil, &Error{Kind: KindAPIRequest, Operation: operation, Reason: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxAPIResponseBytes))
	if err != nil {
		return nil, errAPIRequest(operation, resp.StatusCode, fmt.Sprintf("reading response: %v", err))
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return respBody, nil
	}

	return nil, c.statusError(operation, resp, respBody)
}

// statusError maps a non-2xx response onto the error taxonomy.
func (c *Client) statusError(operation string, resp *http.Response, body []byte) error {
	message := gjson.GetBytes(body, "message").Str
	if message == "" {
		message = sanitizeResponseBody(body)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		// Callers that know the gist id swap it in via notFoundAs.
		return errAPIRequest(operation, resp.StatusCode, message)
	case resp.StatusCode == http.StatusForbidden && isRateLimited(resp, message):
		return errRateLimit(retryAfter(resp))
	case resp.StatusCode == http.StatusUnauthorized:
		return AuthRequired("github rejected the access token", errAPIRequest(operation, resp.StatusCode, message))
	default:
		return errAPIRequest(operation, resp.StatusCode, message)
	}
}

// isRateLimited detects GitHub's rate-limit rejection, which arrives as
// 403 with a "rate limit" message or an exhausted x-ratelimit-remaining.
func isRateLimited(resp *http.Response, message string) bool {
	if strings.Contains(strings.ToLower(message), "rate limit") {
		return true
	}

	return resp.Header.Get("X-Ratelimit-Remaining") == "0"
}

// retryAfter extracts the server-advertised retry delay, defaulting to
// one minute when the header is absent or unparsable.
func retryAfter(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}

	return time.Minute
}

// isTimeout reports whether err is a network timeout.
func isTimeout(err error) bool {
	var ne interface{ Timeout() bool }

	return errors.As(err, &ne) && ne.Timeout()
}

// notFoundAs rewrites a 404 API error into KindGistNotFound for the
// given gist. Other errors pass through unchanged.
func notFoundAs(err error, gistID string) error {
	var ge *Error
	if errors.As(err, &ge) && ge.Kind == KindAPIRequest && ge.Status == http.StatusNotFound {
		return NotFoundErr(gistID)
	}

	return err
}

type gistFile struct {
	Content string `json:"content"`
}

type gistRequest struct {
	Description string              `json:"description,omitempty"`
	Public      *bool               `json:"public,omitempty"`
	Files       map[string]gistFile `json:"files"`
}

// CreateGist creates a new secret gist holding content under the fixed
// filename and returns its id.
func (c *Client) CreateGist(ctx context.Context, token, content string) (string, error) {
	public := false
	req := gistRequest{
		Description: Description,
		Public:      &public,
		Files:       map[string]gistFile{Filename: {Content: content}},
	}

	body, err := c.do(ctx, http.MethodPost, "/gists", token, req)
	if err != nil {
		return "", err
	}

	id := gjson.GetBytes(body, "id").Str
	if id == "" {
		return "", InvalidDataErr("gist create response missing id", nil)
	}

	return id, nil
}

// UpdateGist replaces the payload file's content in an existing gist.
func (c *Client) UpdateGist(ctx context.Context, token, gistID, content string) error {
	req := gistRequest{
		Files: map[string]gistFile{Filename: {Content: content}},
	}

	_, err := c.do(ctx, http.MethodPatch, "/gists/"+gistID, token, req)

	return notFoundAs(err, gistID)
}

// FetchGist returns the payload file's content from the given gist.
// A gist that exists but lacks the payload file reads as not found:
// either way there is no session to restore.
func (c *Client) FetchGist(ctx context.Context, token, gistID string) (string, error) {
	body, err := c.do(ctx, http.MethodGet, "/gists/"+gistID, token, nil)
	if err != nil {
		return "", notFoundAs(err, gistID)
	}

	// The filename holds a dot, so index the files object as a map
	// instead of a gjson path.
	content := gjson.GetBytes(body, "files").Map()[Filename].Get("content").Str
	if content == "" {
		return "", NotFoundErr(gistID)
	}

	return strings.TrimSpace(content), nil
}

// DeleteGist removes the gist entirely.
func (c *Client) DeleteGist(ctx context.Context, token, gistID string) error {
	_, err := c.do(ctx, http.MethodDelete, "/gists/"+gistID, token, nil)

	return notFoundAs(err, gistID)
}

// CurrentUser returns the authenticated user's login. Doubles as the
// cheapest probe for whether a stored token is still usable.
func (c *Client) CurrentUser(ctx context.Context, token string) (string, error) {
	body, err := c.do(ctx, http.MethodGet, "/user", token, nil)
	if err != nil {
		return "", err
	}

	login := gjson.GetBytes(body, "login").Str
	if login == "" {
		return "", InvalidDataErr("user response missing login", nil)
	}

	return login, nil
}
