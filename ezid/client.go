package ezid

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Registration operations.
const (
	OpCreate = "create"
	OpMint   = "mint"
	OpUpdate = "update"
)

// KnownServers maps short server names to EZID base URLs.
var KnownServers = map[string]string{
	"production": "https://ezid.cdlib.org",
	"staging":    "https://uc3-ezidx2-stg.cdlib.org",
}

// ResolveServer accepts a known server name or a full base URL.
func ResolveServer(s string) string {
	if url, ok := KnownServers[s]; ok {
		return url
	}
	return strings.TrimSuffix(s, "/")
}

// Credentials holds EZID authentication: either username/password for
// basic auth or a sessionid cookie.
type Credentials struct {
	Username string
	Password string
	Session  string
}

// ParseCredentials interprets a -c argument: "sessionid=..." for a
// session cookie, "username:password", or a bare username.
// needPassword reports that the caller must prompt for a password.
func ParseCredentials(s string) (creds Credentials, needPassword bool) {
	if strings.HasPrefix(s, "sessionid=") {
		return Credentials{Session: s}, false
	}
	if user, pass, ok := strings.Cut(s, ":"); ok {
		return Credentials{Username: user, Password: pass}, false
	}
	return Credentials{Username: s}, true
}

// StatusError is an error reported by the EZID service itself, as
// opposed to a transport failure. The batch driver surfaces it in the
// _error output column; it never aborts the batch.
type StatusError struct {
	Message string
}

func (e *StatusError) Error() string {
	return e.Message
}

// Client talks to one EZID server.
type Client struct {
	Server      string
	Credentials Credentials
	HTTPClient  *http.Client
}

// NewClient creates a client for the given server name or base URL.
func NewClient(server string, creds Credentials) *Client {
	return &Client{
		Server:      ResolveServer(server),
		Credentials: creds,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Register performs one registration call and returns the identifier
// EZID reports. A *StatusError means EZID rejected the request; any
// other error is a transport failure. No retries are performed.
func (c *Client) Register(ctx context.Context, op, shoulder string, elements map[string]string, id string) (string, error) {
	var method, url string
	switch op {
	case OpMint:
		method = http.MethodPost
		url = c.Server + "/shoulder/" + quotePath(shoulder)
	case OpCreate:
		method = http.MethodPut
		url = c.Server + "/id/" + quotePath(id)
	case OpUpdate:
		method = http.MethodPost
		url = c.Server + "/id/" + quotePath(id)
	default:
		return "", fmt.Errorf("unknown operation %q", op)
	}

	body := FormatANVL(elements)
	slog.Debug("registering identifier", "method", method, "url", url, "bytes", len(body))

	req, err := http.NewRequestWithContext(ctx, method, url, strings.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "text/plain; charset=UTF-8")
	if c.Credentials.Session != "" {
		req.Header.Set("Cookie", c.Credentials.Session)
	} else {
		req.SetBasicAuth(c.Credentials.Username, c.Credentials.Password)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	text := strings.TrimSpace(string(data))
	if strings.HasPrefix(text, "success:") {
		fields := strings.Fields(strings.TrimPrefix(text, "success:"))
		if len(fields) == 0 {
			return "", &StatusError{Message: "error: empty success response"}
		}
		return fields[0], nil
	}

	if text == "" {
		text = fmt.Sprintf("error: %s", resp.Status)
	} else if !strings.HasPrefix(text, "error:") {
		text = "error: " + text
	}
	return "", &StatusError{Message: text}
}

// quotePath percent-encodes a path segment, keeping the colon and
// slash characters that appear in ARK and DOI identifiers.
func quotePath(s string) string {
	const unreserved = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-._~:/"
	var b strings.Builder
	for _, c := range []byte(s) {
		if strings.IndexByte(unreserved, c) >= 0 {
			b.WriteByte(c)
		} else {
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}
