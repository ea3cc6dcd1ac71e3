package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gregdel/pushover"

	"github.com/earshot-audio/earshot/config"
	"github.com/earshot-audio/earshot/utils"
)

// Client talks to the Earshot backend. Every call is synchronous; the
// session decides what runs on a goroutine and what blocks.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string

	pushoverApp       *pushover.Pushover
	pushoverRecipient *pushover.Recipient
	notifyAuthOnce    sync.Once
	onAuthLapse       func()
}

func NewClient(cfg config.Config) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(cfg.Backend.URL, "/"),
		httpClient: utils.NewHTTPClient(),
	}
	c.onAuthLapse = c.notifyAuthLapse
	if cfg.Pushover.Token != "" && cfg.Pushover.Recipient != "" {
		c.pushoverApp = pushover.New(cfg.Pushover.Token)
		c.pushoverRecipient = pushover.NewRecipient(cfg.Pushover.Recipient)
	}
	return c
}

// SetToken swaps the bearer token used on authenticated calls. An empty
// token puts the client back into the logged-out state.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) get(path string, query url.Values, field string, result any) error {
	return c.do(http.MethodGet, path, query, nil, field, result)
}

func (c *Client) post(path string, body any, field string, result any) error {
	return c.do(http.MethodPost, path, nil, body, field, result)
}

func (c *Client) delete(path string) error {
	return c.do(http.MethodDelete, path, nil, nil, "", nil)
}

func (c *Client) do(method, path string, query url.Values, body any, field string, result any) error {
	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &NetworkError{Op: method + " " + path, Err: err}
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, fullURL, reqBody)
	if err != nil {
		return &NetworkError{Op: method + " " + path, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return &NetworkError{Op: method + " " + path, Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden {
		// A rejected password on the credential endpoints is the user's
		// concern; only a stored token going stale warrants the alert
		if path != authEndpoint && path != registerEndpoint {
			c.onAuthLapse()
		}
		return &AuthError{Status: res.StatusCode}
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		payload, _ := io.ReadAll(res.Body)
		return &NetworkError{
			Op:  method + " " + path,
			Err: fmt.Errorf("status %d: %s", res.StatusCode, string(payload)),
		}
	}

	if result != nil {
		if err := json.NewDecoder(res.Body).Decode(result); err != nil {
			return &DecodeError{Field: field, Err: err}
		}
	}
	return nil
}

// notifyAuthLapse pings me once per process when the backend stops
// accepting our token, since a headless daemon has no login prompt to
// fall back on.
func (c *Client) notifyAuthLapse() {
	c.notifyAuthOnce.Do(func() {
		if c.pushoverApp == nil {
			return
		}
		message := pushover.NewMessageWithTitle(
			"The backend rejected the stored token so progress sync has stopped. Log in again.",
			"Earshot session expired",
		)
		if _, err := c.pushoverApp.SendMessage(message, c.pushoverRecipient); err != nil {
			slog.Error("Failed to send session expiry notification", slog.String("stack", err.Error()))
		}
	})
}
