// Package client owns the browser-side half of the synchronization
// pipeline: a cookie-carrying API client, a sync controller that batches
// local edits into debounced saves, and the reconciler that decides what a
// remote refresh does to local state.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"noveldesk/internal/novel"
)

// Credentials is the signed cookie pair issued by the sign-in provider.
type Credentials struct {
	Payload   string
	Signature string
}

func (c Credentials) Present() bool {
	return c.Payload != "" && c.Signature != ""
}

var ErrUnauthorized = errors.New("unauthorized")

const defaultRequestTimeout = 10 * time.Second

// Client talks to the NovelDesk API. Every request carries the credential
// cookies and a bounded timeout, so a dead server surfaces as an error
// rather than a hang.
type Client struct {
	baseURL string
	creds   Credentials
	http    *http.Client
}

func New(baseURL string, creds Credentials) *Client {
	return &Client{
		baseURL: baseURL,
		creds:   creds,
		http:    &http.Client{Timeout: defaultRequestTimeout},
	}
}

type User struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (c *Client) Me(ctx context.Context) (User, error) {
	var payload struct {
		User User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/me", nil, &payload); err != nil {
		return User{}, err
	}
	return payload.User, nil
}

func (c *Client) FetchNovel(ctx context.Context) (*novel.DocumentTree, error) {
	var tree novel.DocumentTree
	if err := c.do(ctx, http.MethodGet, "/api/novel", nil, &tree); err != nil {
		return nil, err
	}
	return &tree, nil
}

func (c *Client) SaveNovel(ctx context.Context, tree *novel.DocumentTree) error {
	raw, err := json.Marshal(tree)
	if err != nil {
		return fmt.Errorf("marshal tree: %w", err)
	}
	return c.do(ctx, http.MethodPut, "/api/novel", raw, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.AddCookie(&http.Cookie{Name: "identity-payload", Value: c.creds.Payload})
	req.AddCookie(&http.Cookie{Name: "identity-signature", Value: c.creds.Signature})

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
