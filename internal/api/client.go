package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"time"
)

// DefaultURL is the public API endpoint.
const DefaultURL = "https://adventure.land/api"

var (
	ErrNoAuthCookie     = errors.New("api: login response carried no auth cookie")
	ErrUnexpectedStatus = errors.New("api: unexpected status")
	ErrEmptyResponse    = errors.New("api: empty response")
)

// Client performs API calls. It keeps a cookie jar so the auth cookie set by
// Login is sent with later calls.
type Client struct {
	url  string
	http *http.Client
}

// NewClient creates a Client for the API at url (DefaultURL when empty).
func NewClient(url string) (*Client, error) {
	if url == "" {
		url = DefaultURL
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	return &Client{
		url:  url,
		http: &http.Client{Jar: jar, Timeout: 30 * time.Second},
	}, nil
}

// Login authenticates with email and password and returns the auth cookie.
func (c *Client) Login(ctx context.Context, email, password string) (Credential, error) {
	args := struct {
		Email     string `json:"email"`
		Password  string `json:"password"`
		OnlyLogin bool   `json:"only_login"`
	}{email, password, true}

	resp, err := c.call(ctx, "signup_or_login", args)
	if err != nil {
		return Credential{}, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	for _, ck := range resp.Cookies() {
		if ck.Name == AuthCookieName && ck.Value != "" {
			return Credential{Name: ck.Name, Value: ck.Value}, nil
		}
	}
	return Credential{}, ErrNoAuthCookie
}

// ServersAndCharacters fetches the server list and the account's characters.
func (c *Client) ServersAndCharacters(ctx context.Context) (Catalog, error) {
	resp, err := c.call(ctx, "servers_and_characters", struct{}{})
	if err != nil {
		return Catalog{}, err
	}
	defer resp.Body.Close()

	var body []struct {
		Servers    []Server    `json:"servers"`
		Characters []Character `json:"characters"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Catalog{}, fmt.Errorf("api: decode servers_and_characters: %w", err)
	}
	if len(body) == 0 {
		return Catalog{}, fmt.Errorf("%w: servers_and_characters", ErrEmptyResponse)
	}

	last := body[len(body)-1]
	cat := Catalog{
		Servers:    make(map[string]Server, len(last.Servers)),
		Characters: make(map[string]Character, len(last.Characters)),
	}
	for _, s := range last.Servers {
		cat.Servers[s.Key] = s
	}
	for _, ch := range last.Characters {
		cat.Characters[ch.Name] = ch
	}
	return cat, nil
}

// call posts method and its JSON-encoded arguments as a multipart form.
func (c *Client) call(ctx context.Context, method string, arguments any) (*http.Response, error) {
	encoded, err := json.Marshal(arguments)
	if err != nil {
		return nil, fmt.Errorf("api: encode %s arguments: %w", method, err)
	}

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	if err := form.WriteField("method", method); err != nil {
		return nil, err
	}
	if err := form.WriteField("arguments", string(encoded)); err != nil {
		return nil, err
	}
	if err := form.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, &buf)
	if err != nil {
		return nil, fmt.Errorf("api: build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api: %s: %w", method, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s returned %s", ErrUnexpectedStatus, method, resp.Status)
	}
	return resp, nil
}
