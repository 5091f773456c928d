// Package client is a Go client for the BayRex APK API together with a
// Sync type that mirrors the catalog state the web client shows.
package client

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
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// APIError is a non-success answer of the server.
type APIError struct {
	Status      int
	Message     string
	Requires2FA bool
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

// IsStatus reports whether err is an APIError with the given HTTP status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// Client talks to one server. The session cookie is kept in a cookie jar so
// a Client stays logged in between calls.
type Client struct {
	baseURL *url.URL
	http    *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client. Its Jar is replaced
// when nil.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("client: parse base url: %w", err)
	}
	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: 5 * time.Minute},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		c.http.Jar = jar
	}
	return c, nil
}

type envelope struct {
	Success       bool            `json:"success"`
	Error         string          `json:"error"`
	Message       string          `json:"message"`
	Authenticated bool            `json:"authenticated"`
	Requires2FA   bool            `json:"requires_2fa"`
	Data          json.RawMessage `json:"data"`
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string, out interface{}) (*envelope, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, &APIError{Status: resp.StatusCode, Message: fmt.Sprintf("decode response: %v", err)}
	}
	if resp.StatusCode >= 400 || !env.Success {
		msg := env.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &APIError{Status: resp.StatusCode, Message: msg, Requires2FA: env.Requires2FA}
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return nil, fmt.Errorf("client: decode data: %w", err)
		}
	}
	return &env, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	_, err := c.do(ctx, http.MethodGet, path, query, nil, "", out)
	return err
}

func (c *Client) Health(ctx context.Context) error {
	return c.getJSON(ctx, "/api/health", nil, nil)
}

func (c *Client) Info(ctx context.Context) (*Info, error) {
	var info Info
	if err := c.getJSON(ctx, "/api/info", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) ListApps(ctx context.Context, opts ListOptions) (*Page, error) {
	q := url.Values{}
	if opts.Search != "" {
		q.Set("search", opts.Search)
	}
	if opts.Category != "" {
		q.Set("category", opts.Category)
	}
	if opts.Featured {
		q.Set("featured", "true")
	}
	if opts.Sort != "" {
		q.Set("sort", opts.Sort)
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		q.Set("offset", strconv.Itoa(opts.Offset))
	}

	var page Page
	if err := c.getJSON(ctx, "/api/apps", q, &page); err != nil {
		return nil, err
	}
	if page.Apps == nil {
		page.Apps = []App{}
	}
	return &page, nil
}

func (c *Client) GetApp(ctx context.Context, id uint) (*App, error) {
	var app App
	if err := c.getJSON(ctx, appPath(id), nil, &app); err != nil {
		return nil, err
	}
	return &app, nil
}

func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	if err := c.getJSON(ctx, "/api/stats", nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	var cats []Category
	if err := c.getJSON(ctx, "/api/categories", nil, &cats); err != nil {
		return nil, err
	}
	return cats, nil
}

func (c *Client) Search(ctx context.Context, query string, limit int) (*SearchResult, error) {
	q := url.Values{"q": {query}}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var res SearchResult
	if err := c.getJSON(ctx, "/api/search", q, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Login opens an admin session; code is the TOTP code and may be empty.
func (c *Client) Login(ctx context.Context, username, password, code string) error {
	body, err := json.Marshal(map[string]string{
		"username":    username,
		"password":    password,
		"two_fa_code": code,
	})
	if err != nil {
		return err
	}
	_, err = c.do(ctx, http.MethodPost, "/api/login", nil, bytes.NewReader(body), "application/json", nil)
	return err
}

func (c *Client) Logout(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "/api/logout", nil, nil, "", nil)
	return err
}

func (c *Client) CheckAuth(ctx context.Context) (*AuthStatus, error) {
	var data struct {
		Username string `json:"username"`
	}
	env, err := c.do(ctx, http.MethodGet, "/api/check-auth", nil, nil, "", &data)
	if err != nil {
		return nil, err
	}
	return &AuthStatus{Authenticated: env.Authenticated, Username: data.Username}, nil
}

// File is an upload for CreateApp/UpdateApp.
type File struct {
	Name        string
	ContentType string
	Content     io.Reader
}

// AppInput carries the fields of a create or update. On update, nil fields
// are not sent and keep their stored value.
type AppInput struct {
	Name        *string
	Description *string
	Version     *string
	Category    *string
	Featured    *bool
	APK         *File
	Icon        *File
}

// String is a helper for the optional fields of AppInput.
func String(s string) *string { return &s }

// Bool is a helper for AppInput.Featured.
func Bool(b bool) *bool { return &b }

func (in AppInput) encode() (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := []struct {
		name  string
		value *string
	}{
		{"name", in.Name},
		{"description", in.Description},
		{"version", in.Version},
		{"category", in.Category},
	}
	for _, f := range fields {
		if f.value == nil {
			continue
		}
		if err := w.WriteField(f.name, *f.value); err != nil {
			return nil, "", err
		}
	}
	if in.Featured != nil {
		if err := w.WriteField("featured", strconv.FormatBool(*in.Featured)); err != nil {
			return nil, "", err
		}
	}

	for field, f := range map[string]*File{"icon": in.Icon, "apk": in.APK} {
		if f == nil {
			continue
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, f.Name))
		ct := f.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := io.Copy(part, f.Content); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func (c *Client) CreateApp(ctx context.Context, in AppInput) (*App, error) {
	body, ct, err := in.encode()
	if err != nil {
		return nil, err
	}
	var app App
	if _, err := c.do(ctx, http.MethodPost, "/api/apps", nil, body, ct, &app); err != nil {
		return nil, err
	}
	return &app, nil
}

func (c *Client) UpdateApp(ctx context.Context, id uint, in AppInput) (*App, error) {
	body, ct, err := in.encode()
	if err != nil {
		return nil, err
	}
	var app App
	if _, err := c.do(ctx, http.MethodPut, appPath(id), nil, body, ct, &app); err != nil {
		return nil, err
	}
	return &app, nil
}

// DeleteApp removes an app and returns the deleted record.
func (c *Client) DeleteApp(ctx context.Context, id uint) (*App, error) {
	var app App
	if _, err := c.do(ctx, http.MethodDelete, appPath(id), nil, nil, "", &app); err != nil {
		return nil, err
	}
	return &app, nil
}

// Download records a download and returns the package link.
func (c *Client) Download(ctx context.Context, id uint) (*Download, error) {
	var d Download
	if _, err := c.do(ctx, http.MethodPost, appPath(id)+"/download", nil, nil, "", &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func appPath(id uint) string {
	return "/api/apps/" + strconv.FormatUint(uint64(id), 10)
}
