// Package client talks to the menu REST API and keeps an admin's local copy
// of categories and menu items in step with the server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"menu-admin/models"
	"menu-admin/validation"
)

// APIError is a non-2xx response. Fields is set for validation failures.
type APIError struct {
	Status  int
	Message string
	Fields  validation.Violations
}

func (e *APIError) Error() string {
	return fmt.Sprintf("menu api: %d %s", e.Status, e.Message)
}

func IsNotFound(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Status == http.StatusNotFound
}

type Client struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

func WithToken(token string) Option { return func(c *Client) { c.token = token } }

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Login exchanges the admin credential for a session token used by later
// write calls.
func (c *Client) Login(ctx context.Context, username, password string) error {
	var resp struct {
		Token string `json:"token"`
	}
	body := map[string]string{"username": username, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &resp); err != nil {
		return err
	}
	c.mu.Lock()
	c.token = resp.Token
	c.mu.Unlock()
	return nil
}

func (c *Client) ListCategories(ctx context.Context) ([]models.Category, error) {
	var resp struct {
		Categories []models.Category `json:"categories"`
	}
	if err := c.do(ctx, http.MethodGet, "/categories", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Categories, nil
}

func (c *Client) ListItems(ctx context.Context) ([]models.MenuItem, error) {
	var resp struct {
		MenuItems []models.MenuItem `json:"menuItems"`
	}
	if err := c.do(ctx, http.MethodGet, "/menu-items", nil, &resp); err != nil {
		return nil, err
	}
	return resp.MenuItems, nil
}

func (c *Client) CreateItem(ctx context.Context, in models.MenuItemInput) (*models.MenuItem, error) {
	var item models.MenuItem
	if err := c.do(ctx, http.MethodPost, "/menu-items", in, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) UpdateItem(ctx context.Context, id int64, in models.MenuItemInput) (*models.MenuItem, error) {
	var resp struct {
		MenuItem models.MenuItem `json:"menuItem"`
	}
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/menu-items/%d", id), in, &resp); err != nil {
		return nil, err
	}
	return &resp.MenuItem, nil
}

func (c *Client) SetAvailability(ctx context.Context, id int64, available bool) (*models.MenuItem, error) {
	var resp struct {
		MenuItem models.MenuItem `json:"menuItem"`
	}
	body := map[string]bool{"is_available": available}
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/menu-items/%d/availability", id), body, &resp); err != nil {
		return nil, err
	}
	return &resp.MenuItem, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.mu.RLock()
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	c.mu.RUnlock()

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", method, path, err)
	}
	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var e struct {
			Error  string                `json:"error"`
			Fields validation.Violations `json:"fields"`
		}
		if json.Unmarshal(data, &e) == nil {
			if e.Error != "" {
				apiErr.Message = e.Error
			}
			apiErr.Fields = e.Fields
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s %s: decode: %w", method, path, err)
	}
	return nil
}
