// Package client is a typed REST client for the order API, used by the
// courier tracker.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nirvaan-oms/api/internal/service"
)

// DefaultTimeout bounds every request.
const DefaultTimeout = 30 * time.Second

// Order is the wire shape of an order.
type Order = service.OrderView

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrNoCredentials  = errors.New("no credentials configured")
	ErrUnexpectedBody = errors.New("unexpected response body")
)

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.StatusCode, e.Message)
}

// Unwrap maps 401 onto ErrUnauthorized.
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

// StatusCode returns the HTTP status of an *APIError in err's chain, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// User is the authenticated account.
type User struct {
	ID       uuid.UUID `json:"id"`
	FullName string    `json:"fullName"`
	Email    string    `json:"email"`
	Role     string    `json:"role"`
}

// Pagination mirrors the list envelope.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"totalPages"`
}

// ListParams filters an order list. Zero values are omitted.
type ListParams struct {
	Page   int
	Limit  int
	Status string
	Search string
}

func (p ListParams) query() url.Values {
	q := url.Values{}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Status != "" {
		q.Set("status", p.Status)
	}
	if p.Search != "" {
		q.Set("search", p.Search)
	}
	return q
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithCredentials lets the client log in, and log in again when its token
// expires.
func WithCredentials(email, password string) Option {
	return func(c *Client) {
		c.email = email
		c.password = password
	}
}

// Client talks to the API rooted at baseURL (for example
// http://localhost:8081/api). It is safe for concurrent use.
type Client struct {
	baseURL  string
	http     *http.Client
	email    string
	password string

	mu    sync.RWMutex
	token string
	user  User
}

// New creates a Client.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token returns the current access token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// User returns the account of the last successful login.
func (c *Client) User() User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.user
}

type loginResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
	User    User   `json:"user"`
}

// Login authenticates with the configured credentials.
func (c *Client) Login(ctx context.Context) (User, error) {
	if c.email == "" {
		return User{}, ErrNoCredentials
	}

	var resp loginResponse
	body := map[string]string{"email": c.email, "password": c.password}
	if err := c.send(ctx, http.MethodPost, "/auth/login", nil, body, "", &resp); err != nil {
		return User{}, fmt.Errorf("login: %w", err)
	}
	if resp.Token == "" {
		return User{}, fmt.Errorf("login: %w: missing token", ErrUnexpectedBody)
	}

	c.mu.Lock()
	c.token = resp.Token
	c.user = resp.User
	c.mu.Unlock()
	return resp.User, nil
}

type listResponse struct {
	Success    bool       `json:"success"`
	Data       []Order    `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// CourierOrders fetches one page of the courier view.
func (c *Client) CourierOrders(ctx context.Context, p ListParams) ([]Order, Pagination, error) {
	var resp listResponse
	if err := c.do(ctx, http.MethodGet, "/courier/orders", p.query(), nil, &resp); err != nil {
		return nil, Pagination{}, fmt.Errorf("list courier orders: %w", err)
	}
	return resp.Data, resp.Pagination, nil
}

// AllCourierOrders walks every page of the courier view.
func (c *Client) AllCourierOrders(ctx context.Context, status string, pageSize int) ([]Order, error) {
	var out []Order
	for page := 1; ; page++ {
		orders, pg, err := c.CourierOrders(ctx, ListParams{Page: page, Limit: pageSize, Status: status})
		if err != nil {
			return nil, err
		}
		out = append(out, orders...)
		if int64(page) >= pg.TotalPages || len(orders) == 0 {
			return out, nil
		}
	}
}

// Orders fetches one page of the admin order list.
func (c *Client) Orders(ctx context.Context, p ListParams) ([]Order, Pagination, error) {
	var resp listResponse
	if err := c.do(ctx, http.MethodGet, "/orders", p.query(), nil, &resp); err != nil {
		return nil, Pagination{}, fmt.Errorf("list orders: %w", err)
	}
	return resp.Data, resp.Pagination, nil
}

type orderResponse struct {
	Success bool  `json:"success"`
	Data    Order `json:"data"`
}

// Order fetches a single order. Admin only.
func (c *Client) Order(ctx context.Context, id string) (Order, error) {
	var resp orderResponse
	if err := c.do(ctx, http.MethodGet, "/orders/"+url.PathEscape(id), nil, nil, &resp); err != nil {
		return Order{}, fmt.Errorf("get order %s: %w", id, err)
	}
	return resp.Data, nil
}

type statusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Changed bool   `json:"changed"`
	Data    Order  `json:"data"`
}

// UpdateCourierStatus applies a courier status transition. changed is false
// when the order already had that status.
func (c *Client) UpdateCourierStatus(ctx context.Context, id, status string) (Order, bool, error) {
	var resp statusResponse
	body := map[string]string{"status": status}
	if err := c.do(ctx, http.MethodPut, "/courier/"+url.PathEscape(id)+"/status", nil, body, &resp); err != nil {
		return Order{}, false, fmt.Errorf("update status of %s: %w", id, err)
	}
	return resp.Data, resp.Changed, nil
}

// UpdateOrderStatus applies an admin status transition.
func (c *Client) UpdateOrderStatus(ctx context.Context, id, status string) (Order, bool, error) {
	var resp statusResponse
	body := map[string]string{"status": status}
	if err := c.do(ctx, http.MethodPut, "/orders/"+url.PathEscape(id)+"/status", nil, body, &resp); err != nil {
		return Order{}, false, fmt.Errorf("update status of %s: %w", id, err)
	}
	return resp.Data, resp.Changed, nil
}

// EventsURL is the push endpoint for the current token.
func (c *Client) EventsURL() (string, error) {
	u, err := url.Parse(c.baseURL + "/ws/orders")
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	q := u.Query()
	q.Set("token", c.Token())
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// do sends an authenticated request, logging in first when there is no
// token and once more when the token is rejected.
func (c *Client) do(ctx context.Context, method, path string, q url.Values, body, out any) error {
	token := c.Token()
	if token == "" && c.email != "" {
		if _, err := c.Login(ctx); err != nil {
			return err
		}
		token = c.Token()
	}

	err := c.send(ctx, method, path, q, body, token, out)
	if errors.Is(err, ErrUnauthorized) && c.email != "" {
		if _, lerr := c.Login(ctx); lerr != nil {
			return lerr
		}
		err = c.send(ctx, method, path, q, body, c.Token(), out)
	}
	return err
}

type errorBody struct {
	Message string `json:"message"`
}

func (c *Client) send(ctx context.Context, method, path string, q url.Values, body any, token string, out any) error {
	target := c.baseURL + path
	if len(q) > 0 {
		target += "?" + q.Encode()
	}

	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		rd = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, rd)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb errorBody
		_ = json.Unmarshal(raw, &eb)
		if eb.Message == "" {
			eb.Message = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: eb.Message}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", ErrUnexpectedBody, err)
	}
	return nil
}
