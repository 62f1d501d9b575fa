// Package client is a small HTTP client for the buyer API, used by leadctl.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/JonMunkholm/leadbook/internal/core"
)

// ActorHeader names the actor when the server runs without authentication.
const ActorHeader = "X-Actor-ID"

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int                    `json:"-"`
	Err     string                 `json:"error"`
	Message string                 `json:"message"`
	Action  string                 `json:"action"`
	Code    string                 `json:"code"`
	Fields  []core.ValidationError `json:"fields"`
	Rows    []core.RowError        `json:"errors"`
}

func (e *APIError) Error() string {
	msg := e.Err
	if msg == "" {
		msg = e.Message
	}
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Code != "" {
		return fmt.Sprintf("%s (%d, %s)", msg, e.Status, e.Code)
	}
	return fmt.Sprintf("%s (%d)", msg, e.Status)
}

// Client calls the buyer API.
type Client struct {
	http *resty.Client
}

// Option configures a Client.
type Option func(*resty.Client)

// WithToken sends token as a bearer credential.
func WithToken(token string) Option {
	return func(c *resty.Client) {
		if token != "" {
			c.SetAuthToken(token)
		}
	}
}

// WithActor names the acting agent for servers without authentication.
func WithActor(actor string) Option {
	return func(c *resty.Client) {
		if actor != "" {
			c.SetHeader(ActorHeader, actor)
		}
	}
}

// WithTimeout overrides the default 60s request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *resty.Client) { c.SetTimeout(d) }
}

// New creates a Client for the server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	rc := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(60*time.Second).
		SetHeader("Accept", "application/json")
	for _, opt := range opts {
		opt(rc)
	}
	return &Client{http: rc}
}

func (c *Client) request(ctx context.Context) *resty.Request {
	return c.http.R().SetContext(ctx).SetError(&APIError{})
}

func check(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if !resp.IsError() {
		return nil
	}
	apiErr, ok := resp.Error().(*APIError)
	if !ok || apiErr == nil {
		apiErr = &APIError{}
	}
	apiErr.Status = resp.StatusCode()
	return apiErr
}

// ListOptions selects a page of buyers.
type ListOptions struct {
	Page         int
	City         string
	PropertyType string
	Status       string
	Timeline     string
	Search       string
}

func (o ListOptions) params() map[string]string {
	p := map[string]string{}
	if o.Page > 0 {
		p["page"] = strconv.Itoa(o.Page)
	}
	set := func(k, v string) {
		if v != "" {
			p[k] = v
		}
	}
	set("city", o.City)
	set("propertyType", o.PropertyType)
	set("status", o.Status)
	set("timeline", o.Timeline)
	set("search", o.Search)
	return p
}

// ListBuyers fetches one page of buyers.
func (c *Client) ListBuyers(ctx context.Context, opts ListOptions) (core.ListResult, error) {
	var out core.ListResult
	resp, err := c.request(ctx).SetQueryParams(opts.params()).SetResult(&out).Get("/api/buyers")
	return out, check(resp, err)
}

// GetBuyer fetches a buyer and its recent history.
func (c *Client) GetBuyer(ctx context.Context, id string) (core.BuyerDetail, error) {
	var out core.BuyerDetail
	resp, err := c.request(ctx).SetPathParam("id", id).SetResult(&out).Get("/api/buyers/{id}")
	return out, check(resp, err)
}

// CreateBuyer submits a new buyer.
func (c *Client) CreateBuyer(ctx context.Context, raw core.RawBuyer) (core.Buyer, error) {
	var out core.Buyer
	resp, err := c.request(ctx).SetBody(raw).SetResult(&out).Post("/api/buyers")
	return out, check(resp, err)
}

// DeleteBuyer removes a buyer.
func (c *Client) DeleteBuyer(ctx context.Context, id string) error {
	resp, err := c.request(ctx).SetPathParam("id", id).Delete("/api/buyers/{id}")
	return check(resp, err)
}

// Import uploads a CSV document. Nothing is stored unless every row is valid.
func (c *Client) Import(ctx context.Context, csv io.Reader) (core.ImportResult, error) {
	var out core.ImportResult
	resp, err := c.request(ctx).
		SetHeader("Content-Type", "text/csv").
		SetBody(csv).
		SetResult(&out).
		Post("/api/buyers/import")
	return out, check(resp, err)
}

// Preview validates a CSV document without storing it.
func (c *Client) Preview(ctx context.Context, csv io.Reader) (core.PreviewResult, error) {
	var out core.PreviewResult
	resp, err := c.request(ctx).
		SetHeader("Content-Type", "text/csv").
		SetBody(csv).
		SetResult(&out).
		Post("/api/buyers/import/preview")
	return out, check(resp, err)
}

// Export downloads every buyer in format ("csv" or "xlsx") into w.
func (c *Client) Export(ctx context.Context, format string, w io.Writer) (int64, error) {
	resp, err := c.request(ctx).
		SetQueryParam("format", format).
		SetDoNotParseResponse(true).
		Get("/api/buyers/export")
	if err != nil {
		return 0, err
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.IsError() {
		data, _ := io.ReadAll(body)
		apiErr := &APIError{}
		if json.Unmarshal(data, apiErr) != nil {
			apiErr.Err = strings.TrimSpace(string(data))
		}
		apiErr.Status = resp.StatusCode()
		return 0, apiErr
	}
	return io.Copy(w, body)
}

// Archive asks the server to store an export in object storage.
func (c *Client) Archive(ctx context.Context, format string) (core.ArchiveResult, error) {
	var out core.ArchiveResult
	resp, err := c.request(ctx).
		SetQueryParam("format", format).
		SetResult(&out).
		Post("/api/buyers/export/archive")
	return out, check(resp, err)
}
