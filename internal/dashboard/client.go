package dashboard

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
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Errors reported by the API client. *APIError unwraps to one of them when
// the server's status identifies the case.
var (
	ErrNoActiveOrder = errors.New("no active order for this table")
	ErrAlreadyReady  = errors.New("item already marked as ready")
	ErrNotFound      = errors.New("not found")
	ErrBadRequest    = errors.New("bad request")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
)

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: status %d", e.Status)
	}
	return fmt.Sprintf("api: status %d: %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	switch {
	case e.Code == "no_active_order":
		return ErrNoActiveOrder
	case e.Status == http.StatusConflict:
		return ErrAlreadyReady
	case e.Status == http.StatusNotFound:
		return ErrNotFound
	case e.Status == http.StatusBadRequest:
		return ErrBadRequest
	case e.Status == http.StatusUnauthorized:
		return ErrUnauthorized
	case e.Status == http.StatusForbidden:
		return ErrForbidden
	}
	return nil
}

type MenuItem struct {
	Name         string              `json:"name"`
	AvailableQty int32               `json:"available_quantity"`
	Price        decimal.NullDecimal `json:"price"`
}

type Line struct {
	Name     string          `json:"name"`
	Quantity int32           `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Status   string          `json:"status"`
	Total    decimal.Decimal `json:"total"`
}

type Order struct {
	ID          uuid.UUID       `json:"id"`
	TableNumber int32           `json:"table_number"`
	Lines       []Line          `json:"lines"`
	Total       decimal.Decimal `json:"total"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type AdvanceResult struct {
	Message   string `json:"message"`
	Completed bool   `json:"completed"`
	Order     Order  `json:"order"`
}

type BillLine struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int32           `json:"quantity"`
	Total    decimal.Decimal `json:"total"`
}

type Bill struct {
	TableNumber int32           `json:"table_number"`
	Items       []BillLine      `json:"items"`
	Total       decimal.Decimal `json:"total"`
}

// SubmitLine is one line of a waiter submission.
type SubmitLine struct {
	Name     string `json:"name"`
	Quantity int32  `json:"quantity"`
}

// API is the subset of server operations the dashboards use.
// Satisfied by *APIClient.
type API interface {
	Menu(ctx context.Context) ([]MenuItem, error)
	Orders(ctx context.Context) ([]Order, error)
	Order(ctx context.Context, id uuid.UUID) (Order, error)
	Submit(ctx context.Context, table int32, lines []SubmitLine) error
	MarkReady(ctx context.Context, orderID uuid.UUID, itemName string) (AdvanceResult, error)
	Bill(ctx context.Context, table int32) (Bill, error)
}

// APIClient talks to the REST side of the server with a bearer token.
type APIClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewAPIClient(baseURL, token string, httpClient *http.Client) *APIClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    httpClient,
	}
}

func (c *APIClient) Menu(ctx context.Context) ([]MenuItem, error) {
	var items []MenuItem
	if err := c.do(ctx, http.MethodGet, "/menu", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *APIClient) Orders(ctx context.Context) ([]Order, error) {
	var orders []Order
	if err := c.do(ctx, http.MethodGet, "/orders", nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (c *APIClient) Order(ctx context.Context, id uuid.UUID) (Order, error) {
	var o Order
	if err := c.do(ctx, http.MethodGet, "/orders/"+id.String(), nil, &o); err != nil {
		return Order{}, err
	}
	return o, nil
}

func (c *APIClient) Submit(ctx context.Context, table int32, lines []SubmitLine) error {
	body := struct {
		TableNumber int32        `json:"table_number"`
		Lines       []SubmitLine `json:"lines"`
	}{table, lines}
	return c.do(ctx, http.MethodPost, "/orders", body, nil)
}

func (c *APIClient) MarkReady(ctx context.Context, orderID uuid.UUID, itemName string) (AdvanceResult, error) {
	var res AdvanceResult
	path := "/orders/" + orderID.String() + "/items/" + url.PathEscape(itemName) + "/ready"
	if err := c.do(ctx, http.MethodPut, path, nil, &res); err != nil {
		return AdvanceResult{}, err
	}
	return res, nil
}

func (c *APIClient) Bill(ctx context.Context, table int32) (Bill, error) {
	var b Bill
	path := "/tables/" + strconv.FormatInt(int64(table), 10) + "/bill"
	if err := c.do(ctx, http.MethodGet, path, nil, &b); err != nil {
		return Bill{}, err
	}
	return b, nil
}

func (c *APIClient) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return &APIError{Status: resp.StatusCode, Code: e.Code, Message: e.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
