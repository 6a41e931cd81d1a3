package api

// BACKEND API CLIENT

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

// Package is one sellable eSIM product as the backend exposes it.
type Package struct {
	ID            string  `json:"_id"`
	Name          string  `json:"name"`
	Region        string  `json:"region"`
	DataLimitGB   float64 `json:"data_limit_gb"`
	DurationDays  int     `json:"duration_days"`
	WholesaleCost float64 `json:"wholesale_cost"`
	RetailPrice   float64 `json:"retail_price"`
	IsLive        bool    `json:"is_live"`
	LastSync      string  `json:"last_sync,omitempty"`
}

// InventoryRequest is the order-intake payload assembled by the wizard.
type InventoryRequest struct {
	TotalTokens   int             `json:"total_tokens"`
	TotalAmount   float64         `json:"total_amount"`
	DiscountLabel string          `json:"discount_label,omitempty"`
	Packages      []InventoryLine `json:"packages"`
	Requester     Requester       `json:"requester"`
}

type InventoryLine struct {
	PackageID string  `json:"package_id"`
	Name      string  `json:"name"`
	Region    string  `json:"region"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	LineTotal float64 `json:"line_total"`
}

// Requester is the best-effort identity attached to a submitted request.
type Requester struct {
	ChatID   int64  `json:"chat_id"`
	Username string `json:"username,omitempty"`
	Company  string `json:"company,omitempty"`
}

type Notification struct {
	ID        string `json:"_id"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Type      string `json:"type"`
	CreatedAt string `json:"created_at"`
}

// Error is a backend rejection carrying the server's own message, which
// is shown to the user verbatim where available.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("backend returned status %d", e.StatusCode)
}

func NewClient(baseURL, token string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// GetPackages fetches the package catalog. With admin=true the backend
// includes draft packages; partners only ever see live ones. An empty
// catalog is a valid response, not an error.
func (c *Client) GetPackages(ctx context.Context, admin bool) ([]Package, error) {
	endpoint := fmt.Sprintf("%s/packages", c.baseURL)
	if admin {
		endpoint += "?admin=true"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.asError(resp)
	}

	var result struct {
		Packages []Package `json:"packages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return result.Packages, nil
}

// SubmitInventoryRequest posts a completed inventory request to the
// order-intake endpoint and returns the backend's request ID.
func (c *Client) SubmitInventoryRequest(ctx context.Context, order InventoryRequest) (string, error) {
	body, err := json.Marshal(order)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		fmt.Sprintf("%s/inventory/requests", c.baseURL),
		bytes.NewReader(body),
	)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", c.asError(resp)
	}

	var result struct {
		RequestID string `json:"request_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	return result.RequestID, nil
}

// UpdatePackageStatus flips a package between live and draft. Callers
// must only reflect the new flag after a nil return.
func (c *Client) UpdatePackageStatus(ctx context.Context, packageID string, isLive bool) error {
	payload := map[string]bool{"is_live": isLive}
	return c.patch(ctx, fmt.Sprintf("/packages/%s/status", url.PathEscape(packageID)), payload)
}

// UpdatePackagePrice sets a package's retail price. Same ack-first rule
// as UpdatePackageStatus.
func (c *Client) UpdatePackagePrice(ctx context.Context, packageID string, retailPrice float64) error {
	payload := map[string]float64{"retail_price": retailPrice}
	return c.patch(ctx, fmt.Sprintf("/packages/%s/price", url.PathEscape(packageID)), payload)
}

// GetVendorBalance returns the remaining vendor account balance.
func (c *Client) GetVendorBalance(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodGet,
		fmt.Sprintf("%s/vendor/balance", c.baseURL),
		nil,
	)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, c.asError(resp)
	}

	var result struct {
		Balance float64 `json:"balance"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("decode response: %w", err)
	}

	return result.Balance, nil
}

// SyncVendor asks the backend to refresh its catalog from the vendor.
func (c *Client) SyncVendor(ctx context.Context) error {
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		fmt.Sprintf("%s/vendor/sync", c.baseURL),
		nil,
	)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return c.asError(resp)
	}

	return nil
}

// GetNotifications fetches backend notifications created after the given
// cursor. An empty cursor returns the most recent page.
func (c *Client) GetNotifications(ctx context.Context, after string) ([]Notification, error) {
	endpoint := fmt.Sprintf("%s/notifications", c.baseURL)
	if after != "" {
		endpoint += "?after=" + url.QueryEscape(after)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.asError(resp)
	}

	var result struct {
		Notifications []Notification `json:"notifications"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return result.Notifications, nil
}

func (c *Client) patch(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPatch,
		c.baseURL+path,
		bytes.NewReader(body),
	)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return c.asError(resp)
	}

	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")
	if req.Method == http.MethodPost || req.Method == http.MethodPatch {
		req.Header.Set("Content-Type", "application/json")
	}
}

// asError drains the response body looking for the backend's message
// field so rejections can be surfaced to the user verbatim.
func (c *Client) asError(resp *http.Response) error {
	apiErr := &Error{StatusCode: resp.StatusCode}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return apiErr
	}

	var parsed struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &parsed); err == nil && parsed.Message != "" {
		apiErr.Message = parsed.Message
	}

	c.logger.Warn("Backend request failed",
		zap.Int("status", resp.StatusCode),
		zap.String("message", apiErr.Message))

	return apiErr
}
