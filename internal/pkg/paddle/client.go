package paddle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/abroun/paddlesync/internal/pkg/env"
)

const (
	defaultVendorsAPIBaseURL = "https://vendors.paddle.com/api/2.0"
	sandboxVendorsAPIBaseURL = "https://sandbox-vendors.paddle.com/api/2.0"

	// APITimeFormat is the timestamp format the vendors API accepts for
	// query_tail/query_head and returns in event fields.
	APITimeFormat = "2006-01-02 15:04:05"
)

// Client talks to the Paddle (classic) vendors API. All endpoints are
// form-encoded POSTs authenticated with vendor_id + vendor_auth_code.
type Client struct {
	VendorID string
	APIKey   string

	BaseURL string

	HTTPClient *http.Client
}

// PlanData is a subscription plan as returned by subscription/plans.
// Price maps are keyed by currency code with decimal-string amounts.
type PlanData struct {
	ID             int               `json:"id"`
	Name           string            `json:"name"`
	BillingType    string            `json:"billing_type"`
	BillingPeriod  int               `json:"billing_period"`
	TrialDays      int               `json:"trial_days"`
	InitialPrice   map[string]string `json:"initial_price"`
	RecurringPrice map[string]string `json:"recurring_price"`
}

// ProductData is a one-time product as returned by product/get_products.
// The API also returns a "screenshots" list, which is not modeled.
type ProductData struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	BasePrice   float64  `json:"base_price"`
	SalePrice   *float64 `json:"sale_price"`
	Currency    string   `json:"currency"`
	Icon        string   `json:"icon"`
}

// HistoryEvent is one entry from alert/webhooks. Fields carries the original
// webhook payload; values are stringified so history events can be fed
// through the same path as live form-encoded webhooks.
type HistoryEvent struct {
	AlertName string
	Fields    map[string]string
}

func NewClientFromEnv() *Client {
	base := strings.TrimRight(env.GetEnv("PADDLE_API_BASE_URL", ""), "/")
	if base == "" {
		if env.GetEnv("PADDLE_SANDBOX", "false") == "true" {
			base = sandboxVendorsAPIBaseURL
		} else {
			base = defaultVendorsAPIBaseURL
		}
	}

	return &Client{
		VendorID: strings.TrimSpace(env.GetEnv("PADDLE_VENDOR_ID", "")),
		APIKey:   strings.TrimSpace(env.GetEnv("PADDLE_API_KEY", "")),
		BaseURL:  base,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ListPlans returns all subscription plans, or just one when planID is
// non-empty (the API filters server-side via the "plan" parameter).
func (c *Client) ListPlans(ctx context.Context, planID string) ([]PlanData, error) {
	form := url.Values{}
	if strings.TrimSpace(planID) != "" {
		form.Set("plan", strings.TrimSpace(planID))
	}

	var plans []PlanData
	if err := c.post(ctx, "/subscription/plans", form, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

// GetPlan fetches a single plan by id.
func (c *Client) GetPlan(ctx context.Context, planID string) (*PlanData, error) {
	plans, err := c.ListPlans(ctx, planID)
	if err != nil {
		return nil, err
	}
	if len(plans) == 0 {
		return nil, fmt.Errorf("paddle: plan %s not found", planID)
	}
	return &plans[0], nil
}

// ListProducts returns all one-time products.
func (c *Client) ListProducts(ctx context.Context) ([]ProductData, error) {
	var resp struct {
		Total    int           `json:"total"`
		Count    int           `json:"count"`
		Products []ProductData `json:"products"`
	}
	if err := c.post(ctx, "/product/get_products", url.Values{}, &resp); err != nil {
		return nil, err
	}
	return resp.Products, nil
}

// GetWebhookHistory returns one page of sent-alert history. Pages are
// 1-based; an empty data list marks the end.
func (c *Client) GetWebhookHistory(ctx context.Context, page, alertsPerPage int, queryTail, queryHead time.Time) ([]HistoryEvent, error) {
	form := url.Values{}
	form.Set("page", fmt.Sprintf("%d", page))
	form.Set("alerts_per_page", fmt.Sprintf("%d", alertsPerPage))
	form.Set("query_tail", queryTail.UTC().Format(APITimeFormat))
	form.Set("query_head", queryHead.UTC().Format(APITimeFormat))

	var resp struct {
		Data []struct {
			AlertName string                     `json:"alert_name"`
			Fields    map[string]json.RawMessage `json:"fields"`
		} `json:"data"`
	}
	if err := c.post(ctx, "/alert/webhooks", form, &resp); err != nil {
		return nil, err
	}

	events := make([]HistoryEvent, 0, len(resp.Data))
	for _, entry := range resp.Data {
		fields := make(map[string]string, len(entry.Fields))
		for key, raw := range entry.Fields {
			fields[key] = stringifyField(raw)
		}
		events = append(events, HistoryEvent{AlertName: entry.AlertName, Fields: fields})
	}
	return events, nil
}

func (c *Client) post(ctx context.Context, path string, form url.Values, out interface{}) error {
	if strings.TrimSpace(c.VendorID) == "" || strings.TrimSpace(c.APIKey) == "" {
		return errors.New("PADDLE_VENDOR_ID/PADDLE_API_KEY are not configured")
	}

	form.Set("vendor_id", c.VendorID)
	form.Set("vendor_auth_code", c.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := c.httpClient().Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 16<<20))
	if err != nil {
		return err
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("paddle: %s returned status %d", path, res.StatusCode)
	}

	var envelope struct {
		Success  bool            `json:"success"`
		Response json.RawMessage `json:"response"`
		Error    *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("paddle: invalid response from %s: %w", path, err)
	}
	if !envelope.Success {
		if envelope.Error != nil {
			return fmt.Errorf("paddle: %s failed: %s (code %d)", path, envelope.Error.Message, envelope.Error.Code)
		}
		return fmt.Errorf("paddle: %s failed without error detail", path)
	}

	if out == nil {
		return nil
	}
	return json.Unmarshal(envelope.Response, out)
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

// stringifyField flattens a history field value to the string form the same
// value would have had in a live form-encoded webhook.
func stringifyField(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return string(raw)
	}
	switch val := v.(type) {
	case json.Number:
		return val.String()
	case bool:
		if val {
			return "1"
		}
		return "0"
	case nil:
		return ""
	default:
		return string(raw)
	}
}
