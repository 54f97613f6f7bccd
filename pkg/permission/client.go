// Package permission asks the order-permission backend whether a product
// may be bought.
package permission

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/devicelab-dev/cartpilot/pkg/session"
)

// ErrDenied is returned when the backend answers but refuses the order.
var ErrDenied = errors.New("order not permitted")

// Request is the body of an order check.
type Request struct {
	UserName     string  `json:"user_name"`
	ShopName     string  `json:"shop_name"`
	ProductURL   string  `json:"product_url"`
	ProductPrice float64 `json:"product_price"`
	ProductSKU   string  `json:"product_sku"`
}

// Result is the decoded answer.
type Result struct {
	Success  bool
	CanOrder bool
	Message  string
	TaskID   string
	TaskUUID string
}

// Options configures a Client.
type Options struct {
	URL        string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// Client posts order checks with a fixed-delay retry.
type Client struct {
	http  *http.Client
	opts  Options
	sleep session.Sleeper
	log   zerolog.Logger
}

// NewClient returns a client. An empty URL yields a client whose checks
// always pass, for setups without a backend.
func NewClient(opts Options, sleep session.Sleeper, log zerolog.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &Client{
		http:  &http.Client{Timeout: opts.Timeout},
		opts:  opts,
		sleep: sleep,
		log:   log,
	}
}

// Enabled reports whether a backend URL is configured.
func (c *Client) Enabled() bool { return c.opts.URL != "" }

// Check asks the backend about req. Transport failures and 5xx answers are
// retried up to MaxRetries times; a decoded refusal is returned at once as
// ErrDenied.
func (c *Client) Check(ctx context.Context, req Request) (Result, error) {
	if !c.Enabled() {
		return Result{Success: true, CanOrder: true, Message: "permission check disabled"}, nil
	}

	var lastErr error
	for attempt := 0; attempt <= c.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			c.log.Debug().Int("attempt", attempt+1).Err(lastErr).Msg("retrying order check")
			if !c.sleep.Sleep(ctx, c.opts.RetryDelay) {
				return Result{}, session.ErrStopped
			}
		}
		res, err := c.post(ctx, req)
		if err == nil {
			if !res.CanOrder {
				c.log.Info().Str("shop", req.ShopName).Str("message", res.Message).Msg("order denied")
				return res, fmt.Errorf("%w: %s", ErrDenied, res.Message)
			}
			c.log.Info().Str("shop", req.ShopName).Str("task", res.TaskID).Msg("order permitted")
			return res, nil
		}
		lastErr = err
		if !retryable(err) {
			break
		}
	}
	return Result{}, fmt.Errorf("order check: %w", lastErr)
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.code, e.body)
}

func retryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code >= 500 || se.code == http.StatusTooManyRequests
	}
	return true
}

func (c *Client) post(ctx context.Context, body Request) (Result, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return Result{}, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.URL, bytes.NewReader(data))
	if err != nil {
		return Result{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return Result{}, &statusError{code: resp.StatusCode, body: string(respBody)}
	}
	return parseResult(respBody)
}

// parseResult decodes {success, message, task_id, task_uuid}. Backends that
// also send can_order are honoured; otherwise success decides.
func parseResult(body []byte) (Result, error) {
	if !gjson.ValidBytes(body) {
		return Result{}, fmt.Errorf("invalid json response: %.100s", body)
	}
	r := gjson.ParseBytes(body)
	res := Result{
		Success:  r.Get("success").Bool(),
		Message:  r.Get("message").String(),
		TaskID:   r.Get("task_id").String(),
		TaskUUID: r.Get("task_uuid").String(),
	}
	res.CanOrder = res.Success
	if v := r.Get("can_order"); v.Exists() {
		res.CanOrder = res.Success && v.Bool()
	}
	return res, nil
}
