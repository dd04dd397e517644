package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"shopfront/internal/config"
	"shopfront/internal/model"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
)

// StatusError is a non-2xx response from the gateway.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gateway responded %d: %s", e.StatusCode, e.Body)
}

// retryable reports whether another attempt may succeed.
func (e *StatusError) retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

type invoiceRequest struct {
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Description string            `json:"description"`
	CallbackURL string            `json:"callback_url,omitempty"`
	SuccessURL  string            `json:"success_url,omitempty"`
	Metadata    map[string]string `json:"metadata"`
}

// Client creates invoices on the hosted payment gateway.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	apiKey        string
	currency      string
	callbackURL   string
	successURL    string
	timeout       time.Duration
	maxRetries    int
	retryInterval time.Duration
	tripAfter     uint32
	openFor       time.Duration
	breaker       *gobreaker.CircuitBreaker[*model.Invoice]
	logger        zerolog.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetryInterval sets the first backoff interval.
func WithRetryInterval(d time.Duration) Option {
	return func(c *Client) { c.retryInterval = d }
}

// WithBreaker sets how many consecutive failed calls open the breaker and how long it stays open.
func WithBreaker(tripAfter uint32, openFor time.Duration) Option {
	return func(c *Client) {
		c.tripAfter = tripAfter
		c.openFor = openFor
	}
}

// NewClient creates a gateway client from configuration.
func NewClient(cfg config.PaymentConfig, logger zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		httpClient:    &http.Client{},
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:        cfg.APIKey,
		currency:      cfg.Currency,
		callbackURL:   cfg.CallbackURL,
		successURL:    cfg.SuccessURL,
		timeout:       cfg.Timeout,
		maxRetries:    cfg.MaxRetries,
		retryInterval: 200 * time.Millisecond,
		tripAfter:     5,
		openFor:       30 * time.Second,
		logger:        logger.With().Str("component", "payment").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.breaker = gobreaker.NewCircuitBreaker[*model.Invoice](gobreaker.Settings{
		Name:    "payment-gateway",
		Timeout: c.openFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= c.tripAfter
		},
		IsSuccessful: func(err error) bool {
			var se *StatusError
			// 4xx responses do not count against the gateway.
			return err == nil || (errors.As(err, &se) && !se.retryable())
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})

	return c
}

// CreateInvoice requests an invoice for the order's total, in minor currency units.
func (c *Client) CreateInvoice(ctx context.Context, order *model.Order) (*model.Invoice, error) {
	req := invoiceRequest{
		Amount:      minorUnits(order.TotalOrderPrice),
		Currency:    c.currency,
		Description: fmt.Sprintf("Order %s", order.ID),
		CallbackURL: c.callbackURL,
		SuccessURL:  c.successURL,
		Metadata:    map[string]string{"orderId": order.ID.String()},
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode invoice request: %w", err)
	}

	invoice, err := c.breaker.Execute(func() (*model.Invoice, error) {
		return c.createWithRetry(ctx, body)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			c.logger.Warn().Str("order_id", order.ID.String()).Msg("payment gateway circuit open")
			return nil, model.NewExternalServiceError("payment gateway is unavailable", err)
		}
		c.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to create invoice")
		return nil, model.NewExternalServiceError("failed to create invoice", err)
	}

	c.logger.Info().
		Str("order_id", order.ID.String()).
		Str("invoice_id", invoice.ID).
		Int64("amount", invoice.Amount).
		Msg("invoice created")

	return invoice, nil
}

func (c *Client) createWithRetry(ctx context.Context, body []byte) (*model.Invoice, error) {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.retryInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(c.maxRetries)), ctx)

	attempt := 0
	op := func() (*model.Invoice, error) {
		attempt++
		invoice, err := c.post(ctx, body)
		if err == nil {
			return invoice, nil
		}

		var (
			se *StatusError
			pe *backoff.PermanentError
		)
		if errors.As(err, &pe) {
			return nil, err
		}
		if errors.As(err, &se) && !se.retryable() {
			return nil, backoff.Permanent(err)
		}
		if ctx.Err() != nil {
			return nil, backoff.Permanent(err)
		}

		c.logger.Warn().Err(err).Int("attempt", attempt).Msg("invoice request failed, retrying")
		return nil, err
	}

	return backoff.RetryWithData(op, policy)
}

// post performs one attempt bounded by the per-attempt timeout.
func (c *Client) post(ctx context.Context, body []byte) (*model.Invoice, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, c.baseURL+"/invoices", bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.apiKey, "")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("invoice request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read invoice response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(payload))}
	}

	var invoice model.Invoice
	if err := json.Unmarshal(payload, &invoice); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to decode invoice: %w", err))
	}
	if invoice.ID == "" {
		return nil, backoff.Permanent(errors.New("gateway returned an invoice without id"))
	}

	return &invoice, nil
}

// minorUnits converts a price to the smallest currency unit (price x 100).
func minorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
