package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/bazaarhq/bazaar/internal/config"
	apperrors "github.com/bazaarhq/bazaar/internal/errors"
	"github.com/bazaarhq/bazaar/pkg/resilience"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	requestPath   = "/pg/v4/payment/request.json"
	verifyPath    = "/pg/v4/payment/verify.json"
	startPayPath  = "/pg/StartPay/"
	maxReplyBytes = 64 << 10

	codeSuccess         = 100
	codeAlreadyVerified = 101
)

var _ Gateway = (*Client)(nil)

// Client calls the gateway over HTTP. Calls are bounded by the configured timeout and
// guarded by a circuit breaker that only counts unavailability, not rejections.
type Client struct {
	cfg     config.GatewayConfig
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
}

// NewClient creates a gateway client. A nil httpClient selects a traced client with the configured timeout.
func NewClient(cfg config.GatewayConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	return &Client{
		cfg:     cfg,
		http:    httpClient,
		breaker: resilience.NewCircuitBreaker[[]byte]("payment-gateway", cfg.CircuitBreaker, countsAsSuccess),
	}
}

func countsAsSuccess(err error) bool {
	var upstream *apperrors.UpstreamError
	return err == nil || errors.As(err, &upstream)
}

type requestBody struct {
	MerchantID  string          `json:"merchant_id"`
	Amount      int64           `json:"amount"`
	CallbackURL string          `json:"callback_url"`
	Description string          `json:"description"`
	Metadata    requestMetadata `json:"metadata"`
}

type requestMetadata struct {
	Email   string `json:"email,omitempty"`
	Mobile  string `json:"mobile,omitempty"`
	OrderID string `json:"order_id"`
}

type verifyBody struct {
	MerchantID string `json:"merchant_id"`
	Amount     int64  `json:"amount"`
	Authority  string `json:"authority"`
}

// envelope is the gateway reply. Whichever of data and errors is unused comes back as an empty array.
type envelope struct {
	Data   json.RawMessage `json:"data"`
	Errors json.RawMessage `json:"errors"`
}

type replyData struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	Authority string `json:"authority"`
	RefID     int64  `json:"ref_id"`
	CardPan   string `json:"card_pan"`
	Fee       int64  `json:"fee"`
}

type replyError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Request asks the gateway for a payment authority.
func (c *Client) Request(ctx context.Context, req PaymentRequest) (*Session, error) {
	body := requestBody{
		MerchantID:  c.cfg.MerchantID,
		Amount:      req.Amount,
		CallbackURL: c.cfg.CallbackURL,
		Description: req.Description,
		Metadata: requestMetadata{
			Email:   req.Email,
			Mobile:  req.Mobile,
			OrderID: req.OrderID.String(),
		},
	}
	data, err := c.call(ctx, requestPath, body)
	if err != nil {
		return nil, err
	}
	if data.Code != codeSuccess || data.Authority == "" {
		return nil, &apperrors.UpstreamError{Code: data.Code, Message: data.Message}
	}
	return &Session{
		Authority:   data.Authority,
		RedirectURL: strings.TrimRight(c.cfg.StartPayURL, "/") + startPayPath + data.Authority,
	}, nil
}

// Verify confirms a payment the buyer completed on the gateway.
func (c *Client) Verify(ctx context.Context, authority string, amount int64) (*Verification, error) {
	body := verifyBody{
		MerchantID: c.cfg.MerchantID,
		Amount:     amount,
		Authority:  authority,
	}
	data, err := c.call(ctx, verifyPath, body)
	if err != nil {
		return nil, err
	}
	if data.Code != codeSuccess && data.Code != codeAlreadyVerified {
		return nil, &apperrors.UpstreamError{Code: data.Code, Message: data.Message}
	}
	return &Verification{
		Code:        data.Code,
		ReferenceID: data.RefID,
		CardPan:     data.CardPan,
		Fee:         data.Fee,
	}, nil
}

func (c *Client) call(ctx context.Context, path string, payload any) (*replyData, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode gateway request: %w", err)
	}

	reply, err := c.breaker.Execute(func() ([]byte, error) {
		return c.post(ctx, path, raw)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %w", apperrors.ErrGatewayUnavailable, err)
		}
		return nil, err
	}
	return decodeReply(reply)
}

// post sends one request. Rejections are returned as *UpstreamError so the breaker can tell them apart.
func (c *Client) post(ctx context.Context, path string, body []byte) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.cfg.BaseURL, "/")+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build gateway request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrGatewayUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	reply, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading reply: %w", apperrors.ErrGatewayUnavailable, err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%w: gateway answered %d", apperrors.ErrGatewayUnavailable, resp.StatusCode)
	}
	if rejection := rejectionOf(reply); rejection != nil {
		return nil, rejection
	}
	return reply, nil
}

func rejectionOf(reply []byte) *apperrors.UpstreamError {
	var env envelope
	if err := json.Unmarshal(reply, &env); err != nil || !isObject(env.Errors) {
		return nil
	}
	var e replyError
	if err := json.Unmarshal(env.Errors, &e); err != nil || e.Code == 0 {
		return nil
	}
	return &apperrors.UpstreamError{Code: e.Code, Message: e.Message}
}

func decodeReply(reply []byte) (*replyData, error) {
	var env envelope
	if err := json.Unmarshal(reply, &env); err != nil {
		return nil, fmt.Errorf("%w: malformed reply: %w", apperrors.ErrGatewayUnavailable, err)
	}
	if !isObject(env.Data) {
		return nil, fmt.Errorf("%w: reply carries no data", apperrors.ErrGatewayUnavailable)
	}
	var data replyData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("%w: malformed reply data: %w", apperrors.ErrGatewayUnavailable, err)
	}
	return &data, nil
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}
