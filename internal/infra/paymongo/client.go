package paymongo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rodge1109/restaurantordering/internal/config"
	"github.com/rodge1109/restaurantordering/internal/domain"
)

const (
	sourceTypeGCash = "gcash"
	currencyPHP     = "PHP"
	maxErrorBody    = 2048
)

type Client struct {
	cfg        config.PayMongoConfig
	httpClient *http.Client
	log        *slog.Logger
}

func NewClient(cfg config.PayMongoConfig, log *slog.Logger) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        log,
	}
}

type sourceRedirect struct {
	Success     string `json:"success,omitempty"`
	Failed      string `json:"failed,omitempty"`
	CheckoutURL string `json:"checkout_url,omitempty"`
}

type billing struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type sourceAttributes struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Type     string            `json:"type"`
	Status   string            `json:"status,omitempty"`
	Redirect sourceRedirect    `json:"redirect"`
	Billing  *billing          `json:"billing,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type sourceResource struct {
	ID         string           `json:"id,omitempty"`
	Type       string           `json:"type,omitempty"`
	Attributes sourceAttributes `json:"attributes"`
}

type sourceEnvelope struct {
	Data sourceResource `json:"data"`
}

// ToMinorUnits converts pesos to centavos, rounding half up.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

func FromMinorUnits(centavos int64) decimal.Decimal {
	return decimal.New(centavos, -2)
}

func (c *Client) CreateSource(ctx context.Context, req domain.SourceRequest) (*domain.PaymentSource, error) {
	amount := ToMinorUnits(req.Amount)
	if amount <= 0 {
		return nil, &domain.GatewayError{Gateway: domain.GatewayPayMongo, Err: errors.New("amount must be positive")}
	}

	attrs := sourceAttributes{
		Amount:   amount,
		Currency: currencyPHP,
		Type:     sourceTypeGCash,
		Redirect: sourceRedirect{
			Success: fmt.Sprintf(c.cfg.SuccessURL, req.OrderNumber),
			Failed:  fmt.Sprintf(c.cfg.FailedURL, req.OrderNumber),
		},
		Metadata: map[string]string{"order_number": req.OrderNumber},
	}
	if req.Name != "" || req.Email != "" || req.Phone != "" {
		attrs.Billing = &billing{Name: req.Name, Email: req.Email, Phone: req.Phone}
	}

	var out sourceEnvelope
	if err := c.do(ctx, http.MethodPost, "/sources", sourceEnvelope{Data: sourceResource{Attributes: attrs}}, &out); err != nil {
		c.log.Warn("paymongo create source failed", "orderNumber", req.OrderNumber, "err", err)
		return nil, err
	}

	c.log.Info("paymongo source created",
		"orderNumber", req.OrderNumber,
		"sourceId", out.Data.ID,
		"amount", amount)

	return toPaymentSource(out.Data), nil
}

func (c *Client) CheckStatus(ctx context.Context, sourceID string) (*domain.PaymentSource, error) {
	if !domain.ValidSourceID(sourceID) {
		return nil, &domain.GatewayError{Gateway: domain.GatewayPayMongo, Err: fmt.Errorf("malformed source id %q", sourceID)}
	}

	var out sourceEnvelope
	if err := c.do(ctx, http.MethodGet, "/sources/"+url.PathEscape(sourceID), nil, &out); err != nil {
		return nil, err
	}
	return toPaymentSource(out.Data), nil
}

func toPaymentSource(r sourceResource) *domain.PaymentSource {
	return &domain.PaymentSource{
		ID:          r.ID,
		Amount:      FromMinorUnits(r.Attributes.Amount),
		Currency:    r.Attributes.Currency,
		CheckoutURL: r.Attributes.Redirect.CheckoutURL,
		Status:      domain.SourceStatus(r.Attributes.Status),
		OrderNumber: r.Attributes.Metadata["order_number"],
	}
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return &domain.GatewayError{Gateway: domain.GatewayPayMongo, Err: err}
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.cfg.BaseURL, "/")+path, body)
	if err != nil {
		return &domain.GatewayError{Gateway: domain.GatewayPayMongo, Err: err}
	}
	req.SetBasicAuth(c.cfg.SecretKey, "")
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &domain.GatewayError{Gateway: domain.GatewayPayMongo, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &domain.GatewayError{Gateway: domain.GatewayPayMongo, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if len(raw) > maxErrorBody {
			raw = raw[:maxErrorBody]
		}
		return &domain.GatewayError{Gateway: domain.GatewayPayMongo, StatusCode: resp.StatusCode, Body: string(raw)}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return &domain.GatewayError{Gateway: domain.GatewayPayMongo, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
