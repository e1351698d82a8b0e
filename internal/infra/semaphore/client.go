package semaphore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/rodge1109/restaurantordering/internal/config"
	"github.com/rodge1109/restaurantordering/internal/domain"
)

type Client struct {
	cfg        config.SMSConfig
	httpClient *http.Client
	log        *slog.Logger
}

func NewClient(cfg config.SMSConfig, log *slog.Logger) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        log,
	}
}

// Send delivers one message. It never retries and never returns an error:
// every failure, including a disabled or unconfigured gateway, is reported in
// the result.
func (c *Client) Send(ctx context.Context, phoneRaw, message string) domain.NotificationResult {
	if !c.cfg.Enabled {
		c.log.Info("sms disabled, message not sent")
		return domain.NotificationResult{Error: "SMS disabled"}
	}
	if !c.cfg.Configured() {
		c.log.Warn("sms api key not configured", "keyLength", len(c.cfg.APIKey))
		return domain.NotificationResult{Error: "API key not configured"}
	}

	number := NormalizePhone(phoneRaw, c.cfg.CountryCode)
	if number == "" {
		return domain.NotificationResult{Error: "phone number is empty"}
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	form := url.Values{}
	form.Set("apikey", c.cfg.APIKey)
	form.Set("number", number)
	form.Set("message", message)
	form.Set("sendername", c.cfg.SenderName)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(c.cfg.BaseURL, "/")+"/messages", strings.NewReader(form.Encode()))
	if err != nil {
		return c.fail(number, err.Error())
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.fail(number, (&domain.GatewayError{Gateway: domain.GatewaySemaphore, Err: err}).Error())
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return c.fail(number, err.Error())
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.fail(number, fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(raw)))
	}

	result := interpretResponse(raw)
	if result.Success {
		c.log.Info("sms sent", "number", number, "messageId", result.MessageID)
	} else {
		c.log.Warn("sms rejected by provider", "number", number, "response", result.Error)
	}
	return result
}

func (c *Client) fail(number, reason string) domain.NotificationResult {
	c.log.Warn("sms send failed", "number", number, "err", reason)
	return domain.NotificationResult{Error: reason}
}

// interpretResponse is deliberately tolerant: any well-formed payload that is
// not an explicit error counts as accepted.
func interpretResponse(raw []byte) domain.NotificationResult {
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return domain.NotificationResult{Error: "unreadable provider response: " + string(raw)}
	}
	text := string(raw)

	switch v := payload.(type) {
	case []any:
		if len(v) > 0 {
			if first, ok := v[0].(map[string]any); ok {
				if id := messageID(first); id != "" {
					return domain.NotificationResult{Success: true, MessageID: id, Response: text}
				}
			}
		}
	case map[string]any:
		if id := messageID(v); id != "" {
			return domain.NotificationResult{Success: true, MessageID: id, Response: text}
		}
		if _, hasErr := v["error"]; hasErr {
			return domain.NotificationResult{Error: text}
		}
		if status, _ := v["status"].(string); strings.EqualFold(status, "failed") {
			return domain.NotificationResult{Error: text}
		}
	}
	return domain.NotificationResult{Success: true, Response: text}
}

func messageID(m map[string]any) string {
	switch id := m["message_id"].(type) {
	case string:
		return id
	case float64:
		return fmt.Sprintf("%.0f", id)
	}
	return ""
}
