package payout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/zaqqye/scholarship_backend/internal/coin"
)

// LogSender records instructions in the log and reports them as sent. It is
// the default when no payment endpoint is configured.
type LogSender struct {
	Logger *slog.Logger
}

func (s LogSender) Send(_ context.Context, inst Instruction) (string, error) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("bank send",
		slog.String("to_address", inst.Recipient),
		slog.String("amount", inst.Amount.String()),
	)
	return "log-" + strconv.FormatUint(uint64(inst.ID), 10), nil
}

// WebhookSender posts each instruction as JSON to a payment endpoint. The
// instruction ID is sent as the Idempotency-Key header.
type WebhookSender struct {
	URL    string
	Client *http.Client
}

func NewWebhookSender(url string) *WebhookSender {
	return &WebhookSender{
		URL:    strings.TrimSpace(url),
		Client: &http.Client{Timeout: 15 * time.Second},
	}
}

type webhookRequest struct {
	ID        uint        `json:"id"`
	ToAddress string      `json:"to_address"`
	Amount    []coin.Coin `json:"amount"`
}

type webhookResponse struct {
	Reference string `json:"reference"`
}

func (s *WebhookSender) Send(ctx context.Context, inst Instruction) (string, error) {
	body, err := json.Marshal(webhookRequest{
		ID:        inst.ID,
		ToAddress: inst.Recipient,
		Amount:    []coin.Coin{inst.Amount},
	})
	if err != nil {
		return "", fmt.Errorf("encode payment: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build payment request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", strconv.FormatUint(uint64(inst.ID), 10))

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("post payment: %w", err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("payment endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	var out webhookResponse
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &out); err != nil {
			return "", fmt.Errorf("decode payment response: %w", err)
		}
	}
	if out.Reference == "" {
		out.Reference = "webhook-" + strconv.FormatUint(uint64(inst.ID), 10)
	}
	return out.Reference, nil
}
