package delivery

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/contex/internal/common"
	"github.com/ternarybob/contex/internal/contexerr"
	"github.com/ternarybob/contex/internal/models"
)

const signatureHeader = "X-Contex-Signature"

// WebhookSink POSTs a signed JSON payload to an agent's registered URL,
// retrying transient failures with exponential backoff. Grounded on the
// teacher's HTTP-client-with-timeout style (internal/services/embeddings
// /embedding_service.go) generalized to add signing and retries per §4.7
// and the mandatory-signing redesign in SPEC_FULL.md §D.
type WebhookSink struct {
	logger     arbor.ILogger
	client     *http.Client
	retries    int
	backoffBase time.Duration
}

// NewWebhookSink builds a webhook sink. backoffBase is the first retry
// delay; subsequent delays scale by 4x (1s/4s/16s for a 1s base), matching
// §4.7.
func NewWebhookSink(timeout time.Duration, retries int, backoffBase time.Duration, logger arbor.ILogger) *WebhookSink {
	return &WebhookSink{
		logger:      logger,
		client:      &http.Client{Timeout: timeout},
		retries:     retries,
		backoffBase: backoffBase,
	}
}

// Deliver signs event's payload and POSTs it, retrying on network errors
// and 5xx responses up to s.retries attempts. A 4xx response is terminal:
// it is not retried and is returned as contexerr.KindDeliveryTerminal. The
// Dispatcher logs a returned error and moves on to the agent's next event.
func (s *WebhookSink) Deliver(ctx context.Context, agent *models.Agent, event models.Event) error {
	body, err := json.Marshal(event.Payload)
	if err != nil {
		return contexerr.Wrap(contexerr.KindDeliveryTerminal, "failed to marshal webhook payload", err)
	}

	sig := sign(agent.WebhookSecret, body)
	deliveryID := common.NewDeliveryID()

	var lastErr error
	delay := s.backoffBase
	attempts := s.retries
	if attempts <= 0 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		err := s.attempt(ctx, agent.WebhookURL, body, sig, deliveryID)
		if err == nil {
			return nil
		}
		if terminal, ok := err.(*contexerr.Error); ok && terminal.Kind == contexerr.KindDeliveryTerminal {
			return terminal
		}
		lastErr = err

		if attempt == attempts {
			break
		}
		s.logger.Warn().Err(err).Str("delivery_id", deliveryID).Int("attempt", attempt).Msg("webhook delivery failed, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 4
	}

	return contexerr.Wrap(contexerr.KindDeliveryTerminal, fmt.Sprintf("webhook delivery exhausted %d attempts", attempts), lastErr)
}

func (s *WebhookSink) attempt(ctx context.Context, url string, body []byte, sig, deliveryID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return contexerr.Wrap(contexerr.KindDeliveryTerminal, "failed to build webhook request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(signatureHeader, sig)
	req.Header.Set("X-Contex-Delivery-Id", deliveryID)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return contexerr.DeliveryTerminal("webhook endpoint returned %d", resp.StatusCode)
	default:
		return fmt.Errorf("webhook endpoint returned %d", resp.StatusCode)
	}
}

// sign computes the HMAC-SHA256 of body under secret, hex-encoded, sent in
// the X-Contex-Signature header for the receiver to verify (§6).
func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
