// Package report delivers finished intelligence payloads to the external
// evaluation endpoint. Delivery failures are the caller's to retry; the
// session store's idempotent MarkReported makes retries safe.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/decoylab/sundew/internal/domain"
)

const deliveryTimeout = 10 * time.Second

// Reporter posts reports to a fixed callback URL.
type Reporter struct {
	url    string
	client *http.Client
}

// New creates a Reporter for the given callback URL.
func New(url string) *Reporter {
	return &Reporter{
		url:    url,
		client: &http.Client{Timeout: deliveryTimeout},
	}
}

// Deliver posts the report as JSON. Any non-2xx response is an error. Each
// attempt carries a fresh delivery ID for log correlation on both ends.
func (r *Reporter) Deliver(ctx context.Context, rep domain.Report) error {
	body, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("report.Reporter.Deliver: marshal: %w", err)
	}

	deliveryID := uuid.New()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("report.Reporter.Deliver: request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Delivery-ID", deliveryID.String())

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("report.Reporter.Deliver: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("report.Reporter.Deliver: unexpected status %d", resp.StatusCode)
	}

	log.Info().
		Str("session_id", rep.SessionID).
		Str("delivery_id", deliveryID.String()).
		Int("messages", rep.TotalMessagesExchanged).
		Int("artifacts", rep.ExtractedIntelligence.Total()).
		Msg("report delivered")

	return nil
}
