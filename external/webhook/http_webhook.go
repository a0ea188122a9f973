package webhook

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/foxseedlab/brackman/internal/webhook"
	"github.com/goccy/go-json"
)

const sendTimeout = 10 * time.Second

type HTTPSender struct {
	webhookURL string
	client     *http.Client
}

// NewHTTPSender returns a sender that does nothing when webhookURL is empty.
func NewHTTPSender(webhookURL string) *HTTPSender {
	return &HTTPSender{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: sendTimeout},
	}
}

func (s *HTTPSender) SendSortReport(ctx context.Context, report webhook.SortReport) error {
	if s.webhookURL == "" {
		return nil
	}

	b, err := json.Marshal(report)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if !isHTTPSuccessStatus(resp.StatusCode) {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func isHTTPSuccessStatus(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}

var _ webhook.Sender = (*HTTPSender)(nil)
