// Package contact delivers and records the contact details collected by the
// chat widget.
package contact

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/ashureev/chameleon/internal/domain"
)

const maxErrorBody = 4 << 10

// HTTPSender posts contact records to a form endpoint such as Formspree.
type HTTPSender struct {
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

// NewHTTPSender returns a sender for endpoint. A zero timeout means 10s.
func NewHTTPSender(endpoint string, timeout time.Duration, logger *slog.Logger) *HTTPSender {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPSender{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

type formPayload struct {
	Name    string  `json:"name"`
	Company *string `json:"company,omitempty"`
	Email   string  `json:"email"`
	Phone   *string `json:"phone,omitempty"`
	Subject string  `json:"_subject"`
}

// SendContact implements chat.ContactSender. A non-2xx response reports
// false; a transport failure returns an error.
func (s *HTTPSender) SendContact(ctx context.Context, info domain.ContactInfo) (bool, error) {
	body, err := json.Marshal(formPayload{
		Name:    info.Name,
		Company: info.Company,
		Email:   info.Email,
		Phone:   info.Phone,
		Subject: "New Lead from Chatbot: " + info.Name,
	})
	if err != nil {
		return false, fmt.Errorf("encode contact form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("build contact request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("send contact form: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			s.logger.Warn("failed to close contact response body", "error", closeErr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		s.logger.Warn("Contact form rejected", "status", resp.StatusCode, "body", string(detail))
		return false, nil
	}

	s.logger.Info("Contact form submitted")
	return true, nil
}
