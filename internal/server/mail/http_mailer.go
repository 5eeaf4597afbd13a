package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// HTTPMailer delivers mail through a SendGrid-compatible v3 mail-send API.
type HTTPMailer struct {
	endpoint  string
	apiKey    string
	fromEmail string
	fromName  string
	client    *http.Client
}

// NewHTTPMailer constructs a mailer posting to the given endpoint.
func NewHTTPMailer(endpoint, apiKey, fromEmail, fromName string) *HTTPMailer {
	return &HTTPMailer{
		endpoint:  endpoint,
		apiKey:    apiKey,
		fromEmail: fromEmail,
		fromName:  fromName,
		client:    http.DefaultClient,
	}
}

func (m *HTTPMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	payload := mailPayload{
		Personalizations: []personalization{{
			To: []address{{Email: to}},
		}},
		From:    address{Email: m.fromEmail, Name: m.fromName},
		Subject: subject,
		Content: []content{{Type: "text/html", Value: htmlBody}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal mail payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create mail request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("mail request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("mail API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}

// SendGrid-compatible v3 mail-send payload types.
type mailPayload struct {
	Personalizations []personalization `json:"personalizations"`
	From             address           `json:"from"`
	Subject          string            `json:"subject"`
	Content          []content         `json:"content"`
}

type personalization struct {
	To []address `json:"to"`
}

type address struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type content struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}
