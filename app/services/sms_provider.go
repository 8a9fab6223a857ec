package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/smtp"

	"github.com/oguzkaan/emlak-crm/config"
)

// SMSProviderImpl sends messages through the SMS gateway HTTP API
type SMSProviderImpl struct {
	config *config.SMSConfig
	client *http.Client
}

// smsRequest represents the request payload for the SMS gateway
type smsRequest struct {
	SrcNum     string `json:"srcNum"`
	Recipient  string `json:"recipient"`
	Body       string `json:"body"`
	RetryCount int    `json:"retryCount"`
	Type       int    `json:"type"`
}

// smsResponse represents one message result from the SMS gateway
type smsResponse struct {
	MessageID  int64  `json:"messageId"`
	Recipient  string `json:"recipient"`
	Status     string `json:"status"`
	StatusCode int    `json:"statusCode"`
}

// NewSMSProvider creates a new SMS provider instance
func NewSMSProvider(cfg *config.SMSConfig) SMSProvider {
	return &SMSProviderImpl{
		config: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// SendSMS sends a single SMS message
func (s *SMSProviderImpl) SendSMS(mobile, message string) error {
	payload := []smsRequest{{
		SrcNum:     s.config.SourceNumber,
		Recipient:  mobile,
		Body:       message,
		RetryCount: s.config.RetryCount,
		Type:       1,
	}}

	requestBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal SMS request: %w", err)
	}

	url := fmt.Sprintf("https://%s/api/v3.0.1/send", s.config.ProviderDomain)
	req, err := http.NewRequestWithContext(context.Background(), "POST", url, bytes.NewBuffer(requestBody))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", s.config.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send SMS request: %w", err)
	}
	defer resp.Body.Close()

	var results []smsResponse
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return fmt.Errorf("failed to decode SMS response: %w", err)
	}
	for _, r := range results {
		if r.StatusCode != 200 || r.Status != "ACCEPTED" {
			return fmt.Errorf("SMS delivery failed for %s: %s (%d)", r.Recipient, r.Status, r.StatusCode)
		}
	}
	return nil
}

// SMTPEmailProvider sends email through a standard SMTP relay
type SMTPEmailProvider struct {
	config *config.EmailConfig
}

// NewSMTPEmailProvider creates a new SMTP-backed email provider
func NewSMTPEmailProvider(cfg *config.EmailConfig) EmailProvider {
	return &SMTPEmailProvider{config: cfg}
}

// SendEmail sends a plain-text email
func (p *SMTPEmailProvider) SendEmail(email, subject, message string) error {
	addr := fmt.Sprintf("%s:%d", p.config.Host, p.config.Port)
	auth := smtp.PlainAuth("", p.config.Username, p.config.Password, p.config.Host)

	body := fmt.Sprintf("From: %s <%s>\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		p.config.FromName, p.config.FromEmail, email, subject, message)

	if err := smtp.SendMail(addr, auth, p.config.FromEmail, []string{email}, []byte(body)); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", email, err)
	}
	return nil
}
