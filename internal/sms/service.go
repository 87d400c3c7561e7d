package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/preassess/portal-api/internal/config"
)

// Service dispatches SMS to patients. Returns the provider message id.
type Service interface {
	Send(ctx context.Context, phone, body string) (string, error)
}

type twilioService struct {
	cfg  config.TwilioConfig
	http *http.Client
}

func NewTwilioService(cfg config.TwilioConfig) Service {
	return &twilioService{
		cfg:  cfg,
		http: &http.Client{Timeout: 15 * time.Second},
	}
}

type twilioResponse struct {
	SID     string `json:"sid"`
	Message string `json:"message"`
}

func (s *twilioService) Send(ctx context.Context, phone, body string) (string, error) {
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", s.cfg.BaseURL, s.cfg.AccountSID)

	form := url.Values{}
	form.Set("To", strings.ReplaceAll(phone, " ", ""))
	form.Set("MessagingServiceSid", s.cfg.MessagingServiceSID)
	form.Set("Body", body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build SMS request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(s.cfg.AccountSID, s.cfg.AuthToken)

	resp, err := s.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("SMS dispatch failed: %w", err)
	}
	defer resp.Body.Close()

	var parsed twilioResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode SMS provider response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Warn().Int("status", resp.StatusCode).Str("provider_message", parsed.Message).Msg("SMS provider rejected dispatch")
		return "", fmt.Errorf("SMS provider returned status %d", resp.StatusCode)
	}

	return parsed.SID, nil
}
