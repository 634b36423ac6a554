package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/greenwayvn/welllabbot/internal/models"
)

// TwilioOpts holds configuration options for the Twilio SMS service.
type TwilioOpts struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

// TwilioOption defines a configuration option for the Twilio SMS service.
type TwilioOption func(*TwilioOpts)

// WithAccountSID sets the Twilio account SID.
func WithAccountSID(sid string) TwilioOption {
	return func(o *TwilioOpts) { o.AccountSID = sid }
}

// WithAuthToken sets the Twilio auth token.
func WithAuthToken(token string) TwilioOption {
	return func(o *TwilioOpts) { o.AuthToken = token }
}

// WithFromNumber sets the sending phone number in E.164 format.
func WithFromNumber(from string) TwilioOption {
	return func(o *TwilioOpts) { o.FromNumber = from }
}

// TwilioService delivers replies over SMS through the Twilio REST API. It is
// the alternative channel for deployments without a Telegram bot.
type TwilioService struct {
	client     *twilio.RestClient
	fromNumber string
	responses  chan models.IncomingMessage
}

// NewTwilioService creates a Twilio SMS service. Credentials fall back to the
// TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN, and TWILIO_FROM_NUMBER environment
// variables.
func NewTwilioService(opts ...TwilioOption) (*TwilioService, error) {
	var cfg TwilioOpts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.AccountSID == "" {
		cfg.AccountSID = os.Getenv("TWILIO_ACCOUNT_SID")
	}
	if cfg.AuthToken == "" {
		cfg.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	}
	if cfg.FromNumber == "" {
		cfg.FromNumber = os.Getenv("TWILIO_FROM_NUMBER")
	}

	slog.Debug("Twilio service config loaded",
		"accountSID_set", cfg.AccountSID != "",
		"authToken_set", cfg.AuthToken != "",
		"fromNumber_set", cfg.FromNumber != "")

	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, fmt.Errorf("account SID and auth token must be provided")
	}
	if cfg.FromNumber == "" {
		return nil, fmt.Errorf("from number must be provided")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})

	return &TwilioService{
		client:     client,
		fromNumber: cfg.FromNumber,
		responses:  make(chan models.IncomingMessage, 64),
	}, nil
}

// ValidateAndCanonicalizeRecipient checks that the recipient looks like an
// E.164 phone number and normalizes it to a leading plus sign.
func (s *TwilioService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	r := strings.TrimSpace(recipient)
	if r == "" {
		return "", models.ErrEmptyRecipient
	}
	r = strings.TrimPrefix(r, "+")
	if r == "" {
		return "", fmt.Errorf("invalid phone number %q", recipient)
	}
	for _, c := range r {
		if c < '0' || c > '9' {
			return "", fmt.Errorf("invalid phone number %q", recipient)
		}
	}
	return "+" + r, nil
}

// SendMessage sends an SMS using the Twilio API.
func (s *TwilioService) SendMessage(ctx context.Context, to string, body string) error {
	if body == "" {
		return models.ErrEmptyBody
	}
	canonical, err := s.ValidateAndCanonicalizeRecipient(to)
	if err != nil {
		return err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(canonical)
	params.SetFrom(s.fromNumber)
	params.SetBody(body)

	if _, err := s.client.Api.CreateMessage(params); err != nil {
		slog.Error("TwilioService.SendMessage: failed", "to", canonical, "error", err)
		return fmt.Errorf("failed to send message to %s: %w", canonical, err)
	}

	slog.Debug("TwilioService.SendMessage: message sent", "to", canonical)
	return nil
}

// HandleInbound converts an inbound SMS webhook into an incoming message and
// queues it for processing.
func (s *TwilioService) HandleInbound(from, body string) bool {
	if strings.TrimSpace(body) == "" {
		return false
	}
	incoming := models.IncomingMessage{
		ConversationID: from,
		SenderID:       from,
		Text:           body,
		Time:           time.Now(),
	}
	select {
	case s.responses <- incoming:
		return true
	default:
		slog.Warn("TwilioService.HandleInbound: responses channel full, message dropped", "from", from)
		return false
	}
}

// Start begins background processing. The Twilio channel is webhook-driven.
func (s *TwilioService) Start(ctx context.Context) error {
	slog.Info("TwilioService.Start: ready (webhook driven)")
	return nil
}

// Stop closes the incoming-message channel.
func (s *TwilioService) Stop() error {
	close(s.responses)
	slog.Info("TwilioService.Stop: stopped")
	return nil
}

// Responses returns the incoming-message channel.
func (s *TwilioService) Responses() <-chan models.IncomingMessage {
	return s.responses
}
