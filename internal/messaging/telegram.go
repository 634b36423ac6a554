package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/greenwayvn/welllabbot/internal/models"
)

// DefaultTelegramAPIBaseURL is the production Bot API endpoint.
const DefaultTelegramAPIBaseURL = "https://api.telegram.org"

// TelegramOpts holds configuration options for the Telegram service.
type TelegramOpts struct {
	Token      string
	APIBaseURL string
	HTTPClient *http.Client
}

// TelegramOption defines a configuration option for the Telegram service.
type TelegramOption func(*TelegramOpts)

// WithToken sets the bot token.
func WithToken(token string) TelegramOption {
	return func(o *TelegramOpts) { o.Token = token }
}

// WithAPIBaseURL overrides the Bot API base URL. Used in tests.
func WithAPIBaseURL(url string) TelegramOption {
	return func(o *TelegramOpts) { o.APIBaseURL = url }
}

// WithHTTPClient overrides the HTTP client used for API calls.
func WithHTTPClient(c *http.Client) TelegramOption {
	return func(o *TelegramOpts) { o.HTTPClient = c }
}

// TelegramService delivers replies through the Telegram Bot API and feeds
// webhook updates into the incoming-message channel.
type TelegramService struct {
	token      string
	apiBaseURL string
	httpClient *http.Client
	responses  chan models.IncomingMessage
}

// NewTelegramService creates a Telegram service. The token falls back to the
// TELEGRAM_TOKEN environment variable.
func NewTelegramService(opts ...TelegramOption) (*TelegramService, error) {
	var cfg TelegramOpts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Token == "" {
		cfg.Token = os.Getenv("TELEGRAM_TOKEN")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("telegram bot token must be provided")
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = DefaultTelegramAPIBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}

	slog.Debug("Telegram service config loaded",
		"token_set", cfg.Token != "",
		"apiBaseURL", cfg.APIBaseURL)

	return &TelegramService{
		token:      cfg.Token,
		apiBaseURL: strings.TrimRight(cfg.APIBaseURL, "/"),
		httpClient: cfg.HTTPClient,
		responses:  make(chan models.IncomingMessage, 64),
	}, nil
}

// ValidateAndCanonicalizeRecipient checks that the recipient is a Telegram
// chat ID (a possibly negative integer).
func (s *TelegramService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	r := strings.TrimSpace(recipient)
	if r == "" {
		return "", models.ErrEmptyRecipient
	}
	if _, err := strconv.ParseInt(r, 10, 64); err != nil {
		return "", fmt.Errorf("invalid telegram chat ID %q: %w", recipient, err)
	}
	return r, nil
}

// SendMessage sends a text message to a chat via the Bot API.
func (s *TelegramService) SendMessage(ctx context.Context, to string, body string) error {
	if body == "" {
		return models.ErrEmptyBody
	}
	chatID, err := s.ValidateAndCanonicalizeRecipient(to)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(map[string]string{
		"chat_id": chatID,
		"text":    body,
	})
	if err != nil {
		return fmt.Errorf("failed to encode telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.apiBaseURL, s.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		slog.Error("TelegramService.SendMessage: request failed", "to", chatID, "error", err)
		return fmt.Errorf("failed to send message to %s: %w", chatID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		slog.Error("TelegramService.SendMessage: API error", "to", chatID, "status", resp.StatusCode, "body", string(snippet))
		return fmt.Errorf("telegram API returned status %d for %s", resp.StatusCode, chatID)
	}

	slog.Debug("TelegramService.SendMessage: message sent", "to", chatID, "length", len(body))
	return nil
}

// HandleUpdate converts a webhook update into an incoming message and queues
// it for processing. Updates without a text message are ignored.
func (s *TelegramService) HandleUpdate(update models.TelegramUpdate) bool {
	if update.Message == nil || strings.TrimSpace(update.Message.Text) == "" {
		slog.Debug("TelegramService.HandleUpdate: update without text, ignored", "updateID", update.UpdateID)
		return false
	}
	m := update.Message

	var senderID, displayName string
	if m.From != nil {
		senderID = strconv.FormatInt(m.From.ID, 10)
		displayName = strings.TrimSpace(m.From.FirstName + " " + m.From.LastName)
		if displayName == "" {
			displayName = m.From.Username
		}
	}

	incoming := models.IncomingMessage{
		ConversationID:    strconv.FormatInt(m.Chat.ID, 10),
		SenderID:          senderID,
		SenderDisplayName: displayName,
		Text:              m.Text,
		Time:              time.Unix(m.Date, 0),
	}

	select {
	case s.responses <- incoming:
		return true
	default:
		slog.Warn("TelegramService.HandleUpdate: responses channel full, update dropped", "conversationID", incoming.ConversationID)
		return false
	}
}

// Start begins background processing. The Telegram channel is webhook-driven,
// so there is nothing to start.
func (s *TelegramService) Start(ctx context.Context) error {
	slog.Info("TelegramService.Start: ready (webhook driven)")
	return nil
}

// Stop closes the incoming-message channel.
func (s *TelegramService) Stop() error {
	close(s.responses)
	slog.Info("TelegramService.Stop: stopped")
	return nil
}

// Responses returns the incoming-message channel.
func (s *TelegramService) Responses() <-chan models.IncomingMessage {
	return s.responses
}
