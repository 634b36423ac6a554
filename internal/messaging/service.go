// Package messaging provides pluggable message delivery channels and the
// handler that connects incoming messages to the conversation engine.
package messaging

import (
	"context"

	"github.com/greenwayvn/welllabbot/internal/models"
)

// Service defines a pluggable message delivery abstraction.
// It supports sending messages and exposes a channel of incoming messages.
type Service interface {
	// ValidateAndCanonicalizeRecipient validates and canonicalizes a recipient
	// identifier. Each channel implements its own rules (Telegram chat IDs are
	// numeric, Twilio recipients are E.164 phone numbers).
	ValidateAndCanonicalizeRecipient(recipient string) (string, error)

	// SendMessage sends a message to a recipient.
	SendMessage(ctx context.Context, to string, body string) error

	// Start begins any background processing.
	Start(ctx context.Context) error

	// Stop stops background processing and cleans up resources.
	Stop() error

	// Responses returns a channel of incoming user messages.
	Responses() <-chan models.IncomingMessage
}
