package messaging

import (
	"context"
	"log/slog"

	"github.com/greenwayvn/welllabbot/internal/models"
)

// MessageProcessor produces a reply for one incoming message. An empty reply
// means nothing should be sent.
type MessageProcessor interface {
	HandleMessage(ctx context.Context, msg models.IncomingMessage) string
}

// ResponseHandler consumes incoming messages from a Service, runs them through
// the processor, and sends the reply back on the same channel.
type ResponseHandler struct {
	service   Service
	processor MessageProcessor
}

// NewResponseHandler creates a response handler.
func NewResponseHandler(service Service, processor MessageProcessor) *ResponseHandler {
	return &ResponseHandler{service: service, processor: processor}
}

// Start consumes the service's incoming-message channel until the context is
// canceled or the channel closes. Send failures are logged and swallowed so a
// transient delivery error never stops the loop.
func (h *ResponseHandler) Start(ctx context.Context) {
	slog.Info("ResponseHandler.Start: processing loop started")
	for {
		select {
		case <-ctx.Done():
			slog.Info("ResponseHandler.Start: context canceled, stopping")
			return
		case msg, ok := <-h.service.Responses():
			if !ok {
				slog.Info("ResponseHandler.Start: responses channel closed, stopping")
				return
			}
			h.handle(ctx, msg)
		}
	}
}

func (h *ResponseHandler) handle(ctx context.Context, msg models.IncomingMessage) {
	reply := h.processor.HandleMessage(ctx, msg)
	if reply == "" {
		return
	}
	if err := h.service.SendMessage(ctx, msg.ConversationID, reply); err != nil {
		slog.Error("ResponseHandler.handle: failed to send reply",
			"conversationID", msg.ConversationID, "error", err)
	}
}
