package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/greenwayvn/welllabbot/internal/messaging"
	"github.com/greenwayvn/welllabbot/internal/models"
	"github.com/greenwayvn/welllabbot/internal/store"
)

// Server holds the HTTP handlers and their dependencies. Exactly one of the
// channel services is set; the webhook for the other channel answers 404.
type Server struct {
	addr     string
	telegram *messaging.TelegramService
	twilio   *messaging.TwilioService
	store    store.Store
}

// NewServer creates an HTTP server over the given messaging channels and store.
// A nil channel service disables its webhook route.
func NewServer(telegram *messaging.TelegramService, twilio *messaging.TwilioService, st store.Store, opts ...Option) *Server {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	return &Server{addr: cfg.Addr, telegram: telegram, twilio: twilio, store: st}
}

// Routes builds the HTTP mux.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.rootHandler)
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/webhook", s.webhookHandler)
	mux.HandleFunc("/twilio", s.twilioHandler)
	mux.HandleFunc("/stats", s.statsHandler)
	return mux
}

func (s *Server) rootHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("WELLLAB consultation bot is running.\n"))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.SuccessWithMessage("healthy", nil))
}

// webhookHandler receives Telegram updates. It always acknowledges with 200
// once the payload parses, so Telegram does not redeliver updates the bot
// chose to ignore.
func (s *Server) webhookHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, models.Error("method not allowed"))
		return
	}
	if s.telegram == nil {
		writeJSON(w, http.StatusNotFound, models.Error("telegram channel not enabled"))
		return
	}

	var update models.TelegramUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		slog.Warn("Server.webhookHandler: invalid update payload", "error", err)
		writeJSON(w, http.StatusBadRequest, models.Error("invalid update payload"))
		return
	}

	if !s.telegram.HandleUpdate(update) {
		writeJSON(w, http.StatusOK, models.SuccessWithMessage("no message", nil))
		return
	}
	writeJSON(w, http.StatusOK, models.Success(nil))
}

// twilioHandler receives inbound SMS webhooks from Twilio as form-encoded
// From/Body pairs. Like the Telegram webhook it acknowledges with 200 once the
// payload parses, even when the message is ignored.
func (s *Server) twilioHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, models.Error("method not allowed"))
		return
	}
	if s.twilio == nil {
		writeJSON(w, http.StatusNotFound, models.Error("twilio channel not enabled"))
		return
	}
	if err := r.ParseForm(); err != nil {
		slog.Warn("Server.twilioHandler: invalid form payload", "error", err)
		writeJSON(w, http.StatusBadRequest, models.Error("invalid form payload"))
		return
	}

	from := r.PostFormValue("From")
	body := r.PostFormValue("Body")
	if from == "" {
		writeJSON(w, http.StatusBadRequest, models.Error("missing sender"))
		return
	}
	if !s.twilio.HandleInbound(from, body) {
		writeJSON(w, http.StatusOK, models.SuccessWithMessage("no message", nil))
		return
	}
	writeJSON(w, http.StatusOK, models.Success(nil))
}

func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, models.Error("method not allowed"))
		return
	}
	stats, err := s.store.Stats()
	if err != nil {
		slog.Error("Server.statsHandler: stats query failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, models.Error("failed to load statistics"))
		return
	}
	writeJSON(w, http.StatusOK, models.Success(stats))
}

func writeJSON(w http.ResponseWriter, status int, body models.APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("writeJSON: failed to encode response", "error", err)
	}
}
