// Package models defines the core data structures for the WELLLAB advisory bot.
//
// It includes the conversation session, the rule-table records, and the message
// types shared between the messaging, flow, store, and api packages.
package models

import (
	"errors"
	"time"
)

// Mode selects which system instructions and vocabulary the bot uses.
type Mode string

const (
	// ModeEndCustomer addresses a retail customer (anh/chị register).
	ModeEndCustomer Mode = "end_customer"
	// ModeInternalAgent addresses a Green Way consultant.
	ModeInternalAgent Mode = "internal_agent"
)

// Need is the coarse topic classification of the current exchange.
type Need string

const (
	// NeedUnset means no need has been resolved yet.
	NeedUnset Need = ""
	// NeedHealth covers symptoms and health concerns.
	NeedHealth Need = "health"
	// NeedProduct covers product and combo questions.
	NeedProduct Need = "product"
	// NeedPolicy covers ordering, shipping, and payment questions.
	NeedPolicy Need = "policy"
	// NeedOther is the fallback when nothing matches.
	NeedOther Need = "other"
)

// Stage is the position in the per-conversation clarify/advise state machine.
type Stage string

const (
	// StageAwaitNeed means the conversation has not resolved a need yet.
	StageAwaitNeed Stage = "await_need"
	// StageStart means a need is resolved but no clarification has happened.
	StageStart Stage = "start"
	// StageClarify means a clarifying question has been asked.
	StageClarify Stage = "clarify"
	// StageAdvise means the bot has given advice and treats messages as follow-ups.
	StageAdvise Stage = "advise"
	// StageProductClarify means the bot asked which product the user meant.
	StageProductClarify Stage = "product_clarify"
)

// Gender is the self-reported gender extracted from free text.
type Gender string

const (
	// GenderUnknown means no gender has been extracted.
	GenderUnknown Gender = ""
	// GenderMale is extracted from male keywords.
	GenderMale Gender = "male"
	// GenderFemale is extracted from female keywords.
	GenderFemale Gender = "female"
)

// Error variables shared across packages.
var (
	// ErrServiceUnavailable indicates the completion service failed or is unreachable.
	ErrServiceUnavailable = errors.New("completion service unavailable")
	// ErrEmptyRecipient indicates an outbound message had no recipient.
	ErrEmptyRecipient = errors.New("recipient cannot be empty")
	// ErrEmptyBody indicates an outbound message had no body.
	ErrEmptyBody = errors.New("message body cannot be empty")
)

// Profile is the partial user record filled incrementally from free text.
// Fields are only ever merged in, never overwritten with unset values.
type Profile struct {
	Age                 int    `json:"age,omitempty"` // 0 means unset
	Gender              Gender `json:"gender,omitempty"`
	HasChronicCondition *bool  `json:"has_chronic_condition,omitempty"`
}

// Merge copies set fields from other into p without clearing anything.
func (p *Profile) Merge(other Profile) {
	if other.Age > 0 {
		p.Age = other.Age
	}
	if other.Gender != GenderUnknown {
		p.Gender = other.Gender
	}
	if other.HasChronicCondition != nil {
		p.HasChronicCondition = other.HasChronicCondition
	}
}

// Session holds the per-conversation state of the dialogue engine.
// Sessions live in process memory only; an explicit reset command restores
// the initial state.
type Session struct {
	ConversationID string    `json:"conversation_id"`
	Mode           Mode      `json:"mode"`
	Need           Need      `json:"need"`
	Intent         string    `json:"intent,omitempty"`
	IntentScore    int       `json:"intent_score,omitempty"`
	Stage          Stage     `json:"stage"`
	Profile        Profile   `json:"profile"`
	FirstIssue     string    `json:"first_issue,omitempty"`
	IssueSummary   string    `json:"issue_summary,omitempty"`
	LastCombo      string    `json:"last_combo,omitempty"`
	LastProduct    string    `json:"last_product,omitempty"`
	ClarifyRounds  int       `json:"clarify_rounds"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewSession creates a session in its initial state for a conversation.
func NewSession(conversationID string) *Session {
	now := time.Now()
	return &Session{
		ConversationID: conversationID,
		Mode:           ModeEndCustomer,
		Need:           NeedUnset,
		Stage:          StageAwaitNeed,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Reset restores every field to its initial-state value, keeping only the
// conversation identifier and creation time.
func (s *Session) Reset() {
	s.Mode = ModeEndCustomer
	s.Need = NeedUnset
	s.Intent = ""
	s.IntentScore = 0
	s.Stage = StageAwaitNeed
	s.Profile = Profile{}
	s.FirstIssue = ""
	s.IssueSummary = ""
	s.LastCombo = ""
	s.LastProduct = ""
	s.ClarifyRounds = 0
	s.UpdatedAt = time.Now()
}

// IntentRule maps symptom keywords to a health intent and its preferred combos.
// Rules are static and read-only after load.
type IntentRule struct {
	Intent          string   `json:"intent"`
	Keywords        []string `json:"keywords"`
	Priority        int      `json:"priority"`
	PreferredCombos []string `json:"preferred_combo_names"`
	ClarifyQuestion string   `json:"clarify_question,omitempty"`
}

// FAQEntry answers a question from a static table when any keyword matches.
type FAQEntry struct {
	KeywordsAny []string `json:"keywords_any"`
	Answer      string   `json:"answer"`
}

// ObjectionEntry handles a common sales objection with a pre-approved answer.
type ObjectionEntry struct {
	KeywordsAny []string `json:"keywords_any"`
	Answer      string   `json:"answer"`
}

// ComboProduct is one component of a combo.
type ComboProduct struct {
	Name string `json:"name"`
	Text string `json:"text,omitempty"`
	Code string `json:"code,omitempty"`
	Link string `json:"link,omitempty"`
}

// Combo is a named, pre-curated bundle of products mapped from one or more intents.
type Combo struct {
	Name         string         `json:"name"`
	Aliases      []string       `json:"aliases,omitempty"`
	HeaderText   string         `json:"header_text,omitempty"`
	DurationText string         `json:"duration_text,omitempty"`
	Products     []ComboProduct `json:"products"`
	URL          string         `json:"url,omitempty"`
	Keywords     []string       `json:"keywords,omitempty"`
	Goals        []string       `json:"goals,omitempty"`
}

// Product is a single catalog item.
type Product struct {
	Name        string `json:"name"`
	Code        string `json:"code,omitempty"`
	Price       string `json:"price,omitempty"`
	Ingredients string `json:"ingredients,omitempty"`
	Usage       string `json:"usage,omitempty"`
	Benefits    string `json:"benefits,omitempty"`
	Link        string `json:"link,omitempty"`
}

// IncomingMessage is an inbound chat message normalized from any channel.
type IncomingMessage struct {
	ConversationID    string    `json:"conversation_id"`
	SenderID          string    `json:"sender_id"`
	Text              string    `json:"text"`
	SenderDisplayName string    `json:"sender_display_name,omitempty"`
	Time              time.Time `json:"time"`
}

// UserProfile is the persisted per-user record maintained by the profile store.
// It is fire-and-forget telemetry, not consulted for dialogue decisions beyond
// display-name population.
type UserProfile struct {
	UserID       string         `json:"user_id"`
	DisplayName  string         `json:"display_name,omitempty"`
	Interactions int            `json:"interactions"`
	NeedCounts   map[string]int `json:"need_counts,omitempty"`
	IntentCounts map[string]int `json:"intent_counts,omitempty"`
	FirstSeen    time.Time      `json:"first_seen"`
	LastSeen     time.Time      `json:"last_seen"`
}

// EventDirection marks an event as inbound or outbound.
type EventDirection string

const (
	// EventInbound is a message received from a user.
	EventInbound EventDirection = "in"
	// EventOutbound is a reply sent to a user.
	EventOutbound EventDirection = "out"
)

// Event is one append-only log entry; the engine never reads events back.
type Event struct {
	Time           time.Time         `json:"time"`
	Direction      EventDirection    `json:"direction"`
	ConversationID string            `json:"conversation_id"`
	Body           string            `json:"body"`
	Meta           map[string]string `json:"meta,omitempty"`
}

// InteractionStats aggregates recorded interactions across all users.
type InteractionStats struct {
	TotalInteractions int            `json:"total_interactions"`
	ByNeed            map[string]int `json:"by_need"`
	ByIntent          map[string]int `json:"by_intent"`
}
