package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/greenwayvn/welllabbot/internal/genai"
	"github.com/greenwayvn/welllabbot/internal/models"
	"github.com/greenwayvn/welllabbot/internal/rules"
	"github.com/greenwayvn/welllabbot/internal/store"
)

// Follow-up cue words answered from the remembered combo/product without
// re-matching the catalog.
var followUpCues = []string{"link", "đường dẫn", "duong dan", "giá", "gia bao nhieu", "bao nhiêu tiền", "bao nhieu tien", "mua ở đâu", "mua o dau"}

// Engine is the conversation state machine. For each inbound message it
// decides whether to answer from the static rule tables, ask a clarifying
// question, or delegate to the completion gateway with assembled context.
type Engine struct {
	sessions SessionStore
	tables   *rules.Tables
	genai    genai.ClientInterface
	store    store.Store
}

// NewEngine creates an engine with its dependencies.
func NewEngine(sessions SessionStore, tables *rules.Tables, genaiClient genai.ClientInterface, st store.Store) *Engine {
	slog.Debug("flow.NewEngine: creating engine",
		"hasSessions", sessions != nil,
		"hasTables", tables != nil,
		"hasGenAI", genaiClient != nil,
		"hasStore", st != nil)
	return &Engine{sessions: sessions, tables: tables, genai: genaiClient, store: st}
}

// HandleMessage runs one turn of the state machine and returns the reply to
// send. An empty reply means the message carried nothing to process. No error
// is returned: every failure inside a turn degrades to a fixed, user-safe
// reply and must not corrupt session state for subsequent messages.
func (e *Engine) HandleMessage(ctx context.Context, msg models.IncomingMessage) string {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		slog.Debug("Engine.HandleMessage: empty message, nothing to do", "conversationID", msg.ConversationID)
		return ""
	}

	s := e.sessions.GetOrCreate(msg.ConversationID)
	e.logEvent(models.EventInbound, s, text)

	reply := e.handleTurn(ctx, s, msg, text)

	s.UpdatedAt = time.Now()
	e.sessions.Put(s)
	e.logEvent(models.EventOutbound, s, reply)
	slog.Info("Engine.HandleMessage: turn handled",
		"conversationID", msg.ConversationID,
		"need", s.Need, "intent", s.Intent, "stage", s.Stage,
		"replyLength", len(reply))
	return reply
}

func (e *Engine) handleTurn(ctx context.Context, s *models.Session, msg models.IncomingMessage, text string) string {
	lower := strings.ToLower(text)

	// 1. Control commands are handled unconditionally, before any matcher.
	if rules.IsResetCommand(lower) {
		slog.Debug("Engine.handleTurn: reset command", "conversationID", s.ConversationID)
		s.Reset()
		return WelcomeMessage
	}
	if rules.IsModeToggleCommand(lower) {
		if s.Mode == models.ModeEndCustomer {
			s.Mode = models.ModeInternalAgent
			return ModeAckInternalAgent
		}
		s.Mode = models.ModeEndCustomer
		return ModeAckEndCustomer
	}

	// 2. Greeting short-circuit; does not advance the stage. Long messages
	// that merely open with a greeting still carry content and fall through.
	if rules.IsGreeting(lower) && len(strings.Fields(lower)) <= 3 {
		if s.Need == models.NeedUnset {
			return WelcomeMessage
		}
		return GreetingAck
	}

	// 3. No-health short-circuit: redirect to the menu. Only before
	// clarification has started, so answers like "khong co benh nen" to a
	// clarifying question are not mistaken for a redirect.
	if (s.Stage == models.StageAwaitNeed || s.Stage == models.StageStart) && s.Intent == "" && rules.IsNoHealthSignal(lower) {
		s.Need = models.NeedOther
		s.Intent = ""
		s.IntentScore = 0
		s.FirstIssue = ""
		return RedirectMenu
	}

	// 4. Profile extraction happens on every turn regardless of branch.
	s.Profile.Merge(ExtractProfile(text))

	// 5. Static-answer short-circuits: pre-approved answers are always
	// preferred over generated ones.
	if f := rules.MatchFAQ(lower, e.tables.FAQ); f != nil {
		e.recordInteraction(msg, s)
		return f.Answer
	}
	if o := rules.MatchObjection(lower, e.tables.Objections); o != nil {
		e.recordInteraction(msg, s)
		return o.Answer
	}

	// 6. Need resolution: an explicit strong signal overrides the classifier;
	// the classifier only fills in when the need is still open.
	if n, ok := rules.ExplicitNeed(lower); ok {
		s.Need = n
	} else if s.Need == models.NeedUnset || s.Stage == models.StageAwaitNeed {
		s.Need = rules.ClassifyNeed(lower)
	}
	if s.Stage == models.StageAwaitNeed {
		s.Stage = models.StageStart
	}

	// 7. Branch by need.
	switch s.Need {
	case models.NeedPolicy:
		return e.handlePolicy(ctx, s, msg, text, lower)
	case models.NeedProduct:
		return e.handleProduct(ctx, s, msg, text, lower)
	case models.NeedOther:
		if intent, _ := rules.DetectIntent(lower, e.tables.Intents); intent == "" {
			e.recordInteraction(msg, s)
			return GenericDisambiguation
		}
		// A detectable health intent means this was a health message after all.
		s.Need = models.NeedHealth
		return e.handleHealth(ctx, s, msg, text, lower)
	default:
		return e.handleHealth(ctx, s, msg, text, lower)
	}
}

// handlePolicy answers ordering/shipping questions, constrained away from
// health advice.
func (e *Engine) handlePolicy(ctx context.Context, s *models.Session, msg models.IncomingMessage, text, lower string) string {
	if f := rules.MatchFAQ(lower, e.tables.FAQ); f != nil {
		e.recordInteraction(msg, s)
		return f.Answer
	}
	instructions := SystemInstructions(s.Mode) + "\n\n" + policyInstruction
	reply := e.complete(ctx, instructions, BuildContext(s, nil, nil), text)
	e.recordInteraction(msg, s)
	return reply
}

// handleProduct resolves product or combo references, falling back to a
// disambiguating question.
func (e *Engine) handleProduct(ctx context.Context, s *models.Session, msg models.IncomingMessage, text, lower string) string {
	// Short follow-ups about the remembered product/combo are answered from
	// static fields without re-matching.
	if anyCue(lower, followUpCues) {
		if s.LastProduct != "" {
			if p := e.productByName(s.LastProduct); p != nil {
				e.recordInteraction(msg, s)
				return formatProductReply(p)
			}
		}
		if s.LastCombo != "" {
			if c := e.tables.ComboByName(s.LastCombo); c != nil {
				e.recordInteraction(msg, s)
				return formatComboReply(c)
			}
		}
	}

	// Product lookups never downgrade the health flow: once a session has
	// clarified or advised, its stage survives a product interlude so the next
	// health follow-up does not re-ask the clarifying question.
	if p, score := rules.FindProduct(text, e.tables.Products); p != nil && score > 0 {
		s.LastProduct = p.Name
		if s.Stage == models.StageProductClarify {
			s.Stage = models.StageStart
		}
		e.recordInteraction(msg, s)
		return formatProductReply(p)
	}

	if comboSignal(lower) {
		if c, score := rules.FindCombo(text, e.tables.Combos); c != nil && score > 0 {
			s.LastCombo = c.Name
			if s.Stage == models.StageProductClarify {
				s.Stage = models.StageStart
			}
			reply := e.complete(ctx, SystemInstructions(s.Mode), BuildContext(s, c, nil), text)
			e.recordInteraction(msg, s)
			return reply
		}
	}

	if s.Stage == models.StageStart || s.Stage == models.StageProductClarify {
		s.Stage = models.StageProductClarify
	}
	e.recordInteraction(msg, s)
	return ProductClarifyQuestion
}

// handleHealth is the deepest sub-machine: clarify once, then advise, then
// treat everything as a follow-up on the same topic.
func (e *Engine) handleHealth(ctx context.Context, s *models.Session, msg models.IncomingMessage, text, lower string) string {
	// Intent is sticky: only a strictly higher-scoring detection replaces it.
	if intent, score := rules.DetectIntent(lower, e.tables.Intents); intent != "" {
		if s.Intent == "" || score > s.IntentScore {
			s.Intent = intent
			s.IntentScore = score
		}
	}

	switch {
	case s.Intent == "":
		// No intent yet: ask the default clarifying question. Combo selection
		// is deliberately withheld until clarification has happened.
		s.Stage = models.StageClarify
		s.ClarifyRounds++
		s.FirstIssue = text
		e.recordInteraction(msg, s)
		return DefaultClarifyQuestion

	case s.Stage == models.StageStart || s.Stage == models.StageProductClarify:
		s.Stage = models.StageClarify
		s.ClarifyRounds++
		if s.FirstIssue == "" {
			s.FirstIssue = text
		}
		e.recordInteraction(msg, s)
		return e.clarifyQuestion(s.Intent)

	case s.Stage == models.StageClarify:
		// The current message is supplementary detail; this is the single
		// point where combo selection happens on the health path.
		s.IssueSummary = strings.TrimSpace(strings.TrimSpace(s.FirstIssue) + " " + text)
		combo := rules.ChooseCombo(s.Intent, e.tables)
		if combo != nil {
			s.LastCombo = combo.Name
		}
		s.Stage = models.StageAdvise
		reply := e.complete(ctx, SystemInstructions(s.Mode), BuildContext(s, combo, nil), text)
		e.recordInteraction(msg, s)
		return reply

	default: // StageAdvise: follow-ups on the same topic, no re-clarification.
		combo := rules.ChooseCombo(s.Intent, e.tables)
		if combo != nil {
			s.LastCombo = combo.Name
		}
		reply := e.complete(ctx, SystemInstructions(s.Mode), BuildContext(s, combo, nil), text)
		e.recordInteraction(msg, s)
		return reply
	}
}

// clarifyQuestion returns the intent-specific clarifying question, or the
// default one when the rule does not define any.
func (e *Engine) clarifyQuestion(intent string) string {
	if rule := e.tables.RuleByIntent(intent); rule != nil && rule.ClarifyQuestion != "" {
		return rule.ClarifyQuestion
	}
	return DefaultClarifyQuestion
}

// complete calls the completion gateway and converts any failure into the
// fixed apology string. No retry is performed within the turn.
func (e *Engine) complete(ctx context.Context, systemInstructions, contextBlock, userText string) string {
	reply, err := e.genai.Complete(ctx, systemInstructions, contextBlock, userText)
	if err != nil {
		slog.Error("Engine.complete: completion gateway failed", "error", err)
		return ApologyMessage
	}
	return reply
}

// recordInteraction updates the persisted profile counters. Failures are
// logged and swallowed: telemetry must never break a turn.
func (e *Engine) recordInteraction(msg models.IncomingMessage, s *models.Session) {
	if e.store == nil {
		return
	}
	if _, err := e.store.GetOrCreateProfile(msg.SenderID, msg.SenderDisplayName); err != nil {
		slog.Warn("Engine.recordInteraction: profile lookup failed", "error", err, "senderID", msg.SenderID)
		return
	}
	if err := e.store.RecordInteraction(msg.SenderID, s.Need, s.Intent); err != nil {
		slog.Warn("Engine.recordInteraction: counter update failed", "error", err, "senderID", msg.SenderID)
	}
}

// logEvent appends one event with a session snapshot. Failures are logged and
// swallowed.
func (e *Engine) logEvent(direction models.EventDirection, s *models.Session, body string) {
	if e.store == nil || body == "" {
		return
	}
	err := e.store.AddEvent(models.Event{
		Time:           time.Now(),
		Direction:      direction,
		ConversationID: s.ConversationID,
		Body:           body,
		Meta: map[string]string{
			"mode":           string(s.Mode),
			"need":           string(s.Need),
			"intent":         s.Intent,
			"stage":          string(s.Stage),
			"clarify_rounds": fmt.Sprintf("%d", s.ClarifyRounds),
		},
	})
	if err != nil {
		slog.Warn("Engine.logEvent: event append failed", "error", err, "conversationID", s.ConversationID)
	}
}

func (e *Engine) productByName(name string) *models.Product {
	want := rules.Normalize(name)
	for i := range e.tables.Products {
		if rules.Normalize(e.tables.Products[i].Name) == want {
			return &e.tables.Products[i]
		}
	}
	return nil
}

// comboSignal reports whether the message explicitly asks about a bundle.
func comboSignal(lower string) bool {
	return anyCue(lower, []string{"combo", "liệu trình", "lieu trinh", "bộ sản phẩm", "bo san pham", "gói", "goi san pham"})
}

func anyCue(lower string, cues []string) bool {
	for _, c := range cues {
		if strings.Contains(lower, c) {
			return true
		}
	}
	return false
}

// formatProductReply renders a product answer from static catalog fields; no
// completion call is involved.
func formatProductReply(p *models.Product) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dạ, em gửi anh/chị thông tin sản phẩm %s ạ:\n", p.Name)
	if p.Benefits != "" {
		fmt.Fprintf(&b, "- Công dụng: %s\n", p.Benefits)
	}
	if p.Ingredients != "" {
		fmt.Fprintf(&b, "- Thành phần: %s\n", p.Ingredients)
	}
	if p.Usage != "" {
		fmt.Fprintf(&b, "- Cách dùng: %s\n", p.Usage)
	}
	if p.Price != "" {
		fmt.Fprintf(&b, "- Giá: %s\n", p.Price)
	}
	if p.Link != "" {
		fmt.Fprintf(&b, "- Link đặt hàng: %s\n", p.Link)
	}
	b.WriteString("Anh/chị cần em tư vấn thêm về cách dùng hay liệu trình không ạ?")
	return b.String()
}

// formatComboReply renders a combo answer from static catalog fields.
func formatComboReply(c *models.Combo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dạ, em gửi anh/chị thông tin combo %s ạ:\n", c.Name)
	if c.HeaderText != "" {
		fmt.Fprintf(&b, "- Giới thiệu: %s\n", c.HeaderText)
	}
	if c.DurationText != "" {
		fmt.Fprintf(&b, "- Liệu trình: %s\n", c.DurationText)
	}
	for _, p := range c.Products {
		fmt.Fprintf(&b, "  • %s", p.Name)
		if p.Text != "" {
			fmt.Fprintf(&b, " – %s", p.Text)
		}
		b.WriteString("\n")
	}
	if c.URL != "" {
		fmt.Fprintf(&b, "- Link combo: %s\n", c.URL)
	}
	return b.String()
}
