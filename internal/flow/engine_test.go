package flow

import (
	"context"
	"strings"
	"testing"

	"github.com/greenwayvn/welllabbot/internal/genai"
	"github.com/greenwayvn/welllabbot/internal/models"
	"github.com/greenwayvn/welllabbot/internal/rules"
	"github.com/greenwayvn/welllabbot/internal/store"
)

const bloodPressureQuestion = "Dạ, anh/chị bị huyết áp cao bao lâu rồi ạ? Anh/chị có đang dùng thuốc không ạ?"

func testTables() *rules.Tables {
	return &rules.Tables{
		Intents: []models.IntentRule{
			{
				Intent:          "blood_pressure",
				Keywords:        []string{"huyết áp", "huyet ap", "tim mạch", "tim mach"},
				Priority:        3,
				PreferredCombos: []string{"Combo Huyết Áp - Tim Mạch"},
				ClarifyQuestion: bloodPressureQuestion,
			},
			{
				Intent:          "sleep",
				Keywords:        []string{"mất ngủ", "mat ngu", "khó ngủ", "kho ngu"},
				Priority:        2,
				PreferredCombos: []string{"Combo Ngủ Ngon - Giảm Stress"},
			},
		},
		FAQ: []models.FAQEntry{
			{KeywordsAny: []string{"phí ship", "phi ship", "giao hàng mất bao lâu"}, Answer: "Dạ, phí ship từ 25.000đ ạ."},
		},
		Objections: []models.ObjectionEntry{
			{KeywordsAny: []string{"đắt quá", "dat qua"}, Answer: "Dạ, sản phẩm nhập khẩu chính hãng ạ."},
		},
		Combos: []models.Combo{
			{
				Name:       "Combo Huyết Áp - Tim Mạch",
				HeaderText: "Hỗ trợ ổn định huyết áp.",
				Products:   []models.ComboProduct{{Name: "WELLLAB Omega-3 Premium", Code: "WL-OMG3"}},
				Keywords:   []string{"huyết áp", "huyet ap"},
			},
			{
				Name:     "Combo Ngủ Ngon - Giảm Stress",
				Products: []models.ComboProduct{{Name: "WELLLAB Sleep Herbal"}},
				Keywords: []string{"mất ngủ", "mat ngu"},
			},
		},
		Products: []models.Product{
			{Name: "WELLLAB Omega-3 Premium", Price: "590.000đ", Link: "https://example.vn/omega3"},
			{Name: "WELLLAB Magnesium B6", Price: "380.000đ"},
		},
	}
}

func testEngine(mock *genai.MockClient) (*Engine, *store.InMemoryStore) {
	st := store.NewInMemoryStore()
	return NewEngine(NewInMemorySessionStore(), testTables(), mock, st), st
}

func msg(text string) models.IncomingMessage {
	return models.IncomingMessage{ConversationID: "chat-1", SenderID: "user-1", Text: text}
}

func TestEmptyMessageIgnored(t *testing.T) {
	e, _ := testEngine(&genai.MockClient{Reply: "ok"})
	if got := e.HandleMessage(context.Background(), msg("   ")); got != "" {
		t.Errorf("empty message should yield empty reply, got %q", got)
	}
}

func TestHealthIntentAsksClarifyQuestion(t *testing.T) {
	mock := &genai.MockClient{Reply: "tu van"}
	e, _ := testEngine(mock)

	got := e.HandleMessage(context.Background(), msg("toi bi huyet ap cao"))
	if got != bloodPressureQuestion {
		t.Fatalf("reply = %q, want the rule's clarify question", got)
	}

	s := e.sessions.GetOrCreate("chat-1")
	if s.Need != models.NeedHealth || s.Intent != "blood_pressure" || s.Stage != models.StageClarify {
		t.Errorf("session = need %q intent %q stage %q, want health/blood_pressure/clarify", s.Need, s.Intent, s.Stage)
	}
	if s.FirstIssue != "toi bi huyet ap cao" {
		t.Errorf("first issue = %q", s.FirstIssue)
	}
	if len(mock.Calls) != 0 {
		t.Error("clarifying turn must not call the completion gateway")
	}
}

func TestClarifyAnswerLeadsToAdviceWithCombo(t *testing.T) {
	mock := &genai.MockClient{Reply: "Dạ, với tình trạng của anh/chị em gợi ý combo huyết áp ạ."}
	e, _ := testEngine(mock)
	ctx := context.Background()

	e.HandleMessage(ctx, msg("toi bi huyet ap cao"))
	got := e.HandleMessage(ctx, msg("toi 50 tuoi, dang dung thuoc"))
	if got != mock.Reply {
		t.Fatalf("reply = %q, want the generated advice", got)
	}

	s := e.sessions.GetOrCreate("chat-1")
	if s.Stage != models.StageAdvise {
		t.Errorf("stage = %q, want advise", s.Stage)
	}
	if s.LastCombo != "Combo Huyết Áp - Tim Mạch" {
		t.Errorf("last combo = %q", s.LastCombo)
	}
	if s.Profile.Age != 50 {
		t.Errorf("age = %d, want 50", s.Profile.Age)
	}
	if s.Profile.HasChronicCondition == nil || !*s.Profile.HasChronicCondition {
		t.Error("chronic condition should be extracted from the clarify answer")
	}

	if len(mock.Calls) != 1 {
		t.Fatalf("gateway calls = %d, want 1", len(mock.Calls))
	}
	ctxBlock := mock.Calls[0].ContextBlock
	for _, want := range []string{"Combo Huyết Áp - Tim Mạch", "50 tuổi", "toi bi huyet ap cao"} {
		if !strings.Contains(ctxBlock, want) {
			t.Errorf("context block missing %q", want)
		}
	}
}

func TestGatewayFailureYieldsApology(t *testing.T) {
	mock := &genai.MockClient{Err: models.ErrServiceUnavailable}
	e, _ := testEngine(mock)
	ctx := context.Background()

	e.HandleMessage(ctx, msg("toi bi huyet ap cao"))
	got := e.HandleMessage(ctx, msg("toi 50 tuoi"))
	if got != ApologyMessage {
		t.Fatalf("reply = %q, want the fixed apology", got)
	}

	// The session must stay usable: the next turn still works.
	s := e.sessions.GetOrCreate("chat-1")
	if s.Stage != models.StageAdvise {
		t.Errorf("stage = %q, want advise (state advances despite gateway failure)", s.Stage)
	}
}

func TestAdviseStageTreatsMessagesAsFollowUps(t *testing.T) {
	mock := &genai.MockClient{Reply: "follow-up answer"}
	e, _ := testEngine(mock)
	ctx := context.Background()

	e.HandleMessage(ctx, msg("toi bi huyet ap cao"))
	e.HandleMessage(ctx, msg("toi 50 tuoi"))
	got := e.HandleMessage(ctx, msg("vay dung trong bao lau"))
	if got != mock.Reply {
		t.Fatalf("reply = %q, want generated follow-up", got)
	}
	s := e.sessions.GetOrCreate("chat-1")
	if s.Stage != models.StageAdvise || s.ClarifyRounds != 1 {
		t.Errorf("stage %q rounds %d, follow-ups must not re-clarify", s.Stage, s.ClarifyRounds)
	}
}

func TestIntentStickiness(t *testing.T) {
	mock := &genai.MockClient{Reply: "ok"}
	e, _ := testEngine(mock)
	ctx := context.Background()

	e.HandleMessage(ctx, msg("toi bi huyet ap cao")) // blood_pressure, score 13
	e.HandleMessage(ctx, msg("toi 50 tuoi"))
	// A single sleep hit scores 12 and must not displace the current intent.
	e.HandleMessage(ctx, msg("dao nay cung hoi mat ngu"))

	s := e.sessions.GetOrCreate("chat-1")
	if s.Intent != "blood_pressure" {
		t.Errorf("intent = %q, want blood_pressure (lower score must not replace)", s.Intent)
	}

	// Two sleep hits score 22 and do replace it.
	e.HandleMessage(ctx, msg("toi mat ngu trien mien, kho ngu ca dem"))
	s = e.sessions.GetOrCreate("chat-1")
	if s.Intent != "sleep" {
		t.Errorf("intent = %q, want sleep (strictly higher score replaces)", s.Intent)
	}
}

func TestResetCommand(t *testing.T) {
	e, _ := testEngine(&genai.MockClient{Reply: "ok"})
	ctx := context.Background()

	e.HandleMessage(ctx, msg("toi bi huyet ap cao"))
	got := e.HandleMessage(ctx, msg("/start"))
	if got != WelcomeMessage {
		t.Fatalf("reply = %q, want the welcome message", got)
	}
	s := e.sessions.GetOrCreate("chat-1")
	if s.Need != models.NeedUnset || s.Intent != "" || s.Stage != models.StageAwaitNeed {
		t.Errorf("session not reset: %+v", s)
	}
}

func TestModeToggle(t *testing.T) {
	mock := &genai.MockClient{Reply: "ok"}
	e, _ := testEngine(mock)
	ctx := context.Background()

	if got := e.HandleMessage(ctx, msg("/mode")); got != ModeAckInternalAgent {
		t.Fatalf("first toggle reply = %q", got)
	}
	if got := e.HandleMessage(ctx, msg("/mode")); got != ModeAckEndCustomer {
		t.Fatalf("second toggle reply = %q", got)
	}

	// Internal-agent mode changes the system instructions on gateway calls.
	e.HandleMessage(ctx, msg("/mode"))
	e.HandleMessage(ctx, msg("toi bi huyet ap cao"))
	e.HandleMessage(ctx, msg("toi 50 tuoi"))
	if len(mock.Calls) == 0 {
		t.Fatal("expected a gateway call")
	}
	if !strings.Contains(mock.Calls[0].SystemInstructions, "tư vấn viên Green Way") {
		t.Error("internal-agent instructions not used after toggle")
	}
}

func TestGreeting(t *testing.T) {
	e, _ := testEngine(&genai.MockClient{Reply: "ok"})
	ctx := context.Background()

	if got := e.HandleMessage(ctx, msg("chào")); got != WelcomeMessage {
		t.Errorf("fresh greeting reply = %q, want welcome", got)
	}

	e.HandleMessage(ctx, msg("toi bi huyet ap cao"))
	if got := e.HandleMessage(ctx, msg("hi")); got != GreetingAck {
		t.Errorf("mid-conversation greeting reply = %q, want short ack", got)
	}
}

func TestGreetingPrefixWithContentFallsThrough(t *testing.T) {
	e, _ := testEngine(&genai.MockClient{Reply: "ok"})
	got := e.HandleMessage(context.Background(), msg("chào em, tôi bị huyết áp cao lâu năm"))
	if got == WelcomeMessage || got == GreetingAck {
		t.Error("message with real content must not be swallowed as a greeting")
	}
}

func TestNoHealthSignalRedirects(t *testing.T) {
	e, _ := testEngine(&genai.MockClient{Reply: "ok"})
	got := e.HandleMessage(context.Background(), msg("khong co"))
	if got != RedirectMenu {
		t.Fatalf("reply = %q, want the redirect menu", got)
	}
	s := e.sessions.GetOrCreate("chat-1")
	if s.Need != models.NeedOther {
		t.Errorf("need = %q, want other", s.Need)
	}
}

func TestNoHealthPhraseInClarifyAnswerNotRedirected(t *testing.T) {
	mock := &genai.MockClient{Reply: "advice"}
	e, _ := testEngine(mock)
	ctx := context.Background()

	e.HandleMessage(ctx, msg("toi bi huyet ap cao"))
	got := e.HandleMessage(ctx, msg("khong co benh nen, toi 45 tuoi"))
	if got == RedirectMenu {
		t.Fatal("clarify answer starting with a negation must not redirect")
	}
	s := e.sessions.GetOrCreate("chat-1")
	if s.Profile.HasChronicCondition == nil || *s.Profile.HasChronicCondition {
		t.Error("chronic condition should be extracted as false")
	}
}

func TestFAQShortCircuit(t *testing.T) {
	mock := &genai.MockClient{Reply: "ok"}
	e, st := testEngine(mock)

	got := e.HandleMessage(context.Background(), msg("phi ship bao nhieu"))
	if got != "Dạ, phí ship từ 25.000đ ạ." {
		t.Fatalf("reply = %q, want the FAQ answer", got)
	}
	if len(mock.Calls) != 0 {
		t.Error("FAQ answers must not call the completion gateway")
	}

	stats, err := st.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalInteractions == 0 {
		t.Error("FAQ turn should still record an interaction")
	}
}

func TestObjectionShortCircuit(t *testing.T) {
	mock := &genai.MockClient{Reply: "ok"}
	e, _ := testEngine(mock)
	got := e.HandleMessage(context.Background(), msg("sao dat qua vay"))
	if got != "Dạ, sản phẩm nhập khẩu chính hãng ạ." {
		t.Fatalf("reply = %q, want the objection answer", got)
	}
	if len(mock.Calls) != 0 {
		t.Error("objection answers must not call the completion gateway")
	}
}

func TestProductLookupAnswersFromCatalog(t *testing.T) {
	mock := &genai.MockClient{Reply: "ok"}
	e, _ := testEngine(mock)

	got := e.HandleMessage(context.Background(), msg("tôi muốn tìm hiểu sản phẩm omega-3"))
	if !strings.Contains(got, "WELLLAB Omega-3 Premium") || !strings.Contains(got, "590.000đ") {
		t.Fatalf("reply = %q, want static product fields", got)
	}
	if len(mock.Calls) != 0 {
		t.Error("product answers come from static fields, not the gateway")
	}
	s := e.sessions.GetOrCreate("chat-1")
	if s.LastProduct != "WELLLAB Omega-3 Premium" {
		t.Errorf("last product = %q", s.LastProduct)
	}
}

func TestProductFollowUpUsesRememberedProduct(t *testing.T) {
	e, _ := testEngine(&genai.MockClient{Reply: "ok"})
	ctx := context.Background()

	e.HandleMessage(ctx, msg("tôi muốn tìm hiểu sản phẩm omega-3"))
	got := e.HandleMessage(ctx, msg("cho xin link"))
	if !strings.Contains(got, "https://example.vn/omega3") {
		t.Fatalf("reply = %q, want the remembered product's link", got)
	}
}

func TestProductNoMatchAsksClarify(t *testing.T) {
	e, _ := testEngine(&genai.MockClient{Reply: "ok"})
	got := e.HandleMessage(context.Background(), msg("tôi muốn mua sản phẩm"))
	if got != ProductClarifyQuestion {
		t.Fatalf("reply = %q, want the product clarify question", got)
	}
	s := e.sessions.GetOrCreate("chat-1")
	if s.Stage != models.StageProductClarify {
		t.Errorf("stage = %q, want product_clarify", s.Stage)
	}
}

func TestProductDetourKeepsAdviceStage(t *testing.T) {
	mock := &genai.MockClient{Reply: "follow-up advice"}
	e, _ := testEngine(mock)
	ctx := context.Background()

	e.HandleMessage(ctx, msg("toi bi huyet ap cao"))
	e.HandleMessage(ctx, msg("toi 50 tuoi"))
	e.HandleMessage(ctx, msg("tôi muốn tìm hiểu sản phẩm omega-3"))

	got := e.HandleMessage(ctx, msg("dao nay huyet ap van cao"))
	if got == bloodPressureQuestion {
		t.Fatal("health follow-up after a product lookup must not re-ask the clarify question")
	}
	if got != mock.Reply {
		t.Fatalf("reply = %q, want generated follow-up", got)
	}

	s := e.sessions.GetOrCreate("chat-1")
	if s.Stage != models.StageAdvise {
		t.Errorf("stage = %q, want advise preserved across the product lookup", s.Stage)
	}
	if s.ClarifyRounds != 1 {
		t.Errorf("clarify rounds = %d, want 1 (no re-clarification)", s.ClarifyRounds)
	}
	if s.LastProduct != "WELLLAB Omega-3 Premium" {
		t.Errorf("last product = %q", s.LastProduct)
	}
}

func TestUnclassifiableMessageAsksDisambiguation(t *testing.T) {
	e, _ := testEngine(&genai.MockClient{Reply: "ok"})
	got := e.HandleMessage(context.Background(), msg("hom nay troi dep qua"))
	if got != GenericDisambiguation {
		t.Fatalf("reply = %q, want the generic disambiguation question", got)
	}
}

func TestEmptyCatalogStatesNoComboFound(t *testing.T) {
	mock := &genai.MockClient{Reply: "advice without combo"}
	tables := testTables()
	tables.Combos = nil
	e := NewEngine(NewInMemorySessionStore(), tables, mock, store.NewInMemoryStore())
	ctx := context.Background()

	e.HandleMessage(ctx, msg("toi bi huyet ap cao"))
	got := e.HandleMessage(ctx, msg("toi 50 tuoi"))
	if got != mock.Reply {
		t.Fatalf("reply = %q, want generated advice", got)
	}

	s := e.sessions.GetOrCreate("chat-1")
	if s.LastCombo != "" {
		t.Errorf("last combo = %q, want empty with no catalog", s.LastCombo)
	}
	if len(mock.Calls) != 1 {
		t.Fatalf("gateway calls = %d, want 1", len(mock.Calls))
	}
	if !strings.Contains(mock.Calls[0].ContextBlock, "Không tìm thấy combo cụ thể nào trong danh mục nội bộ") {
		t.Error("context must state explicitly that no bundle was found")
	}
}

func TestEventLogging(t *testing.T) {
	e, st := testEngine(&genai.MockClient{Reply: "ok"})
	e.HandleMessage(context.Background(), msg("toi bi huyet ap cao"))

	events := st.Events()
	if len(events) != 2 {
		t.Fatalf("events = %d, want inbound + outbound", len(events))
	}
	if events[0].Direction != models.EventInbound || events[1].Direction != models.EventOutbound {
		t.Errorf("event directions wrong: %+v", events)
	}
	if events[1].Meta["intent"] != "blood_pressure" || events[1].Meta["stage"] != string(models.StageClarify) {
		t.Errorf("outbound event meta = %v", events[1].Meta)
	}
}
