package rules

import "strings"

// Greeting phrases matched exactly or as a message prefix.
var greetingPhrases = []string{
	"chào", "chao", "xin chào", "xin chao", "chào em", "chao em", "chào shop", "chao shop",
	"hello", "hi", "alo", "hey",
}

// Negation-of-health-concern phrases matched exactly or as a message prefix.
var noHealthPhrases = []string{
	"không", "khong", "không có", "khong co", "không bị gì", "khong bi gi",
	"không bệnh", "khong benh", "không sao", "khong sao", "khỏe", "khoe",
	"no", "none", "not sick",
}

// In-band control commands, recognized case-insensitively anywhere in the text.
var (
	resetCommands      = []string{"/start", "restart", "làm lại", "lam lai"}
	modeToggleCommands = []string{"/mode", "chế độ tư vấn viên", "che do tu van vien"}
)

// IsGreeting reports whether the message is a bare greeting.
func IsGreeting(text string) bool {
	return matchExactOrPrefix(text, greetingPhrases)
}

// IsNoHealthSignal reports whether the message negates having a health concern.
func IsNoHealthSignal(text string) bool {
	return matchExactOrPrefix(text, noHealthPhrases)
}

// IsResetCommand reports whether the message carries the session reset command.
func IsResetCommand(text string) bool {
	return containsAny(text, resetCommands)
}

// IsModeToggleCommand reports whether the message carries the mode switch command.
func IsModeToggleCommand(text string) bool {
	return containsAny(text, modeToggleCommands)
}

func matchExactOrPrefix(text string, phrases []string) bool {
	msg := strings.TrimSpace(strings.ToLower(text))
	if msg == "" {
		return false
	}
	for _, p := range phrases {
		if msg == p || strings.HasPrefix(msg, p+" ") || strings.HasPrefix(msg, p+",") || strings.HasPrefix(msg, p+"!") {
			return true
		}
	}
	return false
}

func containsAny(text string, phrases []string) bool {
	msg := strings.ToLower(text)
	for _, p := range phrases {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
