package guard

import (
	"regexp"
	"strings"
)

// EmergencyResponse is the fixed crisis-resources message. Crisis detection
// takes priority over every other check and is never suppressed by earlier
// pipeline layers.
const EmergencyResponse = "I'm concerned about your safety. If you're in crisis or considering self-harm, " +
	"please contact emergency services immediately (call 911 in the US) or reach out to " +
	"a crisis helpline like the 988 Suicide & Crisis Lifeline (call or text 988). " +
	"Your life matters and help is available 24/7."

const maxMessageLen = 8000

var crisisPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(suicide|kill myself|end my life|want to die)\b`),
	regexp.MustCompile(`\b(self.harm|cutting myself|hurt myself)\b`),
}

// Moderator screens for crisis content, oversized input and degenerate
// spam before a message reaches any downstream backend.
type Moderator struct{}

// Moderate returns (safe, category, message). Categories: "safe",
// "emergency", "validation".
func (Moderator) Moderate(text string) (bool, string, string) {
	if text == "" {
		return true, "safe", ""
	}

	lower := strings.ToLower(text)
	for _, p := range crisisPatterns {
		if p.MatchString(lower) {
			return false, "emergency", EmergencyResponse
		}
	}

	if len(text) > maxMessageLen {
		return false, "validation", "Message too long. Please keep messages under 8000 characters."
	}

	// Degenerate repetition: long input made of almost no distinct words.
	if len(words(lower)) < 3 && len(text) > 50 {
		return false, "validation", "Invalid message format"
	}

	return true, "safe", ""
}
