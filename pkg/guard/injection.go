package guard

import "regexp"

// injectionPatterns is the fixed ordered list of instruction-override
// attempts the detector screens for. First match wins.
var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bignore (all|previous) (instructions|rules|prompts)\b`),
	regexp.MustCompile(`(?i)\bdisregard (the )?(system|previous|prior) (prompt|instruction)\b`),
	regexp.MustCompile(`(?i)\boverride (the )?(safety|security|system)\b`),
	regexp.MustCompile(`(?i)\byou are (now )?chatgpt\b`),
	regexp.MustCompile(`(?i)\bpretend (you|to) (are|be)\b.*\b(not|different)\b`),
	regexp.MustCompile(`(?i)\breset (your|the) (instructions|rules|system)\b`),
}

// InjectionDetector screens messages for prompt-injection attempts. It is a
// deliberately conservative pattern filter, not a semantic classifier:
// rephrased attacks will slip through and must be caught downstream.
type InjectionDetector struct{}

// Detect reports whether the text matches a known injection pattern. Empty
// text is never suspicious.
func (InjectionDetector) Detect(text string) (bool, string) {
	if text == "" {
		return false, ""
	}
	for _, p := range injectionPatterns {
		if p.MatchString(text) {
			return true, "Invalid input detected"
		}
	}
	return false, ""
}
