package guard

import (
	"regexp"
	"strings"

	"github.com/caremesh/medgate/pkg/chat"
)

// OffTopicGuidance is the static message returned for messages that fall
// outside the supported medical domain.
const OffTopicGuidance = "I'm designed to help with skin and oral health concerns. " +
	"Please describe your medical symptoms or concern. " +
	"For example: 'I have a rash on my arm' or 'My gums are bleeding'."

var (
	alphaRuns = regexp.MustCompile(`[a-z]+`)

	// Obviously unrelated topics. Only consulted once every positive
	// signal has failed, so this list stays deliberately small.
	offTopicPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b(weather|sports|politics|news|recipe|movie|music)\b`),
		regexp.MustCompile(`\b(how to (make|cook|build|install))\b`),
		regexp.MustCompile(`\b(what is (the|a) (capital|president|weather))\b`),
	}
)

// DomainClassifier decides whether a message belongs to the supported
// medical domain using a short-circuit sequence of token-set signals over
// the current message, the user's specialty selection and the recent
// conversation history.
//
// The signal order implements a progressive trust model: natural multi-turn
// medical conversation is full of short context-dependent answers ("it
// itches", "3 days ago") that carry no medical keyword in isolation, so the
// classifier becomes permissive once domain context is established but
// default-denies a cold, ambiguous first message.
type DomainClassifier struct {
	vocab *Vocabulary
}

// NewDomainClassifier builds a classifier over the given vocabulary; nil
// selects the built-in one.
func NewDomainClassifier(vocab *Vocabulary) *DomainClassifier {
	if vocab == nil {
		vocab = DefaultVocabulary()
	}
	return &DomainClassifier{vocab: vocab}
}

// tokenize extracts the set of case-folded alphabetic runs; every
// non-letter is a separator.
func tokenize(text string) set {
	s := set{}
	for _, tok := range alphaRuns.FindAllString(strings.ToLower(text), -1) {
		s[tok] = struct{}{}
	}
	return s
}

// IsInDomain validates that the message is appropriate for a medical
// consultation. It returns guidance text on rejection.
func (d *DomainClassifier) IsInDomain(text string, specialty chat.Specialty, history []chat.Message) (bool, string) {
	if text == "" {
		return true, ""
	}

	lower := strings.ToLower(text)
	tokens := tokenize(text)

	// Signal 1: direct medical keywords.
	if d.vocab.Medical.intersects(tokens) {
		return true, ""
	}

	// Signal 2: a body part mentioned is likely medical context.
	if d.vocab.BodyParts.intersects(tokens) {
		return true, ""
	}

	// Signal 3: short message dense with spatial/temporal descriptors,
	// e.g. "on my left arm, about halfway up".
	hasDescriptors := d.vocab.Descriptors.intersects(tokens)
	if d.vocab.Descriptors.count(tokens) >= 2 && len(tokens) <= 20 {
		return true, ""
	}

	// Signal 4: short message carrying age/gender/medical history.
	hasPersonalInfo := d.vocab.PersonalInfo.intersects(tokens)
	if hasPersonalInfo && len(tokens) <= 15 {
		return true, ""
	}

	// Signal 5: an established medical conversation admits follow-up
	// answers that carry no medical term of their own.
	if len(history) > 0 && d.contextEstablished(history, specialty) {
		followup := len(tokens) <= 20 ||
			hasDescriptors ||
			d.vocab.Conversational.intersects(tokens)
		if followup {
			return true, ""
		}
	}

	// Signal 6: the user explicitly selected a medical specialty.
	if specialty.Known() {
		for _, hint := range d.vocab.SpecialtyHints[string(specialty)] {
			if strings.Contains(lower, hint) {
				return true, ""
			}
		}
		if len(tokens) <= 10 && (hasDescriptors || hasPersonalInfo) {
			return true, ""
		}
	}

	// No positive signal fired. Reject whether or not an explicit
	// off-topic pattern matches: ambiguous cold messages are denied with
	// guidance rather than forwarded.
	for _, p := range offTopicPatterns {
		if p.MatchString(lower) {
			return false, OffTopicGuidance
		}
	}
	return false, OffTopicGuidance
}

// contextEstablished analyzes the last ten history messages for medical
// context: a medical keyword, a specialty-specific term, or a body part
// together with several descriptors.
func (d *DomainClassifier) contextEstablished(history []chat.Message, specialty chat.Specialty) bool {
	recent := history
	if len(recent) > 10 {
		recent = recent[len(recent)-10:]
	}

	var b strings.Builder
	for _, msg := range recent {
		b.WriteString(msg.Content)
		b.WriteByte(' ')
	}
	combined := strings.ToLower(b.String())
	tokens := tokenize(combined)

	if d.vocab.Medical.intersects(tokens) {
		return true
	}
	for _, term := range d.vocab.SpecialtyContext[string(specialty)] {
		if strings.Contains(combined, term) {
			return true
		}
	}
	return d.vocab.BodyParts.intersects(tokens) && d.vocab.Descriptors.count(tokens) >= 3
}
