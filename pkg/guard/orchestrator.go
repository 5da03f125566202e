package guard

import (
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/caremesh/medgate/pkg/chat"
)

// Verdict is the outcome of running one turn through the safety pipeline.
// It is produced once per turn and never mutated.
type Verdict struct {
	Allowed  bool
	Message  string
	Category string
	Metadata map[string]any
}

// Metrics is a snapshot of the orchestrator's process-wide counters.
type Metrics struct {
	TotalRequests   int64            `json:"total_requests"`
	BlockedRequests int64            `json:"blocked_requests"`
	BlockReasons    map[string]int64 `json:"block_reasons"`
	BlockRate       float64          `json:"block_rate"`
}

// Orchestrator composes the safety layers into one ordered, fail-fast
// Validate call: rate limit, injection scan, domain grounding (text turns
// only), content moderation. The first rejecting layer short-circuits the
// rest and tags the verdict with a stable category so callers can branch
// on cause.
type Orchestrator struct {
	enabled   bool
	limiter   *RateLimiter
	injection InjectionDetector
	domain    *DomainClassifier
	moderator Moderator
	logger    *zap.Logger

	mu      sync.Mutex
	total   int64
	blocked int64
	reasons map[string]int64
}

// NewOrchestrator builds the pipeline. When enabled is false Validate
// always allows and reports category security_disabled; this is for
// environments where validation is delegated elsewhere.
func NewOrchestrator(enabled bool, vocab *Vocabulary, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		enabled: enabled,
		limiter: NewRateLimiter(),
		domain:  NewDomainClassifier(vocab),
		logger:  logger,
		reasons: make(map[string]int64),
	}
}

// Validate runs the ordered pipeline over one turn.
func (o *Orchestrator) Validate(identity, message string, kind chat.Kind, specialty chat.Specialty, history []chat.Message) Verdict {
	o.mu.Lock()
	o.total++
	o.mu.Unlock()

	if !o.enabled {
		return Verdict{Allowed: true, Metadata: map[string]any{"category": "security_disabled"}}
	}

	message = strings.TrimSpace(message)

	if ok, msg := o.limiter.Check(identity, kind); !ok {
		o.trackBlock("rate_limit")
		return reject(msg, "rate_limit")
	}

	if suspicious, _ := o.injection.Detect(message); suspicious {
		o.trackBlock("injection")
		o.logger.Warn("prompt injection blocked", zap.String("identity", identity))
		return reject("Invalid input detected.", "security")
	}

	// Crisis content wins over every later rejection, including domain
	// grounding: a self-harm message must never get the off-topic reply.
	safe, category, modMsg := o.moderator.Moderate(message)
	if !safe && category == "emergency" {
		o.trackBlock(category)
		return reject(modMsg, category)
	}

	if kind == chat.KindText {
		if ok, msg := o.domain.IsInDomain(message, specialty, history); !ok {
			o.trackBlock("off_topic")
			return reject(msg, "off_topic")
		}
	}

	if !safe {
		o.trackBlock(category)
		if modMsg == "" {
			modMsg = "Inappropriate content"
		}
		return reject(modMsg, category)
	}

	return Verdict{Allowed: true, Metadata: map[string]any{"category": "safe"}}
}

// SanitizeOutput cleans text before it is returned to the user.
func (o *Orchestrator) SanitizeOutput(text string) string {
	return Sanitize(text)
}

// SweepRateWindows prunes empty rate-limit windows. Long-running
// deployments must call this periodically or the window map grows with
// every distinct identity seen.
func (o *Orchestrator) SweepRateWindows() int {
	return o.limiter.Sweep()
}

// GetMetrics returns a snapshot of the pipeline counters.
func (o *Orchestrator) GetMetrics() Metrics {
	o.mu.Lock()
	defer o.mu.Unlock()

	reasons := make(map[string]int64, len(o.reasons))
	for k, v := range o.reasons {
		reasons[k] = v
	}
	total := o.total
	if total == 0 {
		total = 1
	}
	return Metrics{
		TotalRequests:   o.total,
		BlockedRequests: o.blocked,
		BlockReasons:    reasons,
		BlockRate:       float64(o.blocked) / float64(total),
	}
}

func (o *Orchestrator) trackBlock(reason string) {
	o.mu.Lock()
	o.blocked++
	o.reasons[reason]++
	o.mu.Unlock()
}

func reject(msg, errType string) Verdict {
	return Verdict{
		Allowed:  false,
		Message:  msg,
		Category: errType,
		Metadata: map[string]any{"error_type": errType},
	}
}
