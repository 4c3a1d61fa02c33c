package intent

import (
	"regexp"
	"strconv"
	"strings"
)

// Kind tags the deterministic intent recognized for one message.
type Kind int

const (
	// None means no deterministic match; the caller should defer to the
	// general-purpose conversation handler, not conclude that no intent exists.
	None Kind = iota
	// Cancel means the customer wants to cancel the upcoming appointment.
	Cancel
	// Late means the customer is delayed; DelayMinutes carries the estimate.
	Late
)

// String returns a stable lowercase name for logging and API payloads.
func (k Kind) String() string {
	switch k {
	case Cancel:
		return "cancel"
	case Late:
		return "late"
	default:
		return "none"
	}
}

// Intent is the result of one classification call. It is derived per message
// and never persisted.
type Intent struct {
	Kind         Kind
	DelayMinutes int // set only for Late, always within [MinDelayMinutes, MaxDelayMinutes]
}

// Delay extraction bounds and default.
const (
	DefaultDelayMinutes = 15
	MinDelayMinutes     = 1
	MaxDelayMinutes     = 180
)

// latePatterns are matched before cancelPatterns: a delay message like
// "trafikteyim, birazdan geliyorum ama gec kalacagim" can lexically overlap
// with cancellation vocabulary, and freeing the slot prematurely is the more
// costly mistake. All fragments are in normalized (folded) form.
var latePatterns = []string{
	"gec kal",
	"gec gel",
	"gecikecegim",
	"gecikiyorum",
	"gecikme",
	"geciktim",
	"trafikte",
	"yoldayim",
	"birazdan",
	"az sonra",
	"running late",
}

// cancelPatterns are tested only when no late pattern matched.
var cancelPatterns = []string{
	"iptal",
	"gelemeyecegim",
	"gelmeyecegim",
	"gelemem",
	"gelemiyorum",
	"vazgectim",
	"cancel",
}

// delayRE extracts "10 dk", "45 dakika", "90dk", "30 min" style qualifiers:
// one to three digits followed by a minutes-unit token. The left boundary
// keeps a longer numeral like "1000" from matching on its trailing digits.
var delayRE = regexp.MustCompile(`\b(\d{1,3})\s*(?:dk|dakika|dakka|dak\b|min\b)`)

// Classify normalizes text and returns its deterministic intent. A None
// result means "no fast path", never "no intent".
func Classify(text string) Intent {
	s := Normalize(text)
	if s == "" {
		return Intent{Kind: None}
	}

	for _, p := range latePatterns {
		if strings.Contains(s, p) {
			return Intent{Kind: Late, DelayMinutes: extractDelay(s)}
		}
	}
	for _, p := range cancelPatterns {
		if strings.Contains(s, p) {
			return Intent{Kind: Cancel}
		}
	}
	return Intent{Kind: None}
}

// extractDelay pulls the numeric delay from normalized text, defaulting to
// DefaultDelayMinutes when no qualifier is present and clamping the result to
// the inclusive [MinDelayMinutes, MaxDelayMinutes] range.
func extractDelay(normalized string) int {
	m := delayRE.FindStringSubmatch(normalized)
	if m == nil {
		return DefaultDelayMinutes
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return DefaultDelayMinutes
	}
	return clampDelay(n)
}

func clampDelay(n int) int {
	if n < MinDelayMinutes {
		return MinDelayMinutes
	}
	if n > MaxDelayMinutes {
		return MaxDelayMinutes
	}
	return n
}
