// Package detect scores how likely a message is a scam attempt and why,
// using a fixed weighted table of tactic categories.
package detect

import (
	"regexp"
	"strings"

	"github.com/decoylab/sundew/internal/domain"
	"github.com/decoylab/sundew/internal/intel"
)

// Confidence boosts applied when the extractor finds hard artifacts in the
// combined conversation text. Additive on the confidence axis, independent
// of the weighted score.
const (
	paymentBoost = 0.15
	phoneBoost   = 0.10
	linkBoost    = 0.20
)

// Classifier scores messages against an immutable rule table. Safe for
// concurrent use; all state is read-only after construction.
type Classifier struct {
	rules     []categoryRule
	extractor *intel.Extractor
	maxScore  float64
}

// NewClassifier builds a Classifier from the built-in rule table, the given
// extractor, and any extra triggers from the operator ruleset. Extra
// triggers must have been validated by LoadRules.
func NewClassifier(extractor *intel.Extractor, rs Ruleset) *Classifier {
	rules := defaultRules()
	for i := range rules {
		extra := rs.ExtraTriggers[string(rules[i].category)]
		for _, p := range extra {
			rules[i].triggers = append(rules[i].triggers, regexp.MustCompile(`(?i)`+p))
		}
	}

	maxScore := 0.0
	for _, r := range rules {
		maxScore += float64(r.weight)
	}

	return &Classifier{
		rules:     rules,
		extractor: extractor,
		maxScore:  maxScore,
	}
}

// Classify scores a single inbound message in the context of its
// conversation history. It is total: no signal yields a non-scam verdict
// with zero confidence, never an error.
//
// Scoring: each category whose triggers match the message contributes its
// weight once. Prior subject-authored text contributes half weights and
// never adds category labels; early cautious language still raises
// cumulative suspicion as the conversation progresses. Extracted artifacts
// add fixed confidence boosts on top.
func (c *Classifier) Classify(message string, history []domain.Message) domain.Verdict {
	text := strings.ToLower(message)

	score := 0.0
	var detected []domain.Category
	for _, rule := range c.rules {
		if anyTriggerMatches(rule.triggers, text) {
			score += float64(rule.weight)
			detected = append(detected, rule.category)
		}
	}

	// History inflates the score at half weight but never the label set.
	historyText := subjectText(history)
	if historyText != "" {
		for _, rule := range c.rules {
			if anyTriggerMatches(rule.triggers, historyText) {
				score += float64(rule.weight) * 0.5
			}
		}
	}

	// Hard artifacts anywhere in the conversation boost confidence.
	combined := message
	for _, m := range history {
		combined += " " + m.Text
	}
	bundle := c.extractor.Extract(combined)

	boost := 0.0
	if len(bundle.PaymentHandles) > 0 {
		boost += paymentBoost
	}
	if len(bundle.PhoneNumbers) > 0 {
		boost += phoneBoost
	}
	if len(bundle.Links) > 0 {
		boost += linkBoost
	}

	confidence := min(score/c.maxScore, 1.0)
	confidence = min(confidence+boost, 1.0)

	return domain.Verdict{
		IsScam:     score >= scamThreshold || confidence >= 0.5,
		Confidence: confidence,
		Categories: detected,
		ScamType:   PrimaryType(detected),
		Notes:      c.buildNotes(detected, bundle),
	}
}

// PrimaryType resolves the primary scam-type label from detected categories
// using the fixed priority order. Empty input yields an empty label.
func PrimaryType(detected []domain.Category) string {
	if len(detected) == 0 {
		return ""
	}
	for _, candidate := range typePriority {
		for _, d := range detected {
			if d == candidate {
				return typeLabels[candidate]
			}
		}
	}
	return "General Scam"
}

// buildNotes assembles human-readable observations in a fixed order:
// category descriptions, payment handles, link presence, phone numbers.
func (c *Classifier) buildNotes(detected []domain.Category, bundle domain.IntelBundle) []string {
	var notes []string

	if len(detected) > 0 {
		descriptions := make([]string, 0, len(detected))
		for _, rule := range c.rules {
			for _, d := range detected {
				if rule.category == d {
					descriptions = append(descriptions, rule.description)
				}
			}
		}
		notes = append(notes, "Detected: "+strings.Join(descriptions, ", "))
	}
	if len(bundle.PaymentHandles) > 0 {
		notes = append(notes, "Payment IDs found: "+strings.Join(bundle.PaymentHandles, ", "))
	}
	if len(bundle.Links) > 0 {
		notes = append(notes, "Suspicious URLs detected")
	}
	if len(bundle.PhoneNumbers) > 0 {
		notes = append(notes, "Phone numbers found: "+strings.Join(bundle.PhoneNumbers, ", "))
	}

	return notes
}

func anyTriggerMatches(triggers []*regexp.Regexp, text string) bool {
	for _, t := range triggers {
		if t.MatchString(text) {
			return true
		}
	}
	return false
}

func subjectText(history []domain.Message) string {
	var parts []string
	for _, m := range history {
		if m.Sender == domain.SenderSubject {
			parts = append(parts, m.Text)
		}
	}
	return strings.ToLower(strings.Join(parts, " "))
}
