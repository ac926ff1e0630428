// Package engage produces the decoy persona's replies. A Generator (the
// remote text-generation service) is consulted first; any failure or empty
// reply falls back to a deterministic local responder keyed by conversation
// phase and message category, so the engine always has a non-empty reply.
package engage

import (
	"context"
	"hash/fnv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/decoylab/sundew/internal/domain"
)

// Generator produces a persona reply for the latest subject message.
type Generator interface {
	Reply(ctx context.Context, message string, history []domain.Message, scamType string, turn int) (string, error)
}

// Engagement phases by turn number. The persona starts confused, builds
// trust, then pushes for concrete artifacts.
const (
	PhaseInitial       = "initial"
	PhaseBuildingTrust = "building_trust"
	PhaseGathering     = "information_gathering"
	PhaseExtraction    = "extraction"
)

// Phase maps a turn number to the engagement phase.
func Phase(turn int) string {
	switch {
	case turn <= 2:
		return PhaseInitial
	case turn <= 5:
		return PhaseBuildingTrust
	case turn <= 10:
		return PhaseGathering
	default:
		return PhaseExtraction
	}
}

// Fallback reply banks keyed by response category. The persona is a
// worried, non-technical person who keeps asking for specifics.
var fallbackBank = map[string][]string{
	"initial": {
		"Oh my, what is happening? Please explain.",
		"What? My account is problem? Please help!",
		"I am worried now. What should I do?",
		"Oh dear, is this real? Who are you calling from?",
	},
	"concerned": {
		"This is very concerning. What details you need?",
		"I don't want problem. How to fix this?",
		"My son is not here. Can you guide me please?",
		"I'm confused. What exactly is the issue?",
	},
	"payment": {
		"I can pay. What is your UPI ID?",
		"Should I use PhonePe or Paytm? What's your ID?",
		"I have money. Where should I send?",
		"What account number for transfer?",
		"My grandson helps with payment. What details needed?",
	},
	"link": {
		"I have phone. Can you send the link?",
		"What website should I visit? Please share.",
		"I don't know how to click. Can you resend link?",
		"Is this link safe? What will happen when I open?",
	},
	"verification": {
		"What OTP? I didn't receive anything.",
		"You need my password? Is this safe?",
		"Should I share my bank details? Which one?",
		"I have many accounts. Which one is blocked?",
	},
	"general": {
		"I don't understand these technical things.",
		"Please explain again. I'm old person.",
		"My hearing is not good. Can you repeat?",
		"You are calling from which bank?",
	},
}

var (
	paymentWords      = []string{"upi", "pay", "transfer", "money", "send", "amount", "rs", "₹"}
	linkWords         = []string{"link", "click", "website", "url", "download"}
	verificationWords = []string{"otp", "password", "pin", "verify", "details"}
)

// FallbackReply selects a deterministic canned reply for the message. The
// category is derived from message content first, then from the phase, and
// the pick within a bank is a stable hash of the message and turn.
func FallbackReply(message string, turn int) string {
	lowered := strings.ToLower(message)

	var category string
	switch {
	case containsAny(lowered, paymentWords):
		category = "payment"
	case containsAny(lowered, linkWords):
		category = "link"
	case containsAny(lowered, verificationWords):
		category = "verification"
	case turn <= 2:
		category = "initial"
	case turn <= 5:
		category = "concerned"
	default:
		category = "general"
	}

	bank := fallbackBank[category]
	return bank[pick(message, turn, len(bank))]
}

// Engager wraps a Generator with the local fallback. A nil generator means
// fallback-only operation (no remote service configured).
type Engager struct {
	generator Generator
}

// NewEngager creates an Engager. generator may be nil.
func NewEngager(generator Generator) *Engager {
	return &Engager{generator: generator}
}

// Reply returns the persona's next message. Never empty: generator failures
// and blank generator output are substituted with the local fallback.
func (e *Engager) Reply(ctx context.Context, message string, history []domain.Message, scamType string, turn int) string {
	if e.generator != nil {
		reply, err := e.generator.Reply(ctx, message, history, scamType, turn)
		if err != nil {
			log.Warn().Err(err).Int("turn", turn).Msg("reply generation failed, using fallback")
		} else if strings.TrimSpace(reply) != "" {
			return reply
		}
	}
	return FallbackReply(message, turn)
}

// StrategyNotes summarizes the subject's observed tactics and the current
// engagement phase for the session's note log.
func StrategyNotes(message, scamType string, turn int) string {
	lowered := strings.ToLower(message)
	var notes []string

	if containsAny(lowered, []string{"urgent", "immediately", "now", "today"}) {
		notes = append(notes, "Scammer using urgency tactics")
	}
	if containsAny(lowered, []string{"block", "suspend", "freeze"}) {
		notes = append(notes, "Threat of account action detected")
	}
	if containsAny(lowered, []string{"upi", "paytm", "phonepe", "gpay"}) {
		notes = append(notes, "Payment method mentioned - extracting UPI")
	}
	if containsAny(lowered, []string{"link", "click", "website"}) {
		notes = append(notes, "Phishing attempt - ask for link")
	}
	if containsAny(lowered, []string{"otp", "password", "pin"}) {
		notes = append(notes, "Credential theft attempt detected")
	}

	notes = append(notes, "Engagement phase: "+Phase(turn))
	return strings.Join(notes, "; ")
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

// pick hashes the inputs into a stable bank index.
func pick(message string, turn int, size int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(message))
	_, _ = h.Write([]byte{byte(turn)})
	return int(h.Sum32() % uint32(size)) //nolint:gosec // bank sizes are tiny
}
