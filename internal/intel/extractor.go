// Package intel extracts structured scam intelligence from free text:
// payment handles, phone numbers, bank identifiers, links, and suspicious
// keywords. Extraction is pure pattern matching with no network access.
package intel

import (
	"regexp"
	"strings"

	"github.com/decoylab/sundew/internal/domain"
)

// paymentProviders are the known payment-handle domain suffixes, in priority
// order. The generic pattern below is the fallback for handles on providers
// not listed here.
var paymentProviders = []string{
	"ybl", "paytm", "okaxis", "okicici", "oksbi", "okhdfcbank", "upi",
	"apl", "axl", "ibl", "sbi", "hdfc", "icici", "axis", "kotak",
	"phonepe", "gpay", "freecharge", "amazonpay",
}

var paymentProviderPatterns = compileProviderPatterns(paymentProviders)

// paymentGenericPattern matches a full local-part@domain token including the
// TLD, so ordinary ".com" emails can be excluded afterwards. Handles on
// other TLDs (.org, .in) are still captured; that imprecision is a known
// trade-off inherited from the engagement use case.
var paymentGenericPattern = regexp.MustCompile(`[a-zA-Z0-9._-]+@[a-zA-Z][a-zA-Z0-9.-]+[a-zA-Z]`)

// phonePatterns cover the four accepted number shapes: international prefix,
// bare country code, trunk zero, and a bare 10-digit run starting 6-9.
// Overlaps collapse during canonicalization.
var phonePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\+91[\s-]?[6-9]\d{9}`),
	regexp.MustCompile(`\b91[\s-]?[6-9]\d{9}`),
	regexp.MustCompile(`\b0[6-9]\d{9}\b`),
	regexp.MustCompile(`\b[6-9]\d{9}\b`),
}

var (
	// accountPattern deliberately casts a wide net; long order numbers are
	// acceptable collateral.
	accountPattern = regexp.MustCompile(`\b\d{9,18}\b`)
	ifscPattern    = regexp.MustCompile(`\b[A-Z]{4}0[A-Z0-9]{6}\b`)
)

var linkPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)https?://[^\s<>"{}|\\^` + "`" + `\[\]]+`),
	regexp.MustCompile(`(?i)www\.[^\s<>"{}|\\^` + "`" + `\[\]]+`),
	regexp.MustCompile(`(?i)\bbit\.ly/[a-zA-Z0-9]+`),
	regexp.MustCompile(`(?i)\btinyurl\.com/[a-zA-Z0-9]+`),
	regexp.MustCompile(`(?i)\bgoo\.gl/[a-zA-Z0-9]+`),
	regexp.MustCompile(`(?i)\bt\.co/[a-zA-Z0-9]+`),
}

// defaultSafeDomains are known legitimate hosts; any link containing one of
// these is suppressed rather than flagged.
var defaultSafeDomains = []string{
	"google.com", "facebook.com", "youtube.com", "twitter.com",
	"linkedin.com", "instagram.com", "microsoft.com", "apple.com",
	"amazon.in", "flipkart.com", "paytm.com", "phonepe.com",
}

// defaultKeywords is the suspicious-phrase vocabulary, grouped by tactic.
// Matches are returned in this declaration order, not input order.
var defaultKeywords = []string{
	// urgency
	"urgent", "immediately", "now", "today", "expire", "last chance",
	"limited time", "act fast", "hurry", "quick", "asap",
	// threat
	"blocked", "suspended", "deactivated", "terminated", "freeze",
	"legal action", "police", "arrest", "fine", "penalty",
	// prize
	"won", "winner", "lottery", "prize", "reward", "cashback",
	"congratulations", "selected", "lucky", "claim", "free",
	// verification request
	"verify", "verification", "confirm", "update", "kyc",
	"otp", "password", "pin", "cvv",
	// payment request
	"transfer", "pay", "send money", "upi", "bank", "account",
	"click here", "click link",
	// authority impersonation
	"rbi", "government", "income tax", "customs",
	"bank manager", "customer care", "support team", "official",
}

func compileProviderPatterns(providers []string) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(providers))
	for _, p := range providers {
		patterns = append(patterns, regexp.MustCompile(`(?i)[a-zA-Z0-9._-]+@`+regexp.QuoteMeta(p)+`\b`))
	}
	return patterns
}

// Extractor scans text for scam artifacts. It is immutable after
// construction and safe for concurrent use.
type Extractor struct {
	safeDomains []string
	keywords    []string
}

// NewExtractor builds an Extractor with the default safe-domain and keyword
// vocabularies plus any operator-supplied extensions.
func NewExtractor(extraSafeDomains, extraKeywords []string) *Extractor {
	e := &Extractor{
		safeDomains: append([]string{}, defaultSafeDomains...),
		keywords:    append([]string{}, defaultKeywords...),
	}
	for _, d := range extraSafeDomains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			e.safeDomains = appendUnique(e.safeDomains, d)
		}
	}
	for _, k := range extraKeywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			e.keywords = appendUnique(e.keywords, k)
		}
	}
	return e
}

// Extract scans text and returns everything it can identify. It is a total
// function: empty input yields an all-empty bundle, never an error.
func (e *Extractor) Extract(text string) domain.IntelBundle {
	return domain.IntelBundle{
		BankAccounts:       e.BankAccounts(text),
		PaymentHandles:     e.PaymentHandles(text),
		Links:              e.Links(text),
		PhoneNumbers:       e.PhoneNumbers(text),
		SuspiciousKeywords: e.SuspiciousKeywords(text),
	}
}

// ExtractHistory concatenates message texts in order and extracts from the
// combined text. Message boundaries carry no meaning for extraction.
func (e *Extractor) ExtractHistory(messages []domain.Message) domain.IntelBundle {
	texts := make([]string, 0, len(messages))
	for _, m := range messages {
		texts = append(texts, m.Text)
	}
	return e.Extract(strings.Join(texts, " "))
}

// PaymentHandles returns payment identifiers found in text, lowercased and
// deduplicated. Known provider suffixes are matched first; a generic
// local-part@domain fallback catches the rest, except tokens ending in
// ".com" which are treated as ordinary email addresses.
func (e *Extractor) PaymentHandles(text string) []string {
	var handles []string
	for _, pattern := range paymentProviderPatterns {
		for _, match := range pattern.FindAllString(text, -1) {
			cleaned := strings.ToLower(match)
			if !strings.HasSuffix(cleaned, ".com") {
				handles = appendUnique(handles, cleaned)
			}
		}
	}
	for _, match := range paymentGenericPattern.FindAllString(text, -1) {
		cleaned := strings.ToLower(match)
		if strings.HasSuffix(cleaned, ".com") {
			continue
		}
		if !coveredByProvider(handles, cleaned) {
			handles = appendUnique(handles, cleaned)
		}
	}
	return handles
}

// coveredByProvider reports whether a generic match is an extension of an
// already-captured provider handle (e.g. "joe@paytm" covers "joe@paytm.in").
func coveredByProvider(handles []string, candidate string) bool {
	for _, h := range handles {
		if strings.HasPrefix(candidate, h) {
			return true
		}
	}
	return false
}

// PhoneNumbers returns phone numbers in canonical +91 form. Raw matches are
// stripped to digits, truncated to the last 10, and re-prefixed, so two
// differently formatted mentions of one number collapse to a single entry.
func (e *Extractor) PhoneNumbers(text string) []string {
	var phones []string
	for _, pattern := range phonePatterns {
		for _, match := range pattern.FindAllString(text, -1) {
			digits := digitsOnly(match)
			if len(digits) < 10 {
				continue
			}
			normalized := "+91" + digits[len(digits)-10:]
			phones = appendUnique(phones, normalized)
		}
	}
	return phones
}

// BankAccounts returns candidate account numbers (9-18 digit runs) and bank
// routing codes in IFSC shape. The two pattern results are unioned with
// exact-string dedup only.
func (e *Extractor) BankAccounts(text string) []string {
	var accounts []string
	for _, match := range accountPattern.FindAllString(text, -1) {
		accounts = appendUnique(accounts, match)
	}
	for _, match := range ifscPattern.FindAllString(text, -1) {
		accounts = appendUnique(accounts, match)
	}
	return accounts
}

// Links returns URLs, www-prefixed hosts, and known shortener links, minus
// anything containing a safe domain. Legitimate cross-links inside scam text
// are deliberately not flagged.
func (e *Extractor) Links(text string) []string {
	var links []string
	for _, pattern := range linkPatterns {
		for _, match := range pattern.FindAllString(text, -1) {
			if e.isSafeLink(match) {
				continue
			}
			links = appendUnique(links, match)
		}
	}
	return links
}

func (e *Extractor) isSafeLink(url string) bool {
	lowered := strings.ToLower(url)
	for _, safe := range e.safeDomains {
		if strings.Contains(lowered, safe) {
			return true
		}
	}
	return false
}

// SuspiciousKeywords returns vocabulary entries contained in text,
// case-insensitively, in vocabulary-declaration order.
func (e *Extractor) SuspiciousKeywords(text string) []string {
	lowered := strings.ToLower(text)
	var found []string
	for _, keyword := range e.keywords {
		if strings.Contains(lowered, keyword) {
			found = appendUnique(found, keyword)
		}
	}
	return found
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func appendUnique(dst []string, v string) []string {
	for _, existing := range dst {
		if existing == v {
			return dst
		}
	}
	return append(dst, v)
}
