package detect

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/decoylab/sundew/internal/domain"
)

// categoryRule is one tactic category: an ordered trigger list, an integer
// weight, and a human-readable description used in verdict notes.
type categoryRule struct {
	category    domain.Category
	weight      int
	description string
	triggers    []*regexp.Regexp
}

// scamThreshold is the absolute weighted score at or above which a message
// is flagged regardless of blended confidence.
const scamThreshold = 5

// defaultRules returns the built-in tactic table. Compiled once at startup
// and treated as read-only configuration afterwards.
func defaultRules() []categoryRule {
	return []categoryRule{
		{
			category:    domain.CategoryUrgency,
			weight:      2,
			description: "Urgency tactics",
			triggers: compileTriggers(
				`\bimmediately\b`, `\burgent\b`, `\btoday\b`,
				`\bnow\b`, `\basap\b`, `\bquickly\b`,
				`\bexpir(e|ing|ed)\b`, `\blast chance\b`,
				`\blimited time\b`, `\bact fast\b`, `\bhurry\b`,
			),
		},
		{
			category:    domain.CategoryThreat,
			weight:      3,
			description: "Threat-based manipulation",
			triggers: compileTriggers(
				`\bblock(ed)?\b`, `\bsuspend(ed)?\b`,
				`\bdeactivat(e|ed)\b`, `\bterminate(d)?\b`,
				`\bfreez(e|ing)\b`, `\blegal action\b`,
				`\bpolice\b`, `\barrest\b`, `\bfine\b`,
				`\bpenalty\b`,
			),
		},
		{
			category:    domain.CategorySensitiveRequest,
			weight:      4,
			description: "Request for sensitive information",
			triggers: compileTriggers(
				`\botp\b`, `\bpin\b`, `\bpassword\b`,
				`\bcvv\b`, `\bcard number\b`, `\bexpiry\b`,
				`\bbank account\b`, `\baccount number\b`,
				`\bupi\s*(id|pin)?\b`, `\baadhaar\b`, `\bpan\b`,
				`\bshare\b.*\b(details|info)\b`,
			),
		},
		{
			category:    domain.CategoryLottery,
			weight:      4,
			description: "Lottery/Prize scam",
			triggers: compileTriggers(
				`\bwon\b`, `\bwinner\b`, `\blottery\b`,
				`\bprize\b`, `\bclaim\b`, `\bcongratulation\b`,
				`\blucky\b`, `\bselected\b`, `\bcash prize\b`,
				`\breward\b`,
			),
		},
		{
			category:    domain.CategoryFinancialBait,
			weight:      3,
			description: "Financial bait",
			triggers: compileTriggers(
				`\brefund\b`, `\bcashback\b`, `\breward\b`,
				`\bfree\b`, `\bbonus\b`, `\bloan approved\b`,
				`\bcredit\b.*\bapproved\b`, `\bmoney\b.*\btransfer\b`,
			),
		},
		{
			category:    domain.CategoryImpersonation,
			weight:      3,
			description: "Authority impersonation",
			triggers: compileTriggers(
				`\bbank\s*(manager|officer)\b`, `\brbi\b`,
				`\bgovernment\b`, `\bincome\s*tax\b`,
				`\bcustomer\s*(care|support)\b`, `\bofficial\b`,
				`\bauthorized\b`, `\bverified\b`,
			),
		},
		{
			category:    domain.CategoryLinkRequest,
			weight:      2,
			description: "Suspicious link sharing",
			triggers: compileTriggers(
				`\bclick\s*(here|link|button)\b`, `\bvisit\b`,
				`\bopen\s*(link|url)\b`, `\bdownload\b`,
				`https?://`, `\bbit\.ly\b`, `\btinyurl\b`,
			),
		},
		{
			category:    domain.CategoryKYC,
			weight:      3,
			description: "KYC/Verification scam",
			triggers: compileTriggers(
				`\bkyc\b`, `\bverif(y|ication)\b`,
				`\bupdate\b.*\b(details|info|account)\b`,
				`\bmandatory\b`, `\bcompulsory\b`,
			),
		},
	}
}

// typePriority resolves the primary scam-type label when categories
// co-occur. Fixed order, not highest score.
var typePriority = []domain.Category{
	domain.CategoryLottery,
	domain.CategoryKYC,
	domain.CategoryFinancialBait,
	domain.CategoryThreat,
	domain.CategoryImpersonation,
	domain.CategorySensitiveRequest,
	domain.CategoryLinkRequest,
	domain.CategoryUrgency,
}

var typeLabels = map[domain.Category]string{
	domain.CategoryLottery:          "Lottery/Prize Scam",
	domain.CategoryKYC:              "KYC/Verification Scam",
	domain.CategoryFinancialBait:    "Financial Fraud",
	domain.CategoryThreat:           "Threat-based Scam",
	domain.CategoryImpersonation:    "Impersonation Scam",
	domain.CategorySensitiveRequest: "Data Theft Scam",
	domain.CategoryLinkRequest:      "Phishing Scam",
	domain.CategoryUrgency:          "Urgency-based Scam",
}

func compileTriggers(patterns ...string) []*regexp.Regexp {
	triggers := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		triggers = append(triggers, regexp.MustCompile(`(?i)`+p))
	}
	return triggers
}

// Ruleset is the operator-tunable portion of detection configuration,
// loaded once at startup from an optional YAML file.
type Ruleset struct {
	// SafeDomains extends the extractor's link suppression list.
	SafeDomains []string `yaml:"safe_domains"`
	// Keywords extends the extractor's suspicious-phrase vocabulary.
	Keywords []string `yaml:"keywords"`
	// ExtraTriggers maps a category name to additional trigger patterns.
	ExtraTriggers map[string][]string `yaml:"extra_triggers"`
}

// LoadRules reads a Ruleset from path. An empty path yields an empty
// Ruleset; a missing or malformed file is an error.
func LoadRules(path string) (Ruleset, error) {
	var rs Ruleset
	if path == "" {
		return rs, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return rs, fmt.Errorf("detect.LoadRules: %w", err)
	}
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return rs, fmt.Errorf("detect.LoadRules: parse %s: %w", path, err)
	}

	// Validate extra trigger patterns now so bad config fails startup
	// instead of the first classify call.
	for name, patterns := range rs.ExtraTriggers {
		if !knownCategory(domain.Category(name)) {
			return rs, fmt.Errorf("detect.LoadRules: unknown category %q", name)
		}
		for _, p := range patterns {
			if _, compileErr := regexp.Compile(`(?i)` + p); compileErr != nil {
				return rs, fmt.Errorf("detect.LoadRules: trigger %q: %w", p, compileErr)
			}
		}
	}

	return rs, nil
}

func knownCategory(c domain.Category) bool {
	for _, known := range typePriority {
		if known == c {
			return true
		}
	}
	return false
}
