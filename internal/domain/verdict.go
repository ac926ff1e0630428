package domain

// Category is one tactic family a scam message can exhibit.
type Category string

const (
	CategoryUrgency          Category = "urgency"
	CategoryThreat           Category = "threat"
	CategorySensitiveRequest Category = "sensitive_request"
	CategoryLottery          Category = "lottery"
	CategoryFinancialBait    Category = "financial_bait"
	CategoryImpersonation    Category = "impersonation"
	CategoryLinkRequest      Category = "link_request"
	CategoryKYC              Category = "kyc"
)

// Verdict is the output of classifying a single inbound message in the
// context of its conversation. Produced fresh per message, never mutated.
type Verdict struct {
	IsScam     bool       `json:"isScam"`
	Confidence float64    `json:"confidence"`
	Categories []Category `json:"categories"`
	ScamType   string     `json:"scamType"`
	Notes      []string   `json:"notes"`
}
