package domain

// Report is the payload handed to the external evaluation endpoint once a
// session has produced enough evidence. Field names are part of the wire
// contract and must not change.
type Report struct {
	SessionID              string      `json:"sessionId"`
	ScamDetected           bool        `json:"scamDetected"`
	TotalMessagesExchanged int         `json:"totalMessagesExchanged"`
	ExtractedIntelligence  IntelBundle `json:"extractedIntelligence"`
	AgentNotes             string      `json:"agentNotes"`
}
