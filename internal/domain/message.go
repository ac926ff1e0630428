package domain

import "time"

// Sender identifies who authored a conversation message.
type Sender string

const (
	// SenderSubject is the suspected scammer on the other end of the line.
	SenderSubject Sender = "scammer"
	// SenderAgent is the decoy persona operated by this service.
	SenderAgent Sender = "user"
)

// Message is a single immutable entry in a conversation. Position in the
// session's message sequence is the turn number.
type Message struct {
	Sender    Sender    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}
