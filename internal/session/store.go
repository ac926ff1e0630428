// Package session owns per-conversation mutable state: message history,
// accumulated intelligence, scam verdict aggregation, and the policies that
// decide when a conversation is reportable or should end.
package session

import (
	"strings"
	"sync"
	"time"

	"github.com/decoylab/sundew/internal/domain"
)

// Policy holds the tunable lifecycle thresholds.
type Policy struct {
	// MaxMessages caps a conversation; reaching it ends engagement.
	MaxMessages int
	// MinMessagesForReport is the fallback report trigger when no
	// actionable artifact has been extracted yet.
	MinMessagesForReport int
	// IdleTimeout is how long a session may sit without activity before
	// the sweep removes it.
	IdleTimeout time.Duration
}

// intelMessageFloor is the message count at which a session with actionable
// intel stops engaging; dragging the conversation out further yields
// diminishing returns.
const intelMessageFloor = 8

// defaultAgentNotes is reported when a session produced no observations.
const defaultAgentNotes = "Scammer engaged successfully"

// state is one session's record. All fields are guarded by mu; callers
// outside this package only ever see copies.
type state struct {
	mu sync.Mutex

	id             string
	messages       []domain.Message
	scamDetected   bool
	scamConfidence float64
	scamType       string
	intel          domain.IntelBundle
	agentNotes     []string
	createdAt      time.Time
	lastActivity   time.Time
	reported       bool
}

// Snapshot is a point-in-time copy of a session, safe to hand to reporting
// collaborators without further locking.
type Snapshot struct {
	SessionID      string             `json:"sessionId"`
	ScamDetected   bool               `json:"scamDetected"`
	ScamConfidence float64            `json:"scamConfidence"`
	ScamType       string             `json:"scamType"`
	TotalMessages  int                `json:"totalMessages"`
	Messages       []domain.Message   `json:"messages"`
	Intelligence   domain.IntelBundle `json:"intelligence"`
	AgentNotes     []string           `json:"agentNotes"`
	CreatedAt      time.Time          `json:"createdAt"`
	LastActivityAt time.Time          `json:"lastActivityAt"`
	Reported       bool               `json:"reported"`
}

// Store is the process-wide session registry. The map is guarded by a
// read-write mutex held only for lookup and insertion; each session carries
// its own lock, so operations on different sessions do not serialize.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*state
	policy   Policy
}

// NewStore creates an empty Store with the given policy.
func NewStore(policy Policy) *Store {
	return &Store{
		sessions: make(map[string]*state),
		policy:   policy,
	}
}

// GetOrCreate returns a snapshot of the session for id, creating it on
// first reference. Always touches the activity timestamp.
func (s *Store) GetOrCreate(id string) Snapshot {
	sess := s.getOrCreate(id)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.lastActivity = time.Now().UTC()
	return sess.snapshotLocked()
}

func (s *Store) getOrCreate(id string) *state {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if ok {
		return sess
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Another caller may have won the race between the two locks.
	if sess, ok = s.sessions[id]; ok {
		return sess
	}
	now := time.Now().UTC()
	sess = &state{
		id:           id,
		createdAt:    now,
		lastActivity: now,
	}
	s.sessions[id] = sess
	return sess
}

func (s *Store) get(id string) (*state, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// AppendMessage records a message on an existing session. Appending is
// never a creation path: unknown ids are a silent no-op, since the caller
// may race a cleanup sweep. A zero timestamp is replaced with the current
// time rather than rejected.
func (s *Store) AppendMessage(id string, sender domain.Sender, text string, timestamp time.Time) {
	sess, ok := s.get(id)
	if !ok {
		return
	}

	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.messages = append(sess.messages, domain.Message{
		Sender:    sender,
		Text:      text,
		Timestamp: timestamp,
	})
	sess.lastActivity = time.Now().UTC()
}

// RecordVerdict merges a classification into the session. scamDetected is a
// monotonic OR, confidence a running maximum, and the scam type is
// last-write-wins for non-empty resolutions.
func (s *Store) RecordVerdict(id string, verdict domain.Verdict) {
	sess, ok := s.get(id)
	if !ok {
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if verdict.IsScam {
		sess.scamDetected = true
	}
	if verdict.Confidence > sess.scamConfidence {
		sess.scamConfidence = verdict.Confidence
	}
	if verdict.ScamType != "" {
		sess.scamType = verdict.ScamType
	}
	sess.lastActivity = time.Now().UTC()
}

// MergeIntel unions a bundle into the session's accumulated intelligence.
func (s *Store) MergeIntel(id string, bundle domain.IntelBundle) {
	sess, ok := s.get(id)
	if !ok {
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.intel.Merge(bundle)
	sess.lastActivity = time.Now().UTC()
}

// AddNote appends an observation if it is non-empty and not already
// recorded. Notes keep insertion order.
func (s *Store) AddNote(id, note string) {
	if note == "" {
		return
	}
	sess, ok := s.get(id)
	if !ok {
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	for _, existing := range sess.agentNotes {
		if existing == note {
			return
		}
	}
	sess.agentNotes = append(sess.agentNotes, note)
	sess.lastActivity = time.Now().UTC()
}

// MarkReported flips the reported flag and returns true iff this call did
// the flipping. Idempotent: the second call is a safe no-op returning
// false, which lets a delivery retry loop avoid double-counting.
func (s *Store) MarkReported(id string) bool {
	sess, ok := s.get(id)
	if !ok {
		return false
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.reported {
		return false
	}
	sess.reported = true
	sess.lastActivity = time.Now().UTC()
	return true
}

// ShouldReport reports whether the session has enough evidence to hand off:
// scam detected, not yet reported, and either an actionable artifact or the
// minimum message count. Evaluated fresh on every call.
func (s *Store) ShouldReport(id string) bool {
	sess, ok := s.get(id)
	if !ok {
		return false
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if !sess.scamDetected || sess.reported {
		return false
	}
	return sess.intel.HasActionable() || len(sess.messages) >= s.policy.MinMessagesForReport
}

// ShouldEndEngagement reports whether the conversation should stop: the
// message cap was reached, or actionable intel exists and the conversation
// is already long enough. Independent of the reporting axis.
func (s *Store) ShouldEndEngagement(id string) bool {
	sess, ok := s.get(id)
	if !ok {
		return false
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if len(sess.messages) >= s.policy.MaxMessages {
		return true
	}
	return sess.intel.HasActionable() && len(sess.messages) >= intelMessageFloor
}

// Snapshot returns a point-in-time deep copy of the session, or false if it
// does not exist.
func (s *Store) Snapshot(id string) (Snapshot, bool) {
	sess, ok := s.get(id)
	if !ok {
		return Snapshot{}, false
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.snapshotLocked(), true
}

// Report builds the external reporting payload for the session, or false if
// it does not exist.
func (s *Store) Report(id string) (domain.Report, bool) {
	sess, ok := s.get(id)
	if !ok {
		return domain.Report{}, false
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	notes := defaultAgentNotes
	if len(sess.agentNotes) > 0 {
		notes = strings.Join(sess.agentNotes, "; ")
	}

	return domain.Report{
		SessionID:              sess.id,
		ScamDetected:           sess.scamDetected,
		TotalMessagesExchanged: len(sess.messages),
		ExtractedIntelligence:  sess.intel.Clone(),
		AgentNotes:             notes,
	}, true
}

// SweepExpired removes every session idle longer than the policy timeout
// and returns the count removed. Candidates are collected without the store
// write lock and re-checked under their own lock immediately before
// deletion, so a session touched mid-sweep survives.
func (s *Store) SweepExpired(now time.Time) int {
	s.mu.RLock()
	candidates := make([]*state, 0, len(s.sessions))
	for _, sess := range s.sessions {
		candidates = append(candidates, sess)
	}
	s.mu.RUnlock()

	cutoff := now.Add(-s.policy.IdleTimeout)
	removed := 0
	for _, sess := range candidates {
		sess.mu.Lock()
		expired := sess.lastActivity.Before(cutoff)
		sess.mu.Unlock()
		if !expired {
			continue
		}

		s.mu.Lock()
		current, ok := s.sessions[sess.id]
		if ok && current == sess {
			current.mu.Lock()
			if current.lastActivity.Before(cutoff) {
				delete(s.sessions, sess.id)
				removed++
			}
			current.mu.Unlock()
		}
		s.mu.Unlock()
	}
	return removed
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// snapshotLocked copies all fields. Caller must hold the session lock.
func (st *state) snapshotLocked() Snapshot {
	messages := make([]domain.Message, len(st.messages))
	copy(messages, st.messages)
	notes := make([]string, len(st.agentNotes))
	copy(notes, st.agentNotes)

	return Snapshot{
		SessionID:      st.id,
		ScamDetected:   st.scamDetected,
		ScamConfidence: st.scamConfidence,
		ScamType:       st.scamType,
		TotalMessages:  len(st.messages),
		Messages:       messages,
		Intelligence:   st.intel.Clone(),
		AgentNotes:     notes,
		CreatedAt:      st.createdAt,
		LastActivityAt: st.lastActivity,
		Reported:       st.reported,
	}
}
