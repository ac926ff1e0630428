// Package honeypot wires the extractor, classifier, session store, reply
// engager, reporter, and alerter into the per-message pipeline.
package honeypot

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/decoylab/sundew/internal/detect"
	"github.com/decoylab/sundew/internal/domain"
	"github.com/decoylab/sundew/internal/engage"
	"github.com/decoylab/sundew/internal/intel"
	"github.com/decoylab/sundew/internal/notify"
	"github.com/decoylab/sundew/internal/session"
)

const reportDeliveryTimeout = 15 * time.Second

// Deliverer posts a finished report to the evaluation endpoint.
type Deliverer interface {
	Deliver(ctx context.Context, rep domain.Report) error
}

// Engine runs the decision pipeline for each inbound message:
// extract -> classify -> merge into session -> reply -> maybe report.
type Engine struct {
	store      *session.Store
	extractor  *intel.Extractor
	classifier *detect.Classifier
	engager    *engage.Engager
	reporter   Deliverer
	alerter    notify.Alerter
}

// New creates an Engine. reporter may be nil (reporting disabled, used in
// tests); alerter must not be nil (use notify.NopAlerter).
func New(
	store *session.Store,
	extractor *intel.Extractor,
	classifier *detect.Classifier,
	engager *engage.Engager,
	reporter Deliverer,
	alerter notify.Alerter,
) *Engine {
	return &Engine{
		store:      store,
		extractor:  extractor,
		classifier: classifier,
		engager:    engager,
		reporter:   reporter,
		alerter:    alerter,
	}
}

// HandleMessage runs the full pipeline for one inbound subject message and
// returns the persona's reply. The decision path is synchronous; report
// delivery happens in the background on a snapshot, never under a session
// lock.
func (e *Engine) HandleMessage(ctx context.Context, sessionID string, msg domain.Message, history []domain.Message) string {
	e.store.GetOrCreate(sessionID)
	e.store.AppendMessage(sessionID, domain.SenderSubject, msg.Text, msg.Timestamp)

	verdict := e.classifier.Classify(msg.Text, history)
	e.store.RecordVerdict(sessionID, verdict)

	// Accumulate artifacts from the message plus all subject history.
	combined := msg.Text
	for _, m := range history {
		if m.Sender == domain.SenderSubject {
			combined += " " + m.Text
		}
	}
	e.store.MergeIntel(sessionID, e.extractor.Extract(combined))

	snap, _ := e.store.Snapshot(sessionID)
	turn := snap.TotalMessages

	reply := e.engager.Reply(ctx, msg.Text, history, verdict.ScamType, turn)
	e.store.AppendMessage(sessionID, domain.SenderAgent, reply, time.Time{})

	if len(verdict.Notes) > 0 {
		e.store.AddNote(sessionID, strings.Join(verdict.Notes, "; "))
	}
	e.store.AddNote(sessionID, engage.StrategyNotes(msg.Text, verdict.ScamType, turn))

	if e.store.ShouldReport(sessionID) {
		go e.deliverReport(sessionID)
	}

	return reply
}

// Snapshot exposes a point-in-time copy of a session.
func (e *Engine) Snapshot(sessionID string) (session.Snapshot, bool) {
	return e.store.Snapshot(sessionID)
}

// QueueReport forces delivery for a session regardless of the report
// policy. Returns the payload that will be sent and false if the session
// does not exist. Already-reported sessions are not re-delivered.
func (e *Engine) QueueReport(_ context.Context, sessionID string) (domain.Report, bool) {
	rep, ok := e.store.Report(sessionID)
	if !ok {
		return domain.Report{}, false
	}

	snap, _ := e.store.Snapshot(sessionID)
	if !snap.Reported {
		go e.deliverReport(sessionID)
	}
	return rep, true
}

// deliverReport snapshots the session, posts the payload, and marks the
// session reported only on success so a failed delivery stays retryable.
func (e *Engine) deliverReport(sessionID string) {
	if e.reporter == nil {
		return
	}

	rep, ok := e.store.Report(sessionID)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), reportDeliveryTimeout)
	defer cancel()

	if err := e.reporter.Deliver(ctx, rep); err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("report delivery failed")
		return
	}

	// Only the call that flips the flag sends the operator alert, so a
	// race between the policy path and a forced report alerts once.
	if !e.store.MarkReported(sessionID) {
		return
	}

	snap, ok := e.store.Snapshot(sessionID)
	if !ok {
		return
	}
	if err := e.alerter.Alert(ctx, snap); err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("operator alert failed")
	}
}
