package honeypot_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/decoylab/sundew/internal/detect"
	"github.com/decoylab/sundew/internal/domain"
	"github.com/decoylab/sundew/internal/engage"
	"github.com/decoylab/sundew/internal/honeypot"
	"github.com/decoylab/sundew/internal/intel"
	"github.com/decoylab/sundew/internal/session"
)

type fakeDeliverer struct {
	mu      sync.Mutex
	reports []domain.Report
	err     error
	done    chan struct{}
}

func newFakeDeliverer(err error) *fakeDeliverer {
	return &fakeDeliverer{err: err, done: make(chan struct{}, 16)}
}

func (f *fakeDeliverer) Deliver(_ context.Context, rep domain.Report) error {
	f.mu.Lock()
	f.reports = append(f.reports, rep)
	f.mu.Unlock()
	f.done <- struct{}{}
	return f.err
}

func (f *fakeDeliverer) wait(t *testing.T) {
	t.Helper()
	select {
	case <-f.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for report delivery")
	}
}

func (f *fakeDeliverer) delivered() []domain.Report {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Report, len(f.reports))
	copy(out, f.reports)
	return out
}

type fakeAlerter struct {
	mu    sync.Mutex
	snaps []session.Snapshot
	done  chan struct{}
}

func newFakeAlerter() *fakeAlerter {
	return &fakeAlerter{done: make(chan struct{}, 16)}
}

func (f *fakeAlerter) Alert(_ context.Context, snap session.Snapshot) error {
	f.mu.Lock()
	f.snaps = append(f.snaps, snap)
	f.mu.Unlock()
	f.done <- struct{}{}
	return nil
}

func (f *fakeAlerter) wait(t *testing.T) {
	t.Helper()
	select {
	case <-f.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for alert")
	}
}

func newEngine(deliverer *fakeDeliverer, alerter *fakeAlerter) (*honeypot.Engine, *session.Store) {
	store := session.NewStore(session.Policy{
		MaxMessages:          20,
		MinMessagesForReport: 3,
		IdleTimeout:          time.Hour,
	})
	extractor := intel.NewExtractor(nil, nil)
	classifier := detect.NewClassifier(extractor, detect.Ruleset{})
	engager := engage.NewEngager(nil)
	return honeypot.New(store, extractor, classifier, engager, deliverer, alerter), store
}

func TestHandleMessage(t *testing.T) {
	t.Parallel()
	engine, store := newEngine(newFakeDeliverer(nil), newFakeAlerter())

	reply := engine.HandleMessage(context.Background(), "s1",
		domain.Message{Text: "Hello sir, your electricity bill is pending"}, nil)
	assert.NotEmpty(t, reply)

	snap, ok := store.Snapshot("s1")
	require.True(t, ok)
	require.Len(t, snap.Messages, 2)
	assert.Equal(t, domain.SenderSubject, snap.Messages[0].Sender)
	assert.Equal(t, domain.SenderAgent, snap.Messages[1].Sender)
	assert.Equal(t, reply, snap.Messages[1].Text)
	assert.NotEmpty(t, snap.AgentNotes)
}

func TestHandleMessageScamWithIntelTriggersReport(t *testing.T) {
	t.Parallel()
	deliverer := newFakeDeliverer(nil)
	alerter := newFakeAlerter()
	engine, store := newEngine(deliverer, alerter)

	msg := domain.Message{
		Text: "Congratulations, you have won a lottery prize! Claim immediately, pay the processing fee to winner@ybl",
	}
	engine.HandleMessage(context.Background(), "s1", msg, nil)

	deliverer.wait(t)
	alerter.wait(t)

	reports := deliverer.delivered()
	require.Len(t, reports, 1)
	assert.Equal(t, "s1", reports[0].SessionID)
	assert.True(t, reports[0].ScamDetected)
	assert.Equal(t, []string{"winner@ybl"}, reports[0].ExtractedIntelligence.PaymentHandles)
	assert.NotEmpty(t, reports[0].AgentNotes)

	snap, _ := store.Snapshot("s1")
	assert.True(t, snap.Reported)
	assert.Equal(t, "Lottery/Prize Scam", snap.ScamType)

	alerter.mu.Lock()
	defer alerter.mu.Unlock()
	require.Len(t, alerter.snaps, 1)
	assert.Equal(t, "s1", alerter.snaps[0].SessionID)
}

func TestHandleMessageBenignDoesNotReport(t *testing.T) {
	t.Parallel()
	deliverer := newFakeDeliverer(nil)
	engine, store := newEngine(deliverer, newFakeAlerter())

	engine.HandleMessage(context.Background(), "s1",
		domain.Message{Text: "Hi, are we still meeting for lunch tomorrow?"}, nil)

	snap, _ := store.Snapshot("s1")
	assert.False(t, snap.ScamDetected)
	assert.False(t, snap.Reported)
	assert.Empty(t, deliverer.delivered())
}

func TestFailedDeliveryStaysRetryable(t *testing.T) {
	t.Parallel()
	deliverer := newFakeDeliverer(errors.New("endpoint down"))
	alerter := newFakeAlerter()
	engine, store := newEngine(deliverer, alerter)

	msg := domain.Message{
		Text: "You won the lottery! Claim the prize now, send fee to winner@ybl",
	}
	engine.HandleMessage(context.Background(), "s1", msg, nil)
	deliverer.wait(t)

	snap, _ := store.Snapshot("s1")
	assert.False(t, snap.Reported)
	alerter.mu.Lock()
	assert.Empty(t, alerter.snaps)
	alerter.mu.Unlock()
}

func TestQueueReport(t *testing.T) {
	t.Parallel()

	t.Run("unknown session", func(t *testing.T) {
		t.Parallel()
		engine, _ := newEngine(newFakeDeliverer(nil), newFakeAlerter())
		_, ok := engine.QueueReport(context.Background(), "ghost")
		assert.False(t, ok)
	})

	t.Run("forces delivery regardless of policy", func(t *testing.T) {
		t.Parallel()
		deliverer := newFakeDeliverer(nil)
		engine, store := newEngine(deliverer, newFakeAlerter())
		store.GetOrCreate("s1")

		rep, ok := engine.QueueReport(context.Background(), "s1")
		require.True(t, ok)
		assert.Equal(t, "s1", rep.SessionID)
		assert.False(t, rep.ScamDetected)

		deliverer.wait(t)
		require.Len(t, deliverer.delivered(), 1)
	})

	t.Run("already reported is not re-delivered", func(t *testing.T) {
		t.Parallel()
		deliverer := newFakeDeliverer(nil)
		engine, store := newEngine(deliverer, newFakeAlerter())
		store.GetOrCreate("s1")
		store.MarkReported("s1")

		rep, ok := engine.QueueReport(context.Background(), "s1")
		require.True(t, ok)
		assert.Equal(t, "s1", rep.SessionID)

		time.Sleep(50 * time.Millisecond)
		assert.Empty(t, deliverer.delivered())
	})
}

func TestHandleMessageHistoryFeedsIntel(t *testing.T) {
	t.Parallel()
	engine, store := newEngine(newFakeDeliverer(nil), newFakeAlerter())

	history := []domain.Message{
		{Sender: domain.SenderSubject, Text: "Transfer to account 123456789012", Timestamp: time.Now()},
		{Sender: domain.SenderAgent, Text: "Which account? Mine is 999888777666", Timestamp: time.Now()},
	}
	engine.HandleMessage(context.Background(), "s1",
		domain.Message{Text: "Did you send the money?"}, history)

	snap, _ := store.Snapshot("s1")
	// Subject history contributes artifacts; the decoy's own lines do not.
	assert.Contains(t, snap.Intelligence.BankAccounts, "123456789012")
	assert.NotContains(t, snap.Intelligence.BankAccounts, "999888777666")
}
