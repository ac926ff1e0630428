package v1_test

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/decoylab/sundew/internal/api/v1"
	"github.com/decoylab/sundew/internal/domain"
	"github.com/decoylab/sundew/internal/session"
)

type mockCore struct {
	handleFunc func(ctx context.Context, sessionID string, msg domain.Message, history []domain.Message) string
	snapFunc   func(sessionID string) (session.Snapshot, bool)
	reportFunc func(ctx context.Context, sessionID string) (domain.Report, bool)
}

func (m *mockCore) HandleMessage(ctx context.Context, sessionID string, msg domain.Message, history []domain.Message) string {
	if m.handleFunc == nil {
		return "ok"
	}
	return m.handleFunc(ctx, sessionID, msg, history)
}

func (m *mockCore) Snapshot(sessionID string) (session.Snapshot, bool) {
	if m.snapFunc == nil {
		return session.Snapshot{}, false
	}
	return m.snapFunc(sessionID)
}

func (m *mockCore) QueueReport(ctx context.Context, sessionID string) (domain.Report, bool) {
	if m.reportFunc == nil {
		return domain.Report{}, false
	}
	return m.reportFunc(ctx, sessionID)
}

type engageBody struct {
	Status string `json:"status"`
	Reply  string `json:"reply"`
}

func TestEngageMessage(t *testing.T) {
	t.Parallel()

	t.Run("full_request", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		var gotSessionID, gotText string
		var gotHistory []domain.Message
		core := &mockCore{
			handleFunc: func(_ context.Context, sessionID string, msg domain.Message, history []domain.Message) string {
				gotSessionID = sessionID
				gotText = msg.Text
				gotHistory = history
				return "Oh dear, what should I do?"
			},
		}
		v1.RegisterHoneypotRoutes(api, core)

		resp := api.Post("/honeypot", map[string]any{
			"sessionId": "abc-123",
			"message": map[string]any{
				"sender":    "scammer",
				"text":      "Your account will be blocked today",
				"timestamp": "2026-02-03T10:00:00Z",
			},
			"conversationHistory": []map[string]any{
				{"sender": "scammer", "text": "Hello"},
				{"sender": "user", "text": "Who is this?"},
			},
		})

		require.Equal(t, http.StatusOK, resp.Code)
		var body engageBody
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "success", body.Status)
		assert.Equal(t, "Oh dear, what should I do?", body.Reply)

		assert.Equal(t, "abc-123", gotSessionID)
		assert.Equal(t, "Your account will be blocked today", gotText)
		require.Len(t, gotHistory, 2)
		assert.Equal(t, domain.SenderSubject, gotHistory[0].Sender)
		assert.Equal(t, domain.SenderAgent, gotHistory[1].Sender)
	})

	t.Run("timestamp_parsed", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		var gotTS time.Time
		core := &mockCore{
			handleFunc: func(_ context.Context, _ string, msg domain.Message, _ []domain.Message) string {
				gotTS = msg.Timestamp
				return "ok"
			},
		}
		v1.RegisterHoneypotRoutes(api, core)

		resp := api.Post("/honeypot", map[string]any{
			"sessionId": "abc-123",
			"message":   map[string]any{"text": "hi", "timestamp": "2026-02-03T10:00:00Z"},
		})

		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC), gotTS.UTC())
	})

	t.Run("empty_body_greets", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		called := false
		core := &mockCore{
			handleFunc: func(context.Context, string, domain.Message, []domain.Message) string {
				called = true
				return "ok"
			},
		}
		v1.RegisterHoneypotRoutes(api, core)

		resp := api.Post("/honeypot")

		require.Equal(t, http.StatusOK, resp.Code)
		var body engageBody
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "Hello! How can I help you today?", body.Reply)
		assert.False(t, called)
	})

	t.Run("malformed_body_stays_in_persona", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterHoneypotRoutes(api, &mockCore{})

		resp := api.Post("/honeypot", strings.NewReader("this is not json"))

		require.Equal(t, http.StatusOK, resp.Code)
		var body engageBody
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "I didn't understand that. Can you please repeat?", body.Reply)
	})

	t.Run("missing_session_id_stays_in_persona", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterHoneypotRoutes(api, &mockCore{})

		resp := api.Post("/honeypot", map[string]any{
			"message": map[string]any{"text": "hello"},
		})

		require.Equal(t, http.StatusOK, resp.Code)
		var body engageBody
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "I didn't understand that. Can you please repeat?", body.Reply)
	})
}

func TestProbeHoneypot(t *testing.T) {
	t.Parallel()

	_, api := humatest.New(t)
	v1.RegisterHoneypotRoutes(api, &mockCore{})

	resp := api.Get("/honeypot")

	require.Equal(t, http.StatusOK, resp.Code)
	var body struct {
		Message string `json:"message"`
		Status  string `json:"status"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "API is active", body.Message)
	assert.Equal(t, "success", body.Status)
}

func TestGetSession(t *testing.T) {
	t.Parallel()

	t.Run("happy_path", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		core := &mockCore{
			snapFunc: func(sessionID string) (session.Snapshot, bool) {
				assert.Equal(t, "abc-123", sessionID)
				return session.Snapshot{
					SessionID:      "abc-123",
					ScamDetected:   true,
					ScamConfidence: 0.75,
					ScamType:       "Lottery/Prize Scam",
					TotalMessages:  4,
					Intelligence: domain.IntelBundle{
						PaymentHandles: []string{"winner@ybl"},
					},
				}, true
			},
		}
		v1.RegisterHoneypotRoutes(api, core)

		resp := api.Get("/sessions/abc-123")

		require.Equal(t, http.StatusOK, resp.Code)
		var body session.Snapshot
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "abc-123", body.SessionID)
		assert.True(t, body.ScamDetected)
		assert.Equal(t, "Lottery/Prize Scam", body.ScamType)
		assert.Equal(t, []string{"winner@ybl"}, body.Intelligence.PaymentHandles)
	})

	t.Run("not_found", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterHoneypotRoutes(api, &mockCore{})

		resp := api.Get("/sessions/ghost")
		assert.Equal(t, http.StatusNotFound, resp.Code)
	})
}

func TestForceReport(t *testing.T) {
	t.Parallel()

	t.Run("happy_path", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		core := &mockCore{
			reportFunc: func(_ context.Context, sessionID string) (domain.Report, bool) {
				assert.Equal(t, "abc-123", sessionID)
				return domain.Report{
					SessionID:    "abc-123",
					ScamDetected: true,
					ExtractedIntelligence: domain.IntelBundle{
						Links: []string{"bit.ly/claim"},
					},
					AgentNotes: "Suspicious URLs detected",
				}, true
			},
		}
		v1.RegisterHoneypotRoutes(api, core)

		resp := api.Post("/sessions/abc-123/report")

		require.Equal(t, http.StatusOK, resp.Code)
		var body struct {
			Status       string             `json:"status"`
			SessionID    string             `json:"sessionId"`
			Intelligence domain.IntelBundle `json:"intelligence"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "report queued", body.Status)
		assert.Equal(t, "abc-123", body.SessionID)
		assert.Equal(t, []string{"bit.ly/claim"}, body.Intelligence.Links)
	})

	t.Run("not_found", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterHoneypotRoutes(api, &mockCore{})

		resp := api.Post("/sessions/ghost/report")
		assert.Equal(t, http.StatusNotFound, resp.Code)
	})
}
