package engage

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/decoylab/sundew/internal/domain"
)

func newTestGenerator(srv *httptest.Server) *GeminiGenerator {
	g := NewGeminiGenerator("test-key", "gemini-test")
	g.baseURL = srv.URL
	g.client = srv.Client()
	return g
}

func geminiBody(text string) string {
	return fmt.Sprintf(`{"candidates":[{"content":{"parts":[{"text":%q}]}}]}`, text)
}

func TestGeminiGeneratorReply(t *testing.T) {
	t.Parallel()

	var gotPath string
	var gotBody geminiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(geminiBody("Oh dear, which account number?")))
	}))
	defer srv.Close()

	g := newTestGenerator(srv)
	history := []domain.Message{
		{Sender: domain.SenderSubject, Text: "Your KYC expired", Timestamp: time.Now()},
		{Sender: domain.SenderAgent, Text: "What is KYC?", Timestamp: time.Now()},
	}

	reply, err := g.Reply(context.Background(), "Pay now to reactivate", history, "KYC/Verification Scam", 3)
	require.NoError(t, err)
	assert.Equal(t, "Oh dear, which account number?", reply)

	assert.Equal(t, "/v1beta/models/gemini-test:generateContent", gotPath)
	require.Len(t, gotBody.Contents, 1)
	require.Len(t, gotBody.Contents[0].Parts, 1)

	prompt := gotBody.Contents[0].Parts[0].Text
	assert.Contains(t, prompt, "KYC/Verification Scam")
	assert.Contains(t, prompt, "Scammer: Your KYC expired")
	assert.Contains(t, prompt, "You: What is KYC?")
	assert.Contains(t, prompt, "LATEST SCAMMER MESSAGE: Pay now to reactivate")
	assert.Contains(t, prompt, "CURRENT ENGAGEMENT PHASE: building_trust")
}

func TestGeminiGeneratorReplyErrors(t *testing.T) {
	t.Parallel()

	t.Run("non-200 status", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "quota", http.StatusTooManyRequests)
		}))
		defer srv.Close()

		_, err := newTestGenerator(srv).Reply(context.Background(), "hi", nil, "", 1)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unexpected status 429")
	})

	t.Run("no candidates", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"candidates":[]}`))
		}))
		defer srv.Close()

		_, err := newTestGenerator(srv).Reply(context.Background(), "hi", nil, "", 1)
		require.ErrorIs(t, err, ErrEmptyReply)
	})

	t.Run("whitespace-only text", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(geminiBody("  \n  ")))
		}))
		defer srv.Close()

		_, err := newTestGenerator(srv).Reply(context.Background(), "hi", nil, "", 1)
		require.ErrorIs(t, err, ErrEmptyReply)
	})

	t.Run("malformed body", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("not json"))
		}))
		defer srv.Close()

		_, err := newTestGenerator(srv).Reply(context.Background(), "hi", nil, "", 1)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decode")
	})
}

func TestBuildPromptHistoryWindow(t *testing.T) {
	t.Parallel()

	var history []domain.Message
	for i := 0; i < 10; i++ {
		history = append(history, domain.Message{
			Sender: domain.SenderSubject,
			Text:   fmt.Sprintf("history entry %d", i),
		})
	}

	prompt := buildPrompt("latest", history, "", 1)
	// Only the most recent six history entries survive.
	assert.NotContains(t, prompt, "history entry 0")
	assert.NotContains(t, prompt, "history entry 3")
	assert.Contains(t, prompt, "Scammer: history entry 4")
	assert.Contains(t, prompt, "Scammer: history entry 9")
	assert.Contains(t, prompt, "SCAM TYPE DETECTED: unknown")
}

func TestCleanReply(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"trims whitespace and quotes", `  "Oh my, what happened?"  `, "Oh my, what happened?"},
		{"keeps first line only", "Which bank?\nAlso here is reasoning", "Which bank?"},
		{"clamps long replies", strings.Repeat("a", 250), strings.Repeat("a", 200) + "..."},
		{"empty stays empty", "   ", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, cleanReply(tc.in))
		})
	}
}
