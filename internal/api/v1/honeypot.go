// Package v1 exposes the honeypot HTTP contract. Request parsing is
// deliberately forgiving: the upstream tester sends empty and malformed
// bodies, and the engagement must answer those with a polite reply rather
// than a validation error.
package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/decoylab/sundew/internal/domain"
	"github.com/decoylab/sundew/internal/session"
)

// Core is the decision engine surface the transport layer calls into.
type Core interface {
	HandleMessage(ctx context.Context, sessionID string, msg domain.Message, history []domain.Message) string
	Snapshot(sessionID string) (session.Snapshot, bool)
	QueueReport(ctx context.Context, sessionID string) (domain.Report, bool)
}

// wireMessage is a conversation message as it appears on the wire; the
// timestamp is a free-form string that may be absent or malformed.
type wireMessage struct {
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// engageRequest is the honeypot endpoint's body.
type engageRequest struct {
	SessionID           string        `json:"sessionId"`
	Message             wireMessage   `json:"message"`
	ConversationHistory []wireMessage `json:"conversationHistory"`
	Metadata            struct {
		Channel  string `json:"channel"`
		Language string `json:"language"`
		Locale   string `json:"locale"`
	} `json:"metadata"`
}

type EngageInput struct {
	RawBody []byte
}

type EngageOutput struct {
	Body struct {
		Status string `json:"status"`
		Reply  string `json:"reply"`
	}
}

type ProbeOutput struct {
	Body struct {
		Message string `json:"message"`
		Status  string `json:"status"`
	}
}

type GetSessionInput struct {
	ID string `path:"id" doc:"Session ID"`
}

type GetSessionOutput struct {
	Body session.Snapshot
}

type ForceReportInput struct {
	ID string `path:"id" doc:"Session ID"`
}

type ForceReportOutput struct {
	Body struct {
		Status       string             `json:"status"`
		SessionID    string             `json:"sessionId"`
		Intelligence domain.IntelBundle `json:"intelligence"`
	}
}

const (
	greetingReply = "Hello! How can I help you today?"
	confusedReply = "I didn't understand that. Can you please repeat?"
)

// RegisterHoneypotRoutes wires the honeypot operations onto the API.
func RegisterHoneypotRoutes(api huma.API, core Core) {
	huma.Register(api, huma.Operation{
		OperationID: "engage-message",
		Method:      http.MethodPost,
		Path:        "/honeypot",
		Summary:     "Process an inbound scam message and reply in persona",
		Tags:        []string{"Honeypot"},
	}, func(ctx context.Context, input *EngageInput) (*EngageOutput, error) {
		out := &EngageOutput{}
		out.Body.Status = "success"

		if len(input.RawBody) == 0 {
			out.Body.Reply = greetingReply
			return out, nil
		}

		var req engageRequest
		if err := json.Unmarshal(input.RawBody, &req); err != nil || req.SessionID == "" {
			out.Body.Reply = confusedReply
			return out, nil
		}

		history := make([]domain.Message, 0, len(req.ConversationHistory))
		for _, m := range req.ConversationHistory {
			history = append(history, toDomainMessage(m))
		}

		out.Body.Reply = core.HandleMessage(ctx, req.SessionID, toDomainMessage(req.Message), history)
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "probe-honeypot",
		Method:      http.MethodGet,
		Path:        "/honeypot",
		Summary:     "Reachability probe",
		Tags:        []string{"Honeypot"},
	}, func(_ context.Context, _ *struct{}) (*ProbeOutput, error) {
		out := &ProbeOutput{}
		out.Body.Message = "API is active"
		out.Body.Status = "success"
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-session",
		Method:      http.MethodGet,
		Path:        "/sessions/{id}",
		Summary:     "Inspect a session's accumulated state",
		Tags:        []string{"Sessions"},
	}, func(_ context.Context, input *GetSessionInput) (*GetSessionOutput, error) {
		snap, ok := core.Snapshot(input.ID)
		if !ok {
			return nil, huma.Error404NotFound("session not found")
		}
		return &GetSessionOutput{Body: snap}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "force-report",
		Method:      http.MethodPost,
		Path:        "/sessions/{id}/report",
		Summary:     "Force report delivery for a session",
		Tags:        []string{"Sessions"},
	}, func(ctx context.Context, input *ForceReportInput) (*ForceReportOutput, error) {
		rep, ok := core.QueueReport(ctx, input.ID)
		if !ok {
			return nil, huma.Error404NotFound("session not found")
		}

		out := &ForceReportOutput{}
		out.Body.Status = "report queued"
		out.Body.SessionID = rep.SessionID
		out.Body.Intelligence = rep.ExtractedIntelligence
		return out, nil
	})
}

// toDomainMessage converts a wire message, substituting the current time
// for missing or malformed timestamps and defaulting the sender to the
// subject (inbound traffic is scammer-authored unless marked otherwise).
func toDomainMessage(m wireMessage) domain.Message {
	ts, err := time.Parse(time.RFC3339, m.Timestamp)
	if err != nil {
		ts = time.Now().UTC()
	}

	sender := domain.SenderSubject
	if m.Sender == string(domain.SenderAgent) {
		sender = domain.SenderAgent
	}

	return domain.Message{
		Sender:    sender,
		Text:      m.Text,
		Timestamp: ts,
	}
}
