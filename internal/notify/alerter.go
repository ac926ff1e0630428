// Package notify pushes operator alerts when a session's intelligence has
// been reported, so a human can follow up while the trail is fresh.
package notify

import (
	"context"
	"fmt"

	slacklib "github.com/slack-go/slack"

	"github.com/decoylab/sundew/internal/session"
)

// Alerter receives a snapshot of each session whose report was delivered.
type Alerter interface {
	Alert(ctx context.Context, snap session.Snapshot) error
}

// SlackAPI abstracts the subset of the Slack client used by SlackAlerter.
// This allows testing without real HTTP calls.
type SlackAPI interface {
	PostMessage(channelID string, options ...slacklib.MsgOption) (string, string, error)
}

// SlackAlerter posts a one-line session summary to a Slack channel.
type SlackAlerter struct {
	api     SlackAPI
	channel string
}

// Compile-time interface check.
var _ Alerter = (*SlackAlerter)(nil) //nolint:gochecknoglobals // compile-time check

// NewSlackAlerter creates a SlackAlerter posting to the given channel.
func NewSlackAlerter(api SlackAPI, channel string) *SlackAlerter {
	return &SlackAlerter{api: api, channel: channel}
}

// Alert posts the summary message.
func (a *SlackAlerter) Alert(_ context.Context, snap session.Snapshot) error {
	text := fmt.Sprintf(
		"Scam session reported: %s | type=%s confidence=%.2f messages=%d | accounts=%d payment=%d links=%d phones=%d",
		snap.SessionID,
		snap.ScamType,
		snap.ScamConfidence,
		snap.TotalMessages,
		len(snap.Intelligence.BankAccounts),
		len(snap.Intelligence.PaymentHandles),
		len(snap.Intelligence.Links),
		len(snap.Intelligence.PhoneNumbers),
	)

	_, _, err := a.api.PostMessage(a.channel, slacklib.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("notify.SlackAlerter.Alert: %w", err)
	}
	return nil
}

// NopAlerter is used when no alert destination is configured.
type NopAlerter struct{}

// Alert does nothing.
func (NopAlerter) Alert(context.Context, session.Snapshot) error { return nil }
