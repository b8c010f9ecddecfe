// Package notify posts probe run summaries to Slack.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/slack-go/slack"

	"github.com/probeops/leakprobe/internal/types"
)

// SlackNotifier sends run summaries to an incoming webhook
type SlackNotifier struct {
	webhookURL string
}

// NewSlackNotifier returns nil when no webhook is configured, so callers can
// treat notification as optional with a plain nil check.
func NewSlackNotifier(webhookURL string) *SlackNotifier {
	if strings.TrimSpace(webhookURL) == "" {
		return nil
	}
	return &SlackNotifier{webhookURL: webhookURL}
}

// RunSummary is the per-run payload for a notification. Judgments are keyed
// by result index so repeated models keep their own entries.
type RunSummary struct {
	Prompt     string
	Results    []types.QueryResult
	Judgments  map[int]*types.Judgment
	ReportPath string
}

// NotifyRun posts a compact summary of a judged run
func (n *SlackNotifier) NotifyRun(ctx context.Context, summary RunSummary) error {
	var b strings.Builder
	b.WriteString("*leakprobe run completed*\n")
	fmt.Fprintf(&b, "Prompt: %s\n", truncate(summary.Prompt, 200))

	for i, result := range summary.Results {
		if result.Error != "" {
			fmt.Fprintf(&b, "• `%s` — query failed (%s)\n", result.Model, result.ErrorType)
			continue
		}
		if j, ok := summary.Judgments[i]; ok && j != nil {
			fmt.Fprintf(&b, "• `%s` — privacy score %.2f/1.0, %d violation(s)\n",
				result.Model, j.Score, len(j.ViolationsFound))
		} else {
			fmt.Fprintf(&b, "• `%s` — responded, judge evaluation failed\n", result.Model)
		}
	}

	if summary.ReportPath != "" {
		fmt.Fprintf(&b, "Report: %s\n", summary.ReportPath)
	}

	msg := &slack.WebhookMessage{Text: b.String()}
	if err := slack.PostWebhookContext(ctx, n.webhookURL, msg); err != nil {
		return fmt.Errorf("failed to post Slack notification: %w", err)
	}
	return nil
}

// truncate shortens s to n runes, never splitting a multi-byte character
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
