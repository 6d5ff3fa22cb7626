package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cristianleoo/influencerpy/internal/domain"
	"github.com/cristianleoo/influencerpy/internal/ports"
)

const telegramAPIBase = "https://api.telegram.org"

// Notifier posts finished pipeline results to a Telegram chat for review.
type Notifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier registers bot token and chat identifier.
func NewNotifier(botToken, chatID string) *Notifier {
	return &Notifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  telegramAPIBase,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// PublishResult renders the result and sends it as Markdown. Thread drafts
// are sent as one message per chunk so the review chat mirrors what would be
// posted.
func (n *Notifier) PublishResult(ctx context.Context, result domain.PipelineResult) error {
	if n.botToken == "" || n.chatID == "" {
		return fmt.Errorf("telegram notifier misconfigured")
	}

	for _, message := range renderMessages(result) {
		if err := n.sendMessage(ctx, message); err != nil {
			return err
		}
	}
	return nil
}

func renderMessages(result domain.PipelineResult) []string {
	switch {
	case result.Status == domain.StatusFailed:
		return []string{fmt.Sprintf("*%s* run failed: %s", result.ScoutName, result.Error)}
	case result.NoNewContent:
		return []string{fmt.Sprintf("*%s*: no new content this run.", result.ScoutName)}
	case result.Payload.Draft != nil:
		return renderDraft(result)
	case result.Payload.Report != nil:
		return []string{renderReport(result)}
	default:
		return []string{fmt.Sprintf("*%s* finished with status %s.", result.ScoutName, result.Status)}
	}
}

func renderDraft(result domain.PipelineResult) []string {
	draft := result.Payload.Draft

	var header strings.Builder
	fmt.Fprintf(&header, "*%s* drafted for %s\n", result.ScoutName, draft.Platform)
	fmt.Fprintf(&header, "Source: %s\n%s", draft.Item.Title, draft.Item.URL)
	if len(result.FailedSources) > 0 {
		fmt.Fprintf(&header, "\n_Sources failed: %s_", strings.Join(result.FailedSources, ", "))
	}

	messages := []string{header.String()}
	messages = append(messages, draft.Chunks...)
	return messages
}

func renderReport(result domain.PipelineResult) string {
	report := result.Payload.Report

	var b strings.Builder
	fmt.Fprintf(&b, "*%s* scouting report (%d items)\n", result.ScoutName, len(report.Items))
	for i, item := range report.Items {
		fmt.Fprintf(&b, "\n%d. *%s*\n%s\n%s\n", i+1, item.Item.Title, item.Summary, item.Item.URL)
	}
	if len(result.FailedSources) > 0 {
		fmt.Fprintf(&b, "\n_Sources failed: %s_", strings.Join(result.FailedSources, ", "))
	}
	return b.String()
}

func (n *Notifier) sendMessage(ctx context.Context, text string) error {
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", text)
	form.Set("parse_mode", "Markdown")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram error: %s", resp.Status)
	}
	return nil
}
