package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cristianleoo/influencerpy/internal/domain"
	"github.com/cristianleoo/influencerpy/internal/ports"
	"github.com/cristianleoo/influencerpy/internal/prompt"
)

// Calibrator rewrites a scout's instruction text from accumulated feedback
// via a single meta-prompt invocation. An empty or unchanged engine response
// leaves the stored instructions untouched.
type Calibrator struct {
	caller engineCaller
	scouts ports.ScoutStore
	logger *slog.Logger
	now    func() time.Time
}

// NewCalibrator wires the engine and the scout store.
func NewCalibrator(engine ports.GenerationEngine, scouts ports.ScoutStore, logger *slog.Logger, retries int, timeout time.Duration) *Calibrator {
	return &Calibrator{
		caller: newEngineCaller(engine, logger, retries, timeout),
		scouts: scouts,
		logger: logger,
		now:    time.Now,
	}
}

// Calibrate composes the meta-prompt from the scout's current instructions
// plus the feedback batch, asks the engine for a revision, and atomically
// replaces the stored instructions on success. It returns the instructions
// in effect afterwards.
func (c *Calibrator) Calibrate(ctx context.Context, scoutID string, feedback []domain.FeedbackRecord) (string, error) {
	scout, err := c.scouts.Get(ctx, scoutID)
	if err != nil {
		return "", fmt.Errorf("load scout %s: %w", scoutID, err)
	}

	current := strings.TrimSpace(scout.Instructions)
	if current == "" {
		current = prompt.DefaultInstructions
	}

	if len(feedback) == 0 {
		c.debug("no feedback to calibrate from", "scout", scout.Name)
		return current, nil
	}

	resp, err := c.caller.invoke(ctx, metaPrompt(current, feedback), nil)
	if err != nil {
		return "", fmt.Errorf("calibrate scout %s: %w", scout.Name, err)
	}

	revised := cleanDraft(resp.Text)
	if revised == "" || revised == current {
		// A blank or identical revision must never wipe configuration.
		c.debug("calibration no-op", "scout", scout.Name, "empty", revised == "")
		return current, nil
	}

	if err := c.scouts.UpdateInstructions(ctx, scout.ID, revised); err != nil {
		return "", fmt.Errorf("persist calibrated instructions for %s: %w", scout.Name, err)
	}

	c.debug("instructions calibrated", "scout", scout.Name, "feedback_records", len(feedback))
	return revised, nil
}

func (c *Calibrator) debug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}

func metaPrompt(current string, feedback []domain.FeedbackRecord) string {
	var b strings.Builder
	b.WriteString(`You are an Expert Prompt Engineer.

Your task is to improve a System Prompt based on user feedback about its output.

Current System Prompt:
`)
	fmt.Fprintf(&b, "%q\n\nUser Feedback on Output:\n", current)

	for _, rec := range feedback {
		fmt.Fprintf(&b, "- verdict: %s", rec.Verdict)
		if rec.Reason != "" {
			fmt.Fprintf(&b, ", reason: %q", rec.Reason)
		}
		b.WriteString("\n")
	}

	b.WriteString(`
Instructions:
1. Analyze the feedback to understand what was wrong or missing in the output.
2. Rewrite the System Prompt to incorporate the feedback naturally.
3. Keep the core goal but refine the tone/style instructions.
4. Return ONLY the new System Prompt text. Do not add explanations.`)
	return b.String()
}
