package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cristianleoo/influencerpy/internal/domain"
	"github.com/cristianleoo/influencerpy/internal/ports"
	"github.com/cristianleoo/influencerpy/internal/prompt"
)

const defaultMaxScoutingItems = 10

// Selector picks the best candidate (generation intent) or ranks a subset
// (scouting intent) with a single generation engine call per run. It is a
// pure function of its inputs plus that call; it never touches the ledger.
type Selector struct {
	caller   engineCaller
	maxItems int
	now      func() time.Time
}

// NewSelector wires the generation engine with retry policy applied at this
// call site.
func NewSelector(engine ports.GenerationEngine, logger *slog.Logger, retries int, timeout time.Duration, maxItems int) *Selector {
	if maxItems <= 0 {
		maxItems = defaultMaxScoutingItems
	}
	return &Selector{
		caller:   newEngineCaller(engine, logger, retries, timeout),
		maxItems: maxItems,
		now:      time.Now,
	}
}

type generationResponse struct {
	Ranking []struct {
		Choice int          `json:"choice"`
		Scores domain.Score `json:"scores"`
	} `json:"ranking"`
}

type scoutingResponse struct {
	Items []struct {
		Choice  int    `json:"choice"`
		Summary string `json:"summary"`
	} `json:"items"`
}

// SelectForGeneration issues one engine call with the full candidate set and
// returns the top pick with its named scores. A response that references a
// candidate outside the supplied set fails with an invalid-reference
// SelectionError instead of silently substituting.
func (s *Selector) SelectForGeneration(ctx context.Context, candidates []domain.ContentItem, instructions string) (domain.SelectionResult, error) {
	if len(candidates) == 0 {
		return domain.SelectionResult{}, fmt.Errorf("no candidates to select from")
	}
	if len(candidates) == 1 {
		return domain.SelectionResult{
			Chosen: &candidates[0],
			Scores: domain.Score{Relevance: 1, EngagementPotential: 1, Quality: 1},
		}, nil
	}

	resp, err := s.caller.invoke(ctx, s.generationPrompt(candidates, instructions), nil)
	if err != nil {
		return domain.SelectionResult{}, fmt.Errorf("select for generation: %w", err)
	}

	raw := stripFences(resp.Text)
	var parsed generationResponse
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil || len(parsed.Ranking) == 0 {
		return domain.SelectionResult{}, &domain.SelectionError{Reason: domain.SelectionInvalidReference, RawResponse: resp.Text}
	}

	best := -1
	var bestScore domain.Score
	for _, entry := range parsed.Ranking {
		idx := entry.Choice - 1
		if idx < 0 || idx >= len(candidates) {
			return domain.SelectionResult{}, &domain.SelectionError{Reason: domain.SelectionInvalidReference, RawResponse: resp.Text}
		}
		score := clampScore(entry.Scores)
		if best == -1 || betterCandidate(candidates, idx, score, best, bestScore) {
			best = idx
			bestScore = score
		}
	}

	return domain.SelectionResult{Chosen: &candidates[best], Scores: bestScore}, nil
}

// SelectForScouting asks the engine to rank and filter candidates down to
// the most interesting subset. Empty candidate input yields an empty result,
// not an error.
func (s *Selector) SelectForScouting(ctx context.Context, candidates []domain.ContentItem, instructions string) (domain.SelectionResult, error) {
	if len(candidates) == 0 {
		return domain.SelectionResult{}, nil
	}

	resp, err := s.caller.invoke(ctx, s.scoutingPrompt(candidates, instructions), nil)
	if err != nil {
		return domain.SelectionResult{}, fmt.Errorf("select for scouting: %w", err)
	}

	raw := stripFences(resp.Text)
	var parsed scoutingResponse
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return domain.SelectionResult{}, &domain.SelectionError{Reason: domain.SelectionInvalidReference, RawResponse: resp.Text}
	}

	seen := map[int]bool{}
	ranked := make([]domain.RankedItem, 0, len(parsed.Items))
	for _, entry := range parsed.Items {
		idx := entry.Choice - 1
		if idx < 0 || idx >= len(candidates) || seen[idx] {
			continue
		}
		seen[idx] = true
		summary := strings.TrimSpace(entry.Summary)
		if summary == "" {
			summary = candidates[idx].BodyExcerpt
		}
		ranked = append(ranked, domain.RankedItem{Item: candidates[idx], Summary: summary})
		if len(ranked) == s.maxItems {
			break
		}
	}

	// At least one item is required whenever candidates exist. A response
	// whose references are all invalid is treated like a hallucination.
	if len(ranked) == 0 {
		return domain.SelectionResult{}, &domain.SelectionError{Reason: domain.SelectionInvalidReference, RawResponse: resp.Text}
	}

	return domain.SelectionResult{Ranked: ranked}, nil
}

func (s *Selector) generationPrompt(candidates []domain.ContentItem, instructions string) string {
	sys := prompt.SystemPrompt{
		General: prompt.GeneralGuardrails,
		User:    userInstructions(instructions),
	}
	var b strings.Builder
	b.WriteString(sys.Build(s.now(), map[string]string{"candidates": fmt.Sprintf("%d", len(candidates))}))
	b.WriteString("\n\nHere are the available content options:\n\n")
	writeCandidates(&b, candidates)
	b.WriteString(`
Analyze each option based on:
1. Relevance to the scout's goal
2. Engagement potential (interesting, timely, shareable)
3. Content quality and credibility

Respond with ONLY a JSON object of the form:
{"ranking":[{"choice":<option number>,"scores":{"relevance":0.0,"engagement_potential":0.0,"quality":0.0}}]}
Order the ranking from best to worst. All scores must be between 0 and 1.`)
	return b.String()
}

func (s *Selector) scoutingPrompt(candidates []domain.ContentItem, instructions string) string {
	sys := prompt.SystemPrompt{
		General: prompt.GeneralGuardrails,
		User:    userInstructions(instructions),
	}
	var b strings.Builder
	b.WriteString(sys.Build(s.now(), map[string]string{"limit": fmt.Sprintf("%d", s.maxItems)}))
	b.WriteString("\n\nHere are the discovered content options:\n\n")
	writeCandidates(&b, candidates)
	b.WriteString(fmt.Sprintf(`
Pick the most interesting options (at most %d, at least 1) and write a
one-paragraph summary for each.

Respond with ONLY a JSON object of the form:
{"items":[{"choice":<option number>,"summary":"..."}]}`, s.maxItems))
	return b.String()
}

func writeCandidates(b *strings.Builder, candidates []domain.ContentItem) {
	for i, item := range candidates {
		fmt.Fprintf(b, "Option %d:\nTitle: %s\nURL: %s\nSource: %s\n", i+1, item.Title, item.URL, item.OriginLabel)
		if !item.PublishedAt.IsZero() {
			fmt.Fprintf(b, "Published: %s\n", item.PublishedAt.UTC().Format("2006-01-02"))
		}
		excerpt := item.BodyExcerpt
		if len(excerpt) > 600 {
			excerpt = excerpt[:600]
		}
		fmt.Fprintf(b, "Summary: %s\n\n", excerpt)
	}
}

func userInstructions(instructions string) string {
	instructions = strings.TrimSpace(instructions)
	if instructions == "" {
		return prompt.DefaultInstructions
	}
	return instructions
}

func clampScore(s domain.Score) domain.Score {
	return domain.Score{
		Relevance:           clamp01(s.Relevance),
		EngagementPotential: clamp01(s.EngagementPotential),
		Quality:             clamp01(s.Quality),
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// betterCandidate reports whether candidate idx with score beats the current
// best. Equal totals prefer the more recent published_at; when both are
// unknown the earlier input position wins, since adapters are not assumed to
// emit newest-first.
func betterCandidate(candidates []domain.ContentItem, idx int, score domain.Score, best int, bestScore domain.Score) bool {
	if score.Total() != bestScore.Total() {
		return score.Total() > bestScore.Total()
	}
	a, b := candidates[idx].PublishedAt, candidates[best].PublishedAt
	if !a.Equal(b) && (!a.IsZero() || !b.IsZero()) {
		return a.After(b)
	}
	return idx < best
}
