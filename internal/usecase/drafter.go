package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/cristianleoo/influencerpy/internal/domain"
	"github.com/cristianleoo/influencerpy/internal/ports"
	"github.com/cristianleoo/influencerpy/internal/prompt"
)

// ThreadingPolicy controls what happens when generated text exceeds a
// platform's maximum length.
type ThreadingPolicy string

const (
	ThreadingSplit    ThreadingPolicy = "split"
	ThreadingTruncate ThreadingPolicy = "truncate"
	ThreadingNone     ThreadingPolicy = "none"
)

// PlatformRule is one row of the platform formatting table. Rules are data,
// not code: adding a platform means adding a row.
type PlatformRule struct {
	MaxLength       int // 0 means unlimited
	HashtagPolicy   string
	ThreadingPolicy ThreadingPolicy
}

// DefaultPlatformRules mirrors the platform guidance baked into the prompts.
func DefaultPlatformRules() map[string]PlatformRule {
	return map[string]PlatformRule{
		"x":        {MaxLength: 280, HashtagPolicy: "2-3 max", ThreadingPolicy: ThreadingSplit},
		"linkedin": {MaxLength: 3000, HashtagPolicy: "optional", ThreadingPolicy: ThreadingTruncate},
		"substack": {MaxLength: 0, HashtagPolicy: "none", ThreadingPolicy: ThreadingNone},
	}
}

// Drafter turns a selected item into final output text. All non-determinism
// lives in the engine call; the formatting step is a pure function of the
// generated text and the platform rule.
type Drafter struct {
	caller engineCaller
	rules  map[string]PlatformRule
	now    func() time.Time
}

// NewDrafter wires the generation engine and the platform rule table.
func NewDrafter(engine ports.GenerationEngine, logger *slog.Logger, retries int, timeout time.Duration) *Drafter {
	return &Drafter{
		caller: newEngineCaller(engine, logger, retries, timeout),
		rules:  DefaultPlatformRules(),
		now:    time.Now,
	}
}

// Draft generates post text for the primary platform target and applies its
// formatting rule. Every configured target must be a known platform.
func (d *Drafter) Draft(ctx context.Context, item domain.ContentItem, platformTargets []string, instructions string) (domain.Draft, error) {
	platform := "x"
	if len(platformTargets) > 0 {
		platform = platformTargets[0]
	}
	for _, target := range platformTargets {
		if _, ok := d.rules[target]; !ok {
			return domain.Draft{}, &domain.UnsupportedPlatformError{Platform: target}
		}
	}
	rule, ok := d.rules[platform]
	if !ok {
		return domain.Draft{}, &domain.UnsupportedPlatformError{Platform: platform}
	}

	resp, err := d.caller.invoke(ctx, d.draftPrompt(item, platform, instructions), nil)
	if err != nil {
		return domain.Draft{}, fmt.Errorf("draft for %s: %w", platform, err)
	}

	text := cleanDraft(resp.Text)
	if text == "" {
		return domain.Draft{}, fmt.Errorf("draft for %s: engine returned empty text", platform)
	}

	return domain.Draft{
		Item:     item,
		Platform: platform,
		Chunks:   FormatForPlatform(text, rule),
	}, nil
}

func (d *Drafter) draftPrompt(item domain.ContentItem, platform, instructions string) string {
	sys := prompt.SystemPrompt{
		General:  prompt.GeneralGuardrails,
		User:     userInstructions(instructions),
		Platform: prompt.PlatformInstructions(platform),
	}
	var b strings.Builder
	b.WriteString(sys.Build(d.now(), nil))
	fmt.Fprintf(&b, "\n\nContent Title: %s\nContent URL: %s\nContent Summary: %s\n", item.Title, item.URL, item.BodyExcerpt)
	b.WriteString(`
Generate a social media post based on the above.

CRITICAL OUTPUT INSTRUCTIONS:
1. Output ONLY the raw text of the social media post.
2. Do NOT include any conversational filler like "Here is the post" or "Sure!".
3. Do NOT use markdown code blocks.
4. Do NOT include the title or URL again unless it's naturally part of the post.
5. Start directly with the first word of the post.`)
	return b.String()
}

func cleanDraft(text string) string {
	text = stripFences(text)
	if len(text) >= 2 && strings.HasPrefix(text, `"`) && strings.HasSuffix(text, `"`) {
		text = text[1 : len(text)-1]
	}
	return strings.TrimSpace(text)
}

// FormatForPlatform applies a platform rule to generated text. The result is
// deterministic for a fixed input.
func FormatForPlatform(text string, rule PlatformRule) []string {
	if rule.MaxLength <= 0 || len(text) <= rule.MaxLength {
		return []string{text}
	}

	switch rule.ThreadingPolicy {
	case ThreadingSplit:
		return threadChunks(text, rule.MaxLength)
	case ThreadingTruncate:
		return []string{truncateAtBoundary(text, rule.MaxLength)}
	default:
		return []string{text}
	}
}

// threadChunks splits text on sentence boundaries into ordered chunks, each
// at most max characters including its " i/n" suffix. The suffix is appended
// only when more than one chunk results. Splitting never breaks mid-word.
func threadChunks(text string, max int) []string {
	// The suffix length depends on the chunk count, which depends on the
	// budget; iterate until the count is stable.
	reserve := 0
	var chunks []string
	for {
		chunks = packSentences(splitSentences(text), max-reserve)
		if len(chunks) <= 1 {
			return chunks
		}
		needed := len(fmt.Sprintf(" %d/%d", len(chunks), len(chunks)))
		if needed <= reserve {
			break
		}
		reserve = needed
	}

	total := len(chunks)
	for i := range chunks {
		chunks[i] = fmt.Sprintf("%s %d/%d", chunks[i], i+1, total)
	}
	return chunks
}

// packSentences greedily fills chunks up to budget characters, falling back
// to word-boundary splitting for single sentences longer than the budget.
func packSentences(sentences []string, budget int) []string {
	var chunks []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
		}
	}

	for _, sentence := range sentences {
		if len(sentence) > budget {
			flush()
			chunks = append(chunks, splitWords(sentence, budget)...)
			continue
		}
		sep := 0
		if current.Len() > 0 {
			sep = 1
		}
		if current.Len()+sep+len(sentence) > budget {
			flush()
			sep = 0
		}
		if sep == 1 {
			current.WriteByte(' ')
		}
		current.WriteString(sentence)
	}
	flush()
	return chunks
}

// splitSentences cuts text after terminal punctuation followed by space.
func splitSentences(text string) []string {
	var sentences []string
	start := 0
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		if runes[i] != '.' && runes[i] != '!' && runes[i] != '?' {
			continue
		}
		// Consume runs of terminal punctuation ("?!", "...").
		j := i
		for j+1 < len(runes) && (runes[j+1] == '.' || runes[j+1] == '!' || runes[j+1] == '?') {
			j++
		}
		if j+1 == len(runes) || unicode.IsSpace(runes[j+1]) {
			sentence := strings.TrimSpace(string(runes[start : j+1]))
			if sentence != "" {
				sentences = append(sentences, sentence)
			}
			start = j + 1
		}
		i = j
	}
	if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}

// splitWords breaks an over-long sentence on spaces, never mid-word.
func splitWords(sentence string, budget int) []string {
	words := strings.Fields(sentence)
	var parts []string
	var current strings.Builder
	for _, word := range words {
		sep := 0
		if current.Len() > 0 {
			sep = 1
		}
		if current.Len()+sep+len(word) > budget && current.Len() > 0 {
			parts = append(parts, current.String())
			current.Reset()
			sep = 0
		}
		if sep == 1 {
			current.WriteByte(' ')
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		parts = append(parts, current.String())
	}
	return parts
}

// truncateAtBoundary cuts text to max characters, preferring the last
// sentence boundary and falling back to the last word boundary.
func truncateAtBoundary(text string, max int) string {
	if len(text) <= max {
		return text
	}
	cut := text[:max]
	for _, boundary := range []string{". ", "! ", "? "} {
		if idx := strings.LastIndex(cut, boundary); idx > 0 {
			return strings.TrimSpace(cut[:idx+1])
		}
	}
	if idx := strings.LastIndexFunc(cut, unicode.IsSpace); idx > 0 {
		return strings.TrimSpace(cut[:idx])
	}
	return cut
}
