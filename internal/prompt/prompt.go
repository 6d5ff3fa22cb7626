// Package prompt assembles the layered system prompts sent to the
// generation engine. Only the user-instruction section is editable by users
// (and rewritten by calibration); the rest is fixed guardrail text.
package prompt

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// GeneralGuardrails is prepended to every engine invocation.
const GeneralGuardrails = `You are a professional content scout and curator for social media.

CORE PRINCIPLES:
- Be objective and fact-based in your analysis
- Prioritize quality over quantity
- Respect copyright and provide proper attribution
- Avoid clickbait, sensationalism, or misleading information
- Focus on content that provides genuine value to the audience`

// platformInstructions maps a platform target to its formatting guidance.
var platformInstructions = map[string]string{
	"x": `OUTPUT FORMAT FOR X (TWITTER):
- Maximum 280 characters per post
- Use 2-3 relevant hashtags maximum
- Include emojis strategically for engagement
- Keep tone conversational and engaging`,

	"linkedin": `OUTPUT FORMAT FOR LINKEDIN:
- Professional and insightful tone
- Can be longer (up to 3000 characters)
- Focus on key takeaways and business value
- Use line breaks for readability
- Hashtags optional but can improve discoverability`,

	"substack": `OUTPUT FORMAT FOR SUBSTACK:
- Long-form, essay-like tone
- Open with a hook paragraph, close with a takeaway
- No character limit`,
}

// PlatformInstructions returns formatting guidance for a platform, or empty
// when the platform has none.
func PlatformInstructions(platform string) string {
	return platformInstructions[platform]
}

// DefaultInstructions is used when a scout has no stored instruction text.
const DefaultInstructions = "Summarize this content and highlight key takeaways for a social media audience."

// SystemPrompt composes the prompt sections in a fixed order.
type SystemPrompt struct {
	General  string
	Tools    string
	User     string
	Platform string
}

// Build combines the sections plus context variables into the final prompt.
// Context keys are emitted in sorted order so prompts are reproducible.
func (p SystemPrompt) Build(now time.Time, context map[string]string) string {
	sections := make([]string, 0, 5)

	if p.General != "" {
		sections = append(sections, p.General)
	}
	if p.Tools != "" {
		sections = append(sections, p.Tools)
	}
	if p.User != "" {
		sections = append(sections, "YOUR GOAL: "+p.User)
	}
	if p.Platform != "" {
		sections = append(sections, p.Platform)
	}

	lines := []string{"date: " + now.UTC().Format("2006-01-02")}
	keys := make([]string, 0, len(context))
	for k := range context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("%s: %s", k, context[k]))
	}
	sections = append(sections, "CONTEXT:\n"+strings.Join(lines, "\n"))

	return strings.Join(sections, "\n\n")
}
