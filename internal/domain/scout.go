package domain

import "time"

// Intent determines the terminal output of a scout run: a curated report
// (scouting) or a ready-to-publish draft (generation).
type Intent string

const (
	IntentScouting   Intent = "scouting"
	IntentGeneration Intent = "generation"
)

// ScoutKind mirrors the configured source family, or "meta" for scouts
// whose sources are other scouts.
type ScoutKind string

const (
	ScoutRSS      ScoutKind = "rss"
	ScoutReddit   ScoutKind = "reddit"
	ScoutArxiv    ScoutKind = "arxiv"
	ScoutHTTP     ScoutKind = "http"
	ScoutSearch   ScoutKind = "search"
	ScoutSubstack ScoutKind = "substack"
	ScoutMeta     ScoutKind = "meta"
)

// SourceConfig is one source-specific sub-configuration inside a scout.
// Which fields matter depends on Kind: Feeds for rss/substack, Subreddits
// for reddit, Categories for arxiv listing URLs, URL for http, Query for
// search and as a filter everywhere else.
type SourceConfig struct {
	Kind       SourceKind        `json:"kind" yaml:"kind"`
	Name       string            `json:"name" yaml:"name"`
	Query      string            `json:"query,omitempty" yaml:"query,omitempty"`
	URL        string            `json:"url,omitempty" yaml:"url,omitempty"`
	Feeds      []string          `json:"feeds,omitempty" yaml:"feeds,omitempty"`
	Subreddits []string          `json:"subreddits,omitempty" yaml:"subreddits,omitempty"`
	RedditSort string            `json:"reddit_sort,omitempty" yaml:"redditSort,omitempty"`
	Categories []string          `json:"categories,omitempty" yaml:"categories,omitempty"`
	Options    map[string]string `json:"options,omitempty" yaml:"options,omitempty"`
}

// ScoutConfig is the immutable-per-run snapshot of a scout's settings.
// Instructions is the only field mutated after creation, and only by the
// calibration engine.
type ScoutConfig struct {
	ID              string
	Name            string
	Kind            ScoutKind
	Intent          Intent
	Sources         []SourceConfig
	Instructions    string
	PlatformTargets []string
	Schedule        string
	ChildScoutIDs   []string
	CreatedAt       time.Time
	LastRunAt       time.Time
}

// RunOverrides carries run-scoped field overrides a meta-scout applies to a
// child before invoking its pipeline. Overrides are never persisted back to
// the child's stored configuration.
type RunOverrides struct {
	Query string
	URL   string
}

// ApplyOverrides returns a copy of cfg with run-scoped overrides applied to
// each source sub-config. The stored configuration is left untouched.
func ApplyOverrides(cfg ScoutConfig, o *RunOverrides) ScoutConfig {
	if o == nil {
		return cfg
	}
	out := cfg
	out.Sources = make([]SourceConfig, len(cfg.Sources))
	copy(out.Sources, cfg.Sources)
	for i := range out.Sources {
		if o.Query != "" {
			out.Sources[i].Query = o.Query
		}
		if o.URL != "" && out.Sources[i].Kind == SourceHTTP {
			out.Sources[i].URL = o.URL
		}
	}
	return out
}
