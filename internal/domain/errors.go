package domain

import (
	"fmt"
	"strings"
)

// SourceError wraps an adapter-level failure for one configured source.
// The pipeline retries it a bounded number of times at the discovery stage;
// exhausting retries marks the source failed for the run, never the run itself.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// EngineError wraps a generation engine failure. Transient errors (timeouts,
// rate limits) are retried with backoff at the call site; permanent ones
// propagate immediately.
type EngineError struct {
	Transient bool
	Err       error
}

func (e *EngineError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	return fmt.Sprintf("engine (%s): %v", kind, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }

// SelectionError reasons.
const SelectionInvalidReference = "invalid_reference"

// SelectionError signals that the engine's selection response could not be
// used. Invalid-reference errors are never retried; the raw response is kept
// for diagnostics.
type SelectionError struct {
	Reason      string
	RawResponse string
}

func (e *SelectionError) Error() string {
	raw := e.RawResponse
	if len(raw) > 200 {
		raw = raw[:200] + "..."
	}
	return fmt.Sprintf("selection failed (%s): %q", e.Reason, raw)
}

// UnsupportedPlatformError is a configuration error surfaced at drafting.
// It is fatal and never retried.
type UnsupportedPlatformError struct {
	Platform string
}

func (e *UnsupportedPlatformError) Error() string {
	return fmt.Sprintf("unsupported platform %q", e.Platform)
}

// CycleError is a meta-scout configuration error surfaced at discovery
// entry, before any adapter is invoked.
type CycleError struct {
	ScoutID string
	Path    []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle detected for scout %s via %s", e.ScoutID, strings.Join(e.Path, " -> "))
}
