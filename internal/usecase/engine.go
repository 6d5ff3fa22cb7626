package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/cristianleoo/influencerpy/internal/domain"
	"github.com/cristianleoo/influencerpy/internal/ports"
)

// engineCaller wraps a generation engine with the call-site retry policy:
// transient failures are retried with doubling backoff, permanent failures
// propagate immediately.
type engineCaller struct {
	engine  ports.GenerationEngine
	logger  *slog.Logger
	retries int
	backoff time.Duration
	timeout time.Duration
}

func newEngineCaller(engine ports.GenerationEngine, logger *slog.Logger, retries int, timeout time.Duration) engineCaller {
	if retries < 0 {
		retries = 0
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return engineCaller{
		engine:  engine,
		logger:  logger,
		retries: retries,
		backoff: time.Second,
		timeout: timeout,
	}
}

func (c engineCaller) invoke(ctx context.Context, prompt string, tools []domain.ToolSpec) (domain.EngineResponse, error) {
	var lastErr error
	delay := c.backoff

	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			c.debug("retrying engine invocation", "attempt", attempt, "delay", delay)
			select {
			case <-ctx.Done():
				return domain.EngineResponse{}, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		resp, err := c.engine.Invoke(callCtx, prompt, tools)
		cancel()
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return domain.EngineResponse{}, ctx.Err()
		}
		if !isTransientEngineError(err) {
			return domain.EngineResponse{}, err
		}
	}

	return domain.EngineResponse{}, lastErr
}

func (c engineCaller) debug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}

func isTransientEngineError(err error) bool {
	var engErr *domain.EngineError
	if errors.As(err, &engErr) {
		return engErr.Transient
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// stripFences removes markdown code fences and surrounding whitespace from
// an engine response so its JSON or raw text can be parsed.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	return strings.TrimSpace(text)
}
