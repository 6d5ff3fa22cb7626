package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cristianleoo/influencerpy/internal/ports"
)

// CronScheduler fires scout runs daily at the hour and minute taken from a
// five-field cron expression. Only the "M H * * *" shape is honored; anything
// else falls back to a 24-hour cadence from startup.
type CronScheduler struct {
	spec     string
	location *time.Location
	stop     chan struct{}
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler builds a scheduler from a cron expression and timezone.
func NewCronScheduler(spec string, location *time.Location) *CronScheduler {
	if location == nil {
		location = time.UTC
	}
	return &CronScheduler{spec: spec, location: location}
}

// Start launches the timer goroutine. Calling Start twice without Stop is a
// no-op.
func (c *CronScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}
	if c.stop != nil {
		return nil
	}

	c.stop = make(chan struct{})
	go c.loop(ctx, job)
	return nil
}

func (c *CronScheduler) loop(ctx context.Context, job func(time.Time)) {
	for {
		timer := time.NewTimer(c.untilNext(time.Now().In(c.location)))
		select {
		case t := <-timer.C:
			job(t)
		case <-ctx.Done():
			timer.Stop()
			return
		case <-c.stop:
			timer.Stop()
			return
		}
	}
}

// untilNext returns the wait before the next firing.
func (c *CronScheduler) untilNext(now time.Time) time.Duration {
	hour, minute, err := parseDailySpec(c.spec)
	if err != nil {
		return 24 * time.Hour
	}

	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, c.location)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}

// Stop halts the timer goroutine.
func (c *CronScheduler) Stop(ctx context.Context) error {
	if c.stop == nil {
		return nil
	}
	close(c.stop)
	c.stop = nil
	return nil
}

func parseDailySpec(spec string) (hour, minute int, err error) {
	fields := strings.Fields(spec)
	if len(fields) != 5 {
		return 0, 0, fmt.Errorf("expected 5 cron fields, got %d", len(fields))
	}
	minute, err = strconv.Atoi(fields[0])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute field %q", fields[0])
	}
	hour, err = strconv.Atoi(fields[1])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour field %q", fields[1])
	}
	return hour, minute, nil
}
