package usecases

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// Option configures a usecase.
type Option func(*options)

type options struct {
	now    func() time.Time
	logger *log.Logger
}

// WithClock overrides the clock used to stamp lastSavedAt.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLogger sets the logger used for failures that do not abort the request.
func WithLogger(logger *log.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func newOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.New(io.Discard)
	}
	return o
}

// saveTimestamp returns the lastSavedAt for a save happening now: UTC, whole seconds, and never before previous.
func saveTimestamp(now time.Time, previous *time.Time) time.Time {
	saved := now.UTC().Truncate(time.Second)
	if previous != nil && saved.Before(*previous) {
		saved = previous.UTC()
	}
	return saved
}
