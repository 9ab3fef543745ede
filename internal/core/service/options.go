package service

import (
	"log/slog"
	"time"

	"github.com/rl1809/visio/internal/obs"
)

type options struct {
	now     func() time.Time
	loc     *time.Location
	logger  *slog.Logger
	metrics *obs.Metrics
	policy  TransitionPolicy
}

// Option configures the services of this package.
type Option func(*options)

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLocation sets the location whose calendar days and months bucket reports
// and date ledger entries.
func WithLocation(loc *time.Location) Option {
	return func(o *options) { o.loc = loc }
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func WithMetrics(m *obs.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

func WithTransitionPolicy(p TransitionPolicy) Option {
	return func(o *options) { o.policy = p }
}

func buildOptions(opts []Option) options {
	o := options{
		now:    time.Now,
		loc:    time.Local,
		logger: obs.Discard(),
		policy: PermissiveTransitions,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// today is the current instant in the reporting location.
func (o options) today() time.Time {
	return o.now().In(o.loc)
}
