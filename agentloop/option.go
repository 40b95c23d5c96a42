package agentloop

import "go.uber.org/zap"

const defaultMaxDepth = 10

type config struct {
	maxDepth int
	logger   *zap.Logger
}

// Option configures a Loop at construction time.
type Option func(*config)

// WithMaxDepth overrides MAX_DEPTH (spec.md §4.10, default 10). A value <= 0
// is ignored.
func WithMaxDepth(depth int) Option {
	return func(c *config) {
		if depth > 0 {
			c.maxDepth = depth
		}
	}
}

// WithLogger sets the logger the Loop reports depth/stop-reason
// transitions to. Defaults to a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *config) { c.logger = log }
}

func newConfig(opts []Option) config {
	cfg := config{maxDepth: defaultMaxDepth}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}
	return cfg
}
