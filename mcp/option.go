package mcp

import "go.uber.org/zap"

type transportConfig struct {
	logger *zap.Logger
	env    []string
}

// TransportOption configures a Transport at construction time.
type TransportOption func(*transportConfig)

// WithLogger sets the logger a transport reports lifecycle and drained
// stderr lines to. Defaults to a no-op logger.
func WithLogger(log *zap.Logger) TransportOption {
	return func(c *transportConfig) { c.logger = log }
}

// WithEnv appends "KEY=VALUE" entries to the subprocess environment used by
// stdio transports. Ignored by sse/ws transports.
func WithEnv(env []string) TransportOption {
	return func(c *transportConfig) { c.env = env }
}

func (c transportConfig) logOrNop() *zap.Logger {
	if c.logger == nil {
		return zap.NewNop()
	}
	return c.logger
}
