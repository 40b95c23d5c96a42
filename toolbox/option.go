package toolbox

import (
	"go.uber.org/zap"

	"github.com/relaymesh/toolmesh/internal/hookrunner"
	"github.com/relaymesh/toolmesh/permission"
)

type config struct {
	logger *zap.Logger
	hooks  *hookrunner.Runner
	perm   *permission.Checker
}

// Option configures a Toolbox at construction time.
type Option func(*config)

// WithLogger sets the logger the Toolbox reports dispatch failures to.
// Defaults to a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *config) { c.logger = log }
}

// WithHooks installs a hookrunner.Runner to fire PreToolUse/PostToolUse/
// PostToolUseFailure around every executeTool call (spec.md §4.8's
// supplemented interception point). Nil (the default) means no hooks run.
func WithHooks(hooks *hookrunner.Runner) Option {
	return func(c *config) { c.hooks = hooks }
}

// WithPermissionChecker installs a permission.Checker consulted before
// forwarding a tool call. Nil (the default) means every call proceeds —
// equivalent to permission.ModeBypassPermissions.
func WithPermissionChecker(checker *permission.Checker) Option {
	return func(c *config) { c.perm = checker }
}

func (c config) logOrNop() *zap.Logger {
	if c.logger == nil {
		return zap.NewNop()
	}
	return c.logger
}
