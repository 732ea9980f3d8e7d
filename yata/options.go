package yata

import "github.com/mbrt/yatatree/rle"

var defaultConfig = config{
	rle:                     rle.DefaultConfig(),
	enableConsistencyChecks: false,
}

type config struct {
	rle                     rle.Config
	enableConsistencyChecks bool
}

// TrackerOption configures a Tracker at construction time.
type TrackerOption func(c *config)

// WithMaxChildren overrides the RLE tree's max fanout (default 16).
func WithMaxChildren(n int) TrackerOption {
	return func(c *config) { c.rle.MaxChildren = n }
}

// WithMinChildren overrides the RLE tree's min fanout (default 8).
func WithMinChildren(n int) TrackerOption {
	return func(c *config) { c.rle.MinChildren = n }
}

// WithConsistencyChecks enables check_consistency assertions after every
// mutating call, for use in tests: a violation panics with an
// *InvariantError rather than silently corrupting state.
func WithConsistencyChecks(enabled bool) TrackerOption {
	return func(c *config) { c.enableConsistencyChecks = enabled }
}
