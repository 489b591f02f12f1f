package backend

import (
	"github.com/xyproto/env/v2"

	"github.com/raymyers/ralph-tiger/pkg/regalloc"
)

// Options configure a Backend.
type Options struct {
	// MaxRounds bounds the allocator's spill loop.
	MaxRounds int
	// Trace is a comma separated list of tlog topics to enable.
	Trace string
	// Target is a target description file; empty means x86-64.
	Target string
}

// OptionsFromEnv reads RALPH_TIGER_MAX_ROUNDS, RALPH_TIGER_TRACE and
// RALPH_TIGER_TARGET.
func OptionsFromEnv() Options {
	return Options{
		MaxRounds: env.Int("RALPH_TIGER_MAX_ROUNDS", regalloc.DefaultMaxRounds),
		Trace:     env.Str("RALPH_TIGER_TRACE"),
		Target:    env.Str("RALPH_TIGER_TARGET"),
	}
}
