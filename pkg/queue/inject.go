package queue

import (
	"bytes"
	"strings"

	"marlin-go-migration/pkg/errors"
)

// DefaultRuntimeInjectSize bounds the mutable injection channel, like
// the firmware's fixed injected-commands buffer.
const DefaultRuntimeInjectSize = 64

// Injector holds the two firmware-internal command channels that
// preempt host and media input:
//
//   - the script channel: a read-only cursor over an externally
//     supplied command sequence
//   - the runtime channel: a small bounded buffer of newline-separated
//     commands
//
// Each channel holds at most one pending stream; a new injection
// replaces the previous one unconditionally, discarding any undrained
// remainder. The expected use is one-or-two-command bursts, so callers
// needing continuity must not inject again before the first burst
// drains.
type Injector struct {
	script     []string
	runtime    []byte
	runtimeCap int
}

// NewInjector creates the channels. runtimeCap bounds the mutable
// channel; zero selects DefaultRuntimeInjectSize.
func NewInjector(runtimeCap int) *Injector {
	if runtimeCap <= 0 {
		runtimeCap = DefaultRuntimeInjectSize
	}
	return &Injector{runtimeCap: runtimeCap}
}

// InjectScript replaces the script channel with a new command sequence
// (newline-separated). Any undrained remainder of a previous script is
// discarded.
func (i *Injector) InjectScript(commands string) {
	i.script = i.script[:0]
	for _, line := range strings.Split(commands, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			i.script = append(i.script, line)
		}
	}
}

// Inject replaces the runtime channel with a new newline-separated
// command burst. The buffer is bounded: content beyond capacity is cut
// and the truncation is reported via ErrInjectTruncated (the burst is
// still installed up to capacity).
func (i *Injector) Inject(commands string) error {
	var err error
	if len(commands) > i.runtimeCap {
		commands = commands[:i.runtimeCap]
		err = errors.InjectTruncatedError(i.runtimeCap)
	}
	i.runtime = append(i.runtime[:0], commands...)
	return err
}

// HasPending reports whether either channel holds unconsumed commands.
func (i *Injector) HasPending() bool {
	return len(i.script) > 0 || len(i.runtime) > 0
}

// PendingScript returns the number of undrained script commands.
func (i *Injector) PendingScript() int { return len(i.script) }

// Drain yields the next injected command, script channel first. The
// second return is false when both channels are empty.
func (i *Injector) Drain() (string, bool) {
	if len(i.script) > 0 {
		cmd := i.script[0]
		i.script = i.script[1:]
		return cmd, true
	}
	for len(i.runtime) > 0 {
		cmd := i.runtime
		rest := []byte(nil)
		if idx := bytes.IndexByte(i.runtime, '\n'); idx >= 0 {
			cmd = i.runtime[:idx]
			rest = i.runtime[idx+1:]
		}
		text := strings.TrimSpace(string(cmd))
		i.runtime = rest
		if text != "" {
			return text, true
		}
	}
	return "", false
}
