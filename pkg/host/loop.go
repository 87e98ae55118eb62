// Package host runs the cooperative control cycle: each tick gathers
// newly available commands into the intake ring and dispatches at most
// one buffered command, the same interleaving the firmware main loop
// uses.
package host

import (
	"context"
	"time"

	"marlin-go-migration/pkg/gcode"
	"marlin-go-migration/pkg/log"
	"marlin-go-migration/pkg/queue"
)

// Loop drives the intake queue from a single goroutine.
type Loop struct {
	queue   *queue.Queue
	planner *gcode.Planner
	period  time.Duration
	logger  *log.Logger

	cycles uint64
}

// heartbeatInterval paces the periodic liveness log line.
const heartbeatInterval = 30 * time.Second

// NewLoop creates a control loop ticking at the given frequency.
func NewLoop(q *queue.Queue, planner *gcode.Planner, cycleHz int) *Loop {
	if cycleHz <= 0 {
		cycleHz = 1000
	}
	return &Loop{
		queue:   q,
		planner: planner,
		period:  time.Second / time.Duration(cycleHz),
		logger:  log.GetLogger("host"),
	}
}

// Run executes control cycles until the context is canceled, then
// drains the remaining buffered commands.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info("control loop started (cycle %v)", l.period)
	ticker := time.NewTicker(l.period)
	defer ticker.Stop()
	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("control loop stopping, draining queue")
			l.queue.Exhaust()
			return ctx.Err()
		case <-heartbeat.C:
			l.logger.Debug("alive: %d cycles, %d commands pending",
				l.cycles, l.queue.Ring().Len())
		case <-ticker.C:
			l.Cycle()
		}
	}
}

// Cycle runs one intake-then-dispatch iteration.
func (l *Loop) Cycle() {
	l.cycles++
	l.queue.GetAvailableCommands()
	l.queue.Advance()
	if l.planner != nil {
		l.planner.Tick()
	}
}
