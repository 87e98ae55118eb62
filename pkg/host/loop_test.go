package host

import (
	"context"
	"testing"
	"time"

	"marlin-go-migration/pkg/gcode"
	"marlin-go-migration/pkg/port"
	"marlin-go-migration/pkg/queue"
)

type countingExec struct{ commands []string }

func (c *countingExec) Execute(cmd string) error {
	c.commands = append(c.commands, cmd)
	return nil
}

func TestCycleDispatchesOneCommand(t *testing.T) {
	exec := &countingExec{}
	q := queue.New(queue.Config{}, exec)
	p := port.NewPipe("test")
	q.AttachPort(p)

	planner := gcode.NewPlanner(4)
	l := NewLoop(q, planner, 100)

	p.PushLine("G28")
	p.PushLine("G90")
	l.Cycle()
	if len(exec.commands) != 1 || exec.commands[0] != "G28" {
		t.Fatalf("dispatched %q", exec.commands)
	}
	l.Cycle()
	if len(exec.commands) != 2 {
		t.Fatalf("dispatched %q", exec.commands)
	}
}

func TestRunDrainsOnCancel(t *testing.T) {
	exec := &countingExec{}
	q := queue.New(queue.Config{}, exec)
	p := port.NewPipe("test")
	q.AttachPort(p)

	// Leave a command in the ring, then cancel immediately: Run must
	// exhaust the pending work before returning.
	p.PushLine("M84")
	q.GetAvailableCommands()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	l := NewLoop(q, nil, 1000)
	err := l.Run(ctx)
	if err != context.Canceled {
		t.Fatalf("run returned %v", err)
	}
	if q.HasCommandsQueued() {
		t.Fatal("commands still queued after shutdown")
	}
	if len(exec.commands) != 1 || exec.commands[0] != "M84" {
		t.Fatalf("dispatched %q", exec.commands)
	}
}

func TestRunTicksUntilCancel(t *testing.T) {
	exec := &countingExec{}
	q := queue.New(queue.Config{}, exec)
	p := port.NewPipe("test")
	q.AttachPort(p)

	p.PushLine("G28")
	p.PushLine("G90")
	p.PushLine("M114")

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	l := NewLoop(q, nil, 1000)
	l.Run(ctx)

	if len(exec.commands) != 3 {
		t.Fatalf("dispatched %q", exec.commands)
	}
}
