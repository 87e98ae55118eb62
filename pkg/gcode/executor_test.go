package gcode

import (
	"testing"
)

func mustExec(t *testing.T, e *Executor, lines ...string) {
	t.Helper()
	for _, line := range lines {
		if err := e.Execute(line); err != nil {
			t.Fatalf("execute %q: %v", line, err)
		}
	}
}

func TestMoveRequiresHoming(t *testing.T) {
	e := NewExecutor(NewPlanner(0))
	if err := e.Execute("G1 X10"); err == nil {
		t.Fatal("move before homing accepted")
	}
	mustExec(t, e, "G28", "G1 X10 Y5")
	pos := e.Position()
	if pos[0] != 10 || pos[1] != 5 {
		t.Fatalf("position = %v", pos)
	}
}

func TestRelativeMode(t *testing.T) {
	e := NewExecutor(NewPlanner(0))
	mustExec(t, e, "G28", "G1 X10", "G91", "G1 X5", "G1 X-2")
	if pos := e.Position(); pos[0] != 13 {
		t.Fatalf("X = %v", pos[0])
	}
	mustExec(t, e, "G90", "G1 X100")
	if pos := e.Position(); pos[0] != 100 {
		t.Fatalf("X after absolute = %v", pos[0])
	}
}

func TestSetPositionOverride(t *testing.T) {
	e := NewExecutor(NewPlanner(0))
	mustExec(t, e, "G28", "G92 E0 X50")
	pos := e.Position()
	if pos[0] != 50 || pos[3] != 0 {
		t.Fatalf("position = %v", pos)
	}
}

func TestPartialHome(t *testing.T) {
	e := NewExecutor(NewPlanner(0))
	mustExec(t, e, "G28 X")
	if err := e.Execute("G1 Y5"); err == nil {
		t.Fatal("Y move accepted with only X homed")
	}
	mustExec(t, e, "G1 X5")
}

func TestTemperatureAndFanTargets(t *testing.T) {
	e := NewExecutor(NewPlanner(0))
	mustExec(t, e, "M104 S210", "M140 S60", "M106 S128")
	ext, bed := e.Targets()
	if ext != 210 || bed != 60 {
		t.Fatalf("targets = %v, %v", ext, bed)
	}
	if e.FanSpeed() != 128 {
		t.Fatalf("fan = %d", e.FanSpeed())
	}
	mustExec(t, e, "M107")
	if e.FanSpeed() != 0 {
		t.Fatalf("fan after M107 = %d", e.FanSpeed())
	}
}

func TestCommentsAndUnknownCommandsIgnored(t *testing.T) {
	e := NewExecutor(NewPlanner(0))
	mustExec(t, e, "; pure comment", "", "(inline) M999", "T0")
}

func TestBadArgumentRejected(t *testing.T) {
	e := NewExecutor(NewPlanner(0))
	mustExec(t, e, "G28")
	if err := e.Execute("G1 Xfoo"); err == nil {
		t.Fatal("bad axis value accepted")
	}
}

func TestPlannerBackpressure(t *testing.T) {
	p := NewPlanner(2)
	e := NewExecutor(p)
	mustExec(t, e, "G28", "G1 X1", "G1 X2")
	if p.FreeSlots() != 0 {
		t.Fatalf("free slots = %d", p.FreeSlots())
	}
	if err := e.Execute("G1 X3"); err == nil {
		t.Fatal("move accepted with full planner")
	}

	p.Tick()
	if p.FreeSlots() != 1 {
		t.Fatalf("free slots after tick = %d", p.FreeSlots())
	}
	mustExec(t, e, "G1 X3")

	// M400 waits for the buffer to drain.
	mustExec(t, e, "M400")
	if p.Pending() != 0 {
		t.Fatalf("pending after M400 = %d", p.Pending())
	}
}

func TestFeedrateConversion(t *testing.T) {
	e := NewExecutor(NewPlanner(0))
	mustExec(t, e, "G28", "G1 X10 F3000")
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.feedrate != 50 {
		t.Fatalf("feedrate = %v mm/s", e.feedrate)
	}
}
