// Package gcode provides G-code interpretation for dequeued commands:
// a machine-state executor tracking position, coordinate modes, and
// temperatures, plus the motion planner whose free-slot count feeds
// the advisory fields of the intake acknowledgments.
package gcode

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"marlin-go-migration/pkg/log"
)

// Executor interprets dequeued command lines against an in-process
// machine model. It implements the intake Executor interface.
type Executor struct {
	mu sync.RWMutex

	planner *Planner
	logger  *log.Logger

	// Machine state
	position   [4]float64 // X, Y, Z, E
	homedAxes  [3]bool
	feedrate   float64 // mm/s
	absCoords  bool
	absExtrude bool

	extruderTarget float64
	bedTarget      float64
	fanSpeed       int
}

// NewExecutor creates an executor backed by the given planner.
func NewExecutor(planner *Planner) *Executor {
	return &Executor{
		planner:    planner,
		logger:     log.GetLogger("gcode"),
		feedrate:   25.0,
		absCoords:  true,
		absExtrude: true,
	}
}

// Execute parses and executes one command line.
func (e *Executor) Execute(line string) error {
	cmd, err := parseLine(line)
	if cmd == nil || err != nil {
		return err
	}

	e.logger.Debug("executing: %s", cmd.Name)

	switch cmd.Name {
	case "G0", "G1":
		return e.executeMove(cmd)
	case "G4":
		return nil // dwell is a planner no-op here
	case "G28":
		return e.executeHome(cmd)
	case "G90":
		e.setAbsCoords(true)
		return nil
	case "G91":
		e.setAbsCoords(false)
		return nil
	case "G92":
		return e.executeSetPosition(cmd)
	case "M82":
		e.setAbsExtrude(true)
		return nil
	case "M83":
		e.setAbsExtrude(false)
		return nil
	case "M104", "M109":
		return e.executeSetExtruderTemp(cmd)
	case "M140", "M190":
		return e.executeSetBedTemp(cmd)
	case "M106":
		return e.executeSetFan(cmd)
	case "M107":
		e.mu.Lock()
		e.fanSpeed = 0
		e.mu.Unlock()
		return nil
	case "M114":
		e.reportPosition()
		return nil
	case "M400":
		e.planner.Drain()
		return nil
	default:
		e.logger.Debug("unhandled command: %s", cmd.Name)
		return nil
	}
}

func (e *Executor) setAbsCoords(abs bool) {
	e.mu.Lock()
	e.absCoords = abs
	e.mu.Unlock()
}

func (e *Executor) setAbsExtrude(abs bool) {
	e.mu.Lock()
	e.absExtrude = abs
	e.mu.Unlock()
}

// executeMove handles G0/G1 movement commands.
func (e *Executor) executeMove(cmd *command) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	newPos := e.position
	axes := [...]struct {
		letter string
		idx    int
	}{{"X", 0}, {"Y", 1}, {"Z", 2}}

	for _, a := range axes {
		v, ok := cmd.Args[a.letter]
		if !ok {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("gcode: bad %s value %q", a.letter, v)
		}
		if e.absCoords {
			newPos[a.idx] = f
		} else {
			newPos[a.idx] += f
		}
	}
	if v, ok := cmd.Args["E"]; ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("gcode: bad E value %q", v)
		}
		if e.absExtrude {
			newPos[3] = f
		} else {
			newPos[3] += f
		}
	}
	if v, ok := cmd.Args["F"]; ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("gcode: bad F value %q", v)
		}
		e.feedrate = f / 60.0 // mm/min to mm/s
	}

	dx := newPos[0] - e.position[0]
	dy := newPos[1] - e.position[1]
	dz := newPos[2] - e.position[2]
	de := newPos[3] - e.position[3]

	distance := math.Sqrt(dx*dx + dy*dy + dz*dz)
	if distance == 0 && de == 0 {
		return nil
	}

	if dx != 0 && !e.homedAxes[0] {
		return fmt.Errorf("gcode: X axis not homed")
	}
	if dy != 0 && !e.homedAxes[1] {
		return fmt.Errorf("gcode: Y axis not homed")
	}
	if dz != 0 && !e.homedAxes[2] {
		return fmt.Errorf("gcode: Z axis not homed")
	}

	if !e.planner.Submit(Move{Distance: distance, Extrude: de, Speed: e.feedrate}) {
		return fmt.Errorf("gcode: planner rejected move")
	}
	e.position = newPos
	return nil
}

// executeHome handles G28. With no axis arguments all axes home.
func (e *Executor) executeHome(cmd *command) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, x := cmd.Args["X"]
	_, y := cmd.Args["Y"]
	_, z := cmd.Args["Z"]
	all := !x && !y && !z

	if all || x {
		e.position[0] = 0
		e.homedAxes[0] = true
	}
	if all || y {
		e.position[1] = 0
		e.homedAxes[1] = true
	}
	if all || z {
		e.position[2] = 0
		e.homedAxes[2] = true
	}
	return nil
}

// executeSetPosition handles G92 logical position overrides.
func (e *Executor) executeSetPosition(cmd *command) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for letter, idx := range map[string]int{"X": 0, "Y": 1, "Z": 2, "E": 3} {
		v, ok := cmd.Args[letter]
		if !ok {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("gcode: bad %s value %q", letter, v)
		}
		e.position[idx] = f
	}
	return nil
}

func (e *Executor) executeSetExtruderTemp(cmd *command) error {
	v, ok := cmd.Args["S"]
	if !ok {
		return nil
	}
	t, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("gcode: bad S value %q", v)
	}
	e.mu.Lock()
	e.extruderTarget = t
	e.mu.Unlock()
	return nil
}

func (e *Executor) executeSetBedTemp(cmd *command) error {
	v, ok := cmd.Args["S"]
	if !ok {
		return nil
	}
	t, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("gcode: bad S value %q", v)
	}
	e.mu.Lock()
	e.bedTarget = t
	e.mu.Unlock()
	return nil
}

func (e *Executor) executeSetFan(cmd *command) error {
	speed := 255
	if v, ok := cmd.Args["S"]; ok {
		s, err := strconv.Atoi(v)
		if err != nil || s < 0 || s > 255 {
			return fmt.Errorf("gcode: bad fan speed %q", v)
		}
		speed = s
	}
	e.mu.Lock()
	e.fanSpeed = speed
	e.mu.Unlock()
	return nil
}

func (e *Executor) reportPosition() {
	e.mu.RLock()
	defer e.mu.RUnlock()
	e.logger.Info("X:%.2f Y:%.2f Z:%.2f E:%.2f",
		e.position[0], e.position[1], e.position[2], e.position[3])
}

// Position returns the current logical position (X, Y, Z, E).
func (e *Executor) Position() [4]float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.position
}

// Targets returns the extruder and bed target temperatures.
func (e *Executor) Targets() (extruder, bed float64) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.extruderTarget, e.bedTarget
}

// FanSpeed returns the current fan PWM value (0-255).
func (e *Executor) FanSpeed() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.fanSpeed
}

type command struct {
	Name string
	Args map[string]string
	Raw  string
}

var reParenComment = regexp.MustCompile(`\([^)]*\)`)

// parseLine splits a command line into its name and letter arguments.
// Comments and blank lines parse to nil.
func parseLine(line string) (*command, error) {
	ln := strings.TrimSpace(line)
	if idx := strings.IndexByte(ln, ';'); idx >= 0 {
		ln = strings.TrimSpace(ln[:idx])
	}
	ln = strings.TrimSpace(reParenComment.ReplaceAllString(ln, " "))
	if ln == "" {
		return nil, nil
	}

	fields := strings.Fields(ln)
	name := strings.ToUpper(fields[0])
	args := map[string]string{}
	for _, f := range fields[1:] {
		if len(f) == 1 {
			args[strings.ToUpper(f)] = ""
			continue
		}
		args[strings.ToUpper(f[:1])] = strings.TrimSpace(f[1:])
	}
	return &command{Name: name, Args: args, Raw: line}, nil
}
