package gcode

import "sync"

// Move is one planned motion segment.
type Move struct {
	Distance float64 // mm of travel
	Extrude  float64 // mm of filament
	Speed    float64 // mm/s
}

// DefaultPlannerSlots matches the firmware's block buffer depth.
const DefaultPlannerSlots = 16

// Planner is a fixed-depth motion block buffer. The executor submits
// moves; the intake reads the free-slot count for its acknowledgment
// advisories. Real step generation is out of scope for the host; the
// buffer drains a block per Tick to model firmware consumption.
type Planner struct {
	mu    sync.Mutex
	moves []Move
	slots int
}

// NewPlanner creates a planner with the given block buffer depth.
func NewPlanner(slots int) *Planner {
	if slots <= 0 {
		slots = DefaultPlannerSlots
	}
	return &Planner{slots: slots}
}

// Submit adds a move, failing when the block buffer is full.
func (p *Planner) Submit(m Move) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.moves) >= p.slots {
		return false
	}
	p.moves = append(p.moves, m)
	return true
}

// FreeSlots implements the intake Planner interface.
func (p *Planner) FreeSlots() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.slots - len(p.moves)
}

// Pending returns the number of buffered moves.
func (p *Planner) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.moves)
}

// Tick consumes one buffered move, modeling firmware progress.
func (p *Planner) Tick() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.moves) > 0 {
		p.moves = p.moves[1:]
	}
}

// Drain empties the block buffer, modeling an M400 wait.
func (p *Planner) Drain() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.moves = p.moves[:0]
}
