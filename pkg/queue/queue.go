// Package queue implements the G-code command intake subsystem: it
// assembles textual commands from several concurrent sources into a
// single ordered ring buffer, hands them one at a time to the
// interpreter, and runs the line-number/checksum host protocol with
// resend recovery and flow-controlled acknowledgments.
//
// All state here is owned by the single main control cycle; the only
// concurrency boundary is inside each Port implementation (see
// pkg/port), so no locking is needed among the ring buffer, the
// per-port assembly states, and the injection channels.
package queue

import (
	"marlin-go-migration/pkg/errors"
	"marlin-go-migration/pkg/log"
	"marlin-go-migration/pkg/metrics"
	"marlin-go-migration/pkg/protocol"
)

// Executor runs one dequeued command to completion. Execution failures
// are the interpreter's concern; the intake neither retries nor
// re-orders on them.
type Executor interface {
	Execute(command string) error
}

// Planner reports free downstream execution-queue slots for the
// advanced-ok flow control counters.
type Planner interface {
	FreeSlots() int
}

// Port is one live command input: a byte source produced by an
// asynchronous receiver plus a response sink routed back to the same
// connection. ReadByte must only be called from the main control cycle.
type Port interface {
	Name() string
	BytesAvailable() int
	ReadByte() (byte, bool)
	WriteResponse(line string) error
}

// Playback is the offline-media line source (e.g. a stored print job).
type Playback interface {
	NextByte() (byte, bool)
	IsPrinting() bool
}

// Config holds the intake's fixed capacity constants.
type Config struct {
	// BufSize is the ring buffer capacity in commands.
	BufSize int

	// MaxCommandSize bounds a single command line in bytes.
	MaxCommandSize int

	// RuntimeInjectSize bounds the mutable injection channel.
	RuntimeInjectSize int

	// RequireChecksum rejects numbered lines that arrive without a
	// checksum field, as the strict firmware protocol does. Off by
	// default: most hosts send checksums anyway and unnumbered
	// consoles stay usable.
	RequireChecksum bool
}

// DefaultConfig mirrors the firmware defaults.
func DefaultConfig() Config {
	return Config{
		BufSize:           4,
		MaxCommandSize:    96,
		RuntimeInjectSize: DefaultRuntimeInjectSize,
	}
}

// Queue is the command intake context: ring buffer, per-port assembly
// state, injection channels, and the orchestrator/dispatcher
// operations. It replaces the firmware's global queue statics with one
// explicitly owned object.
type Queue struct {
	cfg    Config
	ring   *RingBuffer
	inject *Injector

	ports    []Port
	states   []*SerialState
	nextPort int

	media      Playback
	mediaState *SerialState

	exec    Executor
	planner Planner

	logger *log.Logger
	stats  *metrics.Intake
}

// New creates the intake context around an interpreter.
func New(cfg Config, exec Executor) *Queue {
	if cfg.BufSize <= 0 {
		cfg.BufSize = DefaultConfig().BufSize
	}
	if cfg.MaxCommandSize <= 0 {
		cfg.MaxCommandSize = DefaultConfig().MaxCommandSize
	}
	return &Queue{
		cfg:        cfg,
		ring:       NewRingBuffer(cfg.BufSize),
		inject:     NewInjector(cfg.RuntimeInjectSize),
		mediaState: NewSerialState(FirmwarePort, cfg.MaxCommandSize),
		exec:       exec,
		logger:     log.GetLogger("queue"),
	}
}

// AttachPort registers a live input port and returns its identifier.
func (q *Queue) AttachPort(p Port) int {
	id := len(q.ports)
	q.ports = append(q.ports, p)
	q.states = append(q.states, NewSerialState(id, q.cfg.MaxCommandSize))
	return id
}

// SetMedia attaches the offline playback source.
func (q *Queue) SetMedia(m Playback) { q.media = m }

// SetPlanner attaches the planner free-capacity collaborator.
func (q *Queue) SetPlanner(p Planner) { q.planner = p }

// SetMetrics attaches intake counters.
func (q *Queue) SetMetrics(m *metrics.Intake) { q.stats = m }

// Ring exposes the ring buffer for capacity queries.
func (q *Queue) Ring() *RingBuffer { return q.ring }

// InjectScript replaces the high-priority script channel; its commands
// win the next queue slots ahead of any host or media input.
func (q *Queue) InjectScript(commands string) {
	q.inject.InjectScript(commands)
}

// Inject replaces the runtime injection channel. A truncated burst is
// reported via errors.ErrInjectTruncated but still installed up to
// capacity.
func (q *Queue) Inject(commands string) error {
	err := q.inject.Inject(commands)
	if err != nil {
		q.logger.WithError(err).Warn("runtime injection truncated")
	}
	return err
}

// SetCurrentLineNumber resets a port's expected host line number, as
// the reserved M110 command does.
func (q *Queue) SetCurrentLineNumber(port int, n int64) {
	if port >= 0 && port < len(q.states) {
		q.states[port].SetLineNumber(n)
	}
}

// LastLineNumber returns a port's last accepted host line number.
func (q *Queue) LastLineNumber(port int) int64 {
	if port >= 0 && port < len(q.states) {
		return q.states[port].LastLineNumber()
	}
	return 0
}

// HasCommandsQueued reports whether any command is pending in the ring
// buffer or either injection channel.
func (q *Queue) HasCommandsQueued() bool {
	return q.ring.Occupied() || q.inject.HasPending()
}

// GetAvailableCommands runs once per control cycle and adds at most one
// command to the ring buffer, keeping per-cycle latency bounded. Source
// priority, strictly descending: script channel, runtime channel, live
// ports (round-robin), offline media.
func (q *Queue) GetAvailableCommands() {
	defer q.stats.SetQueueDepth(q.ring.Len())

	if q.ring.Full(1) {
		// Backpressure: leave bytes in the receive buffers and retry
		// next cycle.
		q.stats.IncQueueFull()
		return
	}

	if cmd, ok := q.inject.Drain(); ok {
		q.ring.Enqueue(cmd, true, FirmwarePort, protocol.NoLineNumber)
		q.stats.IncInjected()
		return
	}

	sawLiveData := false
	for i := 0; i < len(q.ports); i++ {
		idx := (q.nextPort + i) % len(q.ports)
		enqueued, hadData := q.pollPort(idx)
		sawLiveData = sawLiveData || hadData
		if enqueued {
			q.nextPort = (idx + 1) % len(q.ports)
			return
		}
	}

	if !sawLiveData && q.media != nil && q.media.IsPrinting() {
		q.pollMedia()
	}
}

// pollPort feeds one port's available bytes through its line assembler.
// Returns whether a command was enqueued and whether any bytes were
// pending.
func (q *Queue) pollPort(idx int) (enqueued, hadData bool) {
	p := q.ports[idx]
	state := q.states[idx]

	// Length-then-copy: snapshot the receive buffer's length once, then
	// consume at most that many bytes; the producer may keep appending
	// concurrently without affecting this cycle.
	avail := p.BytesAvailable()
	if avail > 0 {
		hadData = true
	}
	for ; avail > 0; avail-- {
		b, ok := p.ReadByte()
		if !ok {
			break
		}
		line, done, err := state.Feed(b)
		if err != nil {
			// Overflow: the assembler keeps draining to the
			// terminator on its own.
			q.lineError(idx, err)
			continue
		}
		if !done || line == "" {
			continue
		}
		if q.processLine(idx, line) {
			return true, hadData
		}
	}
	return false, hadData
}

// processLine validates one complete line against the port's protocol
// state and enqueues it. Returns true only when a command entered the
// ring buffer.
func (q *Queue) processLine(idx int, line string) bool {
	state := q.states[idx]
	f := protocol.ParseFrame(line)

	// The line-number reset command is accepted out of band: it updates
	// the expected sequence without occupying a queue slot.
	if n, ok := protocol.ParseLineNumberReset(f); ok {
		if err := q.validateFrame(idx, f, true); err != nil {
			q.lineError(idx, err)
			return false
		}
		state.SetLineNumber(n)
		q.writeResponse(idx, protocol.FormatOk(protocol.NoLineNumber, -1, -1))
		q.logger.WithField("port", q.ports[idx].Name()).
			Debug("line number reset to %d", n)
		return false
	}

	if err := q.validateFrame(idx, f, false); err != nil {
		q.lineError(idx, err)
		return false
	}

	if f.LineNumber != protocol.NoLineNumber {
		state.SetLineNumber(f.LineNumber)
	}

	if f.Command == "" {
		// A numbered line with no command still advances the sequence
		// and must not stall the host.
		q.writeResponse(idx, protocol.FormatOk(protocol.NoLineNumber, -1, -1))
		return false
	}

	q.ring.Enqueue(f.Command, false, idx, f.LineNumber)
	q.stats.IncLine(q.ports[idx].Name())
	return true
}

// validateFrame applies the host protocol rules: a numbered line must
// carry lastN+1 (unless it is the reset command) and a valid checksum.
func (q *Queue) validateFrame(idx int, f protocol.Frame, isReset bool) error {
	state := q.states[idx]

	if f.LineNumber != protocol.NoLineNumber {
		if !isReset && f.LineNumber != state.LastLineNumber()+1 {
			return errors.LineNumberError(idx, state.LastLineNumber())
		}
		if q.cfg.RequireChecksum && !f.HasChecksum {
			return errors.NoChecksumError(idx, state.LastLineNumber())
		}
	}
	if f.HasChecksum && f.Checksum != f.Computed {
		return errors.ChecksumError(idx, state.LastLineNumber())
	}
	return nil
}

// pollMedia feeds playback bytes until one command line completes.
// Media lines carry no host framing, so they bypass sequence and
// checksum validation and are replayed silently (skipAck).
func (q *Queue) pollMedia() bool {
	for {
		b, ok := q.media.NextByte()
		if !ok {
			return false
		}
		line, done, err := q.mediaState.Feed(b)
		if err != nil {
			q.logger.WithError(err).Warn("media line discarded")
			continue
		}
		if !done || line == "" {
			continue
		}
		f := protocol.ParseFrame(line)
		if f.Command == "" {
			continue
		}
		q.ring.Enqueue(f.Command, true, FirmwarePort, protocol.NoLineNumber)
		q.stats.IncMediaLine()
		return true
	}
}

// lineError converts a protocol or input fault into the host-visible
// resend cycle: Error + Resend naming the next expected line number +
// ok, addressed to the originating port. The faulty line never occupies
// a queue slot and the sequence does not advance, so repeating the same
// bad line keeps requesting the same number.
func (q *Queue) lineError(idx int, err error) {
	expected := q.states[idx].LastLineNumber() + 1
	q.stats.IncResend()
	q.logger.WithField("port", q.ports[idx].Name()).WithError(err).
		Warn("requesting resend of line %d", expected)

	if hostErr, ok := err.(*errors.HostError); ok {
		q.writeResponse(idx, protocol.FormatError(hostErr.Message))
	} else {
		q.writeResponse(idx, protocol.FormatError(err.Error()))
	}
	q.writeResponse(idx, protocol.FormatResend(expected))
	q.writeResponse(idx, protocol.FormatOk(protocol.NoLineNumber, -1, -1))
}

// Advance pops the oldest pending command, hands it to the interpreter,
// and runs the acknowledgment step. No-op when the ring buffer is
// empty.
func (q *Queue) Advance() {
	if q.ring.Empty() {
		return
	}
	entry := q.ring.Peek()
	if err := q.exec.Execute(entry.Text); err != nil {
		q.logger.WithField("command", entry.Text).WithError(err).
			Warn("command execution failed")
	}
	q.ring.AdvanceRead()
	q.stats.IncDispatched()
	q.stats.SetQueueDepth(q.ring.Len())

	if !entry.SkipAck {
		q.okToSend(entry)
	}
}

// Exhaust synchronously drains the ring buffer, guaranteeing no pending
// command remains (used before a controlled reset).
func (q *Queue) Exhaust() {
	for q.ring.Occupied() {
		q.Advance()
	}
}

// EnqueueNow admits a firmware command immediately, dispatching queued
// work as needed to free a slot. The command is silent (skipAck).
func (q *Queue) EnqueueNow(command string) {
	for q.ring.Full(1) {
		q.Advance()
	}
	q.ring.Enqueue(command, true, FirmwarePort, protocol.NoLineNumber)
}

// Clear discards all pending ring buffer commands.
func (q *Queue) Clear() {
	q.ring.Clear()
	q.stats.SetQueueDepth(0)
}

// okToSend emits the flow-controlled acknowledgment for a dispatched
// entry: the completed line number plus free-capacity counters for the
// downstream planner queue and this ring buffer.
func (q *Queue) okToSend(entry CommandEntry) {
	plannerFree := -1
	if q.planner != nil {
		plannerFree = q.planner.FreeSlots()
	}
	q.writeResponse(entry.Port,
		protocol.FormatOk(entry.LineNumber, plannerFree, q.ring.Free()))
}

func (q *Queue) writeResponse(idx int, line string) {
	if idx < 0 || idx >= len(q.ports) {
		return
	}
	if err := q.ports[idx].WriteResponse(line); err != nil {
		q.logger.WithField("port", q.ports[idx].Name()).WithError(err).
			Warn("response write failed")
	}
}
