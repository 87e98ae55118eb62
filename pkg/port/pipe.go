package port

import "sync"

// DefaultRxSize is the receive buffer size used by the transports.
const DefaultRxSize = 1024

// Pipe is an in-memory port used by tests and tools: bytes pushed on
// one side appear on the intake side, and responses are collected for
// inspection.
type Pipe struct {
	name string
	rx   *RxBuffer

	mu        sync.Mutex
	responses []string
}

// NewPipe creates an in-memory port.
func NewPipe(name string) *Pipe {
	return &Pipe{name: name, rx: NewRxBuffer(DefaultRxSize)}
}

// Name implements the intake Port interface.
func (p *Pipe) Name() string { return p.name }

// BytesAvailable implements the intake Port interface.
func (p *Pipe) BytesAvailable() int { return p.rx.Len() }

// ReadByte implements the intake Port interface.
func (p *Pipe) ReadByte() (byte, bool) { return p.rx.ReadByte() }

// WriteResponse implements the intake Port interface.
func (p *Pipe) WriteResponse(line string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.responses = append(p.responses, line)
	return nil
}

// Push feeds raw bytes into the receive side.
func (p *Pipe) Push(data string) {
	p.rx.PutBytes([]byte(data))
}

// PushLine feeds one terminated command line.
func (p *Pipe) PushLine(line string) {
	p.Push(line + "\n")
}

// Responses returns and clears the collected response lines.
func (p *Pipe) Responses() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.responses
	p.responses = nil
	return out
}
