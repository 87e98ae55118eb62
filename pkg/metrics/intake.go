package metrics

import "net/http"

// Intake bundles the command-intake metrics. All methods are safe on a
// nil receiver so instrumented code needs no guards when metrics are
// disabled.
type Intake struct {
	registry *Registry

	lines      *Counter
	mediaLines *Counter
	injected   *Counter
	dispatched *Counter
	resends    *Counter
	queueFull  *Counter
	queueDepth *Gauge
}

// NewIntake registers the intake metrics on a registry.
func NewIntake(reg *Registry) *Intake {
	return &Intake{
		registry: reg,
		lines: reg.LabeledCounter("intake_lines_total",
			"Valid command lines accepted from live ports", "port"),
		mediaLines: reg.Counter("intake_media_lines_total",
			"Command lines replayed from offline media"),
		injected: reg.Counter("intake_injected_total",
			"Firmware-injected commands admitted"),
		dispatched: reg.Counter("intake_dispatched_total",
			"Commands handed to the interpreter"),
		resends: reg.Counter("intake_resends_total",
			"Resend requests issued for faulty lines"),
		queueFull: reg.Counter("intake_queue_full_total",
			"Intake cycles skipped because the ring buffer was full"),
		queueDepth: reg.Gauge("intake_queue_depth",
			"Commands currently pending in the ring buffer"),
	}
}

// Registry returns the backing registry.
func (m *Intake) Registry() *Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler returns an HTTP handler exposing the registry in Prometheus
// text format.
func (m *Intake) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		if m != nil {
			_, _ = w.Write([]byte(m.registry.Render()))
		}
	})
}

func (m *Intake) IncLine(port string) {
	if m != nil {
		m.lines.IncLabel(port)
	}
}

func (m *Intake) IncMediaLine() {
	if m != nil {
		m.mediaLines.Inc()
	}
}

func (m *Intake) IncInjected() {
	if m != nil {
		m.injected.Inc()
	}
}

func (m *Intake) IncDispatched() {
	if m != nil {
		m.dispatched.Inc()
	}
}

func (m *Intake) IncResend() {
	if m != nil {
		m.resends.Inc()
	}
}

func (m *Intake) IncQueueFull() {
	if m != nil {
		m.queueFull.Inc()
	}
}

func (m *Intake) SetQueueDepth(n int) {
	if m != nil {
		m.queueDepth.Set(int64(n))
	}
}
