// Metrics collection for the Marlin host migration
//
// Provides Prometheus-compatible metrics collection with support for:
// - Counter: Monotonically increasing values
// - Gauge: Values that can go up and down
//
// Outputs in Prometheus text format for easy scraping.
//
// Copyright (C) 2026 Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package metrics

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// Counter is a monotonically increasing metric, optionally partitioned
// by one label.
type Counter struct {
	name      string
	help      string
	labelName string

	total  atomic.Uint64
	series sync.Map // label value -> *atomic.Uint64
}

// NewCounter creates a counter without labels.
func NewCounter(name, help string) *Counter {
	return &Counter{name: name, help: help}
}

// NewLabeledCounter creates a counter partitioned by one label.
func NewLabeledCounter(name, help, labelName string) *Counter {
	return &Counter{name: name, help: help, labelName: labelName}
}

// Inc increments the unlabeled counter by one.
func (c *Counter) Inc() { c.total.Add(1) }

// IncLabel increments the series for one label value.
func (c *Counter) IncLabel(value string) {
	v, _ := c.series.LoadOrStore(value, &atomic.Uint64{})
	v.(*atomic.Uint64).Add(1)
	c.total.Add(1)
}

// Value returns the total across all series.
func (c *Counter) Value() uint64 { return c.total.Load() }

// LabelValue returns the count for one label value.
func (c *Counter) LabelValue(value string) uint64 {
	if v, ok := c.series.Load(value); ok {
		return v.(*atomic.Uint64).Load()
	}
	return 0
}

func (c *Counter) write(sb *strings.Builder) {
	writeHeader(sb, c.name, c.help, "counter")
	if c.labelName == "" {
		sb.WriteString(c.name)
		sb.WriteByte(' ')
		sb.WriteString(strconv.FormatUint(c.total.Load(), 10))
		sb.WriteByte('\n')
		return
	}
	var labels []string
	c.series.Range(func(k, _ interface{}) bool {
		labels = append(labels, k.(string))
		return true
	})
	sort.Strings(labels)
	for _, l := range labels {
		sb.WriteString(c.name)
		sb.WriteString("{")
		sb.WriteString(c.labelName)
		sb.WriteString("=\"")
		sb.WriteString(escapeLabel(l))
		sb.WriteString("\"} ")
		sb.WriteString(strconv.FormatUint(c.LabelValue(l), 10))
		sb.WriteByte('\n')
	}
}

// Gauge is a metric whose value can go up and down.
type Gauge struct {
	name  string
	help  string
	value atomic.Int64
}

// NewGauge creates a gauge.
func NewGauge(name, help string) *Gauge {
	return &Gauge{name: name, help: help}
}

// Set stores the gauge value.
func (g *Gauge) Set(v int64) { g.value.Store(v) }

// Value returns the current gauge value.
func (g *Gauge) Value() int64 { return g.value.Load() }

func (g *Gauge) write(sb *strings.Builder) {
	writeHeader(sb, g.name, g.help, "gauge")
	sb.WriteString(g.name)
	sb.WriteByte(' ')
	sb.WriteString(strconv.FormatInt(g.value.Load(), 10))
	sb.WriteByte('\n')
}

type metric interface {
	write(sb *strings.Builder)
}

// Registry holds metrics and renders them in Prometheus text format.
type Registry struct {
	mu      sync.Mutex
	order   []string
	metrics map[string]metric
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{metrics: make(map[string]metric)}
}

func (r *Registry) register(name string, m metric) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.metrics[name]; !ok {
		r.order = append(r.order, name)
	}
	r.metrics[name] = m
}

// Counter registers and returns an unlabeled counter.
func (r *Registry) Counter(name, help string) *Counter {
	c := NewCounter(name, help)
	r.register(name, c)
	return c
}

// LabeledCounter registers and returns a labeled counter.
func (r *Registry) LabeledCounter(name, help, labelName string) *Counter {
	c := NewLabeledCounter(name, help, labelName)
	r.register(name, c)
	return c
}

// Gauge registers and returns a gauge.
func (r *Registry) Gauge(name, help string) *Gauge {
	g := NewGauge(name, help)
	r.register(name, g)
	return g
}

// Render writes all metrics in Prometheus text exposition format.
func (r *Registry) Render() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sb strings.Builder
	for _, name := range r.order {
		r.metrics[name].write(&sb)
	}
	return sb.String()
}

func writeHeader(sb *strings.Builder, name, help, typ string) {
	sb.WriteString("# HELP ")
	sb.WriteString(name)
	sb.WriteByte(' ')
	sb.WriteString(help)
	sb.WriteString("\n# TYPE ")
	sb.WriteString(name)
	sb.WriteByte(' ')
	sb.WriteString(typ)
	sb.WriteByte('\n')
}

func escapeLabel(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}
