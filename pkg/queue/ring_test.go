package queue

import (
	"fmt"
	"testing"

	"marlin-go-migration/pkg/protocol"
)

func TestRingBufferFIFO(t *testing.T) {
	r := NewRingBuffer(4)
	if r.Capacity() != 4 || !r.Empty() {
		t.Fatalf("fresh buffer: capacity=%d empty=%v", r.Capacity(), r.Empty())
	}

	for i := 0; i < 4; i++ {
		if !r.Enqueue(fmt.Sprintf("G%d", i), false, 0, int64(i+1)) {
			t.Fatalf("enqueue %d rejected with free slots", i)
		}
	}
	if r.Free() != 0 || !r.Full(1) {
		t.Fatalf("full buffer: free=%d full=%v", r.Free(), r.Full(1))
	}

	// Fifth command must be rejected without disturbing the contents.
	if r.Enqueue("G99", false, 0, 99) {
		t.Fatal("enqueue succeeded on a full buffer")
	}
	if r.Len() != 4 {
		t.Fatalf("rejected enqueue mutated length: %d", r.Len())
	}

	for i := 0; i < 4; i++ {
		e := r.Peek()
		if want := fmt.Sprintf("G%d", i); e.Text != want {
			t.Fatalf("dequeue order: got %q, want %q", e.Text, want)
		}
		if e.LineNumber != int64(i+1) {
			t.Fatalf("entry %d line number: got %d", i, e.LineNumber)
		}
		r.AdvanceRead()
	}
	if !r.Empty() {
		t.Fatal("buffer not empty after draining")
	}
}

func TestRingBufferOrderAcrossWrap(t *testing.T) {
	r := NewRingBuffer(3)
	next := 0
	popped := 0
	for next < 20 {
		for !r.Full(1) && next < 20 {
			r.Enqueue(fmt.Sprintf("C%d", next), false, 0, protocol.NoLineNumber)
			next++
		}
		for r.Occupied() {
			if want := fmt.Sprintf("C%d", popped); r.Peek().Text != want {
				t.Fatalf("got %q, want %q", r.Peek().Text, want)
			}
			r.AdvanceRead()
			popped++
		}
	}
	if popped != 20 {
		t.Fatalf("popped %d of 20", popped)
	}
}

func TestRingBufferFullBurst(t *testing.T) {
	r := NewRingBuffer(4)
	r.Enqueue("G28", false, 0, protocol.NoLineNumber)
	r.Enqueue("G90", false, 0, protocol.NoLineNumber)

	// Two free slots: a 2-burst fits, a 3-burst does not.
	if r.Full(2) {
		t.Fatal("2-burst should fit with 2 free slots")
	}
	if !r.Full(3) {
		t.Fatal("3-burst should not fit with 2 free slots")
	}
}

func TestRingBufferClear(t *testing.T) {
	r := NewRingBuffer(4)
	r.Enqueue("G28", false, 0, 1)
	r.Enqueue("G90", false, 0, 2)
	r.Clear()
	if !r.Empty() || r.Free() != 4 {
		t.Fatalf("clear: empty=%v free=%d", r.Empty(), r.Free())
	}
	if !r.Enqueue("G1 X1", false, 0, 3) {
		t.Fatal("enqueue after clear failed")
	}
	if r.Peek().Text != "G1 X1" {
		t.Fatalf("peek after clear: %q", r.Peek().Text)
	}
}
