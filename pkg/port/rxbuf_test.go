package port

import (
	"testing"
)

func TestRxBufferRoundTrip(t *testing.T) {
	r := NewRxBuffer(8)
	data := []byte("G28\n")
	if n := r.PutBytes(data); n != len(data) {
		t.Fatalf("accepted %d of %d", n, len(data))
	}
	if r.Len() != 4 {
		t.Fatalf("len = %d", r.Len())
	}
	for i, want := range data {
		b, ok := r.ReadByte()
		if !ok || b != want {
			t.Fatalf("byte %d: got %q ok=%v", i, b, ok)
		}
	}
	if _, ok := r.ReadByte(); ok {
		t.Fatal("read from empty buffer succeeded")
	}
}

func TestRxBufferOverflowDropsNotBlocks(t *testing.T) {
	r := NewRxBuffer(4)
	for i := 0; i < 4; i++ {
		if !r.Put(byte('a' + i)) {
			t.Fatalf("put %d rejected with free space", i)
		}
	}
	if r.Put('z') {
		t.Fatal("put succeeded on a full buffer")
	}
	if r.Dropped() != 1 {
		t.Fatalf("dropped = %d", r.Dropped())
	}
	// Contents are untouched by the dropped byte.
	b, _ := r.ReadByte()
	if b != 'a' {
		t.Fatalf("first byte = %q", b)
	}
}

func TestRxBufferWraparound(t *testing.T) {
	r := NewRxBuffer(4)
	for round := 0; round < 100; round++ {
		b := byte(round)
		r.Put(b)
		got, ok := r.ReadByte()
		if !ok || got != b {
			t.Fatalf("round %d: got %d ok=%v", round, got, ok)
		}
	}
}

// TestRxBufferLengthThenCopy checks the consumer contract: snapshot the
// length once, then read exactly that many bytes while the producer
// keeps appending concurrently.
func TestRxBufferLengthThenCopy(t *testing.T) {
	r := NewRxBuffer(1 << 12)
	const total = 2048

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < total; i++ {
			for !r.Put(byte(i)) {
			}
		}
	}()

	var got []byte
	for len(got) < total {
		n := r.Len()
		for i := 0; i < n; i++ {
			b, ok := r.ReadByte()
			if !ok {
				t.Fatalf("snapshot promised %d bytes, got %d", n, i)
			}
			got = append(got, b)
		}
	}
	<-done

	for i, b := range got {
		if b != byte(i) {
			t.Fatalf("byte %d: got %d, want %d", i, b, byte(i))
		}
	}
}

func TestPipeRoundTrip(t *testing.T) {
	p := NewPipe("test")
	p.PushLine("G28")
	if p.BytesAvailable() != 4 {
		t.Fatalf("available = %d", p.BytesAvailable())
	}
	var line []byte
	for p.BytesAvailable() > 0 {
		b, _ := p.ReadByte()
		line = append(line, b)
	}
	if string(line) != "G28\n" {
		t.Fatalf("line = %q", line)
	}

	p.WriteResponse("ok")
	got := p.Responses()
	if len(got) != 1 || got[0] != "ok" {
		t.Fatalf("responses = %q", got)
	}
	if len(p.Responses()) != 0 {
		t.Fatal("responses not cleared")
	}
}
