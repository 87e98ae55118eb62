package port

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialTestPort(t *testing.T, p *WSPort) (*websocket.Conn, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(p)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		srv.Close()
		t.Fatalf("dial: %v", err)
	}
	return conn, srv
}

func waitForBytes(t *testing.T, p *WSPort, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for p.BytesAvailable() < n {
		if time.Now().After(deadline) {
			t.Fatalf("timed out: %d of %d bytes", p.BytesAvailable(), n)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestWSPortReceivesFrames(t *testing.T) {
	p := NewWSPort("ws-test")
	conn, srv := dialTestPort(t, p)
	defer srv.Close()
	defer conn.Close()

	if err := conn.WriteMessage(websocket.TextMessage, []byte("G28")); err != nil {
		t.Fatalf("write: %v", err)
	}

	// The frame arrives with a terminator appended.
	waitForBytes(t, p, 4)
	var line []byte
	for i := 0; i < 4; i++ {
		b, ok := p.ReadByte()
		if !ok {
			t.Fatalf("short read at %d", i)
		}
		line = append(line, b)
	}
	if string(line) != "G28\n" {
		t.Fatalf("line = %q", line)
	}
}

func TestWSPortSendsResponses(t *testing.T) {
	p := NewWSPort("ws-test")
	conn, srv := dialTestPort(t, p)
	defer srv.Close()
	defer conn.Close()

	// A received frame guarantees the server side registered the
	// connection, so the response cannot race the handshake.
	if err := conn.WriteMessage(websocket.TextMessage, []byte("M114")); err != nil {
		t.Fatalf("write: %v", err)
	}
	waitForBytes(t, p, 5)

	if err := p.WriteResponse("ok N1 B4"); err != nil {
		t.Fatalf("response write: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "ok N1 B4" {
		t.Fatalf("response = %q", data)
	}
}

func TestWSPortResponseWithoutClientDropped(t *testing.T) {
	p := NewWSPort("ws-test")
	if err := p.WriteResponse("ok"); err != nil {
		t.Fatalf("write with no client: %v", err)
	}
}
