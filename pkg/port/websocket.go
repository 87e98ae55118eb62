package port

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"marlin-go-migration/pkg/log"
)

// WSPort exposes the command intake over a websocket endpoint: each
// received text frame is treated as raw command bytes (a terminator is
// appended when missing) and responses are sent back as text frames.
// One client is active at a time; a new connection replaces the old
// one, like a console reconnecting.
type WSPort struct {
	name string
	rx   *RxBuffer

	upgrader websocket.Upgrader
	logger   *log.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewWSPort creates a websocket port.
func NewWSPort(name string) *WSPort {
	return &WSPort{
		name: name,
		rx:   NewRxBuffer(DefaultRxSize),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: log.GetLogger("wsport"),
	}
}

// ServeHTTP upgrades the connection and runs its receive loop.
func (p *WSPort) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := p.upgrader.Upgrade(w, r, nil)
	if err != nil {
		p.logger.WithError(err).Warn("websocket upgrade failed")
		return
	}

	p.mu.Lock()
	if p.conn != nil {
		p.conn.Close()
	}
	p.conn = conn
	p.mu.Unlock()

	p.logger.Info("websocket client connected from %s", r.RemoteAddr)
	p.readLoop(conn)
}

func (p *WSPort) readLoop(conn *websocket.Conn) {
	defer func() {
		p.mu.Lock()
		if p.conn == conn {
			p.conn = nil
		}
		p.mu.Unlock()
		conn.Close()
	}()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				p.logger.WithError(err).Warn("websocket read failed")
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		if len(data) == 0 || data[len(data)-1] != '\n' {
			data = append(data, '\n')
		}
		if p.rx.PutBytes(data) < len(data) {
			p.logger.Warn("websocket receive buffer overflow (%d bytes dropped total)",
				p.rx.Dropped())
		}
	}
}

// Name implements the intake Port interface.
func (p *WSPort) Name() string { return p.name }

// BytesAvailable implements the intake Port interface.
func (p *WSPort) BytesAvailable() int { return p.rx.Len() }

// ReadByte implements the intake Port interface.
func (p *WSPort) ReadByte() (byte, bool) { return p.rx.ReadByte() }

// WriteResponse implements the intake Port interface. Responses while
// no client is connected are dropped; the protocol has no replay.
func (p *WSPort) WriteResponse(line string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return nil
	}
	return p.conn.WriteMessage(websocket.TextMessage, []byte(line))
}
