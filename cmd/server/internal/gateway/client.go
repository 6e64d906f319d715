package gateway

import (
	"encoding/json"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"go.uber.org/zap"

	"github.com/HaydenEquityAi/stockmarket/cmd/server/internal/protocol"
	"github.com/HaydenEquityAi/stockmarket/cmd/server/internal/registry"
)

const (
	maxMessageSize = 64 * 1024
)

// ClientAdapter wraps one raw websocket connection. A read pump applies
// subscribe/unsubscribe messages to the registry in arrival order; a write
// pump drains the send channel and owns the per-connection heartbeat timer,
// which dies with the pump when the transport closes.
type ClientAdapter struct {
	conn     net.Conn
	registry *registry.Registry
	send     chan []byte
	done     chan struct{}
	logger   *zap.Logger

	writeWait time.Duration
	heartbeat time.Duration

	open      atomic.Bool
	closeOnce sync.Once
}

func NewClient(conn net.Conn, reg *registry.Registry, logger *zap.Logger, heartbeat time.Duration) *ClientAdapter {
	c := &ClientAdapter{
		conn:      conn,
		registry:  reg,
		send:      make(chan []byte, 256),
		done:      make(chan struct{}),
		logger:    logger,
		writeWait: 5 * time.Second,
		heartbeat: heartbeat,
	}
	c.open.Store(true)
	return c
}

func (c *ClientAdapter) Start() {
	go c.writePump()
	go c.readPump()
}

func (c *ClientAdapter) ID() string   { return c.conn.RemoteAddr().String() }
func (c *ClientAdapter) IsOpen() bool { return c.open.Load() }

// Close marks the connection dead and signals the write pump, which tears
// down the underlying conn. The send channel is never closed so concurrent
// senders cannot race it; they just stop being drained.
func (c *ClientAdapter) Close() {
	c.closeOnce.Do(func() {
		c.open.Store(false)
		close(c.done)
	})
}

func (c *ClientAdapter) SendJSON(v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.SendBytes(b)
}

func (c *ClientAdapter) SendBytes(b []byte) {
	if !c.open.Load() {
		return
	}
	select {
	case c.send <- b:
	case <-c.done:
		// Closed while we were queueing; drop.
	default:
		// Drop message if buffer full (Backpressure)
	}
}

func (c *ClientAdapter) readPump() {
	defer func() {
		c.registry.OnDisconnect(c)
		c.Close()
		c.conn.Close()
	}()

	for {
		header, err := ws.ReadHeader(c.conn)
		if err != nil {
			break
		}

		if header.Length > int64(maxMessageSize) {
			c.logger.Warn("Msg too big", zap.Int64("size", header.Length))
			break
		}

		if !header.Fin {
			c.logger.Warn("Client sent fragmented message (not supported)")
			break
		}

		payload := make([]byte, header.Length)
		if _, err := io.ReadFull(c.conn, payload); err != nil {
			break
		}

		if header.Masked {
			ws.Cipher(payload, header.Mask, 0)
		}

		if header.OpCode == ws.OpClose {
			break
		}
		if header.OpCode == ws.OpPong || header.OpCode == ws.OpPing {
			continue
		}

		if header.OpCode == ws.OpText {
			c.handleMessage(payload)
		}
	}
}

// handleMessage applies one inbound frame. Malformed JSON is logged and the
// connection stays open.
func (c *ClientAdapter) handleMessage(payload []byte) {
	var msg protocol.ClientMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		c.logger.Warn("Invalid client message", zap.String("conn", c.ID()), zap.Error(err))
		return
	}

	switch msg.Type {
	case protocol.TypeSubscribe:
		symbol := strings.ToUpper(strings.TrimSpace(msg.Symbol))
		if symbol == "" {
			c.logger.Warn("Subscribe without symbol", zap.String("conn", c.ID()))
			return
		}
		ack := c.registry.Subscribe(c, symbol)
		c.SendJSON(ack)
	case protocol.TypeUnsubscribe:
		c.registry.Unsubscribe(c)
	default:
		c.logger.Warn("Unknown message type", zap.String("conn", c.ID()), zap.String("type", msg.Type))
	}
}

func (c *ClientAdapter) writePump() {
	ticker := time.NewTicker(c.heartbeat)
	defer func() {
		ticker.Stop()
		c.open.Store(false)
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			c.conn.Write(ws.CompiledClose)
			return

		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			if err := wsutil.WriteServerText(c.conn, msg); err != nil {
				return
			}

		case <-ticker.C:
			// Liveness heartbeat: keeps intermediaries from timing out idle
			// connections and tells the client what it is subscribed to.
			sym, _ := c.registry.SymbolFor(c)
			hb := protocol.NewHeartbeat(time.Now().UnixMilli(), sym)
			b, err := json.Marshal(hb)
			if err != nil {
				continue
			}
			c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			if err := wsutil.WriteServerText(c.conn, b); err != nil {
				return
			}
		}
	}
}
