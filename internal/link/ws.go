// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text


package link

import (
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/imu_streamer/internal/batch"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// WSTransport is a single-client WebSocket server. One receiver attaches
// at a time; a second attach attempt is rejected while a peer is present.
type WSTransport struct {
	mu           sync.Mutex
	peer         *wsPeer
	srv          *http.Server
	ln           net.Listener
	writeTimeout time.Duration
}

// NewWebSocket starts the notification endpoint on addr, serving the
// stream at path. The receiver must present the service identifier in
// the "service" query parameter.
func NewWebSocket(addr, path string, writeTimeout time.Duration) (*WSTransport, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("link listen on %s: %w", addr, err)
	}

	t := &WSTransport{ln: ln, writeTimeout: writeTimeout}

	mux := http.NewServeMux()
	mux.HandleFunc(path, t.handleAttach)
	t.srv = &http.Server{Handler: mux}

	go func() {
		if err := t.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Printf("link: serve error: %v", err)
		}
	}()

	log.Printf("link: websocket endpoint listening on %s%s", ln.Addr(), path)
	return t, nil
}

// Addr returns the bound listen address.
func (t *WSTransport) Addr() string { return t.ln.Addr().String() }

func (t *WSTransport) handleAttach(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("service") != ServiceUUID {
		http.Error(w, "unknown service", http.StatusForbidden)
		return
	}

	t.mu.Lock()
	if t.peer != nil && t.peer.Connected() {
		t.mu.Unlock()
		http.Error(w, "peer already attached", http.StatusConflict)
		return
	}
	t.mu.Unlock()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("link: websocket upgrade error: %v", err)
		return
	}

	p := &wsPeer{conn: conn, writeTimeout: t.writeTimeout}
	p.alive.Store(true)
	go p.readUntilClosed()

	t.mu.Lock()
	t.peer = p
	t.mu.Unlock()

	log.Printf("link: peer attached from %s", conn.RemoteAddr())
}

// Poll reports the attached peer, if one is present and still alive.
func (t *WSTransport) Poll() (Peer, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.peer == nil {
		return nil, false
	}
	if !t.peer.Connected() {
		t.peer = nil
		return nil, false
	}
	return t.peer, true
}

func (t *WSTransport) Close() error {
	t.mu.Lock()
	if t.peer != nil {
		t.peer.close()
		t.peer = nil
	}
	t.mu.Unlock()
	return t.srv.Close()
}

type wsPeer struct {
	conn         *websocket.Conn
	alive        atomic.Bool
	writeTimeout time.Duration
}

// readUntilClosed discards anything the peer sends; the read side exists
// only to detect departure.
func (p *wsPeer) readUntilClosed() {
	for {
		if _, _, err := p.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("link: peer read error: %v", err)
			} else {
				log.Printf("link: peer detached")
			}
			p.close()
			return
		}
	}
}

func (p *wsPeer) Connected() bool { return p.alive.Load() }

func (p *wsPeer) Publish(payload batch.Payload) error {
	if !p.alive.Load() {
		return fmt.Errorf("publish: peer detached")
	}

	msgType := websocket.BinaryMessage
	if payload.Text {
		msgType = websocket.TextMessage
	}

	if p.writeTimeout > 0 {
		p.conn.SetWriteDeadline(time.Now().Add(p.writeTimeout))
	}
	if err := p.conn.WriteMessage(msgType, payload.Data); err != nil {
		p.close()
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

func (p *wsPeer) close() {
	if p.alive.CompareAndSwap(true, false) {
		p.conn.Close()
	}
}
