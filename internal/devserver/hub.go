// ABOUTME: Per-session connection registry and broadcaster
// ABOUTME: Each peer has a buffered send queue drained by its own writer
package devserver

import (
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/kikitori/kikitori-go/pkg/protocol"
)

const (
	peerQueueSize = 100
	writeTimeout  = 10 * time.Second
)

// peer is one WebSocket connection attached to a session
type peer struct {
	sessionID string
	remote    string
	conn      *websocket.Conn
	sendChan  chan protocol.Envelope
	closed    bool
}

func newPeer(sessionID, remote string, conn *websocket.Conn) *peer {
	return &peer{
		sessionID: sessionID,
		remote:    remote,
		conn:      conn,
		sendChan:  make(chan protocol.Envelope, peerQueueSize),
	}
}

// writer drains the send queue until it is closed
func (p *peer) writer() {
	for env := range p.sendChan {
		p.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := p.conn.WriteJSON(env); err != nil {
			log.Printf("Error writing to %s: %v", p.remote, err)
			p.conn.Close()
			for range p.sendChan {
			}
			return
		}
	}
}

// hub tracks peers by session
type hub struct {
	mu       sync.RWMutex
	sessions map[string]map[*peer]struct{}
}

func newHub() *hub {
	return &hub{sessions: make(map[string]map[*peer]struct{})}
}

func (h *hub) join(p *peer) {
	h.mu.Lock()
	defer h.mu.Unlock()

	peers, ok := h.sessions[p.sessionID]
	if !ok {
		peers = make(map[*peer]struct{})
		h.sessions[p.sessionID] = peers
	}
	peers[p] = struct{}{}
}

// leave detaches p and closes its send queue
func (h *hub) leave(p *peer) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true
	close(p.sendChan)

	if peers, ok := h.sessions[p.sessionID]; ok {
		delete(peers, p)
		if len(peers) == 0 {
			delete(h.sessions, p.sessionID)
		}
	}
}

// send queues env for one peer
func (h *hub) send(p *peer, env protocol.Envelope) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.enqueue(p, env)
}

// broadcast queues env for every peer of a session except exclude
func (h *hub) broadcast(sessionID string, env protocol.Envelope, exclude *peer) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for p := range h.sessions[sessionID] {
		if p == exclude {
			continue
		}
		if h.enqueue(p, env) {
			sent++
		}
	}
	return sent
}

// enqueue must be called with mu held
func (h *hub) enqueue(p *peer, env protocol.Envelope) bool {
	if p.closed {
		return false
	}
	select {
	case p.sendChan <- env:
		return true
	default:
		log.Printf("Send queue full for %s, dropping %s", p.remote, env.Type)
		return false
	}
}

func (h *hub) count(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}

// closeAll detaches every peer
func (h *hub) closeAll() {
	h.mu.RLock()
	var all []*peer
	for _, peers := range h.sessions {
		for p := range peers {
			all = append(all, p)
		}
	}
	h.mu.RUnlock()

	for _, p := range all {
		h.leave(p)
		p.conn.Close()
	}
}
