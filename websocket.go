package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// Relay passes chat messages between users connected on /ws/:user.
type Relay struct {
	id string

	mu    sync.RWMutex
	peers map[string]*peer

	deliver chan Delivery
	done    chan struct{}
	stop    sync.Once

	now    func() time.Time
	logger *slog.Logger
}

const (
	// time allowed to write a frame to a user
	writeWait = 10 * time.Second
	// frames queued per user before the user is dropped as too slow
	sendQueueSize = 256
)

// peer is a registered connection. Only its writePump writes to conn.
type peer struct {
	conn    *websocket.Conn
	send    chan []byte
	stopped chan struct{}
}

// Delivery is an encoded payload waiting to be written to a user.
type Delivery struct {
	From string
	To   string
	Data []byte
}

func NewRelay() *Relay {
	id := uuid.New().String()
	return &Relay{
		id:      id,
		peers:   make(map[string]*peer),
		deliver: make(chan Delivery, 32),
		done:    make(chan struct{}),
		now:     time.Now,
		logger:  slog.Default().With("component", "relay", "relay_id", id),
	}
}

func (r *Relay) ID() string {
	return r.id
}

// Peers returns the connected user names in order.
func (r *Relay) Peers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.peers))
	for name := range r.peers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Relay) HandleWebSocket(c *websocket.Conn) {
	user := strings.TrimSpace(c.Params("user"))
	logger := r.logger.With("user", user)

	p, err := r.register(user, c)
	if err != nil {
		logger.Warn("refusing connection", "error", err)
		msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error())
		if err := c.WriteMessage(websocket.CloseMessage, msg); err != nil {
			logger.Error("failed to send close message", "error", err)
		}
		return
	}
	go p.writePump(logger)
	defer func() {
		r.unregister(user, p)
		// nothing can queue to p any more, let the pump say goodbye
		close(p.send)
		<-p.stopped
	}()
	logger.Info("user connected")

	for {
		_, msg, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Error("read error", "error", err)
			} else {
				logger.Debug("connection closed", "error", err)
			}
			return
		}

		d, leave, err := r.route(user, msg)
		if err != nil {
			logger.Warn("dropping frame", "error", err)
			continue
		}
		if leave {
			logger.Info("user disconnected")
			return
		}

		select {
		case r.deliver <- d:
		case <-r.done:
			return
		}
	}
}

// route decodes one envelope. leave is true for a disconnect.
func (r *Relay) route(user string, data []byte) (d Delivery, leave bool, err error) {
	var action Action
	if err := json.Unmarshal(data, &action); err != nil {
		return d, false, fmt.Errorf("decode envelope: %w", err)
	}

	switch strings.TrimSpace(action.ActionType) {
	case ActionDisconnect:
		return d, true, nil
	case ActionSendMessage:
	default:
		return d, false, fmt.Errorf("%w: %q", ErrUnknownAction, action.ActionType)
	}

	var m SendMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return d, false, fmt.Errorf("decode %s: %w", ActionSendMessage, err)
	}

	// the connection path decides who is talking
	m.Sender = user
	m.Recipient = strings.TrimSpace(m.Recipient)
	if m.Recipient == "" {
		return d, false, fmt.Errorf("%s without recipient", ActionSendMessage)
	}
	if m.MessageID == "" {
		m.MessageID = uuid.New().String()
	}

	encoded, err := json.Marshal(payloadFrom(m, r.now()))
	if err != nil {
		return d, false, fmt.Errorf("encode payload: %w", err)
	}
	return Delivery{From: user, To: m.Recipient, Data: encoded}, false, nil
}

// HandleMessages hands queued deliveries to the users' send queues until
// Shutdown. It never writes to a connection itself.
func (r *Relay) HandleMessages() {
	for {
		select {
		case <-r.done:
			return
		case d := <-r.deliver:
			r.dispatch(d)
		}
	}
}

func (r *Relay) dispatch(d Delivery) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	target, online := r.peers[d.To]
	data := d.Data
	if !online {
		// tell the sender, if they are still around
		target, online = r.peers[d.From]
		if !online {
			return
		}
		data = []byte(fmt.Sprintf("user %s is not connected", d.To))
		r.logger.Debug("recipient offline", "from", d.From, "to", d.To)
	}

	select {
	case target.send <- data:
	default:
		// the reader side of the handler unregisters the user once the
		// connection is gone
		r.logger.Warn("send queue full, dropping user", "from", d.From, "to", d.To)
		target.conn.Close()
	}
}

// writePump drains the send queue until it is closed, then sends a normal
// close frame. Every write has a deadline so a user that stops reading
// cannot hold the pump forever.
func (p *peer) writePump(logger *slog.Logger) {
	defer close(p.stopped)

	for data := range p.send {
		if err := p.write(websocket.TextMessage, data); err != nil {
			logger.Error("write error", "error", err)
			p.conn.Close()
			// the handler closes the queue once its read fails
			for range p.send {
			}
			return
		}
	}

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := p.write(websocket.CloseMessage, msg); err != nil {
		logger.Debug("failed to send close message", "error", err)
	}
}

func (p *peer) write(messageType int, data []byte) error {
	if err := p.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return p.conn.WriteMessage(messageType, data)
}

func (r *Relay) register(user string, c *websocket.Conn) (*peer, error) {
	if user == "" {
		return nil, fmt.Errorf("empty user name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.peers[user]; ok {
		return nil, fmt.Errorf("%w: %s", ErrPeerTaken, user)
	}
	p := &peer{
		conn:    c,
		send:    make(chan []byte, sendQueueSize),
		stopped: make(chan struct{}),
	}
	r.peers[user] = p
	return p, nil
}

func (r *Relay) unregister(user string, p *peer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.peers[user] == p {
		delete(r.peers, user)
	}
}

// Shutdown stops HandleMessages. Connected users are left to the HTTP server.
func (r *Relay) Shutdown() {
	r.stop.Do(func() {
		close(r.done)
		r.logger.Info("relay stopped")
	})
}
