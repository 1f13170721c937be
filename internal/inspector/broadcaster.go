package inspector

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ashtrail/devtools/internal/hierarchy"
	"github.com/ashtrail/devtools/internal/mapview"
)

const (
	eventQueueSize = 64
	writeTimeout   = 5 * time.Second
)

// Message is the envelope of every text frame sent to clients. Binary
// frames are PNG-encoded map frames.
type Message struct {
	Action  string         `json:"action"`
	State   *State         `json:"state,omitempty"`
	Event   *Event         `json:"event,omitempty"`
	Summary *SummaryResult `json:"summary,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// SummaryResult wraps the inspector summary; Found is false when nothing
// is highlighted or the region has no record.
type SummaryResult struct {
	Found  bool               `json:"found"`
	Region *hierarchy.Summary `json:"region,omitempty"`
}

// Broadcaster pushes the session's frames, state and events to every
// connected websocket.
type Broadcaster struct {
	session    *Session
	clients    map[*websocket.Conn]bool
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	events     chan Event
	done       chan struct{}
	interval   time.Duration
	mu         sync.RWMutex
	WriteMu    map[*websocket.Conn]*sync.Mutex // per-conn write locks

	lastVersion uint64
	sentOnce    bool
}

func NewBroadcaster(s *Session, interval time.Duration) *Broadcaster {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	b := &Broadcaster{
		session:    s,
		clients:    make(map[*websocket.Conn]bool),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		events:     make(chan Event, eventQueueSize),
		done:       make(chan struct{}),
		interval:   interval,
		WriteMu:    make(map[*websocket.Conn]*sync.Mutex),
	}
	s.Subscribe(b.enqueue)
	return b
}

func (b *Broadcaster) enqueue(e Event) {
	select {
	case b.events <- e:
	default:
		log.Printf("event queue full, dropping %s event", e.Kind)
	}
}

// Run serves registrations and pushes frames until ctx is done, then
// closes every client.
func (b *Broadcaster) Run(ctx context.Context) {
	frameTicker := time.NewTicker(b.interval)
	defer func() {
		frameTicker.Stop()
		close(b.done)
		b.mu.Lock()
		for conn := range b.clients {
			conn.Close()
		}
		b.clients = map[*websocket.Conn]bool{}
		b.WriteMu = map[*websocket.Conn]*sync.Mutex{}
		b.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case conn := <-b.register:
			b.mu.Lock()
			b.clients[conn] = true
			b.WriteMu[conn] = &sync.Mutex{}
			b.mu.Unlock()

			// Send initial state and frame
			if err := b.sendState(conn); err != nil {
				log.Println("initial send error:", err)
				b.drop(conn)
				continue
			}
			frame, _, err := b.encodeFrame()
			if err != nil {
				log.Println("frame encode error:", err)
				continue
			}
			if err := b.write(conn, websocket.BinaryMessage, frame); err != nil {
				log.Println("initial frame error:", err)
				b.drop(conn)
			}

		case conn := <-b.unregister:
			b.drop(conn)

		case e := <-b.events:
			b.broadcastJSON(Message{Action: "event", Event: &e})
			// Every event can move the highlight.
			b.broadcastJSON(b.SummaryMessage())

		case <-frameTicker.C:
			if !b.dirty() {
				continue
			}
			frame, version, err := b.encodeFrame()
			if err != nil {
				log.Println("frame encode error:", err)
				continue
			}
			b.lastVersion, b.sentOnce = version, true
			b.broadcast(websocket.BinaryMessage, frame)
			b.BroadcastState()
		}
	}
}

func (b *Broadcaster) dirty() bool {
	b.mu.RLock()
	n := len(b.clients)
	b.mu.RUnlock()
	return n > 0 && (!b.sentOnce || b.session.Version() != b.lastVersion)
}

func (b *Broadcaster) encodeFrame() ([]byte, uint64, error) {
	pm, version := b.session.Frame()
	data, err := mapview.EncodePNG(pm)
	return data, version, err
}

// Register adds a client. After Run has returned the connection is
// closed instead.
func (b *Broadcaster) Register(conn *websocket.Conn) {
	select {
	case b.register <- conn:
	case <-b.done:
		conn.Close()
	}
}

func (b *Broadcaster) Unregister(conn *websocket.Conn) {
	select {
	case b.unregister <- conn:
	case <-b.done:
	}
}

// ClientCount is the number of registered connections.
func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

func (b *Broadcaster) drop(conn *websocket.Conn) {
	b.mu.Lock()
	if _, ok := b.clients[conn]; ok {
		delete(b.clients, conn)
		delete(b.WriteMu, conn)
		conn.Close()
	}
	b.mu.Unlock()
}

// write sends one message under the connection's write lock.
func (b *Broadcaster) write(conn *websocket.Conn, msgType int, data []byte) error {
	b.mu.RLock()
	mu, ok := b.WriteMu[conn]
	b.mu.RUnlock()
	if !ok {
		return websocket.ErrCloseSent
	}
	mu.Lock()
	defer mu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(msgType, data)
}

// WriteJSON replies to a single client.
func (b *Broadcaster) WriteJSON(conn *websocket.Conn, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return b.write(conn, websocket.TextMessage, data)
}

func (b *Broadcaster) broadcast(msgType int, data []byte) {
	b.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(b.clients))
	for conn := range b.clients {
		conns = append(conns, conn)
	}
	b.mu.RUnlock()

	for _, conn := range conns {
		if err := b.write(conn, msgType, data); err != nil {
			log.Println("broadcast error:", err)
			b.drop(conn)
		}
	}
}

func (b *Broadcaster) broadcastJSON(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Println("message marshal error:", err)
		return
	}
	b.broadcast(websocket.TextMessage, data)
}

func (b *Broadcaster) sendState(conn *websocket.Conn) error {
	st := b.session.State()
	return b.WriteJSON(conn, Message{Action: "state", State: &st})
}

// BroadcastState sends the current session state to every client.
func (b *Broadcaster) BroadcastState() {
	st := b.session.State()
	b.broadcastJSON(Message{Action: "state", State: &st})
}

// SummaryMessage describes the current highlight.
func (b *Broadcaster) SummaryMessage() Message {
	sum, ok := b.session.Summary()
	res := &SummaryResult{Found: ok}
	if ok {
		res.Region = &sum
	}
	return Message{Action: "summary", Summary: res}
}
