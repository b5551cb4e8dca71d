// Package sse implements a Server-Sent Events broker that tells admin
// clients when the hierarchy should be re-fetched.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"
)

// EventHierarchyUpdated follows change events, throttled.
const EventHierarchyUpdated = "hierarchy.updated"

const (
	// historySize is how many recent messages are kept for reconnecting clients.
	historySize = 64
	// clientBuffer must hold a full replay.
	clientBuffer     = historySize
	defaultKeepAlive = 25 * time.Second
)

// event is one broadcast message before framing.
type event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type changeReq struct {
	kind    string
	subject string
}

type subscribeReq struct {
	ch    chan []byte
	after uint64
}

type message struct {
	id  uint64
	raw []byte
}

// Broker manages SSE client connections and broadcasts events.
//
// A single event loop goroutine owns the client set, the refresh throttle,
// the event sequence and the replay history. Public methods talk to it over
// channels. Every message carries an increasing id; a client reconnecting
// with Last-Event-ID gets the retained messages it missed.
type Broker struct {
	refreshMin time.Duration
	keepAlive  time.Duration

	subscribeCh   chan subscribeReq
	unsubscribeCh chan chan []byte
	changeCh      chan changeReq
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a broker that emits hierarchy.updated at most once per
// refreshThrottle. A change inside the window schedules one trailing
// refresh at its end.
func NewBroker(refreshThrottle time.Duration) *Broker {
	if refreshThrottle <= 0 {
		refreshThrottle = 2 * time.Second
	}

	b := &Broker{
		refreshMin:    refreshThrottle,
		keepAlive:     defaultKeepAlive,
		subscribeCh:   make(chan subscribeReq),
		unsubscribeCh: make(chan chan []byte),
		changeCh:      make(chan changeReq, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func send(ch chan []byte, raw []byte) {
	select {
	case ch <- raw:
	default:
		// Slow client; drop rather than block the loop.
	}
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	var (
		seq         uint64
		history     []message
		lastRefresh time.Time
		trailing    *time.Timer
		trailingCh  <-chan time.Time
	)

	broadcast := func(ev event) {
		payload, err := json.Marshal(ev.Data)
		if err != nil {
			return
		}
		seq++
		raw := fmt.Appendf(nil, "id: %d\nevent: %s\ndata: %s\n\n", seq, ev.Type, payload)

		history = append(history, message{id: seq, raw: raw})
		if len(history) > historySize {
			history = append(history[:0:0], history[len(history)-historySize:]...)
		}
		for ch := range clients {
			send(ch, raw)
		}
	}

	refresh := func(now time.Time) {
		lastRefresh = now
		broadcast(event{Type: EventHierarchyUpdated, Data: map[string]string{}})
	}

	for {
		select {
		case <-b.stopCh:
			if trailing != nil {
				trailing.Stop()
			}
			for ch := range clients {
				close(ch)
			}
			return

		case req := <-b.subscribeCh:
			clients[req.ch] = struct{}{}
			if req.after == 0 {
				continue
			}
			for _, m := range history {
				if m.id > req.after {
					send(req.ch, m.raw)
				}
			}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case req := <-b.changeCh:
			broadcast(event{Type: req.kind, Data: map[string]string{"subject": req.subject}})

			now := time.Now()
			wait := b.refreshMin - now.Sub(lastRefresh)
			switch {
			case wait <= 0:
				refresh(now)
			case trailingCh == nil:
				trailing = time.NewTimer(wait)
				trailingCh = trailing.C
			}

		case <-trailingCh:
			trailingCh = nil
			refresh(time.Now())

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close stops the event loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client and returns its channel. Retained messages
// with an id above lastEventID are queued first; 0 means no replay.
func (b *Broker) Subscribe(lastEventID uint64) chan []byte {
	ch := make(chan []byte, clientBuffer)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- subscribeReq{ch: ch, after: lastEventID}:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// PublishChange broadcasts a change of the given kind followed by a
// throttled hierarchy.updated.
func (b *Broker) PublishChange(kind, subject string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.changeCh <- changeReq{kind: kind, subject: subject}:
	case <-b.stopped:
	}
}

// ServeHTTP is the SSE endpoint handler (GET /api/events). It honours the
// Last-Event-ID request header and writes a comment line every keep-alive
// interval so idle proxies keep the stream open.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	lastID, _ := strconv.ParseUint(r.Header.Get("Last-Event-ID"), 10, 64)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe(lastID)
	defer b.Unsubscribe(ch)

	ping := time.NewTicker(b.keepAlive)
	defer ping.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
