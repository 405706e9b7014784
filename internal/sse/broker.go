// Package sse streams vault change notifications to browsers over
// Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// Event types emitted by the broker.
const (
	TypeContentCreated   = "content.created"
	TypeContentUpdated   = "content.updated"
	TypeContentDeleted   = "content.deleted"
	TypeStructureUpdated = "structure.updated"
)

const (
	defaultThrottle = 2 * time.Second
	clientBuffer    = 64
)

// Event is a single message written to every subscriber.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type contentChange struct {
	kind string
	path string
}

// Broker fans events out to connected clients.
//
// One goroutine owns the client set and the structure throttle clock;
// every public method talks to it over channels.
type Broker struct {
	throttle time.Duration

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	changeCh      chan contentChange
	countCh       chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker starts a broker. structure.updated is sent at most once per
// throttle interval no matter how many files change. Changes that land
// inside an interval are covered by one more structure.updated when it ends.
func NewBroker(throttle time.Duration) *Broker {
	if throttle <= 0 {
		throttle = defaultThrottle
	}
	b := &Broker{
		throttle:      throttle,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		changeCh:      make(chan contentChange, 256),
		countCh:       make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	go b.loop()
	return b
}

func encode(e Event) ([]byte, error) {
	payload, err := json.Marshal(e.Data)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", e.Type, payload)), nil
}

func changeType(kind string) (string, bool) {
	switch kind {
	case "created":
		return TypeContentCreated, true
	case "updated":
		return TypeContentUpdated, true
	case "deleted":
		return TypeContentDeleted, true
	}
	return "", false
}

func (b *Broker) loop() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	var lastStructure time.Time

	// trailing fires at the end of a window that saw suppressed changes.
	var trailing *time.Timer
	var trailingC <-chan time.Time
	defer func() {
		if trailing != nil {
			trailing.Stop()
		}
	}()

	send := func(e Event) {
		msg, err := encode(e)
		if err != nil {
			return
		}
		for ch := range clients {
			select {
			case ch <- msg:
			default:
				// slow client, drop
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case c := <-b.changeCh:
			typ, ok := changeType(c.kind)
			if !ok {
				continue
			}
			send(Event{Type: typ, Data: map[string]string{"path": c.path}})
			now := time.Now()
			switch {
			case now.Sub(lastStructure) >= b.throttle:
				if trailingC != nil {
					trailing.Stop()
					trailingC = nil
				}
				lastStructure = now
				send(Event{Type: TypeStructureUpdated, Data: map[string]string{}})
			case trailingC == nil:
				wait := b.throttle - now.Sub(lastStructure)
				if trailing == nil {
					trailing = time.NewTimer(wait)
				} else {
					trailing.Reset(wait)
				}
				trailingC = trailing.C
			}

		case <-trailingC:
			trailingC = nil
			lastStructure = time.Now()
			send(Event{Type: TypeStructureUpdated, Data: map[string]string{}})

		case resp := <-b.countCh:
			resp <- len(clients)
		}
	}
}

// Close stops the loop and closes every subscriber channel. Safe to call
// more than once.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe registers a client. The returned channel is closed on
// Unsubscribe or Close.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, clientBuffer)
	if b.closed.Load() {
		close(ch)
		return ch
	}
	select {
	case b.subscribeCh <- ch:
	case <-b.stopped:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client.
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
	case b.countCh <- resp:
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

// PublishContentEvent broadcasts a content change for a vault-relative path,
// followed by a throttled structure.updated. Unknown kinds are ignored.
func (b *Broker) PublishContentEvent(kind, path string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.changeCh <- contentChange{kind: kind, path: path}:
	case <-b.stopped:
	}
}

// ServeHTTP streams events to one client until it disconnects.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
