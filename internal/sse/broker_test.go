package sse

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// drain collects every message currently buffered on ch.
func drain(ch chan []byte) []string {
	var out []string
	for {
		select {
		case msg := <-ch:
			out = append(out, string(msg))
		default:
			return out
		}
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	ch := b.Subscribe()
	if n := b.ClientCount(); n != 1 {
		t.Fatalf("ClientCount = %d, want 1", n)
	}
	b.Unsubscribe(ch)
	if n := b.ClientCount(); n != 0 {
		t.Fatalf("ClientCount after unsubscribe = %d, want 0", n)
	}
	if _, ok := <-ch; ok {
		t.Error("channel not closed on unsubscribe")
	}
}

func TestPublishContentEvent_WireFormat(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishContentEvent("updated", "intro/01.md")

	for _, want := range []string{
		"event: content.updated\ndata: {\"path\":\"intro/01.md\"}\n\n",
		"event: structure.updated\ndata: {}\n\n",
	} {
		select {
		case msg := <-ch:
			if string(msg) != want {
				t.Errorf("message = %q, want %q", msg, want)
			}
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for message")
		}
	}
}

func TestPublishContentEvent_StructureThrottled(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishContentEvent("created", "intro/a.md")
	b.PublishContentEvent("deleted", "intro/b.md")
	b.PublishContentEvent("renamed", "intro/c.md")
	time.Sleep(50 * time.Millisecond)

	counts := map[string]int{}
	for _, msg := range drain(ch) {
		typ := strings.TrimPrefix(strings.SplitN(msg, "\n", 2)[0], "event: ")
		counts[typ]++
	}
	if counts[TypeContentCreated] != 1 || counts[TypeContentDeleted] != 1 {
		t.Errorf("content events = %v", counts)
	}
	if counts[TypeStructureUpdated] != 1 {
		t.Errorf("structure.updated = %d, want 1 (throttled)", counts[TypeStructureUpdated])
	}
	if len(counts) != 3 {
		t.Errorf("unexpected event types: %v", counts)
	}
}

func TestPublishContentEvent_ThrottleWindowExpires(t *testing.T) {
	b := NewBroker(50 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishContentEvent("updated", "a.md")
	time.Sleep(100 * time.Millisecond)
	b.PublishContentEvent("updated", "a.md")
	time.Sleep(50 * time.Millisecond)

	n := 0
	for _, msg := range drain(ch) {
		if strings.HasPrefix(msg, "event: "+TypeStructureUpdated) {
			n++
		}
	}
	if n != 2 {
		t.Errorf("structure.updated = %d, want 2", n)
	}
}

func TestPublishContentEvent_TrailingStructureUpdate(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishContentEvent("updated", "a.md")
	time.Sleep(20 * time.Millisecond)
	b.PublishContentEvent("created", "b.md")
	b.PublishContentEvent("deleted", "c.md")

	time.Sleep(50 * time.Millisecond)
	if n := countType(drain(ch), TypeStructureUpdated); n != 1 {
		t.Fatalf("structure.updated inside window = %d, want 1", n)
	}

	time.Sleep(250 * time.Millisecond)
	if n := countType(drain(ch), TypeStructureUpdated); n != 1 {
		t.Errorf("structure.updated after window = %d, want 1 trailing event", n)
	}
}

func TestPublishContentEvent_NoTrailingWithoutChanges(t *testing.T) {
	b := NewBroker(50 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishContentEvent("updated", "a.md")
	time.Sleep(150 * time.Millisecond)
	if n := countType(drain(ch), TypeStructureUpdated); n != 1 {
		t.Errorf("structure.updated = %d, want 1", n)
	}
}

func countType(msgs []string, typ string) int {
	n := 0
	for _, msg := range msgs {
		if strings.HasPrefix(msg, "event: "+typ+"\n") {
			n++
		}
	}
	return n
}

// flushRecorder guards the recorder body so the test can read it while the
// handler goroutine writes.
type flushRecorder struct {
	mu  sync.Mutex
	rec *httptest.ResponseRecorder
}

func (f *flushRecorder) Header() http.Header { return f.rec.Header() }
func (f *flushRecorder) WriteHeader(code int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rec.WriteHeader(code)
}
func (f *flushRecorder) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rec.Write(p)
}
func (f *flushRecorder) Flush() {}
func (f *flushRecorder) body() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rec.Body.String()
}

func TestServeHTTP(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	w := &flushRecorder{rec: httptest.NewRecorder()}

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	if n := b.ClientCount(); n != 1 {
		t.Fatalf("ClientCount = %d, want 1", n)
	}

	b.PublishContentEvent("updated", "supervised/01-linear-regression.md")
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}
	body := w.body()
	if !strings.Contains(body, "event: content.updated") {
		t.Errorf("missing content event: %q", body)
	}
	if !strings.Contains(body, "event: structure.updated") {
		t.Errorf("missing structure event: %q", body)
	}

	time.Sleep(50 * time.Millisecond)
	if n := b.ClientCount(); n != 0 {
		t.Errorf("client not cleaned up, ClientCount = %d", n)
	}
}

func TestPublishContentEvent_FullBufferDoesNotBlock(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	for i := 0; i < clientBuffer+10; i++ {
		b.PublishContentEvent("updated", fmt.Sprintf("doc-%d.md", i))
	}
	if n := b.ClientCount(); n != 1 {
		t.Errorf("ClientCount = %d after overflow", n)
	}
}

func TestClose(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe()
	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("subscriber channel still open after Close")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}
	if n := b.ClientCount(); n != 0 {
		t.Errorf("ClientCount after Close = %d", n)
	}

	b.Close()
	b.PublishContentEvent("updated", "x.md")
	if _, ok := <-b.Subscribe(); ok {
		t.Error("Subscribe after Close returned open channel")
	}
}
