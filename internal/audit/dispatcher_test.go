package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type blockingSink struct {
	release chan struct{}
}

func (s *blockingSink) Emit(context.Context, Event) {
	<-s.release
}

func TestDispatcherDisabledIsNil(t *testing.T) {
	if d := NewDispatcher(Config{Enabled: false}, NoOpSink{}); d != nil {
		t.Fatal("expected nil dispatcher when disabled")
	}
	var d *Dispatcher
	d.Emit(context.Background(), Event{})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher must report zero drops")
	}
}

func TestDispatcherDeliversInOrder(t *testing.T) {
	sink := NewChannelSink(8)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 8}, sink)

	for _, typ := range []string{"login_success", "logout_success"} {
		d.Emit(context.Background(), Event{EventType: typ})
	}
	d.Close()

	for _, want := range []string{"login_success", "logout_success"} {
		select {
		case got := <-sink.Events():
			if got.EventType != want {
				t.Fatalf("expected %s, got %s", want, got.EventType)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %s", want)
		}
	}
}

func TestDispatcherDropIfFull(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), Event{EventType: "login_failure"})
	}
	if d.Dropped() == 0 {
		t.Fatal("expected drops with a stalled sink")
	}
	close(sink.release)
	d.Close()
}

func TestDispatcherBlockingModeHonorsContext(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1}, sink)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	// one event parks in the sink and one fills the buffer, so the third waits out ctx
	for i := 0; i < 3; i++ {
		d.Emit(ctx, Event{EventType: "login_failure"})
	}
	if d.Dropped() != 1 {
		t.Fatalf("expected 1 dropped, got %d", d.Dropped())
	}

	close(sink.release)
	d.Close()
}

func TestDispatcherCloseIsIdempotentAndFlushes(t *testing.T) {
	sink := NewChannelSink(16)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 16}, sink)
	for i := 0; i < 5; i++ {
		d.Emit(context.Background(), Event{EventType: "refresh_success"})
	}
	d.Close()
	d.Close()

	if got := d.Delivered(); got != 5 {
		t.Fatalf("expected 5 delivered, got %d", got)
	}
	d.Emit(context.Background(), Event{EventType: "late"})
	if got := d.Delivered(); got != 5 {
		t.Fatalf("emit after close must be ignored, delivered=%d", got)
	}
}

func TestJSONWriterSinkOneLinePerEvent(t *testing.T) {
	var buf bytes.Buffer
	s := NewJSONWriterSink(&buf)
	s.Emit(context.Background(), Event{EventType: "a", TenantID: "1", Success: true})
	s.Emit(context.Background(), Event{EventType: "b"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	var ev Event
	if err := json.Unmarshal([]byte(lines[0]), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.EventType != "a" || ev.TenantID != "1" || !ev.Success {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestZerologSinkLevels(t *testing.T) {
	var buf bytes.Buffer
	s := NewZerologSink(zerolog.New(&buf))

	s.Emit(context.Background(), Event{EventType: "login_failure", Error: "invalid_credentials", Metadata: map[string]string{"reason": "password"}})

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if line["level"] != "warn" || line["event_type"] != "login_failure" || line["component"] != "audit" {
		t.Fatalf("unexpected log line: %v", line)
	}
	if md, ok := line["metadata"].(map[string]any); !ok || md["reason"] != "password" {
		t.Fatalf("expected metadata dict, got %v", line["metadata"])
	}
}
