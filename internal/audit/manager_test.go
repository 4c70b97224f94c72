package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/hibiken/asynq"
)

type stubSink struct {
	saved []Event
	err   error
}

func (s *stubSink) Save(ctx context.Context, event Event) error {
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, event)
	return nil
}

func TestNewEventAssignsIDAndTime(t *testing.T) {
	a := NewEvent(KindSignup, "a@x.com", "alice", "127.0.0.1")
	b := NewEvent(KindSignup, "a@x.com", "alice", "127.0.0.1")
	if a.ID == "" || a.ID == b.ID {
		t.Fatalf("expected unique ids, got %q and %q", a.ID, b.ID)
	}
	if a.OccurredAt.IsZero() || a.OccurredAt.Location().String() != "UTC" {
		t.Fatalf("unexpected timestamp: %v", a.OccurredAt)
	}
}

func TestHandleEventTaskSavesEvent(t *testing.T) {
	sink := &stubSink{}
	m := &Manager{sink: sink, logger: log.Default()}

	event := NewEvent(KindLoginSucceeded, "a@x.com", "alice", "10.0.0.1")
	task, err := newEventTask(event)
	if err != nil {
		t.Fatalf("newEventTask returned error: %v", err)
	}
	if task.Type() != taskTypeEvent {
		t.Fatalf("unexpected task type: %s", task.Type())
	}

	if err := m.handleEventTask(context.Background(), task); err != nil {
		t.Fatalf("handleEventTask returned error: %v", err)
	}
	if len(sink.saved) != 1 {
		t.Fatalf("expected 1 saved event, got %d", len(sink.saved))
	}
	got := sink.saved[0]
	if got.ID != event.ID || got.Kind != KindLoginSucceeded || got.Email != "a@x.com" || !got.OccurredAt.Equal(event.OccurredAt) {
		t.Fatalf("unexpected saved event: %#v", got)
	}
}

func TestHandleEventTaskSkipsRetryOnBadPayload(t *testing.T) {
	m := &Manager{sink: &stubSink{}, logger: log.Default()}

	err := m.handleEventTask(context.Background(), asynq.NewTask(taskTypeEvent, []byte("not-json")))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}

	body, _ := json.Marshal(Event{Kind: KindLogout})
	err = m.handleEventTask(context.Background(), asynq.NewTask(taskTypeEvent, body))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry for missing id, got %v", err)
	}
}

func TestHandleEventTaskPropagatesSinkError(t *testing.T) {
	sinkErr := errors.New("mongo down")
	m := &Manager{sink: &stubSink{err: sinkErr}, logger: log.Default()}

	task, err := newEventTask(NewEvent(KindLogout, "a@x.com", "", ""))
	if err != nil {
		t.Fatalf("newEventTask returned error: %v", err)
	}
	if err := m.handleEventTask(context.Background(), task); !errors.Is(err, sinkErr) {
		t.Fatalf("expected sink error to be retried, got %v", err)
	}
}

func TestNewEventTaskRequiresID(t *testing.T) {
	if _, err := newEventTask(Event{Kind: KindSignup}); err == nil {
		t.Fatal("expected error for event without id")
	}
}

func TestLogRecorder(t *testing.T) {
	var buf bytes.Buffer
	r := NewLogRecorder(log.New(&buf, "", 0))
	r.Record(context.Background(), NewEvent(KindLoginFailed, "a@x.com", "", "10.0.0.1"))
	if !strings.Contains(buf.String(), "kind=login_failed") || !strings.Contains(buf.String(), `email="a@x.com"`) {
		t.Fatalf("unexpected log line: %s", buf.String())
	}
}

// hangingRedis は接続を受け付けるだけで何も応答しないサーバーを起動します。
func hangingRedis(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	var conns []net.Conn
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conns = append(conns, conn)
		}
	}()
	t.Cleanup(func() {
		_ = ln.Close()
		<-done
		for _, c := range conns {
			_ = c.Close()
		}
	})
	return ln.Addr().String()
}

func TestRecordGivesUpWhenRedisHangs(t *testing.T) {
	var buf bytes.Buffer
	m, err := NewManager("redis://"+hangingRedis(t)+"/0", &stubSink{}, log.New(&buf, "", 0))
	if err != nil {
		t.Fatalf("NewManager returned error: %v", err)
	}
	t.Cleanup(func() { _ = m.client.Close() })
	m.enqueueTimeout = 100 * time.Millisecond

	start := time.Now()
	m.Record(context.WithoutCancel(context.Background()), NewEvent(KindLoginFailed, "a@x.com", "", "10.0.0.1"))
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("Record blocked for %s", elapsed)
	}
	if !strings.Contains(buf.String(), "failed to enqueue audit event kind=login_failed") {
		t.Fatalf("expected enqueue failure to be logged, got %q", buf.String())
	}
}
