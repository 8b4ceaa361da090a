package notify

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"
)

type fakeSub struct {
	id   string
	fail bool

	mu  sync.Mutex
	got [][]byte
}

func (f *fakeSub) ID() string { return f.id }

func (f *fakeSub) Deliver(p []byte) error {
	if f.fail {
		return errors.New("broken pipe")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, p)
	return nil
}

func (f *fakeSub) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.got))
	for i, b := range f.got {
		out[i] = string(b)
	}
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestHub_PublishOnlyToTopic(t *testing.T) {
	h := NewHub(nil)
	a := &fakeSub{id: "a"}
	b := &fakeSub{id: "b"}
	h.Subscribe("event-1", a)
	h.Subscribe("event-2", b)

	if err := h.Publish(context.Background(), "event-1", map[string]string{"type": "eventUpdate"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	waitFor(t, func() bool { return len(a.messages()) == 1 })
	if got := a.messages(); got[0] != `{"type":"eventUpdate"}` {
		t.Fatalf("unexpected messages for a: %v", got)
	}
	if len(b.messages()) != 0 {
		t.Fatal("b must not receive event-1 messages")
	}
}

func TestHub_DeliversInPublishOrder(t *testing.T) {
	h := NewHub(nil)
	a := &fakeSub{id: "a"}
	h.Subscribe("event-1", a)

	for i := 0; i < 10; i++ {
		h.Publish(context.Background(), "event-1", i)
	}
	waitFor(t, func() bool { return len(a.messages()) == 10 })
	for i, m := range a.messages() {
		if m != strconv.Itoa(i) {
			t.Fatalf("message %d out of order: %s", i, m)
		}
	}
}

func TestHub_SealRejectsNewSubscribers(t *testing.T) {
	h := NewHub(nil)
	early := &fakeSub{id: "early"}
	h.Subscribe("event-1", early)

	h.Seal(context.Background(), "event-1")
	if err := h.Subscribe("event-1", &fakeSub{id: "late"}); !errors.Is(err, ErrTopicSealed) {
		t.Fatalf("expected ErrTopicSealed, got %v", err)
	}
	// quem já estava continua recebendo até o DetachAll
	h.Publish(context.Background(), "event-1", "final")
	waitFor(t, func() bool { return len(early.messages()) == 1 })

	h.DetachAll(context.Background(), "event-1")
	if h.Count("event-1") != 0 {
		t.Fatalf("expected no subscribers after detach, got %d", h.Count("event-1"))
	}
}

func TestHub_ExpiredSealsArePruned(t *testing.T) {
	h := NewHub(nil)
	now := time.Now()
	h.now = func() time.Time { return now }

	h.Seal(context.Background(), "event-1")
	now = now.Add(sealTTL)
	if h.Sealed("event-1") {
		t.Fatal("seal must expire after sealTTL")
	}
	h.Seal(context.Background(), "event-2")

	h.mu.RLock()
	_, kept := h.sealed["event-1"]
	n := len(h.sealed)
	h.mu.RUnlock()
	if kept || n != 1 {
		t.Fatalf("expected only event-2 sealed, got %d entries (event-1 kept=%v)", n, kept)
	}
}

func TestHub_DropsFailingSubscriber(t *testing.T) {
	h := NewHub(nil)
	h.Subscribe("event-1", &fakeSub{id: "dead", fail: true})
	ok := &fakeSub{id: "ok"}
	h.Subscribe("event-1", ok)

	h.Publish(context.Background(), "event-1", "x")
	waitFor(t, func() bool { return h.Count("event-1") == 1 && len(ok.messages()) == 1 })
}

// stuckSub simula um cliente websocket que parou de ler
type stuckSub struct {
	release chan struct{}
}

func (s *stuckSub) ID() string { return "stuck" }

func (s *stuckSub) Deliver([]byte) error {
	<-s.release
	return nil
}

func TestHub_StalledSubscriberDoesNotBlockPublish(t *testing.T) {
	h := NewHub(nil)
	stuck := &stuckSub{release: make(chan struct{})}
	defer close(stuck.release)
	h.Subscribe("event-1", stuck)

	start := time.Now()
	for i := 0; i < mailboxSize+2; i++ {
		h.Publish(context.Background(), "event-1", i)
	}
	if took := time.Since(start); took > 500*time.Millisecond {
		t.Fatalf("publish blocked on stalled subscriber for %s", took)
	}
	// mailbox cheia derruba o assinante travado
	if h.Count("event-1") != 0 {
		t.Fatalf("expected stalled subscriber dropped, count=%d", h.Count("event-1"))
	}

	ok := &fakeSub{id: "ok"}
	h.Subscribe("event-1", ok)
	h.Publish(context.Background(), "event-1", "after")
	waitFor(t, func() bool { return len(ok.messages()) == 1 })
}

func TestHub_Unsubscribe(t *testing.T) {
	h := NewHub(nil)
	a := &fakeSub{id: "a"}
	h.Subscribe("event-1", a)
	h.Unsubscribe("event-1", a)
	h.Publish(context.Background(), "event-1", "x")
	time.Sleep(50 * time.Millisecond)
	if len(a.messages()) != 0 {
		t.Fatal("unsubscribed subscriber received a message")
	}
	if h.Count("event-1") != 0 {
		t.Fatal("expected no subscribers")
	}
}
