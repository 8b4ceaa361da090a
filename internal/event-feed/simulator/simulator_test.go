package simulator

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"

	"github.com/radieske/sports-trade-engine/pkg/contracts/events"
)

type recordingPublisher struct {
	fail bool

	mu   sync.Mutex
	sent []events.FeedUpdate
}

func (p *recordingPublisher) Publish(_ context.Context, u events.FeedUpdate) error {
	if p.fail {
		return errors.New("kafka down")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, u)
	return nil
}

func newTestSimulator(pub Publisher, max int) *Simulator {
	return New(pub, nil, nil, Options{MaxEvents: max}, rand.New(rand.NewSource(42)))
}

func TestDynamicOdds(t *testing.T) {
	cases := []struct {
		s1, s2 int
		o1, o2 string
	}{
		{0, 0, "2.1", "2.1"},
		{1, 0, "1.8", "2.4"},
		{0, 2, "2.55", "1.65"},
		{5, 0, "1.46", "2.74"},
	}
	for _, tc := range cases {
		got := DynamicOdds("A", "B", tc.s1, tc.s2)
		if !got["A"].Equal(decimal.RequireFromString(tc.o1)) || !got["B"].Equal(decimal.RequireFromString(tc.o2)) {
			t.Errorf("DynamicOdds(%d, %d) = %s/%s, want %s/%s", tc.s1, tc.s2, got["A"], got["B"], tc.o1, tc.o2)
		}
	}
}

func TestIncrementRanges(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	limits := map[string]int{"Football": 1, "Basketball": 2, "Tennis": 1, "Cricket": 6, "Chess": 0}
	for sport, max := range limits {
		for i := 0; i < 200; i++ {
			if n := Increment(sport, rng); n < 0 || n > max {
				t.Fatalf("%s increment %d out of [0,%d]", sport, n, max)
			}
		}
	}
}

func TestNewEvent(t *testing.T) {
	pub := &recordingPublisher{}
	s := newTestSimulator(pub, 8)
	before := time.Now()

	u := s.NewEvent(context.Background())
	if u.Kind != events.FeedCreated || u.Status != "upcoming" || u.Version != 1 || u.Source != source {
		t.Fatalf("unexpected snapshot %+v", u)
	}
	if u.ScheduledAt.Before(before.Add(-time.Second)) || u.ScheduledAt.After(before.Add(maxSchedule+time.Second)) {
		t.Fatalf("scheduledAt out of window: %s", u.ScheduledAt)
	}
	if len(u.Scores) != 2 || len(u.Odds) != 2 {
		t.Fatalf("expected two teams, got %v / %v", u.Scores, u.Odds)
	}
	for team, sc := range u.Scores {
		if sc < 0 || sc > 4 {
			t.Errorf("initial score of %s out of range: %d", team, sc)
		}
	}
	if len(pub.sent) != 1 || pub.sent[0].EventID != u.EventID {
		t.Fatalf("expected created snapshot published, got %+v", pub.sent)
	}
	if testutil.ToFloat64(s.metrics.Generated) != 1 {
		t.Fatal("generated counter not incremented")
	}
}

func TestTick_RunsMatchToCompletion(t *testing.T) {
	pub := &recordingPublisher{}
	s := newTestSimulator(pub, 8)
	first := s.NewEvent(context.Background())
	s.now = func() time.Time { return first.ScheduledAt.Add(time.Minute) }

	var last events.FeedUpdate
	for i := 0; i < 500; i++ {
		u, ok := s.Tick(context.Background())
		if !ok {
			break
		}
		if i == 0 && (u.Status != "ongoing" && u.Status != "completed") {
			t.Fatalf("first tick past schedule must leave upcoming, got %s", u.Status)
		}
		if u.Version <= last.Version {
			t.Fatalf("version must grow: %d after %d", u.Version, last.Version)
		}
		last = u
	}
	if last.Status != "completed" || last.Winner == "" || last.Kind != events.FeedStatus {
		t.Fatalf("expected match completed with winner, got %+v", last)
	}
	if _, ok := last.Scores[last.Winner]; !ok {
		t.Fatalf("winner %q is not a team of the match", last.Winner)
	}
	if _, ok := s.Tick(context.Background()); ok {
		t.Fatal("completed matches must not tick")
	}
}

func TestTick_UpcomingStaysUpcomingBeforeSchedule(t *testing.T) {
	s := newTestSimulator(nil, 8)
	u := s.NewEvent(context.Background())
	s.now = func() time.Time { return u.ScheduledAt.Add(-time.Hour) }

	got, ok := s.Tick(context.Background())
	if !ok {
		t.Fatal("expected a tick")
	}
	if got.Status != "upcoming" && got.Status != "completed" {
		t.Fatalf("unexpected status before schedule: %s", got.Status)
	}
}

func TestEvictKeepsCatalogBounded(t *testing.T) {
	s := newTestSimulator(nil, 2)
	for i := 0; i < 5; i++ {
		s.NewEvent(context.Background())
	}
	if n := len(s.Events()); n != 2 {
		t.Fatalf("expected 2 events in catalog, got %d", n)
	}
}

func TestSnapshotIsIndependent(t *testing.T) {
	s := newTestSimulator(nil, 8)
	u := s.NewEvent(context.Background())
	for team := range u.Scores {
		u.Scores[team] = 99
	}
	for _, e := range s.Events() {
		for _, sc := range e.Scores {
			if sc == 99 {
				t.Fatal("catalog shares maps with returned snapshot")
			}
		}
	}
}

func TestPublishFailureIsCounted(t *testing.T) {
	s := newTestSimulator(&recordingPublisher{fail: true}, 8)
	s.NewEvent(context.Background())
	if testutil.ToFloat64(s.metrics.Failures) != 1 {
		t.Fatal("expected publish failure counted")
	}
}

func TestHandler(t *testing.T) {
	s := newTestSimulator(nil, 8)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	res, err := http.Get(srv.URL + "/mock/events")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer res.Body.Close()
	var u events.FeedUpdate
	if err := json.NewDecoder(res.Body).Decode(&u); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if u.EventID == "" || u.Name == "" {
		t.Fatalf("unexpected event %+v", u)
	}

	res2, _ := http.Post(srv.URL+"/mock/events", "application/json", nil)
	if res2.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", res2.StatusCode)
	}
	res2.Body.Close()
}
