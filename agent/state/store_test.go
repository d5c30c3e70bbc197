package state

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func fixedClock() func() time.Time {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	return func() time.Time { return now }
}

func TestMemoryStoreGetOrCreate(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore(WithClock(fixedClock()))
	ctx := context.Background()

	st, created, err := store.GetOrCreate(ctx, "s1")
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	if !created || st.ID != "s1" || len(st.Turns) != 0 {
		t.Fatalf("unexpected first session: created=%v %#v", created, st)
	}

	_, created, err = store.GetOrCreate(ctx, " s1 ")
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	if created {
		t.Fatal("second GetOrCreate must reuse the session")
	}

	if _, _, err := store.GetOrCreate(ctx, "   "); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession, got %v", err)
	}
}

func TestMemoryStoreSnapshotsAreDetached(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()
	if _, _, err := store.GetOrCreate(ctx, "s1"); err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	if err := store.Append(ctx, "s1", Turn{Input: "hi", Output: "hello", Agent: "offtopic_expert"}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	snap, err := store.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	snap.Turns[0].Output = "tampered"
	snap.Turns = append(snap.Turns, Turn{Input: "x", Agent: "y"})

	again, _ := store.Get(ctx, "s1")
	if len(again.Turns) != 1 || again.Turns[0].Output != "hello" {
		t.Fatalf("store state leaked through snapshot: %#v", again.Turns)
	}
}

func TestMemoryStoreAppendValidation(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Append(ctx, "missing", Turn{Input: "a", Agent: "b"}); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	_, _, _ = store.GetOrCreate(ctx, "s1")
	if err := store.Append(ctx, "s1", Turn{Input: " ", Agent: "b"}); !errors.Is(err, ErrInvalidTurn) {
		t.Fatalf("expected ErrInvalidTurn, got %v", err)
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()
	_, _, _ = store.GetOrCreate(ctx, "s1")
	_, _, _ = store.GetOrCreate(ctx, "s2")

	ok, err := store.Delete(ctx, "s1")
	if err != nil || !ok {
		t.Fatalf("Delete() = %v, %v", ok, err)
	}
	if _, err := store.Get(ctx, "s1"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after delete, got %v", err)
	}

	ok, err = store.Delete(ctx, "unknown")
	if err != nil || ok {
		t.Fatalf("Delete(unknown) = %v, %v", ok, err)
	}
	if n, _ := store.Count(ctx); n != 1 {
		t.Fatalf("unknown delete changed the store, count=%d", n)
	}
}

func TestMemoryStoreListSummaries(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore(WithClock(fixedClock()))
	ctx := context.Background()
	_, _, _ = store.GetOrCreate(ctx, "s1")
	_, _, _ = store.GetOrCreate(ctx, "s2")

	at := time.Date(2026, 1, 1, 11, 0, 0, 0, time.UTC)
	_ = store.Append(ctx, "s1", Turn{Input: "a", Output: "b", Agent: "medical_expert", Timestamp: at})
	_ = store.Append(ctx, "s1", Turn{Input: "c", Output: "d", Agent: "offtopic_expert", Timestamp: at})

	got, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(got))
	}
	s1 := got["s1"]
	if s1.TurnCount != 2 || s1.LastAgent != "offtopic_expert" || !s1.LastActivity.Equal(at) {
		t.Fatalf("unexpected summary: %#v", s1)
	}
	if got["s2"].TurnCount != 0 {
		t.Fatalf("unexpected summary: %#v", got["s2"])
	}
}

func TestMemoryStoreConcurrentSessionsStayIsolated(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	const sessions = 8
	const perSession = 25

	var wg sync.WaitGroup
	for i := 0; i < sessions; i++ {
		id := fmt.Sprintf("s%d", i)
		for j := 0; j < perSession; j++ {
			wg.Add(1)
			go func(id string, j int) {
				defer wg.Done()
				if _, _, err := store.GetOrCreate(ctx, id); err != nil {
					t.Errorf("GetOrCreate() error = %v", err)
					return
				}
				if err := store.Append(ctx, id, Turn{Input: fmt.Sprintf("%s-%d", id, j), Agent: "medical_expert"}); err != nil {
					t.Errorf("Append() error = %v", err)
				}
			}(id, j)
		}
	}
	wg.Wait()

	for i := 0; i < sessions; i++ {
		id := fmt.Sprintf("s%d", i)
		st, err := store.Get(ctx, id)
		if err != nil {
			t.Fatalf("Get(%s) error = %v", id, err)
		}
		if len(st.Turns) != perSession {
			t.Fatalf("session %s has %d turns, want %d", id, len(st.Turns), perSession)
		}
		prefix := id + "-"
		for _, turn := range st.Turns {
			if len(turn.Input) <= len(prefix) || turn.Input[:len(prefix)] != prefix {
				t.Fatalf("session %s contains foreign turn %q", id, turn.Input)
			}
		}
	}
}

func TestMemoryStoreLockSerializesOneSession(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	var inFlight, maxInFlight atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := store.Lock(ctx, "same")
			if err != nil {
				t.Errorf("Lock() error = %v", err)
				return
			}
			defer unlock()
			n := inFlight.Add(1)
			for {
				cur := maxInFlight.Load()
				if n <= cur || maxInFlight.CompareAndSwap(cur, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			inFlight.Add(-1)
		}()
	}
	wg.Wait()

	if maxInFlight.Load() != 1 {
		t.Fatalf("expected at most one holder, saw %d", maxInFlight.Load())
	}
	if n := store.turns.size(); n != 0 {
		t.Fatalf("lock slots leaked: %d", n)
	}
}

func TestMemoryStoreLockDoesNotBlockOtherSessions(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	unlockA, err := store.Lock(ctx, "a")
	if err != nil {
		t.Fatalf("Lock(a) error = %v", err)
	}
	defer unlockA()

	timeout, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	unlockB, err := store.Lock(timeout, "b")
	if err != nil {
		t.Fatalf("Lock(b) blocked behind a: %v", err)
	}
	unlockB()
}

func TestMemoryStoreLockHonorsCancellation(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	unlock, err := store.Lock(context.Background(), "a")
	if err != nil {
		t.Fatalf("Lock() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := store.Lock(ctx, "a"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	unlock()
	unlock()
	if n := store.turns.size(); n != 0 {
		t.Fatalf("lock slots leaked: %d", n)
	}
}

func TestSessionRecent(t *testing.T) {
	t.Parallel()

	st := NewSession("s", time.Now())
	for i := 0; i < 5; i++ {
		st.append(Turn{Input: fmt.Sprint(i), Agent: "a"})
	}
	got := st.Recent(2)
	if len(got) != 2 || got[0].Input != "3" || got[1].Input != "4" {
		t.Fatalf("unexpected recent turns: %#v", got)
	}
	if st.Recent(0) != nil {
		t.Fatal("Recent(0) must be nil")
	}
	if len(st.Recent(10)) != 5 {
		t.Fatal("Recent(10) must return every turn")
	}
}
