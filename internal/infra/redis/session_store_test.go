package redis

import (
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"live-poll-service/internal/app"
)

func TestSessionStoreSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewSessionStore(client, time.Minute)

	_ = store.GetOrCreate("classroom")
	if !mr.Exists("poll:session:classroom") {
		t.Fatalf("expected redis key to be set")
	}
	if ttl := mr.TTL("poll:session:classroom"); ttl != time.Minute {
		t.Fatalf("expected ttl of one minute, got %v", ttl)
	}

	store.DeleteIfEmpty("classroom")
	if mr.Exists("poll:session:classroom") {
		t.Fatalf("expected redis key to be removed")
	}
}

func TestSessionStoreGetRefreshesTTL(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewSessionStore(client, time.Minute)
	_ = store.GetOrCreate("classroom")

	mr.FastForward(40 * time.Second)
	if _, ok := store.Get("classroom"); !ok {
		t.Fatalf("expected session")
	}
	mr.FastForward(40 * time.Second)
	if !mr.Exists("poll:session:classroom") {
		t.Fatalf("expected liveness marker refreshed by Get")
	}
}

func TestSessionStoreMarkerHoldsCreationTime(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	created := time.Date(2025, 2, 10, 9, 0, 0, 0, time.UTC)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewSessionStore(client, time.Minute, app.WithClock(func() time.Time { return created }))
	_ = store.GetOrCreate("classroom")

	got, err := mr.Get("poll:session:classroom")
	if err != nil {
		t.Fatalf("get marker: %v", err)
	}
	if got != "2025-02-10T09:00:00Z" {
		t.Fatalf("unexpected marker %q", got)
	}
}
