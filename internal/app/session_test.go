package app

import (
	"errors"
	"testing"

	"live-poll-service/internal/domain"
)

func TestRetiredSessionRefusesNewState(t *testing.T) {
	s := NewSession("room")
	if !s.RetireIfEmpty() {
		t.Fatalf("expected empty session to retire")
	}
	if _, err := s.join("a", "Alice", domain.RoleStudent); !errors.Is(err, errSessionRetired) {
		t.Fatalf("expected join refused, got %v", err)
	}
	if _, _, err := s.subscribe(); !errors.Is(err, errSessionRetired) {
		t.Fatalf("expected subscribe refused, got %v", err)
	}
	if _, err := s.chat("a", "Alice", "hi", 0); !errors.Is(err, errSessionRetired) {
		t.Fatalf("expected chat refused, got %v", err)
	}
	if s.ParticipantCount() != 0 {
		t.Fatalf("retired session must stay empty")
	}
}

func TestSubscriberKeepsSessionAlive(t *testing.T) {
	s := NewSession("room")
	_, cancel, err := s.subscribe()
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if s.IsEmpty() || s.RetireIfEmpty() {
		t.Fatalf("session with a subscriber must not retire")
	}
	cancel()
	if !s.IsEmpty() || !s.RetireIfEmpty() {
		t.Fatalf("expected session to retire once the subscriber left")
	}
}

func TestLeaveCountsConnections(t *testing.T) {
	s := NewSession("room")
	for i := 0; i < 2; i++ {
		if _, err := s.join("a", "Alice", domain.RoleStudent); err != nil {
			t.Fatalf("join: %v", err)
		}
	}
	s.leave("a")
	if s.ParticipantCount() != 1 {
		t.Fatalf("expected participant kept while a connection remains")
	}
	s.leave("a")
	if s.ParticipantCount() != 0 {
		t.Fatalf("expected participant removed with the last connection")
	}
}
