package session

import (
	"errors"
	"sync"
	"testing"

	"github.com/wfunc/spyserver/game"
)

func TestStore_Create_Duplicate(t *testing.T) {
	store := NewStore()

	if err := store.Create("room1", 100, "alice"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := store.Create("room1", 200, "bob"); !errors.Is(err, game.ErrAlreadyActive) {
		t.Fatalf("Expected ErrAlreadyActive, got %v", err)
	}
	if store.Len() != 1 {
		t.Fatalf("Expected 1 session, got %d", store.Len())
	}
}

func TestStore_Mutate_UnknownRoom(t *testing.T) {
	store := NewStore()

	err := store.Mutate("nope", func(s *Session) error { return nil })
	if !errors.Is(err, game.ErrSessionNotFound) {
		t.Fatalf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestStore_Mutate_AfterDestroy(t *testing.T) {
	store := NewStore()
	store.Create("room1", 100, "alice")

	if !store.Destroy("room1") {
		t.Fatal("Destroy should report success for an existing room")
	}
	if store.Destroy("room1") {
		t.Fatal("Destroy should report failure the second time")
	}

	err := store.Mutate("room1", func(s *Session) error { return nil })
	if !errors.Is(err, game.ErrSessionNotFound) {
		t.Fatalf("Expected ErrSessionNotFound after destroy, got %v", err)
	}
}

func TestStore_ConcurrentMutates(t *testing.T) {
	store := NewStore()
	store.Create("room1", 1, "host")

	const workers = 50
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		id := int64(i + 2)
		go func() {
			defer wg.Done()
			store.Mutate("room1", func(s *Session) error {
				s.Roster = append(s.Roster, Player{ID: id, Name: "p"})
				return nil
			})
		}()
	}
	wg.Wait()

	var got int
	store.Mutate("room1", func(s *Session) error {
		got = len(s.Roster)
		return nil
	})
	if got != workers+1 {
		t.Fatalf("Expected %d roster members, got %d", workers+1, got)
	}
}

func TestSession_HostIsFirstMember(t *testing.T) {
	store := NewStore()
	store.Create("room1", 42, "host")

	store.Mutate("room1", func(s *Session) error {
		if s.Host != 42 {
			t.Errorf("Expected host 42, got %d", s.Host)
		}
		if len(s.Roster) != 1 || s.Roster[0].ID != 42 {
			t.Errorf("Host should be the first roster member, got %+v", s.Roster)
		}
		if s.Phase != game.PhaseModeSelect {
			t.Errorf("Expected initial phase %s, got %s", game.PhaseModeSelect, s.Phase)
		}
		return nil
	})
}

func TestSession_RemovePlayer(t *testing.T) {
	s := newSession("room1", 1, "alice")
	s.Roster = append(s.Roster, Player{ID: 2, Name: "bob"}, Player{ID: 3, Name: "carol"})

	s.RemovePlayer(2)
	if s.HasPlayer(2) {
		t.Fatal("Player 2 should be gone")
	}
	ids := s.RosterIDs()
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 3 {
		t.Fatalf("Join order should survive removal, got %v", ids)
	}

	// Removing an absent player is a no-op.
	s.RemovePlayer(99)
	if len(s.Roster) != 2 {
		t.Fatalf("Expected 2 roster members, got %d", len(s.Roster))
	}
}

func TestSession_Transition(t *testing.T) {
	s := newSession("room1", 1, "alice")

	if err := s.Transition(game.PhaseVoting); !errors.Is(err, game.ErrInvalidPhase) {
		t.Fatalf("ModeSelect -> Voting should be rejected, got %v", err)
	}
	if err := s.Transition(game.PhaseWaiting); err != nil {
		t.Fatalf("ModeSelect -> Waiting failed: %v", err)
	}
	if err := s.Transition(game.PhaseEnded); err != nil {
		t.Fatalf("Any phase should reach Ended, got %v", err)
	}
	if err := s.Transition(game.PhaseDiscussion); !errors.Is(err, game.ErrInvalidPhase) {
		t.Fatalf("Ended must be terminal, got %v", err)
	}
}

func TestSession_PlayerNameFallback(t *testing.T) {
	s := newSession("room1", 1, "alice")
	if got := s.PlayerName(1); got != "alice" {
		t.Errorf("Expected alice, got %q", got)
	}
	if got := s.PlayerName(9); got != "Unknown" {
		t.Errorf("Expected Unknown for absent player, got %q", got)
	}
}
