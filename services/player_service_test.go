package services

import (
	"errors"
	"testing"

	"github.com/wfunc/spyserver/game"
	"github.com/wfunc/spyserver/stats"
)

func recorderWith(outcomes map[int64][2]int) *stats.Recorder {
	// outcomes maps user id to {civilian games, civilian wins}.
	r := stats.NewRecorder(nil)
	for id, o := range outcomes {
		for i := 0; i < o[0]; i++ {
			winner := game.SideImpostors
			if i < o[1] {
				winner = game.SideCivilians
			}
			r.RecordOutcome([]stats.Participant{{ID: id, Name: "p"}}, winner)
		}
	}
	return r
}

func TestGetPlayerStats_MemoryHit(t *testing.T) {
	r := stats.NewRecorder(nil)
	r.RecordOutcome([]stats.Participant{{ID: 7, Name: "alice", Impostor: true}}, game.SideImpostors)
	svc := NewPlayerService(r, nil)

	summary, err := svc.GetPlayerStats(7)
	if err != nil {
		t.Fatalf("GetPlayerStats failed: %v", err)
	}
	if summary.SpyWins != 1 || summary.SpyWinRate != 100 {
		t.Fatalf("Unexpected summary: %+v", summary)
	}
}

func TestGetPlayerStats_Unknown(t *testing.T) {
	svc := NewPlayerService(stats.NewRecorder(nil), nil)
	if _, err := svc.GetPlayerStats(12345); !errors.Is(err, ErrPlayerNotFound) {
		t.Fatalf("Expected ErrPlayerNotFound, got %v", err)
	}
}

func TestGetLeaderboard_DetectiveMinimum(t *testing.T) {
	// Player 1 has a perfect rate but too few games; player 2 qualifies.
	r := recorderWith(map[int64][2]int{
		1: {3, 3},
		2: {12, 8},
	})
	svc := NewPlayerService(r, nil)

	board := svc.GetLeaderboard(10)
	if len(board.TopDetectives) != 1 {
		t.Fatalf("Expected 1 ranked detective, got %d", len(board.TopDetectives))
	}
	if board.TopDetectives[0].UserID != 2 {
		t.Fatalf("Player 2 should be ranked, got %d", board.TopDetectives[0].UserID)
	}
	if len(board.MostActive) != 2 {
		t.Fatalf("Both players have games, got %d active entries", len(board.MostActive))
	}
	if board.MostActive[0].UserID != 2 {
		t.Fatal("Player 2 played more games and should rank first")
	}
}

func TestGetLeaderboard_TopSpiesOrderedAndLimited(t *testing.T) {
	r := stats.NewRecorder(nil)
	for id := int64(1); id <= 5; id++ {
		for w := int64(0); w < id; w++ {
			r.RecordOutcome([]stats.Participant{{ID: id, Name: "p", Impostor: true}}, game.SideImpostors)
		}
	}
	svc := NewPlayerService(r, nil)

	board := svc.GetLeaderboard(3)
	if len(board.TopSpies) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(board.TopSpies))
	}
	if board.TopSpies[0].UserID != 5 || board.TopSpies[0].Value != 5 {
		t.Fatalf("Player 5 should lead with 5 wins, got %+v", board.TopSpies[0])
	}
	if board.TopSpies[2].UserID != 3 {
		t.Fatalf("Third place should be player 3, got %+v", board.TopSpies[2])
	}
}
