// session/session.go
package session

import (
	"time"

	"github.com/wfunc/spyserver/game"
)

// Player is one roster entry. Roster order is join order.
type Player struct {
	ID   int64
	Name string
}

// Session is the mutable state of one game room. It is owned by the Store
// and must only be touched inside Store.Mutate; nothing here carries its own
// lock.
type Session struct {
	RoomID string
	Phase  game.Phase
	// Mode is nil until the host picks one in ModeSelect.
	Mode   *game.ModeConfig
	Roster []Player
	Host   int64
	// Secret is empty before the Waiting -> Discussion transition.
	Secret    string
	Impostors map[int64]struct{}
	// Decoys maps decoy players to the wrong secret they were told.
	Decoys map[int64]string
	// Votes holds at most one entry per roster member and is cleared at the
	// start of every voting round.
	Votes     map[int64]int64
	Round     int
	CreatedAt time.Time
	StartedAt time.Time
}

func newSession(roomID string, host int64, hostName string) *Session {
	return &Session{
		RoomID:    roomID,
		Phase:     game.PhaseModeSelect,
		Roster:    []Player{{ID: host, Name: hostName}},
		Host:      host,
		Impostors: make(map[int64]struct{}),
		Decoys:    make(map[int64]string),
		Votes:     make(map[int64]int64),
		CreatedAt: time.Now(),
	}
}

// HasPlayer reports roster membership.
func (s *Session) HasPlayer(playerID int64) bool {
	for _, p := range s.Roster {
		if p.ID == playerID {
			return true
		}
	}
	return false
}

// PlayerName returns the display name, or "Unknown" for strangers.
func (s *Session) PlayerName(playerID int64) string {
	for _, p := range s.Roster {
		if p.ID == playerID {
			return p.Name
		}
	}
	return "Unknown"
}

// RemovePlayer drops the player from the roster, preserving join order.
func (s *Session) RemovePlayer(playerID int64) {
	for i, p := range s.Roster {
		if p.ID == playerID {
			s.Roster = append(s.Roster[:i], s.Roster[i+1:]...)
			return
		}
	}
}

// RosterIDs returns the player ids in join order.
func (s *Session) RosterIDs() []int64 {
	ids := make([]int64, len(s.Roster))
	for i, p := range s.Roster {
		ids[i] = p.ID
	}
	return ids
}

// IsImpostor reports whether the player currently belongs to the impostor
// set (eliminated impostors are removed as they fall).
func (s *Session) IsImpostor(playerID int64) bool {
	_, ok := s.Impostors[playerID]
	return ok
}

// Transition moves the session to next after validating it against the
// phase graph. Invalid transitions fail with ErrInvalidPhase and change
// nothing.
func (s *Session) Transition(next game.Phase) error {
	if !s.Phase.CanTransitionTo(next) {
		return game.ErrInvalidPhase
	}
	s.Phase = next
	return nil
}
