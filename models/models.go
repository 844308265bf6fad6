// models/models.go
package models

import (
	"time"
)

// PlayerStatsRecord is the persisted cumulative record for one player. The
// schema is stable across process restarts and keyed by user id.
type PlayerStatsRecord struct {
	UserID         int64     `json:"user_id"`
	Name           string    `json:"name"`
	GamesPlayed    int       `json:"games_played"`
	SpyGames       int       `json:"spy_games"`
	SpyWins        int       `json:"spy_wins"`
	CivilianGames  int       `json:"civilian_games"`
	CivilianWins   int       `json:"civilian_wins"`
	TotalVotesCast int       `json:"total_votes_cast"`
	CorrectVotes   int       `json:"correct_votes"`
	Achievements   []string  `json:"achievements"`
	FirstGame      time.Time `json:"first_game"`
	LastGame       time.Time `json:"last_game"`
}

// SpyWinRate is the impostor win percentage, 0 when no impostor games.
func (r *PlayerStatsRecord) SpyWinRate() float64 {
	if r.SpyGames == 0 {
		return 0
	}
	return float64(r.SpyWins) / float64(r.SpyGames) * 100
}

// CivilianWinRate is the civilian win percentage, 0 when no civilian games.
func (r *PlayerStatsRecord) CivilianWinRate() float64 {
	if r.CivilianGames == 0 {
		return 0
	}
	return float64(r.CivilianWins) / float64(r.CivilianGames) * 100
}

// GameParticipant is one player's line in a finished game record.
type GameParticipant struct {
	UserID  int64  `json:"user_id"`
	Name    string `json:"name"`
	Role    string `json:"role"` // impostor/civilian at time of elimination
	Outcome string `json:"outcome"`
}

// GameRecord is the persisted summary of one finished game.
type GameRecord struct {
	RoomID       string            `json:"room_id"`
	Mode         string            `json:"mode"`
	Winner       string            `json:"winner"`
	Secret       string            `json:"secret"`
	Participants []GameParticipant `json:"participants"`
	Duration     int               `json:"duration"` // seconds
	CreatedAt    time.Time         `json:"created_at"`
}
