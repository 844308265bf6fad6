// services/player_service.go
package services

import (
	"errors"
	"sort"

	"github.com/wfunc/spyserver/models"
	"github.com/wfunc/spyserver/persistence"
	"github.com/wfunc/spyserver/stats"
)

var ErrPlayerNotFound = errors.New("player not found")

// PlayerService answers read-side queries about players. The in-memory
// recorder is authoritative for anyone seen this run; storage backfills
// players from earlier runs.
type PlayerService struct {
	recorder *stats.Recorder
	db       persistence.Database // nil means memory only
}

func NewPlayerService(recorder *stats.Recorder, db persistence.Database) *PlayerService {
	return &PlayerService{recorder: recorder, db: db}
}

// PlayerSummary 玩家统计摘要
type PlayerSummary struct {
	UserID          int64    `json:"user_id"`
	Name            string   `json:"name"`
	GamesPlayed     int      `json:"games_played"`
	SpyGames        int      `json:"spy_games"`
	SpyWins         int      `json:"spy_wins"`
	SpyWinRate      float64  `json:"spy_win_rate"`
	CivilianGames   int      `json:"civilian_games"`
	CivilianWins    int      `json:"civilian_wins"`
	CivilianWinRate float64  `json:"civilian_win_rate"`
	TotalVotesCast  int      `json:"total_votes_cast"`
	CorrectVotes    int      `json:"correct_votes"`
	Achievements    []string `json:"achievements"`
}

func summarize(rec *models.PlayerStatsRecord) PlayerSummary {
	return PlayerSummary{
		UserID:          rec.UserID,
		Name:            rec.Name,
		GamesPlayed:     rec.GamesPlayed,
		SpyGames:        rec.SpyGames,
		SpyWins:         rec.SpyWins,
		SpyWinRate:      rec.SpyWinRate(),
		CivilianGames:   rec.CivilianGames,
		CivilianWins:    rec.CivilianWins,
		CivilianWinRate: rec.CivilianWinRate(),
		TotalVotesCast:  rec.TotalVotesCast,
		CorrectVotes:    rec.CorrectVotes,
		Achievements:    append([]string(nil), rec.Achievements...),
	}
}

// GetPlayerStats returns the player's cumulative summary.
func (s *PlayerService) GetPlayerStats(userID int64) (PlayerSummary, error) {
	if rec, ok := s.recorder.Stats(userID); ok {
		return summarize(&rec), nil
	}
	if s.db != nil {
		rec, err := s.db.LoadPlayerStats(userID)
		if err == nil {
			return summarize(rec), nil
		}
		if !errors.Is(err, persistence.ErrRecordNotFound) {
			return PlayerSummary{}, err
		}
	}
	return PlayerSummary{}, ErrPlayerNotFound
}

// LeaderboardEntry 排行榜条目
type LeaderboardEntry struct {
	UserID int64   `json:"user_id"`
	Name   string  `json:"name"`
	Value  float64 `json:"value"`
}

// Leaderboard carries the three ranking views.
type Leaderboard struct {
	TopSpies      []LeaderboardEntry `json:"top_spies"`      // by spy wins
	TopDetectives []LeaderboardEntry `json:"top_detectives"` // by civilian win rate
	MostActive    []LeaderboardEntry `json:"most_active"`    // by games played
}

const minRankedCivilianGames = 10

// GetLeaderboard ranks everyone the recorder has seen. The detective board
// only admits players with enough civilian games for the rate to mean
// anything.
func (s *PlayerService) GetLeaderboard(limit int) Leaderboard {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	all := s.recorder.All()

	spies := make([]models.PlayerStatsRecord, 0, len(all))
	detectives := make([]models.PlayerStatsRecord, 0, len(all))
	active := make([]models.PlayerStatsRecord, 0, len(all))
	for _, rec := range all {
		if rec.SpyWins > 0 {
			spies = append(spies, rec)
		}
		if rec.CivilianGames >= minRankedCivilianGames {
			detectives = append(detectives, rec)
		}
		if rec.GamesPlayed > 0 {
			active = append(active, rec)
		}
	}

	sort.Slice(spies, func(i, j int) bool { return spies[i].SpyWins > spies[j].SpyWins })
	sort.Slice(detectives, func(i, j int) bool {
		return detectives[i].CivilianWinRate() > detectives[j].CivilianWinRate()
	})
	sort.Slice(active, func(i, j int) bool { return active[i].GamesPlayed > active[j].GamesPlayed })

	board := Leaderboard{}
	for _, rec := range truncate(spies, limit) {
		board.TopSpies = append(board.TopSpies, LeaderboardEntry{rec.UserID, rec.Name, float64(rec.SpyWins)})
	}
	for _, rec := range truncate(detectives, limit) {
		board.TopDetectives = append(board.TopDetectives, LeaderboardEntry{rec.UserID, rec.Name, rec.CivilianWinRate()})
	}
	for _, rec := range truncate(active, limit) {
		board.MostActive = append(board.MostActive, LeaderboardEntry{rec.UserID, rec.Name, float64(rec.GamesPlayed)})
	}
	return board
}

func truncate(recs []models.PlayerStatsRecord, limit int) []models.PlayerStatsRecord {
	if len(recs) > limit {
		return recs[:limit]
	}
	return recs
}
