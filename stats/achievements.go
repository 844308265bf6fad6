package stats

import "github.com/wfunc/spyserver/models"

// Achievement pairs a display name with a pure predicate over a player's
// cumulative record. Predicates only ever flip from false to true, so an
// unlocked achievement stays unlocked.
type Achievement struct {
	ID        string
	Name      string
	Condition func(r *models.PlayerStatsRecord) bool
}

var Achievements = []Achievement{
	{"rookie", "Rookie Agent", func(r *models.PlayerStatsRecord) bool {
		return r.GamesPlayed >= 1
	}},
	{"spy_novice", "Spy Novice", func(r *models.PlayerStatsRecord) bool {
		return r.SpyWins >= 3
	}},
	{"detective", "Junior Detective", func(r *models.PlayerStatsRecord) bool {
		return r.CorrectVotes >= 5
	}},
	{"master_spy", "Master Spy", func(r *models.PlayerStatsRecord) bool {
		return r.SpyWins >= 10 && r.SpyGames >= 20
	}},
	{"super_sleuth", "Super Sleuth", func(r *models.PlayerStatsRecord) bool {
		return r.CorrectVotes >= 20
	}},
	{"veteran", "Veteran Agent", func(r *models.PlayerStatsRecord) bool {
		return r.GamesPlayed >= 50
	}},
	{"deceiver", "Master Deceiver", func(r *models.PlayerStatsRecord) bool {
		return r.SpyWins >= 15 && r.SpyWinRate() >= 70
	}},
	{"team_player", "Team Player", func(r *models.PlayerStatsRecord) bool {
		return r.CivilianWins >= 20
	}},
	{"perfectionist", "Perfectionist", func(r *models.PlayerStatsRecord) bool {
		return r.CivilianWinRate() >= 80 && r.CivilianGames >= 15
	}},
	{"legend", "Legendary Agent", func(r *models.PlayerStatsRecord) bool {
		return r.GamesPlayed >= 100 && r.SpyWinRate() >= 60 && r.CivilianWinRate() >= 60
	}},
}

// newlyUnlocked evaluates every predicate and returns the names not already
// present on the record.
func newlyUnlocked(r *models.PlayerStatsRecord) []string {
	unlocked := make(map[string]struct{}, len(r.Achievements))
	for _, name := range r.Achievements {
		unlocked[name] = struct{}{}
	}

	var fresh []string
	for _, a := range Achievements {
		if _, ok := unlocked[a.Name]; ok {
			continue
		}
		if a.Condition(r) {
			fresh = append(fresh, a.Name)
		}
	}
	return fresh
}
