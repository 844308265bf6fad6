package stats

import (
	"sync"
	"time"

	"github.com/wfunc/spyserver/game"
	"github.com/wfunc/spyserver/logger"
	"github.com/wfunc/spyserver/models"
	"github.com/wfunc/spyserver/persistence"
)

// Participant is one roster member at the moment a game ends, classified by
// the role they held at elimination time.
type Participant struct {
	ID       int64
	Name     string
	Impostor bool
}

// Recorder owns the process-wide player statistics table. Records are
// created lazily on first update and never deleted. Writes to the storage
// collaborator happen on a goroutine so no engine lock is ever held across
// I/O, and a failed write never touches in-memory state.
type Recorder struct {
	mu      sync.Mutex
	players map[int64]*models.PlayerStatsRecord
	db      persistence.Database // nil means memory only
}

// NewRecorder creates a recorder. db may be nil.
func NewRecorder(db persistence.Database) *Recorder {
	return &Recorder{
		players: make(map[int64]*models.PlayerStatsRecord),
		db:      db,
	}
}

// Warm preloads records persisted by earlier runs.
func (r *Recorder) Warm() {
	if r.db == nil {
		return
	}
	records, err := r.db.LoadAllPlayerStats()
	if err != nil {
		logger.Log.Errorf("failed to warm player stats: %v", err)
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range records {
		rec := records[i]
		r.players[rec.UserID] = &rec
	}
	logger.Log.Infof("warmed %d player stats records", len(records))
}

func (r *Recorder) recordLocked(userID int64, name string) *models.PlayerStatsRecord {
	rec, ok := r.players[userID]
	if !ok {
		rec = &models.PlayerStatsRecord{
			UserID:    userID,
			Name:      name,
			FirstGame: time.Now(),
		}
		r.players[userID] = rec
	}
	if name != "" {
		rec.Name = name // names drift between games
	}
	return rec
}

// RecordVotes credits every voter with a cast vote, and with a correct vote
// when their target was an impostor at the time of the round. Called once
// per closed voting round.
func (r *Recorder) RecordVotes(votes map[int64]int64, impostors map[int64]struct{}, names map[int64]string) {
	r.mu.Lock()
	var dirty []*models.PlayerStatsRecord
	for voter, target := range votes {
		rec := r.recordLocked(voter, names[voter])
		rec.TotalVotesCast++
		if _, ok := impostors[target]; ok {
			rec.CorrectVotes++
		}
		dirty = append(dirty, rec)
	}
	snapshots := snapshotAll(dirty)
	r.mu.Unlock()

	r.persistAsync(snapshots)
}

// RecordOutcome applies a terminal result to every participant and returns
// the achievements each of them just unlocked.
func (r *Recorder) RecordOutcome(participants []Participant, winner game.Side) map[int64][]string {
	now := time.Now()
	unlocks := make(map[int64][]string)

	r.mu.Lock()
	var dirty []*models.PlayerStatsRecord
	for _, p := range participants {
		rec := r.recordLocked(p.ID, p.Name)
		rec.GamesPlayed++
		rec.LastGame = now
		if p.Impostor {
			rec.SpyGames++
			if winner == game.SideImpostors {
				rec.SpyWins++
			}
		} else {
			rec.CivilianGames++
			if winner == game.SideCivilians {
				rec.CivilianWins++
			}
		}
		if fresh := newlyUnlocked(rec); len(fresh) > 0 {
			rec.Achievements = append(rec.Achievements, fresh...)
			unlocks[p.ID] = fresh
		}
		dirty = append(dirty, rec)
	}
	snapshots := snapshotAll(dirty)
	r.mu.Unlock()

	r.persistAsync(snapshots)
	return unlocks
}

// Stats returns a copy of the player's record.
func (r *Recorder) Stats(userID int64) (models.PlayerStatsRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.players[userID]
	if !ok {
		return models.PlayerStatsRecord{}, false
	}
	return *rec, true
}

// All returns copies of every record.
func (r *Recorder) All() []models.PlayerStatsRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]models.PlayerStatsRecord, 0, len(r.players))
	for _, rec := range r.players {
		result = append(result, *rec)
	}
	return result
}

// SaveGameRecord hands a finished game summary to storage, asynchronously.
func (r *Recorder) SaveGameRecord(rec *models.GameRecord) {
	if r.db == nil {
		return
	}
	go func() {
		if err := r.db.SaveGameRecord(rec); err != nil {
			logger.Log.Errorf("failed to persist game record for room %s: %v", rec.RoomID, err)
		}
	}()
}

func snapshotAll(records []*models.PlayerStatsRecord) []models.PlayerStatsRecord {
	snapshots := make([]models.PlayerStatsRecord, len(records))
	for i, rec := range records {
		snapshots[i] = *rec
		snapshots[i].Achievements = append([]string(nil), rec.Achievements...)
	}
	return snapshots
}

func (r *Recorder) persistAsync(snapshots []models.PlayerStatsRecord) {
	if r.db == nil || len(snapshots) == 0 {
		return
	}
	go func() {
		for i := range snapshots {
			if err := r.db.SavePlayerStats(&snapshots[i]); err != nil {
				logger.Log.Errorf("failed to persist stats for player %d: %v", snapshots[i].UserID, err)
			}
		}
	}()
}
