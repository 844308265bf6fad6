// persistence/interface.go
package persistence

import (
	"errors"

	"github.com/wfunc/spyserver/models"
)

// Database is the storage collaborator for cumulative player stats and
// finished game records. Engine state never depends on these calls
// succeeding.
type Database interface {
	SavePlayerStats(rec *models.PlayerStatsRecord) error
	LoadPlayerStats(userID int64) (*models.PlayerStatsRecord, error)
	LoadAllPlayerStats() ([]models.PlayerStatsRecord, error)
	SaveGameRecord(rec *models.GameRecord) error
	Close() error
}

var ErrRecordNotFound = errors.New("record not found")
