// models/gorm_models.go
package models

import (
	"gorm.io/gorm"
)

// GormPlayerStats mirrors PlayerStatsRecord for the GORM backend.
type GormPlayerStats struct {
	gorm.Model
	UserID         int64    `gorm:"uniqueIndex;not null"`
	Name           string   `gorm:"not null"`
	GamesPlayed    int      `gorm:"default:0"`
	SpyGames       int      `gorm:"default:0"`
	SpyWins        int      `gorm:"default:0"`
	CivilianGames  int      `gorm:"default:0"`
	CivilianWins   int      `gorm:"default:0"`
	TotalVotesCast int      `gorm:"default:0"`
	CorrectVotes   int      `gorm:"default:0"`
	Achievements   []string `gorm:"type:jsonb;serializer:json"`
}

// GormGameRecord mirrors GameRecord for the GORM backend.
type GormGameRecord struct {
	gorm.Model
	RoomID       string            `gorm:"index;not null"`
	Mode         string            `gorm:"not null"`
	Winner       string            `gorm:"not null"`
	Secret       string
	Participants []GameParticipant `gorm:"type:jsonb;serializer:json"`
	Duration     int               `gorm:"default:0"` // seconds
}
