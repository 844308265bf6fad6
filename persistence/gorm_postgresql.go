// persistence/gorm_postgresql.go
package persistence

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/wfunc/spyserver/models"
)

// GormPostgreSQL is the GORM-backed implementation of Database.
type GormPostgreSQL struct {
	db *gorm.DB
}

// NewGormPostgreSQL opens a GORM connection and migrates the schema.
func NewGormPostgreSQL(host string, port int, user, password, dbname string) (*GormPostgreSQL, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	gormLogger := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold: time.Second,
			LogLevel:      gormlogger.Silent,
			Colorful:      false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&models.GormPlayerStats{}, &models.GormGameRecord{}); err != nil {
		return nil, err
	}

	return &GormPostgreSQL{db: db}, nil
}

// SavePlayerStats upserts the cumulative record by user id.
func (g *GormPostgreSQL) SavePlayerStats(rec *models.PlayerStatsRecord) error {
	var row models.GormPlayerStats
	result := g.db.Where("user_id = ?", rec.UserID).First(&row)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		row = toGormPlayer(rec)
		return g.db.Create(&row).Error
	} else if result.Error != nil {
		return result.Error
	}

	updated := toGormPlayer(rec)
	updated.Model = row.Model
	return g.db.Save(&updated).Error
}

// LoadPlayerStats fetches one record, ErrRecordNotFound when absent.
func (g *GormPostgreSQL) LoadPlayerStats(userID int64) (*models.PlayerStatsRecord, error) {
	var row models.GormPlayerStats
	if err := g.db.Where("user_id = ?", userID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	rec := fromGormPlayer(&row)
	return &rec, nil
}

// LoadAllPlayerStats fetches every stored player record.
func (g *GormPostgreSQL) LoadAllPlayerStats() ([]models.PlayerStatsRecord, error) {
	var rows []models.GormPlayerStats
	if err := g.db.Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]models.PlayerStatsRecord, len(rows))
	for i := range rows {
		result[i] = fromGormPlayer(&rows[i])
	}
	return result, nil
}

// SaveGameRecord appends a finished game summary.
func (g *GormPostgreSQL) SaveGameRecord(rec *models.GameRecord) error {
	row := models.GormGameRecord{
		RoomID:       rec.RoomID,
		Mode:         rec.Mode,
		Winner:       rec.Winner,
		Secret:       rec.Secret,
		Participants: rec.Participants,
		Duration:     rec.Duration,
	}
	return g.db.Create(&row).Error
}

// Close shuts the underlying pool down.
func (g *GormPostgreSQL) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toGormPlayer(rec *models.PlayerStatsRecord) models.GormPlayerStats {
	return models.GormPlayerStats{
		UserID:         rec.UserID,
		Name:           rec.Name,
		GamesPlayed:    rec.GamesPlayed,
		SpyGames:       rec.SpyGames,
		SpyWins:        rec.SpyWins,
		CivilianGames:  rec.CivilianGames,
		CivilianWins:   rec.CivilianWins,
		TotalVotesCast: rec.TotalVotesCast,
		CorrectVotes:   rec.CorrectVotes,
		Achievements:   rec.Achievements,
	}
}

func fromGormPlayer(row *models.GormPlayerStats) models.PlayerStatsRecord {
	return models.PlayerStatsRecord{
		UserID:         row.UserID,
		Name:           row.Name,
		GamesPlayed:    row.GamesPlayed,
		SpyGames:       row.SpyGames,
		SpyWins:        row.SpyWins,
		CivilianGames:  row.CivilianGames,
		CivilianWins:   row.CivilianWins,
		TotalVotesCast: row.TotalVotesCast,
		CorrectVotes:   row.CorrectVotes,
		Achievements:   row.Achievements,
		FirstGame:      row.CreatedAt,
		LastGame:       row.UpdatedAt,
	}
}
