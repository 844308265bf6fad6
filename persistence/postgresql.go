// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/wfunc/spyserver/models"
)

// PostgreSQL is the plain database/sql implementation of Database.
type PostgreSQL struct {
	db *sql.DB
}

// NewPostgreSQL opens a connection pool and creates the tables.
func NewPostgreSQL(host string, port int, user, password, dbname string) (*PostgreSQL, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := initTables(db); err != nil {
		return nil, err
	}

	return &PostgreSQL{db: db}, nil
}

func initTables(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS players (
            id SERIAL PRIMARY KEY,
            user_id BIGINT UNIQUE NOT NULL,
            name TEXT NOT NULL,
            games_played INTEGER DEFAULT 0,
            spy_games INTEGER DEFAULT 0,
            spy_wins INTEGER DEFAULT 0,
            civilian_games INTEGER DEFAULT 0,
            civilian_wins INTEGER DEFAULT 0,
            total_votes_cast INTEGER DEFAULT 0,
            correct_votes INTEGER DEFAULT 0,
            achievements JSONB NOT NULL DEFAULT '[]',
            first_game TIMESTAMP,
            last_game TIMESTAMP
        )
    `)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
        CREATE TABLE IF NOT EXISTS game_records (
            id SERIAL PRIMARY KEY,
            room_id VARCHAR(255) NOT NULL,
            mode VARCHAR(100) NOT NULL,
            winner VARCHAR(50) NOT NULL,
            secret TEXT,
            participants JSONB NOT NULL,
            duration INTEGER DEFAULT 0,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )
    `)
	return err
}

// SavePlayerStats upserts the full cumulative record by user id.
func (p *PostgreSQL) SavePlayerStats(rec *models.PlayerStatsRecord) error {
	achievements, err := json.Marshal(rec.Achievements)
	if err != nil {
		return err
	}

	_, err = p.db.Exec(`
        INSERT INTO players (
            user_id, name, games_played, spy_games, spy_wins,
            civilian_games, civilian_wins, total_votes_cast, correct_votes,
            achievements, first_game, last_game
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
        ON CONFLICT (user_id) DO UPDATE SET
            name = EXCLUDED.name,
            games_played = EXCLUDED.games_played,
            spy_games = EXCLUDED.spy_games,
            spy_wins = EXCLUDED.spy_wins,
            civilian_games = EXCLUDED.civilian_games,
            civilian_wins = EXCLUDED.civilian_wins,
            total_votes_cast = EXCLUDED.total_votes_cast,
            correct_votes = EXCLUDED.correct_votes,
            achievements = EXCLUDED.achievements,
            last_game = EXCLUDED.last_game`,
		rec.UserID, rec.Name, rec.GamesPlayed, rec.SpyGames, rec.SpyWins,
		rec.CivilianGames, rec.CivilianWins, rec.TotalVotesCast, rec.CorrectVotes,
		achievements, rec.FirstGame, rec.LastGame,
	)
	return err
}

// LoadPlayerStats fetches one record, ErrRecordNotFound when absent.
func (p *PostgreSQL) LoadPlayerStats(userID int64) (*models.PlayerStatsRecord, error) {
	row := p.db.QueryRow(`
        SELECT user_id, name, games_played, spy_games, spy_wins,
               civilian_games, civilian_wins, total_votes_cast, correct_votes,
               achievements, first_game, last_game
        FROM players WHERE user_id = $1`, userID)

	rec, err := scanPlayer(row)
	if err == sql.ErrNoRows {
		return nil, ErrRecordNotFound
	}
	return rec, err
}

// LoadAllPlayerStats fetches every stored player record.
func (p *PostgreSQL) LoadAllPlayerStats() ([]models.PlayerStatsRecord, error) {
	return p.queryPlayers(`
        SELECT user_id, name, games_played, spy_games, spy_wins,
               civilian_games, civilian_wins, total_votes_cast, correct_votes,
               achievements, first_game, last_game
        FROM players`)
}

// SaveGameRecord appends a finished game summary.
func (p *PostgreSQL) SaveGameRecord(rec *models.GameRecord) error {
	participants, err := json.Marshal(rec.Participants)
	if err != nil {
		return err
	}

	_, err = p.db.Exec(`
        INSERT INTO game_records (room_id, mode, winner, secret, participants, duration)
        VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.RoomID, rec.Mode, rec.Winner, rec.Secret, participants, rec.Duration,
	)
	return err
}

// Close shuts the pool down.
func (p *PostgreSQL) Close() error {
	return p.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPlayer(row rowScanner) (*models.PlayerStatsRecord, error) {
	var rec models.PlayerStatsRecord
	var achievements []byte
	var firstGame, lastGame sql.NullTime

	err := row.Scan(
		&rec.UserID, &rec.Name, &rec.GamesPlayed, &rec.SpyGames, &rec.SpyWins,
		&rec.CivilianGames, &rec.CivilianWins, &rec.TotalVotesCast, &rec.CorrectVotes,
		&achievements, &firstGame, &lastGame,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(achievements, &rec.Achievements); err != nil {
		return nil, err
	}
	if firstGame.Valid {
		rec.FirstGame = firstGame.Time
	}
	if lastGame.Valid {
		rec.LastGame = lastGame.Time
	}
	return &rec, nil
}

func (p *PostgreSQL) queryPlayers(query string) ([]models.PlayerStatsRecord, error) {
	rows, err := p.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.PlayerStatsRecord
	for rows.Next() {
		rec, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *rec)
	}
	return result, rows.Err()
}
