package main

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite database holding round history and events
type DB struct {
	conn *sql.DB
}

// RoundResult is one finished round
type RoundResult struct {
	Room       string    `json:"room"`
	Winner     string    `json:"winner"`
	WinnerName string    `json:"winner_name"`
	Players    int       `json:"players"`
	DurationMs int64     `json:"duration_ms"`
	EndedAt    time.Time `json:"ended_at"`
}

// LeaderboardEntry represents one row in the leaderboard
type LeaderboardEntry struct {
	Rank       int    `json:"rank"`
	Name       string `json:"name"`
	Wins       int    `json:"wins"`
	BestTimeMs int64  `json:"best_time_ms"`
}

// OpenDB opens (or creates) the SQLite database. ":memory:" gives a private
// in-process database.
func OpenDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if path == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		conn.SetMaxOpenConns(1)
	} else if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates tables if they don't exist
func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS rounds (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		room TEXT NOT NULL,
		winner TEXT NOT NULL,
		winner_name TEXT NOT NULL,
		players INTEGER NOT NULL DEFAULT 0,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		ended_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		event_type TEXT NOT NULL,
		room TEXT NOT NULL DEFAULT '',
		player TEXT NOT NULL DEFAULT '',
		data TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_rounds_winner_name ON rounds(winner_name);
	CREATE INDEX IF NOT EXISTS idx_events_type ON events(event_type);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// RecordRound stores a finished round
func (db *DB) RecordRound(r RoundResult) error {
	_, err := db.conn.Exec(
		"INSERT INTO rounds (room, winner, winner_name, players, duration_ms, ended_at) VALUES (?, ?, ?, ?, ?, ?)",
		r.Room, r.Winner, r.WinnerName, r.Players, r.DurationMs, r.EndedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

// RecentRounds returns the latest finished rounds, newest first
func (db *DB) RecentRounds(limit int) ([]RoundResult, error) {
	rows, err := db.conn.Query(`
		SELECT room, winner, winner_name, players, duration_ms, ended_at
		FROM rounds ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]RoundResult, 0, limit)
	for rows.Next() {
		var r RoundResult
		var ended string
		if err := rows.Scan(&r.Room, &r.Winner, &r.WinnerName, &r.Players, &r.DurationMs, &ended); err != nil {
			return nil, err
		}
		r.EndedAt, _ = time.Parse(time.RFC3339Nano, ended)
		result = append(result, r)
	}
	return result, rows.Err()
}

// Leaderboard returns display names ranked by wins, then best round time
func (db *DB) Leaderboard(limit int) ([]LeaderboardEntry, error) {
	rows, err := db.conn.Query(`
		SELECT winner_name, COUNT(*) AS wins, MIN(duration_ms) AS best
		FROM rounds GROUP BY winner_name
		ORDER BY wins DESC, best ASC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]LeaderboardEntry, 0, limit)
	rank := 1
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.Name, &e.Wins, &e.BestTimeMs); err != nil {
			return nil, err
		}
		e.Rank = rank
		rank++
		result = append(result, e)
	}
	return result, rows.Err()
}

// InsertEvents writes a batch of events in one transaction
func (db *DB) InsertEvents(events []AnalyticsEvent) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO events (event_type, room, player, data, created_at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, evt := range events {
		if _, err := stmt.Exec(evt.Type, evt.Room, evt.Player, evt.Data, evt.Timestamp.Format(time.RFC3339Nano)); err != nil {
			return fmt.Errorf("insert %s: %w", evt.Type, err)
		}
	}
	return tx.Commit()
}

// EventCounts returns counts of each event type
func (db *DB) EventCounts() (map[string]int, error) {
	rows, err := db.conn.Query(`SELECT event_type, COUNT(*) FROM events GROUP BY event_type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]int)
	for rows.Next() {
		var evtType string
		var count int
		if err := rows.Scan(&evtType, &count); err != nil {
			return nil, err
		}
		result[evtType] = count
	}
	return result, rows.Err()
}
