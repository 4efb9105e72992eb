package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Store is the SQLite-backed record store.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at dbPath and applies the schema.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single connection keeps in-memory databases coherent and is plenty
	// for the per-user write rates involved.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA journal_mode = WAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	schema := `
		CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			email TEXT NOT NULL,
			cookie TEXT NOT NULL,
			session_key TEXT NOT NULL,
			consecutive_failures INTEGER NOT NULL DEFAULT 0,
			last_failure_type TEXT NOT NULL DEFAULT '',
			last_failed_at INTEGER NOT NULL DEFAULT 0,
			auth_notification_count INTEGER NOT NULL DEFAULT 0,
			last_notification_sent INTEGER NOT NULL DEFAULT 0,
			last_successful_scrobble INTEGER NOT NULL DEFAULT 0,
			is_active BOOLEAN NOT NULL DEFAULT 1,
			notifications_enabled BOOLEAN NOT NULL DEFAULT 1,
			created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
		);

		CREATE TABLE IF NOT EXISTS track_records (
			user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			title TEXT NOT NULL,
			artist TEXT NOT NULL,
			album TEXT NOT NULL,
			array_position INTEGER NOT NULL,
			max_array_position INTEGER NOT NULL,
			added_at INTEGER NOT NULL,
			PRIMARY KEY (user_id, title, artist, album)
		);

		CREATE INDEX IF NOT EXISTS idx_track_records_added ON track_records(added_at);
		CREATE INDEX IF NOT EXISTS idx_users_active ON users(is_active);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// CreateUser inserts a new account and returns its id.
func (s *Store) CreateUser(ctx context.Context, email, cookie, sessionKey string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (email, cookie, session_key) VALUES (?, ?, ?)`,
		email, cookie, sessionKey)
	if err != nil {
		return 0, fmt.Errorf("failed to insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get insert id: %w", err)
	}
	return id, nil
}

// GetUser loads one account by id.
func (s *Store) GetUser(ctx context.Context, userID int64) (User, error) {
	row := s.db.QueryRowContext(ctx, userSelect+` WHERE id = ?`, userID)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return User{}, fmt.Errorf("user %d not found", userID)
	}
	if err != nil {
		return User{}, fmt.Errorf("failed to load user: %w", err)
	}
	return u, nil
}

// ListUsers returns every account, active or not.
func (s *Store) ListUsers(ctx context.Context) ([]User, error) {
	return s.queryUsers(ctx, userSelect+` ORDER BY id`)
}

// ActiveUsers returns the accounts the scheduler should run.
func (s *Store) ActiveUsers(ctx context.Context) ([]User, error) {
	return s.queryUsers(ctx, userSelect+` WHERE is_active = 1 ORDER BY id`)
}

// SetActive flips the active flag for an account. Reactivating a user does
// not clear health counters; a successful scrobble does.
func (s *Store) SetActive(ctx context.Context, userID int64, active bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET is_active = ? WHERE id = ?`, active, userID)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return requireRow(res, userID)
}

// SetCredentials replaces the cookie and session key for an account and
// reactivates it, the external "fresh credentials supplied" event.
func (s *Store) SetCredentials(ctx context.Context, userID int64, cookie, sessionKey string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET cookie = ?, session_key = ?, is_active = 1, auth_notification_count = 0 WHERE id = ?`,
		cookie, sessionKey, userID)
	if err != nil {
		return fmt.Errorf("failed to update credentials: %w", err)
	}
	return requireRow(res, userID)
}

// GetHealthState loads the health columns for one user.
func (s *Store) GetHealthState(ctx context.Context, userID int64) (HealthState, error) {
	u, err := s.GetUser(ctx, userID)
	if err != nil {
		return HealthState{}, err
	}
	return u.Health, nil
}

// UpdateHealthState writes the full health state for one user.
func (s *Store) UpdateHealthState(ctx context.Context, userID int64, h HealthState) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET
			consecutive_failures = ?,
			last_failure_type = ?,
			last_failed_at = ?,
			auth_notification_count = ?,
			last_notification_sent = ?,
			last_successful_scrobble = ?,
			is_active = ?,
			notifications_enabled = ?
		WHERE id = ?`,
		h.ConsecutiveFailures,
		string(h.LastFailureType),
		unixOrZero(h.LastFailedAt),
		h.AuthNotificationCount,
		unixOrZero(h.LastNotificationSent),
		unixOrZero(h.LastSuccessfulScrobble),
		h.IsActive,
		h.NotificationsEnabled,
		userID)
	if err != nil {
		return fmt.Errorf("failed to update health state: %w", err)
	}
	return requireRow(res, userID)
}

// GetTrackRecords returns every persisted track record for a user.
func (s *Store) GetTrackRecords(ctx context.Context, userID int64) ([]TrackRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT title, artist, album, array_position, max_array_position, added_at
		FROM track_records
		WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query track records: %w", err)
	}
	defer rows.Close()

	var records []TrackRecord
	for rows.Next() {
		var r TrackRecord
		var addedAt int64
		if err := rows.Scan(&r.Title, &r.Artist, &r.Album, &r.ArrayPosition, &r.MaxArrayPosition, &addedAt); err != nil {
			return nil, fmt.Errorf("failed to scan track record: %w", err)
		}
		r.AddedAt = time.Unix(addedAt, 0)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating track records: %w", err)
	}
	return records, nil
}

// UpsertTrackRecord creates or supersedes the record for a (title, artist,
// album) tuple. AddedAt is refreshed on supersede so an actively replayed
// track is not garbage-collected mid-day.
func (s *Store) UpsertTrackRecord(ctx context.Context, userID int64, r TrackRecord) error {
	addedAt := r.AddedAt
	if addedAt.IsZero() {
		addedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO track_records (user_id, title, artist, album, array_position, max_array_position, added_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, title, artist, album) DO UPDATE SET
			array_position = excluded.array_position,
			max_array_position = excluded.max_array_position,
			added_at = excluded.added_at`,
		userID, r.Title, r.Artist, r.Album, r.ArrayPosition, r.MaxArrayPosition, addedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert track record: %w", err)
	}
	return nil
}

// PruneTrackRecords deletes track records older than maxAge across all
// users and returns the number removed. The positional diff only needs the
// current day's records; anything older just grows the table.
func (s *Store) PruneTrackRecords(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge).Unix()
	res, err := s.db.ExecContext(ctx, `DELETE FROM track_records WHERE added_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune track records: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deleted, nil
}

const userSelect = `
	SELECT id, email, cookie, session_key,
		consecutive_failures, last_failure_type, last_failed_at,
		auth_notification_count, last_notification_sent, last_successful_scrobble,
		is_active, notifications_enabled, created_at
	FROM users`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (User, error) {
	var u User
	var failureType string
	var lastFailedAt, lastNotification, lastScrobble, createdAt int64
	err := row.Scan(&u.ID, &u.Email, &u.Cookie, &u.SessionKey,
		&u.Health.ConsecutiveFailures, &failureType, &lastFailedAt,
		&u.Health.AuthNotificationCount, &lastNotification, &lastScrobble,
		&u.Health.IsActive, &u.Health.NotificationsEnabled, &createdAt)
	if err != nil {
		return User{}, err
	}
	u.Health.LastFailureType = FailureType(failureType)
	u.Health.LastFailedAt = timeOrZero(lastFailedAt)
	u.Health.LastNotificationSent = timeOrZero(lastNotification)
	u.Health.LastSuccessfulScrobble = timeOrZero(lastScrobble)
	u.CreatedAt = time.Unix(createdAt, 0)
	return u, nil
}

func (s *Store) queryUsers(ctx context.Context, query string) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

func requireRow(res sql.Result, userID int64) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("user %d not found", userID)
	}
	return nil
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func timeOrZero(unix int64) time.Time {
	if unix == 0 {
		return time.Time{}
	}
	return time.Unix(unix, 0)
}
