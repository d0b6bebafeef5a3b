package storage

import "fmt"

// Timestamps are stored as UTC unix nanoseconds so equality survives a round trip.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS snapshots (
		user_id             TEXT    NOT NULL,
		participant_id      TEXT    NOT NULL,
		save_file_timestamp INTEGER NOT NULL,
		save_file_name      TEXT    NOT NULL,
		data                BLOB    NOT NULL,
		PRIMARY KEY (user_id, participant_id, save_file_timestamp)
	)`,
	`CREATE TABLE IF NOT EXISTS deltas (
		user_id             TEXT    NOT NULL,
		participant_id      TEXT    NOT NULL,
		save_file_timestamp INTEGER NOT NULL,
		delta_timestamp     INTEGER NOT NULL,
		data                BLOB    NOT NULL,
		PRIMARY KEY (user_id, participant_id)
	)`,
	`CREATE TABLE IF NOT EXISTS delta_archive (
		id                  TEXT    PRIMARY KEY,
		user_id             TEXT    NOT NULL,
		participant_id      TEXT    NOT NULL,
		save_file_timestamp INTEGER NOT NULL,
		delta_timestamp     INTEGER NOT NULL,
		data                BLOB    NOT NULL,
		reason              TEXT    NOT NULL,
		archived_at         INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_delta_archive_participant
		ON delta_archive (user_id, participant_id, id)`,
}

func (db *DB) initializeSchema() error {
	for _, stmt := range schema {
		if _, err := db.conn.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}
