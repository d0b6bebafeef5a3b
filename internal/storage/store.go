package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/casework/deltatree/internal/lock"
	"github.com/casework/deltatree/internal/vault"
)

// ErrNotFound is returned when a participant has no snapshot or live delta.
var ErrNotFound = errors.New("storage: not found")

// Archive reasons.
const (
	ReasonMerged    = "merged"
	ReasonDiscarded = "discarded"
)

// ArchivedDelta is a delta retired by a merge or a discard.
type ArchivedDelta struct {
	ID                string
	ParticipantID     string
	SaveFileTimestamp time.Time
	DeltaTimestamp    time.Time
	Reason            string
	ArchivedAt        time.Time
	Data              []byte
}

// Store is the persistence boundary. GetDelta takes the participant lock;
// callers must hand it back with ReleaseLock.
type Store struct {
	db    *DB
	locks *lock.Registry
	now   func() time.Time
}

// NewStore creates a store over db using locks for participant access.
func NewStore(db *DB, locks *lock.Registry) *Store {
	return &Store{db: db, locks: locks, now: func() time.Time { return time.Now().UTC() }}
}

// LatestSnapshot returns the most recent base snapshot or ErrNotFound.
func (s *Store) LatestSnapshot(ctx context.Context, userID, participantID string) (*vault.EncryptedSnapshot, error) {
	var (
		savedAt int64
		snap    = vault.EncryptedSnapshot{ParticipantID: participantID}
	)
	err := s.db.retry(ctx, func() error {
		return s.db.conn.QueryRowContext(ctx, `
			SELECT save_file_timestamp, save_file_name, data
			FROM snapshots
			WHERE user_id = ? AND participant_id = ?
			ORDER BY save_file_timestamp DESC
			LIMIT 1`, userID, participantID).Scan(&savedAt, &snap.SaveFileName, &snap.Data)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: snapshot for participant %s", ErrNotFound, participantID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	snap.SaveFileTimestamp = fromNanos(savedAt)
	return &snap, nil
}

// SaveSnapshot appends a new base snapshot. Older snapshots are kept as history.
func (s *Store) SaveSnapshot(ctx context.Context, userID string, snap *vault.EncryptedSnapshot) error {
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		return insertSnapshot(ctx, tx, userID, snap)
	})
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// GetDelta acquires the participant lock in mode and returns the live delta,
// or ErrNotFound if there is none. The lock stays held in both cases and is
// released here only when the lookup itself fails.
func (s *Store) GetDelta(ctx context.Context, userID, participantID string, mode lock.Mode) (*vault.EncryptedDelta, error) {
	s.locks.Acquire(lock.Key{UserID: userID, ParticipantID: participantID}, mode)

	var (
		savedAt, deltaAt int64
		delta            = vault.EncryptedDelta{ParticipantID: participantID}
	)
	err := s.db.retry(ctx, func() error {
		return s.db.conn.QueryRowContext(ctx, `
			SELECT save_file_timestamp, delta_timestamp, data
			FROM deltas
			WHERE user_id = ? AND participant_id = ?`, userID, participantID).Scan(&savedAt, &deltaAt, &delta.Data)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: delta for participant %s", ErrNotFound, participantID)
	}
	if err != nil {
		s.ReleaseLock(userID, participantID, mode)
		return nil, fmt.Errorf("failed to load delta: %w", err)
	}
	delta.SaveFileTimestamp = fromNanos(savedAt)
	delta.DeltaTimestamp = fromNanos(deltaAt)
	return &delta, nil
}

// SaveDelta replaces the live delta of the participant.
func (s *Store) SaveDelta(ctx context.Context, userID string, delta *vault.EncryptedDelta) error {
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO deltas (user_id, participant_id, save_file_timestamp, delta_timestamp, data)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (user_id, participant_id) DO UPDATE SET
				save_file_timestamp = excluded.save_file_timestamp,
				delta_timestamp     = excluded.delta_timestamp,
				data                = excluded.data`,
			userID, delta.ParticipantID, toNanos(delta.SaveFileTimestamp), toNanos(delta.DeltaTimestamp), delta.Data)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to save delta: %w", err)
	}
	return nil
}

// RemoveDelta moves the live delta into the archive and returns the archive
// id. Nothing is hard-deleted.
func (s *Store) RemoveDelta(ctx context.Context, userID, participantID, reason string) (string, error) {
	id := ulid.Make().String()
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		return s.archiveDelta(ctx, tx, id, userID, participantID, reason)
	})
	if err != nil {
		return "", fmt.Errorf("failed to archive delta: %w", err)
	}
	s.db.logger.Info("delta archived", "user", userID, "participant", participantID, "archive", id, "reason", reason)
	return id, nil
}

// CommitMerge appends snap as the new base and archives the participant's
// live delta in one transaction. Either both land or neither does.
func (s *Store) CommitMerge(ctx context.Context, userID string, snap *vault.EncryptedSnapshot, reason string) (string, error) {
	id := ulid.Make().String()
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := insertSnapshot(ctx, tx, userID, snap); err != nil {
			return err
		}
		return s.archiveDelta(ctx, tx, id, userID, snap.ParticipantID, reason)
	})
	if err != nil {
		return "", fmt.Errorf("failed to commit merge: %w", err)
	}
	s.db.logger.Info("merge committed", "user", userID, "participant", snap.ParticipantID, "archive", id, "reason", reason)
	return id, nil
}

func insertSnapshot(ctx context.Context, tx *sql.Tx, userID string, snap *vault.EncryptedSnapshot) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO snapshots (user_id, participant_id, save_file_timestamp, save_file_name, data)
		VALUES (?, ?, ?, ?, ?)`,
		userID, snap.ParticipantID, toNanos(snap.SaveFileTimestamp), snap.SaveFileName, snap.Data)
	return err
}

func (s *Store) archiveDelta(ctx context.Context, tx *sql.Tx, id, userID, participantID, reason string) error {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO delta_archive (id, user_id, participant_id, save_file_timestamp, delta_timestamp, data, reason, archived_at)
		SELECT ?, user_id, participant_id, save_file_timestamp, delta_timestamp, data, ?, ?
		FROM deltas
		WHERE user_id = ? AND participant_id = ?`,
		id, reason, toNanos(s.now()), userID, participantID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return fmt.Errorf("%w: delta for participant %s", ErrNotFound, participantID)
	}
	_, err = tx.ExecContext(ctx, `DELETE FROM deltas WHERE user_id = ? AND participant_id = ?`, userID, participantID)
	return err
}

// ArchivedDeltas lists archived deltas of a participant, oldest first.
func (s *Store) ArchivedDeltas(ctx context.Context, userID, participantID string) ([]ArchivedDelta, error) {
	rows, err := s.db.conn.QueryContext(ctx, `
		SELECT id, save_file_timestamp, delta_timestamp, reason, archived_at, data
		FROM delta_archive
		WHERE user_id = ? AND participant_id = ?
		ORDER BY id`, userID, participantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list archive: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []ArchivedDelta
	for rows.Next() {
		a := ArchivedDelta{ParticipantID: participantID}
		var savedAt, deltaAt, archAt int64
		if err := rows.Scan(&a.ID, &savedAt, &deltaAt, &a.Reason, &archAt, &a.Data); err != nil {
			return nil, fmt.Errorf("failed to scan archive: %w", err)
		}
		a.SaveFileTimestamp = fromNanos(savedAt)
		a.DeltaTimestamp = fromNanos(deltaAt)
		a.ArchivedAt = fromNanos(archAt)
		out = append(out, a)
	}
	return out, rows.Err()
}

// ReleaseLock hands back a lock taken by GetDelta.
func (s *Store) ReleaseLock(userID, participantID string, mode lock.Mode) {
	s.locks.Release(lock.Key{UserID: userID, ParticipantID: participantID}, mode)
}

func toNanos(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
