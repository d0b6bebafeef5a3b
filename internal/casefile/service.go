// Package casefile runs participant edits end to end: it takes the
// participant lock, decrypts the base snapshot and the live delta, applies
// an action or a merge, and seals and stores the result.
package casefile

import (
	"context"
	"errors"
	"log/slog"

	"github.com/casework/deltatree"
	"github.com/casework/deltatree/internal/lock"
	"github.com/casework/deltatree/internal/storage"
	"github.com/casework/deltatree/internal/vault"
)

// Store persists sealed snapshots and deltas.
type Store interface {
	LatestSnapshot(ctx context.Context, userID, participantID string) (*vault.EncryptedSnapshot, error)
	SaveSnapshot(ctx context.Context, userID string, snap *vault.EncryptedSnapshot) error
	GetDelta(ctx context.Context, userID, participantID string, mode lock.Mode) (*vault.EncryptedDelta, error)
	SaveDelta(ctx context.Context, userID string, delta *vault.EncryptedDelta) error
	RemoveDelta(ctx context.Context, userID, participantID, reason string) (string, error)
	CommitMerge(ctx context.Context, userID string, snap *vault.EncryptedSnapshot, reason string) (string, error)
	ReleaseLock(userID, participantID string, mode lock.Mode)
}

// Cipher seals and opens participant data for one user.
type Cipher interface {
	EncryptSnapshot(snapshot *deltatree.SaveFile, userID string) (*vault.EncryptedSnapshot, error)
	DecryptSnapshot(enc *vault.EncryptedSnapshot, userID string) (*deltatree.SaveFile, error)
	EncryptDelta(delta *deltatree.DeltaFile, userID string) (*vault.EncryptedDelta, error)
	DecryptDelta(enc *vault.EncryptedDelta, userID string) (*deltatree.DeltaFile, error)
}

// HeaderCalculator recomputes the snapshot header after a merge.
type HeaderCalculator interface {
	Recalculate(userID string, snapshot *deltatree.SaveFile) *deltatree.SaveFile
}

// Service is safe for concurrent use. Operations on one participant are
// serialized by the store's lock; distinct participants run in parallel.
type Service struct {
	store  Store
	cipher Cipher
	header HeaderCalculator
	logger *slog.Logger
}

// New creates a Service.
func New(store Store, cipher Cipher, header HeaderCalculator, logger *slog.Logger) *Service {
	return &Service{store: store, cipher: cipher, header: header, logger: logger}
}

// CreateParticipant writes the first, empty base snapshot of a participant.
func (s *Service) CreateParticipant(ctx context.Context, userID, participantID, name string) (*deltatree.SaveFile, error) {
	if err := checkIDs(userID, participantID); err != nil {
		return nil, err
	}
	_, release, err := s.acquire(ctx, userID, participantID, lock.Write)
	if err != nil {
		return nil, err
	}
	defer release()

	if _, err := s.store.LatestSnapshot(ctx, userID, participantID); err == nil {
		return nil, newError(Conflict, "participant "+participantID+" already exists", nil)
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, newError(Storage, "failed to check participant", err)
	}

	snapshot := s.header.Recalculate(userID, deltatree.NewSaveFile(participantID, name))
	if err := s.storeSnapshot(ctx, userID, snapshot); err != nil {
		return nil, err
	}
	s.logger.Info("participant created", "user", userID, "participant", participantID)
	return snapshot, nil
}

// Apply records one action in the participant's delta and returns the id of
// the node it created or touched. The base snapshot is not modified.
func (s *Service) Apply(ctx context.Context, userID, participantID string, action Action) (string, error) {
	if err := checkIDs(userID, participantID); err != nil {
		return "", err
	}
	if err := action.Validate(); err != nil {
		return "", classify("invalid action", err)
	}

	encDelta, release, err := s.acquire(ctx, userID, participantID, lock.Write)
	if err != nil {
		return "", err
	}
	defer release()

	base, err := s.loadBase(ctx, userID, participantID)
	if err != nil {
		return "", err
	}
	delta, err := s.openDelta(encDelta, base, userID)
	if err != nil {
		return "", err
	}

	id, err := action.apply(delta, base)
	if err != nil {
		s.logger.Debug("action rejected", "user", userID, "participant", participantID, "action", action.Kind, "error", err)
		return "", classify(string(action.Kind)+" failed", err)
	}

	if err := s.storeDelta(ctx, userID, delta); err != nil {
		return "", err
	}
	s.logger.Debug("action applied", "user", userID, "participant", participantID, "action", action.Kind, "id", id)
	return id, nil
}

// Save merges the live delta into the base snapshot, stores the result and
// archives the delta. Without a live delta the current snapshot is returned.
func (s *Service) Save(ctx context.Context, userID, participantID string) (*deltatree.SaveFile, error) {
	if err := checkIDs(userID, participantID); err != nil {
		return nil, err
	}
	encDelta, release, err := s.acquire(ctx, userID, participantID, lock.Write)
	if err != nil {
		return nil, err
	}
	defer release()

	base, err := s.loadBase(ctx, userID, participantID)
	if err != nil {
		return nil, err
	}
	if encDelta == nil {
		return base, nil
	}
	delta, err := s.cipher.DecryptDelta(encDelta, userID)
	if err != nil {
		return nil, classify("failed to decrypt delta", err)
	}

	merged, err := deltatree.Merge(base, delta)
	if err != nil {
		s.logger.Warn("merge failed", "user", userID, "participant", participantID, "error", err)
		return nil, classify("merge failed", err)
	}

	var archiveID string
	if merged == base {
		archiveID, err = s.store.RemoveDelta(ctx, userID, participantID, storage.ReasonMerged)
	} else {
		merged = s.header.Recalculate(userID, merged)
		enc, encErr := s.cipher.EncryptSnapshot(merged, userID)
		if encErr != nil {
			return nil, newError(Crypto, "failed to encrypt snapshot", encErr)
		}
		archiveID, err = s.store.CommitMerge(ctx, userID, enc, storage.ReasonMerged)
	}
	if err != nil {
		return nil, newError(Storage, "failed to commit merge", err)
	}
	s.logger.Info("delta merged",
		"user", userID,
		"participant", participantID,
		"documents", len(merged.Documents),
		"archive", archiveID)
	return merged, nil
}

// Discard archives the live delta without merging it.
func (s *Service) Discard(ctx context.Context, userID, participantID string) (string, error) {
	if err := checkIDs(userID, participantID); err != nil {
		return "", err
	}
	encDelta, release, err := s.acquire(ctx, userID, participantID, lock.Write)
	if err != nil {
		return "", err
	}
	defer release()

	if encDelta == nil {
		return "", newError(NotFound, "no pending changes for participant "+participantID, nil)
	}
	archiveID, err := s.store.RemoveDelta(ctx, userID, participantID, storage.ReasonDiscarded)
	if err != nil {
		return "", newError(Storage, "failed to archive delta", err)
	}
	s.logger.Info("delta discarded", "user", userID, "participant", participantID, "archive", archiveID)
	return archiveID, nil
}

// Delta returns the pending delta. A participant without one gets a fresh
// delta seeded from the base snapshot, which is not stored.
func (s *Service) Delta(ctx context.Context, userID, participantID string) (*deltatree.DeltaFile, error) {
	if err := checkIDs(userID, participantID); err != nil {
		return nil, err
	}
	encDelta, release, err := s.acquire(ctx, userID, participantID, lock.Read)
	if err != nil {
		return nil, err
	}
	defer release()

	base, err := s.loadBase(ctx, userID, participantID)
	if err != nil {
		return nil, err
	}
	return s.openDelta(encDelta, base, userID)
}

// Snapshot returns the current base snapshot.
func (s *Service) Snapshot(ctx context.Context, userID, participantID string) (*deltatree.SaveFile, error) {
	if err := checkIDs(userID, participantID); err != nil {
		return nil, err
	}
	_, release, err := s.acquire(ctx, userID, participantID, lock.Read)
	if err != nil {
		return nil, err
	}
	defer release()

	return s.loadBase(ctx, userID, participantID)
}

// Preview returns what Save would store, without storing anything.
func (s *Service) Preview(ctx context.Context, userID, participantID string) (*deltatree.SaveFile, error) {
	if err := checkIDs(userID, participantID); err != nil {
		return nil, err
	}
	encDelta, release, err := s.acquire(ctx, userID, participantID, lock.Read)
	if err != nil {
		return nil, err
	}
	defer release()

	base, err := s.loadBase(ctx, userID, participantID)
	if err != nil || encDelta == nil {
		return base, err
	}
	delta, err := s.cipher.DecryptDelta(encDelta, userID)
	if err != nil {
		return nil, classify("failed to decrypt delta", err)
	}
	merged, err := deltatree.Merge(base, delta)
	if err != nil {
		return nil, classify("merge failed", err)
	}
	if merged == base {
		return base, nil
	}
	return s.header.Recalculate(userID, merged), nil
}

// acquire takes the participant lock through the store. The returned delta
// is nil when the participant has none. release must be called exactly once.
func (s *Service) acquire(ctx context.Context, userID, participantID string, mode lock.Mode) (*vault.EncryptedDelta, func(), error) {
	enc, err := s.store.GetDelta(ctx, userID, participantID, mode)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, nil, newError(Storage, "failed to load delta", err)
	}
	release := func() { s.store.ReleaseLock(userID, participantID, mode) }
	return enc, release, nil
}

func (s *Service) loadBase(ctx context.Context, userID, participantID string) (*deltatree.SaveFile, error) {
	enc, err := s.store.LatestSnapshot(ctx, userID, participantID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, newError(NotFound, "participant "+participantID+" not found", err)
	}
	if err != nil {
		return nil, newError(Storage, "failed to load snapshot", err)
	}
	base, err := s.cipher.DecryptSnapshot(enc, userID)
	if err != nil {
		return nil, newError(Crypto, "failed to decrypt snapshot", err)
	}
	return base, nil
}

// openDelta decrypts enc, or starts a new delta seeded from base when enc is nil.
func (s *Service) openDelta(enc *vault.EncryptedDelta, base *deltatree.SaveFile, userID string) (*deltatree.DeltaFile, error) {
	if enc == nil {
		delta := deltatree.NewDelta(base)
		deltatree.SeedDeltaFile(delta, base)
		return delta, nil
	}
	delta, err := s.cipher.DecryptDelta(enc, userID)
	if err != nil {
		return nil, newError(Crypto, "failed to decrypt delta", err)
	}
	return delta, nil
}

func (s *Service) storeDelta(ctx context.Context, userID string, delta *deltatree.DeltaFile) error {
	enc, err := s.cipher.EncryptDelta(delta, userID)
	if err != nil {
		return newError(Crypto, "failed to encrypt delta", err)
	}
	if err := s.store.SaveDelta(ctx, userID, enc); err != nil {
		return newError(Storage, "failed to save delta", err)
	}
	return nil
}

func (s *Service) storeSnapshot(ctx context.Context, userID string, snapshot *deltatree.SaveFile) error {
	enc, err := s.cipher.EncryptSnapshot(snapshot, userID)
	if err != nil {
		return newError(Crypto, "failed to encrypt snapshot", err)
	}
	if err := s.store.SaveSnapshot(ctx, userID, enc); err != nil {
		return newError(Storage, "failed to save snapshot", err)
	}
	return nil
}

func checkIDs(userID, participantID string) error {
	if userID == "" || participantID == "" {
		return newError(InvalidArgument, "user and participant ids are required", deltatree.ErrInvalidArgument)
	}
	return nil
}
