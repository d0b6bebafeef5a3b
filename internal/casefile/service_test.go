package casefile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casework/deltatree"
	"github.com/casework/deltatree/internal/header"
	"github.com/casework/deltatree/internal/lock"
	"github.com/casework/deltatree/internal/logging"
	"github.com/casework/deltatree/internal/storage"
	"github.com/casework/deltatree/internal/vault"
)

const (
	user        = "u-1"
	participant = "p-1"
)

type harness struct {
	svc   *Service
	store *storage.Store
	vault *vault.Vault
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, err := storage.Open(t.TempDir(), storage.Options{BusyRetries: 3, BusyBackoff: time.Millisecond}, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	v, err := vault.New(bytes.Repeat([]byte{3}, 32), "fastest")
	require.NoError(t, err)
	t.Cleanup(v.Close)

	store := storage.NewStore(db, lock.NewRegistry())
	calc := header.NewCalculator(map[string][]string{"intake": {"intake", "f1"}}, logging.Discard())
	return &harness{
		svc:   New(store, v, calc, logging.Discard()),
		store: store,
		vault: v,
	}
}

func (h *harness) apply(t *testing.T, action Action) string {
	t.Helper()
	id, err := h.svc.Apply(context.Background(), user, participant, action)
	require.NoError(t, err)
	return id
}

// seedIntake creates the participant with one saved "Intake" document whose
// field f1 is "10", and returns the document id.
func (h *harness) seedIntake(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	_, err := h.svc.CreateParticipant(ctx, user, participant, "Alex Doe")
	require.NoError(t, err)

	docID := h.apply(t, Action{Kind: AddDocument, NewDocument: &deltatree.NewDocument{DocumentID: "intake", Name: "Intake"}})
	h.apply(t, Action{Kind: UpdateDocument, Document: &deltatree.DocumentChange{
		ID: docID, Name: "Intake", Fields: []deltatree.FieldChange{{ID: "f1", Value: "10"}},
	}})
	_, err = h.svc.Save(ctx, user, participant)
	require.NoError(t, err)
	return docID
}

func TestCreateParticipant(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	created, err := h.svc.CreateParticipant(ctx, user, participant, "Alex Doe")
	require.NoError(t, err)
	assert.Equal(t, "Alex Doe", created.SaveFileName)
	assert.Empty(t, created.Documents)

	got, err := h.svc.Snapshot(ctx, user, participant)
	require.NoError(t, err)
	assert.Equal(t, participant, got.ParticipantID)
	assert.True(t, got.SaveFileTimestamp.Equal(created.SaveFileTimestamp))

	_, err = h.svc.CreateParticipant(ctx, user, participant, "Again")
	assert.Equal(t, Conflict, CodeOf(err))
}

func TestUpdateThenSave(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	docID := h.seedIntake(t)

	h.apply(t, Action{Kind: UpdateDocument, Document: &deltatree.DocumentChange{
		ID: docID, Name: "Intake", Fields: []deltatree.FieldChange{{ID: "f1", Value: "20"}},
	}})

	delta, err := h.svc.Delta(ctx, user, participant)
	require.NoError(t, err)
	doc := delta.Documents[docID]
	require.NotNil(t, doc)
	assert.Equal(t, deltatree.DeltaUpdate, doc.Type)
	assert.Equal(t, "20", doc.Values["f1"].Value)
	assert.Equal(t, "10", doc.Values["f1"].OldValue)

	saved, err := h.svc.Save(ctx, user, participant)
	require.NoError(t, err)
	assert.Equal(t, "Intake", saved.Documents[docID].Name)
	assert.Equal(t, "20", saved.Documents[docID].Values["f1"].Value)
	assert.Equal(t, "20", saved.Header.Fields["intake"])
	assert.Equal(t, 1, saved.Header.DocumentCount)

	archived, err := h.store.ArchivedDeltas(ctx, user, participant)
	require.NoError(t, err)
	assert.Len(t, archived, 2)

	fresh, err := h.svc.Delta(ctx, user, participant)
	require.NoError(t, err)
	assert.True(t, fresh.IsEmpty())
	assert.Equal(t, []deltatree.TreeItem{{ID: docID}}, fresh.DocumentTree)
}

// brokenCommit fails every merge commit without writing anything.
type brokenCommit struct {
	*storage.Store
}

func (brokenCommit) CommitMerge(context.Context, string, *vault.EncryptedSnapshot, string) (string, error) {
	return "", errors.New("disk full")
}

func TestSaveFailureKeepsBaseAndDelta(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	docID := h.seedIntake(t)

	h.apply(t, Action{Kind: UpdateDocument, Document: &deltatree.DocumentChange{
		ID: docID, Name: "Intake", Fields: []deltatree.FieldChange{{ID: "f1", Value: "20"}},
	}})

	calc := header.NewCalculator(map[string][]string{"intake": {"intake", "f1"}}, logging.Discard())
	broken := New(brokenCommit{h.store}, h.vault, calc, logging.Discard())
	_, err := broken.Save(ctx, user, participant)
	require.Error(t, err)
	assert.Equal(t, Storage, CodeOf(err))

	base, err := h.svc.Snapshot(ctx, user, participant)
	require.NoError(t, err)
	assert.Equal(t, "10", base.Documents[docID].Values["f1"].Value)

	delta, err := h.svc.Delta(ctx, user, participant)
	require.NoError(t, err)
	assert.Equal(t, "20", delta.Documents[docID].Values["f1"].Value)

	saved, err := h.svc.Save(ctx, user, participant)
	require.NoError(t, err, "the delta still matches the untouched base")
	assert.Equal(t, "20", saved.Documents[docID].Values["f1"].Value)
}

func TestSaveWithoutDeltaReturnsBase(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	created, err := h.svc.CreateParticipant(ctx, user, participant, "Alex Doe")
	require.NoError(t, err)

	saved, err := h.svc.Save(ctx, user, participant)
	require.NoError(t, err)
	assert.True(t, saved.SaveFileTimestamp.Equal(created.SaveFileTimestamp))
}

func TestRemoveDocumentThenSave(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	docID := h.seedIntake(t)

	h.apply(t, Action{Kind: RemoveDocument, DocumentID: docID})

	delta, err := h.svc.Delta(ctx, user, participant)
	require.NoError(t, err)
	assert.Equal(t, deltatree.DeltaDelete, delta.Documents[docID].Type)
	assert.Empty(t, delta.DocumentTree)

	saved, err := h.svc.Save(ctx, user, participant)
	require.NoError(t, err)
	assert.NotContains(t, saved.Documents, docID)
	assert.Empty(t, saved.DocumentTree)
	assert.Equal(t, 0, saved.Header.DocumentCount)
}

func TestAddGroupAndReorder(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	docID := h.seedIntake(t)

	first := h.apply(t, Action{Kind: AddGroup, NewGroup: &deltatree.NewGroup{DocumentID: docID, GroupID: "phone"}})
	second := h.apply(t, Action{Kind: AddGroup, NewGroup: &deltatree.NewGroup{DocumentID: docID, GroupID: "phone"}})
	h.apply(t, Action{Kind: ReorderGroups, DocumentID: docID, Order: []deltatree.OrderItem{{ID: second}, {ID: first}}})

	saved, err := h.svc.Save(ctx, user, participant)
	require.NoError(t, err)
	groups := deltatree.SortedGroups(saved.Documents[docID].Groups)
	require.Len(t, groups, 2)
	assert.Equal(t, second, groups[0].ID)
	assert.Equal(t, first, groups[1].ID)
}

func TestDiscard(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	docID := h.seedIntake(t)

	h.apply(t, Action{Kind: RemoveDocument, DocumentID: docID})
	archiveID, err := h.svc.Discard(ctx, user, participant)
	require.NoError(t, err)
	assert.NotEmpty(t, archiveID)

	snap, err := h.svc.Snapshot(ctx, user, participant)
	require.NoError(t, err)
	assert.Contains(t, snap.Documents, docID)

	_, err = h.svc.Discard(ctx, user, participant)
	assert.Equal(t, NotFound, CodeOf(err))
}

func TestPreviewDoesNotPersist(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	docID := h.seedIntake(t)

	h.apply(t, Action{Kind: UpdateDocument, Document: &deltatree.DocumentChange{ID: docID, Name: "Renamed"}})

	preview, err := h.svc.Preview(ctx, user, participant)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", preview.Documents[docID].Name)

	snap, err := h.svc.Snapshot(ctx, user, participant)
	require.NoError(t, err)
	assert.Equal(t, "Intake", snap.Documents[docID].Name)
}

func TestStaleDeltaIsRejected(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	docID := h.seedIntake(t)

	h.apply(t, Action{Kind: UpdateDocument, Document: &deltatree.DocumentChange{ID: docID, Name: "Renamed"}})

	// Another writer saves a newer snapshot behind the delta's back.
	snap, err := h.svc.Snapshot(ctx, user, participant)
	require.NoError(t, err)
	snap.SaveFileTimestamp = snap.SaveFileTimestamp.Add(time.Hour)
	enc, err := h.vault.EncryptSnapshot(snap, user)
	require.NoError(t, err)
	require.NoError(t, h.store.SaveSnapshot(ctx, user, enc))

	_, err = h.svc.Save(ctx, user, participant)
	require.Error(t, err)
	assert.Equal(t, StaleDelta, CodeOf(err))
	assert.True(t, errors.Is(err, deltatree.ErrStaleDelta))

	delta, err := h.svc.Delta(ctx, user, participant)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", delta.Documents[docID].Value, "delta survives a rejected merge")
}

func TestApplyErrors(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	_, err := h.svc.CreateParticipant(ctx, user, participant, "Alex Doe")
	require.NoError(t, err)

	tests := []struct {
		name        string
		participant string
		action      Action
		code        ErrorCode
	}{
		{"unknown participant", "p-404", Action{Kind: RemoveDocument, DocumentID: "d1"}, NotFound},
		{"missing payload", participant, Action{Kind: UpdateDocument}, InvalidArgument},
		{"unknown kind", participant, Action{Kind: "rename"}, InvalidArgument},
		{"unknown document", participant, Action{Kind: RemoveDocument, DocumentID: "nope"}, NotFound},
		{"unknown parent", participant, Action{Kind: AddDocument, NewDocument: &deltatree.NewDocument{Name: "x", ParentID: "nope"}}, NotFound},
		{"empty participant", "", Action{Kind: RemoveDocument, DocumentID: "d1"}, InvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.svc.Apply(ctx, user, tt.participant, tt.action)
			require.Error(t, err)
			assert.Equal(t, tt.code, CodeOf(err))
		})
	}
}

func TestConcurrentApply(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	_, err := h.svc.CreateParticipant(ctx, user, participant, "Alex Doe")
	require.NoError(t, err)

	const n = 10
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.svc.Apply(ctx, user, participant, Action{
				Kind:        AddDocument,
				NewDocument: &deltatree.NewDocument{DocumentID: "note", Name: fmt.Sprintf("Note %d", i)},
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	saved, err := h.svc.Save(ctx, user, participant)
	require.NoError(t, err)
	assert.Len(t, saved.Documents, n)
	assert.Len(t, saved.DocumentTree, n)
}
