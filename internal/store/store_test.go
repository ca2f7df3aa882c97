package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/notepad/internal/notes"
	"github.com/MarcoPoloResearchLab/notepad/internal/view"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errRemote = errors.New("failed to reach backend")

type repositoryCall struct {
	operation string
	noteID    string
	draft     notes.NoteDraft
	update    notes.NoteUpdate
	completed bool
}

// fakeRepository keeps its own authoritative notes, like the backend would.
type fakeRepository struct {
	mu      sync.Mutex
	notes   map[string]notes.Note
	listing []notes.Note
	calls   []repositoryCall
	fail    map[string]error
	nextID  int
	clock   time.Time
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		notes: map[string]notes.Note{},
		fail:  map[string]error{},
		clock: time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC),
	}
}

func (r *fakeRepository) failOn(operation string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err == nil {
		delete(r.fail, operation)
		return
	}
	r.fail[operation] = err
}

func (r *fakeRepository) recorded() []repositoryCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]repositoryCall(nil), r.calls...)
}

func (r *fakeRepository) tick() time.Time {
	r.clock = r.clock.Add(time.Second)
	return r.clock
}

func (r *fakeRepository) List(ctx context.Context) ([]notes.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, repositoryCall{operation: "list"})
	if err := r.fail["list"]; err != nil {
		return nil, err
	}
	return append([]notes.Note(nil), r.listing...), nil
}

func (r *fakeRepository) Create(ctx context.Context, draft notes.NoteDraft) (notes.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, repositoryCall{operation: "create", draft: draft})
	if err := r.fail["create"]; err != nil {
		return notes.Note{}, err
	}
	r.nextID++
	stamp := r.tick()
	created := notes.Note{
		ID:        fmt.Sprintf("note-%d", r.nextID),
		Title:     draft.Title,
		Content:   draft.Content,
		CreatedAt: stamp,
		UpdatedAt: stamp,
	}
	r.notes[created.ID] = created
	return created, nil
}

func (r *fakeRepository) Update(ctx context.Context, noteID string, update notes.NoteUpdate) (notes.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, repositoryCall{operation: "update", noteID: noteID, update: update})
	if err := r.fail["update"]; err != nil {
		return notes.Note{}, err
	}
	existing, ok := r.notes[noteID]
	if !ok {
		existing = notes.Note{ID: noteID, CreatedAt: r.clock}
	}
	existing.Title = update.Title
	existing.Content = update.Content
	if update.Completed != nil {
		existing.Completed = *update.Completed
	}
	existing.UpdatedAt = r.tick()
	r.notes[noteID] = existing
	return existing, nil
}

func (r *fakeRepository) ToggleComplete(ctx context.Context, noteID string, completed bool) (notes.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, repositoryCall{operation: "toggle", noteID: noteID, completed: completed})
	if err := r.fail["toggle"]; err != nil {
		return notes.Note{}, err
	}
	existing := r.notes[noteID]
	existing.Completed = completed
	existing.UpdatedAt = r.tick()
	r.notes[noteID] = existing
	return existing, nil
}

func (r *fakeRepository) Delete(ctx context.Context, noteID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, repositoryCall{operation: "delete", noteID: noteID})
	if err := r.fail["delete"]; err != nil {
		return err
	}
	delete(r.notes, noteID)
	return nil
}

// blockingRepository holds List until release is closed.
type blockingRepository struct {
	*fakeRepository
	started chan struct{}
	release chan struct{}
}

func (r *blockingRepository) List(ctx context.Context) ([]notes.Note, error) {
	close(r.started)
	<-r.release
	return r.fakeRepository.List(ctx)
}

type recordingNotifier struct {
	mu            sync.Mutex
	notifications []Notification
}

func (n *recordingNotifier) Notify(notification Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notifications = append(n.notifications, notification)
}

func (n *recordingNotifier) last() Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.notifications) == 0 {
		return Notification{}
	}
	return n.notifications[len(n.notifications)-1]
}

func newTestStore(t *testing.T) (*Store, *fakeRepository, *recordingNotifier) {
	t.Helper()
	repository := newFakeRepository()
	notifier := &recordingNotifier{}
	store, err := New(Config{Repository: repository, Notifier: notifier})
	require.NoError(t, err)
	return store, repository, notifier
}

func newLoadedStore(t *testing.T, listing ...notes.Note) (*Store, *fakeRepository, *recordingNotifier) {
	t.Helper()
	store, repository, notifier := newTestStore(t)
	repository.listing = listing
	for _, note := range listing {
		repository.notes[note.ID] = note
	}
	require.NoError(t, store.Load(context.Background()))
	return store, repository, notifier
}

func ids(collection []notes.Note) []string {
	result := make([]string, 0, len(collection))
	for _, note := range collection {
		result = append(result, note.ID)
	}
	return result
}

func TestNewRequiresRepository(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
}

func TestStoreStartsIdleAndEmpty(t *testing.T) {
	store, _, _ := newTestStore(t)

	assert.Equal(t, StateIdle, store.State())
	assert.Empty(t, store.Notes())
	assert.NoError(t, store.LoadError())
}

func TestLoadReplacesCollectionPreservingOrder(t *testing.T) {
	store, _, notifier := newLoadedStore(t,
		notes.Note{ID: "b", Title: "second", Content: "x"},
		notes.Note{ID: "a", Title: "first", Content: "y"},
	)

	assert.Equal(t, StateReady, store.State())
	assert.Equal(t, []string{"b", "a"}, ids(store.Notes()))
	assert.Equal(t, "Notes loaded", notifier.last().Title)
	assert.Equal(t, "2 note(s) found.", notifier.last().Description)
}

func TestLoadReportsLoadingUntilListReturns(t *testing.T) {
	repository := &blockingRepository{
		fakeRepository: newFakeRepository(),
		started:        make(chan struct{}),
		release:        make(chan struct{}),
	}
	repository.listing = []notes.Note{{ID: "a", Title: "t", Content: "c"}}
	store, err := New(Config{Repository: repository})
	require.NoError(t, err)

	loaded := make(chan error, 1)
	go func() {
		loaded <- store.Load(context.Background())
	}()

	select {
	case <-repository.started:
	case <-time.After(time.Second):
		t.Fatal("list was not called")
	}
	assert.Equal(t, StateLoading, store.State())
	assert.True(t, store.Snapshot("", view.StatusAll).Loading)
	assert.Empty(t, store.Notes())

	close(repository.release)
	select {
	case err := <-loaded:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("load did not finish")
	}
	assert.Equal(t, StateReady, store.State())
	assert.False(t, store.Snapshot("", view.StatusAll).Loading)
	assert.Equal(t, []string{"a"}, ids(store.Notes()))
}

func TestLoadFailureThenRetry(t *testing.T) {
	store, repository, notifier := newLoadedStore(t, notes.Note{ID: "stale", Title: "t", Content: "c"})
	repository.failOn("list", errRemote)

	err := store.Load(context.Background())

	require.ErrorIs(t, err, errRemote)
	assert.Equal(t, StateFailed, store.State())
	assert.Empty(t, store.Notes())
	assert.ErrorIs(t, store.LoadError(), errRemote)
	assert.True(t, notifier.last().Destructive)

	snapshot := store.Snapshot("", view.StatusAll)
	assert.Equal(t, errRemote.Error(), snapshot.ErrorMessage)
	assert.Empty(t, snapshot.Notes)

	repository.failOn("list", nil)
	repository.listing = []notes.Note{{ID: "fresh", Title: "t", Content: "c"}}

	require.NoError(t, store.Load(context.Background()))
	assert.Equal(t, StateReady, store.State())
	assert.Equal(t, []string{"fresh"}, ids(store.Notes()))
	assert.NoError(t, store.LoadError())
	assert.Empty(t, store.Snapshot("", view.StatusAll).ErrorMessage)
}

func TestAddPrependsTrimmedNotesNewestFirst(t *testing.T) {
	store, repository, _ := newLoadedStore(t)
	ctx := context.Background()

	inputs := [][2]string{{"  First ", "one"}, {"Second", "\ttwo\n"}, {"Third", "three"}}
	for _, input := range inputs {
		_, err := store.Add(ctx, input[0], input[1])
		require.NoError(t, err)
	}

	collection := store.Notes()
	require.Len(t, collection, 3)
	assert.Equal(t, []string{"note-3", "note-2", "note-1"}, ids(collection))
	assert.Equal(t, "Third", collection[0].Title)
	assert.Equal(t, "two", collection[1].Content)
	assert.Equal(t, "First", collection[2].Title)

	calls := repository.recorded()
	require.Len(t, calls, 4)
	assert.Equal(t, notes.NoteDraft{Title: "First", Content: "one"}, calls[1].draft)
}

func TestAddRejectsEmptyFieldsWithoutCallingRepository(t *testing.T) {
	store, repository, _ := newLoadedStore(t, notes.Note{ID: "kept", Title: "t", Content: "c"})
	before := len(repository.recorded())

	for _, input := range [][2]string{{"", "x"}, {"x", ""}, {"   ", "x"}, {"x", "\n\t"}} {
		_, err := store.Add(context.Background(), input[0], input[1])
		require.ErrorIs(t, err, ErrEmptyNoteField)
	}

	assert.Len(t, repository.recorded(), before)
	assert.Equal(t, []string{"kept"}, ids(store.Notes()))
}

func TestAddFailureLeavesCollectionUnchanged(t *testing.T) {
	store, repository, notifier := newLoadedStore(t, notes.Note{ID: "kept", Title: "t", Content: "c"})
	repository.failOn("create", errRemote)

	_, err := store.Add(context.Background(), "title", "content")

	require.ErrorIs(t, err, errRemote)
	assert.Equal(t, []string{"kept"}, ids(store.Notes()))
	assert.Equal(t, StateReady, store.State())
	assert.Equal(t, Notification{Title: "Could not create note", Description: errRemote.Error(), Destructive: true}, notifier.last())
}

func TestEditReplacesInPlaceAndPreservesCompletion(t *testing.T) {
	store, repository, _ := newLoadedStore(t,
		notes.Note{ID: "a", Title: "first", Content: "x", Completed: true},
		notes.Note{ID: "b", Title: "second", Content: "y"},
		notes.Note{ID: "c", Title: "third", Content: "z"},
	)

	updated, err := store.Edit(context.Background(), "a", " renamed ", "body")

	require.NoError(t, err)
	assert.True(t, updated.Completed)
	assert.Equal(t, []string{"a", "b", "c"}, ids(store.Notes()))
	assert.Equal(t, "renamed", store.Notes()[0].Title)

	calls := repository.recorded()
	last := calls[len(calls)-1]
	assert.Equal(t, "update", last.operation)
	require.NotNil(t, last.update.Completed)
	assert.True(t, *last.update.Completed)
	assert.Equal(t, "renamed", last.update.Title)
}

func TestEditMissingNoteStillCallsRepository(t *testing.T) {
	store, repository, _ := newLoadedStore(t, notes.Note{ID: "a", Title: "first", Content: "x"})

	_, err := store.Edit(context.Background(), "ghost", "title", "content")

	require.NoError(t, err)
	calls := repository.recorded()
	last := calls[len(calls)-1]
	assert.Equal(t, "ghost", last.noteID)
	assert.Nil(t, last.update.Completed)
	assert.Equal(t, []string{"a"}, ids(store.Notes()))
	assert.Equal(t, "first", store.Notes()[0].Title)
}

func TestEditUnknownNoteKeepsServerCompletion(t *testing.T) {
	store, repository, _ := newLoadedStore(t, notes.Note{ID: "a", Title: "first", Content: "x"})
	repository.mu.Lock()
	repository.notes["remote"] = notes.Note{ID: "remote", Title: "t", Content: "c", Completed: true}
	repository.mu.Unlock()

	updated, err := store.Edit(context.Background(), "remote", "t2", "c2")

	require.NoError(t, err)
	assert.True(t, updated.Completed)
	assert.Equal(t, "t2", updated.Title)
	calls := repository.recorded()
	assert.Nil(t, calls[len(calls)-1].update.Completed)
	_, found := store.Find("remote")
	assert.False(t, found)
}

func TestEditRejectsEmptyFieldsAndFailures(t *testing.T) {
	store, repository, _ := newLoadedStore(t, notes.Note{ID: "a", Title: "first", Content: "x"})
	before := len(repository.recorded())

	_, err := store.Edit(context.Background(), "a", "title", "  ")
	require.ErrorIs(t, err, ErrEmptyNoteField)
	assert.Len(t, repository.recorded(), before)

	repository.failOn("update", errRemote)
	_, err = store.Edit(context.Background(), "a", "title", "content")
	require.ErrorIs(t, err, errRemote)
	assert.Equal(t, "first", store.Notes()[0].Title)
}

func TestDeleteRemovesMatchingNote(t *testing.T) {
	store, _, _ := newLoadedStore(t,
		notes.Note{ID: "a", Title: "t", Content: "c"},
		notes.Note{ID: "b", Title: "t", Content: "c"},
	)

	require.NoError(t, store.Delete(context.Background(), "a"))

	assert.Equal(t, []string{"b"}, ids(store.Notes()))
}

func TestDeleteMissingNoteStillCallsRepository(t *testing.T) {
	store, repository, notifier := newLoadedStore(t, notes.Note{ID: "a", Title: "t", Content: "c"})

	require.NoError(t, store.Delete(context.Background(), "ghost"))
	calls := repository.recorded()
	assert.Equal(t, repositoryCall{operation: "delete", noteID: "ghost"}, calls[len(calls)-1])
	assert.Equal(t, []string{"a"}, ids(store.Notes()))

	repository.failOn("delete", errRemote)
	err := store.Delete(context.Background(), "ghost")
	require.ErrorIs(t, err, errRemote)
	assert.Equal(t, []string{"a"}, ids(store.Notes()))
	assert.True(t, notifier.last().Destructive)
	assert.Equal(t, StateReady, store.State())
}

func TestSetCompletedStoresServerRecord(t *testing.T) {
	original := notes.Note{ID: "a", Title: "t", Content: "c"}
	store, repository, _ := newLoadedStore(t, original)
	ctx := context.Background()

	completed, err := store.SetCompleted(ctx, "a", true)
	require.NoError(t, err)
	assert.True(t, completed.Completed)
	assert.True(t, completed.UpdatedAt.After(original.UpdatedAt))
	assert.Equal(t, completed, store.Notes()[0])

	reopened, err := store.SetCompleted(ctx, "a", false)
	require.NoError(t, err)
	assert.Equal(t, repository.notes["a"], reopened)
	assert.Equal(t, reopened, store.Notes()[0])
	assert.False(t, store.Notes()[0].Completed)
}

func TestSetCompletedFailureLeavesNoteUnchanged(t *testing.T) {
	store, repository, notifier := newLoadedStore(t, notes.Note{ID: "a", Title: "t", Content: "c"})
	repository.failOn("toggle", errRemote)

	_, err := store.SetCompleted(context.Background(), "a", true)

	require.ErrorIs(t, err, errRemote)
	assert.False(t, store.Notes()[0].Completed)
	assert.Equal(t, "Could not change note status", notifier.last().Title)
}

func TestNotesReturnsCopy(t *testing.T) {
	store, _, _ := newLoadedStore(t, notes.Note{ID: "a", Title: "t", Content: "c"})

	collection := store.Notes()
	collection[0].Title = "mutated"

	assert.Equal(t, "t", store.Notes()[0].Title)
}

func TestSnapshotFiltersAndCountsWholeCollection(t *testing.T) {
	store, _, _ := newLoadedStore(t,
		notes.Note{ID: "a", Title: "Shopping", Content: "Milk,eggs", Completed: true},
		notes.Note{ID: "b", Title: "Errands", Content: "Post office"},
		notes.Note{ID: "c", Title: "Groceries", Content: "more milk"},
	)

	snapshot := store.Snapshot("MILK", view.StatusPending)

	assert.Equal(t, []string{"c"}, ids(snapshot.Notes))
	assert.Equal(t, view.Counts{Total: 3, Completed: 1, Pending: 2}, snapshot.Counts)
	assert.Equal(t, "MILK", snapshot.Search)
	assert.Equal(t, view.StatusPending, snapshot.Status)
	assert.False(t, snapshot.Loading)
	assert.Empty(t, snapshot.ErrorMessage)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "state(9)", State(9).String())
}
