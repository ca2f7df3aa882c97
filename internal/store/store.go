// Package store keeps the session's copy of the note collection in step with the notes API.
//
// Every mutation goes to the repository first; the local collection changes only after
// the repository confirms it. Readers always receive copies.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/MarcoPoloResearchLab/notepad/internal/notes"
	"github.com/MarcoPoloResearchLab/notepad/internal/view"
	"go.uber.org/zap"
)

var (
	// ErrEmptyNoteField is returned without contacting the repository when a title or
	// content is empty after trimming.
	ErrEmptyNoteField    = errors.New("store: title and content are required")
	errMissingRepository = errors.New("store: repository is required")
)

// Repository is the remote source of truth for notes.
type Repository interface {
	List(ctx context.Context) ([]notes.Note, error)
	Create(ctx context.Context, draft notes.NoteDraft) (notes.Note, error)
	Update(ctx context.Context, noteID string, update notes.NoteUpdate) (notes.Note, error)
	ToggleComplete(ctx context.Context, noteID string, completed bool) (notes.Note, error)
	Delete(ctx context.Context, noteID string) error
}

// State is the lifecycle of the initial load.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type Config struct {
	Repository Repository
	Notifier   Notifier
	Logger     *zap.Logger
}

// Store owns the in-memory note collection.
type Store struct {
	repository Repository
	notifier   Notifier
	logger     *zap.Logger

	mu         sync.RWMutex
	state      State
	collection []notes.Note
	loadErr    error
}

func New(cfg Config) (*Store, error) {
	if cfg.Repository == nil {
		return nil, errMissingRepository
	}
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = NopNotifier{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		repository: cfg.Repository,
		notifier:   notifier,
		logger:     logger,
		state:      StateIdle,
		collection: []notes.Note{},
	}, nil
}

// Load replaces the collection with the repository's listing. On failure the
// collection is emptied and the error is kept for display until the next Load.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	s.state = StateLoading
	s.loadErr = nil
	s.mu.Unlock()

	collection, err := s.repository.List(ctx)

	s.mu.Lock()
	if err != nil {
		s.state = StateFailed
		s.collection = []notes.Note{}
		s.loadErr = err
		s.mu.Unlock()
		s.logger.Warn("note collection load failed", zap.Error(err))
		s.notifier.Notify(Notification{Title: "Could not load notes", Description: err.Error(), Destructive: true})
		return err
	}
	s.collection = append(make([]notes.Note, 0, len(collection)), collection...)
	s.state = StateReady
	s.mu.Unlock()

	s.logger.Debug("note collection loaded", zap.Int("count", len(collection)))
	s.notifier.Notify(Notification{Title: "Notes loaded", Description: fmt.Sprintf("%d note(s) found.", len(collection))})
	return nil
}

// Add creates a note and places the server's record at the front of the collection.
func (s *Store) Add(ctx context.Context, title, content string) (notes.Note, error) {
	trimmedTitle, trimmedContent, err := trimFields(title, content)
	if err != nil {
		return notes.Note{}, err
	}

	created, err := s.repository.Create(ctx, notes.NoteDraft{Title: trimmedTitle, Content: trimmedContent})
	if err != nil {
		s.failed("Could not create note", err)
		return notes.Note{}, err
	}

	s.mu.Lock()
	s.collection = append([]notes.Note{created}, s.collection...)
	s.mu.Unlock()

	s.notifier.Notify(Notification{Title: "Note created", Description: "Your note was saved."})
	return created, nil
}

// Edit replaces a note's title and content, keeping its completion flag.
// A note missing locally still reaches the repository without a completion flag,
// so the stored flag is kept; the local replace then has no effect.
func (s *Store) Edit(ctx context.Context, noteID, title, content string) (notes.Note, error) {
	trimmedTitle, trimmedContent, err := trimFields(title, content)
	if err != nil {
		return notes.Note{}, err
	}

	var completed *bool
	if existing, ok := s.Find(noteID); ok {
		flag := existing.Completed
		completed = &flag
	}

	updated, err := s.repository.Update(ctx, noteID, notes.NoteUpdate{
		Title:     trimmedTitle,
		Content:   trimmedContent,
		Completed: completed,
	})
	if err != nil {
		s.failed("Could not update note", err)
		return notes.Note{}, err
	}

	s.replace(noteID, updated)
	s.notifier.Notify(Notification{Title: "Note updated", Description: "Your changes were saved."})
	return updated, nil
}

// Delete removes a note once the repository confirms it.
func (s *Store) Delete(ctx context.Context, noteID string) error {
	if err := s.repository.Delete(ctx, noteID); err != nil {
		s.failed("Could not delete note", err)
		return err
	}

	s.mu.Lock()
	kept := make([]notes.Note, 0, len(s.collection))
	for _, note := range s.collection {
		if note.ID != noteID {
			kept = append(kept, note)
		}
	}
	s.collection = kept
	s.mu.Unlock()

	s.notifier.Notify(Notification{Title: "Note deleted", Description: "The note was removed.", Destructive: true})
	return nil
}

// SetCompleted changes a note's completion flag and stores the full record the server returns.
func (s *Store) SetCompleted(ctx context.Context, noteID string, completed bool) (notes.Note, error) {
	updated, err := s.repository.ToggleComplete(ctx, noteID, completed)
	if err != nil {
		s.failed("Could not change note status", err)
		return notes.Note{}, err
	}

	s.replace(noteID, updated)
	if completed {
		s.notifier.Notify(Notification{Title: "Note completed", Description: "Marked as done."})
	} else {
		s.notifier.Notify(Notification{Title: "Note reopened", Description: "Marked as pending again."})
	}
	return updated, nil
}

// State reports the load lifecycle state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// LoadError returns the error of the last failed Load, or nil.
func (s *Store) LoadError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadErr
}

// Notes returns a copy of the collection in display order.
func (s *Store) Notes() []notes.Note {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append(make([]notes.Note, 0, len(s.collection)), s.collection...)
}

// Find returns the note with the identifier, if present.
func (s *Store) Find(noteID string) (notes.Note, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, note := range s.collection {
		if note.ID == noteID {
			return note, true
		}
	}
	return notes.Note{}, false
}

// Snapshot derives the presentation state for the search term and status filter.
// Counts cover the whole collection, not the filtered subset.
func (s *Store) Snapshot(search string, status view.StatusFilter) view.State {
	s.mu.RLock()
	collection := append(make([]notes.Note, 0, len(s.collection)), s.collection...)
	state := s.state
	loadErr := s.loadErr
	s.mu.RUnlock()

	errorMessage := ""
	if loadErr != nil {
		errorMessage = loadErr.Error()
	}

	return view.State{
		Notes:        view.Filter(collection, search, status),
		Search:       search,
		Status:       status,
		Loading:      state == StateLoading,
		ErrorMessage: errorMessage,
		Counts:       view.Count(collection),
	}
}

func (s *Store) replace(noteID string, updated notes.Note) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for index := range s.collection {
		if s.collection[index].ID == noteID {
			s.collection[index] = updated
			return
		}
	}
}

func (s *Store) failed(title string, err error) {
	s.logger.Warn("note mutation failed", zap.String("action", title), zap.Error(err))
	s.notifier.Notify(Notification{Title: title, Description: err.Error(), Destructive: true})
}

func trimFields(title, content string) (string, string, error) {
	trimmedTitle := strings.TrimSpace(title)
	trimmedContent := strings.TrimSpace(content)
	if trimmedTitle == "" || trimmedContent == "" {
		return "", "", ErrEmptyNoteField
	}
	return trimmedTitle, trimmedContent, nil
}
