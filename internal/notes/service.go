package notes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	noOpLogger           = zap.NewNop()
)

type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew      = "notes.service.new"
	opListNotes       = "notes.list_notes"
	opCreateNote      = "notes.create_note"
	opUpdateNote      = "notes.update_note"
	opSetCompleted    = "notes.set_completed"
	opDeleteNote      = "notes.delete_note"
	opSeedSampleNotes = "notes.seed_sample_notes"

	fieldNoteID = "note_id"

	reasonMissingDatabase   = "missing_database"
	reasonMissingIDProvider = "missing_id_provider"
	reasonInvalidNoteID     = "invalid_note_id"
	reasonInvalidText       = "invalid_text"
	reasonNotFound          = "not_found"
	reasonQueryFailed       = "query_failed"
	reasonIDGenerationFail  = "id_generation_failed"
	reasonInsertFailed      = "insert_failed"
	reasonSaveFailed        = "save_failed"
	reasonDeleteFailed      = "delete_failed"

	// listLimit caps a single listing.
	listLimit = 1000
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

type IDProvider interface {
	NewID() (string, error)
}

// Service persists notes and owns their identifiers and timestamps.
type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider IDProvider
	logger     *zap.Logger
}

func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, reasonMissingDatabase, errMissingDatabase)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	if cfg.IDProvider == nil {
		return nil, newServiceError(opServiceNew, reasonMissingIDProvider, errMissingIDProvider)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{
		db:         cfg.Database,
		clock:      clock,
		idProvider: cfg.IDProvider,
		logger:     logger,
	}, nil
}

// ListNotes returns stored notes, newest first.
func (s *Service) ListNotes(ctx context.Context) ([]Note, error) {
	if s.db == nil {
		s.logError(opListNotes, reasonMissingDatabase, errMissingDatabase)
		return nil, newServiceError(opListNotes, reasonMissingDatabase, errMissingDatabase)
	}

	notes := make([]Note, 0)
	if err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(listLimit).
		Find(&notes).Error; err != nil {
		s.logError(opListNotes, reasonQueryFailed, err)
		return nil, newServiceError(opListNotes, reasonQueryFailed, err)
	}

	return notes, nil
}

// CreateNote stores a new note with a server-assigned identifier and timestamps.
func (s *Service) CreateNote(ctx context.Context, draft NoteDraft) (Note, error) {
	if s.db == nil {
		s.logError(opCreateNote, reasonMissingDatabase, errMissingDatabase)
		return Note{}, newServiceError(opCreateNote, reasonMissingDatabase, errMissingDatabase)
	}
	if s.idProvider == nil {
		s.logError(opCreateNote, reasonMissingIDProvider, errMissingIDProvider)
		return Note{}, newServiceError(opCreateNote, reasonMissingIDProvider, errMissingIDProvider)
	}

	title, content, err := validateText(draft.Title, draft.Content)
	if err != nil {
		return Note{}, newServiceError(opCreateNote, reasonInvalidText, err)
	}

	noteID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opCreateNote, reasonIDGenerationFail, err)
		return Note{}, newServiceError(opCreateNote, reasonIDGenerationFail, err)
	}

	now := s.now()
	note := Note{
		ID:        noteID,
		Title:     title.String(),
		Content:   content.String(),
		Completed: false,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(&note).Error; err != nil {
		s.logError(opCreateNote, reasonInsertFailed, err, zap.String(fieldNoteID, noteID))
		return Note{}, newServiceError(opCreateNote, reasonInsertFailed, err)
	}

	s.loggerOrDefault().Info("note created", zap.String(fieldNoteID, noteID))
	return note, nil
}

// UpdateNote replaces title and content, and the completion flag when supplied.
func (s *Service) UpdateNote(ctx context.Context, noteID NoteID, update NoteUpdate) (Note, error) {
	title, content, err := validateText(update.Title, update.Content)
	if err != nil {
		return Note{}, newServiceError(opUpdateNote, reasonInvalidText, err)
	}
	return s.mutate(ctx, opUpdateNote, noteID, func(note *Note) {
		note.Title = title.String()
		note.Content = content.String()
		if update.Completed != nil {
			note.Completed = *update.Completed
		}
	})
}

// SetCompleted changes only the completion flag.
func (s *Service) SetCompleted(ctx context.Context, noteID NoteID, completed bool) (Note, error) {
	return s.mutate(ctx, opSetCompleted, noteID, func(note *Note) {
		note.Completed = completed
	})
}

// DeleteNote removes the note permanently.
func (s *Service) DeleteNote(ctx context.Context, noteID NoteID) error {
	if s.db == nil {
		s.logError(opDeleteNote, reasonMissingDatabase, errMissingDatabase)
		return newServiceError(opDeleteNote, reasonMissingDatabase, errMissingDatabase)
	}
	if noteID == "" {
		return newServiceError(opDeleteNote, reasonInvalidNoteID, ErrInvalidNoteID)
	}

	result := s.db.WithContext(ctx).Where("id = ?", noteID.String()).Delete(&Note{})
	if result.Error != nil {
		s.logError(opDeleteNote, reasonDeleteFailed, result.Error, zap.String(fieldNoteID, noteID.String()))
		return newServiceError(opDeleteNote, reasonDeleteFailed, result.Error)
	}
	if result.RowsAffected == 0 {
		return newServiceError(opDeleteNote, reasonNotFound, ErrNoteNotFound)
	}

	s.loggerOrDefault().Info("note deleted", zap.String(fieldNoteID, noteID.String()))
	return nil
}

// SeedSampleNotes inserts the drafts only when no notes exist yet and reports how many were stored.
func (s *Service) SeedSampleNotes(ctx context.Context, drafts []NoteDraft) (int, error) {
	if s.db == nil {
		s.logError(opSeedSampleNotes, reasonMissingDatabase, errMissingDatabase)
		return 0, newServiceError(opSeedSampleNotes, reasonMissingDatabase, errMissingDatabase)
	}
	if s.idProvider == nil {
		s.logError(opSeedSampleNotes, reasonMissingIDProvider, errMissingIDProvider)
		return 0, newServiceError(opSeedSampleNotes, reasonMissingIDProvider, errMissingIDProvider)
	}

	inserted := 0
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&Note{}).Count(&count).Error; err != nil {
			return newServiceError(opSeedSampleNotes, reasonQueryFailed, err)
		}
		if count > 0 {
			return nil
		}
		now := s.now()
		for index, draft := range drafts {
			title, content, err := validateText(draft.Title, draft.Content)
			if err != nil {
				return newServiceError(opSeedSampleNotes, reasonInvalidText, err)
			}
			noteID, err := s.idProvider.NewID()
			if err != nil {
				return newServiceError(opSeedSampleNotes, reasonIDGenerationFail, err)
			}
			// Later drafts are older so the listing keeps the draft order.
			createdAt := now.Add(-time.Duration(index) * time.Second)
			note := Note{
				ID:        noteID,
				Title:     title.String(),
				Content:   content.String(),
				CreatedAt: createdAt,
				UpdatedAt: createdAt,
			}
			if err := tx.Create(&note).Error; err != nil {
				return newServiceError(opSeedSampleNotes, reasonInsertFailed, err)
			}
			inserted++
		}
		return nil
	})
	if txErr != nil {
		s.logError(opSeedSampleNotes, "transaction_failed", txErr)
		return 0, txErr
	}

	if inserted > 0 {
		s.loggerOrDefault().Info("sample notes inserted", zap.Int("count", inserted))
	}
	return inserted, nil
}

func (s *Service) mutate(ctx context.Context, operation string, noteID NoteID, apply func(*Note)) (Note, error) {
	if s.db == nil {
		s.logError(operation, reasonMissingDatabase, errMissingDatabase)
		return Note{}, newServiceError(operation, reasonMissingDatabase, errMissingDatabase)
	}
	if noteID == "" {
		return Note{}, newServiceError(operation, reasonInvalidNoteID, ErrInvalidNoteID)
	}

	var updated Note
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", noteID.String()).
			Take(&updated).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return newServiceError(operation, reasonNotFound, ErrNoteNotFound)
		}
		if err != nil {
			s.logError(operation, reasonQueryFailed, err, zap.String(fieldNoteID, noteID.String()))
			return newServiceError(operation, reasonQueryFailed, err)
		}

		apply(&updated)
		updated.UpdatedAt = s.now()

		if err := tx.Save(&updated).Error; err != nil {
			s.logError(operation, reasonSaveFailed, err, zap.String(fieldNoteID, noteID.String()))
			return newServiceError(operation, reasonSaveFailed, err)
		}
		return nil
	})
	if txErr != nil {
		return Note{}, txErr
	}

	s.loggerOrDefault().Info("note updated", zap.String("operation", operation), zap.String(fieldNoteID, noteID.String()))
	return updated, nil
}

func (s *Service) now() time.Time {
	return s.clock().UTC()
}

func validateText(rawTitle, rawContent string) (NoteText, NoteText, error) {
	title, err := NewNoteText(rawTitle)
	if err != nil {
		return "", "", err
	}
	content, err := NewNoteText(rawContent)
	if err != nil {
		return "", "", err
	}
	return title, content, nil
}

func (s *Service) loggerOrDefault() *zap.Logger {
	if s == nil {
		return noOpLogger
	}
	if s.logger == nil {
		return noOpLogger
	}
	return s.logger
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.loggerOrDefault().Error("notes service error", attrs...)
}
