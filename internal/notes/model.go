package notes

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const maxIdentifierLength = 190

var (
	// ErrInvalidNoteID indicates that a note identifier is empty or exceeds storage bounds.
	ErrInvalidNoteID = errors.New("notes: invalid note id")
	// ErrEmptyNoteText indicates that a title or content is empty after trimming.
	ErrEmptyNoteText = errors.New("notes: title and content must not be empty")
	// ErrNoteNotFound indicates that no note matches the requested identifier.
	ErrNoteNotFound = errors.New("notes: note not found")
)

// NoteID represents a validated note identifier.
type NoteID string

// NewNoteID validates raw input and returns a NoteID.
func NewNoteID(rawInput string) (NoteID, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidNoteID)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidNoteID, maxIdentifierLength)
	}
	return NoteID(trimmed), nil
}

// String returns the underlying string identifier.
func (id NoteID) String() string {
	return string(id)
}

// NoteText is a title or content value with surrounding whitespace removed.
type NoteText string

// NewNoteText trims the input and rejects values that are empty afterwards.
func NewNoteText(rawInput string) (NoteText, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", ErrEmptyNoteText
	}
	return NoteText(trimmed), nil
}

// String returns the trimmed text.
func (text NoteText) String() string {
	return string(text)
}

// Note is the single persisted entity. The JSON shape is the REST wire format.
type Note struct {
	ID        string    `gorm:"column:id;primaryKey;size:190;not null" json:"id"`
	Title     string    `gorm:"column:title;type:text;not null" json:"title"`
	Content   string    `gorm:"column:content;type:text;not null" json:"content"`
	Completed bool      `gorm:"column:completed;not null;default:false;index:idx_notes_completed" json:"completed"`
	CreatedAt time.Time `gorm:"column:created_at;not null;autoCreateTime:false;index:idx_notes_created" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null;autoUpdateTime:false" json:"updatedAt"`
}

// TableName provides the explicit table binding for GORM.
func (Note) TableName() string {
	return "notes"
}

// NoteDraft carries the fields a client supplies when creating a note.
type NoteDraft struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// NoteUpdate carries the fields a client supplies when editing a note.
// A nil Completed keeps the stored flag.
type NoteUpdate struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	Completed *bool  `json:"completed,omitempty"`
}

// CompletionUpdate is the body of the toggle-complete operation.
type CompletionUpdate struct {
	Completed bool `json:"completed"`
}
