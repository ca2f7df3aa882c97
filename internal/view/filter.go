// Package view derives what the presentation layer displays from the note collection.
package view

import (
	"errors"
	"fmt"
	"strings"

	"github.com/MarcoPoloResearchLab/notepad/internal/notes"
)

// ErrUnknownStatusFilter indicates an unrecognized status filter value.
var ErrUnknownStatusFilter = errors.New("view: unknown status filter")

// StatusFilter selects notes by completion state.
type StatusFilter string

const (
	StatusAll       StatusFilter = "all"
	StatusCompleted StatusFilter = "completed"
	StatusPending   StatusFilter = "pending"
)

// ParseStatusFilter accepts all, completed or pending, case-insensitively.
// An empty value selects all.
func ParseStatusFilter(value string) (StatusFilter, error) {
	switch StatusFilter(strings.ToLower(strings.TrimSpace(value))) {
	case StatusAll, "":
		return StatusAll, nil
	case StatusCompleted:
		return StatusCompleted, nil
	case StatusPending:
		return StatusPending, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStatusFilter, value)
	}
}

// String returns the filter name.
func (f StatusFilter) String() string {
	return string(f)
}

func (f StatusFilter) matches(note notes.Note) bool {
	switch f {
	case StatusCompleted:
		return note.Completed
	case StatusPending:
		return !note.Completed
	default:
		return true
	}
}

// Filter returns the notes matching both the search term and the status filter,
// in their original order. The input is never modified.
//
// The search applies only when the trimmed term is non-empty; a note matches when
// its title or content contains the term, ignoring case.
func Filter(collection []notes.Note, search string, status StatusFilter) []notes.Note {
	needle := ""
	if strings.TrimSpace(search) != "" {
		needle = strings.ToLower(search)
	}

	filtered := make([]notes.Note, 0, len(collection))
	for _, note := range collection {
		if needle != "" && !containsFold(note, needle) {
			continue
		}
		if !status.matches(note) {
			continue
		}
		filtered = append(filtered, note)
	}
	return filtered
}

func containsFold(note notes.Note, lowerNeedle string) bool {
	return strings.Contains(strings.ToLower(note.Title), lowerNeedle) ||
		strings.Contains(strings.ToLower(note.Content), lowerNeedle)
}

// Counts aggregates completion totals over a collection.
type Counts struct {
	Total     int
	Completed int
	Pending   int
}

// Count tallies completed and pending notes.
func Count(collection []notes.Note) Counts {
	completed := 0
	for _, note := range collection {
		if note.Completed {
			completed++
		}
	}
	return Counts{
		Total:     len(collection),
		Completed: completed,
		Pending:   len(collection) - completed,
	}
}

// State is everything the presentation layer needs to render one frame.
type State struct {
	Notes        []notes.Note
	Search       string
	Status       StatusFilter
	Loading      bool
	ErrorMessage string
	Counts       Counts
}
