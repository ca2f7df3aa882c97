// Package presenter renders derived note views and store notifications for the terminal.
package presenter

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/MarcoPoloResearchLab/notepad/internal/notes"
	"github.com/MarcoPoloResearchLab/notepad/internal/store"
	"github.com/MarcoPoloResearchLab/notepad/internal/view"
	"github.com/charmbracelet/lipgloss"
)

const timestampLayout = "2006-01-02 15:04"

var (
	colorAccent  = lipgloss.Color("#20B9B4")
	colorBorder  = lipgloss.Color("#16858E")
	colorDone    = lipgloss.Color("#2CD7C7")
	colorWarning = lipgloss.Color("#F4D03F")
	colorError   = lipgloss.Color("#E74C3C")
	colorMuted   = lipgloss.Color("#5C7A84")
)

type styles struct {
	header      lipgloss.Style
	muted       lipgloss.Style
	card        lipgloss.Style
	doneCard    lipgloss.Style
	title       lipgloss.Style
	doneTitle   lipgloss.Style
	errorBox    lipgloss.Style
	toast       lipgloss.Style
	toastDanger lipgloss.Style
}

func newStyles(renderer *lipgloss.Renderer) styles {
	return styles{
		header: renderer.NewStyle().Bold(true).Foreground(colorAccent),
		muted:  renderer.NewStyle().Foreground(colorMuted),
		card: renderer.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1),
		doneCard: renderer.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorDone).
			Padding(0, 1),
		title:     renderer.NewStyle().Bold(true),
		doneTitle: renderer.NewStyle().Bold(true).Strikethrough(true).Foreground(colorMuted),
		errorBox: renderer.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorError).
			Foreground(colorError).
			Padding(0, 1),
		toast:       renderer.NewStyle().Foreground(colorDone),
		toastDanger: renderer.NewStyle().Foreground(colorWarning),
	}
}

// Renderer writes view state to a terminal.
type Renderer struct {
	out    io.Writer
	styles styles
}

func NewRenderer(out io.Writer) *Renderer {
	return &Renderer{out: out, styles: newStyles(lipgloss.NewRenderer(out))}
}

// Render prints the counts header followed by the filtered notes, or the
// loading, error and empty states.
func (r *Renderer) Render(state view.State) error {
	var builder strings.Builder

	switch {
	case state.Loading:
		builder.WriteString(r.styles.muted.Render("Loading notes..."))
		builder.WriteString("\n")
	case state.ErrorMessage != "":
		builder.WriteString(r.styles.errorBox.Render("Error: " + state.ErrorMessage + "\nRun the command again to retry."))
		builder.WriteString("\n")
	default:
		builder.WriteString(r.header(state))
		builder.WriteString("\n")
		if len(state.Notes) == 0 {
			builder.WriteString(r.styles.muted.Render(emptyMessage(state)))
			builder.WriteString("\n")
		}
		for _, note := range state.Notes {
			builder.WriteString(r.card(note))
			builder.WriteString("\n")
		}
	}

	_, err := io.WriteString(r.out, builder.String())
	return err
}

// RenderNote prints a single note card.
func (r *Renderer) RenderNote(note notes.Note) error {
	_, err := io.WriteString(r.out, r.card(note)+"\n")
	return err
}

func (r *Renderer) header(state view.State) string {
	counts := fmt.Sprintf("%d total · %d completed · %d pending", state.Counts.Total, state.Counts.Completed, state.Counts.Pending)
	line := r.styles.header.Render("Notes") + "  " + r.styles.muted.Render(counts)
	var filters []string
	if strings.TrimSpace(state.Search) != "" {
		filters = append(filters, fmt.Sprintf("search %q", state.Search))
	}
	if state.Status != "" && state.Status != view.StatusAll {
		filters = append(filters, "status "+state.Status.String())
	}
	if len(filters) > 0 {
		line += "\n" + r.styles.muted.Render("Showing "+strings.Join(filters, ", "))
	}
	return line
}

func (r *Renderer) card(note notes.Note) string {
	marker := "[ ]"
	titleStyle := r.styles.title
	cardStyle := r.styles.card
	if note.Completed {
		marker = "[x]"
		titleStyle = r.styles.doneTitle
		cardStyle = r.styles.doneCard
	}

	body := lipgloss.JoinVertical(lipgloss.Left,
		marker+" "+titleStyle.Render(note.Title),
		note.Content,
		r.styles.muted.Render(fmt.Sprintf("%s · updated %s", note.ID, note.UpdatedAt.Local().Format(timestampLayout))),
	)
	return cardStyle.Render(body)
}

func emptyMessage(state view.State) string {
	if state.Counts.Total == 0 {
		return "No notes yet. Add one with `notepad add`."
	}
	return "No notes match the current filters."
}

// ToastNotifier prints store notifications as one-line toasts.
type ToastNotifier struct {
	mu     sync.Mutex
	out    io.Writer
	styles styles
}

func NewToastNotifier(out io.Writer) *ToastNotifier {
	return &ToastNotifier{out: out, styles: newStyles(lipgloss.NewRenderer(out))}
}

func (n *ToastNotifier) Notify(notification store.Notification) {
	style := n.styles.toast
	icon := "✓"
	if notification.Destructive {
		style = n.styles.toastDanger
		icon = "!"
	}
	line := style.Render(icon + " " + notification.Title)
	if notification.Description != "" {
		line += " " + n.styles.muted.Render(notification.Description)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	_, _ = io.WriteString(n.out, line+"\n")
}
