package main

import (
	"errors"
	"strings"

	"github.com/MarcoPoloResearchLab/notepad/internal/view"
	"github.com/spf13/cobra"
)

var (
	errTitleAndContentRequired = errors.New("title and content are required")
	errNoteIDRequired          = errors.New("note id is required")
)

func newListCommand(newSession sessionFactory) *cobra.Command {
	var search string
	var statusValue string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List notes, optionally filtered by text and status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			statusFilter, err := view.ParseStatusFilter(statusValue)
			if err != nil {
				return err
			}
			session, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer session.close()

			if err := session.load(cmd.Context()); err != nil {
				return err
			}
			return session.renderer.Render(session.store.Snapshot(search, statusFilter))
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "Case-insensitive text to find in titles and contents")
	cmd.Flags().StringVar(&statusValue, "status", string(view.StatusAll), "Status filter: all, completed or pending")
	return cmd
}

func newAddCommand(newSession sessionFactory) *cobra.Command {
	var title string
	var content string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a note",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !filled(title, content) {
				return errTitleAndContentRequired
			}
			session, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer session.close()

			if err := session.load(cmd.Context()); err != nil {
				return err
			}
			created, err := session.store.Add(cmd.Context(), title, content)
			if err != nil {
				return err
			}
			return session.renderer.RenderNote(created)
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "Note title")
	cmd.Flags().StringVarP(&content, "content", "c", "", "Note content")
	return cmd
}

func newEditCommand(newSession sessionFactory) *cobra.Command {
	var title string
	var content string

	cmd := &cobra.Command{
		Use:   "edit <note-id>",
		Short: "Replace a note's title and content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			noteID, err := noteIDArg(args)
			if err != nil {
				return err
			}
			if !filled(title, content) {
				return errTitleAndContentRequired
			}
			session, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer session.close()

			if err := session.load(cmd.Context()); err != nil {
				return err
			}
			updated, err := session.store.Edit(cmd.Context(), noteID, title, content)
			if err != nil {
				return err
			}
			return session.renderer.RenderNote(updated)
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "New note title")
	cmd.Flags().StringVarP(&content, "content", "c", "", "New note content")
	return cmd
}

func newDeleteCommand(newSession sessionFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <note-id>",
		Short: "Delete a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			noteID, err := noteIDArg(args)
			if err != nil {
				return err
			}
			session, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer session.close()

			if err := session.load(cmd.Context()); err != nil {
				return err
			}
			return session.store.Delete(cmd.Context(), noteID)
		},
	}
}

func newCompletionCommand(newSession sessionFactory, use, short string, completed bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <note-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			noteID, err := noteIDArg(args)
			if err != nil {
				return err
			}
			session, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer session.close()

			if err := session.load(cmd.Context()); err != nil {
				return err
			}
			updated, err := session.store.SetCompleted(cmd.Context(), noteID, completed)
			if err != nil {
				return err
			}
			return session.renderer.RenderNote(updated)
		},
	}
}

func filled(title, content string) bool {
	return strings.TrimSpace(title) != "" && strings.TrimSpace(content) != ""
}

func noteIDArg(args []string) (string, error) {
	noteID := strings.TrimSpace(args[0])
	if noteID == "" {
		return "", errNoteIDRequired
	}
	return noteID, nil
}
