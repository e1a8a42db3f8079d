package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/kanban/internal/board"
	"github.com/nhle/kanban/internal/model"
	"github.com/nhle/kanban/internal/notify"
	"github.com/nhle/kanban/internal/store"
)

// headless opens the store and wires the services with a log notifier
// for the non-interactive commands.
func headless(ctx context.Context, flags *globalFlags, autoConfirm bool) (*services, func(), error) {
	cfg, err := loadConfig(*flags)
	if err != nil {
		return nil, nil, err
	}
	if _, err := setupLogging(cfg, false); err != nil {
		return nil, nil, err
	}
	docs, err := openStore(ctx, cfg.Store)
	if err != nil {
		return nil, nil, fmt.Errorf("opening store: %w", err)
	}
	svc := wire(cfg, docs, notify.LogNotifier{AutoConfirm: autoConfirm}, nil)
	return svc, func() { _ = docs.Close() }, nil
}

func listCmd(flags *globalFlags) *cobra.Command {
	var query string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the board lanes",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, closeFn, err := headless(ctx, flags, false)
			if err != nil {
				return err
			}
			defer closeFn()

			// Assignees resolve through the store. Fetching contacts here
			// would prune guests while nobody is signed in.
			tasks, err := svc.tasks.FetchAll(ctx)
			if err != nil {
				return err
			}
			printBoard(cmd.OutOrStdout(), tasks, query)
			return nil
		},
	}
	cmd.Flags().StringVarP(&query, "search", "s", "", "Only show tasks matching this text")
	return cmd
}

func printBoard(w io.Writer, tasks []model.Task, query string) {
	lanes := board.Partition(tasks, query)
	for _, lane := range model.Lanes() {
		fmt.Fprintf(w, "%s (%d)\n", lane.Label(), len(lanes[lane]))
		for _, t := range lanes[lane] {
			line := fmt.Sprintf("  %s  %s [%s]", t.ID, t.Title, t.Priority)
			if done, total := t.SubtaskProgress(); total > 0 {
				line += fmt.Sprintf(" %d/%d", done, total)
			}
			if len(t.Assignees) > 0 {
				initials := make([]string, len(t.Assignees))
				for i, c := range t.Assignees {
					initials[i] = c.Initials()
				}
				line += " " + strings.Join(initials, ",")
			}
			fmt.Fprintln(w, line)
		}
	}
}

func moveCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "move <task-id> <status>",
		Short: "Move a task to another lane",
		Long: `Move a task to another lane.

Status is one of: todo, inProgress, awaitFeedback, done.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status := model.Status(args[1])
			if !status.Valid() {
				return fmt.Errorf("unknown status %q", args[1])
			}

			ctx := cmd.Context()
			svc, closeFn, err := headless(ctx, flags, false)
			if err != nil {
				return err
			}
			defer closeFn()

			if _, err := svc.tasks.FetchAll(ctx); err != nil {
				return err
			}
			if _, ok := svc.tasks.Get(args[0]); !ok {
				return fmt.Errorf("task %s: %w", args[0], store.ErrNotFound)
			}
			if err := svc.engine.MoveStatus(ctx, args[0], status); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "moved %s to %s\n", args[0], status.Label())
			return nil
		},
	}
}
