package main

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/spf13/cobra"

	"github.com/nhle/kanban/internal/model"
)

// errSeeded is returned when the board already has tasks.
var errSeeded = errors.New("board already has tasks, use --force to seed anyway")

type seedTask struct {
	title    string
	desc     string
	category string
	priority model.Priority
	status   model.Status
	dueDays  int
	subtasks []model.Subtask
	assign   []int
}

var seedContacts = []struct{ name, email, phone string }{
	{"Anton Mayer", "anton@example.com", "+49 1111 111 11 1"},
	{"Benedikt Ziegler", "benedikt@example.com", "+49 2222 222 22 2"},
	{"David Eisenberg", "davidberg@example.com", "+49 3333 333 33 3"},
	{"Eva Fischer", "eva@example.com", "+49 4444 444 44 4"},
	{"Emmanuel Mauer", "emmanuelma@example.com", "+49 5555 555 55 5"},
}

var seedTasks = []seedTask{
	{
		title:    "Kochwelt page and recipe recommender",
		desc:     "Build start page with recipe recommendation.",
		category: "User Story",
		priority: model.PriorityMedium,
		status:   model.StatusTodo,
		dueDays:  14,
		subtasks: []model.Subtask{
			{Title: "Implement recipe recommendation"},
			{Title: "Start page layout"},
		},
		assign: []int{0, 3},
	},
	{
		title:    "Fix contact list sorting",
		desc:     "Names with umlauts are listed out of order.",
		category: "Technical Task",
		priority: model.PriorityUrgent,
		status:   model.StatusInProgress,
		dueDays:  2,
		subtasks: []model.Subtask{
			{Title: "Reproduce", Completed: true},
			{Title: "Use locale-aware collation"},
		},
		assign: []int{1},
	},
	{
		title:    "Board drag and drop review",
		desc:     "Walk through the drag flow with the team.",
		category: "User Story",
		priority: model.PriorityLow,
		status:   model.StatusAwaitFeedback,
		dueDays:  7,
		assign:   []int{2, 4},
	},
	{
		title:    "Set up store backups",
		category: "Technical Task",
		priority: model.PriorityMedium,
		status:   model.StatusDone,
		dueDays:  -3,
		subtasks: []model.Subtask{
			{Title: "Nightly export", Completed: true},
		},
	},
}

func seedCmd(flags *globalFlags) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill the store with demo contacts and tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, closeFn, err := headless(ctx, flags, true)
			if err != nil {
				return err
			}
			defer closeFn()

			existing, err := svc.tasks.FetchAll(ctx)
			if err != nil {
				return err
			}
			if len(existing) > 0 && !force {
				return errSeeded
			}

			rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
			ids := make([]string, 0, len(seedContacts))
			for _, sc := range seedContacts {
				ct := model.NewContact(sc.name, sc.email, rnd)
				ct.Phone = sc.phone
				created, err := svc.contacts.Create(ctx, ct)
				if err != nil {
					return err
				}
				ids = append(ids, created.ID)
			}

			now := time.Now()
			for _, st := range seedTasks {
				t := model.NewTask()
				t.Title = st.title
				t.Description = st.desc
				t.Category = st.category
				t.Priority = st.priority
				t.Status = st.status
				t.DueDate = now.AddDate(0, 0, st.dueDays).UnixMilli()
				t.Subtasks = append(t.Subtasks, st.subtasks...)
				for _, i := range st.assign {
					t.AssignedTo = append(t.AssignedTo, ids[i])
				}
				if _, err := svc.tasks.Create(ctx, t); err != nil {
					return err
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d contacts and %d tasks\n", len(ids), len(seedTasks))
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Seed even when tasks already exist")
	return cmd
}
