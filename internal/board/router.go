// Package board partitions the task list into the four status lanes and
// handles moving cards between them.
package board

import (
	"strings"

	"github.com/nhle/kanban/internal/model"
)

// Search returns the tasks whose title or description contains query,
// ignoring case. A blank query matches every task.
func Search(tasks []model.Task, query string) []model.Task {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return tasks
	}
	out := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if strings.Contains(strings.ToLower(t.Title), q) ||
			strings.Contains(strings.ToLower(t.Description), q) {
			out = append(out, t)
		}
	}
	return out
}

// LaneOf returns the lane a task is shown in. Statuses outside the four
// lanes fall back to the todo lane.
func LaneOf(t model.Task) model.Status {
	if t.Status.Valid() {
		return t.Status
	}
	return model.StatusTodo
}

// Lane returns the tasks matching query that belong to lane, in cache order.
func Lane(tasks []model.Task, lane model.Status, query string) []model.Task {
	var out []model.Task
	for _, t := range Search(tasks, query) {
		if LaneOf(t) == lane {
			out = append(out, t)
		}
	}
	return out
}

// Partition returns every lane's tasks for query.
func Partition(tasks []model.Task, query string) map[model.Status][]model.Task {
	lanes := make(map[model.Status][]model.Task, 4)
	for _, l := range model.Lanes() {
		lanes[l] = nil
	}
	for _, t := range Search(tasks, query) {
		l := LaneOf(t)
		lanes[l] = append(lanes[l], t)
	}
	return lanes
}

// Neighbor returns the lane delta steps from lane, clamped to the board.
func Neighbor(lane model.Status, delta int) model.Status {
	lanes := model.Lanes()
	idx := 0
	for i, l := range lanes {
		if l == lane {
			idx = i
		}
	}
	idx += delta
	if idx < 0 {
		idx = 0
	}
	if idx >= len(lanes) {
		idx = len(lanes) - 1
	}
	return lanes[idx]
}
