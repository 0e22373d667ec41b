// Package narrative turns daily aggregate numbers into human-readable text.
// Generators are stateless collaborators; callers decide how to handle
// failures.
package narrative

import (
	"context"
	"fmt"
	"time"

	"time-tracking-api/internal/models"
)

// Input is the aggregate a narrative is generated from.
type Input struct {
	Date            string               `json:"date"`
	CompletedTasks  int                  `json:"completedTasks"`
	InProgressTasks int                  `json:"inProgressTasks"`
	PendingTasks    int                  `json:"pendingTasks"`
	TotalTimeSpent  int64                `json:"totalTimeSpent"` // milliseconds
	Tasks           []models.SummaryTask `json:"tasks"`
}

// Result is the generated text plus a note about how it was produced.
type Result struct {
	Summary string `json:"summary"`
	Message string `json:"message"`
}

// Generator produces a narrative for one day.
type Generator interface {
	Generate(ctx context.Context, in Input) (Result, error)
}

// InputFrom builds the generator input from a stored summary.
func InputFrom(s *models.DailySummary) Input {
	return Input{
		Date:            s.Date,
		CompletedTasks:  s.CompletedTasks,
		InProgressTasks: s.InProgressTasks,
		PendingTasks:    s.PendingTasks,
		TotalTimeSpent:  s.TotalTimeSpent,
		Tasks:           s.Tasks,
	}
}

// Template renders a fixed sentence from the counts. It never fails.
type Template struct{}

func (Template) Generate(_ context.Context, in Input) (Result, error) {
	h, m := hoursMinutes(in.TotalTimeSpent)
	return Result{
		Summary: fmt.Sprintf("You spent %dh %dm working today. Completed %d tasks, %d tasks in progress, and %d tasks pending.",
			h, m, in.CompletedTasks, in.InProgressTasks, in.PendingTasks),
		Message: "Generated from tracked totals.",
	}, nil
}

func hoursMinutes(ms int64) (int64, int64) {
	d := time.Duration(ms) * time.Millisecond
	return int64(d / time.Hour), int64((d % time.Hour) / time.Minute)
}
