package models

import "time"

// DailySummary is the per-user, per-day aggregate of tracked work.
type DailySummary struct {
	ID              string        `json:"id" gorm:"primaryKey"`
	UserID          string        `json:"userId" gorm:"column:user_id;not null;uniqueIndex:idx_daily_summaries_user_date"`
	Date            string        `json:"date" gorm:"not null;uniqueIndex:idx_daily_summaries_user_date"`
	Tasks           []SummaryTask `json:"tasks" gorm:"foreignKey:SummaryID"`
	TotalTimeSpent  int64         `json:"totalTimeSpent"`
	CompletedTasks  int           `json:"completedTasks"`
	InProgressTasks int           `json:"inProgressTasks"`
	PendingTasks    int           `json:"pendingTasks"`
	Summary         string        `json:"summary"`
	DailyScore      int           `json:"dailyScore"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}

// TableName specifies the table name for DailySummary Model
func (DailySummary) TableName() string {
	return "daily_summaries"
}

// SummaryTask is a per-task entry snapshotted into a DailySummary.
type SummaryTask struct {
	ID        uint       `json:"-" gorm:"primaryKey"`
	SummaryID string     `json:"-" gorm:"column:summary_id;not null;index"`
	TaskID    string     `json:"taskId" gorm:"column:task_id;not null"`
	Title     string     `json:"title"`
	TimeSpent int64      `json:"timeSpent"`
	Status    TaskStatus `json:"status"`
}

func (SummaryTask) TableName() string {
	return "daily_summary_tasks"
}

// Tally recounts the status buckets and the total from the entries. Anything
// that is neither Completed nor In Progress lands in the pending bucket.
func (s *DailySummary) Tally() {
	s.CompletedTasks, s.InProgressTasks, s.PendingTasks = 0, 0, 0
	s.TotalTimeSpent = 0
	for _, t := range s.Tasks {
		switch t.Status {
		case StatusCompleted:
			s.CompletedTasks++
		case StatusInProgress:
			s.InProgressTasks++
		default:
			s.PendingTasks++
		}
		s.TotalTimeSpent += t.TimeSpent
	}
}
