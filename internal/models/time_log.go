package models

import "time"

// TimeLog is one tracked interval against a task. It is open while IsActive
// is true and is closed exactly once by a stop or pause.
type TimeLog struct {
	ID        string     `json:"id" gorm:"primaryKey"`
	TaskID    string     `json:"taskId" gorm:"column:task_id;not null;index"`
	UserID    string     `json:"userId" gorm:"column:user_id;not null;index:idx_time_logs_user_date"`
	StartTime time.Time  `json:"startTime" gorm:"column:start_time;not null"`
	EndTime   *time.Time `json:"endTime,omitempty" gorm:"column:end_time"`
	Duration  *int64     `json:"duration,omitempty"` // milliseconds
	Date      string     `json:"date" gorm:"not null;index:idx_time_logs_user_date"`
	IsActive  bool       `json:"isActive" gorm:"column:is_active;not null"`
	Task      *TaskBrief `json:"task,omitempty" gorm:"-"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// TableName specifies the table name for TimeLog Model
func (TimeLog) TableName() string {
	return "time_logs"
}

// Spent returns the tracked milliseconds of the log. It prefers the stored
// duration and falls back to EndTime - StartTime; open logs count as zero.
func (l TimeLog) Spent() int64 {
	if l.Duration != nil {
		return *l.Duration
	}
	if l.EndTime != nil {
		return l.EndTime.Sub(l.StartTime).Milliseconds()
	}
	return 0
}
