package models

import (
	"time"
)

// TaskStatus represents the status of a task
type TaskStatus string

const (
	StatusPending    TaskStatus = "Pending"
	StatusInProgress TaskStatus = "In Progress"
	StatusCompleted  TaskStatus = "Completed"
	StatusOnHold     TaskStatus = "On Hold"
	StatusCancelled  TaskStatus = "Cancelled"
)

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusOnHold, StatusCancelled:
		return true
	}
	return false
}

// Closed reports whether the task no longer accepts time tracking.
func (s TaskStatus) Closed() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// TaskPriority represents the priority of a task
type TaskPriority string

const (
	PriorityLow    TaskPriority = "Low"
	PriorityMedium TaskPriority = "Medium"
	PriorityHigh   TaskPriority = "High"
	PriorityUrgent TaskPriority = "Urgent"
)

// Valid reports whether p is one of the known priorities.
func (p TaskPriority) Valid() bool {
	return p.Rank() > 0
}

// Rank orders priorities from Low (1) to Urgent (4); unknown values rank 0.
func (p TaskPriority) Rank() int {
	switch p {
	case PriorityLow:
		return 1
	case PriorityMedium:
		return 2
	case PriorityHigh:
		return 3
	case PriorityUrgent:
		return 4
	}
	return 0
}

// Task represents a task in the system
type Task struct {
	ID              string           `json:"id" gorm:"primaryKey"`
	Title           string           `json:"title" gorm:"not null"`
	Description     string           `json:"description"`
	Status          TaskStatus       `json:"status" gorm:"not null;default:'Pending'"`
	Priority        TaskPriority     `json:"priority" gorm:"not null;default:'Medium'"`
	Deadline        *time.Time       `json:"deadline,omitempty"`
	UserID          string           `json:"userId" gorm:"column:user_id;not null;index"`
	StatusHistory   []StatusChange   `json:"statusHistory" gorm:"foreignKey:TaskID"`
	PriorityHistory []PriorityChange `json:"priorityHistory" gorm:"foreignKey:TaskID"`
	Remarks         []Remark         `json:"remarks" gorm:"foreignKey:TaskID"`
	CreatedDay      string           `json:"-" gorm:"column:created_day;index"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

// TableName specifies the table name for Task Model
func (Task) TableName() string {
	return "tasks"
}

// StatusChange is one append-only entry of a task's status history.
type StatusChange struct {
	ID        uint       `json:"-" gorm:"primaryKey"`
	TaskID    string     `json:"-" gorm:"column:task_id;not null;index"`
	Status    TaskStatus `json:"status" gorm:"not null"`
	ChangedAt time.Time  `json:"changedAt"`
}

func (StatusChange) TableName() string {
	return "task_status_history"
}

// PriorityChange is one append-only entry of a task's priority history.
type PriorityChange struct {
	ID        uint         `json:"-" gorm:"primaryKey"`
	TaskID    string       `json:"-" gorm:"column:task_id;not null;index"`
	Priority  TaskPriority `json:"priority" gorm:"not null"`
	ChangedAt time.Time    `json:"changedAt"`
}

func (PriorityChange) TableName() string {
	return "task_priority_history"
}

// Remark is a free-text note attached to a task.
type Remark struct {
	ID        uint      `json:"-" gorm:"primaryKey"`
	TaskID    string    `json:"-" gorm:"column:task_id;not null;index"`
	Text      string    `json:"text" gorm:"not null"`
	CreatedAt time.Time `json:"createdAt"`
}

func (Remark) TableName() string {
	return "task_remarks"
}

// TaskBrief is the subset of a task embedded in time-log responses.
type TaskBrief struct {
	ID       string       `json:"id"`
	Title    string       `json:"title"`
	Status   TaskStatus   `json:"status"`
	Priority TaskPriority `json:"priority"`
}

// Brief returns the embedded view of t.
func (t Task) Brief() *TaskBrief {
	return &TaskBrief{ID: t.ID, Title: t.Title, Status: t.Status, Priority: t.Priority}
}
