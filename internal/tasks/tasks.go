// Package tasks owns Task persistence and the append-only status, priority
// and remark histories attached to each task.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"time-tracking-api/internal/apperr"
	"time-tracking-api/internal/models"
	"time-tracking-api/internal/narrative"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// deadlineUrgency is the remaining time under which an ongoing task jumps
// ahead of priority ordering.
const deadlineUrgency = 5 * time.Minute

const priorityOrder = `CASE priority WHEN 'Urgent' THEN 4 WHEN 'High' THEN 3 WHEN 'Medium' THEN 2 WHEN 'Low' THEN 1 ELSE 0 END DESC`

// Recomputer rebuilds a user's stored daily summary for one day.
type Recomputer interface {
	Recompute(ctx context.Context, userID, day string) (*models.DailySummary, error)
}

// Service implements task CRUD for one store. When Summaries is set, Delete
// refreshes the stored summaries of the days the task appeared in.
type Service struct {
	db        *gorm.DB
	Summaries Recomputer
	Now       func() time.Time
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db, Now: time.Now}
}

type CreateInput struct {
	Title       string
	Description string
	Priority    models.TaskPriority
	Deadline    *time.Time
}

// UpdateInput carries optional changes; nil fields are left untouched.
type UpdateInput struct {
	Title       *string
	Description *string
	Status      *models.TaskStatus
	Priority    *models.TaskPriority
	Deadline    *time.Time
	Remark      *string
}

type ListFilter struct {
	Status   models.TaskStatus
	Priority models.TaskPriority
	SortBy   string // priority, deadline or empty for newest first
}

// Create stores a new Pending task and seeds both histories with its initial
// status and priority.
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (*models.Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperr.Validation("title is required")
	}
	priority := in.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !priority.Valid() {
		return nil, apperr.Validation("invalid priority %q", priority)
	}

	now := s.Now().UTC()
	task := models.Task{
		ID:              uuid.NewString(),
		Title:           title,
		Description:     strings.TrimSpace(in.Description),
		Status:          models.StatusPending,
		Priority:        priority,
		Deadline:        in.Deadline,
		UserID:          userID,
		StatusHistory:   []models.StatusChange{{Status: models.StatusPending, ChangedAt: now}},
		PriorityHistory: []models.PriorityChange{{Priority: priority, ChangedAt: now}},
		Remarks:         []models.Remark{},
		CreatedDay:      models.DayKey(now),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.db.WithContext(ctx).Create(&task).Error; err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return &task, nil
}

// CreateFromPrompt drafts a title and description from free-form input and
// stores the result as a new task.
func (s *Service) CreateFromPrompt(ctx context.Context, userID, userInput string, d narrative.Drafter) (*models.Task, narrative.Draft, error) {
	if strings.TrimSpace(userInput) == "" {
		return nil, narrative.Draft{}, apperr.Validation("please provide user input")
	}
	draft, err := d.Draft(ctx, userInput)
	if err != nil {
		return nil, narrative.Draft{}, apperr.Upstream(err, "task draft generation failed")
	}
	task, err := s.Create(ctx, userID, CreateInput{Title: draft.Title, Description: draft.Description})
	if err != nil {
		return nil, narrative.Draft{}, err
	}
	return task, draft, nil
}

// List returns the user's tasks, optionally filtered by status and priority.
func (s *Service) List(ctx context.Context, userID string, f ListFilter) ([]models.Task, error) {
	query := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if f.Status != "" {
		if !f.Status.Valid() {
			return nil, apperr.Validation("invalid status %q", f.Status)
		}
		query = query.Where("status = ?", f.Status)
	}
	if f.Priority != "" {
		if !f.Priority.Valid() {
			return nil, apperr.Validation("invalid priority %q", f.Priority)
		}
		query = query.Where("priority = ?", f.Priority)
	}

	switch f.SortBy {
	case "priority":
		query = query.Order(priorityOrder).Order("created_at desc")
	case "deadline":
		query = query.Order("deadline IS NULL").Order("deadline asc")
	default:
		query = query.Order("created_at desc")
	}

	tasks := []models.Task{}
	if err := query.Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// Ongoing returns tasks that are neither Completed nor Cancelled. Tasks whose
// deadline is less than five minutes away (or already passed) come first,
// soonest first; the rest are ordered by priority.
func (s *Service) Ongoing(ctx context.Context, userID string) ([]models.Task, error) {
	tasks := []models.Task{}
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND status NOT IN ?", userID, []models.TaskStatus{models.StatusCompleted, models.StatusCancelled}).
		Order("created_at desc").
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("list ongoing tasks: %w", err)
	}

	now := s.Now()
	remaining := func(t models.Task) (time.Duration, bool) {
		if t.Deadline == nil {
			return 0, false
		}
		left := t.Deadline.Sub(now)
		return left, left < deadlineUrgency
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		li, ui := remaining(tasks[i])
		lj, uj := remaining(tasks[j])
		switch {
		case ui && uj:
			return li < lj
		case ui != uj:
			return ui
		}
		return tasks[i].Priority.Rank() > tasks[j].Priority.Rank()
	})
	return tasks, nil
}

// Get returns one task with its histories in insertion order.
func (s *Service) Get(ctx context.Context, taskID, userID string) (*models.Task, error) {
	if _, err := Load(s.db.WithContext(ctx), taskID, userID); err != nil {
		return nil, err
	}
	var task models.Task
	if err := withHistory(s.db.WithContext(ctx)).First(&task, "id = ?", taskID).Error; err != nil {
		return nil, fmt.Errorf("load task history: %w", err)
	}
	return &task, nil
}

// Update applies the given changes. Status and priority changes append to
// their histories; a remark is appended to the remarks.
func (s *Service) Update(ctx context.Context, taskID, userID string, in UpdateInput) (*models.Task, error) {
	if in.Status != nil && !in.Status.Valid() {
		return nil, apperr.Validation("invalid status %q", *in.Status)
	}
	if in.Priority != nil && !in.Priority.Valid() {
		return nil, apperr.Validation("invalid priority %q", *in.Priority)
	}
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		return nil, apperr.Validation("title cannot be empty")
	}

	now := s.Now().UTC()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		task, err := Load(tx, taskID, userID)
		if err != nil {
			return err
		}

		fields := map[string]any{}
		if in.Title != nil {
			fields["title"] = strings.TrimSpace(*in.Title)
		}
		if in.Description != nil {
			fields["description"] = strings.TrimSpace(*in.Description)
		}
		if in.Deadline != nil {
			fields["deadline"] = *in.Deadline
		}
		if len(fields) > 0 {
			fields["updated_at"] = now
			if err := tx.Model(task).Updates(fields).Error; err != nil {
				return fmt.Errorf("update task: %w", err)
			}
		}
		if in.Status != nil {
			if err := SetStatus(tx, task, *in.Status, now); err != nil {
				return err
			}
		}
		if in.Priority != nil {
			if err := SetPriority(tx, task, *in.Priority, now); err != nil {
				return err
			}
		}
		if in.Remark != nil && strings.TrimSpace(*in.Remark) != "" {
			if err := appendRemark(tx, task.ID, *in.Remark, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, taskID, userID)
}

// UpdateStatus sets the task status directly. This is the only way to reach
// Completed or Cancelled.
func (s *Service) UpdateStatus(ctx context.Context, taskID, userID string, status models.TaskStatus) (*models.Task, error) {
	if status == "" {
		return nil, apperr.Validation("please provide a status")
	}
	return s.Update(ctx, taskID, userID, UpdateInput{Status: &status})
}

func (s *Service) UpdatePriority(ctx context.Context, taskID, userID string, priority models.TaskPriority) (*models.Task, error) {
	if priority == "" {
		return nil, apperr.Validation("please provide a priority")
	}
	return s.Update(ctx, taskID, userID, UpdateInput{Priority: &priority})
}

func (s *Service) AddRemark(ctx context.Context, taskID, userID, text string) (*models.Task, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperr.Validation("please provide remark text")
	}
	return s.Update(ctx, taskID, userID, UpdateInput{Remark: &text})
}

// Delete removes the task together with its time logs and histories, then
// refreshes any stored summary that counted it.
func (s *Service) Delete(ctx context.Context, taskID, userID string) error {
	var days []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		task, err := Load(tx, taskID, userID)
		if err != nil {
			return err
		}
		if days, err = summarizedDays(tx, task); err != nil {
			return err
		}
		for _, child := range []any{&models.TimeLog{}, &models.StatusChange{}, &models.PriorityChange{}, &models.Remark{}} {
			if err := tx.Where("task_id = ?", task.ID).Delete(child).Error; err != nil {
				return fmt.Errorf("delete task children: %w", err)
			}
		}
		if err := tx.Delete(task).Error; err != nil {
			return fmt.Errorf("delete task: %w", err)
		}
		return nil
	})
	if err != nil || s.Summaries == nil {
		return err
	}
	for _, day := range days {
		if _, err := s.Summaries.Recompute(ctx, userID, day); err != nil {
			return fmt.Errorf("update daily summary: %w", err)
		}
	}
	return nil
}

// summarizedDays lists the days the task contributed to that already have a
// stored summary. Days without one are left alone.
func summarizedDays(tx *gorm.DB, task *models.Task) ([]string, error) {
	var logDays []string
	if err := tx.Model(&models.TimeLog{}).Where("task_id = ?", task.ID).Distinct().Pluck("date", &logDays).Error; err != nil {
		return nil, fmt.Errorf("collect time log days: %w", err)
	}
	candidates := append(logDays, task.CreatedDay)

	var days []string
	err := tx.Model(&models.DailySummary{}).
		Where("user_id = ? AND date IN ?", task.UserID, candidates).
		Order("date asc").
		Pluck("date", &days).Error
	if err != nil {
		return nil, fmt.Errorf("collect summary days: %w", err)
	}
	return days, nil
}

// Load fetches a task and checks that userID owns it.
func Load(db *gorm.DB, taskID, userID string) (*models.Task, error) {
	var task models.Task
	if err := db.First(&task, "id = ?", taskID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("task not found")
		}
		return nil, fmt.Errorf("fetch task: %w", err)
	}
	if task.UserID != userID {
		return nil, apperr.Forbidden("not authorized to access this task")
	}
	return &task, nil
}

// SetStatus moves task to status and appends a history entry. Setting the
// current status again is a no-op.
func SetStatus(tx *gorm.DB, task *models.Task, status models.TaskStatus, at time.Time) error {
	if task.Status == status {
		return nil
	}
	if err := tx.Model(task).Updates(map[string]any{"status": status, "updated_at": at}).Error; err != nil {
		return fmt.Errorf("update task status: %w", err)
	}
	entry := models.StatusChange{TaskID: task.ID, Status: status, ChangedAt: at}
	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("append status history: %w", err)
	}
	task.Status = status
	task.StatusHistory = append(task.StatusHistory, entry)
	return nil
}

// SetPriority mirrors SetStatus for the priority history.
func SetPriority(tx *gorm.DB, task *models.Task, priority models.TaskPriority, at time.Time) error {
	if task.Priority == priority {
		return nil
	}
	if err := tx.Model(task).Updates(map[string]any{"priority": priority, "updated_at": at}).Error; err != nil {
		return fmt.Errorf("update task priority: %w", err)
	}
	entry := models.PriorityChange{TaskID: task.ID, Priority: priority, ChangedAt: at}
	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("append priority history: %w", err)
	}
	task.Priority = priority
	task.PriorityHistory = append(task.PriorityHistory, entry)
	return nil
}

func appendRemark(tx *gorm.DB, taskID, text string, at time.Time) error {
	remark := models.Remark{TaskID: taskID, Text: strings.TrimSpace(text), CreatedAt: at}
	if err := tx.Create(&remark).Error; err != nil {
		return fmt.Errorf("append remark: %w", err)
	}
	return nil
}

func withHistory(db *gorm.DB) *gorm.DB {
	byID := func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }
	return db.Preload("StatusHistory", byID).Preload("PriorityHistory", byID).Preload("Remarks", byID)
}
