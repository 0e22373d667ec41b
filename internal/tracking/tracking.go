// Package tracking starts, pauses and stops time logs and keeps task status
// in step with tracking activity.
package tracking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"time-tracking-api/internal/apperr"
	"time-tracking-api/internal/models"
	"time-tracking-api/internal/tasks"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Recomputer rebuilds a user's daily summary after a log is closed.
type Recomputer interface {
	Recompute(ctx context.Context, userID, day string) (*models.DailySummary, error)
}

// Engine is the time-tracking state machine. At most one log per (task, user)
// may be open; the partial unique index on time_logs backs that up when two
// starts race.
type Engine struct {
	db        *gorm.DB
	summaries Recomputer
	Now       func() time.Time
}

func NewEngine(db *gorm.DB, summaries Recomputer) *Engine {
	return &Engine{db: db, summaries: summaries, Now: time.Now}
}

// LogFilter narrows ListTimeLogs. Date selects one day bucket; From/To select
// the half-open range [From, To).
type LogFilter struct {
	TaskID string
	Date   string
	From   string
	To     string
}

// StartTracking opens a new time log on the task and moves the task to
// In Progress.
func (e *Engine) StartTracking(ctx context.Context, taskID, userID string) (*models.TimeLog, error) {
	now := e.Now().UTC()
	var out models.TimeLog
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		task, err := tasks.Load(tx, taskID, userID)
		if err != nil {
			return err
		}
		if task.Status.Closed() {
			return apperr.Conflict("cannot track time on a %s task", strings.ToLower(string(task.Status)))
		}

		var open int64
		err = tx.Model(&models.TimeLog{}).
			Where("task_id = ? AND user_id = ? AND is_active = ?", taskID, userID, true).
			Count(&open).Error
		if err != nil {
			return fmt.Errorf("check active time log: %w", err)
		}
		if open > 0 {
			return apperr.Conflict("time tracking is already active for this task")
		}

		out = models.TimeLog{
			ID:        uuid.NewString(),
			TaskID:    taskID,
			UserID:    userID,
			StartTime: now,
			Date:      models.DayKey(now),
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.Create(&out).Error; err != nil {
			if isUniqueViolation(err) {
				return apperr.Conflict("time tracking is already active for this task")
			}
			return fmt.Errorf("create time log: %w", err)
		}

		if err := tasks.SetStatus(tx, task, models.StatusInProgress, now); err != nil {
			return err
		}
		out.Task = task.Brief()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// StopTracking closes the log and refreshes the daily summary of its day.
func (e *Engine) StopTracking(ctx context.Context, timeLogID, userID string) (*models.TimeLog, error) {
	return e.finish(ctx, timeLogID, userID, false)
}

// PauseTracking closes the log like StopTracking and additionally moves an
// In Progress task to On Hold. Resuming means starting a new log.
func (e *Engine) PauseTracking(ctx context.Context, timeLogID, userID string) (*models.TimeLog, error) {
	return e.finish(ctx, timeLogID, userID, true)
}

func (e *Engine) finish(ctx context.Context, timeLogID, userID string, pause bool) (*models.TimeLog, error) {
	now := e.Now().UTC()
	var out models.TimeLog
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		l, err := loadLog(tx, timeLogID, userID)
		if err != nil {
			return err
		}
		if l.EndTime != nil || !l.IsActive {
			return apperr.Conflict("time tracking is already stopped for this task")
		}

		end := now
		if end.Before(l.StartTime) {
			end = l.StartTime
		}
		duration := end.Sub(l.StartTime).Milliseconds()

		// Conditional on end_time so a concurrent stop cannot close it twice.
		res := tx.Model(&models.TimeLog{}).
			Where("id = ? AND end_time IS NULL", l.ID).
			Updates(map[string]any{"end_time": end, "duration": duration, "is_active": false, "updated_at": now})
		if res.Error != nil {
			return fmt.Errorf("close time log: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.Conflict("time tracking is already stopped for this task")
		}
		l.EndTime, l.Duration, l.IsActive, l.UpdatedAt = &end, &duration, false, now

		var task models.Task
		err = tx.First(&task, "id = ?", l.TaskID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
		case err != nil:
			return fmt.Errorf("fetch task: %w", err)
		default:
			if pause && task.Status == models.StatusInProgress {
				if err := tasks.SetStatus(tx, &task, models.StatusOnHold, now); err != nil {
					return err
				}
			}
			l.Task = task.Brief()
		}
		out = *l
		return nil
	})
	if err != nil {
		return nil, err
	}

	if _, err := e.summaries.Recompute(ctx, userID, out.Date); err != nil {
		return nil, fmt.Errorf("update daily summary: %w", err)
	}
	return &out, nil
}

// GetActiveLogs returns every open log of the user, oldest first.
func (e *Engine) GetActiveLogs(ctx context.Context, userID string) ([]models.TimeLog, error) {
	db := e.db.WithContext(ctx)
	logs := []models.TimeLog{}
	err := db.Where("user_id = ? AND is_active = ?", userID, true).Order("start_time asc").Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("list active time logs: %w", err)
	}
	return logs, attachTasks(db, logs)
}

// ListTimeLogs returns the user's logs, newest first.
func (e *Engine) ListTimeLogs(ctx context.Context, userID string, f LogFilter) ([]models.TimeLog, error) {
	db := e.db.WithContext(ctx)
	query := db.Where("user_id = ?", userID)
	if f.TaskID != "" {
		query = query.Where("task_id = ?", f.TaskID)
	}
	switch {
	case f.Date != "":
		day, err := models.ParseDay(f.Date)
		if err != nil {
			return nil, apperr.Validation("invalid date")
		}
		query = query.Where("date = ?", day)
	case f.From != "" && f.To != "":
		from, err := models.ParseDay(f.From)
		if err != nil {
			return nil, apperr.Validation("invalid startDate")
		}
		to, err := models.ParseDay(f.To)
		if err != nil {
			return nil, apperr.Validation("invalid endDate")
		}
		query = query.Where("date >= ? AND date < ?", from, to)
	}

	logs := []models.TimeLog{}
	if err := query.Order("start_time desc").Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("list time logs: %w", err)
	}
	return logs, attachTasks(db, logs)
}

// TaskTimeLogs returns the logs of one task together with the total tracked
// milliseconds.
func (e *Engine) TaskTimeLogs(ctx context.Context, taskID, userID string) ([]models.TimeLog, int64, error) {
	db := e.db.WithContext(ctx)
	if _, err := tasks.Load(db, taskID, userID); err != nil {
		return nil, 0, err
	}
	logs := []models.TimeLog{}
	if err := db.Where("task_id = ? AND user_id = ?", taskID, userID).Order("start_time desc").Find(&logs).Error; err != nil {
		return nil, 0, fmt.Errorf("list task time logs: %w", err)
	}
	var total int64
	for _, l := range logs {
		total += l.Spent()
	}
	return logs, total, nil
}

func loadLog(db *gorm.DB, id, userID string) (*models.TimeLog, error) {
	var l models.TimeLog
	if err := db.First(&l, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("time log not found")
		}
		return nil, fmt.Errorf("fetch time log: %w", err)
	}
	if l.UserID != userID {
		return nil, apperr.Forbidden("not authorized to access this time log")
	}
	return &l, nil
}

func attachTasks(db *gorm.DB, logs []models.TimeLog) error {
	if len(logs) == 0 {
		return nil
	}
	ids := make([]string, 0, len(logs))
	for _, l := range logs {
		ids = append(ids, l.TaskID)
	}
	var found []models.Task
	if err := db.Select("id", "title", "status", "priority").Where("id IN ?", ids).Find(&found).Error; err != nil {
		return fmt.Errorf("load log tasks: %w", err)
	}
	byID := make(map[string]models.Task, len(found))
	for _, t := range found {
		byID[t.ID] = t
	}
	for i := range logs {
		if t, ok := byID[logs[i].TaskID]; ok {
			logs[i].Task = t.Brief()
		}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed")
}
