// Package summary derives DailySummary snapshots from tasks and time logs and
// attaches generated narratives to them.
package summary

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"time-tracking-api/internal/apperr"
	"time-tracking-api/internal/models"
	"time-tracking-api/internal/narrative"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service is the daily aggregation engine.
type Service struct {
	db        *gorm.DB
	generator narrative.Generator
	Now       func() time.Time
}

// NewService returns an engine writing to db. A nil generator falls back to
// the template narrative.
func NewService(db *gorm.DB, generator narrative.Generator) *Service {
	if generator == nil {
		generator = narrative.Template{}
	}
	return &Service{db: db, generator: generator, Now: time.Now}
}

// Recompute rebuilds the summary of userID for day (YYYY-MM-DD) from the
// current tasks and time logs and stores it atomically. A day's tasks are
// those with a time log bucketed on that day plus those created on it.
// Repeating the call without intervening changes yields the same snapshot.
func (s *Service) Recompute(ctx context.Context, userID, day string) (*models.DailySummary, error) {
	key, err := models.ParseDay(day)
	if err != nil {
		return nil, apperr.Validation("invalid date format, use YYYY-MM-DD")
	}

	var out models.DailySummary
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.Now().UTC()

		// Upsert first: the write takes the store's lock before anything is
		// read, so recomputes of the same day run one after another.
		seed := models.DailySummary{ID: uuid.NewString(), UserID: userID, Date: key, CreatedAt: now, UpdatedAt: now}
		err := tx.Omit(clause.Associations).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "date"}},
			DoUpdates: clause.Assignments(map[string]any{"updated_at": now}),
		}).Create(&seed).Error
		if err != nil {
			return fmt.Errorf("claim daily summary: %w", err)
		}
		if err := tx.Where("user_id = ? AND date = ?", userID, key).First(&out).Error; err != nil {
			return fmt.Errorf("load daily summary: %w", err)
		}

		entries, err := collectEntries(tx, userID, key)
		if err != nil {
			return err
		}
		for i := range entries {
			entries[i].SummaryID = out.ID
		}

		if err := tx.Where("summary_id = ?", out.ID).Delete(&models.SummaryTask{}).Error; err != nil {
			return fmt.Errorf("clear summary entries: %w", err)
		}
		if len(entries) > 0 {
			if err := tx.Create(&entries).Error; err != nil {
				return fmt.Errorf("store summary entries: %w", err)
			}
		}

		out.Tasks = entries
		out.Tally()
		out.UpdatedAt = now
		return tx.Model(&models.DailySummary{}).Where("id = ?", out.ID).Updates(map[string]any{
			"total_time_spent":  out.TotalTimeSpent,
			"completed_tasks":   out.CompletedTasks,
			"in_progress_tasks": out.InProgressTasks,
			"pending_tasks":     out.PendingTasks,
			"updated_at":        now,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// collectEntries builds the per-task entries of one day. Tasks seen in time
// logs come first in order of their first log; tasks only created that day
// follow in creation order with no tracked time.
func collectEntries(tx *gorm.DB, userID, day string) ([]models.SummaryTask, error) {
	var logs []models.TimeLog
	if err := tx.Where("user_id = ? AND date = ?", userID, day).Order("start_time asc").Order("id asc").Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("load time logs: %w", err)
	}
	var created []models.Task
	if err := tx.Where("user_id = ? AND created_day = ?", userID, day).Order("created_at asc").Order("id asc").Find(&created).Error; err != nil {
		return nil, fmt.Errorf("load tasks created on day: %w", err)
	}

	order := make([]string, 0, len(logs)+len(created))
	spent := make(map[string]int64)
	for _, l := range logs {
		if _, seen := spent[l.TaskID]; !seen {
			order = append(order, l.TaskID)
		}
		spent[l.TaskID] += l.Spent()
	}
	for _, t := range created {
		if _, seen := spent[t.ID]; !seen {
			order = append(order, t.ID)
			spent[t.ID] = 0
		}
	}
	if len(order) == 0 {
		return []models.SummaryTask{}, nil
	}

	var tasks []models.Task
	if err := tx.Where("id IN ? AND user_id = ?", order, userID).Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("load day tasks: %w", err)
	}
	byID := make(map[string]models.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	entries := make([]models.SummaryTask, 0, len(order))
	for _, id := range order {
		t, ok := byID[id]
		if !ok {
			continue
		}
		entries = append(entries, models.SummaryTask{
			TaskID:    id,
			Title:     t.Title,
			TimeSpent: spent[id],
			Status:    t.Status,
		})
	}
	return entries, nil
}

// GetByDate returns the summary for a day, creating it if needed.
func (s *Service) GetByDate(ctx context.Context, userID, date string) (*models.DailySummary, error) {
	return s.Recompute(ctx, userID, date)
}

// Get returns a stored summary with its status snapshots refreshed.
func (s *Service) Get(ctx context.Context, id, userID string) (*models.DailySummary, error) {
	summary, err := s.load(s.db.WithContext(ctx), id, userID)
	if err != nil {
		return nil, err
	}
	return s.Recompute(ctx, userID, summary.Date)
}

// List returns the user's stored summaries, newest first, optionally limited
// to an inclusive [from, to] day range.
func (s *Service) List(ctx context.Context, userID, from, to string) ([]models.DailySummary, error) {
	query := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if from != "" || to != "" {
		if from == "" || to == "" {
			return nil, apperr.Validation("startDate and endDate must be given together")
		}
		f, err := models.ParseDay(from)
		if err != nil {
			return nil, apperr.Validation("invalid startDate")
		}
		t, err := models.ParseDay(to)
		if err != nil {
			return nil, apperr.Validation("invalid endDate")
		}
		query = query.Where("date >= ? AND date <= ?", f, t)
	}

	summaries := []models.DailySummary{}
	err := query.Preload("Tasks", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		Order("date desc").
		Find(&summaries).Error
	if err != nil {
		return nil, fmt.Errorf("list daily summaries: %w", err)
	}
	return summaries, nil
}

// GenerateNarrative asks the generator for text describing the stored
// numbers and saves it. The generator is retried once; if it still fails the
// summary is returned unchanged together with an Upstream error.
func (s *Service) GenerateNarrative(ctx context.Context, id, userID string) (*models.DailySummary, narrative.Result, error) {
	summary, err := s.load(s.db.WithContext(ctx).Preload("Tasks", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }), id, userID)
	if err != nil {
		return nil, narrative.Result{}, err
	}

	in := narrative.InputFrom(summary)
	res, err := s.generator.Generate(ctx, in)
	if err != nil && ctx.Err() == nil {
		log.Printf("narrative generation failed for summary %s, retrying: %v", summary.ID, err)
		res, err = s.generator.Generate(ctx, in)
	}
	if err != nil {
		log.Printf("narrative generation failed for summary %s: %v", summary.ID, err)
		return summary, narrative.Result{}, apperr.Upstream(err, "narrative generator unavailable")
	}

	now := s.Now().UTC()
	err = s.db.WithContext(ctx).Model(&models.DailySummary{}).Where("id = ?", summary.ID).
		Updates(map[string]any{"summary": res.Summary, "updated_at": now}).Error
	if err != nil {
		return nil, narrative.Result{}, fmt.Errorf("store narrative: %w", err)
	}
	summary.Summary = res.Summary
	summary.UpdatedAt = now
	return summary, res, nil
}

func (s *Service) load(db *gorm.DB, id, userID string) (*models.DailySummary, error) {
	var summary models.DailySummary
	if err := db.First(&summary, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("daily summary not found")
		}
		return nil, fmt.Errorf("fetch daily summary: %w", err)
	}
	if summary.UserID != userID {
		return nil, apperr.Forbidden("not authorized to access this daily summary")
	}
	return &summary, nil
}
