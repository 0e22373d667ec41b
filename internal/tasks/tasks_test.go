package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"time-tracking-api/internal/apperr"
	"time-tracking-api/internal/models"
	"time-tracking-api/internal/narrative"
	"time-tracking-api/internal/summary"
	"time-tracking-api/internal/testutil"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var base = time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *gorm.DB, *time.Time) {
	t.Helper()
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)
	clock := base
	svc := NewService(db)
	svc.Now = func() time.Time { return clock }
	return svc, db, &clock
}

func TestCreateSeedsHistories(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	task, err := svc.Create(ctx, "u-1", CreateInput{Title: "  Write report ", Priority: models.PriorityHigh})
	require.NoError(t, err)
	require.Equal(t, "Write report", task.Title)
	require.Equal(t, models.StatusPending, task.Status)
	require.Equal(t, "2026-10-18", task.CreatedDay)

	got, err := svc.Get(ctx, task.ID, "u-1")
	require.NoError(t, err)
	require.Len(t, got.StatusHistory, 1)
	require.Equal(t, models.StatusPending, got.StatusHistory[0].Status)
	require.Len(t, got.PriorityHistory, 1)
	require.Equal(t, models.PriorityHigh, got.PriorityHistory[0].Priority)
}

func TestCreateValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Create(context.Background(), "u-1", CreateInput{Title: "   "})
	require.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.Create(context.Background(), "u-1", CreateInput{Title: "x", Priority: "Critical"})
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestStatusHistoryTracksEveryChange(t *testing.T) {
	svc, _, clock := newTestService(t)
	ctx := context.Background()
	task, err := svc.Create(ctx, "u-1", CreateInput{Title: "t"})
	require.NoError(t, err)

	changes := []models.TaskStatus{models.StatusInProgress, models.StatusOnHold, models.StatusOnHold, models.StatusCompleted}
	for _, st := range changes {
		*clock = clock.Add(time.Minute)
		_, err := svc.UpdateStatus(ctx, task.ID, "u-1", st)
		require.NoError(t, err)
	}

	got, err := svc.Get(ctx, task.ID, "u-1")
	require.NoError(t, err)
	// The repeated On Hold is not a change.
	require.Len(t, got.StatusHistory, 4)
	require.Equal(t, got.Status, got.StatusHistory[len(got.StatusHistory)-1].Status)
	for i := 1; i < len(got.StatusHistory); i++ {
		require.True(t, got.StatusHistory[i].ChangedAt.After(got.StatusHistory[i-1].ChangedAt))
	}
}

func TestUpdateAppliesFieldsAndRemark(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	task, err := svc.Create(ctx, "u-1", CreateInput{Title: "old"})
	require.NoError(t, err)

	title := "new"
	priority := models.PriorityUrgent
	remark := "blocked on review"
	deadline := base.Add(48 * time.Hour)
	got, err := svc.Update(ctx, task.ID, "u-1", UpdateInput{Title: &title, Priority: &priority, Remark: &remark, Deadline: &deadline})
	require.NoError(t, err)
	require.Equal(t, "new", got.Title)
	require.Equal(t, models.PriorityUrgent, got.Priority)
	require.Len(t, got.PriorityHistory, 2)
	require.Len(t, got.Remarks, 1)
	require.Equal(t, "blocked on review", got.Remarks[0].Text)
	require.NotNil(t, got.Deadline)
	require.True(t, deadline.Equal(*got.Deadline))

	bad := models.TaskStatus("done")
	_, err = svc.Update(ctx, task.ID, "u-1", UpdateInput{Status: &bad})
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestOwnership(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	task, err := svc.Create(ctx, "u-1", CreateInput{Title: "mine"})
	require.NoError(t, err)

	_, err = svc.Get(ctx, task.ID, "u-2")
	require.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = svc.Get(ctx, "missing", "u-1")
	require.ErrorIs(t, err, apperr.ErrNotFound)
	require.ErrorIs(t, svc.Delete(ctx, task.ID, "u-2"), apperr.ErrForbidden)
}

func TestListFiltersAndSorts(t *testing.T) {
	svc, _, clock := newTestService(t)
	ctx := context.Background()
	mk := func(title string, p models.TaskPriority) *models.Task {
		*clock = clock.Add(time.Second)
		task, err := svc.Create(ctx, "u-1", CreateInput{Title: title, Priority: p})
		require.NoError(t, err)
		return task
	}
	low := mk("low", models.PriorityLow)
	urgent := mk("urgent", models.PriorityUrgent)
	medium := mk("medium", models.PriorityMedium)
	_, err := svc.Create(ctx, "u-2", CreateInput{Title: "other user"})
	require.NoError(t, err)

	all, err := svc.List(ctx, "u-1", ListFilter{})
	require.NoError(t, err)
	require.Equal(t, []string{medium.ID, urgent.ID, low.ID}, ids(all))

	byPriority, err := svc.List(ctx, "u-1", ListFilter{SortBy: "priority"})
	require.NoError(t, err)
	require.Equal(t, []string{urgent.ID, medium.ID, low.ID}, ids(byPriority))

	onlyLow, err := svc.List(ctx, "u-1", ListFilter{Priority: models.PriorityLow})
	require.NoError(t, err)
	require.Equal(t, []string{low.ID}, ids(onlyLow))

	_, err = svc.List(ctx, "u-1", ListFilter{Status: "bogus"})
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestOngoingOrdersByDeadlineThenPriority(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	soon := base.Add(2 * time.Minute)
	sooner := base.Add(time.Minute)
	later := base.Add(time.Hour)

	a, _ := svc.Create(ctx, "u-1", CreateInput{Title: "low later", Priority: models.PriorityLow, Deadline: &later})
	b, _ := svc.Create(ctx, "u-1", CreateInput{Title: "high", Priority: models.PriorityHigh})
	c, _ := svc.Create(ctx, "u-1", CreateInput{Title: "soon", Priority: models.PriorityLow, Deadline: &soon})
	d, _ := svc.Create(ctx, "u-1", CreateInput{Title: "sooner", Priority: models.PriorityLow, Deadline: &sooner})
	e, _ := svc.Create(ctx, "u-1", CreateInput{Title: "done"})
	_, err := svc.UpdateStatus(ctx, e.ID, "u-1", models.StatusCompleted)
	require.NoError(t, err)

	got, err := svc.Ongoing(ctx, "u-1")
	require.NoError(t, err)
	require.Equal(t, []string{d.ID, c.ID, b.ID, a.ID}, ids(got))
}

func TestDeleteCascadesTimeLogs(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	task, err := svc.Create(ctx, "u-1", CreateInput{Title: "t"})
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.TimeLog{ID: "l-1", TaskID: task.ID, UserID: "u-1", StartTime: base, Date: "2026-10-18", IsActive: true}).Error)

	require.NoError(t, svc.Delete(ctx, task.ID, "u-1"))

	var count int64
	require.NoError(t, db.Model(&models.TimeLog{}).Where("task_id = ?", task.ID).Count(&count).Error)
	require.Zero(t, count)
	require.NoError(t, db.Model(&models.StatusChange{}).Where("task_id = ?", task.ID).Count(&count).Error)
	require.Zero(t, count)
	_, err = svc.Get(ctx, task.ID, "u-1")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDeleteRefreshesStoredSummaries(t *testing.T) {
	svc, db, _ := newTestService(t)
	svc.Summaries = summary.NewService(db, narrative.Template{})
	ctx := context.Background()

	keep, err := svc.Create(ctx, "u-1", CreateInput{Title: "keep"})
	require.NoError(t, err)
	drop, err := svc.Create(ctx, "u-1", CreateInput{Title: "drop"})
	require.NoError(t, err)

	closedLog := func(id, taskID string, start time.Time, d time.Duration) {
		end := start.Add(d)
		ms := d.Milliseconds()
		require.NoError(t, db.Create(&models.TimeLog{
			ID: id, TaskID: taskID, UserID: "u-1", StartTime: start, EndTime: &end,
			Duration: &ms, Date: models.DayKey(start),
		}).Error)
	}
	closedLog("l-1", keep.ID, base, time.Hour)
	closedLog("l-2", drop.ID, base.Add(2*time.Hour), 30*time.Minute)
	closedLog("l-3", drop.ID, base.Add(-48*time.Hour), time.Hour)

	before, err := svc.Summaries.Recompute(ctx, "u-1", "2026-10-18")
	require.NoError(t, err)
	require.Equal(t, (90 * time.Minute).Milliseconds(), before.TotalTimeSpent)
	require.Len(t, before.Tasks, 2)

	require.NoError(t, svc.Delete(ctx, drop.ID, "u-1"))

	var after models.DailySummary
	require.NoError(t, db.Preload("Tasks").Where("user_id = ? AND date = ?", "u-1", "2026-10-18").First(&after).Error)
	require.Equal(t, time.Hour.Milliseconds(), after.TotalTimeSpent)
	require.Len(t, after.Tasks, 1)
	require.Equal(t, keep.ID, after.Tasks[0].TaskID)
	require.Equal(t, 1, after.PendingTasks)

	// 2026-10-16 never had a summary and should not get one.
	var count int64
	require.NoError(t, db.Model(&models.DailySummary{}).Where("date = ?", "2026-10-16").Count(&count).Error)
	require.Zero(t, count)
}

type stubDrafter struct {
	draft narrative.Draft
	err   error
	input string
}

func (d *stubDrafter) Draft(_ context.Context, userInput string) (narrative.Draft, error) {
	d.input = userInput
	return d.draft, d.err
}

func TestCreateFromPrompt(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	d := &stubDrafter{draft: narrative.Draft{Title: "Fix login bug", Description: "Users get logged out."}}

	task, draft, err := svc.CreateFromPrompt(ctx, "u-1", "the login thing keeps kicking people out", d)
	require.NoError(t, err)
	require.Equal(t, "the login thing keeps kicking people out", d.input)
	require.Equal(t, "Fix login bug", task.Title)
	require.Equal(t, "Users get logged out.", task.Description)
	require.Equal(t, models.StatusPending, task.Status)
	require.Equal(t, models.PriorityMedium, task.Priority)
	require.Equal(t, d.draft, draft)
}

func TestCreateFromPromptErrors(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.CreateFromPrompt(ctx, "u-1", "  ", &stubDrafter{})
	require.ErrorIs(t, err, apperr.ErrValidation)

	_, _, err = svc.CreateFromPrompt(ctx, "u-1", "something", &stubDrafter{err: errors.New("timeout")})
	require.ErrorIs(t, err, apperr.ErrUpstream)

	_, _, err = svc.CreateFromPrompt(ctx, "u-1", "something", &stubDrafter{draft: narrative.Draft{Title: " "}})
	require.ErrorIs(t, err, apperr.ErrValidation)

	var count int64
	require.NoError(t, db.Model(&models.Task{}).Count(&count).Error)
	require.Zero(t, count)
}

func ids(tasks []models.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.ID)
	}
	return out
}
