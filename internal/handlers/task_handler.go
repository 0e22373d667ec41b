package handlers

import (
	"net/http"
	"slices"
	"time"

	"time-tracking-api/internal/models"
	"time-tracking-api/internal/realtime"
	"time-tracking-api/internal/tasks"

	"github.com/gin-gonic/gin"
)

// CreateTaskRequest represents the request payload for creating a task
type CreateTaskRequest struct {
	Title       string              `json:"title" binding:"required"`
	Description string              `json:"description"`
	Priority    models.TaskPriority `json:"priority"`
	Deadline    string              `json:"deadline"`
}

// UpdateTaskRequest represents the request payload for updating a task
type UpdateTaskRequest struct {
	Title       *string              `json:"title"`
	Description *string              `json:"description"`
	Status      *models.TaskStatus   `json:"status"`
	Priority    *models.TaskPriority `json:"priority"`
	Deadline    *string              `json:"deadline"`
	Remark      *string              `json:"remark"`
}

// UpdateTaskStatusRequest represents a minimal request to change status
type UpdateTaskStatusRequest struct {
	Status models.TaskStatus `json:"status" binding:"required"`
}

type UpdateTaskPriorityRequest struct {
	Priority models.TaskPriority `json:"priority" binding:"required"`
}

type AddRemarkRequest struct {
	Text string `json:"text" binding:"required"`
}

// CreateTaskWithAIRequest carries the free-form description a task is drafted from
type CreateTaskWithAIRequest struct {
	UserInput string `json:"userInput" binding:"required"`
}

// TaskDetailResponse is a task with its time logs, oldest first
type TaskDetailResponse struct {
	*models.Task
	TimeLogs       []models.TimeLog `json:"timeLogs"`
	TotalTimeSpent int64            `json:"totalTimeSpent"`
}

func parseDeadline(c *gin.Context, raw string) (*time.Time, bool) {
	if raw == "" {
		return nil, true
	}
	t, ok := parseDateFlexible(raw)
	if !ok {
		badRequest(c, "Invalid deadline, use YYYY-MM-DD or RFC 3339")
		return nil, false
	}
	return &t, true
}

// GetTasks handles GET /api/tasks
// Query: status, priority, sortBy (priority|deadline)
func GetTasks(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	list, err := taskService().List(c.Request.Context(), userID, tasks.ListFilter{
		Status:   models.TaskStatus(c.Query("status")),
		Priority: models.TaskPriority(c.Query("priority")),
		SortBy:   c.Query("sortBy"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"tasks": list,
		"count": len(list),
	})
}

// GetOngoingTasks handles GET /api/tasks/ongoing
func GetOngoingTasks(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	list, err := taskService().Ongoing(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"tasks": list,
		"count": len(list),
	})
}

// GetTaskByID handles GET /api/tasks/:id
func GetTaskByID(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	task, err := taskService().Get(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	logs, total, err := trackingEngine().TaskTimeLogs(c.Request.Context(), task.ID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	slices.Reverse(logs) // oldest first
	c.JSON(http.StatusOK, TaskDetailResponse{Task: task, TimeLogs: logs, TotalTimeSpent: total})
}

// CreateTask handles POST /api/tasks
func CreateTask(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	deadline, ok := parseDeadline(c, req.Deadline)
	if !ok {
		return
	}

	task, err := taskService().Create(c.Request.Context(), userID, tasks.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Deadline:    deadline,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	publish(userID, realtime.EventTaskCreated, task)
	c.JSON(http.StatusCreated, task)
}

// CreateTaskWithAI handles POST /api/tasks/ai
func CreateTaskWithAI(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req CreateTaskWithAIRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Please provide user input")
		return
	}

	task, draft, err := taskService().CreateFromPrompt(c.Request.Context(), userID, req.UserInput, currentDrafter())
	if err != nil {
		respondError(c, err)
		return
	}
	publish(userID, realtime.EventTaskCreated, task)
	c.JSON(http.StatusCreated, gin.H{
		"task": task,
		"aiMessages": gin.H{
			"title":       draft.TitleMessage,
			"description": draft.DescriptionMessage,
		},
	})
}

// UpdateTask handles PUT /api/tasks/:id
func UpdateTask(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	in := tasks.UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		Remark:      req.Remark,
	}
	if req.Deadline != nil {
		if in.Deadline, ok = parseDeadline(c, *req.Deadline); !ok {
			return
		}
	}

	task, err := taskService().Update(c.Request.Context(), c.Param("id"), userID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	publish(userID, realtime.EventTaskUpdated, task)
	c.JSON(http.StatusOK, task)
}

// UpdateTaskStatus handles PATCH /api/tasks/:id/status
func UpdateTaskStatus(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req UpdateTaskStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Please provide a status")
		return
	}
	task, err := taskService().UpdateStatus(c.Request.Context(), c.Param("id"), userID, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	publish(userID, realtime.EventTaskUpdated, task)
	c.JSON(http.StatusOK, task)
}

// UpdateTaskPriority handles PATCH /api/tasks/:id/priority
func UpdateTaskPriority(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req UpdateTaskPriorityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Please provide a priority")
		return
	}
	task, err := taskService().UpdatePriority(c.Request.Context(), c.Param("id"), userID, req.Priority)
	if err != nil {
		respondError(c, err)
		return
	}
	publish(userID, realtime.EventTaskUpdated, task)
	c.JSON(http.StatusOK, task)
}

// AddTaskRemark handles POST /api/tasks/:id/remarks
func AddTaskRemark(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req AddRemarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Please provide remark text")
		return
	}
	task, err := taskService().AddRemark(c.Request.Context(), c.Param("id"), userID, req.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	publish(userID, realtime.EventTaskUpdated, task)
	c.JSON(http.StatusOK, task)
}

// DeleteTask handles DELETE /api/tasks/:id
func DeleteTask(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id := c.Param("id")
	if err := taskService().Delete(c.Request.Context(), id, userID); err != nil {
		respondError(c, err)
		return
	}
	publish(userID, realtime.EventTaskDeleted, gin.H{"id": id})
	c.JSON(http.StatusOK, gin.H{"message": "Task deleted successfully", "id": id})
}
