package handlers

import (
	"net/http"
	"testing"

	"time-tracking-api/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func taskRouter(t *testing.T) *gin.Engine {
	r := newTestRouter(t)
	r.GET("/api/tasks", GetTasks)
	r.GET("/api/tasks/ongoing", GetOngoingTasks)
	r.GET("/api/tasks/:id", GetTaskByID)
	r.POST("/api/tasks", CreateTask)
	r.POST("/api/tasks/ai", CreateTaskWithAI)
	r.PUT("/api/tasks/:id", UpdateTask)
	r.PATCH("/api/tasks/:id/status", UpdateTaskStatus)
	r.PATCH("/api/tasks/:id/priority", UpdateTaskPriority)
	r.POST("/api/tasks/:id/remarks", AddTaskRemark)
	r.DELETE("/api/tasks/:id", DeleteTask)
	return r
}

func createTask(t *testing.T, r *gin.Engine, token string, body map[string]any) models.Task {
	t.Helper()
	w := send(t, r, http.MethodPost, "/api/tasks", token, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[models.Task](t, w)
}

func TestCreateTask_Success(t *testing.T) {
	r := taskRouter(t)
	token := tokenFor(t, "u-1")

	created := createTask(t, r, token, map[string]any{
		"title":       "Test Task",
		"description": "Desc",
		"priority":    "High",
		"deadline":    "2026-10-20",
	})
	require.Equal(t, models.StatusPending, created.Status)
	require.Equal(t, models.PriorityHigh, created.Priority)
	require.NotNil(t, created.Deadline)
	require.Len(t, created.StatusHistory, 1)
}

func TestCreateTask_Validation(t *testing.T) {
	r := taskRouter(t)
	token := tokenFor(t, "u-1")

	w := send(t, r, http.MethodPost, "/api/tasks", token, map[string]any{"description": "no title"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	w = send(t, r, http.MethodPost, "/api/tasks", token, map[string]any{"title": "x", "priority": "Critical"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), `"code":"validation"`)
	w = send(t, r, http.MethodPost, "/api/tasks", token, map[string]any{"title": "x", "deadline": "someday"})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTaskOwnership(t *testing.T) {
	r := taskRouter(t)
	task := createTask(t, r, tokenFor(t, "u-1"), map[string]any{"title": "mine"})
	other := tokenFor(t, "u-2")

	require.Equal(t, http.StatusForbidden, send(t, r, http.MethodGet, "/api/tasks/"+task.ID, other, nil).Code)
	require.Equal(t, http.StatusForbidden, send(t, r, http.MethodDelete, "/api/tasks/"+task.ID, other, nil).Code)
	require.Equal(t, http.StatusNotFound, send(t, r, http.MethodGet, "/api/tasks/missing", other, nil).Code)
}

func TestUpdateTaskStatusAndHistory(t *testing.T) {
	r := taskRouter(t)
	token := tokenFor(t, "u-1")
	task := createTask(t, r, token, map[string]any{"title": "t"})

	w := send(t, r, http.MethodPatch, "/api/tasks/"+task.ID+"/status", token, map[string]string{"status": "Completed"})
	require.Equal(t, http.StatusOK, w.Code)
	updated := decode[models.Task](t, w)
	require.Equal(t, models.StatusCompleted, updated.Status)
	require.Len(t, updated.StatusHistory, 2)

	w = send(t, r, http.MethodPatch, "/api/tasks/"+task.ID+"/status", token, map[string]string{"status": "Done"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = send(t, r, http.MethodPatch, "/api/tasks/"+task.ID+"/priority", token, map[string]string{"priority": "Urgent"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decode[models.Task](t, w).PriorityHistory, 2)
}

func TestUpdateTaskWithRemark(t *testing.T) {
	r := taskRouter(t)
	token := tokenFor(t, "u-1")
	task := createTask(t, r, token, map[string]any{"title": "t"})

	w := send(t, r, http.MethodPut, "/api/tasks/"+task.ID, token, map[string]any{"title": "renamed", "remark": "halfway"})
	require.Equal(t, http.StatusOK, w.Code)
	updated := decode[models.Task](t, w)
	require.Equal(t, "renamed", updated.Title)
	require.Len(t, updated.Remarks, 1)

	w = send(t, r, http.MethodPost, "/api/tasks/"+task.ID+"/remarks", token, map[string]string{"text": "done soon"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decode[models.Task](t, w).Remarks, 2)
}

func TestListAndDeleteTasks(t *testing.T) {
	r := taskRouter(t)
	token := tokenFor(t, "u-1")
	a := createTask(t, r, token, map[string]any{"title": "a", "priority": "Low"})
	createTask(t, r, token, map[string]any{"title": "b", "priority": "Urgent"})
	createTask(t, r, tokenFor(t, "u-2"), map[string]any{"title": "theirs"})

	w := send(t, r, http.MethodGet, "/api/tasks?sortBy=priority", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Tasks []models.Task `json:"tasks"`
		Count int           `json:"count"`
	}](t, w)
	require.Equal(t, 2, list.Count)
	require.Equal(t, "b", list.Tasks[0].Title)

	w = send(t, r, http.MethodGet, "/api/tasks?priority=Low", token, nil)
	require.Equal(t, 1, decode[struct {
		Count int `json:"count"`
	}](t, w).Count)

	require.Equal(t, http.StatusOK, send(t, r, http.MethodDelete, "/api/tasks/"+a.ID, token, nil).Code)
	require.Equal(t, http.StatusNotFound, send(t, r, http.MethodGet, "/api/tasks/"+a.ID, token, nil).Code)

	w = send(t, r, http.MethodGet, "/api/tasks/ongoing", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 1, decode[struct {
		Count int `json:"count"`
	}](t, w).Count)
}

func TestCreateTaskWithAI(t *testing.T) {
	r := taskRouter(t)
	token := tokenFor(t, "u-1")

	w := send(t, r, http.MethodPost, "/api/tasks/ai", token, map[string]string{"userInput": "  Prepare demo for Friday  "})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	resp := decode[struct {
		Task       models.Task `json:"task"`
		AIMessages struct {
			Title       string `json:"title"`
			Description string `json:"description"`
		} `json:"aiMessages"`
	}](t, w)
	require.Equal(t, "Prepare demo for Friday", resp.Task.Title)
	require.Equal(t, `Description for "Prepare demo for Friday"`, resp.Task.Description)
	require.Equal(t, models.StatusPending, resp.Task.Status)
	require.NotEmpty(t, resp.AIMessages.Title)
	require.NotEmpty(t, resp.AIMessages.Description)

	w = send(t, r, http.MethodGet, "/api/tasks/"+resp.Task.ID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	require.Equal(t, http.StatusBadRequest, send(t, r, http.MethodPost, "/api/tasks/ai", token, map[string]string{}).Code)
	require.Equal(t, http.StatusBadRequest, send(t, r, http.MethodPost, "/api/tasks/ai", token, map[string]string{"userInput": "   "}).Code)
}
