package handlers

import (
	"net/http"

	"time-tracking-api/internal/models"
	"time-tracking-api/internal/realtime"
	"time-tracking-api/internal/tracking"

	"github.com/gin-gonic/gin"
)

// StartTracking handles POST /api/time-logs/start/:taskId
func StartTracking(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	l, err := trackingEngine().StartTracking(c.Request.Context(), c.Param("taskId"), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	publish(userID, realtime.EventTimeLogStarted, l)
	c.JSON(http.StatusCreated, l)
}

// StopTracking handles POST /api/time-logs/stop/:timeLogId
func StopTracking(c *gin.Context) {
	closeTimeLog(c, false)
}

// PauseTracking handles POST /api/time-logs/pause/:timeLogId
func PauseTracking(c *gin.Context) {
	closeTimeLog(c, true)
}

func closeTimeLog(c *gin.Context, pause bool) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	engine := trackingEngine()
	op, event := engine.StopTracking, realtime.EventTimeLogStopped
	if pause {
		op, event = engine.PauseTracking, realtime.EventTimeLogPaused
	}

	l, err := op(c.Request.Context(), c.Param("timeLogId"), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	publish(userID, event, l)
	publish(userID, realtime.EventDailySummaryUpdated, gin.H{"date": l.Date})
	c.JSON(http.StatusOK, l)
}

// GetActiveTimeLogs handles GET /api/time-logs/active
func GetActiveTimeLogs(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	logs, err := trackingEngine().GetActiveLogs(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"timeLogs": logs, "count": len(logs)})
}

// GetTimeLogs handles GET /api/time-logs
// Query: taskId, date, or startDate + endDate
func GetTimeLogs(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	logs, err := trackingEngine().ListTimeLogs(c.Request.Context(), userID, tracking.LogFilter{
		TaskID: c.Query("taskId"),
		Date:   c.Query("date"),
		From:   c.Query("startDate"),
		To:     c.Query("endDate"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"timeLogs": logs, "count": len(logs)})
}

// GetTaskTimeLogs handles GET /api/time-logs/task/:taskId
func GetTaskTimeLogs(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	logs, total, err := trackingEngine().TaskTimeLogs(c.Request.Context(), c.Param("taskId"), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	if logs == nil {
		logs = []models.TimeLog{}
	}
	c.JSON(http.StatusOK, gin.H{"timeLogs": logs, "count": len(logs), "totalTimeSpent": total})
}
