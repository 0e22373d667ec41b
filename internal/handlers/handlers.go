package handlers

import (
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"time-tracking-api/internal/apperr"
	"time-tracking-api/internal/database"
	"time-tracking-api/internal/narrative"
	"time-tracking-api/internal/realtime"
	"time-tracking-api/internal/summary"
	"time-tracking-api/internal/tasks"
	"time-tracking-api/internal/tracking"

	"github.com/gin-gonic/gin"
)

var (
	genMu     sync.RWMutex
	generator narrative.Generator = narrative.Template{}
)

// SetNarrativeGenerator selects the generator used for daily summary text.
func SetNarrativeGenerator(g narrative.Generator) {
	if g == nil {
		g = narrative.Template{}
	}
	genMu.Lock()
	generator = g
	genMu.Unlock()
}

func currentGenerator() narrative.Generator {
	genMu.RLock()
	defer genMu.RUnlock()
	return generator
}

func currentDrafter() narrative.Drafter {
	return narrative.DrafterFor(currentGenerator())
}

func taskService() *tasks.Service {
	db := database.GetDB()
	svc := tasks.NewService(db)
	svc.Summaries = summary.NewService(db, currentGenerator())
	return svc
}

func summaryService() *summary.Service {
	return summary.NewService(database.GetDB(), currentGenerator())
}

func trackingEngine() *tracking.Engine {
	db := database.GetDB()
	return tracking.NewEngine(db, summary.NewService(db, currentGenerator()))
}

// currentUser returns the authenticated user id, answering 401 when the
// middleware did not set one.
func currentUser(c *gin.Context) (string, bool) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User ID not found in token",
			"code":  "unauthorized",
		})
		return "", false
	}
	return userID, true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperr.ErrConflict), errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrUpstream):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, gin.H{
		"error": apperr.Message(err),
		"code":  apperr.Code(err),
	})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg, "code": "validation"})
}

func publish(userID, eventType string, data any) {
	realtime.GetHub().Publish(userID, eventType, data)
}

// parseDateFlexible accepts the date shapes frontends commonly send.
func parseDateFlexible(dateStr string) (time.Time, bool) {
	if dateStr == "" {
		return time.Time{}, false
	}
	layouts := []string{
		time.RFC3339,  // full RFC3339
		"2006-01-02",  // ISO date
		"2 Jan 2006",  // e.g., 30 Oct 2025
		"02 Jan 2006", // zero-padded day
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, dateStr); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
