package handlers

import (
	"errors"
	"net/http"

	"time-tracking-api/internal/apperr"
	"time-tracking-api/internal/realtime"

	"github.com/gin-gonic/gin"
)

// GetDailySummaries handles GET /api/daily-summaries
// Query: startDate + endDate (inclusive)
func GetDailySummaries(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	list, err := summaryService().List(c.Request.Context(), userID, c.Query("startDate"), c.Query("endDate"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"dailySummaries": list, "count": len(list)})
}

// GetDailySummaryByDate handles GET /api/daily-summaries/date/:date
// The summary is recomputed on every read.
func GetDailySummaryByDate(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	s, err := summaryService().GetByDate(c.Request.Context(), userID, c.Param("date"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// GetDailySummaryByID handles GET /api/daily-summaries/:id
func GetDailySummaryByID(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	s, err := summaryService().Get(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// GenerateDailySummary handles POST /api/daily-summaries/:id/generate-summary
// A generator outage still answers 200 with the stored numbers and
// degraded set.
func GenerateDailySummary(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	s, res, err := summaryService().GenerateNarrative(c.Request.Context(), c.Param("id"), userID)
	switch {
	case err == nil:
	case errors.Is(err, apperr.ErrUpstream) && s != nil:
		c.JSON(http.StatusOK, gin.H{
			"dailySummary": s,
			"degraded":     true,
			"message":      apperr.Message(err),
			"code":         apperr.Code(err),
		})
		return
	default:
		respondError(c, err)
		return
	}

	publish(userID, realtime.EventDailySummaryUpdated, gin.H{"date": s.Date, "id": s.ID})
	c.JSON(http.StatusOK, gin.H{
		"dailySummary": s,
		"summary":      res.Summary,
		"message":      res.Message,
		"degraded":     false,
	})
}
