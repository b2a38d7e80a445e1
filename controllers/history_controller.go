package controllers

import (
	"net/http"

	"patrimoine/services"

	"github.com/gin-gonic/gin"
)

type HistoryController struct {
	history *services.HistoryService
}

func NewHistoryController(history *services.HistoryService) *HistoryController {
	return &HistoryController{history: history}
}

// Snapshot records today's portfolio valuation, replacing any snapshot
// already taken today.
func (ctl *HistoryController) Snapshot(c *gin.Context) {
	point, err := ctl.history.RecordSnapshot(userID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, point)
}

func (ctl *HistoryController) List(c *gin.Context) {
	points, err := ctl.history.List(userID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, points)
}

func (ctl *HistoryController) Latest(c *gin.Context) {
	point, err := ctl.history.Latest(userID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, point)
}

func (ctl *HistoryController) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/history/snapshot", ctl.Snapshot)
	rg.GET("/history", ctl.List)
	rg.GET("/history/latest", ctl.Latest)
}
