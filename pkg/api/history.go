package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MY-Final/napcat-plugin-email/pkg/apiresponses"
	"github.com/MY-Final/napcat-plugin-email/pkg/history"
	"github.com/MY-Final/napcat-plugin-email/pkg/system"
)

// HistoryController maps the send-history queries onto HTTP routes.
type HistoryController struct {
	history *history.Log
	log     *zap.SugaredLogger
}

func NewHistoryController(hist *history.Log, log *zap.SugaredLogger) *HistoryController {
	return &HistoryController{history: hist, log: log.Named("history-api")}
}

func (hc *HistoryController) BasePath() string { return "history" }

func (hc *HistoryController) Handlers() []gin.HandlerFunc { return nil }

func (hc *HistoryController) Register(rg *gin.RouterGroup) error {
	rg.GET("", hc.query)
	rg.GET("/stats", hc.stats)
	rg.GET("/stats/today", hc.todayStats)
	rg.DELETE("/:id", hc.remove)
	rg.DELETE("", hc.clear)
	return nil
}

func (hc *HistoryController) query(c *gin.Context) {
	page, err := intQuery(c, "page", 1)
	if err != nil {
		apiresponses.RespondBadRequest(c, "page must be an integer")
		return
	}
	pageSize, err := intQuery(c, "pageSize", 20)
	if err != nil {
		apiresponses.RespondBadRequest(c, "pageSize must be an integer")
		return
	}

	res := hc.history.Query(history.QueryParams{
		Page:     page,
		PageSize: pageSize,
		SendType: history.SendType(c.Query("sendType")),
		Status:   history.Status(c.Query("status")),
	})
	c.JSON(http.StatusOK, res)
}

func (hc *HistoryController) stats(c *gin.Context) {
	c.JSON(http.StatusOK, hc.history.Stats())
}

func (hc *HistoryController) todayStats(c *gin.Context) {
	c.JSON(http.StatusOK, hc.history.TodayStats())
}

func (hc *HistoryController) remove(c *gin.Context) {
	if !hc.history.Delete(c.Param("id")) {
		apiresponses.RespondNotFound(c, "history record not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (hc *HistoryController) clear(c *gin.Context) {
	system.GetReqLogger(c, hc.log).Infow("History cleared")
	hc.history.Clear()
	c.JSON(http.StatusOK, gin.H{"cleared": true})
}

func intQuery(c *gin.Context, name string, fallback int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
