package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MY-Final/napcat-plugin-email/pkg/apiresponses"
	"github.com/MY-Final/napcat-plugin-email/pkg/system"
	"github.com/MY-Final/napcat-plugin-email/pkg/task"
)

// TaskController maps the scheduled-task operations onto HTTP routes.
type TaskController struct {
	manager *task.Manager
	log     *zap.SugaredLogger
}

func NewTaskController(manager *task.Manager, log *zap.SugaredLogger) *TaskController {
	return &TaskController{manager: manager, log: log.Named("task-api")}
}

func (tc *TaskController) BasePath() string { return "tasks" }

func (tc *TaskController) Handlers() []gin.HandlerFunc { return nil }

func (tc *TaskController) Register(rg *gin.RouterGroup) error {
	rg.GET("", tc.list)
	rg.POST("", tc.create)
	rg.GET("/:id", tc.get)
	rg.PATCH("/:id", tc.update)
	rg.DELETE("/:id", tc.remove)
	rg.POST("/:id/cancel", tc.cancel)
	rg.POST("/:id/execute", tc.execute)
	return nil
}

func (tc *TaskController) list(c *gin.Context) {
	tasks := tc.manager.List()
	if tasks == nil {
		tasks = []task.ScheduledTask{}
	}
	c.JSON(http.StatusOK, tasks)
}

func (tc *TaskController) create(c *gin.Context) {
	reqLog := system.GetReqLogger(c, tc.log)

	var params task.CreateParams
	if err := c.ShouldBindJSON(&params); err != nil {
		apiresponses.RespondBadRequest(c, "invalid request body: "+err.Error())
		return
	}
	t, err := tc.manager.Create(params)
	if err != nil {
		reqLog.Warnw("Task creation rejected", "name", params.Name, "error", err)
		apiresponses.RespondBadRequest(c, err.Error())
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (tc *TaskController) get(c *gin.Context) {
	t, ok := tc.manager.Get(c.Param("id"))
	if !ok {
		apiresponses.RespondNotFound(c, "task not found")
		return
	}
	c.JSON(http.StatusOK, t)
}

func (tc *TaskController) update(c *gin.Context) {
	var params task.UpdateParams
	if err := c.ShouldBindJSON(&params); err != nil {
		apiresponses.RespondBadRequest(c, "invalid request body: "+err.Error())
		return
	}
	t, err := tc.manager.Update(c.Param("id"), params)
	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			apiresponses.RespondNotFound(c, "task not found")
			return
		}
		apiresponses.RespondBadRequest(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, t)
}

func (tc *TaskController) remove(c *gin.Context) {
	if !tc.manager.Delete(c.Param("id")) {
		apiresponses.RespondNotFound(c, "task not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (tc *TaskController) cancel(c *gin.Context) {
	if !tc.manager.Cancel(c.Param("id")) {
		apiresponses.RespondNotFound(c, "task not found or not cancellable")
		return
	}
	c.JSON(http.StatusOK, gin.H{"cancelled": true})
}

func (tc *TaskController) execute(c *gin.Context) {
	reqLog := system.GetReqLogger(c, tc.log)

	res := tc.manager.ExecuteNow(c.Param("id"))
	status := http.StatusOK
	if !res.Success {
		reqLog.Warnw("Manual task execution failed", "id", c.Param("id"), "error", res.Message)
		status = http.StatusBadGateway
		if res.Message == "task not found" {
			status = http.StatusNotFound
		}
	}
	c.JSON(status, res)
}
