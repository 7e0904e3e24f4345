// Package handler implements the demo introspection API: read-only views
// into the scheduler's store plus a trigger-now action, the way the
// teacher's handler.JobHandler exposes its repository through gin.
package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/ErlanBelekov/jobcore"
	"github.com/ErlanBelekov/jobcore/internal/domain"
	"github.com/ErlanBelekov/jobcore/internal/keys"
	"github.com/gin-gonic/gin"
)

type SchedulerHandler struct {
	sched  *jobcore.Scheduler
	logger *slog.Logger
}

func NewSchedulerHandler(sched *jobcore.Scheduler, logger *slog.Logger) *SchedulerHandler {
	return &SchedulerHandler{sched: sched, logger: logger.With("component", "scheduler_handler")}
}

type jobResponse struct {
	Name                   string `json:"name"`
	Group                  string `json:"group"`
	JobClass               string `json:"job_class"`
	Durable                bool   `json:"durable"`
	RequestsRecovery       bool   `json:"requests_recovery"`
	DisallowConcurrentExec bool   `json:"disallow_concurrent_exec"`
}

type triggerStateResponse struct {
	Name  string `json:"name"`
	Group string `json:"group"`
	State string `json:"state"`
}

func formatState(s domain.TriggerState) string {
	switch s {
	case domain.StateWaiting:
		return "WAITING"
	case domain.StateAcquired:
		return "ACQUIRED"
	case domain.StateExecuting:
		return "EXECUTING"
	case domain.StateComplete:
		return "COMPLETE"
	case domain.StatePaused:
		return "PAUSED"
	case domain.StatePausedBlocked:
		return "PAUSED_BLOCKED"
	case domain.StateBlocked:
		return "BLOCKED"
	case domain.StateError:
		return "ERROR"
	default:
		return "NONE"
	}
}

func (h *SchedulerHandler) GetJob(c *gin.Context) {
	key := keys.NewJobKey(c.Param("name"), c.Param("group"))
	job, ok := h.sched.GetJobDetail(key)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": errJobNotFound})
		return
	}
	c.JSON(http.StatusOK, jobResponse{
		Name:                   job.Key.Name,
		Group:                  job.Key.Group,
		JobClass:               job.JobClass,
		Durable:                job.Durable,
		RequestsRecovery:       job.RequestsRecovery,
		DisallowConcurrentExec: job.DisallowConcurrentExec,
	})
}

func (h *SchedulerHandler) ListTriggersOfJob(c *gin.Context) {
	key := keys.NewJobKey(c.Param("name"), c.Param("group"))
	if _, ok := h.sched.GetJobDetail(key); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": errJobNotFound})
		return
	}
	triggers := h.sched.GetTriggersOfJob(key)
	resp := make([]triggerStateResponse, len(triggers))
	for i, tr := range triggers {
		th := tr.Header()
		resp[i] = triggerStateResponse{
			Name:  th.Key.Name,
			Group: th.Key.Group,
			State: formatState(h.sched.GetTriggerState(th.Key)),
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *SchedulerHandler) GetTriggerState(c *gin.Context) {
	key := keys.NewTriggerKey(c.Param("name"), c.Param("group"))
	state := h.sched.GetTriggerState(key)
	if state == domain.StateNone {
		c.JSON(http.StatusNotFound, gin.H{"error": errTriggerNotFound})
		return
	}
	c.JSON(http.StatusOK, triggerStateResponse{Name: key.Name, Group: key.Group, State: formatState(state)})
}

type triggerNowRequest struct {
	Data map[string]string `json:"data"`
}

func (h *SchedulerHandler) TriggerNow(c *gin.Context) {
	key := keys.NewJobKey(c.Param("name"), c.Param("group"))

	var req triggerNowRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidRequest})
			return
		}
	}

	if err := h.sched.TriggerNow(key, req.Data); err != nil {
		switch {
		case errors.Is(err, domain.ErrJobNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": errJobNotFound})
		default:
			h.logger.ErrorContext(c.Request.Context(), "trigger now", "job_key", key.String(), "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		}
		return
	}
	c.Status(http.StatusAccepted)
}

func (h *SchedulerHandler) PauseJob(c *gin.Context) {
	key := keys.NewJobKey(c.Param("name"), c.Param("group"))
	if _, ok := h.sched.GetJobDetail(key); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": errJobNotFound})
		return
	}
	h.sched.PauseJob(key)
	c.Status(http.StatusNoContent)
}

func (h *SchedulerHandler) ResumeJob(c *gin.Context) {
	key := keys.NewJobKey(c.Param("name"), c.Param("group"))
	if _, ok := h.sched.GetJobDetail(key); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": errJobNotFound})
		return
	}
	h.sched.ResumeJob(key)
	c.Status(http.StatusNoContent)
}
