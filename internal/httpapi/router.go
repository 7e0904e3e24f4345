package httpapi

import (
	"log/slog"

	"github.com/ErlanBelekov/jobcore"
	"github.com/ErlanBelekov/jobcore/internal/httpapi/handler"
	"github.com/ErlanBelekov/jobcore/internal/httpapi/middleware"
	"github.com/gin-gonic/gin"
	sloggin "github.com/samber/slog-gin"
)

// NewRouter wires the demo introspection API the way the teacher's
// NewRouter wires job/schedule routes: Recovery, RequestID, Security,
// structured-log middleware, metrics, then an auth-gated route group.
func NewRouter(logger *slog.Logger, sched *jobcore.Scheduler, hmacKey []byte) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Security())
	r.Use(sloggin.New(logger))
	r.Use(middleware.Metrics())

	h := handler.NewSchedulerHandler(sched, logger)
	authMW := middleware.Auth(hmacKey)

	jobs := r.Group("/jobs", authMW)
	jobs.GET("/:group/:name", h.GetJob)
	jobs.GET("/:group/:name/triggers", h.ListTriggersOfJob)
	jobs.POST("/:group/:name/trigger-now", h.TriggerNow)
	jobs.POST("/:group/:name/pause", h.PauseJob)
	jobs.POST("/:group/:name/resume", h.ResumeJob)

	triggers := r.Group("/triggers", authMW)
	triggers.GET("/:group/:name/state", h.GetTriggerState)

	return r
}
