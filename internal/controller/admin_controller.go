package controller

import (
	"errors"
	"time"

	"marketplace-be/internal/dto"
	"marketplace-be/internal/pkg/logger"
	"marketplace-be/internal/pkg/serverutils"
	"marketplace-be/internal/service"
	"marketplace-be/pkg/events"

	"github.com/gofiber/fiber/v2"
)

// LogReader is implemented by *logger.ZapLogger.
type LogReader interface {
	GetLogs(level string, limit, offset int) ([]logger.LogEntry, error)
	GetLogById(id string) (*logger.LogEntry, error)
}

type IAdminController interface {
	RegisterRoutes(r fiber.Router, auth fiber.Handler)
	RunJob(ctx *fiber.Ctx) error
	GetSubscriptionStats(ctx *fiber.Ctx) error
	GetLogs(ctx *fiber.Ctx) error
	GetLogDetail(ctx *fiber.Ctx) error
}

type adminController struct {
	jobs          service.IJobService
	subscriptions service.ISubscriptionService
	publisher     events.Publisher
	logs          LogReader
}

// NewAdminController accepts a nil publisher; async job triggers then answer 503.
func NewAdminController(jobs service.IJobService, subscriptions service.ISubscriptionService, publisher events.Publisher, logs LogReader) IAdminController {
	return &adminController{
		jobs:          jobs,
		subscriptions: subscriptions,
		publisher:     publisher,
		logs:          logs,
	}
}

func (c *adminController) RegisterRoutes(r fiber.Router, auth fiber.Handler) {
	h := r.Group("/admin", auth, serverutils.AdminOnly)

	// Jobs
	h.Post("/jobs/:job", c.RunJob)

	h.Get("/subscriptions/stats", c.GetSubscriptionStats)

	// Logs
	h.Get("/logs", c.GetLogs)
	h.Get("/logs/:id", c.GetLogDetail)
}

// RunJob runs reminders or expire inline and returns the summary. With
// ?async=true the trigger goes to the event bus and the scheduler runs it.
func (c *adminController) RunJob(ctx *fiber.Ctx) error {
	var req dto.TriggerJobRequest
	if err := ctx.QueryParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid query")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}
	job := ctx.Params("job")

	if ctx.QueryBool("async") {
		if c.publisher == nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, "Event publisher not configured")
		}
		evt := events.BaseEvent{
			Type:       events.TypeJobTriggered,
			Data:       map[string]interface{}{"job": job, "days": req.Days},
			OccurredAt: time.Now(),
		}
		if err := c.publisher.Publish(ctx.UserContext(), evt); err != nil {
			return err
		}
		return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Job queued", fiber.Map{"job": job}))
	}

	summary, err := c.jobs.Run(ctx.UserContext(), job, req.Days)
	if err != nil {
		if errors.Is(err, service.ErrJobRunning) {
			return fiber.NewError(fiber.StatusConflict, err.Error())
		}
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse(summary.Message, summary))
}

func (c *adminController) GetSubscriptionStats(ctx *fiber.Ctx) error {
	counts, err := c.subscriptions.CountByStatus(ctx.UserContext())
	if err != nil {
		return err
	}
	out := make(map[string]int64, len(counts))
	for status, n := range counts {
		out[string(status)] = n
	}
	return ctx.JSON(serverutils.SuccessResponse("Subscription counts", out))
}

func (c *adminController) GetLogs(ctx *fiber.Ctx) error {
	limit := ctx.QueryInt("limit", 50)
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	offset := ctx.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	entries, err := c.logs.GetLogs(ctx.Query("level"), limit, offset)
	if err != nil {
		return err
	}

	res := make([]dto.LogListResponse, len(entries))
	for i, e := range entries {
		res[i] = toLogListResponse(e)
	}
	return ctx.JSON(serverutils.SuccessResponse("Logs", res))
}

func (c *adminController) GetLogDetail(ctx *fiber.Ctx) error {
	entry, err := c.logs.GetLogById(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "Log not found")
	}
	return ctx.JSON(serverutils.SuccessResponse("Log detail", dto.LogDetailResponse{
		LogListResponse: toLogListResponse(*entry),
		Details:         entry.Details,
	}))
}

func toLogListResponse(e logger.LogEntry) dto.LogListResponse {
	return dto.LogListResponse{
		Id:        e.Id,
		Level:     e.Level,
		Module:    e.Module,
		Message:   e.Message,
		Timestamp: e.Timestamp,
	}
}
