package handlers

import (
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/core/ports"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/infrastructure/logger"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/transport/http/dto"
	"github.com/gofiber/fiber/v2"
)

type QueueHandler struct {
	queue  ports.QueueManager
	tasks  ports.TaskService
	logger *logger.Logger
}

func NewQueueHandler(queue ports.QueueManager, tasks ports.TaskService, logger *logger.Logger) *QueueHandler {
	return &QueueHandler{queue: queue, tasks: tasks, logger: logger}
}

// Process dequeues one batch and dispatches it. Per-task failures are part of
// a successful response; only a failed dequeue is an error.
func (h *QueueHandler) Process(c *fiber.Ctx) error {
	var req dto.ProcessQueueRequest
	if err := parseOptionalBody(c, &req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.BatchSize == 0 {
		req.BatchSize = c.QueryInt("batch_size", 0)
	}
	if errs := req.Validate(); len(errs) > 0 {
		return badRequest(c, "validation failed", errs...)
	}

	h.logger.Infow("queue_process_request", "batch_size", req.BatchSize)
	result, err := h.queue.ProcessQueue(c.UserContext(), req.BatchSize)
	if err != nil {
		return respondError(c, h.logger, "queue_process_failed", err)
	}
	return c.JSON(dto.OK(result))
}

func (h *QueueHandler) Status(c *fiber.Ctx) error {
	counts, err := h.tasks.StatusCounts(c.UserContext())
	if err != nil {
		return respondError(c, h.logger, "queue_status_failed", err)
	}
	return c.JSON(dto.OK(dto.NewQueueStatusResponse(counts)))
}
