package handlers

import (
	"strings"

	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/core/ports"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/domain"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/infrastructure/logger"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/transport/http/dto"
	"github.com/gofiber/fiber/v2"
)

type TaskHandler struct {
	service ports.TaskService
	logger  *logger.Logger
}

func NewTaskHandler(service ports.TaskService, logger *logger.Logger) *TaskHandler {
	return &TaskHandler{service: service, logger: logger}
}

func (h *TaskHandler) Submit(c *fiber.Ctx) error {
	var req dto.SubmitTaskRequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.Warnw("task_submit_body_parse_failed", "error", err)
		return badRequest(c, "invalid request body")
	}
	if errs := req.Validate(); len(errs) > 0 {
		h.logger.Warnw("task_submit_validation_failed", "details", errs)
		return badRequest(c, "validation failed", errs...)
	}

	task, err := h.service.Submit(c.UserContext(), ports.SubmitTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.GetPriority(),
	})
	if err != nil {
		return respondError(c, h.logger, "task_submit_failed", err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.OK(task))
}

func (h *TaskHandler) List(c *fiber.Ctx) error {
	filter := ports.TaskFilter{
		Status:   domain.TaskStatus(strings.ToUpper(c.Query("status"))),
		WorkerID: c.Query("worker_id"),
		Limit:    c.QueryInt("limit", 100),
	}
	tasks, err := h.service.ListTasks(c.UserContext(), filter)
	if err != nil {
		return respondError(c, h.logger, "task_list_failed", err)
	}
	return c.JSON(dto.OK(tasks))
}

func (h *TaskHandler) Get(c *fiber.Ctx) error {
	task, err := h.service.GetTask(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, h.logger, "task_get_failed", err)
	}
	return c.JSON(dto.OK(task))
}
