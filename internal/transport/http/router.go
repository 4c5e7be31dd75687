package http

import (
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/bootstrap"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/config"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/domain"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/infrastructure/logger"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/transport/http/handlers"
	httpmw "github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/transport/http/middleware"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

type RouterConfig struct {
	Services *bootstrap.Services
	Logger   *logger.Logger
	Config   *config.Config
}

func SetupRoutes(app *fiber.App, cfg RouterConfig) {
	svc := cfg.Services

	queueHandler := handlers.NewQueueHandler(svc.Queue, svc.Tasks, cfg.Logger)
	taskHandler := handlers.NewTaskHandler(svc.Tasks, cfg.Logger)
	workerHandler := handlers.NewWorkerHandler(svc.Registry, svc.Router, cfg.Logger)
	evolutionHandler := handlers.NewEvolutionHandler(svc.Evolution, svc.Proposals, cfg.Logger)
	heartbeatHandler := handlers.NewHeartbeatHandler(svc.Heartbeat, cfg.Logger)
	auditHandler := handlers.NewAuditHandler(svc.Repos.Audit, cfg.Logger)

	admin := httpmw.AdminAuth(cfg.Config)
	trigger := httpmw.TriggerAuth(cfg.Config)

	// Live event feed
	if cfg.Config.Features.EnableEventStream {
		eventsHandler := handlers.NewEventsHandler(svc.Hub, cfg.Logger)
		app.Use("/ws", func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				c.Locals("allowed", true)
				return c.Next()
			}
			return c.SendStatus(fiber.StatusUpgradeRequired)
		})
		app.Get("/ws/events", admin, websocket.New(eventsHandler.Stream))
	}

	// API v1 routes
	api := app.Group("/api/v1")

	// Queue routes
	api.Post("/queue/process", trigger, queueHandler.Process)
	api.Get("/queue/status", admin, queueHandler.Status)

	// Evolution routes
	api.Post("/evolution/micro", trigger, evolutionHandler.RunCycle(domain.CadenceMicro))
	api.Post("/evolution/tactical", trigger, evolutionHandler.RunCycle(domain.CadenceTactical))
	api.Post("/evolution/strategic", trigger, evolutionHandler.RunCycle(domain.CadenceStrategic))
	api.Post("/evolution/apply", admin, evolutionHandler.ApplyProposal)
	api.Get("/evolution/apply", admin, evolutionHandler.ProposalHistory)
	api.Post("/evolution/proposals", admin, evolutionHandler.CreateProposal)
	api.Get("/evolution/cycles", admin, evolutionHandler.Cycles)

	// Task routes
	tasks := api.Group("/tasks", admin)
	tasks.Post("/", taskHandler.Submit)
	tasks.Get("/", taskHandler.List)
	tasks.Get("/:id", taskHandler.Get)

	// Worker routes
	workers := api.Group("/workers", admin)
	workers.Get("/", workerHandler.List)
	workers.Post("/route", workerHandler.Route)
	workers.Get("/:id", workerHandler.Get)

	// Heartbeat routes
	api.Post("/heartbeat/sample", trigger, heartbeatHandler.Sample)
	api.Get("/heartbeat/health", admin, heartbeatHandler.Health)

	// Audit routes
	api.Get("/audit", admin, auditHandler.GetEvents)
}
