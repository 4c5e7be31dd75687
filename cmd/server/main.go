package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/bootstrap"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/config"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/infrastructure/logger"
	transporthttp "github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/transport/http"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/transport/http/dto"
	httpmw "github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/transport/http/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func main() {
	configPath := os.Getenv("FLEET_CONFIG")
	if configPath == "" {
		configPath = "config/config.yaml"
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "../config/config.yaml"
		}
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log, err := logger.New(cfg.Logger)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()

	if cfg.Features.WatchConfig {
		config.WatchLogLevel(log.SetLevel)
	}

	startCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	svc, err := bootstrap.Open(startCtx, cfg, log)
	cancel()
	if err != nil {
		log.Fatalf("failed to start services: %v", err)
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
		IdleTimeout:           cfg.Server.IdleTimeout,
		ErrorHandler:          globalErrorHandler(log),
		DisableStartupMessage: true,
	})

	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	allowedOrigins := "http://localhost:3000"
	if len(cfg.Auth.AllowedOrigins) > 0 {
		allowedOrigins = strings.Join(cfg.Auth.AllowedOrigins, ",")
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Admin-Token, " + cfg.Features.RequestIDHeader,
		AllowMethods: "GET, POST, HEAD",
	}))

	app.Use(httpmw.RequestID(cfg.Features.RequestIDHeader))
	if cfg.Features.EnableRequestLogging {
		app.Use(httpmw.AccessLog(log))
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	transporthttp.SetupRoutes(app, transporthttp.RouterConfig{
		Services: svc,
		Logger:   log,
		Config:   cfg,
	})

	host := cfg.Server.Host
	ports := []int{cfg.Server.Port, cfg.Server.Port + 1}

	var ln net.Listener
	var addr string
	for _, p := range ports {
		a := fmt.Sprintf("%s:%d", host, p)
		l, err := net.Listen("tcp4", a)
		if err == nil {
			ln = l
			addr = a
			cfg.Server.Port = p
			break
		}
		log.Warnw("port unavailable", "addr", a, "error", err)
	}
	if ln == nil {
		svc.Close()
		log.Fatalf("server failed to start: no available port")
	}

	go func() {
		if err := app.Listener(ln); err != nil {
			log.Fatalf("server failed to start: %v", err)
		}
	}()

	log.Infof("server started on %s", addr)

	gracefulShutdown(app, svc, log)
}

func globalErrorHandler(log *logger.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
		}

		if code < fiber.StatusInternalServerError {
			log.Warnw("request failed",
				"method", c.Method(),
				"path", c.Path(),
				"status", code,
				"error", err.Error(),
				"request_id", c.Locals(httpmw.RequestIDKey),
			)
		} else {
			log.Errorw("request error",
				"method", c.Method(),
				"path", c.Path(),
				"status", code,
				"error", err.Error(),
				"request_id", c.Locals(httpmw.RequestIDKey),
			)
		}

		envelopeCode := dto.CodeInternal
		switch code {
		case fiber.StatusNotFound:
			envelopeCode = dto.CodeNotFound
		case fiber.StatusBadRequest, fiber.StatusMethodNotAllowed, fiber.StatusRequestEntityTooLarge:
			envelopeCode = dto.CodeValidation
		case fiber.StatusUnauthorized:
			envelopeCode = dto.CodeUnauthorized
		}
		return c.Status(code).JSON(dto.Fail(envelopeCode, err.Error()))
	}
}

func gracefulShutdown(app *fiber.App, svc *bootstrap.Services, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Errorf("server forced to shutdown: %v", err)
	}

	svc.Close()

	log.Info("server exited gracefully")
}
