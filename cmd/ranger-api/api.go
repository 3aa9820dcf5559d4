// Package main provides the Ranger API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/agentrangers/ranger/pkg/orchestrator"
	"github.com/agentrangers/ranger/pkg/persistence"
	"github.com/agentrangers/ranger/pkg/web"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	service     *orchestrator.Service
}

func NewAPI(logger *slog.Logger, p persistence.Persistence, service *orchestrator.Service) *API {
	return &API{
		logger:      logger,
		persistence: p,
		service:     service,
	}
}

func (a *API) App() *fiber.App {
	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Ranger API")
	})

	web.SetupRoutes(app, web.NewAPIHandlers(a.service, a.persistence, a.logger))

	return app
}

func (a *API) Start(port int) error {
	return a.App().Listen(":" + strconv.Itoa(port))
}
