package main

import (
	"context"
	"os"

	"github.com/robfig/cron/v3"
	cli "github.com/urfave/cli/v3"

	"github.com/agentrangers/ranger/pkg/cmd"
	"github.com/agentrangers/ranger/pkg/config"
	"github.com/agentrangers/ranger/pkg/gitops"
	"github.com/agentrangers/ranger/pkg/log"
	"github.com/agentrangers/ranger/pkg/orchestrator"
	"github.com/agentrangers/ranger/pkg/workspace"
)

func main() {
	logger := log.WithModule("api")

	command := &cli.Command{
		Name:                  "ranger-api",
		Usage:                 "Run the agent workflow API server",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML configuration file",
				Sources: cli.EnvVars("RANGER_CONFIG"),
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Database connection URL for persistence",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (memory, kafka)",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			cfg, err := config.Load(command.String("config"))
			if err != nil {
				return err
			}

			// Flags override the file and environment.
			if command.String("log-level") != "" {
				cfg.LogLevel = command.String("log-level")
			}

			if command.Int("port") != 0 {
				cfg.Port = int(command.Int("port"))
			}

			if command.String("database-url") != "" {
				cfg.DatabaseURL = command.String("database-url")
			}

			if command.String("event-bus") != "" {
				cfg.EventBus = command.String("event-bus")
			}

			log.Setup(cfg.LogLevel)

			logger.InfoContext(ctx, "Initializing Ranger API",
				"port", cfg.Port, "event_bus", cfg.EventBus)

			persistence := cmd.NewPersistence(cfg.DatabaseURL)
			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(cfg.EventBus, "ranger-api", logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			registry := cmd.NewProviderRegistry(cfg.Providers, logger)

			service := orchestrator.NewService(
				persistence,
				registry,
				gitops.NewReconciler(logger),
				workspace.NewResolver(cfg.WorkspaceRoot, logger),
				eventBus,
				logger,
				orchestrator.Config{
					MaxIterations: cfg.MaxIterations,
					PhaseTimeout:  cfg.PhaseTimeout,
					StaleAfter:    cfg.StaleAfter,
				},
			)

			scheduler := cron.New()

			_, err = scheduler.AddFunc(cfg.StaleSweepSchedule, func() {
				if _, sweepErr := service.SweepStale(context.Background()); sweepErr != nil {
					logger.Error("Stale execution sweep failed", "error", sweepErr)
				}
			})
			if err != nil {
				return err
			}

			scheduler.Start()
			defer scheduler.Stop()

			api := NewAPI(logger, persistence, service)

			return api.Start(cfg.Port)
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
