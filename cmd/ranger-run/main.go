// ranger-run executes one agent workflow for an ad-hoc task and prints the
// result, without requiring the API server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	"github.com/agentrangers/ranger/pkg/cmd"
	"github.com/agentrangers/ranger/pkg/config"
	"github.com/agentrangers/ranger/pkg/gitops"
	"github.com/agentrangers/ranger/pkg/log"
	"github.com/agentrangers/ranger/pkg/models"
	"github.com/agentrangers/ranger/pkg/orchestrator"
	"github.com/agentrangers/ranger/pkg/workspace"
)

func main() {
	logger := log.WithModule("run")

	command := &cli.Command{
		Name:      "ranger-run",
		Usage:     "Run one agent workflow for a task",
		ArgsUsage: "<title>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML configuration file",
				Sources: cli.EnvVars("RANGER_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Database connection URL for persistence",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "description",
				Aliases: []string{"d"},
				Usage:   "Task description",
			},
			&cli.StringFlag{
				Name:  "workflow",
				Usage: "Workflow type (development, quick_development, architecture_only, review_only, auto)",
				Value: "auto",
			},
			&cli.StringFlag{
				Name:    "repository",
				Aliases: []string{"r"},
				Usage:   "Repository path the developer agent works in",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			title := command.Args().First()
			if title == "" {
				return fmt.Errorf("a task title is required")
			}

			cfg, err := config.Load(command.String("config"))
			if err != nil {
				return err
			}

			if command.String("log-level") != "" {
				cfg.LogLevel = command.String("log-level")
			}

			if command.String("database-url") != "" {
				cfg.DatabaseURL = command.String("database-url")
			}

			log.Setup(cfg.LogLevel)

			description := command.String("description")

			workflowType := models.WorkflowType(command.String("workflow"))
			if command.String("workflow") == "auto" {
				workflowType = orchestrator.RecommendWorkflow(title, description)
				logger.InfoContext(ctx, "Recommended workflow", "workflow_type", workflowType)
			}

			persistence := cmd.NewPersistence(cfg.DatabaseURL)
			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus("memory", "ranger-run", logger)
			defer func() { _ = eventBus.Close() }()

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

			now := time.Now().UTC()
			board := &models.Board{
				ID:        uuid.New().String(),
				Name:      "ad-hoc",
				CreatedAt: now,
				UpdatedAt: now,
			}

			task := &models.Task{
				ID:             uuid.New().String(),
				BoardID:        board.ID,
				Title:          title,
				Description:    description,
				RepositoryPath: command.String("repository"),
				CreatedAt:      now,
				UpdatedAt:      now,
			}

			if err := persistence.BoardRepository().Save(ctx, board); err != nil {
				return err
			}

			if err := persistence.TaskRepository().Save(ctx, task); err != nil {
				return err
			}

			execution, err := service.CreateExecution(ctx, task.ID, board.ID, workflowType, nil)
			if err != nil {
				return err
			}

			if err := service.StartExecution(ctx, execution.ID); err != nil {
				logger.ErrorContext(ctx, "Execution failed", "error", err)
			}

			final, err := service.GetExecution(ctx, execution.ID)
			if err != nil {
				return err
			}

			encoded, err := json.MarshalIndent(final, "", "  ")
			if err != nil {
				return err
			}

			fmt.Println(string(encoded))

			if final.Status != models.ExecutionCompleted {
				os.Exit(1)
			}

			return nil
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		logger.Error("ranger-run failed", "error", err)
		os.Exit(1)
	}
}
