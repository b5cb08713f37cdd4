package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/repchat/internal/api"
	"github.com/repchat/internal/assistant"
	"github.com/repchat/internal/config"
	"github.com/repchat/internal/engine"
	"github.com/repchat/internal/logging"
	"github.com/repchat/internal/store"
)

// ServeCommand returns the CLI command for starting the API server
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the repchat API server",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port for the API server (overrides config)",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.LoadConfig(c.String("config"))
			if err != nil {
				return err
			}
			if err := config.Validate(cfg); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
			log := logging.Component("serve")

			port := cfg.Server.Port
			if c.IsSet("port") {
				port = c.Int("port")
			}

			st, err := store.NewPostgresStore(context.Background(), cfg.Database.URL)
			if err != nil {
				return fmt.Errorf("failed to open store: %w", err)
			}
			defer st.Close()

			svc := assistant.NewOpenAIService(
				cfg.Assistant.APIKey,
				cfg.Assistant.AssistantID,
				cfg.Assistant.BaseURL,
			)

			eng := engine.New(svc, st, engine.Config{
				PollInterval:  cfg.Engine.PollInterval,
				PollDeadline:  cfg.Engine.PollDeadline,
				RetryAttempts: cfg.Engine.RetryAttempts,
				RetryDelay:    cfg.Engine.RetryDelay,
			}, logging.Component("engine"))

			log.Info().Int("port", port).Msg("starting repchat API server")
			server := api.NewServer(port, eng, st)
			return server.Start()
		},
	}
}
