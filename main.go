package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	app "github.com/rocketscienceinc/tictactoe-relay/internal"
	"github.com/rocketscienceinc/tictactoe-relay/internal/config"
)

// main - is the entry point of the application. It initializes the configuration, logger, and runs the application.
func main() {
	defer func() {
		if err := recover(); err != nil {
			fmt.Fprintf(os.Stderr, "recovered from panic: %v\n", err)
			os.Exit(1)
		}
	}()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
	}

	cmd := &cli.Command{
		Name:  "tictactoe-relay",
		Usage: "two-player tic-tac-toe relay over length-prefixed TCP frames",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "path to the YAML config file; empty reads the environment only",
				Value:   "config.yml",
				Sources: cli.EnvVars("CONFIG_PATH"),
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "overrides log-level from the config (debug, info, warn, error)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			conf := initConfig(cmd.String("config"))
			if level := cmd.String("log-level"); level != "" {
				conf.LogLevel = level
			}

			logger := initLogger(conf)

			if err := app.RunApp(ctx, logger, conf); err != nil {
				return fmt.Errorf("app run failed: %w", err)
			}

			return nil
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}

// initialize config.
func initConfig(path string) *config.Config {
	if path == "" {
		return config.MustLoad("")
	}

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return config.MustLoad("")
	}

	return config.MustLoad(path)
}

// initialize logger.
func initLogger(conf *config.Config) *slog.Logger {
	var level slog.Level

	switch conf.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
