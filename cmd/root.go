package cmd

import (
	"context"
	"io"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Rorical/RoriChat/internal/app"
	"github.com/Rorical/RoriChat/internal/config"
	"github.com/Rorical/RoriChat/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "rorichat",
	Short: "Terminal client for a conversational agent endpoint",
	Long: `RoriChat talks to a remote conversational agent over HTTP, streaming the
agent's reply into the terminal as it arrives.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadDotEnv()
	},
	Run: func(cmd *cobra.Command, args []string) {
		if err := runChat(cmd.Context()); err != nil {
			log.Fatalf("Application error: %v", err)
		}
	},
}

func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Printf("Command execution error: %v", err)
		os.Exit(1)
	}
}

func init() {
	// Add subcommands
	rootCmd.AddCommand(profileCmd)
}

// loadDotEnv reads .env from the working directory when present.
func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to load .env")
	}
	return nil
}

// setup loads the config and opens the log file it names.
func setup() (*config.Config, zerolog.Logger, io.Closer, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, zerolog.Nop(), nil, err
	}

	logPath, err := cfg.GetLogFile()
	if err != nil {
		return nil, zerolog.Nop(), nil, errors.Wrap(err, "failed to resolve log file")
	}

	logger, closer, err := logging.Setup(logPath, cfg.GetLogLevel())
	if err != nil {
		return nil, zerolog.Nop(), nil, err
	}
	return cfg, logger, closer, nil
}

func runChat(ctx context.Context) error {
	cfg, logger, closer, err := setup()
	if err != nil {
		return err
	}
	defer closer.Close()

	application, err := app.NewApplication(cfg, logger)
	if err != nil {
		return errors.Wrap(err, "failed to create application")
	}
	defer application.Stop()

	return application.Start(ctx)
}
