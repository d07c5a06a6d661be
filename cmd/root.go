package cmd

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"lexilens/internal/config"
	"lexilens/internal/logger"
)

var version = "1.0.0"

var (
	appConfig *config.Config
	configErr error
)

var rootCmd = &cobra.Command{
	Use:   "lexilens",
	Short: "Lexilens - read scanned pages and build a vocabulary deck",
	Long: `Lexilens imports screenshots and PDFs, recognizes their words with
Google Cloud OCR and lets you look up words and sentences on the page.
Looked up words and sentences are saved as annotations anchored to the
page, and highlighted sentences are scheduled for spaced repetition.

Settings are read from the environment (and a .env file). Gesture and
reader tuning can be overridden with a TOML file named by LEXILENS_CONFIG.`,
	Version:      version,
	SilenceUsage: true,
}

// Execute runs the root command with the loaded configuration. cfgErr is
// reported by commands that need the configuration.
func Execute(cfg *config.Config, cfgErr error) {
	appConfig, configErr = cfg, cfgErr
	log := logger.WithComponent("cmd")

	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("Command panicked")
			fmt.Fprintln(os.Stderr, "Error: something went wrong. Run with LOG_LEVEL=debug for details.")
			os.Exit(2)
		}
	}()

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func currentConfig() (*config.Config, error) {
	if configErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", configErr)
	}
	if appConfig == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	return appConfig, nil
}
