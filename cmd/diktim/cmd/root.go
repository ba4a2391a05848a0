package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/adverant/nexus/diktim-ocr/internal/config"
	"github.com/adverant/nexus/diktim-ocr/internal/logging"
)

// Version is set at build time.
var Version = "dev"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "diktim",
	Short: "OCR and spelling analysis for Albanian dictation exercises",
	Long: `diktim reads a photo of a dictation exercise, extracts its text and reports
spelling issues, either against the expected text or against the exercise corpus.

Examples:
  diktim analyze photo.jpg --expected "Unë shkoj në shkollë"
  diktim serve
  diktim worker`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCommand returns the root command for testing purposes.
func GetRootCommand() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml); environment variables override it")
}

// loadConfig reads the configuration and applies the logging settings.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := logging.Configure(cfg.LogLevel, cfg.LogFormat); err != nil {
		return nil, fmt.Errorf("invalid logging configuration: %w", err)
	}
	return cfg, nil
}
