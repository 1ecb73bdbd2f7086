package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"ampd/internal/config"
)

const version = "0.1.0"

// rootFlags carries the persistent flag values shared by all subcommands.
type rootFlags struct {
	configPath string
	logLevel   string
}

func buildRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "ampd",
		Short:         "Neural amp and cabinet simulation daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "Config file (.toml/.yaml/.json)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level: debug|info|warn|error")

	root.AddCommand(buildServeCmd(flags))
	root.AddCommand(buildRenderCmd(flags))
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println("ampd " + version)
		},
	})
	return root
}

// loadConfig merges the optional config file with flag and env overrides.
func loadConfig(flags *rootFlags) (config.Config, error) {
	var cfg config.Config
	if flags.configPath != "" {
		c, err := config.Load(flags.configPath)
		if err != nil {
			return cfg, err
		}
		cfg = c
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
		if v := os.Getenv("AMPD_ADDR"); v != "" {
			cfg.Addr = v
		}
	}
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	return cfg, nil
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}
