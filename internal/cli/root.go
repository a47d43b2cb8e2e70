// Package cli wires the xloractl command tree: inspecting X-LoRA
// adapter checkpoints and querying a local inference server.
package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"xloractl/internal/client"
	"xloractl/internal/config"
)

// app carries the resolved configuration and logger shared by commands.
type app struct {
	cfg config.Config
	log zerolog.Logger
}

// envOr returns the value of the environment variable key, or def.
func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Execute runs the command tree and returns a process exit code.
func Execute(args []string) int {
	root := NewRootCmd()
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

// NewRootCmd constructs the root command with persistent flags.
// Precedence per setting: flag > config file > environment > default.
func NewRootCmd() *cobra.Command {
	a := &app{}
	var configPath string

	root := &cobra.Command{
		Use:           "xloractl",
		Short:         "Inspect X-LoRA adapter checkpoints and query a local inference server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to a config file (.yaml, .json or .toml)")
	root.PersistentFlags().String("base-url", envOr("XLORACTL_BASE_URL", client.DefaultBaseURL), "Base URL of the inference server")
	root.PersistentFlags().String("model", client.DefaultModel, "Model identifier sent with requests")
	root.PersistentFlags().String("log-level", envOr("XLORACTL_LOG_LEVEL", "warn"), "Log level: debug|info|warn|error")

	root.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		if configPath != "" {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			a.cfg = cfg
		}
		flags := cmd.Flags()
		if v, _ := flags.GetString("base-url"); flags.Changed("base-url") || a.cfg.BaseURL == "" {
			a.cfg.BaseURL = v
		}
		if v, _ := flags.GetString("model"); flags.Changed("model") || a.cfg.Model == "" {
			a.cfg.Model = v
		}
		if v, _ := flags.GetString("log-level"); flags.Changed("log-level") || a.cfg.LogLevel == "" {
			a.cfg.LogLevel = v
		}
		lvl, err := zerolog.ParseLevel(a.cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("invalid log level %q", a.cfg.LogLevel)
		}
		a.log = zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).
			With().Timestamp().Logger().Level(lvl)
		return nil
	}

	root.AddCommand(newKeysCmd(a))
	root.AddCommand(newChatCmd(a))
	root.AddCommand(newCompleteCmd(a))
	root.AddCommand(newServeStubCmd(a))
	return root
}
