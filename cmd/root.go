package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hairvision-ai/hairvision/internal/config"
)

// app carries the loaded configuration to subcommands.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
}

func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	cmd := &cobra.Command{
		Use:   "hairvision",
		Short: "Hairstyle analysis server with a remote-controlled customer display",
		Long: `HairVision analyzes four head photos with a vision model, streams the
analysis to the browser, renders previews of the recommended styles and lets a
control device drive a customer-facing display through a shared session code.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
			return a.load()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default: ./hairvision.yaml or $HOME/.config/hairvision/hairvision.yaml)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text, json)")
	flags.String("server", "http://localhost:8888", "base URL of a running server, for client commands")
	_ = a.v.BindPFlag("logging.level", flags.Lookup("log-level"))
	_ = a.v.BindPFlag("logging.format", flags.Lookup("log-format"))
	_ = a.v.BindPFlag("server_url", flags.Lookup("server"))

	cmd.AddCommand(newServeCmd(a))
	cmd.AddCommand(newAnalyzeCmd(a))
	cmd.AddCommand(newSessionCmd(a))
	cmd.AddCommand(newControlCmd(a))
	cmd.AddCommand(newVisualizeCmd(a))
	cmd.AddCommand(newExportCmd(a))
	cmd.AddCommand(newConfigCmd(a))
	cmd.AddCommand(newCodeCmd())

	return cmd
}

func (a *app) load() error {
	if err := config.Init(a.v, a.cfgFile); err != nil {
		return err
	}
	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	logger, err := config.NewLogger(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	slog.SetDefault(logger)
	if used := a.v.ConfigFileUsed(); used != "" {
		slog.Debug("Loaded config file", "path", used)
	}
	a.cfg = cfg
	return nil
}
