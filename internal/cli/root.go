package cli

import (
	"fmt"
	"path/filepath"

	"github.com/existflow/secureplan/internal/config"
	"github.com/existflow/secureplan/internal/logger"
	"github.com/spf13/cobra"
)

var (
	logLevel   string
	logFile    string
	logConsole bool

	// cfg is loaded once per invocation by the root pre-run hook
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "secureplan",
	Short: "SecurePlan - turn operational roadmaps into tracked team tasks",
	Long: `SecurePlan parses free-text operational plans into tasks, moves them through
a fixed four-stage workflow and keeps an activity log per project.

Run 'secureplan serve' to start the API server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Load config from file (or defaults if not exists)
		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded

		// Override with CLI flags if provided
		configChanged := false
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = logLevel
			configChanged = true
		}
		if cmd.Flags().Changed("log-file") {
			cfg.LogFile = logFile
			configChanged = true
		}
		if cmd.Flags().Changed("log-console") {
			cfg.LogConsole = logConsole
			configChanged = true
		}

		// Save config if changed via CLI flags
		if configChanged {
			if dir := config.Dir(); dir != "" {
				if err := cfg.SaveFile(filepath.Join(dir, "config.yaml")); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: failed to save config: %v\n", err)
				}
			}
		}

		logConfig := logger.Config{
			Level:      logger.ParseLevel(cfg.LogLevel),
			FilePath:   cfg.LogFile,
			MaxSize:    10 * 1024 * 1024, // 10MB
			MaxAge:     7,
			MaxBackups: 5,
			Console:    cfg.LogConsole,
		}

		if err := logger.Init(logConfig); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		logger.Debug("SecurePlan started", logger.F("command", cmd.Name()))
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Debug("SecurePlan exiting", logger.F("command", cmd.Name()))
		logger.Close()
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Add logging flags
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (DEBUG, INFO, WARN, ERROR)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Path to log file")
	rootCmd.PersistentFlags().BoolVar(&logConsole, "log-console", false, "Enable console logging")

	// Add subcommands
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(templatesCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(userCmd)
}
