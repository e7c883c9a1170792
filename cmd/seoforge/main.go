package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/seoforge/internal/common"
	"golang.org/x/term"
)

var (
	// Persistent flags
	configFiles []string // Multiple --config flags supported, later files win
	envFiles    []string
	serverPort  int
	serverHost  string

	// Global state, set by loadConfig
	config *common.Config
	logger arbor.ILogger
)

func main() {
	os.Exit(run())
}

func run() int {
	defer common.RecoverWithCrashFile()
	common.InstallCrashHandler(common.DefaultLogDir())

	if err := newRootCmd().Execute(); err != nil {
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "seoforge",
		Short:         "Generate SEO article content for keyword spreadsheets",
		Long:          `SeoForge imports keyword rows from XLSX/CSV, generates SEO content for each row with a language model and exports the results.`,
		Version:       common.GetVersion(),
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig()
		},
	}

	cmd.PersistentFlags().StringArrayVarP(&configFiles, "config", "c", nil, "Configuration file path (repeatable, later files override earlier ones)")
	cmd.PersistentFlags().StringArrayVar(&envFiles, "env-file", nil, "Dotenv file to load (repeatable, default .env)")
	cmd.PersistentFlags().IntVarP(&serverPort, "port", "p", 0, "Server port (overrides config)")
	cmd.PersistentFlags().StringVar(&serverHost, "host", "", "Server host (overrides config)")

	cmd.AddCommand(newServeCmd(), newBatchCmd(), newTopicsCmd(), newVersionCmd())
	return cmd
}

// loadConfig resolves configuration in priority order:
// defaults -> config files -> .env -> environment -> CLI flags
func loadConfig() error {
	if err := common.LoadDotEnv(envFiles...); err != nil {
		return err
	}

	// Auto-discover config file if not specified
	if len(configFiles) == 0 {
		for _, candidate := range []string{"seoforge.toml", "deployments/local/seoforge.toml"} {
			if _, err := os.Stat(candidate); err == nil {
				configFiles = append(configFiles, candidate)
				break
			}
		}
	}

	var err error
	config, err = common.LoadFromFiles(configFiles...)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	common.ApplyFlagOverrides(config, serverPort, serverHost)

	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if config.Logging.Dir != "" {
		common.InstallCrashHandler(config.Logging.Dir)
	}
	return nil
}

// initLogger builds the logger. With quiet set console output is dropped
// so a full-screen view owns the terminal.
func initLogger(quiet bool) arbor.ILogger {
	if quiet {
		outputs := make([]string, 0, len(config.Logging.Output))
		for _, output := range config.Logging.Output {
			if output != "stdout" && output != "console" {
				outputs = append(outputs, output)
			}
		}
		config.Logging.Output = outputs
	}

	logger = common.InitLogger(config)
	logger.Debug().
		Strs("config_files", configFiles).
		Str("log_level", config.Logging.Level).
		Strs("log_output", config.Logging.Output).
		Str("badger_path", config.Storage.Badger.Path).
		Msg("Resolved configuration (sanitized)")
	return logger
}

// isTerminal checks if the given file is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
