package main

import (
	"os"

	"github.com/spf13/cobra"

	"fskit/internal/config"
	"fskit/internal/logging"
	"fskit/internal/version"
)

var (
	allowWriteFlag  bool
	enableRootsFlag bool
	logLevelFlag    string
	logFormatFlag   string
)

var rootCmd = &cobra.Command{
	Use:   "fskit [flags] DIRECTORY...",
	Short: "fskit - sandboxed filesystem MCP server",
	Long: `fskit exposes filesystem search and inspection tools to MCP clients,
restricted to an explicit set of allowed directories. Search tools cover
file names, file contents, syntax-tree patterns, duplicate detection and
directory structure.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("fskit version {{.Version}}\n")
	rootCmd.PersistentFlags().BoolVar(&allowWriteFlag, "allow-write", false,
		"Enable mutating access modes (default: read-only)")
	rootCmd.PersistentFlags().BoolVar(&enableRootsFlag, "enable-roots", false,
		"Let MCP clients replace the allowed directories via the roots capability")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "",
		"Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormatFlag, "log-format", "",
		"Log format: human or json")
}

// loadConfig loads .fskit/config.json from the working directory and
// overlays the CLI flags. Positional directories replace the configured
// allowed list.
func loadConfig(args []string) (*config.Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadConfig(wd)
	if err != nil {
		return nil, err
	}

	if len(args) > 0 {
		cfg.AllowedDirectories = args
	}
	if allowWriteFlag {
		cfg.AllowWrite = true
	}
	if enableRootsFlag {
		cfg.EnableRoots = true
	}
	if logLevelFlag != "" {
		cfg.Logging.Level = logLevelFlag
	}
	if logFormatFlag != "" {
		cfg.Logging.Format = logFormatFlag
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the process logger from config. Logs always go to
// stderr so the MCP protocol owns stdout.
func newLogger(cfg *config.Config) *logging.Logger {
	return logging.NewLogger(logging.Config{
		Format: logging.Format(cfg.Logging.Format),
		Level:  logging.LogLevel(cfg.Logging.Level),
		Output: os.Stderr,
	})
}
