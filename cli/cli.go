// Package cli implements the forcegraph command-line interface.
//
// # Commands
//
//   - render: lay out a graph file headlessly and write SVG or PNG
//   - serve: host graphs and live views over HTTP
//   - version: print build information
//
// Settings come from forcegraph.toml, FORCEGRAPH_ environment variables and
// flags, in increasing priority.
package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/TFMV/forcegraph/config"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

// SetVersion sets the version information displayed by --version.
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	verbose    bool
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: log.NewWithOptions(w, log.Options{
			ReportTimestamp: true,
			TimeFormat:      "15:04:05.00",
			Level:           level,
		}),
	}
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "forcegraph",
		Short:        "Force-directed graph layout and rendering",
		Long:         `forcegraph lays out node-link graphs with a force simulation and renders them as SVG or PNG, from the command line or over HTTP.`,
		Version:      version,
		SilenceUsage: true,
	}
	root.SetVersionTemplate("forcegraph {{.Version}}\n")

	pf := root.PersistentFlags()
	pf.StringVarP(&c.configPath, "config", "c", "", "config file (default ./"+config.DefaultFile+" if present)")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.BoolVarP(&c.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(c.renderCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.versionCommand())
	return root
}

// loadConfig resolves configuration for cmd and applies the log level.
func (c *CLI) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.Flags(), c.configPath)
	if err != nil {
		return nil, err
	}
	level := cfg.LogLevel()
	if c.verbose {
		level = log.DebugLevel
	}
	c.Logger.SetLevel(level)
	return cfg, nil
}

func (c *CLI) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "forcegraph %s\n", version)
			if commit != "" {
				fmt.Fprintf(out, "commit: %s\n", commit)
			}
			if date != "" {
				fmt.Fprintf(out, "built: %s\n", date)
			}
		},
	}
}
