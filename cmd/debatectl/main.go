// Command debatectl runs the debate pipeline and inspects stored debates
// from the command line.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"ai-debate-graph-service/internal/app"
	"ai-debate-graph-service/internal/config"
)

func main() {
	if err := execute(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}

// execute runs one command line and releases the application afterwards,
// whether or not the command failed.
func execute(args []string, out, logOut io.Writer) error {
	c := &cli{out: out, logOut: logOut}
	root := c.rootCmd()
	root.SetArgs(args)
	defer func() {
		if c.app != nil {
			c.app.Shutdown()
		}
	}()
	return root.Execute()
}

type cli struct {
	out    io.Writer
	logOut io.Writer

	configFile string
	storePath  string
	logLevel   string

	app *app.Application
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "debatectl",
		Short:        "Build and inspect debate argument graphs",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.open(cmd)
		},
	}
	root.SetOut(c.out)
	root.SetErr(c.logOut)

	pf := root.PersistentFlags()
	pf.StringVar(&c.configFile, "config", "", "YAML config file (overrides CONFIG_FILE)")
	pf.StringVar(&c.storePath, "store", "", "SQLite database path (overrides STORE_PATH)")
	pf.StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		c.analyzeCmd(),
		c.importCmd(),
		c.showCmd(),
		c.listCmd(),
		c.deleteCmd(),
	)
	return root
}

// open loads configuration and wires the application. Logs go to logOut so
// stdout carries only command output.
func (c *cli) open(cmd *cobra.Command) error {
	if c.configFile != "" {
		if err := os.Setenv("CONFIG_FILE", c.configFile); err != nil {
			return err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("store") {
		cfg.Store.Path = c.storePath
	}
	if c.logLevel != "" {
		cfg.Observability.LogLevel = c.logLevel
	} else if os.Getenv("LOG_LEVEL") == "" {
		cfg.Observability.LogLevel = "warn"
	}
	cfg.Observability.LogFormat = "console"

	a, err := app.New(cfg, app.WithLogOutput(c.logOut))
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}
	c.app = a
	return nil
}
