package main

import (
	"fmt"
	"io"

	"github.com/hupe1980/hookmesh"
	"github.com/hupe1980/hookmesh/logging"
	"github.com/spf13/cobra"
)

const rootShortDescription = `Dispatch hooks against Lua plugins`
const rootLongDescription = `hookctl loads Lua plugin scripts into one hook table and dispatches
filters and actions against it.

Scripts register callbacks with require("hooks"):

  local hooks = require("hooks")
  hooks.add_filter("title", function(s) return s .. "!" end, 20)
`

type rootCommand struct {
	cmd    *cobra.Command
	stdout io.Writer
	stderr io.Writer

	scripts   []string
	logLevel  string
	logFormat string

	logger *logging.HookLogger
	mesh   *hookmesh.HookMesh
}

func newRootCommand(stdout, stderr io.Writer) *rootCommand {
	root := &rootCommand{stdout: stdout, stderr: stderr}

	root.cmd = &cobra.Command{
		Use:           "hookctl",
		Short:         rootShortDescription,
		Long:          rootLongDescription,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return root.setup()
		},
	}
	root.cmd.SetOut(stdout)
	root.cmd.SetErr(stderr)

	flags := root.cmd.PersistentFlags()
	flags.StringArrayVarP(&root.scripts, "script", "s", nil, "Lua plugin script to load, may be repeated")
	flags.StringVar(&root.logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	flags.StringVar(&root.logFormat, "log-format", "text", "log format: text or json")

	root.cmd.AddCommand(
		filterCommand(root),
		actionCommand(root),
		listCommand(root),
	)

	return root
}

// execute runs the command tree and releases the loaded plugins whether or
// not the command failed.
func (root *rootCommand) execute() error {
	defer root.close()
	return root.cmd.Execute()
}

func (root *rootCommand) close() {
	if root.mesh != nil {
		root.mesh.Close()
	}
}

// setup builds the logger and the mesh and loads every script.
func (root *rootCommand) setup() error {
	level, err := logging.ParseLevel(root.logLevel)
	if err != nil {
		return err
	}
	if root.logFormat != "text" && root.logFormat != "json" {
		return fmt.Errorf("unknown log format %q", root.logFormat)
	}

	cfg := logging.DefaultLoggerConfig()
	cfg.Level = level
	cfg.Format = root.logFormat
	cfg.Output = root.stderr
	cfg.Component = "hookctl"
	root.logger = logging.NewLogger(cfg)

	root.mesh = hookmesh.New(func(o *hookmesh.Options) {
		o.Logger = root.logger
		o.LogDispatches = level == logging.LogLevelDebug
	})

	for _, path := range root.scripts {
		p, err := root.mesh.LoadPlugin(path)
		if err != nil {
			return fmt.Errorf("load plugin %q: %w", path, err)
		}
		root.logger.WithContext("plugin", p.Name()).Info("plugin loaded", "path", path)
	}

	return nil
}
