// Package cli provides the command-line interface for cartpilot.
package cli

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

// Version is set at build time.
var Version = "dev"

// GlobalFlags are available to all commands.
var GlobalFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to the YAML configuration file",
		EnvVars: []string{"CARTPILOT_CONFIG"},
	},
	&cli.StringFlag{
		Name:    "device",
		Aliases: []string{"udid"},
		Usage:   "Device serial to run on (can be comma-separated)",
		EnvVars: []string{"CARTPILOT_DEVICE"},
	},
	&cli.StringFlag{
		Name:    "storage-dir",
		Usage:   "Directory for history, profile, deliveries and reports",
		EnvVars: []string{"CARTPILOT_STORAGE_DIR"},
	},
	&cli.StringFlag{
		Name:    "order-check-url",
		Usage:   "Order permission backend URL (empty allows every order)",
		EnvVars: []string{"CARTPILOT_ORDER_CHECK_URL"},
	},
	&cli.StringFlag{
		Name:    "user-name",
		Usage:   "User name sent to the order permission backend",
		EnvVars: []string{"CARTPILOT_USER_NAME"},
	},
	&cli.IntFlag{
		Name:    "driver-host-port",
		Usage:   "Host port forwarded to the UIAutomator2 server (single device only)",
		EnvVars: []string{"CARTPILOT_HOST_PORT"},
	},
	&cli.StringFlag{
		Name:    "log-level",
		Usage:   "Log level (debug, info, warn, error)",
		EnvVars: []string{"CARTPILOT_LOG_LEVEL"},
	},
	&cli.StringFlag{
		Name:    "log-file",
		Usage:   "Also write logs to this file, rotated",
		EnvVars: []string{"CARTPILOT_LOG_FILE"},
	},
	&cli.BoolFlag{
		Name:    "verbose",
		Usage:   "Enable verbose logging",
		EnvVars: []string{"CARTPILOT_VERBOSE"},
	},
	&cli.BoolFlag{
		Name:  "no-ansi",
		Usage: "Disable ANSI colors",
	},
}

// Execute runs the CLI.
func Execute() {
	app := &cli.App{
		Name:    "cartpilot",
		Usage:   "UI automation for a mobile shopping app",
		Version: Version,
		Description: `cartpilot drives a shopping app on Android devices through UIAutomator2:
it searches, buys or favorites products inside a price range, settles the
favorites list and collects tracking numbers of parcels on the way.

Examples:
  # Run the jobs of a job file on the first connected device
  cartpilot run jobs.yaml

  # Spread jobs over two devices
  cartpilot --device emulator-5554,emulator-5556 run jobs.yaml

  # Inspect the current screen
  cartpilot classify
  cartpilot hierarchy > screen.xml

  # Rebuild the reports of a crashed session
  cartpilot report ~/.cartpilot/reports/20260101-120000`,
		Flags: GlobalFlags,
		Commands: []*cli.Command{
			runCommand,
			classifyCommand,
			hierarchyCommand,
			devicesCommand,
			reportCommand,
			historyCommand,
			profileCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
