package main

import (
	"errors"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/napolitain/selfprofile/internal/config"
)

const usage = `selfprofile measures hardware performance counters around a program's entry point.

Counters are selected by environment variable, one per event name:

    PERF_COUNT_HW_CPU_CYCLES=1 selfprofile -- ./sortitems

prints, after the program's own output, one NAME(CONFIG): DELTA line per
selected event and exits with the program's status. Run "selfprofile events"
for the list of event names.

A program named like a subcommand (run, hot, instrument, events) is taken as
that subcommand. "selfprofile run -- <program>" is always unambiguous.`

func main() {
	if err := rootCmd().Execute(); err != nil {
		var exit exitStatus
		if errors.As(err, &exit) {
			os.Exit(int(exit))
		}
		logrus.Error(err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	v := config.New()

	c := &cobra.Command{
		Use:           "selfprofile [flags] [--] <program> [args...]",
		Short:         "Measure hardware counters around a program's main entry",
		Long:          usage,
		Args:          cobra.MinimumNArgs(1),
		RunE:          runLauncher(v),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	c.Flags().SetInterspersed(false)

	f := c.PersistentFlags()
	f.String(config.KeyStatus, config.DefaultStatus, "status line printed before the measured region")
	f.BoolP(config.KeyQuiet, "q", false, "do not print the status line")
	f.String(config.KeyFormat, "plain", "report format: plain or table")
	f.Bool(config.KeyDebug, false, "enable debug logging")

	c.AddCommand(
		runCmd(v),
		hotCmd(v),
		instrumentCmd(),
		eventsCmd(),
	)
	return c
}

// loadConfig merges cmd's flags over SELFPROFILE_* variables and sets up logging.
func loadConfig(v *viper.Viper, cmd *cobra.Command) (config.Config, error) {
	if err := config.BindFlags(v, cmd.Flags()); err != nil {
		return config.Config{}, err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return config.Config{}, err
	}
	cfg.SetupLogging()
	return cfg, nil
}
