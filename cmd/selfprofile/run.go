package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/napolitain/selfprofile/internal/config"
	"github.com/napolitain/selfprofile/interpose"
	"github.com/napolitain/selfprofile/profile"
)

// exitStatus carries a program's exit status out of a command without an
// error message.
type exitStatus int

func (e exitStatus) Error() string {
	return fmt.Sprintf("exit status %d", int(e))
}

func runCmd(v *viper.Viper) *cobra.Command {
	c := &cobra.Command{
		Use:   "run [flags] [--] <program> [args...]",
		Short: "Run an unmodified executable with counters around it",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runLauncher(v),
	}
	c.Flags().SetInterspersed(false)
	return c
}

func runLauncher(v *viper.Viper) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(v, cmd)
		if err != nil {
			return err
		}

		code := interpose.Wrap(runProgram, launcherOptions(cfg))(args)
		if code != 0 {
			return exitStatus(code)
		}
		return nil
	}
}

// launcherOptions open the counters on the launcher thread with inherit set,
// so the program started from that thread, and everything it spawns, counts.
func launcherOptions(cfg config.Config) interpose.Options {
	return interpose.Options{
		Status:  cfg.Status,
		Quiet:   cfg.Quiet,
		Format:  cfg.Format,
		Profile: profile.Options{Inherit: true},
	}
}

// runProgram is the entry the launcher wraps: args[0] is the program.
func runProgram(args []string) int {
	code, err := runBinary(args[0], args[1:], nil)
	if err != nil {
		logrus.WithField("program", args[0]).Error(err)
	}
	return code
}

// runBinary executes a program with argument and signal forwarding and returns
// its exit status: 128+n when killed by signal n, 127 when it cannot start.
// env is appended to the current environment.
func runBinary(path string, args []string, env []string) (int, error) {
	cmd := exec.Command(path, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}

	// Handle signals - forward to child process
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	if err := cmd.Start(); err != nil {
		return 127, fmt.Errorf("start: %w", err)
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case sig := <-sigCh:
				cmd.Process.Signal(sig)
			case <-done:
				return
			}
		}
	}()

	err := cmd.Wait()
	close(done)

	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return 1, fmt.Errorf("wait: %w", err)
	}
	if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal()), nil
	}
	return exitErr.ExitCode(), nil
}
