// Package interpose wraps a program's entry function with a hardware counter
// measurement.
//
// The wrapper captures the real entry once and forwards to it:
//
//	BEGIN -> status line -> START -> entry(args) -> STOP -> REPORT -> END
//
// and returns the entry's result untouched. Go programs opt in by routing main
// through Main (see the instrument command); unmodified executables are
// wrapped by the selfprofile launcher, whose entry runs the executable as a
// child process that inherits the counters.
//
// Only one wrapper may run per process, on one goroutine. Reentrant or
// concurrent use is not supported.
package interpose

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/sirupsen/logrus"

	"github.com/napolitain/selfprofile/internal/config"
	"github.com/napolitain/selfprofile/profile"
)

// Entry is a program entry point. It receives the full argument vector,
// program name included, and returns the process exit status.
type Entry func(args []string) int

// Func adapts a Go main function to an Entry returning 0.
func Func(fn func()) Entry {
	return func([]string) int {
		fn()
		return 0
	}
}

// Options control a wrapper.
type Options struct {
	// Status is printed on Stdout between BEGIN and START,
	// config.DefaultStatus when empty.
	Status string
	// Quiet suppresses the status line.
	Quiet bool
	// Format of the report.
	Format profile.Format
	// Profile configures the counter group. Its Log defaults to Log.
	Profile profile.Options

	Stdout io.Writer
	Log    logrus.FieldLogger
	// Exit terminates the process when the counter group cannot be opened.
	Exit func(int)
}

func (o Options) withDefaults() Options {
	if o.Status == "" {
		o.Status = config.DefaultStatus
	}
	if o.Format == "" {
		o.Format = profile.FormatPlain
	}
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Log == nil {
		o.Log = logrus.StandardLogger()
	}
	if o.Exit == nil {
		o.Exit = os.Exit
	}
	if o.Profile.Log == nil {
		o.Profile.Log = o.Log
	}
	return o
}

// Wrap returns an Entry that measures entry. A counter that cannot be opened
// is fatal: a diagnostic is logged and Exit(1) is called before entry runs.
// Later counter failures are logged and never change entry's result.
//
// entry must not be nil; resolving the real entry is the caller's job.
func Wrap(entry Entry, opts Options) Entry {
	if entry == nil {
		panic("interpose: nil entry")
	}
	opts = opts.withDefaults()

	return func(args []string) int {
		// Counters follow the thread that opened them.
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		if err := profile.BeginWith(opts.Profile); err != nil {
			fatal(opts, err)
			return 1
		}
		defer profile.End()

		if !opts.Quiet {
			fmt.Fprintln(opts.Stdout, opts.Status)
		}
		warn(opts.Log, "start", profile.Start())

		code := entry(args)

		warn(opts.Log, "stop", profile.Stop())
		warn(opts.Log, "report", profile.ReportTo(opts.Stdout, opts.Format))
		warn(opts.Log, "end", profile.End())
		return code
	}
}

// Main wraps entry with options read from SELFPROFILE_* variables, runs it
// with os.Args and exits the process with its result. It does not return.
//
// Invalid SELFPROFILE_* settings never stop the program: they are reported as
// a warning and replaced by their defaults.
func Main(entry Entry) {
	cfg := envConfig(logrus.StandardLogger())
	cfg.SetupLogging()

	os.Exit(Wrap(entry, fromConfig(cfg))(os.Args))
}

// envConfig loads the environment settings, falling back to the plain format
// when the configured one is unknown.
func envConfig(log logrus.FieldLogger) config.Config {
	v := config.New()
	cfg, err := config.Load(v)
	if err == nil {
		return cfg
	}
	log.WithError(err).Warn("invalid selfprofile settings, using defaults")

	v.Set(config.KeyFormat, string(profile.FormatPlain))
	if cfg, err = config.Load(v); err == nil {
		return cfg
	}
	return config.Config{Status: config.DefaultStatus, Format: profile.FormatPlain}
}

func fromConfig(cfg config.Config) Options {
	return Options{
		Status: cfg.Status,
		Quiet:  cfg.Quiet,
		Format: cfg.Format,
	}
}

func fatal(opts Options, err error) {
	log := opts.Log
	var openErr *profile.OpenError
	if errors.As(err, &openErr) {
		fields := logrus.Fields{
			"event":  openErr.Event.Name,
			"config": fmt.Sprintf("0x%x", openErr.Event.Config),
		}
		if hint := openErr.Hint(); hint != "" {
			fields["hint"] = hint
		}
		log = log.WithFields(fields)
	}
	log.Error(err)
	opts.Exit(1)
}

func warn(log logrus.FieldLogger, op string, err error) {
	if err != nil {
		log.WithError(err).Warnf("counter group %s failed", op)
	}
}
