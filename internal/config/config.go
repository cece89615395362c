// Package config resolves selfprofile settings from SELFPROFILE_* environment
// variables and command line flags.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/napolitain/selfprofile/profile"
)

const (
	// EnvPrefix prefixes every environment variable read by Load.
	EnvPrefix = "SELFPROFILE"
	// DefaultStatus is printed before the measured region starts.
	DefaultStatus = "Sorting..."
)

// Keys understood by Load. Flags with the same names override the environment.
const (
	KeyStatus = "status"
	KeyQuiet  = "quiet"
	KeyFormat = "format"
	KeyDebug  = "debug"
	KeyRoot   = "root"
)

// Config controls the interposer and the command line tool.
type Config struct {
	// Status is the line printed before START.
	Status string
	// Quiet suppresses the status line.
	Quiet bool
	// Format of the report.
	Format profile.Format
	// Debug enables debug logging.
	Debug bool
	// Root is a local checkout of this module used by hot runs.
	Root string
}

// New returns a viper instance reading SELFPROFILE_* variables with defaults set.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyStatus, DefaultStatus)
	v.SetDefault(KeyQuiet, false)
	v.SetDefault(KeyFormat, string(profile.FormatPlain))
	v.SetDefault(KeyDebug, false)
	v.SetDefault(KeyRoot, "")
	return v
}

// BindFlags lets the flags in fs override the environment.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	if err := v.BindPFlags(fs); err != nil {
		return fmt.Errorf("bind flags: %w", err)
	}
	return nil
}

// Load reads a Config out of v.
func Load(v *viper.Viper) (Config, error) {
	format, err := profile.ParseFormat(v.GetString(KeyFormat))
	if err != nil {
		return Config{}, err
	}
	return Config{
		Status: v.GetString(KeyStatus),
		Quiet:  v.GetBool(KeyQuiet),
		Format: format,
		Debug:  v.GetBool(KeyDebug),
		Root:   v.GetString(KeyRoot),
	}, nil
}

// FromEnv loads a Config from the environment only.
func FromEnv() (Config, error) {
	return Load(New())
}

// SetupLogging configures the logrus standard logger for c.
func (c Config) SetupLogging() {
	logrus.SetOutput(os.Stderr)
	logrus.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	if c.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
}
