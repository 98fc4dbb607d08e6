package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/modprep/modprep/validate"
)

// ConfigOptions represent the persistent configuration flags of modprep.
type ConfigOptions struct {
	ConfigFile string
	LogLevel   string `default:"info" validate:"loglevel" name:"log level"`
	Timeout    int    `default:"0" validate:"omitempty,min=30" name:"timeout"`
	DryRun     bool
	DBPath     string `default:"~/.modprep/history.db" validate:"required" name:"history database path"`
}

// NewConfigOptions creates an instance of ConfigOptions.
func NewConfigOptions() *ConfigOptions {
	o := &ConfigOptions{}
	if err := defaults.Set(o); err != nil {
		slog.With("err", err.Error(), "options", "ConfigOptions").Error("error setting config options defaults")
		os.Exit(1)
	}
	return o
}

// Validate validates the ConfigOptions fields.
func (co *ConfigOptions) Validate() []error {
	if err := validate.V.Struct(co); err != nil {
		var errs validator.ValidationErrors
		errors.As(err, &errs)
		var errArr []error
		for _, e := range errs {
			// Translate each error one at a time
			errArr = append(errArr, fmt.Errorf("%s", e.Translate(validate.T)))
		}
		return errArr
	}
	return nil
}

// AddFlags registers the common flags.
func (co *ConfigOptions) AddFlags(flags *pflag.FlagSet) {
	flags.StringVarP(&co.ConfigFile, "config", "c", co.ConfigFile, "config file path (default $HOME/.modprep.yaml if exists)")
	flags.StringVarP(&co.LogLevel, "loglevel", "l", co.LogLevel, "log level (debug, info, warn, error)")
	flags.IntVar(&co.Timeout, "timeout", co.Timeout, "timeout for the whole run in seconds, 0 means no timeout")
	flags.BoolVar(&co.DryRun, "dryrun", co.DryRun, "do not actually perform the action")
	flags.StringVar(&co.DBPath, "db", co.DBPath, "history database path")
}

// Init reads in config file and ENV variables if set.
//
// Validation happens later, once the values read here have been merged
// into the flags, so that they obey the same rules.
func (co *ConfigOptions) Init() {
	if co.ConfigFile != "" {
		viper.SetConfigFile(co.ConfigFile)
	} else {
		// Find home directory.
		home, err := homedir.Dir()
		if err != nil {
			slog.With("err", err.Error()).Error("error getting the home directory")
			// not fatal because we fallback to `$HOME/.modprep.yaml` and try with it
		}

		viper.AddConfigPath(home)
		viper.SetConfigName(".modprep")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("modprep")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		slog.With("file", viper.ConfigFileUsed()).Info("using config file")
	} else {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			// Config file not found, ignore ...
			slog.Debug("running without a configuration file")
		}
	}
}
