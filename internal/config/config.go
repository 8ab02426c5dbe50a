// Package config resolves fcd settings from flags, environment variables, a
// config file and defaults, in that order of precedence, and validates the
// merged result against a CUE schema.
package config

import (
	_ "embed"
	"errors"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/adrg/xdg"
	"github.com/spf13/cast"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/roach88/fcd/internal/fcderr"
)

//go:embed schema.cue
var schemaCUE string

// EnvPrefix prefixes environment overrides, e.g. FCD_DB.
const EnvPrefix = "FCD"

// Config is the validated configuration.
type Config struct {
	DB      string `json:"db"`
	Jobs    int    `json:"jobs"`
	Format  string `json:"format"`
	Color   string `json:"color"`
	LogFile string `json:"log_file"`

	// File is the config file that was read, if any.
	File string `json:"-"`
}

// flagKeys maps config keys to the flag names bound to them.
var flagKeys = map[string]string{
	"db":       "db",
	"jobs":     "jobs",
	"format":   "format",
	"color":    "color",
	"log_file": "log-file",
}

// DefaultDB is the store location used when nothing else is configured.
func DefaultDB() string {
	return filepath.Join(xdg.DataHome, "fcd", "fcd.db")
}

// DefaultConfigDir is searched for config.yaml when --config is not given.
func DefaultConfigDir() string {
	return filepath.Join(xdg.ConfigHome, "fcd")
}

// PrepareDB creates the parent directory of the default store location.
// Other locations are used as given.
func PrepareDB(location string) error {
	if location != DefaultDB() {
		return nil
	}
	if _, err := xdg.DataFile(filepath.Join("fcd", "fcd.db")); err != nil {
		return fcderr.Wrap(err, fcderr.IOError, "create data directory").WithDetail("location", location)
	}
	return nil
}

// Load resolves the configuration. configFile overrides the default config
// location; a missing default config file is not an error. flags may be nil.
func Load(flags *pflag.FlagSet, configFile string) (Config, error) {
	v := viper.New()

	v.SetDefault("db", DefaultDB())
	v.SetDefault("jobs", 1)
	v.SetDefault("format", "text")
	v.SetDefault("color", "auto")
	v.SetDefault("log_file", "")

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.AddConfigPath(DefaultConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return Config{}, fcderr.Wrap(err, fcderr.ConfigInvalid, "read config file").WithDetail("file", configFile)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for key, name := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fcderr.Wrapf(err, fcderr.ConfigInvalid, "bind flag --%s", name)
				}
			}
		}
	}

	settings := v.AllSettings()
	// Environment and flag values arrive as strings.
	jobs, err := cast.ToIntE(v.Get("jobs"))
	if err != nil {
		return Config{}, fcderr.Newf(fcderr.ConfigInvalid, "jobs must be an integer, got %q", v.GetString("jobs"))
	}
	settings["jobs"] = jobs
	for _, key := range []string{"db", "format", "color", "log_file"} {
		settings[key] = v.GetString(key)
	}

	cfg, err := validate(settings)
	if err != nil {
		return Config{}, err
	}
	cfg.File = v.ConfigFileUsed()
	return cfg, nil
}

// validate unifies settings with #Config and decodes the result.
func validate(settings map[string]any) (Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Config{}, fcderr.Wrap(err, fcderr.ConfigInvalid, "compile config schema")
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	value := def.Unify(ctx.Encode(settings))
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return Config{}, fcderr.Wrap(err, fcderr.ConfigInvalid, "invalid configuration")
	}

	var cfg Config
	if err := value.Decode(&cfg); err != nil {
		return Config{}, fcderr.Wrap(err, fcderr.ConfigInvalid, "decode configuration")
	}
	return cfg, nil
}
