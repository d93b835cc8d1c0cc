// Package config loads the relabel job configuration: which model to read,
// where its labels come from, the metadata to stamp on it and where to write
// the result. Values come from defaults, an optional YAML file and
// COREML_RELABEL_* environment variables, in increasing priority; command
// line flags are applied on top by the caller.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes the environment variables read by Load,
// e.g. COREML_RELABEL_LABELS_SOURCE.
const EnvPrefix = "COREML_RELABEL"

// Config is a relabel job.
type Config struct {
	// Model is the input .mlpackage directory or .mlmodel file.
	Model string `mapstructure:"model"`

	// Output is where the relabeled model is written. Paths ending in
	// .mlmodel are written as a single file, anything else as a package.
	Output string `mapstructure:"output"`

	// Strict rejects label lists whose length differs from the model's
	// class count, when that count is known.
	Strict bool `mapstructure:"strict"`

	Labels       LabelsConfig       `mapstructure:"labels"`
	Metadata     MetadataConfig     `mapstructure:"metadata"`
	Descriptions DescriptionsConfig `mapstructure:"descriptions"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// LabelsConfig locates the class labels.
type LabelsConfig struct {
	// Source is a file path or an http(s) URL.
	Source string `mapstructure:"source"`

	// Skip drops the first Skip labels.
	Skip int `mapstructure:"skip"`
}

// MetadataConfig is the descriptive metadata stamped on the model. Empty
// values leave the model's current metadata untouched.
type MetadataConfig struct {
	Author           string     `mapstructure:"author"`
	License          string     `mapstructure:"license"`
	ShortDescription string     `mapstructure:"short_description"`
	Version          string     `mapstructure:"version"`
	PreviewType      string     `mapstructure:"preview_type"`
	UserDefined      []KeyValue `mapstructure:"user_defined"`
}

// KeyValue is one user-defined metadata entry. Entries are a list rather
// than a map so that keys keep their case and their dots.
type KeyValue struct {
	Key   string `mapstructure:"key"`
	Value string `mapstructure:"value"`
}

// DescriptionsConfig holds short descriptions for model inputs and outputs.
type DescriptionsConfig struct {
	Inputs  []FeatureDescription `mapstructure:"inputs"`
	Outputs []FeatureDescription `mapstructure:"outputs"`
}

// FeatureDescription describes one input or output by name.
type FeatureDescription struct {
	Name string `mapstructure:"name"`
	Text string `mapstructure:"text"`
}

// LoggingConfig configures internal/logging.
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	File    string `mapstructure:"file"`
	Console bool   `mapstructure:"console"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
		},
	}
}

// Load reads the configuration. When cfgFile is empty, coreml-relabel.yaml
// is looked up in the working directory and is optional.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	cfg := DefaultConfig()
	setDefaults(v, cfg)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName("coreml-relabel")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "reading config")
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshaling config")
	}
	cfg.ExpandPaths()

	if err := cfg.Validate(); err != nil {
		return nil, errors.WithMessage(err, "validating config")
	}
	return cfg, nil
}

var validLevels = []string{"trace", "debug", "info", "warn", "error"}

// Validate checks the settings that do not depend on the command being run.
func (c *Config) Validate() error {
	if c.Labels.Skip < 0 {
		return errors.New("labels.skip must not be negative")
	}
	if !contains(validLevels, c.Logging.Level) {
		return errors.Errorf("logging.level must be one of: %v", validLevels)
	}
	for _, kv := range c.Metadata.UserDefined {
		if kv.Key == "" {
			return errors.New("metadata.user_defined entries need a key")
		}
	}
	for _, d := range append(append([]FeatureDescription{}, c.Descriptions.Inputs...), c.Descriptions.Outputs...) {
		if d.Name == "" {
			return errors.New("descriptions entries need a name")
		}
	}
	return nil
}

// ValidateJob checks that a relabel job has everything it needs.
func (c *Config) ValidateJob() error {
	switch {
	case c.Model == "":
		return errors.New("no input model given")
	case c.Output == "":
		return errors.New("no output path given")
	case c.Labels.Source == "":
		return errors.New("no label source given")
	}
	return nil
}

// ExpandPaths expands ~ and environment variables in paths. Label URLs are
// left alone.
func (c *Config) ExpandPaths() {
	c.Model = expandPath(c.Model)
	c.Output = expandPath(c.Output)
	c.Logging.File = expandPath(c.Logging.File)
	if !strings.Contains(c.Labels.Source, "://") {
		c.Labels.Source = expandPath(c.Labels.Source)
	}
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return os.ExpandEnv(path)
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("model", cfg.Model)
	v.SetDefault("output", cfg.Output)
	v.SetDefault("strict", cfg.Strict)

	v.SetDefault("labels.source", cfg.Labels.Source)
	v.SetDefault("labels.skip", cfg.Labels.Skip)

	v.SetDefault("metadata.author", cfg.Metadata.Author)
	v.SetDefault("metadata.license", cfg.Metadata.License)
	v.SetDefault("metadata.short_description", cfg.Metadata.ShortDescription)
	v.SetDefault("metadata.version", cfg.Metadata.Version)
	v.SetDefault("metadata.preview_type", cfg.Metadata.PreviewType)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.console", cfg.Logging.Console)
}
