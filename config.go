package main

import (
	"os"

	goerrors "github.com/go-errors/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"ro-array-designer/internal/optimizer"
)

// ToolConfig is the optional YAML file passed with --config. Flags given on
// the command line win over the file.
type ToolConfig struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	// Listen is the serve command's address.
	Listen string `yaml:"listen"`
	// BatchLimit caps how many specs the batch command designs at once.
	BatchLimit int              `yaml:"batch_limit"`
	Tuning     optimizer.Tuning `yaml:"tuning"`
}

// DefaultToolConfig returns the settings used when no file is given.
func DefaultToolConfig() ToolConfig {
	return ToolConfig{
		LogLevel:   "info",
		LogFormat:  "text",
		Listen:     ":8080",
		BatchLimit: 4,
	}
}

// LoadToolConfig reads path on top of the defaults. An empty path returns
// the defaults.
func LoadToolConfig(path string) (ToolConfig, error) {
	c := DefaultToolConfig()
	if path == "" {
		return c, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return c, goerrors.Wrap(err, 0)
	}
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return c, goerrors.WrapPrefix(err, "parse "+path, 0)
	}
	return c, nil
}

// tuning returns the search parameters with the file's overrides applied.
func (c ToolConfig) tuning() optimizer.Tuning {
	return optimizer.DefaultTuning().Merge(c.Tuning)
}

// newLogger builds the stderr logger. Results go to stdout, so the two never mix.
func (c ToolConfig) newLogger() (*logrus.Logger, error) {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, goerrors.Wrap(err, 0)
	}
	log.SetLevel(level)
	switch c.LogFormat {
	case "", "text":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, goerrors.Errorf("unknown log format %q", c.LogFormat)
	}
	return log, nil
}
