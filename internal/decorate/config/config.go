// Copyright © 2025 jackelyj <dreamerlyj@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
//

// Package config loads the decorate project configuration.
//
// Settings are resolved in increasing precedence from built-in defaults,
// a .decorate.yaml file in the working directory, DECORATE_* environment
// variables and command line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/innovationmech/decorate/pkg/logger"
	"github.com/innovationmech/decorate/pkg/rewrite"
)

const (
	// FileName is the project configuration file looked up in the
	// working directory.
	FileName = ".decorate.yaml"
	// EnvPrefix prefixes environment variable overrides.
	EnvPrefix = "DECORATE"
)

// Config is the decorate project configuration.
type Config struct {
	// Prefix is the directive name, without the leading "//".
	Prefix string `mapstructure:"prefix" yaml:"prefix" validate:"required,printascii,excludesall=/"`
	// Workers bounds concurrent file processing; 0 uses the CPU count.
	Workers int `mapstructure:"workers" yaml:"workers" validate:"gte=0,lte=256"`
	// FormatOnly disables import fixing in generated files.
	FormatOnly bool `mapstructure:"format_only" yaml:"format_only"`
	// Recursive descends into sub-directories of directory arguments.
	Recursive bool `mapstructure:"recursive" yaml:"recursive"`
	// Exclude holds glob patterns matched against file paths.
	Exclude []string `mapstructure:"exclude" yaml:"exclude,omitempty" validate:"dive,required"`
	// Log configures the CLI logger.
	Log logger.Options `mapstructure:"log" yaml:"log"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Prefix:    rewrite.DefaultPrefix,
		Recursive: true,
		Log:       logger.Options{Level: "warn", Format: "console"},
	}
}

// Validate checks the configuration with its validate tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s fails %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if strings.ContainsAny(c.Prefix, " \t") {
		return fmt.Errorf("invalid configuration: prefix %q contains whitespace", c.Prefix)
	}
	for _, pattern := range c.Exclude {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return fmt.Errorf("invalid configuration: exclude pattern %q: %w", pattern, err)
		}
	}
	return nil
}

// Excluded reports whether path matches one of the exclude patterns. A
// pattern matches the whole path or its base name.
func (c *Config) Excluded(path string) bool {
	slashed := filepath.ToSlash(path)
	for _, pattern := range c.Exclude {
		if ok, _ := filepath.Match(pattern, slashed); ok {
			return true
		}
		if ok, _ := filepath.Match(pattern, filepath.Base(path)); ok {
			return true
		}
	}
	return false
}

// Loader resolves a Config for a working directory.
type Loader struct {
	v       *viper.Viper
	workDir string
}

// NewLoader creates a loader reading workDir/.decorate.yaml.
func NewLoader(workDir string) *Loader {
	v := viper.New()
	v.SetConfigFile(filepath.Join(workDir, FileName))
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	def := Default()
	v.SetDefault("prefix", def.Prefix)
	v.SetDefault("workers", def.Workers)
	v.SetDefault("format_only", def.FormatOnly)
	v.SetDefault("recursive", def.Recursive)
	v.SetDefault("exclude", def.Exclude)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.format", def.Log.Format)
	v.SetDefault("log.development", def.Log.Development)

	return &Loader{v: v, workDir: workDir}
}

// BindFlags binds the command line flags that override configuration
// keys. Flags are looked up by name in flags; absent ones are ignored.
func (l *Loader) BindFlags(flags *pflag.FlagSet) error {
	bindings := map[string]string{
		"prefix":      "prefix",
		"workers":     "workers",
		"format_only": "format-only",
		"recursive":   "recursive",
		"exclude":     "exclude",
		"log.level":   "log-level",
		"log.format":  "log-format",
	}
	for key, name := range bindings {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := l.v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("failed to bind flag --%s: %w", name, err)
		}
	}
	return nil
}

// Load reads the configuration file when present, applies overrides and
// validates the result.
func (l *Loader) Load() (*Config, error) {
	if err := l.v.ReadInConfig(); err != nil && !isNotFound(err) {
		return nil, fmt.Errorf("failed to read %s: %w", l.v.ConfigFileUsed(), err)
	}

	cfg := &Config{}
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ConfigFileUsed returns the path of the file Load read, or "" when none
// was found.
func (l *Loader) ConfigFileUsed() string {
	if _, err := os.Stat(l.v.ConfigFileUsed()); err != nil {
		return ""
	}
	return l.v.ConfigFileUsed()
}

func isNotFound(err error) bool {
	var nf viper.ConfigFileNotFoundError
	return errors.As(err, &nf) || errors.Is(err, os.ErrNotExist)
}

// Write stores cfg as YAML at path.
func Write(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
