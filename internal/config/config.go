// Package config loads fileman's settings: built-in defaults, then an
// optional YAML file, then FILEMAN_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"
	"github.com/infracollect/fileman/internal/archive"
	"github.com/infracollect/fileman/internal/fileops"
	"github.com/infracollect/fileman/internal/publish"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/afero"
)

// EnvPrefix prefixes every environment override, e.g.
// FILEMAN_ARCHIVER_PROGRAM or FILEMAN_TASKS_POLL_INTERVAL.
const EnvPrefix = "FILEMAN"

var defaultValidator = validator.New(validator.WithRequiredStructEnabled())

type Config struct {
	Archiver ArchiverConfig `yaml:"archiver"`
	Tasks    TasksConfig    `yaml:"tasks"`
	Publish  PublishConfig  `yaml:"publish"`
}

type ArchiverConfig struct {
	// Program is the 7-Zip compatible executable.
	Program string `yaml:"program" envconfig:"PROGRAM" validate:"required"`
	// ProbeArgs are passed to Program when checking whether it is installed.
	ProbeArgs []string `yaml:"probe_args" envconfig:"PROBE_ARGS"`
	// ForceBuiltin skips the probe and always uses the built-in strategy.
	ForceBuiltin bool `yaml:"force_builtin" envconfig:"FORCE_BUILTIN"`
}

type TasksConfig struct {
	PollInterval        time.Duration `yaml:"poll_interval" envconfig:"POLL_INTERVAL" validate:"gt=0"`
	SecureDeleteChunk   int           `yaml:"secure_delete_chunk" envconfig:"SECURE_DELETE_CHUNK" validate:"gt=0"`
	SplitChunkMiB       int64         `yaml:"split_chunk_mib" envconfig:"SPLIT_CHUNK_MIB" validate:"gt=0"`
	RecursiveDuplicates bool          `yaml:"recursive_duplicates" envconfig:"RECURSIVE_DUPLICATES"`
}

type PublishConfig struct {
	Kind            string `yaml:"kind" envconfig:"KIND" validate:"omitempty,oneof=s3 folder"`
	Folder          string `yaml:"folder" envconfig:"FOLDER" validate:"required_if=Kind folder"`
	Bucket          string `yaml:"bucket" envconfig:"BUCKET" validate:"required_if=Kind s3"`
	Region          string `yaml:"region" envconfig:"REGION"`
	Endpoint        string `yaml:"endpoint" envconfig:"ENDPOINT" validate:"omitempty,url"`
	Prefix          string `yaml:"prefix" envconfig:"PREFIX"`
	AccessKeyID     string `yaml:"access_key_id" envconfig:"ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"secret_access_key" envconfig:"SECRET_ACCESS_KEY"`
	ForcePathStyle  bool   `yaml:"force_path_style" envconfig:"FORCE_PATH_STYLE"`
}

func Default() Config {
	return Config{
		Archiver: ArchiverConfig{
			Program:   archive.DefaultProgram,
			ProbeArgs: []string{"--help"},
		},
		Tasks: TasksConfig{
			PollInterval:      100 * time.Millisecond,
			SecureDeleteChunk: fileops.DefaultOverwriteChunk,
			SplitChunkMiB:     100,
		},
	}
}

// Parse decodes YAML data over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := overlay(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads the file at path (if path is not empty), applies environment
// overrides and validates the result.
func Load(fs afero.Fs, path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := afero.ReadFile(fs, path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := overlay(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to unmarshal config file '%s': %w", path, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to process environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// overlay decodes data onto cfg. A document with no content (empty or
// comments only) leaves cfg untouched, since decoding a null document would
// zero it.
func overlay(data []byte, cfg *Config) error {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return err
	}
	if len(doc) == 0 {
		return nil
	}
	return yaml.Unmarshal(data, cfg)
}

func (c Config) Validate() error {
	if err := defaultValidator.Struct(c); err != nil {
		return FormatValidationError(err)
	}
	return nil
}

// SplitChunkBytes returns the split chunk size in bytes.
func (c Config) SplitChunkBytes() int64 {
	return c.Tasks.SplitChunkMiB << 20
}

func (c Config) PublishTarget() publish.Config {
	p := c.Publish
	return publish.Config{
		Kind:   p.Kind,
		Folder: p.Folder,
		S3: publish.S3Config{
			Bucket:          p.Bucket,
			Region:          p.Region,
			Endpoint:        p.Endpoint,
			Prefix:          p.Prefix,
			AccessKeyID:     p.AccessKeyID,
			SecretAccessKey: p.SecretAccessKey,
			ForcePathStyle:  p.ForcePathStyle,
		},
	}
}

// FormatValidationError renders validator errors one field per line.
func FormatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("config has %d validation error(s):", len(validationErrs)))
		for _, fe := range validationErrs {
			sb.WriteString(fmt.Sprintf("\n  • %s: failed '%s' validation", fe.Namespace(), fe.Tag()))
			if fe.Param() != "" {
				sb.WriteString(fmt.Sprintf(" (param: %s)", fe.Param()))
			}
		}
		return errors.New(sb.String())
	}
	return err
}
