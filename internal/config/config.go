// Package config resolves braintree's runtime configuration.
//
// Resolution order, later wins:
//  1. Defaults
//  2. YAML file (~/.braintree/config.yaml or an explicit path)
//  3. .env file in the working directory (never overrides real env vars)
//  4. BRAINTREE_* environment variables
//
// The result is validated before use.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/HendryAvila/braintree/internal/logging"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// AppDir is the per-user directory under $HOME.
	AppDir = ".braintree"
	// FileName is the config file inside AppDir.
	FileName = "config.yaml"
	// TreesDir is where documents live inside AppDir by default.
	TreesDir = "trees"

	FormatDocx = "docx"
	FormatHTML = "html"

	envPrefix = "BRAINTREE_"
)

// Config holds every tunable setting.
type Config struct {
	DataDir      string `yaml:"data_dir" validate:"required"`
	ExportDir    string `yaml:"export_dir" validate:"required"`
	ExportFormat string `yaml:"export_format" validate:"oneof=docx html"`
	Converter    string `yaml:"converter" validate:"required_if=ExportFormat docx"`
	LogLevel     string `yaml:"log_level" validate:"oneof=debug info warn error"`
	LogFormat    string `yaml:"log_format" validate:"log_format"`
	Watch        bool   `yaml:"watch"`
}

// envFile is a package-level var so tests can point it elsewhere.
var envFile = ".env"

var validate = newValidator()

// newValidator reports fields by their yaml names.
func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("log_format", func(fl validator.FieldLevel) bool {
		return logging.IsFormat(fl.Field().String())
	})
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Default returns the built-in configuration.
func Default() Config {
	home, _ := os.UserHomeDir()
	return Config{
		DataDir:      filepath.Join(home, AppDir, TreesDir),
		ExportDir:    filepath.Join(home, "Documents"),
		ExportFormat: FormatDocx,
		Converter:    "pandoc",
		LogLevel:     "warn",
		LogFormat:    logging.FormatConsole,
		Watch:        true,
	}
}

// DefaultPath returns ~/.braintree/config.yaml.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, AppDir, FileName)
}

// Load resolves the configuration. An empty path means DefaultPath; a
// missing file at the default path is fine, a missing explicit file is not.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if err := cfg.mergeFile(path); err != nil {
		if !errors.Is(err, os.ErrNotExist) || explicit {
			return nil, err
		}
	}

	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading %s: %w", envFile, err)
	}
	if err := cfg.mergeEnv(); err != nil {
		return nil, err
	}

	cfg.DataDir = expandHome(cfg.DataDir)
	cfg.ExportDir = expandHome(cfg.ExportDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the struct tags and returns readable messages.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}
	return nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

func (c *Config) mergeEnv() error {
	strVars := map[string]*string{
		"DATA_DIR":      &c.DataDir,
		"EXPORT_DIR":    &c.ExportDir,
		"EXPORT_FORMAT": &c.ExportFormat,
		"CONVERTER":     &c.Converter,
		"LOG_LEVEL":     &c.LogLevel,
		"LOG_FORMAT":    &c.LogFormat,
	}
	for key, dst := range strVars {
		if v, ok := os.LookupEnv(envPrefix + key); ok {
			*dst = v
		}
	}
	if v, ok := os.LookupEnv(envPrefix + "WATCH"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sWATCH: %w", envPrefix, err)
		}
		c.Watch = b
	}
	return nil
}

// expandHome replaces a leading "~" with the user's home directory.
func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

// formatValidationError turns validator errors into one readable error.
func formatValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, formatFieldError(e))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func formatFieldError(e validator.FieldError) string {
	field := e.Field()
	switch e.Tag() {
	case "required", "required_if":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "log_format":
		return fmt.Sprintf("%s must be one of: %s", field, strings.Join(logging.Formats(), " "))
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
