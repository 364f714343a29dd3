package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultServerURL = "https://wetterblick-api.com/sd"
	DefaultTimeout   = 60 * time.Second
	DefaultMaxTries  = 3
	DefaultRetryWait = 5 * time.Second
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
	DefaultSource    = "-"

	// UnboundedBacklog disables the max_backlog check.
	UnboundedBacklog = -1
)

// Config is the top-level uploader configuration.
type Config struct {
	Log     LogConfig     `yaml:"log"`
	Upload  UploadConfig  `yaml:"upload"`
	Queue   QueueConfig   `yaml:"queue"`
	Metrics MetricsConfig `yaml:"metrics"`
	Source  SourceConfig  `yaml:"source"`
}

// LogConfig selects the log level and handler.
type LogConfig struct {
	// Level is one of: debug | info | warn | error.
	Level string `yaml:"level" validate:"oneof=debug info warn warning error"`

	// Format is json (production) or text (colourised, for terminals).
	Format string `yaml:"format" validate:"oneof=json text"`
}

// UploadConfig holds the settings of the wetterblick destination.
type UploadConfig struct {
	// ServerURL is the station data endpoint.
	ServerURL string `yaml:"server_url" validate:"required,url"`

	// Username is the station id.
	Username string `yaml:"username" validate:"required"`

	// Password is the literal station password. Prefer PasswordEnv.
	Password string `yaml:"password"`

	// PasswordEnv is the name of the environment variable holding the password.
	PasswordEnv string `yaml:"password_env"`

	// PostInterval is the minimum spacing between uploads; 0 disables it.
	PostInterval time.Duration `yaml:"post_interval" validate:"gte=0"`

	// MaxBacklog is how many readings may wait behind the current one
	// before it is skipped; -1 is unbounded.
	MaxBacklog int `yaml:"max_backlog" validate:"gte=-1"`

	// Stale is the maximum reading age worth uploading; 0 disables it.
	Stale time.Duration `yaml:"stale" validate:"gte=0"`

	// Timeout bounds each HTTP attempt.
	Timeout time.Duration `yaml:"timeout" validate:"gt=0"`

	// MaxTries is the number of attempts per reading.
	MaxTries int `yaml:"max_tries" validate:"gte=1"`

	// RetryWait is the fixed pause between attempts.
	RetryWait time.Duration `yaml:"retry_wait" validate:"gte=0"`

	LogSuccess bool `yaml:"log_success"`
	LogFailure bool `yaml:"log_failure"`

	// SkipUpload builds and logs requests without sending them.
	SkipUpload bool `yaml:"skip_upload"`

	// Timezone names the IANA zone used for the date/time parameters.
	// Empty or "Local" uses the host timezone.
	Timezone string `yaml:"timezone"`

	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`
}

// ResolvedPassword returns the password from PasswordEnv when set, otherwise
// the literal Password.
func (u UploadConfig) ResolvedPassword() string {
	if u.PasswordEnv != "" {
		return os.Getenv(u.PasswordEnv)
	}
	return u.Password
}

// Location resolves Timezone.
func (u UploadConfig) Location() (*time.Location, error) {
	if u.Timezone == "" || u.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(u.Timezone)
	if err != nil {
		return nil, fmt.Errorf("upload.timezone: %w", err)
	}
	return loc, nil
}

// QueueConfig sizes the work queue.
type QueueConfig struct {
	// Capacity is the maximum number of queued readings; the oldest is
	// evicted when full. 0 is unbounded.
	Capacity int `yaml:"capacity" validate:"gte=0"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Listen is the address serving /metrics, e.g. ":9105". Empty disables it.
	Listen string `yaml:"listen" validate:"omitempty,hostname_port|startswith=:"`
}

// SourceConfig configures where the service binary reads readings from.
type SourceConfig struct {
	// Path is a file of JSON-lines readings; "-" reads stdin.
	Path string `yaml:"path" validate:"required"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}
	return Parse(data)
}

// Parse parses and validates a YAML document.
func Parse(data []byte) (*Config, error) {
	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Defaults returns a Config pre-populated with default values.
func Defaults() *Config {
	return &Config{
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Upload: UploadConfig{
			ServerURL:  DefaultServerURL,
			MaxBacklog: UnboundedBacklog,
			Timeout:    DefaultTimeout,
			MaxTries:   DefaultMaxTries,
			RetryWait:  DefaultRetryWait,
			LogSuccess: true,
			LogFailure: true,
		},
		Source: SourceConfig{Path: DefaultSource},
	}
}

// Validate checks struct constraints and the rules tags cannot express.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%s: invalid value %v (rule %q)",
				strings.TrimPrefix(fe.Namespace(), "Config."), fe.Value(), fe.Tag())
		}
		return err
	}

	if cfg.Upload.PasswordEnv != "" && os.Getenv(cfg.Upload.PasswordEnv) == "" {
		return fmt.Errorf("upload.password_env: environment variable %q is empty or unset", cfg.Upload.PasswordEnv)
	}
	if cfg.Upload.ResolvedPassword() == "" {
		return errors.New("upload.password or upload.password_env is required")
	}
	if _, err := cfg.Upload.Location(); err != nil {
		return err
	}
	return nil
}

// LoadDotEnv loads KEY=value pairs from path into the process environment.
// Variables already set are kept. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("config: load env file: %w", err)
	}
	return nil
}
