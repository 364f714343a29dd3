package uploader

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/wetterblick/uploader/agent/internal/config"
)

// Options configure a Worker. They are fixed for the Worker's lifetime.
type Options struct {
	// ServerURL is the upload endpoint without query string.
	ServerURL string

	// Username and Password are sent verbatim as the user and pw parameters.
	Username string
	Password string

	// PostInterval is the minimum spacing between upload attempts.
	// Zero disables throttling.
	PostInterval time.Duration

	// MaxBacklog is the number of readings allowed to wait behind the one
	// being processed. Readings dequeued while more than MaxBacklog others
	// are waiting are dropped. Negative means unbounded.
	MaxBacklog int

	// Stale is the maximum reading age worth uploading. Zero disables the check.
	Stale time.Duration

	// Timeout bounds each HTTP attempt.
	Timeout time.Duration

	// MaxTries is the number of attempts per reading, at least 1.
	MaxTries int

	// RetryWait is the fixed pause between attempts.
	RetryWait time.Duration

	LogSuccess bool
	LogFailure bool

	// SkipUpload builds and logs the request without sending it.
	SkipUpload bool

	// Location is the timezone for the date and time parameters.
	// Nil means time.Local.
	Location *time.Location

	// InsecureSkipVerify disables TLS verification of the endpoint.
	InsecureSkipVerify bool
}

// Defaults used by DefaultOptions.
const (
	DefaultTimeout   = 60 * time.Second
	DefaultMaxTries  = 3
	DefaultRetryWait = 5 * time.Second
)

// DefaultOptions returns Options with the protocol defaults filled in and
// the backlog unbounded.
func DefaultOptions(serverURL, username, password string) Options {
	return Options{
		ServerURL:  serverURL,
		Username:   username,
		Password:   password,
		MaxBacklog: -1,
		Timeout:    DefaultTimeout,
		MaxTries:   DefaultMaxTries,
		RetryWait:  DefaultRetryWait,
		LogSuccess: true,
		LogFailure: true,
	}
}

// OptionsFromConfig converts the upload section of the config file into
// worker Options, resolving the password and timezone.
func OptionsFromConfig(c config.UploadConfig) (Options, error) {
	loc, err := c.Location()
	if err != nil {
		return Options{}, err
	}
	opts := Options{
		ServerURL:          c.ServerURL,
		Username:           c.Username,
		Password:           c.ResolvedPassword(),
		PostInterval:       c.PostInterval,
		MaxBacklog:         c.MaxBacklog,
		Stale:              c.Stale,
		Timeout:            c.Timeout,
		MaxTries:           c.MaxTries,
		RetryWait:          c.RetryWait,
		LogSuccess:         c.LogSuccess,
		LogFailure:         c.LogFailure,
		SkipUpload:         c.SkipUpload,
		Location:           loc,
		InsecureSkipVerify: c.InsecureSkipVerify,
	}
	if err := opts.validate(); err != nil {
		return Options{}, fmt.Errorf("uploader: %w", err)
	}
	return opts, nil
}

func (o Options) validate() error {
	if o.ServerURL == "" {
		return errors.New("server url is required")
	}
	u, err := url.Parse(o.ServerURL)
	if err != nil {
		return fmt.Errorf("server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("server url %q: scheme must be http or https", o.ServerURL)
	}
	if u.RawQuery != "" {
		return fmt.Errorf("server url %q: must not carry a query string", o.ServerURL)
	}
	if o.Username == "" || o.Password == "" {
		return errors.New("username and password are required")
	}
	if o.MaxTries < 1 {
		return fmt.Errorf("max tries must be at least 1, got %d", o.MaxTries)
	}
	if o.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", o.Timeout)
	}
	if o.PostInterval < 0 || o.Stale < 0 || o.RetryWait < 0 {
		return errors.New("post interval, stale and retry wait must not be negative")
	}
	return nil
}
