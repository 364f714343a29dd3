// Package config loads and watches the uploader configuration file.
//
// Top-level types:
//   - Config{Log, Upload, Queue, Metrics, Source}: full tree parsed from YAML
//   - UploadConfig: endpoint, credentials and the retry/throttling knobs
//     (post_interval, max_backlog, stale, timeout, max_tries, retry_wait,
//     log_success, log_failure, skip_upload, timezone)
//   - QueueConfig, MetricsConfig, SourceConfig, LogConfig: host settings
//
// Load(path) applies defaults, parses the YAML file and validates the result
// with struct tags (go-playground/validator) plus cross-field checks. The
// password may be given inline or through password_env; LoadDotEnv fills the
// environment from a .env file first.
//
// Watch(ctx, path, logger, onChange) uses fsnotify on the file's directory so
// atomic-save editors (write temp, rename over) are picked up. Diff reports
// which settings differ between two configs; the worker's settings are fixed
// at start, so changes to them are only reported.
package config
