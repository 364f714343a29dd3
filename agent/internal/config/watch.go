package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch monitors path and calls onChange with the newly loaded Config each
// time the file is written or replaced. It runs until ctx is cancelled.
//
// The parent directory is watched rather than the file so that editors which
// save by renaming a temp file over path keep triggering events. A reload
// that fails validation is logged and onChange is not called.
func Watch(ctx context.Context, path string, logger *slog.Logger, onChange func(*Config)) error {
	if logger == nil {
		logger = slog.Default()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("config: watch: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: watch: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("config: watch %s: %w", filepath.Dir(abs), err)
	}
	logger.Info("config: watching for changes", "path", abs)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			cfg, err := Load(abs)
			if err != nil {
				logger.Error("config: reload failed, keeping previous config",
					"path", abs, "err", err)
				continue
			}
			logger.Info("config: reloaded", "path", abs)
			onChange(cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("config: watcher error", "err", err)
		}
	}
}

// Diff returns the dotted names of upload, queue and source settings that
// differ between old and updated. Secrets are compared but never returned
// by value.
func Diff(old, updated *Config) []string {
	var changed []string
	add := func(name string, differs bool) {
		if differs {
			changed = append(changed, name)
		}
	}
	o, n := old.Upload, updated.Upload
	add("upload.server_url", o.ServerURL != n.ServerURL)
	add("upload.username", o.Username != n.Username)
	add("upload.password", o.ResolvedPassword() != n.ResolvedPassword())
	add("upload.post_interval", o.PostInterval != n.PostInterval)
	add("upload.max_backlog", o.MaxBacklog != n.MaxBacklog)
	add("upload.stale", o.Stale != n.Stale)
	add("upload.timeout", o.Timeout != n.Timeout)
	add("upload.max_tries", o.MaxTries != n.MaxTries)
	add("upload.retry_wait", o.RetryWait != n.RetryWait)
	add("upload.log_success", o.LogSuccess != n.LogSuccess)
	add("upload.log_failure", o.LogFailure != n.LogFailure)
	add("upload.skip_upload", o.SkipUpload != n.SkipUpload)
	add("upload.timezone", o.Timezone != n.Timezone)
	add("upload.insecure_skip_verify", o.InsecureSkipVerify != n.InsecureSkipVerify)
	add("queue.capacity", old.Queue.Capacity != updated.Queue.Capacity)
	add("metrics.listen", old.Metrics.Listen != updated.Metrics.Listen)
	add("source.path", old.Source.Path != updated.Source.Path)
	add("log.level", old.Log.Level != updated.Log.Level)
	add("log.format", old.Log.Format != updated.Log.Format)
	return changed
}
