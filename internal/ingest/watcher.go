package ingest

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

type WatchConfig struct {
	Roots       []string      // directories to watch (recursive)
	InitialScan bool          // if true, walk roots and emit existing files
	SkipHidden  bool          // ignore dot files and dot directories
	Debounce    time.Duration // coalesce rapid create/write bursts
	Logger      *slog.Logger
}

// StartWatcher emits paths of supported documents created or written under
// the roots. Both channels are closed when ctx is done.
func StartWatcher(ctx context.Context, cfg WatchConfig) (<-chan string, <-chan error, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Roots) == 0 {
		return nil, nil, errors.New("no roots provided")
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Error("failed to create fsnotify watcher", "error", err)
		return nil, nil, err
	}

	evCh := make(chan string, 256)
	errCh := make(chan error, 1)

	var initial []string
	addDir := func(root string) error {
		return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if cfg.SkipHidden && path != root && IsHidden(path) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return w.Add(path)
			}
			if cfg.InitialScan && AllowedExt(filepath.Ext(path)) {
				initial = append(initial, path)
			}
			return nil
		})
	}
	for _, r := range cfg.Roots {
		if err := addDir(r); err != nil {
			logger.Error("failed to add root directory", "root", r, "error", err)
			_ = w.Close()
			return nil, nil, err
		}
	}

	go func() {
		defer close(evCh)
		defer close(errCh)
		defer func() {
			if err := w.Close(); err != nil {
				logger.Warn("failed to close watcher", "error", err)
			}
		}()

		emit := func(p string) bool {
			select {
			case evCh <- p:
				return true
			case <-ctx.Done():
				return false
			}
		}
		for _, p := range initial {
			if !emit(p) {
				return
			}
		}

		pending := map[string]struct{}{}
		var timer *time.Timer
		var fire <-chan time.Time
		flush := func() bool {
			for p := range pending {
				delete(pending, p)
				if !emit(p) {
					return false
				}
			}
			return true
		}

		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if cfg.SkipHidden && IsHidden(e.Name) {
					continue
				}
				if e.Has(fsnotify.Create) {
					// New directories are watched too; Add fails harmlessly on files.
					_ = w.Add(e.Name)
				}
				if !AllowedExt(filepath.Ext(e.Name)) || !(e.Has(fsnotify.Create) || e.Has(fsnotify.Write) || e.Has(fsnotify.Rename)) {
					continue
				}
				pending[e.Name] = struct{}{}
				if cfg.Debounce <= 0 {
					if !flush() {
						return
					}
					continue
				}
				if timer == nil {
					timer = time.NewTimer(cfg.Debounce)
				} else {
					timer.Reset(cfg.Debounce)
				}
				fire = timer.C
			case <-fire:
				fire = nil
				if !flush() {
					return
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Error("watcher error", "error", err)
				select {
				case errCh <- err:
				default:
				}
			}
		}
	}()

	return evCh, errCh, nil
}

// Watch submits every document reported by the watcher until ctx is done.
// Rename events for files that moved away show up as missing inputs and are
// only logged.
func (i *Ingestor) Watch(ctx context.Context, cfg WatchConfig) error {
	if cfg.Logger == nil {
		cfg.Logger = i.logger
	}
	events, errs, err := StartWatcher(ctx, cfg)
	if err != nil {
		return err
	}
	i.logger.Info("ingest.watch.started", "roots", cfg.Roots, "initial_scan", cfg.InitialScan)
	for {
		select {
		case p, ok := <-events:
			if !ok {
				return ctx.Err()
			}
			if _, err := i.IngestPath(ctx, p); err != nil {
				i.logger.Warn("ingest.watch.failed", "path", p, "error", err)
			}
		case err, ok := <-errs:
			if ok {
				i.logger.Warn("ingest.watch.error", "error", err)
			} else {
				errs = nil
			}
		}
	}
}
