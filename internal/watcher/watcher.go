// Package watcher runs a handler for every media file dropped into a folder.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Handler processes one new media file.
type Handler func(ctx context.Context, path string) error

var mediaExts = map[string]struct{}{
	".mp4": {}, ".mov": {}, ".mkv": {}, ".webm": {}, ".m4v": {}, ".avi": {}, ".flv": {},
	".mp3": {}, ".m4a": {}, ".wav": {}, ".ogg": {}, ".opus": {}, ".flac": {},
}

type Watcher struct {
	dir           string
	handler       Handler
	log           *slog.Logger
	watcher       *fsnotify.Watcher
	maxConcurrent int
	semaphore     chan struct{}
	settle        time.Duration
	wg            sync.WaitGroup
}

// New watches dir (not recursively). At most maxConcurrent handlers run at
// once; settle is how long a file's size must stay unchanged before it is
// handed over.
func New(dir string, handler Handler, log *slog.Logger, maxConcurrent int, settle time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("add watch path: %w", err)
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Watcher{
		dir:           dir,
		handler:       handler,
		log:           log,
		watcher:       fw,
		maxConcurrent: maxConcurrent,
		semaphore:     make(chan struct{}, maxConcurrent),
		settle:        settle,
	}, nil
}

// Start blocks until ctx is done, then waits for running handlers.
func (w *Watcher) Start(ctx context.Context) error {
	w.log.Info("watching for media", "dir", w.dir, "max_concurrent", w.maxConcurrent)
	for {
		select {
		case <-ctx.Done():
			w.log.Info("waiting for running jobs")
			w.wg.Wait()
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				w.wg.Wait()
				return errors.New("watcher events channel closed")
			}
			if !event.Has(fsnotify.Create) {
				continue
			}
			if !IsMedia(event.Name) {
				w.log.Debug("ignoring file", "path", event.Name)
				continue
			}
			w.log.Info("new media detected", "path", event.Name)

			select {
			case w.semaphore <- struct{}{}:
			case <-ctx.Done():
				w.wg.Wait()
				return ctx.Err()
			}
			w.wg.Add(1)
			go func(path string) {
				defer w.wg.Done()
				defer func() { <-w.semaphore }()

				if err := waitStable(ctx, path, w.settle); err != nil {
					w.log.Warn("file not ready", "path", path, "error", err)
					return
				}
				if err := w.handler(ctx, path); err != nil {
					w.log.Error("processing failed", "path", path, "error", err)
				}
			}(event.Name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				w.wg.Wait()
				return errors.New("watcher errors channel closed")
			}
			w.log.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

// IsMedia reports whether path looks like a media file worth processing.
// Hidden files are skipped so partial downloads and staging files never
// trigger a run.
func IsMedia(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	_, ok := mediaExts[strings.ToLower(filepath.Ext(base))]
	return ok
}

// maxSettleChecks bounds how long waitStable waits for a file that never
// grows, such as an empty placeholder.
const maxSettleChecks = 120

// waitStable returns once a non-empty file keeps its size across one settle
// interval, or fails after maxSettleChecks intervals.
func waitStable(ctx context.Context, path string, settle time.Duration) error {
	if settle <= 0 {
		_, err := os.Stat(path)
		return err
	}
	prev := int64(-1)
	for range maxSettleChecks {
		st, err := os.Stat(path)
		if err != nil {
			return err
		}
		if st.Size() == prev && prev > 0 {
			return nil
		}
		prev = st.Size()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(settle):
		}
	}
	return fmt.Errorf("%s did not settle after %d checks (size %d)", path, maxSettleChecks, prev)
}
