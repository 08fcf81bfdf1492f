package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const watchDebounce = 200 * time.Millisecond

// watchLoop runs the task file once, then again after every change to it,
// until ctx is cancelled. Failed runs are logged and do not stop the loop.
func (o *runOptions) watchLoop(ctx context.Context, cmd *cobra.Command) error {
	logger := o.global.logger

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer watcher.Close()

	// Editors often replace the file, so watch its directory.
	target, err := filepath.Abs(o.file)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", o.file, err)
	}

	changes := make(chan struct{}, 1)
	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		var debounce <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return nil
			case ev, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
					continue
				}
				debounce = time.After(watchDebounce)
			case <-debounce:
				debounce = nil
				select {
				case changes <- struct{}{}:
				default:
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				logger.Warn().Err(err).Msg("Watcher error")
			}
		}
	})

	eg.Go(func() error {
		for {
			if _, err := o.runOnce(ctx, cmd); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error().Err(err).Str("file", o.file).Msg("Run failed")
			}
			logger.Info().Str("file", o.file).Msg("Waiting for changes")
			select {
			case <-ctx.Done():
				return nil
			case <-changes:
			}
		}
	})

	return eg.Wait()
}
