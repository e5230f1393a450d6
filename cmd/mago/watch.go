package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceWindow batches editor save bursts into one re-run.
const debounceWindow = 250 * time.Millisecond

func watchDirs(watcher *fsnotify.Watcher, paths []string) error {
	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return err
		}
		if !info.IsDir() {
			if err := watcher.Add(filepath.Dir(root)); err != nil {
				return err
			}
			continue
		}
		err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				return nil
			}
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return watcher.Add(path)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func relevantEvent(ev fsnotify.Event) bool {
	if !ev.Op.Has(fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename) {
		return false
	}
	return strings.HasSuffix(ev.Name, ".php") || ev.Op.Has(fsnotify.Create)
}

func runWatch(ctx context.Context, opts *options) int {
	settings, err := loadSettings(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return 1
	}

	store, err := openCache(ctx, settings, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening cache: %s\n", err)
		return 1
	}
	if store != nil {
		defer store.Close()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return 1
	}
	defer watcher.Close()

	if err := watchDirs(watcher, settings.Paths); err != nil {
		fmt.Fprintf(os.Stderr, "Error watching paths: %s\n", err)
		return 1
	}

	rerun := func() {
		report, err := analyzeOnce(ctx, settings, store)
		if err != nil {
			if ctx.Err() == nil {
				fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			}
			return
		}
		newReporter(os.Stdout).print(report)
	}

	rerun()
	fmt.Fprintf(os.Stderr, "Watching %s for changes...\n", strings.Join(settings.Paths, ", "))

	var debounce *time.Timer
	pending := make(chan struct{}, 1)
	scheduleRerun := func() {
		if debounce != nil {
			debounce.Stop()
		}
		debounce = time.AfterFunc(debounceWindow, func() {
			select {
			case pending <- struct{}{}:
			default:
			}
		})
	}

	for {
		select {
		case <-ctx.Done():
			return 0
		case <-pending:
			rerun()
		case ev, ok := <-watcher.Events:
			if !ok {
				return 0
			}
			if !relevantEvent(ev) {
				continue
			}
			// New directories need their own watch.
			if ev.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					_ = watcher.Add(ev.Name)
				}
			}
			scheduleRerun()
		case err, ok := <-watcher.Errors:
			if !ok {
				return 0
			}
			fmt.Fprintf(os.Stderr, "Watch error: %s\n", err)
		}
	}
}
