// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
)

// =============================================================================
// FILE STORE WATCHER
// =============================================================================

// watchDebounce coalesces the create/write/rename burst of one atomic write.
const watchDebounce = 50 * time.Millisecond

// Watch reports keys changed by other processes until ctx is done. fn runs on
// the watcher goroutine. Changes made through this FileStore are not
// reported.
//
// The directory is watched rather than the file because atomic writes replace
// the inode, which drops a watch on the file itself.
func (s *FileStore) Watch(ctx context.Context, fn func(Change)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(s.path)); err != nil {
		w.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(s.path), err)
	}

	go s.watchLoop(ctx, w, fn)
	return nil
}

func (s *FileStore) watchLoop(ctx context.Context, w *fsnotify.Watcher, fn func(Change)) {
	defer w.Close()

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != s.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(watchDebounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			for _, c := range s.diffExternal() {
				fn(c)
			}

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			log.Printf("STORE_WATCH_ERROR | path=%s error=%v", s.path, err)
		}
	}
}

// diffExternal re-reads the file and returns the keys that differ from the
// last snapshot, updating the snapshot.
func (s *FileStore) diffExternal() []Change {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}

	values, err := s.read()
	if err != nil {
		log.Printf("STORE_WATCH_READ | path=%s error=%v", s.path, err)
		return nil
	}

	var changes []Change
	for k, v := range values {
		if old, ok := s.snapshot[k]; !ok || old != v {
			changes = append(changes, Change{Key: k, Value: v})
		}
	}
	for k := range s.snapshot {
		if _, ok := values[k]; !ok {
			changes = append(changes, Change{Key: k, Removed: true})
		}
	}
	s.snapshot = values

	sort.Slice(changes, func(i, j int) bool { return changes[i].Key < changes[j].Key })
	return changes
}
