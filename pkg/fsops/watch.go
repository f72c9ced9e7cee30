package fsops

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"relatorios/internal/apperrors"
)

// Watch calls onChange after files in Root are created, written, renamed or
// removed. Events arriving within quiet of each other are coalesced into one
// call, and .tmp files are ignored. Watch blocks until ctx is done.
func (s *Store) Watch(ctx context.Context, quiet time.Duration, onChange func(names []string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return apperrors.Storage("failed to start watcher", err)
	}
	defer watcher.Close()
	if err := watcher.Add(s.Root); err != nil {
		return apperrors.Storage("failed to watch attachment directory", err)
	}

	var (
		timer   *time.Timer
		fire    <-chan time.Time
		pending = map[string]bool{}
	)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			name := filepath.Base(event.Name)
			if strings.HasSuffix(name, ".tmp") || event.Op == fsnotify.Chmod {
				continue
			}
			pending[name] = true
			if timer == nil {
				timer = time.NewTimer(quiet)
			} else {
				timer.Reset(quiet)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			names := make([]string, 0, len(pending))
			for n := range pending {
				names = append(names, n)
			}
			sort.Strings(names)
			pending = map[string]bool{}
			onChange(names)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return apperrors.Storage("watcher failed", err)
		}
	}
}
