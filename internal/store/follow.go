package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"github.com/hpcloud/tail"
	"go.uber.org/zap"
)

// FollowOptions tunes Follow.
type FollowOptions struct {
	// FromStart replays events already in the file.
	FromStart bool
	// Poll stats the file instead of using inotify.
	Poll bool
}

// Follow tails events.jsonl of the current run and calls fn for each event
// until ctx is cancelled or fn returns an error.
func Follow(ctx context.Context, root string, opts FollowOptions, logger *zap.Logger, fn func(Event) error) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	_, dir, err := CurrentRun(root)
	if err != nil {
		return err
	}
	whence := io.SeekEnd
	if opts.FromStart {
		whence = io.SeekStart
	}
	t, err := tail.TailFile(filepath.Join(dir, eventsFile), tail.Config{
		Follow:    true,
		ReOpen:    true,
		MustExist: false,
		Poll:      opts.Poll,
		Location:  &tail.SeekInfo{Offset: 0, Whence: whence},
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return fmt.Errorf("tail screenshot events: %w", err)
	}
	defer func() {
		_ = t.Stop()
		t.Cleanup()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-t.Lines:
			if !ok {
				return nil
			}
			if line.Err != nil {
				logger.Warn("Error reading events file", zap.Error(line.Err))
				continue
			}
			if line.Text == "" {
				continue
			}
			var ev Event
			if err := json.Unmarshal([]byte(line.Text), &ev); err != nil {
				logger.Warn("Skipping malformed event line", zap.Error(err))
				continue
			}
			if err := fn(ev); err != nil {
				return err
			}
		}
	}
}
