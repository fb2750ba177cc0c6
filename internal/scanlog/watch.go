package scanlog

import (
	"context"
	"strings"
	"time"
)

// DefaultWatchInterval is the poll period used by barscan watch.
const DefaultWatchInterval = time.Second

// Watch polls path and calls fn with every new non-blank line, trimmed. It
// starts from the beginning of the file so existing lines are reported first.
// A missing file is treated as empty. Watch returns when ctx is cancelled.
func Watch(ctx context.Context, path string, interval time.Duration, fn func(line string)) error {
	if interval <= 0 {
		interval = DefaultWatchInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var offset int64
	for {
		result, err := readFromOffset(ctx, path, offset, false, 0)
		if err == nil {
			offset = result.Offset
			for _, line := range result.Lines {
				if trimmed := strings.TrimSpace(line); trimmed != "" {
					fn(trimmed)
				}
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
