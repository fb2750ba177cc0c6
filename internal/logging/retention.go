package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// PruneTarget names the files in one directory that expire once they are
// older than MaxAge. A zero MaxAge disables the target.
type PruneTarget struct {
	// Label identifies the target in log output, e.g. "log" or "spool".
	Label string
	Dir   string
	// Patterns are filepath.Match globs; a file matching any of them is a
	// candidate. No patterns means every regular file is a candidate.
	Patterns []string
	// Keep lists paths that are never removed regardless of age.
	Keep   []string
	MaxAge time.Duration
}

// PruneReport counts what a Prune pass did.
type PruneReport struct {
	Removed int
	Failed  int
}

// RetentionDays converts a day count from configuration into a MaxAge.
func RetentionDays(days int) time.Duration {
	if days <= 0 {
		return 0
	}
	return time.Duration(days) * 24 * time.Hour
}

// Prune removes expired files for each target and logs one summary line per
// target that removed anything.
func Prune(logger *slog.Logger, targets ...PruneTarget) PruneReport {
	if logger == nil {
		logger = NewNop()
	}
	now := time.Now()
	var total PruneReport
	for _, target := range targets {
		report := pruneTarget(logger, target, now)
		total.Removed += report.Removed
		total.Failed += report.Failed
		if report.Removed > 0 || report.Failed > 0 {
			logger.Info("retention pass complete",
				String("target", target.Label),
				String("dir", target.Dir),
				Int("removed", report.Removed),
				Int("failed", report.Failed),
				String(FieldEventType, "retention_pruned"),
			)
		}
	}
	return total
}

func pruneTarget(logger *slog.Logger, target PruneTarget, now time.Time) PruneReport {
	var report PruneReport
	dir := strings.TrimSpace(target.Dir)
	if dir == "" || target.MaxAge <= 0 {
		return report
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return report
	}
	keep := make(map[string]struct{}, len(target.Keep))
	for _, path := range target.Keep {
		if abs := absPath(path); abs != "" {
			keep[abs] = struct{}{}
		}
	}
	cutoff := now.Add(-target.MaxAge)

	for _, entry := range entries {
		if !entry.Type().IsRegular() || !matchesAny(target.Patterns, entry.Name()) {
			continue
		}
		path := absPath(filepath.Join(dir, entry.Name()))
		if _, skip := keep[path]; skip {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			report.Failed++
			WarnWithContext(logger, "retention remove failed; file remains", "retention_remove_failed",
				String("target", target.Label),
				String("path", path),
				Error(err),
				String(FieldErrorHint, "check ownership of "+dir),
				String(FieldImpact, "expired file stays on disk"),
			)
			continue
		}
		report.Removed++
		logger.Debug("expired file removed", String("target", target.Label), String("path", path))
	}
	return report
}

func matchesAny(patterns []string, name string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, pattern := range patterns {
		if ok, err := filepath.Match(strings.TrimSpace(pattern), name); err == nil && ok {
			return true
		}
	}
	return false
}

func absPath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}
