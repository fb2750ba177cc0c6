package frame

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"barscan/internal/config"
	"barscan/internal/logging"
	"barscan/internal/services"
)

// SpoolSource offers image files dropped into Dir. Writers should create files
// under a dot-prefixed name and rename them into place; dotfiles are ignored.
// Each poll offers the newest image and removes every image it saw.
type SpoolSource struct {
	Dir      string
	Interval time.Duration

	logger *slog.Logger
	seq    uint64
}

// NewSpoolSource builds a spool source from the camera configuration.
func NewSpoolSource(cfg *config.Config, logger *slog.Logger) *SpoolSource {
	return &SpoolSource{
		Dir:      cfg.Camera.SpoolDir,
		Interval: cfg.SpoolPollInterval(),
		logger:   logging.NewComponentLogger(logger, "spool"),
	}
}

// Name identifies the source in logs and status output.
func (s *SpoolSource) Name() string {
	return "spool:" + s.Dir
}

// Run polls Dir until ctx is cancelled.
func (s *SpoolSource) Run(ctx context.Context, out *Mailbox) error {
	interval := s.Interval
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := s.Poll(out); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

type spoolEntry struct {
	path    string
	format  string
	modTime time.Time
}

// Poll performs a single scan of the spool directory.
func (s *SpoolSource) Poll(out *Mailbox) error {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return services.Wrap(services.ErrPermission, "spool", "read dir", s.Dir, err)
		}
		return services.Wrap(services.ErrDevice, "spool", "read dir", s.Dir, err)
	}

	candidates := make([]spoolEntry, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		format := formatFromExt(filepath.Ext(name))
		if format == "" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		candidates = append(candidates, spoolEntry{
			path:    filepath.Join(s.Dir, name),
			format:  format,
			modTime: info.ModTime(),
		})
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].modTime.Equal(candidates[j].modTime) {
			return candidates[i].path < candidates[j].path
		}
		return candidates[i].modTime.Before(candidates[j].modTime)
	})

	newest := candidates[len(candidates)-1]
	data, readErr := os.ReadFile(newest.path)
	for _, candidate := range candidates {
		if err := os.Remove(candidate.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			logging.WarnWithContext(s.logger, "spool file not removed", "spool_remove_failed",
				logging.String("path", candidate.path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check spool_dir permissions"),
				logging.String(logging.FieldImpact, "file may be offered again"),
			)
		}
	}
	if readErr != nil {
		logging.WarnWithContext(s.logger, "spool file unreadable", "spool_read_failed",
			logging.String("path", newest.path),
			logging.Error(readErr),
		)
		return nil
	}
	if skipped := len(candidates) - 1; skipped > 0 {
		s.logger.Debug("spool frames skipped", logging.Int("skipped", skipped))
	}

	s.seq++
	out.Offer(Frame{Seq: s.seq, Data: data, Format: newest.format, CapturedAt: newest.modTime})
	return nil
}

func formatFromExt(ext string) string {
	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg":
		return FormatJPEG
	case ".png":
		return FormatPNG
	case ".gif":
		return FormatGIF
	default:
		return ""
	}
}
