package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"barscan/internal/config"
)

// Options describes logger construction parameters.
type Options struct {
	Level            string
	Format           string
	OutputPaths      []string
	ErrorOutputPaths []string
	Development      bool
}

// New constructs a slog logger using the provided options.
func New(opts Options) (*slog.Logger, error) {
	level := parseLevel(opts.Level)
	levelVar := new(slog.LevelVar)
	levelVar.Set(level)

	outputs, errorOnly := splitDestinations(
		defaultSlice(opts.OutputPaths, []string{"stdout"}),
		defaultSlice(opts.ErrorOutputPaths, []string{"stderr"}),
	)
	addSource := opts.Development || level <= slog.LevelDebug

	outputWriter, err := openWriters(outputs)
	if err != nil {
		return nil, err
	}
	handler, err := newHandler(opts.Format, outputWriter, levelVar, addSource)
	if err != nil {
		return nil, err
	}
	if len(errorOnly) == 0 {
		return slog.New(handler), nil
	}

	errorWriter, err := openWriters(errorOnly)
	if err != nil {
		return nil, err
	}
	errorHandler, err := newHandler(opts.Format, errorWriter, levelVar, addSource)
	if err != nil {
		return nil, err
	}
	return slog.New(newFanoutHandler(handler, floorHandler{inner: errorHandler, floor: slog.LevelError})), nil
}

// splitDestinations dedupes the two path lists. Every record goes to outputs;
// errorOnly holds error paths not already listed as outputs.
func splitDestinations(outputPaths, errorPaths []string) (outputs, errorOnly []string) {
	seen := make(map[string]struct{}, len(outputPaths)+len(errorPaths))
	for _, path := range outputPaths {
		if trimmed := strings.TrimSpace(path); trimmed != "" {
			if _, dup := seen[trimmed]; !dup {
				seen[trimmed] = struct{}{}
				outputs = append(outputs, trimmed)
			}
		}
	}
	for _, path := range errorPaths {
		if trimmed := strings.TrimSpace(path); trimmed != "" {
			if _, dup := seen[trimmed]; !dup {
				seen[trimmed] = struct{}{}
				errorOnly = append(errorOnly, trimmed)
			}
		}
	}
	return outputs, errorOnly
}

// NewHandler builds a bare handler writing to w, for commands that log to a
// writer they already own.
func NewHandler(format, level string, w io.Writer) (slog.Handler, error) {
	levelVar := new(slog.LevelVar)
	levelVar.Set(parseLevel(level))
	return newHandler(format, w, levelVar, levelVar.Level() <= slog.LevelDebug)
}

func newHandler(format string, w io.Writer, levelVar *slog.LevelVar, addSource bool) (slog.Handler, error) {
	normalized := strings.ToLower(strings.TrimSpace(format))
	if normalized == "" {
		normalized = "console"
	}
	switch normalized {
	case "json":
		return newJSONHandler(w, levelVar, addSource), nil
	case "console":
		return newPrettyHandler(w, levelVar, addSource), nil
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", format)
	}
}

// NewFromConfig creates a logger using application config defaults.
func NewFromConfig(cfg *config.Config) (*slog.Logger, error) {
	if cfg == nil {
		return New(Options{Level: "info", Format: "console", OutputPaths: []string{"stdout"}, ErrorOutputPaths: []string{"stderr"}})
	}

	outputPaths := []string{"stdout"}
	errorOutputs := []string{"stderr"}
	if cfg.Paths.LogDir != "" {
		if err := os.MkdirAll(cfg.Paths.LogDir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure log directory: %w", err)
		}
		logPath := filepath.Join(cfg.Paths.LogDir, "barscan.log")
		outputPaths = append(outputPaths, logPath)
		errorOutputs = append(errorOutputs, logPath)
	}

	opts := Options{
		Level:            cfg.Logging.Level,
		Format:           cfg.Logging.Format,
		OutputPaths:      outputPaths,
		ErrorOutputPaths: errorOutputs,
		Development:      false,
	}
	return New(opts)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func defaultSlice(value []string, fallback []string) []string {
	if len(value) == 0 {
		value = fallback
	}
	cp := make([]string, len(value))
	copy(cp, value)
	return cp
}

func openWriters(paths []string) (io.Writer, error) {
	var writers []io.Writer
	for _, path := range paths {
		switch path {
		case "stdout":
			writers = append(writers, os.Stdout)
		case "stderr":
			writers = append(writers, os.Stderr)
		default:
			if dir := filepath.Dir(path); dir != "." && dir != "" {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return nil, fmt.Errorf("create log directory %s: %w", dir, err)
				}
			}
			file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o664)
			if err != nil {
				return nil, fmt.Errorf("open log file %s: %w", path, err)
			}
			writers = append(writers, file)
		}
	}

	switch len(writers) {
	case 0:
		return os.Stdout, nil
	case 1:
		return writers[0], nil
	default:
		return io.MultiWriter(writers...), nil
	}
}

func newJSONHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	opts := slog.HandlerOptions{
		Level:     lvl,
		AddSource: addSource,
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.TimeKey:
				attr.Key = "ts"
				if attr.Value.Kind() == slog.KindTime {
					attr.Value = slog.StringValue(attr.Value.Time().UTC().Format(time.RFC3339))
				}
			case slog.LevelKey:
				attr.Key = "level"
				attr.Value = slog.StringValue(strings.ToLower(attr.Value.String()))
			case slog.MessageKey:
				attr.Key = "msg"
			case slog.SourceKey:
				if src, ok := attr.Value.Any().(*slog.Source); ok && src != nil {
					attr.Value = slog.StringValue(fmt.Sprintf("%s:%d", filepath.Base(src.File), src.Line))
				}
			}
			return attr
		},
	}
	return slog.NewJSONHandler(w, &opts)
}
