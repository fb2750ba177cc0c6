package logging

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// Scan attributes that get a compact console rendering.
const (
	fieldFrameSeq  = "frame_seq"
	fieldSymbology = "symbology"
)

const consoleTimeLayout = "2006-01-02 15:04:05"

func consoleTime(ts time.Time) string {
	if ts.IsZero() {
		ts = time.Now()
	}
	return ts.In(time.Local).Format(consoleTimeLayout)
}

// consoleValue renders one flattened attribute for the console handler.
// Keys are matched on their last segment so grouped attributes such as
// outcome.attempt_id render like their top-level counterparts.
func consoleValue(key string, v slog.Value) string {
	v = v.Resolve()
	switch lastSegment(key) {
	case fieldFrameSeq:
		switch v.Kind() {
		case slog.KindUint64:
			return "#" + strconv.FormatUint(v.Uint64(), 10)
		case slog.KindInt64:
			return "#" + strconv.FormatInt(v.Int64(), 10)
		}
	case FieldAttemptID:
		if v.Kind() == slog.KindString {
			return shortAttempt(v.String())
		}
	case fieldSymbology:
		if v.Kind() == slog.KindString && v.String() != "" {
			return strings.ToUpper(v.String())
		}
	}

	switch v.Kind() {
	case slog.KindBool:
		return strconv.FormatBool(v.Bool())
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		return strconv.FormatUint(v.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindDuration:
		d := v.Duration()
		if d >= time.Millisecond {
			d = d.Round(time.Millisecond)
		}
		return d.String()
	case slog.KindTime:
		return consoleTime(v.Time())
	default:
		return quoteIfNeeded(plainString(v))
	}
}

// plainString returns the unquoted text of a string, error or arbitrary value.
func plainString(v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return fmt.Sprint(v.Any())
	default:
		return v.String()
	}
}

func quoteIfNeeded(s string) string {
	if s == "" || strings.ContainsFunc(s, func(r rune) bool { return r <= ' ' || r == '=' || r == '"' }) {
		return strconv.Quote(s)
	}
	return s
}

func lastSegment(key string) string {
	if idx := strings.LastIndexByte(key, '.'); idx >= 0 {
		return key[idx+1:]
	}
	return key
}
