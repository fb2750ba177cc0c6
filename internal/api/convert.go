package api

import (
	"time"

	"barscan/internal/catalog"
	"barscan/internal/deps"
	"barscan/internal/preflight"
	"barscan/internal/scan"
	"barscan/internal/scanlog"
)

// FromSnapshot converts a session snapshot to its API representation.
func FromSnapshot(snap scan.Snapshot) Session {
	dto := Session{
		Gate:      snap.Gate,
		InFlight:  snap.InFlight,
		AttemptID: snap.AttemptID,
		Torch:     snap.Torch,
		Banner: Banner{
			Message: snap.Banner.Message,
			Visible: snap.Banner.Visible,
			ShownAt: formatTime(snap.Banner.ShownAt),
			Version: snap.Banner.Version,
		},
		Frames: FrameStats{
			Offered: snap.Frames.Offered,
			Dropped: snap.Frames.Dropped,
			Taken:   snap.Frames.Taken,
		},
		Discarded: snap.Discarded,
		Attempts:  snap.Attempts,
	}
	if snap.Last != nil {
		dto.Last = &LastScan{Value: snap.Last.Value, ObservedAt: formatTime(snap.Last.ObservedAt)}
	}
	if snap.LastOutcome != nil {
		outcome := FromOutcome(*snap.LastOutcome)
		dto.LastOutcome = &outcome
	}
	return dto
}

// FromOutcome converts an attempt outcome, flattening its errors to strings.
func FromOutcome(outcome scan.Outcome) Outcome {
	dto := Outcome{
		AttemptID: outcome.AttemptID,
		Kind:      string(outcome.Kind),
		Message:   outcome.Message,
		Value:     outcome.Value,
		Symbology: outcome.Symbology,
		Product:   outcome.Product,
		At:        formatTime(outcome.At),
	}
	if outcome.PersistErr != nil {
		dto.PersistError = outcome.PersistErr.Error()
	}
	if outcome.Err != nil {
		dto.Error = outcome.Err.Error()
	}
	return dto
}

// FromChecks converts preflight results.
func FromChecks(results []preflight.Result) []CheckResult {
	out := make([]CheckResult, 0, len(results))
	for _, result := range results {
		out = append(out, CheckResult{
			Name:     result.Name,
			Passed:   result.Passed,
			Detail:   result.Detail,
			Optional: result.Optional,
		})
	}
	return out
}

// FromDependencies converts binary availability reports.
func FromDependencies(statuses []deps.Status) []DependencyStatus {
	out := make([]DependencyStatus, 0, len(statuses))
	for _, dep := range statuses {
		out = append(out, DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		})
	}
	return out
}

// FromEntries converts scan log entries, attaching catalog names when known.
func FromEntries(entries []scanlog.Entry, names map[string]string) []ScanEntry {
	out := make([]ScanEntry, 0, len(entries))
	for _, entry := range entries {
		out = append(out, ScanEntry{
			Value:      entry.Value,
			ObservedAt: formatTime(entry.ObservedAt),
			Product:    names[entry.Value],
		})
	}
	return out
}

// FromProduct converts a catalog row.
func FromProduct(product *catalog.Product) Product {
	if product == nil {
		return Product{}
	}
	return Product{
		ID:        product.ID,
		Name:      product.Name,
		Barcode:   product.Barcode,
		Price:     product.Price,
		Quantity:  product.Quantity,
		CreatedAt: formatTime(product.CreatedAt),
		UpdatedAt: formatTime(product.UpdatedAt),
	}
}

// ParseTime reads a timestamp produced by this package. Empty or malformed
// values yield the zero time.
func ParseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(dateTimeFormat, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
