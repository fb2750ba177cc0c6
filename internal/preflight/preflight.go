package preflight

import (
	"context"
	"path/filepath"
	"strings"

	"barscan/internal/config"
	"barscan/internal/services"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string `json:"name"`
	Passed   bool   `json:"passed"`
	Detail   string `json:"detail"`
	Optional bool   `json:"optional,omitempty"`

	marker error
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	switch cfg.Camera.Source {
	case config.SourceV4L2:
		results = append(results, CheckDeviceAccess("Camera device", cfg.Camera.Device))
		results = append(results, CheckSystemDeps(cfg)...)
	case config.SourceSpool:
		results = append(results, CheckDirectoryAccess("Spool directory", cfg.Camera.SpoolDir))
	}
	results = append(results, CheckScanLog(cfg.Paths.ScanLog))

	if cfg.Torch.Mode == config.TorchModeV4L2 {
		results = append(results, CheckTorch(cfg.Camera.Device))
	}
	if strings.TrimSpace(cfg.Paths.CatalogDB) != "" {
		catalog := CheckDirectoryAccess("Catalog directory", filepath.Dir(cfg.Paths.CatalogDB))
		catalog.Optional = true
		results = append(results, catalog)
	}
	if cfg.Events.NATSURL != "" {
		results = append(results, CheckNATS(ctx, cfg.Events.NATSURL))
	}
	return results
}

// Err returns an error for the first failed required check, or nil.
func Err(results []Result) error {
	for _, result := range results {
		if result.Passed || result.Optional {
			continue
		}
		marker := result.marker
		if marker == nil {
			marker = services.ErrPermission
		}
		return services.Wrap(marker, "preflight", result.Name, result.Detail, nil)
	}
	return nil
}
