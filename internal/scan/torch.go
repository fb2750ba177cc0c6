package scan

import (
	"context"
	"log/slog"

	"barscan/internal/logging"
	"barscan/internal/services"
)

// TorchDevice switches the camera light.
type TorchDevice interface {
	Set(ctx context.Context, on bool) error
}

// Torch mirrors the light state. The mirror follows the user's intent: a
// device failure is logged and the flipped value is kept.
type Torch struct {
	on     bool
	device TorchDevice
	logger *slog.Logger
}

// NewTorch builds a torch mirror starting off.
func NewTorch(device TorchDevice, logger *slog.Logger) *Torch {
	return &Torch{device: device, logger: logging.NewComponentLogger(logger, "torch")}
}

// On reports the mirrored state.
func (t *Torch) On() bool {
	return t.on
}

// Toggle flips the mirror and forwards the new value to the device.
func (t *Torch) Toggle(ctx context.Context) (bool, error) {
	t.on = !t.on
	if t.device == nil {
		return t.on, nil
	}
	if err := t.device.Set(ctx, t.on); err != nil {
		logging.WarnWithContext(t.logger, "torch device rejected change", services.EventType(err),
			logging.Bool("requested", t.on),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check torch.mode and camera flash support"),
			logging.String(logging.FieldImpact, "light state may not match the toggle"),
		)
		return t.on, err
	}
	t.logger.Debug("torch switched", logging.Bool("on", t.on))
	return t.on, nil
}
