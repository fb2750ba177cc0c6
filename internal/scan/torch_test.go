package scan

import (
	"context"
	"errors"
	"testing"

	"barscan/internal/services"
)

type fakeTorchDevice struct {
	calls []bool
	err   error
}

func (d *fakeTorchDevice) Set(_ context.Context, on bool) error {
	d.calls = append(d.calls, on)
	return d.err
}

func TestTorchToggleForwardsState(t *testing.T) {
	device := &fakeTorchDevice{}
	torch := NewTorch(device, nil)

	if torch.On() {
		t.Fatal("torch should start off")
	}
	on, err := torch.Toggle(context.Background())
	if err != nil || !on {
		t.Fatalf("first toggle: on=%v err=%v", on, err)
	}
	on, err = torch.Toggle(context.Background())
	if err != nil || on {
		t.Fatalf("second toggle: on=%v err=%v", on, err)
	}
	if len(device.calls) != 2 || !device.calls[0] || device.calls[1] {
		t.Fatalf("unexpected device calls: %v", device.calls)
	}
}

func TestTorchKeepsFlipOnDeviceFailure(t *testing.T) {
	device := &fakeTorchDevice{err: services.Wrap(services.ErrDevice, "torch", "set", "/dev/video0", errors.New("inappropriate ioctl"))}
	torch := NewTorch(device, nil)

	on, err := torch.Toggle(context.Background())
	if !errors.Is(err, services.ErrDevice) {
		t.Fatalf("expected device error, got %v", err)
	}
	if !on || !torch.On() {
		t.Fatal("mirror should keep the flipped value after a device failure")
	}
}

func TestTorchWithoutDevice(t *testing.T) {
	torch := NewTorch(nil, nil)
	on, err := torch.Toggle(context.Background())
	if err != nil || !on {
		t.Fatalf("toggle without device: on=%v err=%v", on, err)
	}
}
