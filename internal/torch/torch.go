// Package torch switches the camera light. The v4l2 driver sets the flash LED
// control on the capture device; the command driver shells out to user
// supplied commands for hardware without a flash control.
package torch

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"unsafe"

	"golang.org/x/sys/unix"

	"barscan/internal/config"
	"barscan/internal/services"
)

// Linux V4L2 ioctl numbers and control identifiers.
const (
	ioctlVIDIOCGCtrl = 0xC008561B
	ioctlVIDIOCSCtrl = 0xC008561C

	cidFlashLEDMode = 0x009c0901
)

// LEDMode is a V4L2_CID_FLASH_LED_MODE value.
type LEDMode int32

const (
	LEDModeNone  LEDMode = 0
	LEDModeFlash LEDMode = 1
	LEDModeTorch LEDMode = 2
)

// String returns a human-readable label for the mode.
func (m LEDMode) String() string {
	switch m {
	case LEDModeNone:
		return "none"
	case LEDModeFlash:
		return "flash"
	case LEDModeTorch:
		return "torch"
	default:
		return fmt.Sprintf("unknown(%d)", int32(m))
	}
}

// Device switches a light on or off.
type Device interface {
	Set(ctx context.Context, on bool) error
}

// New returns the driver selected by torch.mode.
func New(cfg *config.Config) Device {
	switch cfg.Torch.Mode {
	case config.TorchModeV4L2:
		return V4L2{Device: cfg.Camera.Device}
	case config.TorchModeCommand:
		return Command{On: cfg.Torch.OnCommand, Off: cfg.Torch.OffCommand}
	default:
		return None{}
	}
}

type v4l2Control struct {
	id    uint32
	value int32
}

// V4L2 drives the flash LED control of a video device.
type V4L2 struct {
	Device string
}

// Set switches the LED between torch and off.
func (v V4L2) Set(_ context.Context, on bool) error {
	mode := LEDModeNone
	if on {
		mode = LEDModeTorch
	}
	ctrl := v4l2Control{id: cidFlashLEDMode, value: int32(mode)}
	if err := v.ioctl(ioctlVIDIOCSCtrl, &ctrl); err != nil {
		return wrapDeviceError("set flash mode", v.Device, err)
	}
	return nil
}

// Mode reads the current LED mode. Devices without a flash control fail
// with EINVAL.
func (v V4L2) Mode() (LEDMode, error) {
	ctrl := v4l2Control{id: cidFlashLEDMode}
	if err := v.ioctl(ioctlVIDIOCGCtrl, &ctrl); err != nil {
		return LEDModeNone, wrapDeviceError("read flash mode", v.Device, err)
	}
	return LEDMode(ctrl.value), nil
}

func (v V4L2) ioctl(request uintptr, ctrl *v4l2Control) error {
	device := strings.TrimSpace(v.Device)
	if device == "" {
		return errors.New("empty device path")
	}
	fd, err := unix.Open(device, unix.O_RDWR|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return fmt.Errorf("open %s: %w", device, err)
	}
	defer unix.Close(fd) //nolint:errcheck

	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), request, uintptr(unsafe.Pointer(ctrl)))
	if errno != 0 {
		return fmt.Errorf("ioctl %#x on %s: %w", request, device, errno)
	}
	return nil
}

// Command runs a shell command for each transition.
type Command struct {
	On  string
	Off string
}

// Set runs the on or off command through sh -c.
func (c Command) Set(ctx context.Context, on bool) error {
	script := c.Off
	if on {
		script = c.On
	}
	if strings.TrimSpace(script) == "" {
		return services.Wrap(services.ErrConfiguration, "torch", "command", "no command configured", nil)
	}
	output, err := exec.CommandContext(ctx, "sh", "-c", script).CombinedOutput() //nolint:gosec
	if err != nil {
		detail := strings.TrimSpace(string(output))
		if detail == "" {
			detail = script
		}
		return services.Wrap(services.ErrDevice, "torch", "command", detail, err)
	}
	return nil
}

// None accepts every change without touching hardware.
type None struct{}

// Set is a no-op.
func (None) Set(context.Context, bool) error { return nil }

func wrapDeviceError(operation, device string, err error) error {
	marker := services.ErrDevice
	if errors.Is(err, unix.EACCES) || errors.Is(err, unix.EPERM) {
		marker = services.ErrPermission
	}
	return services.Wrap(marker, "torch", operation, device, err)
}
