package frame

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"barscan/internal/config"
	"barscan/internal/logging"
	"barscan/internal/services"
)

const maxFrameBytes = 16 << 20

var (
	jpegSOI = []byte{0xFF, 0xD8}
	jpegEOI = []byte{0xFF, 0xD9}
)

// FFmpegSource captures a V4L2 device by running ffmpeg and reading the MJPEG
// stream it writes to stdout.
type FFmpegSource struct {
	Binary    string
	Device    string
	Width     int
	Height    int
	FrameRate int

	logger *slog.Logger
	now    func() time.Time
}

// NewFFmpegSource builds a source from the camera configuration.
func NewFFmpegSource(cfg *config.Config, logger *slog.Logger) *FFmpegSource {
	return &FFmpegSource{
		Binary:    cfg.Camera.FFmpegBinary,
		Device:    cfg.Camera.Device,
		Width:     cfg.Camera.Width,
		Height:    cfg.Camera.Height,
		FrameRate: cfg.Camera.FrameRate,
		logger:    logging.NewComponentLogger(logger, "camera"),
		now:       time.Now,
	}
}

// Name identifies the source in logs and status output.
func (s *FFmpegSource) Name() string {
	return "v4l2:" + s.Device
}

// Args returns the ffmpeg argument list used for capture.
func (s *FFmpegSource) Args() []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-f", "v4l2"}
	if s.FrameRate > 0 {
		args = append(args, "-framerate", strconv.Itoa(s.FrameRate))
	}
	if s.Width > 0 && s.Height > 0 {
		args = append(args, "-video_size", fmt.Sprintf("%dx%d", s.Width, s.Height))
	}
	return append(args, "-i", s.Device, "-f", "image2pipe", "-vcodec", "mjpeg", "-q:v", "5", "-")
}

// Run starts ffmpeg and offers each decoded JPEG to out until ctx is cancelled
// or the process exits.
func (s *FFmpegSource) Run(ctx context.Context, out *Mailbox) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	cmd := exec.CommandContext(runCtx, s.Binary, s.Args()...) //nolint:gosec
	var stderr strings.Builder
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return services.Wrap(services.ErrDevice, "camera", "open pipe", s.Device, err)
	}
	if err := cmd.Start(); err != nil {
		return services.Wrap(services.ErrDevice, "camera", "start ffmpeg", s.Binary, err)
	}
	s.logger.Info("camera capture started",
		logging.String("device", s.Device),
		logging.Int("pid", cmd.Process.Pid),
		logging.String(logging.FieldEventType, "camera_started"),
	)

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 256<<10), maxFrameBytes)
	scanner.Split(splitJPEG)

	var seq uint64
	for scanner.Scan() {
		seq++
		data := append([]byte(nil), scanner.Bytes()...)
		out.Offer(Frame{Seq: seq, Data: data, Format: FormatJPEG, CapturedAt: s.now()})
	}
	scanErr := scanner.Err()
	if scanErr != nil {
		cancel()
	}
	waitErr := cmd.Wait()

	if ctx.Err() != nil {
		return ctx.Err()
	}
	detail := strings.TrimSpace(stderr.String())
	marker := services.ErrDevice
	if strings.Contains(strings.ToLower(detail), "permission denied") {
		marker = services.ErrPermission
	}
	switch {
	case scanErr != nil:
		return services.Wrap(marker, "camera", "read frames", detail, scanErr)
	case waitErr != nil:
		return services.Wrap(marker, "camera", "capture", detail, waitErr)
	default:
		return services.Wrap(marker, "camera", "capture", fmt.Sprintf("stream ended after %d frames", seq), nil)
	}
}

// splitJPEG is a bufio.SplitFunc yielding one complete JPEG (SOI..EOI) per
// token. Bytes before a start marker are discarded.
func splitJPEG(data []byte, atEOF bool) (int, []byte, error) {
	start := bytes.Index(data, jpegSOI)
	if start < 0 {
		if atEOF {
			return len(data), nil, nil
		}
		if len(data) < 2 {
			return 0, nil, nil
		}
		// keep the trailing byte; it may be the first half of a marker
		return len(data) - 1, nil, nil
	}
	end := bytes.Index(data[start+2:], jpegEOI)
	if end < 0 {
		if atEOF {
			return len(data), nil, nil
		}
		return start, nil, nil
	}
	stop := start + 2 + end + 2
	return stop, data[start:stop], nil
}
