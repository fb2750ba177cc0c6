package frame

import (
	"context"
	"time"
)

// Image encodings carried in Frame.Format.
const (
	FormatJPEG = "jpeg"
	FormatPNG  = "png"
	FormatGIF  = "gif"
)

// Frame is one encoded camera image.
type Frame struct {
	Seq        uint64
	Data       []byte
	Format     string
	CapturedAt time.Time
}

// Source produces frames until ctx is cancelled or the underlying device fails.
type Source interface {
	Name() string
	Run(ctx context.Context, out *Mailbox) error
}
