package config

// Frame source kinds.
const (
	SourceV4L2  = "v4l2"
	SourceSpool = "spool"
)

// Torch modes.
const (
	TorchModeV4L2    = "v4l2"
	TorchModeCommand = "command"
	TorchModeNone    = "none"
)

const (
	defaultScanLog             = "~/barcode.txt"
	defaultLogDir              = "~/.local/share/barscan/logs"
	defaultCatalogDB           = "~/.local/share/barscan/catalog.db"
	defaultAPIBind             = "127.0.0.1:7490"
	defaultCameraDevice        = "/dev/video0"
	defaultFFmpegBinary        = "ffmpeg"
	defaultCameraWidth         = 1280
	defaultCameraHeight        = 720
	defaultCameraFrameRate     = 15
	defaultSpoolDir            = "~/.local/share/barscan/spool"
	defaultSpoolPollMillis     = 200
	defaultRestartDelaySeconds = 3
	defaultDedupWindowMillis   = 1500
	defaultStatusClearMillis   = 1000
	defaultRecognizeTimeoutMs  = 5000
	defaultSubjectPrefix       = "barscan.scan"
	defaultNtfyTimeoutSeconds  = 10
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultLogRetentionDays    = 30
)

var defaultSymbologies = []string{"ean13", "ean8", "upca", "upce"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ScanLog:   defaultScanLog,
			LogDir:    defaultLogDir,
			CatalogDB: defaultCatalogDB,
			APIBind:   defaultAPIBind,
		},
		Camera: Camera{
			Source:              SourceV4L2,
			Device:              defaultCameraDevice,
			FFmpegBinary:        defaultFFmpegBinary,
			Width:               defaultCameraWidth,
			Height:              defaultCameraHeight,
			FrameRate:           defaultCameraFrameRate,
			SpoolDir:            defaultSpoolDir,
			SpoolPollMillis:     defaultSpoolPollMillis,
			RestartDelaySeconds: defaultRestartDelaySeconds,
			Hotplug:             true,
		},
		Scan: Scan{
			DedupWindowMillis:      defaultDedupWindowMillis,
			StatusClearMillis:      defaultStatusClearMillis,
			RecognizeTimeoutMillis: defaultRecognizeTimeoutMs,
			Symbologies:            append([]string(nil), defaultSymbologies...),
		},
		Torch: Torch{
			Mode: TorchModeV4L2,
		},
		Events: Events{
			SubjectPrefix: defaultSubjectPrefix,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNtfyTimeoutSeconds,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
