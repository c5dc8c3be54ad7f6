package config

const (
	defaultLogDir        = "~/.local/share/lapse/logs"
	defaultStateDir      = "~/.local/share/lapse"
	defaultLogFormat     = "console"
	defaultLogLevel      = "info"
	defaultFrameInterval = 1.0
	defaultVideoFPS      = 30
	defaultQuality       = 85
	defaultVideoCodec    = "h265"
	defaultInterpreter   = "python3"
	defaultWorkerScript  = "timelapse.py"
	defaultStopGrace     = 5
	defaultEscalation    = 5
	defaultStrategy      = "file"
	defaultWatchInterval = 1
	defaultWatchAttempts = 60
)

// DefaultOutputDirName is the directory created under the workspace when no
// custom output directory is configured. A custom directory whose basename
// matches it is rejected to avoid ambiguity.
const DefaultOutputDirName = "timelapse"

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:   defaultLogDir,
			StateDir: defaultStateDir,
		},
		Recording: Recording{
			OutputDirectory: DefaultOutputDirName,
			FrameInterval:   defaultFrameInterval,
			VideoFPS:        defaultVideoFPS,
			Quality:         defaultQuality,
			VideoCodec:      defaultVideoCodec,
		},
		Worker: Worker{
			Interpreter:    defaultInterpreter,
			Script:         defaultWorkerScript,
			StopGraceSecs:  defaultStopGrace,
			EscalationSecs: defaultEscalation,
		},
		Control: Control{
			Strategy: defaultStrategy,
		},
		Finalize: Finalize{
			FFmpegBinary:  "ffmpeg",
			WatchInterval: defaultWatchInterval,
			WatchAttempts: defaultWatchAttempts,
		},
		Notifications: Notifications{
			RequestTimeout: 10,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
