package config

const (
	defaultWorkDir   = "~/.local/share/clipscribe/work"
	defaultLogDir    = "~/.local/share/clipscribe/logs"
	defaultExportDir = "~/clipscribe-exports"

	defaultDownloadWorkers        = 4
	defaultMaxDownloadAttempts    = 3
	defaultRetryBackoffSeconds    = 1
	defaultRetryBackoffCapSeconds = 30
	defaultFetchTimeoutSeconds    = 120
	defaultQueueSize              = 8

	defaultTranscribeWorkers        = 1
	defaultWhisperModel             = "base"
	defaultLanguageHint             = "auto"
	defaultTranscribeTimeoutSeconds = 600

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// ModelSizes lists the whisper model sizes accepted in configuration.
var ModelSizes = []string{"tiny", "base", "small", "medium", "large"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:   defaultWorkDir,
			LogDir:    defaultLogDir,
			ExportDir: defaultExportDir,
		},
		Download: Download{
			Workers:                defaultDownloadWorkers,
			MaxAttempts:            defaultMaxDownloadAttempts,
			RetryBackoffSeconds:    defaultRetryBackoffSeconds,
			RetryBackoffCapSeconds: defaultRetryBackoffCapSeconds,
			FetchTimeoutSeconds:    defaultFetchTimeoutSeconds,
			QueueSize:              defaultQueueSize,
		},
		Transcription: Transcription{
			Workers:        defaultTranscribeWorkers,
			Model:          defaultWhisperModel,
			Language:       defaultLanguageHint,
			TimeoutSeconds: defaultTranscribeTimeoutSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
