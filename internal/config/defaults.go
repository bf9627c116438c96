package config

const (
	defaultConfigPath            = "~/.config/closetpicks/config.toml"
	projectConfigName            = "closetpicks.toml"
	defaultDataDir               = "~/.local/share/closetpicks/data"
	defaultLogDir                = "~/.local/share/closetpicks/logs"
	defaultTranscriptsDir        = "~/.local/share/closetpicks/transcripts"
	defaultStateDir              = "~/.local/state/closetpicks"
	defaultFuzzyThresholdLoose   = 75
	defaultFuzzyThresholdStrict  = 85
	defaultYearTolerance         = 1
	defaultTMDBLanguage          = "en-US"
	defaultTMDBBaseURL           = "https://api.themoviedb.org/3"
	defaultTMDBRequestsPerSecond = 4
	defaultTMDBTimeoutSeconds    = 10
	defaultLLMBaseURL            = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel              = "google/gemini-3-flash-preview"
	defaultLLMReferer            = "https://github.com/closetpicks/closetpicks"
	defaultLLMTitle              = "Closet Picks Extractor"
	defaultLLMRequestsPerMinute  = 10
	defaultLLMTimeoutSeconds     = 120
	defaultWorkers               = 4
	defaultBatchSize             = 20
	defaultMaxSegments           = 1000
	defaultMaxQuoteChars         = 500
	defaultMetadataYearTolerance = 2
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:        defaultDataDir,
			LogDir:         defaultLogDir,
			TranscriptsDir: defaultTranscriptsDir,
			StateDir:       defaultStateDir,
		},
		Matching: Matching{
			FuzzyThresholdLoose:  defaultFuzzyThresholdLoose,
			FuzzyThresholdStrict: defaultFuzzyThresholdStrict,
			YearTolerance:        defaultYearTolerance,
		},
		TMDB: TMDB{
			BaseURL:           defaultTMDBBaseURL,
			Language:          defaultTMDBLanguage,
			RequestsPerSecond: defaultTMDBRequestsPerSecond,
			TimeoutSeconds:    defaultTMDBTimeoutSeconds,
		},
		LLM: LLM{
			BaseURL:           defaultLLMBaseURL,
			Model:             defaultLLMModel,
			Referer:           defaultLLMReferer,
			Title:             defaultLLMTitle,
			RequestsPerMinute: defaultLLMRequestsPerMinute,
			TimeoutSeconds:    defaultLLMTimeoutSeconds,
		},
		Enrich: Enrich{
			Workers:               defaultWorkers,
			BatchSize:             defaultBatchSize,
			MaxSegments:           defaultMaxSegments,
			MaxQuoteChars:         defaultMaxQuoteChars,
			MetadataYearTolerance: defaultMetadataYearTolerance,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
