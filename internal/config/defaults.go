package config

import "time"

// Defaults for unset fields.
const (
	DefaultListenAddr          = ":8080"
	DefaultShutdownTimeout     = 15 * time.Second
	DefaultContentPoll         = 2 * time.Second
	DefaultDrillSize           = 3
	DefaultDrillRounds         = 3
	DefaultHistoryLimit        = 5
	DefaultMaxTokens           = 150
	DefaultConfidenceThreshold = 0.5
	DefaultParrotOverlap       = 0.7
	DefaultMinReplyTokens      = 4
)

// ApplyDefaults fills every unset field of cfg with its default.
func ApplyDefaults(cfg *Config) {
	s := &cfg.Server
	if s.ListenAddr == "" {
		s.ListenAddr = DefaultListenAddr
	}
	if s.LogLevel == "" {
		s.LogLevel = LogInfo
	}
	if s.ShutdownTimeout == 0 {
		s.ShutdownTimeout = DefaultShutdownTimeout
	}

	if cfg.Content.PollInterval == 0 {
		cfg.Content.PollInterval = DefaultContentPoll
	}

	d := &cfg.Dialogue
	if d.DrillSize == 0 {
		d.DrillSize = DefaultDrillSize
	}
	if d.DrillRounds == 0 {
		d.DrillRounds = DefaultDrillRounds
	}
	if d.HistoryLimit == 0 {
		d.HistoryLimit = DefaultHistoryLimit
	}
	if d.MaxTokens == 0 {
		d.MaxTokens = DefaultMaxTokens
	}
	if d.ConfidenceThreshold == 0 {
		d.ConfidenceThreshold = DefaultConfidenceThreshold
	}
	if d.ParrotOverlap == 0 {
		d.ParrotOverlap = DefaultParrotOverlap
	}
	if d.MinReplyTokens == 0 {
		d.MinReplyTokens = DefaultMinReplyTokens
	}

	if cfg.Classifier.Intent == "" {
		cfg.Classifier.Intent = ClassifierLexical
	}
	if cfg.Classifier.Emotion == "" {
		cfg.Classifier.Emotion = ClassifierLexical
	}
	if cfg.History.RecentLimit == 0 {
		cfg.History.RecentLimit = d.HistoryLimit
	}
}
