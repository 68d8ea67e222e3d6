package config

import "slices"

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// DialogueChanged is true if any router tuning value changed.
	DialogueChanged bool
	NewDialogue     DialogueConfig

	// RestartRequired lists sections that changed but only take effect after
	// a restart.
	RestartRequired []string
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}
	if old.Dialogue != new.Dialogue {
		d.DialogueChanged = true
		d.NewDialogue = new.Dialogue
	}

	if old.Server.ListenAddr != new.Server.ListenAddr {
		d.RestartRequired = append(d.RestartRequired, "server.listen_addr")
	}
	if old.Catalog != new.Catalog {
		d.RestartRequired = append(d.RestartRequired, "catalog")
	}
	if !sameProvider(old.Providers.LLM, new.Providers.LLM) ||
		!sameProvider(old.Providers.Embeddings, new.Providers.Embeddings) ||
		!sameProvider(old.Providers.Transcription, new.Providers.Transcription) ||
		!slices.EqualFunc(old.Providers.LLMFallbacks, new.Providers.LLMFallbacks, sameProvider) ||
		!slices.EqualFunc(old.Providers.EmbeddingsFallbacks, new.Providers.EmbeddingsFallbacks, sameProvider) ||
		!slices.EqualFunc(old.Providers.TranscriptionFallbacks, new.Providers.TranscriptionFallbacks, sameProvider) ||
		old.Providers.CircuitBreaker != new.Providers.CircuitBreaker {
		d.RestartRequired = append(d.RestartRequired, "providers")
	}
	if old.Classifier != new.Classifier {
		d.RestartRequired = append(d.RestartRequired, "classifier")
	}
	if old.History != new.History {
		d.RestartRequired = append(d.RestartRequired, "history")
	}
	if old.Discord != new.Discord {
		d.RestartRequired = append(d.RestartRequired, "discord")
	}
	return d
}

// sameProvider compares the scalar fields of two entries. Options are not
// compared.
func sameProvider(a, b ProviderEntry) bool {
	return a.Name == b.Name && a.APIKey == b.APIKey && a.BaseURL == b.BaseURL && a.Model == b.Model
}
