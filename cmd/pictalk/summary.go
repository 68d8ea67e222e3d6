package main

import (
	"fmt"
	"io"

	"github.com/MrWong99/pictalk/internal/config"
)

const summaryWidth = 23

func printStartupSummary(out io.Writer, cfg *config.Config) {
	fmt.Fprintln(out, "╔═══════════════════════════════════════════╗")
	fmt.Fprintln(out, "║         pictalk · startup summary         ║")
	fmt.Fprintln(out, "╠═══════════════════════════════════════════╣")
	printProvider(out, "LLM", cfg.Providers.LLM, len(cfg.Providers.LLMFallbacks))
	printProvider(out, "Embeddings", cfg.Providers.Embeddings, len(cfg.Providers.EmbeddingsFallbacks))
	printProvider(out, "Transcription", cfg.Providers.Transcription, len(cfg.Providers.TranscriptionFallbacks))
	printRow(out, "Intent", string(cfg.Classifier.Intent))
	printRow(out, "Emotion", string(cfg.Classifier.Emotion))
	printRow(out, "Catalog", orDash(cfg.Catalog.Path))
	printRow(out, "Content", orValue(cfg.Content.Path, "(built-in)"))
	history := "memory"
	if cfg.History.PostgresDSN != "" {
		history = "postgres"
	}
	printRow(out, "History", history)
	discord := "(disabled)"
	if cfg.Discord.Token != "" {
		discord = "connected"
	}
	printRow(out, "Discord", discord)
	printRow(out, "Listen addr", cfg.Server.ListenAddr)
	if cfg.Observe.Metrics {
		printRow(out, "Metrics", "/metrics")
	}
	fmt.Fprintln(out, "╚═══════════════════════════════════════════╝")
}

func printProvider(out io.Writer, kind string, e config.ProviderEntry, fallbacks int) {
	value := "(not configured)"
	if e.Name != "" {
		value = e.Name
		if e.Model != "" {
			value += " / " + e.Model
		}
		if fallbacks > 0 {
			value += fmt.Sprintf(" +%d", fallbacks)
		}
	}
	printRow(out, kind, value)
}

func printRow(out io.Writer, label, value string) {
	if r := []rune(value); len(r) > summaryWidth {
		value = string(r[:summaryWidth-1]) + "…"
	}
	fmt.Fprintf(out, "║  %-14s : %-*s ║\n", label, summaryWidth, value)
}

func orDash(s string) string { return orValue(s, "-") }

func orValue(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
