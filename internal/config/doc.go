// ABOUTME: Configuration package for the interview client and dev server
// ABOUTME: YAML file with per-section validation, .env overrides and live reload
// Package config loads kikitori settings.
//
// Settings are read from a YAML file, then overridden by environment
// variables (optionally loaded from a .env file). Every section validates
// itself so a bad file is rejected as a whole. Watch reloads the file when
// it changes so voice-activity thresholds can be tuned during an interview.
package config
