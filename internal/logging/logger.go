// Package logging builds the process-scoped zap.Logger used across the
// pipeline. Every component takes a *zap.Logger explicitly through its
// constructor rather than reaching for a package-level global.
package logging

import (
	"photomeet/config"

	"go.uber.org/zap"
)

// New builds a *zap.Logger appropriate for the current environment:
// human-readable console output in development, JSON in production.
func New() (*zap.Logger, error) {
	if config.IsDevelopmentMode() {
		cfg := zap.NewDevelopmentConfig()
		cfg.DisableStacktrace = true
		return cfg.Build()
	}
	return zap.NewProduction()
}

// NewNop returns a logger that discards everything, for tests.
func NewNop() *zap.Logger {
	return zap.NewNop()
}
