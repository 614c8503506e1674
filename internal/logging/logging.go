// Package logging builds the single zap.Logger threaded through every
// component's constructor (Design Note 9: no package-level loggers).
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/autollama/ingestor/internal/loki"
)

// New builds a production-style JSON logger, or a development console
// logger when env is "dev" — matching the teacher's zap.NewProduction()
// default seen across every service (document-chunker, sse-rag-service,
// go-enhanced-rag-service) while allowing readable local-dev output. When
// lokiURL is non-empty, log entries are additionally shipped to Loki
// through internal/loki.Core, a second zapcore.Core tee'd alongside
// stdout.
func New(env, lokiURL string) (*zap.Logger, error) {
	var cfg zap.Config
	if env == "dev" {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.OutputPaths = []string{"stdout"}
	}

	if lokiURL == "" {
		return cfg.Build()
	}

	stdoutCore, err := buildCore(cfg)
	if err != nil {
		return nil, err
	}
	lokiClient := loki.New(lokiURL, map[string]string{"service": "ingestd"})
	lokiCore := loki.NewCore(lokiClient, zapcore.NewJSONEncoder(cfg.EncoderConfig), cfg.Level, nil, 0)
	tee := zapcore.NewTee(stdoutCore, lokiCore)
	return zap.New(tee, zap.AddCaller()), nil
}

func buildCore(cfg zap.Config) (zapcore.Core, error) {
	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return l.Core(), nil
}

// NewForTests returns a no-op logger, for use in package tests that don't
// want to assert on log output.
func NewForTests() *zap.Logger {
	return zap.NewNop()
}

// MustNew is New but calls os.Exit(1) on failure, for use at process
// startup in cmd/ingestd before there's anywhere better to report the error.
func MustNew(env, lokiURL string) *zap.Logger {
	l, err := New(env, lokiURL)
	if err != nil {
		os.Stderr.WriteString("logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	return l
}
