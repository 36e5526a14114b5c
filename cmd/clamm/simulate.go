package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/defistate/clamm-go/pool"
)

func runSimulate(cmd *cobra.Command, args []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := loadConfig(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	s, err := loadScenario(args[0])
	if err != nil {
		return err
	}

	var registry *prometheus.Registry
	if cfg.MetricsListen != "" {
		registry = prometheus.NewRegistry()
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		go func() {
			if err := http.ListenAndServe(cfg.MetricsListen, mux); err != nil {
				logger.Warn("metrics server stopped", zap.Error(err))
			}
		}()
	}

	var reg prometheus.Registerer
	if registry != nil {
		reg = registry
	}
	r, err := newRunner(s, zapPoolLogger{logger.Sugar()}, reg)
	if err != nil {
		return err
	}

	logger.Info("scenario start",
		zap.Int("tokens", len(s.Tokens)),
		zap.Int("pools", len(s.Pools)),
		zap.Int("actions", len(s.Actions)),
	)

	result, err := r.run(s)
	if err != nil {
		return err
	}

	encoded, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	encoded = append(encoded, '\n')

	if cfg.Out == "" {
		_, err = os.Stdout.Write(encoded)
		return err
	}
	return os.WriteFile(cfg.Out, encoded, 0o644)
}

// zapPoolLogger adapts a sugared zap logger to the pool logging surface.
type zapPoolLogger struct {
	s *zap.SugaredLogger
}

func (l zapPoolLogger) Debug(msg string, args ...any) { l.s.Debugw(msg, args...) }
func (l zapPoolLogger) Info(msg string, args ...any)  { l.s.Infow(msg, args...) }
func (l zapPoolLogger) Warn(msg string, args ...any)  { l.s.Warnw(msg, args...) }
func (l zapPoolLogger) Error(msg string, args ...any) { l.s.Errorw(msg, args...) }

var _ pool.Logger = zapPoolLogger{}
