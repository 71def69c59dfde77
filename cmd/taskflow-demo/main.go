package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/askiada/go-taskflow/internal/config"
	"github.com/askiada/go-taskflow/pkg/flow/drawer"
	"github.com/askiada/go-taskflow/pkg/flow/measure"
	"github.com/askiada/go-taskflow/pkg/flow/model"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.LogLevel)
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = run(ctx, cfg, logger, os.Stdin, os.Stdout)
	if err != nil {
		logger.Fatal("summary failed", zap.Error(err))
	}
}

// run summarises the text read from in and writes the HTML page to out.
func run(ctx context.Context, cfg *config.Config, logger *zap.Logger, in io.Reader, out io.Writer) error {
	text, err := io.ReadAll(in)
	if err != nil {
		return errors.Wrap(err, "unable to read input")
	}

	msr := measure.NewDefaultMeasure()
	hooks := []model.FlowOption{measure.FlowMeasure(msr)}

	var reg *prometheus.Registry

	if cfg.MetricsFile != "" {
		reg = prometheus.NewRegistry()

		opt, err := measure.FlowPrometheus(reg, "taskflow")
		if err != nil {
			return err
		}

		hooks = append(hooks, opt)
	}

	if cfg.DotFile != "" {
		hooks = append(hooks, drawer.FlowDrawer(drawer.NewDOTDrawer(cfg.DotFile), msr))
	}

	f, err := buildFlow(cfg, logger, hooks...)
	if err != nil {
		return errors.Wrap(err, "unable to build flow")
	}

	doc := &document{Text: string(text)}

	res, err := f.Run(ctx, doc)
	if err != nil {
		return errors.Wrapf(err, "run %s", res.RunID)
	}

	logger.Info("summary done",
		zap.String("run_id", res.RunID),
		zap.Stringer("outcome", res.Outcome),
		zap.Strings("steps", res.StepNames()),
		zap.Int("sections", len(doc.Sections)))

	for name, mt := range msr.AllMetrics() {
		logger.Debug("step measure",
			zap.String("step", name),
			zap.Int64("visits", mt.Visits()),
			zap.Int64("attempts", mt.Attempts()),
			zap.Int64("fallbacks", mt.Fallbacks()),
			zap.Duration("avg", mt.AVGDuration()))
	}

	if reg != nil {
		err = prometheus.WriteToTextfile(cfg.MetricsFile, reg)
		if err != nil {
			return errors.Wrap(err, "unable to write metrics")
		}
	}

	_, err = io.WriteString(out, doc.HTML)
	if err != nil {
		return errors.Wrap(err, "unable to write page")
	}

	return nil
}

func initLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level

	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	// stdout carries the page
	cfg.OutputPaths = []string{"stderr"}

	logger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}

	return logger
}
