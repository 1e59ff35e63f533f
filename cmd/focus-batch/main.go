package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"

	service "github.com/okian/focusengine/internal/app"
	"github.com/okian/focusengine/internal/batch"
	"github.com/okian/focusengine/internal/config"
	"github.com/okian/focusengine/pkg/logger"

	"go.uber.org/zap/zapcore"
)

// Exit codes.
const (
	exitOK     = 0
	exitFailed = 1
	exitUsage  = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	bcfg, err := batch.ParseFlags(args, stderr)
	switch {
	case errors.Is(err, flag.ErrHelp):
		return exitOK
	case err != nil:
		_, _ = io.WriteString(stderr, "focus-batch: "+err.Error()+"\n")
		return exitUsage
	}

	cfg, err := config.Load(ctx)
	if err != nil {
		_, _ = io.WriteString(stderr, "focus-batch: "+err.Error()+"\n")
		return exitFailed
	}

	// Stdout carries the report, so logs go to stderr.
	if err := logger.Init(logger.WithFormat(cfg.LogFormat), logger.WithOutput(zapcore.AddSync(stderr))); err != nil {
		_, _ = io.WriteString(stderr, "focus-batch: "+err.Error()+"\n")
		return exitFailed
	}
	defer func() { _ = logger.Sync() }()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		_ = logger.SetLevelString("info")
	}
	log := logger.Named("batch")

	svc, err := service.FromConfig(ctx, cfg, log.Named("service"))
	if err != nil {
		log.Error(ctx, "failed to open service", logger.Error(err))
		return exitFailed
	}
	defer svc.Stop()

	rep, err := batch.Run(ctx, svc, bcfg, log)
	if err != nil {
		log.Error(ctx, "batch run aborted", logger.Error(err))
		return exitFailed
	}
	if err := batch.WriteReport(stdout, bcfg.Output, rep); err != nil {
		log.Error(ctx, "failed to write report", logger.Error(err))
		return exitFailed
	}
	if !rep.Success {
		log.Warn(ctx, "batch finished with errors", logger.Any("steps", rep.FailedSteps()))
		return exitFailed
	}
	return exitOK
}
