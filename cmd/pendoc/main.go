package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aleister1102/pendoc/internal/common"
	"github.com/aleister1102/pendoc/internal/config"
	"github.com/aleister1102/pendoc/internal/logger"
	"github.com/aleister1102/pendoc/internal/scanner"
	"github.com/rs/zerolog"
)

const (
	exitOK          = 0
	exitFailure     = 1
	exitUsage       = 2
	exitInterrupted = 130
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	flags, err := ParseFlags(args, os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintln(os.Stderr, "[FATAL]", err)
		return exitUsage
	}

	bootstrap := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	gCfg, err := config.LoadGlobalConfig(flags.GlobalConfigFile, bootstrap)
	if err != nil {
		bootstrap.Error().Err(err).Str("path", flags.GlobalConfigFile).Msg("Could not load global config")
		return exitFailure
	}
	flags.applyOverrides(gCfg)

	zLogger, err := logger.New(gCfg.LogConfig)
	if err != nil {
		bootstrap.Error().Err(err).Msg("Could not initialize logger")
		return exitFailure
	}

	if err := config.ValidateConfig(gCfg); err != nil {
		zLogger.Error().Err(err).Msg("Configuration validation failed")
		return exitFailure
	}
	if !flags.Recover {
		if err := config.ValidateInputs(gCfg); err != nil {
			zLogger.Error().Err(errNoInput).Msg("Nothing to capture")
			return exitUsage
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	finished := make(chan struct{})
	defer close(finished)
	go func() {
		select {
		case <-ctx.Done():
			// restore default handling so a second interrupt kills the process
			stop()
			zLogger.Warn().Msg("Interrupt received, finishing in-flight captures. Interrupt again to force quit")
		case <-finished:
		}
	}()

	s := scanner.NewScanner(gCfg, zLogger)

	var summary *scanner.RunSummary
	if flags.Recover {
		summary, err = s.Recover(ctx)
	} else {
		summary, err = s.Execute(ctx, scanner.BuildSources(gCfg.InputConfig))
	}

	return exitCode(summary, err, zLogger)
}

func exitCode(summary *scanner.RunSummary, err error, log zerolog.Logger) int {
	switch {
	case errors.Is(err, common.ErrRunCancelled):
		log.Warn().Err(err).Msg("Run interrupted")
		return exitInterrupted
	case errors.Is(err, common.ErrCaptureEngineUnavailable):
		log.Error().Err(err).Msg("Capture engine unavailable")
		return exitFailure
	case errors.Is(err, scanner.ErrNoTargets):
		log.Error().Err(err).Msg("No targets found from input sources")
		return exitFailure
	case err != nil:
		log.Error().Err(err).Msg("Run failed")
		return exitFailure
	}

	for _, path := range summary.ReportPaths {
		fmt.Fprintln(os.Stdout, path)
	}

	switch summary.Status {
	case scanner.StatusCancelled:
		return exitInterrupted
	case scanner.StatusPartial:
		return exitFailure
	default:
		return exitOK
	}
}
