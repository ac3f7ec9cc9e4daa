package main

import (
	"context"
	"fmt"

	"github.com/samber/do/v2"
	"go.uber.org/zap"
)

type loggerCtxKeyType struct{}
type injectorCtxKeyType struct{}

var (
	loggerCtxKey   = loggerCtxKeyType{}
	injectorCtxKey = injectorCtxKeyType{}
)

func createLogger(debug bool, logLevel string) (logger *zap.Logger, level zap.AtomicLevel, err error) {
	level, err = zap.ParseAtomicLevel(logLevel)
	if err != nil {
		return nil, zap.NewAtomicLevel(), fmt.Errorf("invalid log level %s: %w", logLevel, err)
	}

	var loggerCfg zap.Config
	if debug {
		loggerCfg = zap.NewDevelopmentConfig()
	} else {
		loggerCfg = zap.NewProductionConfig()
		loggerCfg.DisableStacktrace = false
	}
	loggerCfg.Level = level
	// stdout carries progress lines
	loggerCfg.OutputPaths = []string{"stderr"}

	logger, err = loggerCfg.Build()
	if err != nil {
		return nil, zap.NewAtomicLevel(), fmt.Errorf("failed to build logger: %w", err)
	}

	return logger.Named("fileman"), level, nil
}

func withLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey, logger)
}

func tryLogger(ctx context.Context) *zap.Logger {
	logger, ok := ctx.Value(loggerCtxKey).(*zap.Logger)
	if !ok {
		return nil
	}
	return logger
}

func getLogger(ctx context.Context) *zap.Logger {
	logger := tryLogger(ctx)
	if logger == nil {
		panic("logger not found in context")
	}
	return logger
}

func withInjector(ctx context.Context, injector do.Injector) context.Context {
	return context.WithValue(ctx, injectorCtxKey, injector)
}

func getInjector(ctx context.Context) do.Injector {
	injector, ok := ctx.Value(injectorCtxKey).(do.Injector)
	if !ok {
		panic("injector not found in context")
	}
	return injector
}
