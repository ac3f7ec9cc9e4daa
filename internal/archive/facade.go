package archive

import (
	"context"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Facade routes each archive operation to exactly one strategy. The external
// tool is preferred whenever the prober reports it available; the prober is
// consulted on every call so installing or removing the tool takes effect
// without a restart.
type Facade struct {
	fs       afero.Fs
	prober   Prober
	external Strategy
	builtin  Strategy
	logger   *zap.Logger
}

// FacadeOption configures a Facade.
type FacadeOption func(*Facade)

// WithProber overrides the tool probe.
func WithProber(p Prober) FacadeOption {
	return func(f *Facade) {
		f.prober = p
	}
}

// WithExternal overrides the external strategy.
func WithExternal(s Strategy) FacadeOption {
	return func(f *Facade) {
		f.external = s
	}
}

// NewFacade creates a facade over fs using program as the external archiver.
func NewFacade(fs afero.Fs, program string, logger *zap.Logger, opts ...FacadeOption) *Facade {
	f := &Facade{
		fs:       fs,
		prober:   NewToolProbe(program),
		external: NewExternalStrategy(program, fs, logger.Named("external")),
		builtin:  NewBuiltinStrategy(fs, logger.Named("builtin")),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Backend returns the strategy the next call would use.
func (f *Facade) Backend(ctx context.Context) Strategy {
	if f.prober.Available(ctx) {
		return f.external
	}
	return f.builtin
}

// List returns the archive's entry listing.
func (f *Facade) List(ctx context.Context, path string) (string, error) {
	if err := requireExists(f.fs, "list", path); err != nil {
		return "", err
	}

	strategy := f.Backend(ctx)
	f.logger.Debug("listing archive", zap.String("archive", path), zap.String("backend", strategy.Name()))
	if checked, ok := strategy.(checkedStrategy); ok {
		return checked.list(ctx, path)
	}
	return strategy.List(ctx, path)
}

// Extract unpacks the archive at path into dest.
func (f *Facade) Extract(ctx context.Context, path, dest, password string) (string, error) {
	if err := requireExists(f.fs, "extract", path); err != nil {
		return "", err
	}

	strategy := f.Backend(ctx)
	f.logger.Debug("extracting archive",
		zap.String("archive", path),
		zap.String("destination", dest),
		zap.String("backend", strategy.Name()),
	)
	req := Request{Path: path, Destination: dest, Password: password}
	if checked, ok := strategy.(checkedStrategy); ok {
		return checked.extract(ctx, req)
	}
	return strategy.Extract(ctx, req)
}

// Create writes sources into a new archive at output.
func (f *Facade) Create(ctx context.Context, sources []string, output, format, password string) (string, error) {
	strategy := f.Backend(ctx)
	f.logger.Debug("creating archive",
		zap.String("archive", output),
		zap.Int("sources", len(sources)),
		zap.String("backend", strategy.Name()),
	)
	return strategy.Create(ctx, Request{
		Destination: output,
		Sources:     sources,
		Format:      format,
		Password:    password,
	})
}
