package jobs

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/infracollect/fileman/internal/failure"
	"github.com/infracollect/fileman/internal/task"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

var defaultValidator = validator.New(validator.WithRequiredStructEnabled())

// Factory builds the operation for one task from untyped parameters.
type Factory func(ctx context.Context, logger *zap.Logger, params any) (task.Operation, error)

// TypedFactory is a strongly-typed factory. P is the parameter struct of the
// kind (e.g. ExtractParams).
type TypedFactory[P any] func(ctx context.Context, logger *zap.Logger, params P) (task.Operation, error)

// NewFactory wraps a typed factory into a generic Factory. It centralizes the
// cast from any to P, accepting P or *P, and validates the parameters' struct
// tags before calling f.
func NewFactory[P any](kind string, f TypedFactory[P]) Factory {
	return func(ctx context.Context, logger *zap.Logger, input any) (task.Operation, error) {
		var params P
		switch v := input.(type) {
		case P:
			params = v
		case *P:
			if v == nil {
				return nil, failure.New(failure.InvalidArgument, "nil parameters for kind %q", kind)
			}
			params = *v
		default:
			return nil, failure.New(failure.InvalidArgument, "invalid parameters for kind %q: %T", kind, input)
		}

		if err := defaultValidator.Struct(params); err != nil {
			return nil, failure.Wrap(failure.InvalidArgument, err, "invalid parameters for kind %q", kind)
		}
		return f(ctx, logger, params)
	}
}

// UnsupportedKindError is returned when a task kind is not registered.
type UnsupportedKindError struct {
	Kind      string
	Available []string
}

func (e *UnsupportedKindError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("unsupported task kind %q: no kinds registered", e.Kind)
	}
	return fmt.Sprintf("unsupported task kind %q (available: %v)", e.Kind, e.Available)
}

type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	logger    *zap.Logger
}

func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		logger:    logger,
	}
}

func (r *Registry) Register(kind string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[kind] = factory
}

// Create builds the operation registered under kind.
func (r *Registry) Create(ctx context.Context, kind string, params any) (task.Operation, error) {
	r.mu.RLock()
	factory, ok := r.factories[kind]
	available := r.available()
	r.mu.RUnlock()
	if !ok {
		return nil, &UnsupportedKindError{Kind: kind, Available: available}
	}
	return factory(ctx, r.logger.Named(kind), params)
}

func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.available()
}

func (r *Registry) available() []string {
	kinds := lo.Keys(r.factories)
	slices.Sort(kinds)
	return kinds
}
