package jobs

import (
	"context"
	"testing"

	"github.com/infracollect/fileman/internal/failure"
	"github.com/infracollect/fileman/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testParams struct {
	Value string `validate:"required"`
}

type wrongParams struct{}

func noop(context.Context, task.Reporter) error { return nil }

func TestNewFactory(t *testing.T) {
	logger := zap.NewNop()
	ctx := t.Context()

	factory := NewFactory("test_kind", func(_ context.Context, _ *zap.Logger, params testParams) (task.Operation, error) {
		assert.Equal(t, "value", params.Value)
		return noop, nil
	})

	t.Run("value params", func(t *testing.T) {
		op, err := factory(ctx, logger, testParams{Value: "value"})
		require.NoError(t, err)
		assert.NotNil(t, op)
	})

	t.Run("pointer params", func(t *testing.T) {
		op, err := factory(ctx, logger, &testParams{Value: "value"})
		require.NoError(t, err)
		assert.NotNil(t, op)
	})

	t.Run("nil pointer", func(t *testing.T) {
		_, err := factory(ctx, logger, (*testParams)(nil))
		assert.True(t, failure.Is(err, failure.InvalidArgument))
	})

	t.Run("wrong type", func(t *testing.T) {
		op, err := factory(ctx, logger, wrongParams{})
		require.Error(t, err)
		assert.Nil(t, op)
		assert.True(t, failure.Is(err, failure.InvalidArgument))
		assert.ErrorContains(t, err, "test_kind")
		assert.ErrorContains(t, err, "wrongParams")
	})

	t.Run("failed validation", func(t *testing.T) {
		_, err := factory(ctx, logger, testParams{})
		require.Error(t, err)
		assert.True(t, failure.Is(err, failure.InvalidArgument))
		assert.ErrorContains(t, err, "Value")
	})
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(zap.NewNop())

	_, err := r.Create(t.Context(), "anything", nil)
	var unsupported *UnsupportedKindError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, `unsupported task kind "anything": no kinds registered`, err.Error())

	r.Register("zeta", NewFactory("zeta", func(context.Context, *zap.Logger, testParams) (task.Operation, error) {
		return noop, nil
	}))
	r.Register("alpha", NewFactory("alpha", func(context.Context, *zap.Logger, testParams) (task.Operation, error) {
		return noop, nil
	}))

	assert.Equal(t, []string{"alpha", "zeta"}, r.Available())

	op, err := r.Create(t.Context(), "alpha", testParams{Value: "x"})
	require.NoError(t, err)
	assert.NotNil(t, op)

	_, err = r.Create(t.Context(), "beta", testParams{Value: "x"})
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "beta", unsupported.Kind)
	assert.Equal(t, []string{"alpha", "zeta"}, unsupported.Available)
	assert.ErrorContains(t, err, "available: [alpha zeta]")
}

func TestNewDefaultRegistry_Kinds(t *testing.T) {
	r := NewDefaultRegistry(zap.NewNop(), Deps{})
	assert.Equal(t, []string{
		KindArchiveCreate,
		KindArchiveExtract,
		KindFindDuplicates,
		KindJoin,
		KindSecureDelete,
		KindSplit,
	}, r.Available())
}
