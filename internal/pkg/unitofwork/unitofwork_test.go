package unitofwork

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
	"github.com/your-org/storefront-backend/internal/pkg/logger"
)

type fakeTx struct {
	b *fakeBeginner
}

func (t *fakeTx) Commit() error {
	t.b.commits++
	return t.b.commitErr
}

func (t *fakeTx) Rollback() error {
	t.b.rollbacks++
	return nil
}

type fakeBeginner struct {
	begins    int
	commits   int
	rollbacks int
	commitErr error
}

func (b *fakeBeginner) Begin(ctx context.Context) (context.Context, Tx, error) {
	b.begins++
	return ctx, &fakeTx{b: b}, nil
}

func TestDoCommitsAndRunsHooksAfterCommit(t *testing.T) {
	b := &fakeBeginner{}
	exec := NewExecutor(b, 3, logger.Discard())

	var order []string
	err := exec.Do(context.Background(), func(ctx context.Context) error {
		assert.True(t, InTransaction(ctx))
		AfterCommit(ctx, func(ctx context.Context) { order = append(order, "hook") })
		order = append(order, "body")
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"body", "hook"}, order)
	assert.Equal(t, 1, b.commits)
	assert.Equal(t, 0, b.rollbacks)
}

func TestDoRollsBackAndDropsHooksOnError(t *testing.T) {
	b := &fakeBeginner{}
	exec := NewExecutor(b, 3, logger.Discard())
	boom := errors.New("boom")

	hookRan := false
	err := exec.Do(context.Background(), func(ctx context.Context) error {
		AfterCommit(ctx, func(ctx context.Context) { hookRan = true })
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.False(t, hookRan)
	assert.Equal(t, 1, b.rollbacks)
	assert.Equal(t, 0, b.commits)
}

func TestDoRetriesConflicts(t *testing.T) {
	b := &fakeBeginner{}
	exec := NewExecutor(b, 3, logger.Discard())

	calls := 0
	err := exec.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return apperror.ErrConflict
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, b.begins)
}

func TestDoGivesUpAfterMaxAttempts(t *testing.T) {
	b := &fakeBeginner{}
	exec := NewExecutor(b, 2, logger.Discard())

	err := exec.Do(context.Background(), func(ctx context.Context) error {
		return apperror.ErrConflict
	})

	assert.ErrorIs(t, err, apperror.ErrConflict)
	assert.Equal(t, 2, b.begins)
}

func TestNestedDoJoinsOuterTransaction(t *testing.T) {
	b := &fakeBeginner{}
	exec := NewExecutor(b, 1, logger.Discard())

	err := exec.Do(context.Background(), func(ctx context.Context) error {
		return exec.Do(ctx, func(ctx context.Context) error { return nil })
	})

	require.NoError(t, err)
	assert.Equal(t, 1, b.begins)
	assert.Equal(t, 1, b.commits)
}

func TestCommitFailureIsTransactionAborted(t *testing.T) {
	b := &fakeBeginner{commitErr: errors.New("connection reset")}
	exec := NewExecutor(b, 1, logger.Discard())

	err := exec.Do(context.Background(), func(ctx context.Context) error { return nil })

	assert.ErrorIs(t, err, apperror.ErrTransactionAborted)
}

func TestAfterCommitOutsideTransactionRunsImmediately(t *testing.T) {
	ran := false
	AfterCommit(context.Background(), func(ctx context.Context) { ran = true })
	assert.True(t, ran)
}

func TestHookPanicIsContained(t *testing.T) {
	b := &fakeBeginner{}
	exec := NewExecutor(b, 1, logger.Discard())

	second := false
	err := exec.Do(context.Background(), func(ctx context.Context) error {
		AfterCommit(ctx, func(ctx context.Context) { panic("push failed") })
		AfterCommit(ctx, func(ctx context.Context) { second = true })
		return nil
	})

	require.NoError(t, err)
	assert.True(t, second)
}
