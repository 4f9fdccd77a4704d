// internal/pkg/unitofwork/unitofwork.go
package unitofwork

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
)

// Manager runs a function inside one atomic transaction. Calls made with a
// context that already carries a transaction join it instead of nesting.
type Manager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// Tx is a started transaction
type Tx interface {
	Commit() error
	Rollback() error
}

// Beginner starts a transaction and returns a context that carries it.
// Storage backends implement this; repositories read the handle back
// from the context.
type Beginner interface {
	Begin(ctx context.Context) (context.Context, Tx, error)
}

type scope struct {
	hooks []func(ctx context.Context)
}

type scopeKey struct{}

// Executor is the Manager shared by every backend. It retries the whole
// function when it fails with apperror.ErrConflict.
type Executor struct {
	beginner    Beginner
	maxAttempts int
	log         logrus.FieldLogger
}

// NewExecutor creates a unit of work executor
func NewExecutor(beginner Beginner, maxAttempts int, log logrus.FieldLogger) *Executor {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Executor{
		beginner:    beginner,
		maxAttempts: maxAttempts,
		log:         log,
	}
}

// InTransaction reports whether ctx carries an open unit of work
func InTransaction(ctx context.Context) bool {
	_, ok := ctx.Value(scopeKey{}).(*scope)
	return ok
}

// AfterCommit registers fn to run once the enclosing transaction commits.
// Hooks are dropped on rollback. Outside a transaction fn runs immediately.
func AfterCommit(ctx context.Context, fn func(ctx context.Context)) {
	if s, ok := ctx.Value(scopeKey{}).(*scope); ok {
		s.hooks = append(s.hooks, fn)
		return
	}
	fn(ctx)
}

// Do implements Manager
func (e *Executor) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if InTransaction(ctx) {
		return fn(ctx)
	}

	var err error
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		err = e.run(ctx, fn)
		if !errors.Is(err, apperror.ErrConflict) {
			return err
		}
		e.log.WithFields(logrus.Fields{
			"attempt":      attempt,
			"max_attempts": e.maxAttempts,
		}).Debug("Transaction conflict, retrying")
	}
	return err
}

func (e *Executor) run(ctx context.Context, fn func(ctx context.Context) error) error {
	txCtx, tx, err := e.beginner.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", apperror.ErrTransactionAborted, err)
	}

	s := &scope{}
	txCtx = context.WithValue(txCtx, scopeKey{}, s)

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(txCtx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			e.log.WithError(rbErr).Error("Failed to roll back transaction")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return err
		}
		return fmt.Errorf("%w: commit: %w", apperror.ErrTransactionAborted, err)
	}

	hookCtx := context.WithoutCancel(ctx)
	for _, hook := range s.hooks {
		e.runHook(hookCtx, hook)
	}
	return nil
}

func (e *Executor) runHook(ctx context.Context, hook func(ctx context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			e.log.WithField("panic", r).Error("After-commit hook panicked")
		}
	}()
	hook(ctx)
}
