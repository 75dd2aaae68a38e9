// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package orchestrator

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrPrecondition marks an attempt that may succeed once other
	// operations have committed their facts.
	ErrPrecondition = errors.New("operation precondition not met")

	// ErrOperationFailed marks the terminal failure of an operation.
	ErrOperationFailed = errors.New("operation failed")

	// ErrUnknownOperation is reported for names missing from the registry.
	ErrUnknownOperation = errors.New("unknown operation")

	// ErrDuplicateOperation is returned when a name is registered twice.
	ErrDuplicateOperation = errors.New("operation already registered")
)

type fatalError struct {
	err error
}

func (e *fatalError) Error() string { return e.err.Error() }
func (e *fatalError) Unwrap() error { return e.err }

// Fatal marks err as not worth retrying. The operation fails without being
// deferred.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &fatalError{err: err}
}

// Retryable marks err as a missing precondition. Unmarked errors are
// treated the same way.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrPrecondition, err)
}

// IsFatal reports whether err was marked with Fatal.
func IsFatal(err error) bool {
	var fe *fatalError
	return errors.As(err, &fe)
}

// CompletionReader reports whether an operation has committed its facts.
type CompletionReader interface {
	Completed(ctx context.Context, operation string) (bool, error)
}

// Require returns a retryable error unless every named operation has
// committed. Operations call it to declare what they read.
func Require(ctx context.Context, r CompletionReader, operations ...string) error {
	for _, op := range operations {
		done, err := r.Completed(ctx, op)
		if err != nil {
			return Retryable(fmt.Errorf("checking %s: %w", op, err))
		}
		if !done {
			return Retryable(fmt.Errorf("%s has not completed", op))
		}
	}
	return nil
}
