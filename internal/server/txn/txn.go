// Package txn coordinates multi-step writes that span several stores
// (database rows, object storage, notifications) without a shared atomic
// transaction. Each applied step pushes a compensation; Rollback runs them in
// reverse order.
//
// A Transaction belongs to one request and must not be shared between goroutines.
package txn

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/clientkeeper/internal/logging"
)

// State is the lifecycle state of a Transaction.
type State int

const (
	StateOpen State = iota
	StateCommitted
	StateRolledBack
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateCommitted:
		return "committed"
	case StateRolledBack:
		return "rolled back"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ErrFinalized is the panic value used when a finalised transaction is
// committed, rolled back or extended again. It signals a programming error.
var ErrFinalized = errors.New("txn: transaction already finalized")

// ErrPartialRollback matches a *PartialRollbackError.
var ErrPartialRollback = errors.New("txn: partial rollback")

// Func is a step action or its compensation.
type Func func(ctx context.Context) error

// PartialRollbackError lists the compensations that failed during Rollback.
// Data may be left inconsistent; it must reach an operator.
type PartialRollbackError struct {
	Failures []StepError
}

// StepError names the step whose action or compensation failed. BeginStep
// returns one for a failed action; PartialRollbackError lists one per failed
// compensation.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

func (e *PartialRollbackError) Error() string {
	var b strings.Builder
	b.WriteString(ErrPartialRollback.Error())
	for i, f := range e.Failures {
		if i == 0 {
			b.WriteString(": ")
		} else {
			b.WriteString("; ")
		}
		fmt.Fprintf(&b, "%s: %v", f.Step, f.Err)
	}
	return b.String()
}

func (e *PartialRollbackError) Is(target error) bool {
	return target == ErrPartialRollback
}

func (e *PartialRollbackError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}

type compensation struct {
	step string
	fn   Func
}

// Transaction is an ordered stack of compensations with a single terminal
// transition: Open → Committed or Open → RolledBack.
type Transaction struct {
	logger        logging.Logger
	compensations []compensation
	state         State
}

// New returns an open Transaction. A nil logger discards output.
func New(logger logging.Logger) *Transaction {
	if logger == nil {
		logger = logging.Nop{}
	}
	return &Transaction{logger: logger, state: StateOpen}
}

// State returns the current state.
func (t *Transaction) State() State {
	return t.state
}

// Pending returns the number of compensations that Rollback would run.
func (t *Transaction) Pending() int {
	return len(t.compensations)
}

// BeginStep runs action now. On success compensate (if non-nil) is pushed on
// the stack. On failure nothing is pushed, since nothing was applied, and the
// error comes back as a *StepError carrying the step name.
func (t *Transaction) BeginStep(ctx context.Context, step string, action, compensate Func) error {
	t.mustBeOpen()

	if err := action(ctx); err != nil {
		t.logger.Debug(ctx, "step failed", "step", step, "error", err)
		return &StepError{Step: step, Err: err}
	}

	if compensate != nil {
		t.compensations = append(t.compensations, compensation{step: step, fn: compensate})
	}
	t.logger.Debug(ctx, "step applied", "step", step)
	return nil
}

// Commit discards the compensations; applied effects stand.
func (t *Transaction) Commit() {
	t.mustBeOpen()
	t.compensations = nil
	t.state = StateCommitted
}

// Rollback runs every compensation in LIFO order. A failing compensation is
// logged and skipped; the rest still run. If any failed, a
// *PartialRollbackError is returned.
//
// Compensations run on a context that ignores the caller's cancellation so a
// disconnected client cannot leave half-undone writes behind.
func (t *Transaction) Rollback(ctx context.Context) error {
	t.mustBeOpen()
	t.state = StateRolledBack

	ctx = context.WithoutCancel(ctx)

	var failures []StepError
	for i := len(t.compensations) - 1; i >= 0; i-- {
		c := t.compensations[i]
		if err := c.fn(ctx); err != nil {
			t.logger.Error(ctx, "compensation failed", "step", c.step, "error", err)
			failures = append(failures, StepError{Step: c.step, Err: err})
			continue
		}
		t.logger.Debug(ctx, "step compensated", "step", c.step)
	}
	t.compensations = nil

	if len(failures) > 0 {
		return &PartialRollbackError{Failures: failures}
	}
	return nil
}

func (t *Transaction) mustBeOpen() {
	if t.state != StateOpen {
		panic(fmt.Errorf("%w (state: %s)", ErrFinalized, t.state))
	}
}

// Run creates a Transaction, passes it to fn and finalises it: Commit when fn
// returns nil, Rollback when fn returns an error or panics (the panic is
// re-raised after rollback).
//
// The returned error is fn's error, joined with a *PartialRollbackError when
// some compensation failed. fn must not finalise tx itself.
func Run(ctx context.Context, logger logging.Logger, fn func(ctx context.Context, tx *Transaction) error) (err error) {
	tx := New(logger)

	defer func() {
		if p := recover(); p != nil {
			if tx.State() == StateOpen {
				_ = tx.Rollback(ctx)
			}
			panic(p)
		}
	}()

	if err = fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}

	tx.Commit()
	return nil
}
