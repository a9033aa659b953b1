// Package record runs the shared write path of the registry entities: validate, persist,
// log and count, all inside one database transaction.
package record

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/clinic/registry/internal/domain/validation"
	"github.com/clinic/registry/internal/platform/db"
)

// Transactor runs fn inside a database transaction. *db.TxManager satisfies it.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Observer receives the outcome of every write attempt.
type Observer interface {
	ObserveSubmission(entity, op string, sub *validation.Submission)
}

// Op names a write operation.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
	OpRemove Op = "remove"
)

// Writer drives candidates through validation.Submit.
type Writer struct {
	tx       Transactor
	logger   zerolog.Logger
	observer Observer
}

// NewWriter builds a Writer. A nil Transactor runs without a transaction and a nil
// Observer discards outcomes.
func NewWriter(tx Transactor, logger zerolog.Logger, observer Observer) *Writer {
	return &Writer{tx: tx, logger: logger, observer: observer}
}

// Write validates and persists one candidate. A rejected or failed attempt rolls the
// transaction back so the store is left unchanged.
func (w *Writer) Write(ctx context.Context, entity string, op Op, check validation.CheckFunc, persist validation.PersistFunc) error {
	if w == nil {
		_, err := validation.Submit(ctx, check, persist)
		return err
	}

	var sub *validation.Submission
	run := func(ctx context.Context) error {
		var err error
		sub, err = validation.Submit(ctx, check, persist)
		return err
	}

	var err error
	if w.tx != nil {
		err = w.tx.InTx(ctx, run)
	} else {
		err = run(ctx)
	}
	if sub == nil {
		sub = &validation.Submission{State: validation.StateUnvalidated}
	}
	if err != nil && !validation.IsSystem(err) {
		if _, ok := validation.AsErrors(err); !ok {
			// begin or commit failed around the submission
			err = validation.System("transaction", err)
			if sub.State == validation.StatePersisted {
				sub.State = validation.StateValidated
			}
		}
	}

	// the row went away between the lookup and the write
	if errors.Is(err, db.ErrNotFound) {
		err = db.ErrNotFound
	}

	w.log(entity, op, sub, err)
	if w.observer != nil {
		w.observer.ObserveSubmission(entity, string(op), sub)
	}
	return err
}

func (w *Writer) log(entity string, op Op, sub *validation.Submission, err error) {
	switch {
	case err == nil:
		w.logger.Info().
			Str("entity", entity).
			Str("op", string(op)).
			Dur("duration", sub.Duration).
			Msg("record persisted")
	case errors.Is(err, db.ErrNotFound):
		w.logger.Warn().
			Str("entity", entity).
			Str("op", string(op)).
			Msg("record not found")
	case validation.IsSystem(err):
		w.logger.Error().Err(err).
			Str("entity", entity).
			Str("op", string(op)).
			Str("state", sub.State.String()).
			Msg("record write failed")
	default:
		errs, _ := validation.AsErrors(err)
		w.logger.Warn().
			Str("entity", entity).
			Str("op", string(op)).
			Strs("fields", errs.FieldNames()).
			Msg("record rejected")
	}
}
