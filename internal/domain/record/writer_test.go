package record

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinic/registry/internal/domain/validation"
	"github.com/clinic/registry/internal/platform/db"
)

type fakeTx struct {
	calls      int
	rolledBack bool
	commitErr  error
}

func (f *fakeTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	if err := fn(ctx); err != nil {
		f.rolledBack = true
		return err
	}
	return f.commitErr
}

type outcome struct {
	entity, op string
	state      validation.State
}

type fakeObserver struct{ seen []outcome }

func (f *fakeObserver) ObserveSubmission(entity, op string, sub *validation.Submission) {
	f.seen = append(f.seen, outcome{entity, op, sub.State})
}

func noViolations(context.Context, *validation.Collector) error { return nil }

func TestWriter_Persisted(t *testing.T) {
	tx := &fakeTx{}
	obs := &fakeObserver{}
	var buf bytes.Buffer
	w := NewWriter(tx, zerolog.New(&buf), obs)

	written := false
	err := w.Write(context.Background(), "death", OpCreate, noViolations, func(context.Context) error {
		written = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, written)
	assert.Equal(t, 1, tx.calls)
	assert.False(t, tx.rolledBack)
	require.Len(t, obs.seen, 1)
	assert.Equal(t, outcome{"death", "create", validation.StatePersisted}, obs.seen[0])
	assert.Contains(t, buf.String(), "record persisted")
}

func TestWriter_RejectedRollsBack(t *testing.T) {
	tx := &fakeTx{}
	obs := &fakeObserver{}
	var buf bytes.Buffer
	w := NewWriter(tx, zerolog.New(&buf), obs)

	err := w.Write(context.Background(), "diagnosis", OpUpdate, func(_ context.Context, c *validation.Collector) error {
		c.Check("icd_code", validation.ICD10Format("bad"))
		return nil
	}, func(context.Context) error {
		t.Fatal("persist must not run for a rejected candidate")
		return nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, validation.ErrFormat)
	assert.True(t, tx.rolledBack)
	assert.Equal(t, validation.StateRejected, obs.seen[0].state)
	assert.Contains(t, buf.String(), "icd_code")
}

func TestWriter_CommitFailureIsSystem(t *testing.T) {
	tx := &fakeTx{commitErr: errors.New("commit: connection reset")}
	obs := &fakeObserver{}
	w := NewWriter(tx, zerolog.Nop(), obs)

	err := w.Write(context.Background(), "patient", OpCreate, noViolations, func(context.Context) error { return nil })
	require.Error(t, err)
	assert.True(t, validation.IsSystem(err))
	assert.Equal(t, validation.StateValidated, obs.seen[0].state)
}

func TestWriter_NilTransactorAndObserver(t *testing.T) {
	w := NewWriter(nil, zerolog.Nop(), nil)
	err := w.Write(context.Background(), "patient", OpDelete, noViolations, func(context.Context) error { return nil })
	assert.NoError(t, err)

	var nilWriter *Writer
	err = nilWriter.Write(context.Background(), "patient", OpDelete, noViolations, func(context.Context) error {
		return validation.Duplicate("insurance_number", "taken")
	})
	assert.ErrorIs(t, err, validation.ErrDuplicate)
}

func TestWriter_VanishedRowIsNotFound(t *testing.T) {
	tx := &fakeTx{}
	obs := &fakeObserver{}
	var buf bytes.Buffer
	w := NewWriter(tx, zerolog.New(&buf), obs)

	err := w.Write(context.Background(), "death", OpUpdate, noViolations, func(context.Context) error {
		return db.ErrNotFound
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, db.ErrNotFound)
	assert.False(t, validation.IsSystem(err))
	assert.True(t, tx.rolledBack)
	assert.Equal(t, validation.StateValidated, obs.seen[0].state)
	assert.Contains(t, buf.String(), "record not found")
	assert.NotContains(t, buf.String(), "record write failed")
}
