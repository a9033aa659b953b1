package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestNotFound(t *testing.T) {
	if !errors.Is(NotFound(pgx.ErrNoRows), ErrNotFound) {
		t.Error("expected pgx.ErrNoRows to map to ErrNotFound")
	}
	other := errors.New("boom")
	if NotFound(other) != other {
		t.Error("expected other errors to pass through")
	}
}

func TestUniqueViolation(t *testing.T) {
	err := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "death_patient_id_key"})
	name, ok := UniqueViolation(err)
	if !ok || name != "death_patient_id_key" {
		t.Errorf("expected unique violation on death_patient_id_key, got %q %v", name, ok)
	}
	if _, ok := UniqueViolation(errors.New("x")); ok {
		t.Error("plain errors are not unique violations")
	}
	if _, ok := ForeignKeyViolation(err); ok {
		t.Error("unique violation is not a foreign key violation")
	}
}

func TestForeignKeyViolation(t *testing.T) {
	err := &pgconn.PgError{Code: "23503", ConstraintName: "diagnosis_patient_id_fkey"}
	name, ok := ForeignKeyViolation(err)
	if !ok || name != "diagnosis_patient_id_fkey" {
		t.Errorf("expected fk violation, got %q %v", name, ok)
	}
}
