package validation

import (
	"context"
	"errors"
	"time"
)

// Collector gathers every violation of one attempt instead of stopping at the first.
type Collector struct {
	errs Errors
	sys  error
}

// Check records err under field. Violations that already name a field keep it.
// A non-validation error is kept as the attempt's system error.
func (c *Collector) Check(field string, err error) {
	if err == nil {
		return
	}
	var errs Errors
	if errors.As(err, &errs) {
		for _, fe := range errs {
			c.add(field, fe)
		}
		return
	}
	var fe *FieldError
	if errors.As(err, &fe) {
		c.add(field, fe)
		return
	}
	if c.sys == nil {
		c.sys = err
	}
}

// Add records a violation as is.
func (c *Collector) Add(fe *FieldError) {
	if fe != nil {
		c.errs = append(c.errs, fe)
	}
}

func (c *Collector) add(field string, fe *FieldError) {
	if fe.Field == "" && field != "" {
		cp := *fe
		cp.Field = field
		fe = &cp
	}
	c.errs = append(c.errs, fe)
}

// Failed reports whether any violation was recorded under field.
func (c *Collector) Failed(field string) bool {
	for _, fe := range c.errs {
		if fe.Field == field {
			return true
		}
	}
	return false
}

// Errors returns the recorded violations.
func (c *Collector) Errors() Errors { return c.errs }

// Err returns the recorded violations as an error, or nil.
func (c *Collector) Err() error {
	if len(c.errs) == 0 {
		return nil
	}
	return c.errs
}

// State is a position in the write-path state machine.
type State int

const (
	StateUnvalidated State = iota
	StateValidated
	StatePersisted
	StateRejected
)

func (s State) String() string {
	switch s {
	case StateUnvalidated:
		return "unvalidated"
	case StateValidated:
		return "validated"
	case StatePersisted:
		return "persisted"
	case StateRejected:
		return "rejected"
	}
	return "unknown"
}

// Submission tracks one candidate record through validation and persistence.
type Submission struct {
	State    State
	Errors   Errors
	Duration time.Duration
}

// CheckFunc runs the validator chain for a candidate. A returned error is a system failure;
// violations go to the collector.
type CheckFunc func(ctx context.Context, c *Collector) error

// PersistFunc writes a validated candidate.
type PersistFunc func(ctx context.Context) error

// Submit drives a candidate from Unvalidated to Persisted or Rejected. Violations raised by
// persist (a storage-level unique index) also reject the candidate. Nothing is retried.
func Submit(ctx context.Context, check CheckFunc, persist PersistFunc) (*Submission, error) {
	start := time.Now()
	s := &Submission{State: StateUnvalidated}
	defer func() { s.Duration = time.Since(start) }()

	c := &Collector{}
	if err := check(ctx, c); err != nil {
		return s, System("validate", err)
	}
	if c.sys != nil {
		return s, System("validate", c.sys)
	}
	if errs := c.Errors(); len(errs) > 0 {
		s.State = StateRejected
		s.Errors = errs
		return s, errs
	}
	s.State = StateValidated

	if err := persist(ctx); err != nil {
		if errs, ok := AsErrors(err); ok && !IsSystem(err) {
			s.State = StateRejected
			s.Errors = errs
			return s, errs
		}
		return s, System("persist", err)
	}
	s.State = StatePersisted
	return s, nil
}
