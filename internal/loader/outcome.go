package loader

import (
	"errors"
	"fmt"
)

var (
	// ErrStoreUnavailable is returned when a store read fails. It aborts the run.
	ErrStoreUnavailable = errors.New("employee store unavailable")

	// ErrNilStore is returned when a Loader is built without a store.
	ErrNilStore = errors.New("loader requires a store")
)

// State is the position of a record in the load lifecycle.
type State int

// Record states. Skipped, Persisted and Failed are terminal.
const (
	StatePending State = iota
	StateValidated
	StateSkipped
	StateIdentifierAssigned
	StatePersisted
	StateFailed
)

var stateNames = map[State]string{
	StatePending:            "pending",
	StateValidated:          "validated",
	StateSkipped:            "skipped",
	StateIdentifierAssigned: "identifier_assigned",
	StatePersisted:          "persisted",
	StateFailed:             "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}

	return "unknown"
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateSkipped || s == StatePersisted || s == StateFailed
}

// WriteError reports an insert rejected by the store.
type WriteError struct {
	UniqueID string
	Err      error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("insert %q rejected: %v", e.UniqueID, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

type (
	// Outcome is what happened to one source row.
	Outcome struct {
		Row       int // zero-based source row index
		State     State
		Employee  *Employee // set once an identifier is assigned
		Truncated bool      // job_position was shortened
		Err       error     // *roster.FieldError when skipped, *WriteError when failed
	}

	// Report summarizes a load.
	Report struct {
		Outcomes  []*Outcome
		Persisted int
		Skipped   int
		Failed    int
		Truncated int
	}
)

func (r *Report) add(o *Outcome) {
	r.Outcomes = append(r.Outcomes, o)

	switch o.State {
	case StatePersisted:
		r.Persisted++
	case StateSkipped:
		r.Skipped++
	case StateFailed:
		r.Failed++
	}

	if o.Truncated {
		r.Truncated++
	}
}
