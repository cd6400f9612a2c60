package app

import "time"

// Operation tracks one CLI command against a workspace. Its ID tags every
// log line the command produces, and its outcome is logged on Close.
type Operation struct {
	ID         string
	Name       string
	Parameters string
	Status     string // "success" or "error"
	StartedAt  time.Time
}

// NewOperation creates an operation that started at now.
func NewOperation(name, parameters string, now time.Time) *Operation {
	return &Operation{
		ID:         now.UTC().Format("20060102T150405Z"),
		Name:       name,
		Parameters: parameters,
		Status:     "success",
		StartedAt:  now,
	}
}

// Fail marks the operation as failed when err is non-nil and returns err.
func (op *Operation) Fail(err error) error {
	if err != nil {
		op.Status = "error"
	}
	return err
}

// Failed reports whether any step of the operation failed.
func (op *Operation) Failed() bool {
	return op.Status == "error"
}

// Duration is the time elapsed between StartedAt and now.
func (op *Operation) Duration(now time.Time) time.Duration {
	return now.Sub(op.StartedAt).Truncate(time.Millisecond)
}
