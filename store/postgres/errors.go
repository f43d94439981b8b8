package postgres

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/JasonAskew/knowledge-sub001/internal/errs"
)

// classifyExecErr maps a driver error to the typed taxonomy of spec.md §7:
// connection-class pq errors and serialization failures are transient
// (retryable), everything else is permanent.
func classifyExecErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if isTransientPQ(err) {
		return &errs.TransientStoreError{Op: op, Err: err}
	}
	return &errs.PermanentStoreError{Op: op, Err: err}
}

// classifyScanErr is classifyExecErr plus sql.ErrNoRows passthrough, since
// "not found" is not itself a store failure.
func classifyScanErr(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return err
	}
	return classifyExecErr(op, err)
}

func isTransientPQ(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "08", "40", "53", "57": // connection, transaction rollback, insufficient resources, operator intervention
			return true
		}
		return false
	}
	// Network-level errors surfaced without a pq.Error wrapper (e.g. broken
	// pipe, connection reset) are also worth a retry.
	return errors.Is(err, sql.ErrConnDone)
}
