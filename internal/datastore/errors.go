package datastore

import (
	"strings"

	"gorm.io/gorm"

	"github.com/gcombe/batnet-go/internal/errors"
)

// Sentinel errors surfaced by the datastore. Callers classify outcomes with
// errors.Is rather than string matching.
var (
	// ErrRecordExists indicates a duplicate file name, an expected condition
	// during re-runs over partially processed input.
	ErrRecordExists = errors.NewStd("record already exists")

	// ErrReferential indicates annotations referencing a missing record,
	// which is a pipeline bug rather than an expected condition.
	ErrReferential = errors.NewStd("annotation references missing record")

	// ErrStoreUnavailable indicates contention retries were exhausted.
	ErrStoreUnavailable = errors.NewStd("datastore unavailable after retries")

	// ErrRecordNotFound indicates a lookup by file name or id found nothing.
	ErrRecordNotFound = errors.NewStd("record not found")
)

// isLockContention reports whether an error is a transient lock conflict
// worth retrying. Matches both SQLite busy/locked conditions and MySQL lock
// waits and deadlocks.
func isLockContention(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "database is locked") ||
		strings.Contains(errStr, "database table is locked") ||
		strings.Contains(errStr, "sqlite_busy") ||
		strings.Contains(errStr, "lock wait timeout") ||
		strings.Contains(errStr, "deadlock found")
}

// isConstraintViolation reports whether an error is a unique key violation.
func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "unique constraint") ||
		strings.Contains(errStr, "duplicate entry")
}

// isForeignKeyViolation reports whether an error is a referential integrity
// failure.
func isForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "foreign key constraint")
}

// dbError creates a properly categorized database error with context
func dbError(err error, operation, priority string, context ...any) error {
	builder := errors.New(err).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Context("operation", operation)

	if priority != "" {
		builder = builder.Priority(priority)
	}

	for i := 0; i < len(context)-1; i += 2 {
		if key, ok := context[i].(string); ok {
			builder = builder.Context(key, context[i+1])
		}
	}

	return builder.Build()
}

// conflictError creates a conflict error for constraint violations
func conflictError(err error, operation, conflictType string, context ...any) error {
	builder := errors.New(err).
		Component("datastore").
		Category(errors.CategoryConflict).
		Priority(errors.PriorityLow).
		Context("operation", operation).
		Context("conflict_type", conflictType)

	for i := 0; i < len(context)-1; i += 2 {
		if key, ok := context[i].(string); ok {
			builder = builder.Context(key, context[i+1])
		}
	}

	return builder.Build()
}

// notFoundError creates a not found error (low priority, expected condition)
func notFoundError(resource, identifier string) error {
	return errors.New(ErrRecordNotFound).
		Category(errors.CategoryNotFound).
		Context("resource", resource).
		Context("identifier", identifier).
		Build()
}
