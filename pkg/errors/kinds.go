package errors

import "errors"

// Validation kinds. Caller input is malformed; never retried.
var (
	ErrInvalidTimeColumn       = errors.New("invalid time column")
	ErrInvalidTimeUnit         = errors.New("invalid time unit")
	ErrMissingTimeColumn       = errors.New("missing time column")
	ErrNonNumericTimeColumn    = errors.New("non numeric time column")
	ErrReservedColumnCollision = errors.New("reserved column collision")
	ErrDuplicateColumn         = errors.New("duplicate column after sanitisation")
	ErrInvalidColumnName       = errors.New("invalid column name")
	ErrUnsupportedType         = errors.New("unsupported column type")
)

// Collision kinds.
var (
	ErrAlreadyExists          = errors.New("already exists")
	ErrPartitionAlreadyExists = errors.New("partition already exists")
)

// ErrMalformedPath is returned for storage paths that carry no partition key.
var ErrMalformedPath = errors.New("malformed path")

// Schema mismatch kinds, checked on every append.
var (
	ErrSchemaMissingColumns    = errors.New("schema missing columns")
	ErrSchemaExtraColumns      = errors.New("schema extra columns")
	ErrSchemaTypeMismatch      = errors.New("schema type mismatch")
	ErrSchemaMissingTimeColumn = errors.New("schema missing time column")
)

// Remote and query kinds.
var (
	ErrRemoteCall       = errors.New("remote call failed")
	ErrQuerySubmission  = errors.New("query submission failed")
	ErrQueryNotComplete = errors.New("query not complete")
)

var kindTypes = map[error]ErrorType{
	ErrInvalidTimeColumn:       ErrorTypeValidation,
	ErrInvalidTimeUnit:         ErrorTypeValidation,
	ErrMissingTimeColumn:       ErrorTypeValidation,
	ErrNonNumericTimeColumn:    ErrorTypeValidation,
	ErrReservedColumnCollision: ErrorTypeValidation,
	ErrDuplicateColumn:         ErrorTypeValidation,
	ErrInvalidColumnName:       ErrorTypeValidation,
	ErrUnsupportedType:         ErrorTypeValidation,
	ErrAlreadyExists:           ErrorTypeAlreadyExists,
	ErrPartitionAlreadyExists:  ErrorTypeAlreadyExists,
	ErrMalformedPath:           ErrorTypeMalformedPath,
	ErrSchemaMissingColumns:    ErrorTypeSchemaMismatch,
	ErrSchemaExtraColumns:      ErrorTypeSchemaMismatch,
	ErrSchemaTypeMismatch:      ErrorTypeSchemaMismatch,
	ErrSchemaMissingTimeColumn: ErrorTypeSchemaMismatch,
	ErrRemoteCall:              ErrorTypeRemote,
	ErrQuerySubmission:         ErrorTypeQuery,
	ErrQueryNotComplete:        ErrorTypeQuery,
}

// TypeOf returns the ErrorType a taxonomy kind belongs to.
func TypeOf(kind error) ErrorType {
	if t, ok := kindTypes[kind]; ok {
		return t
	}
	return ErrorTypeInternal
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool {
	return inFamily(err, ErrorTypeValidation)
}

// IsCollision reports whether err is a tripped write-once guard.
func IsCollision(err error) bool {
	return errors.Is(err, ErrAlreadyExists) || errors.Is(err, ErrPartitionAlreadyExists)
}

// IsSchemaMismatch reports whether err belongs to the schema mismatch family.
func IsSchemaMismatch(err error) bool {
	return inFamily(err, ErrorTypeSchemaMismatch)
}

// IsRemote reports whether err came from a collaborator call.
func IsRemote(err error) bool {
	return errors.Is(err, ErrRemoteCall)
}

// inFamily walks the chain of structured errors looking for errType.
func inFamily(err error, errType ErrorType) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Type == errType {
			return true
		}
		err = e.Cause
	}
	return false
}
