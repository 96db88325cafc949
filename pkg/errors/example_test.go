// Package errors provides examples of structured error handling in the feature store.
package errors_test

import (
	"fmt"
	"io"

	"github.com/ajitpratap0/featurestore/pkg/errors"
)

// Example demonstrates basic error creation with details.
func Example() {
	err := errors.New(errors.ErrorTypeRemote, "copy failed").
		WithDetail("bucket", "data-lake").
		WithDetail("key", "feature_store/acme/crm/user/data/v1/y=2024/m=01/d=02/part-0.parquet")

	fmt.Println(err.Error())

	// Output:
	// remote: copy failed
}

// ExampleNewf shows how taxonomy kinds are raised and matched.
func ExampleNewf() {
	err := errors.Newf(errors.ErrSchemaTypeMismatch, "column %q: expected %s, got %s", "name", "string", "int")

	fmt.Println(err)
	fmt.Println(errors.Is(err, errors.ErrSchemaTypeMismatch))
	fmt.Println(errors.IsSchemaMismatch(err))

	// Output:
	// schema_mismatch: column "name": expected string, got int
	// true
	// true
}

// ExampleWrapKind shows how collaborator failures keep their cause.
func ExampleWrapKind() {
	err := errors.WrapKind(io.ErrUnexpectedEOF, errors.ErrRemoteCall, "get schema descriptor")

	fmt.Println(errors.IsRemote(err))
	fmt.Println(errors.Is(err, io.ErrUnexpectedEOF))

	// Output:
	// true
	// true
}

// ExampleIsRetryable shows that only an exhausted query poll is retryable.
func ExampleIsRetryable() {
	notDone := errors.Newf(errors.ErrQueryNotComplete, "query %s still RUNNING", "q-1")
	exists := errors.Newf(errors.ErrPartitionAlreadyExists, "y=2024/m=01/d=02")

	fmt.Println(errors.IsRetryable(notDone))
	fmt.Println(errors.IsRetryable(exists))

	// Output:
	// true
	// false
}
