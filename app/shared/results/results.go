// Package results carries the success/failure envelope returned by services.
//
// The error return of a service method is reserved for infrastructure failures.
// Business outcomes that the caller should report rather than retry travel in
// Failure.
package results

// OperationResult holds exactly one of Success or Failure when the call returned a nil error.
type OperationResult[S any, F any] struct {
	Success *S
	Failure *F
}

// SuccessResult wraps a success value.
func SuccessResult[S any, F any](s S) OperationResult[S, F] {
	return OperationResult[S, F]{Success: &s}
}

// FailureResult wraps a failure value.
func FailureResult[S any, F any](f F) OperationResult[S, F] {
	return OperationResult[S, F]{Failure: &f}
}

func (r OperationResult[S, F]) IsSuccess() bool { return r.Success != nil }
func (r OperationResult[S, F]) IsFailure() bool { return r.Failure != nil }
