package service

import "fmt"

// RelayError reports a failed upstream call made on behalf of a client request.
// Op names the relay ("translate" or "speak").
type RelayError struct {
	Op  string
	Err error
}

func (e *RelayError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *RelayError) Unwrap() error {
	return e.Err
}
