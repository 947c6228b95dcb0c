package helper

import "fmt"

// NewError wraps an error with the operation that failed.
// The operation should be a short verb phrase, e.g. "insert document".
func NewError(operation string, err error) error {
	return fmt.Errorf("error in %s: %w", operation, err)
}
