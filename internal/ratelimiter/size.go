package ratelimiter

import (
	"errors"
	"fmt"
)

// ErrMessageTooLarge is returned when a message exceeds the configured
// maximum size. Callers can match it with errors.Is.
var ErrMessageTooLarge = errors.New("message too large")

// SizeValidator rejects messages above a configured byte limit.
//
// A max size of 0 disables validation.
type SizeValidator struct {
	maxSize int
}

// NewSizeValidator creates a validator with the given maximum message size
// in bytes.
func NewSizeValidator(maxSize int) SizeValidator {
	return SizeValidator{maxSize: maxSize}
}

// Validate checks a message size against the limit.
func (v SizeValidator) Validate(size int) error {
	if v.maxSize > 0 && size > v.maxSize {
		return fmt.Errorf("%w: %d bytes, maximum allowed: %d bytes", ErrMessageTooLarge, size, v.maxSize)
	}
	return nil
}

// MaxSize returns the configured limit in bytes.
func (v SizeValidator) MaxSize() int {
	return v.maxSize
}
