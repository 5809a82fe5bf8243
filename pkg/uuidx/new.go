// Package uuidx provides UUIDv7 constructors that panic on failure.
package uuidx

import "github.com/google/uuid"

// New generates a new version 7 UUID. It panics if generation fails.
func New() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

// NewString generates a new version 7 UUID and returns it as a string.
func NewString() string {
	return New().String()
}
