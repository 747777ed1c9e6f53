package util

import (
	"github.com/google/uuid"
)

// NewUUID returns a random (version 4) UUID in its canonical string form.
func NewUUID() string {
	return uuid.New().String()
}
