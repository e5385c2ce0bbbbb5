package utils

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// NewID returns a time-ordered unique identifier suitable as a document key.
func NewID() string {
	id, err := uuid.NewV7()
	if err == nil {
		return id.String()
	}

	// Fallback to timestamp if the random source is unavailable.
	return strconv.FormatInt(time.Now().UnixNano(), 10)
}
