package core

import "github.com/google/uuid"

// NewID returns a new unique identifier for plans, escalations and
// correlation ids.
func NewID() string {
	return uuid.NewString()
}
