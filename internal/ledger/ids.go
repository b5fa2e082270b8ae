package ledger

import "github.com/google/uuid"

// NewID returns a time-ordered UUID, falling back to a random one if the
// clock sequence cannot be read.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
