package uid

import "github.com/google/uuid"

// UUID produces time-ordered v7 UUIDs. Event ids, correlation ids, and JWT
// ids come from here.
type UUID struct{}

func NewUUID() *UUID { return &UUID{} }

func (*UUID) Generate() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}
