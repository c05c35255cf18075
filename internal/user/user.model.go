package user

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID         uuid.UUID `json:"id" db:"id"`
	ExternalID string    `json:"externalId" db:"external_id"`
	Username   string    `json:"username" db:"username"`
	Coins      int       `json:"coins" db:"coins"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time `json:"updatedAt" db:"updated_at"`
}
