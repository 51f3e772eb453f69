package domain

import (
	"time"

	"github.com/google/uuid"
)

// Account represents a local user able to publish statuses and federate
type Account struct {
	Id             uuid.UUID
	Username       string
	DisplayName    string
	Summary        string
	AvatarURL      string
	ManualApproval bool // follow requests need explicit approval
	WebPublicKey   string
	WebPrivateKey  string
	CreatedAt      time.Time
}
