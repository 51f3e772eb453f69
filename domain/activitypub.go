package domain

import (
	"time"

	"github.com/google/uuid"
)

// RemoteAccount represents a cached federated actor
type RemoteAccount struct {
	Id             uuid.UUID
	Username       string
	Domain         string
	ActorURI       string
	DisplayName    string
	Summary        string
	InboxURI       string
	SharedInboxURI string
	OutboxURI      string
	PublicKeyPem   string
	AvatarURL      string
	Suspended      bool
	LastFetchedAt  time.Time
}

// Follow represents a follow relationship between two actors.
// Unique per (AccountId, TargetAccountId); AccountId is the follower.
type Follow struct {
	Id              uuid.UUID
	AccountId       uuid.UUID // follower (local or remote)
	TargetAccountId uuid.UUID // followee (local or remote)
	URI             string    // ActivityPub Follow activity URI
	Approved        bool
	CreatedAt       time.Time
}

// Activity is the bookkeeping record of a federation message, used for
// deduplication (UNIQUE activity_uri) and debugging. The message itself is
// transient; only its side effects persist in the entity tables.
type Activity struct {
	Id           uuid.UUID
	ActivityURI  string
	ActivityType string // Follow, Create, Like, Announce, Undo, etc.
	ActorURI     string
	ObjectURI    string
	RawJSON      string
	Processed    bool
	Local        bool // true if originated from this server
	CreatedAt    time.Time
}
