package domain

import (
	"time"

	"github.com/google/uuid"
)

// Visibility of a status
type Visibility string

const (
	VisibilityPublic   Visibility = "public"
	VisibilityUnlisted Visibility = "unlisted"
	VisibilityFollower Visibility = "followers"
)

// Status is a federated content unit: a post with optional media
// attachments. Local statuses are authored here and fanned out; remote
// ones arrive via inbound Create activities.
type Status struct {
	Id             uuid.UUID
	AccountId      uuid.UUID // owner: local account or remote account
	Content        string
	Visibility     Visibility
	Sensitive      bool
	ContentWarning string
	InReplyToURI   string
	ObjectURI      string // ActivityPub object id
	ActivityURI    string // Create activity id (dedup key for remote statuses)
	Local          bool
	FavouriteCount int
	ReblogCount    int
	ReplyCount     int
	CreatedAt      time.Time
	UpdatedAt      *time.Time
}

// Attachment is a media item on a status. Only the remote URL and metadata
// are stored; pictodon does not mirror media bytes.
type Attachment struct {
	Id          uuid.UUID
	StatusId    uuid.UUID
	URL         string
	MediaType   string
	Description string
	CreatedAt   time.Time
}

// Favourite represents a like on a status. Unique per (AccountId, StatusId).
type Favourite struct {
	Id        uuid.UUID
	AccountId uuid.UUID
	StatusId  uuid.UUID
	URI       string // ActivityPub Like activity URI
	CreatedAt time.Time
}

// Reblog represents a boost/announce of a status. Unique per (AccountId, StatusId).
type Reblog struct {
	Id        uuid.UUID
	AccountId uuid.UUID
	StatusId  uuid.UUID
	URI       string // ActivityPub Announce activity URI
	CreatedAt time.Time
}

// Mention represents a @user@domain mention found in a status
type Mention struct {
	Id                uuid.UUID
	StatusId          uuid.UUID
	MentionedActorURI string
	MentionedUsername string
	MentionedDomain   string
	CreatedAt         time.Time
}
