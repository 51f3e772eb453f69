package domain

import (
	"time"

	"github.com/google/uuid"
)

// Job kinds understood by the background queue. One worker per kind.
const (
	JobInboxActivity = "inbox-activity"
	JobStatusCreate  = "status-create"
	JobStatusUpdate  = "status-update"
	JobStatusDelete  = "status-delete"
	JobFavourite     = "favourite"
	JobUnfavourite   = "unfavourite"
	JobReblog        = "reblog"
	JobUnreblog      = "unreblog"
	JobFollowRequest = "follow-request"
	JobAcceptFollow  = "accept-follow"
	JobRejectFollow  = "reject-follow"
	JobDeliver       = "deliver"
)

// Job is one persisted unit of background work. Payload is the
// JSON-encoded job struct for the kind.
type Job struct {
	Id            uuid.UUID
	Kind          string
	Payload       []byte
	Attempts      int
	NextAttemptAt time.Time
	LastError     string
	CreatedAt     time.Time
}

// ActivitySummary is the parsed envelope of an inbound activity,
// carried alongside the raw body in an InboxActivityJob.
type ActivitySummary struct {
	Id     string `json:"id"`
	Type   string `json:"type"`
	Actor  string `json:"actor"`
	Object string `json:"object,omitempty"`
}

// InboxActivityJob is the queued form of an inbound federation request.
// Signature verification happens when the job runs, so the payload carries
// everything needed to recompute the signing string.
type InboxActivityJob struct {
	Activity ActivitySummary   `json:"activity"`
	Username string            `json:"username"` // local inbox owner, empty for shared inbox
	HttpPath string            `json:"httpPath"`
	Method   string            `json:"method"`
	Host     string            `json:"host"`
	Headers  map[string]string `json:"headers"` // Signature, Date, Digest, Content-Type
	Body     []byte            `json:"body"`
}

// StatusEventJob carries the id of a local status whose create/update/delete
// must be fanned out to follower inboxes.
type StatusEventJob struct {
	StatusId uuid.UUID `json:"statusId"`
	// For deletes the status row is already gone, so the fields needed to
	// build the Tombstone travel with the job.
	ObjectURI string `json:"objectUri,omitempty"`
	Username  string `json:"username,omitempty"`
}

// StatusActionJob carries a favourite/unfavourite/reblog/unreblog of a
// (possibly remote) status by a local account.
type StatusActionJob struct {
	StatusId  uuid.UUID `json:"statusId"`
	AccountId uuid.UUID `json:"accountId"`
	URI       string    `json:"uri,omitempty"` // activity URI of the action being undone
}

// FollowRequestJob is a self-contained outbound (un)follow: it carries the
// signing key so delivery needs no database round trip.
type FollowRequestJob struct {
	Source      string `json:"source"` // local actor URI
	Target      string `json:"target"` // remote actor URI
	Type        string `json:"type"`   // "follow" or "unfollow"
	SharedInbox string `json:"sharedInbox"`
	Id          string `json:"id"` // Follow activity URI
	PrivateKey  string `json:"privateKey"`
}

// FollowResponseJob is an outbound Accept or Reject of an inbound Follow
type FollowResponseJob struct {
	Username  string `json:"username"` // local account answering the follow
	ActorURI  string `json:"actorUri"` // remote follower
	FollowURI string `json:"followUri"`
}

// DeliverJob POSTs one signed activity document to one remote inbox
type DeliverJob struct {
	InboxURI     string `json:"inboxUri"`
	ActivityJSON string `json:"activityJson"`
	Username     string `json:"username"` // local signing account
}
