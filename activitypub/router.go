package activitypub

import (
	"bytes"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pictodon/pictodon/domain"
	"github.com/pictodon/pictodon/queue"
)

// ActivityType is a closed enum over the handled inbound activity kinds.
type ActivityType int

const (
	ActivityUnhandled ActivityType = iota
	ActivityFollow
	ActivityAccept
	ActivityReject
	ActivityUndo
	ActivityCreate
	ActivityUpdate
	ActivityDelete
	ActivityAnnounce
	ActivityLike
)

func (t ActivityType) String() string {
	switch t {
	case ActivityFollow:
		return "Follow"
	case ActivityAccept:
		return "Accept"
	case ActivityReject:
		return "Reject"
	case ActivityUndo:
		return "Undo"
	case ActivityCreate:
		return "Create"
	case ActivityUpdate:
		return "Update"
	case ActivityDelete:
		return "Delete"
	case ActivityAnnounce:
		return "Announce"
	case ActivityLike:
		return "Like"
	default:
		return "Unhandled"
	}
}

// ParseActivityType maps the wire type string onto the enum. Unknown
// strings map to ActivityUnhandled, never to an error: federation
// partners send a wide variety of types and ignoring them is correct.
func ParseActivityType(s string) ActivityType {
	switch s {
	case "Follow":
		return ActivityFollow
	case "Accept":
		return ActivityAccept
	case "Reject":
		return ActivityReject
	case "Undo":
		return ActivityUndo
	case "Create":
		return ActivityCreate
	case "Update":
		return ActivityUpdate
	case "Delete":
		return ActivityDelete
	case "Announce":
		return ActivityAnnounce
	case "Like":
		return ActivityLike
	default:
		return ActivityUnhandled
	}
}

// requiresSignature is the per-type verification policy. Delete is the
// one conditional case: an actor self-delete for an actor we never
// cached has no key to verify against and is treated as a no-op, so the
// signature check is skipped for it. All other handled types need a
// verified signature before any handler runs.
func requiresSignature(t ActivityType, job *domain.InboxActivityJob, deps *Deps) bool {
	if t != ActivityDelete {
		return true
	}
	if job.Activity.Object != job.Activity.Actor {
		// Status delete, always verified
		return true
	}
	err, cached := deps.Database.ReadRemoteAccountByActorURI(job.Activity.Actor)
	return err == nil && cached != nil
}

// RouteActivity runs the verification policy for the queued inbound
// activity and dispatches it to exactly one handler. Verification
// failures are terminal; handler errors propagate to the queue wrapper.
func RouteActivity(job *domain.InboxActivityJob, deps *Deps) error {
	activityType := ParseActivityType(job.Activity.Type)
	if activityType == ActivityUnhandled {
		log.Printf("Router: ignoring unhandled activity type %q from %s", job.Activity.Type, job.Activity.Actor)
		return nil
	}

	var remoteActor *domain.RemoteAccount
	if requiresSignature(activityType, job, deps) {
		req, err := reconstructRequest(job)
		if err != nil {
			return queue.Terminal(err)
		}
		if err := ValidateAlgorithm(req); err != nil {
			return queue.Terminal(err)
		}
		remoteActor, err = ValidateSignature(req, job.Activity.Actor, deps)
		if err != nil {
			return queue.Terminal(err)
		}
	} else {
		log.Printf("Router: skipping signature check for self-delete of unknown actor %s", job.Activity.Actor)
		return nil
	}

	// Record the activity for dedup. A UNIQUE hit alone is not enough to
	// skip: the row is written before the handler runs, so a retry after
	// a transient handler failure lands here too. Only a row already
	// marked processed means re-delivery of something fully applied.
	record := &domain.Activity{
		Id:           uuid.New(),
		ActivityURI:  job.Activity.Id,
		ActivityType: job.Activity.Type,
		ActorURI:     job.Activity.Actor,
		ObjectURI:    job.Activity.Object,
		RawJSON:      string(job.Body),
		Processed:    false,
		Local:        false,
		CreatedAt:    time.Now(),
	}
	if err := deps.Database.CreateActivity(record); err != nil {
		if !strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return err
		}
		err, existing := deps.Database.ReadActivityByURI(job.Activity.Id)
		if err != nil {
			return err
		}
		if existing.Processed {
			log.Printf("Router: activity %s already processed, skipping", job.Activity.Id)
			return nil
		}
		log.Printf("Router: retrying activity %s after incomplete attempt", job.Activity.Id)
		record = existing
	}

	var err error
	switch activityType {
	case ActivityFollow:
		err = handleFollow(job.Body, job.Username, remoteActor, deps)
	case ActivityAccept:
		err = handleAccept(job.Body, job.Username, deps)
	case ActivityReject:
		err = handleReject(job.Body, job.Username, deps)
	case ActivityUndo:
		err = handleUndo(job.Body, remoteActor, deps)
	case ActivityCreate:
		err = handleCreate(job.Body, job.Username, remoteActor, deps)
	case ActivityUpdate:
		err = handleUpdate(job.Body, remoteActor, deps)
	case ActivityDelete:
		err = handleDelete(job.Body, remoteActor, deps)
	case ActivityAnnounce:
		err = handleAnnounce(job.Body, remoteActor, deps)
	case ActivityLike:
		err = handleLike(job.Body, remoteActor, deps)
	}
	if err != nil {
		return err
	}

	record.Processed = true
	if err := deps.Database.UpdateActivity(record); err != nil {
		log.Printf("Router: failed to mark activity %s processed: %v", job.Activity.Id, err)
	}
	return nil
}

// reconstructRequest rebuilds the inbound HTTP request from the queued
// snapshot so the signature can be verified asynchronously.
func reconstructRequest(job *domain.InboxActivityJob) (*http.Request, error) {
	req, err := http.NewRequest(job.Method, "https://"+job.Host+job.HttpPath, bytes.NewReader(job.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct request: %w", err)
	}
	req.Host = job.Host
	for name, value := range job.Headers {
		req.Header.Set(name, value)
	}
	return req, nil
}
