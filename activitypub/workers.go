package activitypub

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/pictodon/pictodon/domain"
	"github.com/pictodon/pictodon/queue"
)

// RegisterWorkers wires every job kind to its handler and installs the
// error hook. Must run before the queue starts.
func RegisterWorkers(q queue.Queue, deps *Deps) {
	q.Register(domain.JobInboxActivity, func(ctx context.Context, payload []byte) error {
		return ProcessInboxJob(payload, deps)
	})
	q.Register(domain.JobStatusCreate, func(ctx context.Context, payload []byte) error {
		return processStatusEvent(payload, deps, "Create")
	})
	q.Register(domain.JobStatusUpdate, func(ctx context.Context, payload []byte) error {
		return processStatusEvent(payload, deps, "Update")
	})
	q.Register(domain.JobStatusDelete, func(ctx context.Context, payload []byte) error {
		return processStatusDelete(payload, deps)
	})
	q.Register(domain.JobFavourite, func(ctx context.Context, payload []byte) error {
		return processStatusAction(payload, deps, "Like", false)
	})
	q.Register(domain.JobUnfavourite, func(ctx context.Context, payload []byte) error {
		return processStatusAction(payload, deps, "Like", true)
	})
	q.Register(domain.JobReblog, func(ctx context.Context, payload []byte) error {
		return processStatusAction(payload, deps, "Announce", false)
	})
	q.Register(domain.JobUnreblog, func(ctx context.Context, payload []byte) error {
		return processStatusAction(payload, deps, "Announce", true)
	})
	q.Register(domain.JobFollowRequest, func(ctx context.Context, payload []byte) error {
		return processFollowRequest(payload, deps)
	})
	q.Register(domain.JobAcceptFollow, func(ctx context.Context, payload []byte) error {
		return processFollowResponse(payload, deps, "Accept")
	})
	q.Register(domain.JobRejectFollow, func(ctx context.Context, payload []byte) error {
		return processFollowResponse(payload, deps, "Reject")
	})
	q.Register(domain.JobDeliver, func(ctx context.Context, payload []byte) error {
		return processDeliver(payload, deps)
	})

	q.OnError(func(kind string, payload []byte, err error) {
		// Structured failure record with the payload identity, not just
		// the error text
		log.Printf("Worker: kind=%s terminal=%t payload=%s error=%v", kind, queue.IsTerminal(err), payloadSummary(payload), err)
	})
}

// payloadSummary trims a payload for logging.
func payloadSummary(payload []byte) string {
	const max = 256
	if len(payload) > max {
		return string(payload[:max]) + "..."
	}
	return string(payload)
}

// processStatusEvent fans out a Create or Update of a local status.
func processStatusEvent(payload []byte, deps *Deps, activityType string) error {
	var job domain.StatusEventJob
	if err := json.Unmarshal(payload, &job); err != nil {
		return queue.Terminal(fmt.Errorf("malformed status event job: %w", err))
	}

	err, status := deps.Database.ReadStatusById(job.StatusId)
	if err != nil || status == nil {
		// Deleted before we got to federate it
		log.Printf("Worker: Status %s gone before %s fan-out, skipping", job.StatusId, activityType)
		return nil
	}

	err, localAccount := deps.Database.ReadAccById(status.AccountId)
	if err != nil || localAccount == nil {
		return queue.Terminalf("status %s has no local owner", job.StatusId)
	}

	var activity map[string]any
	if activityType == "Update" {
		activity = BuildUpdateActivity(status, localAccount, deps)
	} else {
		activity = BuildCreateActivity(status, localAccount, deps)
	}
	return fanOutToFollowers(deps, localAccount, activity)
}

// processStatusDelete fans out the Tombstone for a removed status.
func processStatusDelete(payload []byte, deps *Deps) error {
	var job domain.StatusEventJob
	if err := json.Unmarshal(payload, &job); err != nil {
		return queue.Terminal(fmt.Errorf("malformed status delete job: %w", err))
	}
	if job.ObjectURI == "" || job.Username == "" {
		return queue.Terminalf("status delete job missing object uri or username")
	}

	err, localAccount := deps.Database.ReadAccByUsername(job.Username)
	if err != nil || localAccount == nil {
		return queue.Terminalf("local account %s not found", job.Username)
	}

	activity := BuildDeleteActivity(job.ObjectURI, localAccount, deps)
	return fanOutToFollowers(deps, localAccount, activity)
}

// processStatusAction delivers a Like/Announce (or its Undo) for a
// remote status to its owner's inbox.
func processStatusAction(payload []byte, deps *Deps, activityType string, undo bool) error {
	var job domain.StatusActionJob
	if err := json.Unmarshal(payload, &job); err != nil {
		return queue.Terminal(fmt.Errorf("malformed status action job: %w", err))
	}

	err, status := deps.Database.ReadStatusById(job.StatusId)
	if err != nil || status == nil {
		log.Printf("Worker: Status %s gone before %s delivery, skipping", job.StatusId, activityType)
		return nil
	}
	if status.Local {
		// Acting on our own content needs no federation
		return nil
	}

	err, localAccount := deps.Database.ReadAccById(job.AccountId)
	if err != nil || localAccount == nil {
		return queue.Terminalf("acting account %s not found", job.AccountId)
	}

	err, owner := deps.Database.ReadRemoteAccountById(status.AccountId)
	if err != nil || owner == nil {
		log.Printf("Worker: Remote owner of status %s unknown, skipping delivery", job.StatusId)
		return nil
	}

	var activity map[string]any
	if activityType == "Announce" {
		activity = BuildAnnounceActivity(job.URI, status.ObjectURI, localAccount, deps)
	} else {
		activity = BuildLikeActivity(job.URI, status.ObjectURI, localAccount, deps)
	}
	if undo {
		activity = BuildUndoActivity(activity, localAccount, deps)
	}

	return deliverAs(deps, localAccount.Username, localAccount.WebPrivateKey, owner.InboxURI, activity)
}

// processFollowRequest delivers an outbound Follow or its Undo. The job
// is self-contained: target inbox and signing key travel with it.
func processFollowRequest(payload []byte, deps *Deps) error {
	var job domain.FollowRequestJob
	if err := json.Unmarshal(payload, &job); err != nil {
		return queue.Terminal(fmt.Errorf("malformed follow request job: %w", err))
	}
	if job.SharedInbox == "" {
		return queue.Terminalf("follow request for %s has no inbox", job.Target)
	}

	follow := map[string]any{
		"@context": activityStreamsContext,
		"id":       job.Id,
		"type":     "Follow",
		"actor":    job.Source,
		"object":   job.Target,
	}

	activity := follow
	if job.Type == "unfollow" {
		activity = map[string]any{
			"@context": activityStreamsContext,
			"id":       NewActivityURI(deps.Conf.Conf.Domain),
			"type":     "Undo",
			"actor":    job.Source,
			"object": map[string]any{
				"id":     job.Id,
				"type":   "Follow",
				"actor":  job.Source,
				"object": job.Target,
			},
		}
	}

	privateKey, err := ParsePrivateKey(job.PrivateKey)
	if err != nil {
		return queue.Terminal(fmt.Errorf("failed to parse signing key: %w", err))
	}

	activityJSON, err := json.Marshal(activity)
	if err != nil {
		return queue.Terminal(err)
	}

	return DeliverSigned(activityJSON, job.SharedInbox, job.Source+"#main-key", privateKey, deps.HTTPClient)
}

// processFollowResponse delivers an Accept or Reject of an inbound
// Follow back to the follower's inbox.
func processFollowResponse(payload []byte, deps *Deps, responseType string) error {
	var job domain.FollowResponseJob
	if err := json.Unmarshal(payload, &job); err != nil {
		return queue.Terminal(fmt.Errorf("malformed follow response job: %w", err))
	}

	err, localAccount := deps.Database.ReadAccByUsername(job.Username)
	if err != nil || localAccount == nil {
		return queue.Terminalf("local account %s not found", job.Username)
	}

	remoteActor, err := GetOrFetchActor(job.ActorURI, deps.HTTPClient, deps.Database)
	if err != nil {
		return fmt.Errorf("failed to resolve follower %s: %w", job.ActorURI, err)
	}

	if responseType == "Reject" {
		// The row is removed once the Reject is on the wire
		if err := deps.Database.DeleteFollowByURI(job.FollowURI); err != nil {
			log.Printf("Worker: Failed to delete rejected follow %s: %v", job.FollowURI, err)
		}
	}

	activity := BuildFollowResponseActivity(responseType, job.FollowURI, remoteActor.ActorURI, localAccount, deps)
	return deliverAs(deps, localAccount.Username, localAccount.WebPrivateKey, remoteActor.InboxURI, activity)
}

// processDeliver POSTs one signed activity document to one inbox.
func processDeliver(payload []byte, deps *Deps) error {
	var job domain.DeliverJob
	if err := json.Unmarshal(payload, &job); err != nil {
		return queue.Terminal(fmt.Errorf("malformed deliver job: %w", err))
	}

	err, localAccount := deps.Database.ReadAccByUsername(job.Username)
	if err != nil || localAccount == nil {
		return queue.Terminalf("signing account %s not found", job.Username)
	}

	privateKey, err := ParsePrivateKey(localAccount.WebPrivateKey)
	if err != nil {
		return queue.Terminal(fmt.Errorf("failed to parse signing key: %w", err))
	}

	keyId := KeyId(deps.Conf.Conf.Domain, localAccount.Username)
	return DeliverSigned([]byte(job.ActivityJSON), job.InboxURI, keyId, privateKey, deps.HTTPClient)
}

// deliverAs signs and sends one activity on behalf of a local account.
func deliverAs(deps *Deps, username, privateKeyPem, inboxURI string, activity map[string]any) error {
	privateKey, err := ParsePrivateKey(privateKeyPem)
	if err != nil {
		return queue.Terminal(fmt.Errorf("failed to parse signing key: %w", err))
	}

	activityJSON, err := json.Marshal(activity)
	if err != nil {
		return queue.Terminal(err)
	}

	return DeliverSigned(activityJSON, inboxURI, KeyId(deps.Conf.Conf.Domain, username), privateKey, deps.HTTPClient)
}
