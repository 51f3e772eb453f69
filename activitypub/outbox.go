package activitypub

import (
	"bytes"
	"crypto/rsa"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/pictodon/pictodon/domain"
	"github.com/pictodon/pictodon/queue"
	"github.com/pictodon/pictodon/util"
)

const activityStreamsContext = "https://www.w3.org/ns/activitystreams"
const publicAudience = "https://www.w3.org/ns/activitystreams#Public"

// URI builders. All local identifiers hang off the configured domain.

func ActorURI(domainName, username string) string {
	return fmt.Sprintf("https://%s/users/%s", domainName, username)
}

func StatusObjectURI(domainName string, statusId uuid.UUID) string {
	return fmt.Sprintf("https://%s/statuses/%s", domainName, statusId.String())
}

func NewActivityURI(domainName string) string {
	return fmt.Sprintf("https://%s/activities/%s", domainName, uuid.New().String())
}

func KeyId(domainName, username string) string {
	return fmt.Sprintf("%s#main-key", ActorURI(domainName, username))
}

func followersURI(domainName, username string) string {
	return fmt.Sprintf("%s/followers", ActorURI(domainName, username))
}

// DeliverSigned signs the activity document with privateKey and POSTs it
// to inboxURI. The returned error is queue.Terminal for responses that
// retrying cannot fix.
func DeliverSigned(activityJSON []byte, inboxURI, keyId string, privateKey *rsa.PrivateKey, client HTTPClient) error {
	hash := sha256.Sum256(activityJSON)
	digest := "SHA-256=" + base64.StdEncoding.EncodeToString(hash[:])

	req, err := http.NewRequest("POST", inboxURI, bytes.NewReader(activityJSON))
	if err != nil {
		return queue.Terminal(fmt.Errorf("failed to create request: %w", err))
	}

	req.Header.Set("Content-Type", "application/activity+json")
	req.Header.Set("Accept", "application/activity+json")
	req.Header.Set("User-Agent", util.UserAgent())
	req.Header.Set("Date", time.Now().UTC().Format(http.TimeFormat))
	req.Header.Set("Host", req.URL.Host)
	req.Header.Set("Digest", digest)

	if err := SignRequest(req, privateKey, keyId); err != nil {
		return queue.Terminal(fmt.Errorf("failed to sign request: %w", err))
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", inboxURI, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		log.Printf("Outbox: Delivered to %s (status: %d)", inboxURI, resp.StatusCode)
		return nil
	case resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("remote %s throttled delivery: %d", inboxURI, resp.StatusCode)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		// Rejected payloads and Gone inboxes stay rejected
		return queue.Terminalf("remote %s rejected delivery: %d", inboxURI, resp.StatusCode)
	default:
		return fmt.Errorf("remote %s returned status: %d", inboxURI, resp.StatusCode)
	}
}

// QueueDelivery enqueues one signed POST of activityJSON to inboxURI on
// behalf of the local user.
func QueueDelivery(deps *Deps, username, inboxURI string, activity map[string]any) error {
	activityJSON, err := json.Marshal(activity)
	if err != nil {
		return err
	}
	return deps.Queue.Enqueue(domain.JobDeliver, &domain.DeliverJob{
		InboxURI:     inboxURI,
		ActivityJSON: string(activityJSON),
		Username:     username,
	})
}

// fanOutToFollowers enqueues one deliver job per distinct follower
// inbox, preferring shared inboxes to collapse per-domain fan-out.
func fanOutToFollowers(deps *Deps, localAccount *domain.Account, activity map[string]any) error {
	err, followers := deps.Database.ReadFollowersByAccountId(localAccount.Id)
	if err != nil {
		return fmt.Errorf("failed to read followers: %w", err)
	}
	if followers == nil || len(*followers) == 0 {
		log.Printf("Outbox: No followers to deliver to for %s", localAccount.Username)
		return nil
	}

	seen := make(map[string]bool)
	for _, follower := range *followers {
		err, remoteActor := deps.Database.ReadRemoteAccountById(follower.AccountId)
		if err != nil || remoteActor == nil {
			log.Printf("Outbox: Failed to resolve follower %s: %v", follower.AccountId, err)
			continue
		}
		inbox := DeliveryInbox(remoteActor)
		if inbox == "" || seen[inbox] {
			continue
		}
		seen[inbox] = true
		if err := QueueDelivery(deps, localAccount.Username, inbox, activity); err != nil {
			log.Printf("Outbox: Failed to queue delivery to %s: %v", inbox, err)
		}
	}

	log.Printf("Outbox: Queued delivery to %d inboxes for %s", len(seen), localAccount.Username)
	return nil
}

// buildStatusObject renders a status as an ActivityPub object document.
func buildStatusObject(status *domain.Status, localAccount *domain.Account, deps *Deps, domainName string) map[string]any {
	actorURI := ActorURI(domainName, localAccount.Username)
	object := map[string]any{
		"id":           status.ObjectURI,
		"type":         "Note",
		"attributedTo": actorURI,
		"content":      util.MarkdownLinksToHTML(status.Content),
		"mediaType":    "text/html",
		"sensitive":    status.Sensitive,
		"published":    status.CreatedAt.Format(time.RFC3339),
		"to":           []string{publicAudience},
		"cc":           []string{followersURI(domainName, localAccount.Username)},
	}
	if status.ContentWarning != "" {
		object["summary"] = status.ContentWarning
	}
	if status.InReplyToURI != "" {
		object["inReplyTo"] = status.InReplyToURI
	}
	if status.UpdatedAt != nil {
		object["updated"] = status.UpdatedAt.Format(time.RFC3339)
	}

	if err, attachments := deps.Database.ReadAttachmentsByStatusId(status.Id); err == nil && attachments != nil && len(*attachments) > 0 {
		var docs []map[string]any
		for _, att := range *attachments {
			docs = append(docs, map[string]any{
				"type":      "Document",
				"mediaType": att.MediaType,
				"url":       att.URL,
				"name":      att.Description,
			})
		}
		object["attachment"] = docs
	}

	return object
}

// BuildCreateActivity renders the Create wrapping a local status.
func BuildCreateActivity(status *domain.Status, localAccount *domain.Account, deps *Deps) map[string]any {
	domainName := deps.Conf.Conf.Domain
	return map[string]any{
		"@context":  activityStreamsContext,
		"id":        status.ActivityURI,
		"type":      "Create",
		"actor":     ActorURI(domainName, localAccount.Username),
		"published": status.CreatedAt.Format(time.RFC3339),
		"to":        []string{publicAudience},
		"cc":        []string{followersURI(domainName, localAccount.Username)},
		"object":    buildStatusObject(status, localAccount, deps, domainName),
	}
}

// BuildUpdateActivity renders an Update for an edited local status.
func BuildUpdateActivity(status *domain.Status, localAccount *domain.Account, deps *Deps) map[string]any {
	domainName := deps.Conf.Conf.Domain
	return map[string]any{
		"@context": activityStreamsContext,
		"id":       NewActivityURI(domainName),
		"type":     "Update",
		"actor":    ActorURI(domainName, localAccount.Username),
		"to":       []string{publicAudience},
		"cc":       []string{followersURI(domainName, localAccount.Username)},
		"object":   buildStatusObject(status, localAccount, deps, domainName),
	}
}

// BuildDeleteActivity renders a Delete with a Tombstone for a removed
// local status.
func BuildDeleteActivity(objectURI string, localAccount *domain.Account, deps *Deps) map[string]any {
	domainName := deps.Conf.Conf.Domain
	return map[string]any{
		"@context":  activityStreamsContext,
		"id":        NewActivityURI(domainName),
		"type":      "Delete",
		"actor":     ActorURI(domainName, localAccount.Username),
		"published": time.Now().Format(time.RFC3339),
		"to":        []string{publicAudience},
		"cc":        []string{followersURI(domainName, localAccount.Username)},
		"object": map[string]any{
			"id":   objectURI,
			"type": "Tombstone",
		},
	}
}

// BuildLikeActivity renders a Like of a remote status.
func BuildLikeActivity(likeURI, objectURI string, localAccount *domain.Account, deps *Deps) map[string]any {
	return map[string]any{
		"@context": activityStreamsContext,
		"id":       likeURI,
		"type":     "Like",
		"actor":    ActorURI(deps.Conf.Conf.Domain, localAccount.Username),
		"object":   objectURI,
	}
}

// BuildAnnounceActivity renders an Announce of a remote status.
func BuildAnnounceActivity(announceURI, objectURI string, localAccount *domain.Account, deps *Deps) map[string]any {
	domainName := deps.Conf.Conf.Domain
	return map[string]any{
		"@context":  activityStreamsContext,
		"id":        announceURI,
		"type":      "Announce",
		"actor":     ActorURI(domainName, localAccount.Username),
		"published": time.Now().Format(time.RFC3339),
		"to":        []string{publicAudience},
		"cc":        []string{followersURI(domainName, localAccount.Username)},
		"object":    objectURI,
	}
}

// BuildUndoActivity wraps a previously sent activity in an Undo.
func BuildUndoActivity(inner map[string]any, localAccount *domain.Account, deps *Deps) map[string]any {
	delete(inner, "@context")
	return map[string]any{
		"@context": activityStreamsContext,
		"id":       NewActivityURI(deps.Conf.Conf.Domain),
		"type":     "Undo",
		"actor":    ActorURI(deps.Conf.Conf.Domain, localAccount.Username),
		"object":   inner,
	}
}

// BuildFollowResponseActivity renders the Accept or Reject of an
// inbound Follow.
func BuildFollowResponseActivity(responseType, followURI, remoteActorURI string, localAccount *domain.Account, deps *Deps) map[string]any {
	domainName := deps.Conf.Conf.Domain
	actorURI := ActorURI(domainName, localAccount.Username)
	return map[string]any{
		"@context": activityStreamsContext,
		"id":       NewActivityURI(domainName),
		"type":     responseType,
		"actor":    actorURI,
		"object": map[string]any{
			"id":     followURI,
			"type":   "Follow",
			"actor":  remoteActorURI,
			"object": actorURI,
		},
	}
}

// QueueStatusCreate enqueues federation of a newly authored status.
func QueueStatusCreate(deps *Deps, statusId uuid.UUID, username string) error {
	return deps.Queue.Enqueue(domain.JobStatusCreate, &domain.StatusEventJob{
		StatusId: statusId,
		Username: username,
	})
}

// QueueStatusUpdate enqueues federation of a status edit.
func QueueStatusUpdate(deps *Deps, statusId uuid.UUID, username string) error {
	return deps.Queue.Enqueue(domain.JobStatusUpdate, &domain.StatusEventJob{
		StatusId: statusId,
		Username: username,
	})
}

// QueueStatusDelete enqueues federation of a status deletion. The
// object URI is carried in the job since the row is already gone by
// delivery time.
func QueueStatusDelete(deps *Deps, statusId uuid.UUID, objectURI, username string) error {
	return deps.Queue.Enqueue(domain.JobStatusDelete, &domain.StatusEventJob{
		StatusId:  statusId,
		ObjectURI: objectURI,
		Username:  username,
	})
}

// SendFollowRequest creates a pending follow of a remote actor and
// enqueues the outbound Follow. The job carries everything needed to
// deliver without further DB reads.
func SendFollowRequest(deps *Deps, localAccount *domain.Account, remoteActorURI string) error {
	remoteActor, err := GetOrFetchActor(remoteActorURI, deps.HTTPClient, deps.Database)
	if err != nil {
		return fmt.Errorf("failed to fetch remote actor: %w", err)
	}

	if remoteActor.Domain == deps.Conf.Conf.Domain && remoteActor.Username == localAccount.Username {
		return fmt.Errorf("self-follow not allowed")
	}

	err, existing := deps.Database.ReadFollowByAccountIds(localAccount.Id, remoteActor.Id)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("failed to check existing follow: %w", err)
	}
	if existing != nil {
		return fmt.Errorf("already following %s@%s", remoteActor.Username, remoteActor.Domain)
	}

	followURI := NewActivityURI(deps.Conf.Conf.Domain)
	followRecord := &domain.Follow{
		Id:              uuid.New(),
		AccountId:       localAccount.Id,
		TargetAccountId: remoteActor.Id,
		URI:             followURI,
		Approved:        false,
		CreatedAt:       time.Now(),
	}
	if err := deps.Database.CreateFollow(followRecord); err != nil {
		return fmt.Errorf("failed to store follow: %w", err)
	}

	return deps.Queue.Enqueue(domain.JobFollowRequest, &domain.FollowRequestJob{
		Source:      ActorURI(deps.Conf.Conf.Domain, localAccount.Username),
		Target:      remoteActor.ActorURI,
		Type:        "follow",
		SharedInbox: DeliveryInbox(remoteActor),
		Id:          followURI,
		PrivateKey:  localAccount.WebPrivateKey,
	})
}

// SendUnfollowRequest removes the follow row and enqueues the Undo.
func SendUnfollowRequest(deps *Deps, localAccount *domain.Account, remoteActorURI string) error {
	err, remoteActor := deps.Database.ReadRemoteAccountByActorURI(remoteActorURI)
	if err != nil || remoteActor == nil {
		return fmt.Errorf("remote actor not known: %s", remoteActorURI)
	}

	err, follow := deps.Database.ReadFollowByAccountIds(localAccount.Id, remoteActor.Id)
	if err != nil || follow == nil {
		return fmt.Errorf("not following %s@%s", remoteActor.Username, remoteActor.Domain)
	}

	if err := deps.Database.DeleteFollowByURI(follow.URI); err != nil {
		return fmt.Errorf("failed to delete follow: %w", err)
	}

	return deps.Queue.Enqueue(domain.JobFollowRequest, &domain.FollowRequestJob{
		Source:      ActorURI(deps.Conf.Conf.Domain, localAccount.Username),
		Target:      remoteActor.ActorURI,
		Type:        "unfollow",
		SharedInbox: DeliveryInbox(remoteActor),
		Id:          follow.URI,
		PrivateKey:  localAccount.WebPrivateKey,
	})
}

// FavouriteRemoteStatus records a favourite of a remote status by a
// local user and enqueues the Like delivery.
func FavouriteRemoteStatus(deps *Deps, localAccount *domain.Account, statusId uuid.UUID) error {
	err, status := deps.Database.ReadStatusById(statusId)
	if err != nil || status == nil {
		return fmt.Errorf("status not found: %s", statusId)
	}

	has, err := deps.Database.HasFavourite(localAccount.Id, statusId)
	if err != nil {
		return err
	}
	if has {
		return nil
	}

	likeURI := NewActivityURI(deps.Conf.Conf.Domain)
	favourite := &domain.Favourite{
		Id:        uuid.New(),
		AccountId: localAccount.Id,
		StatusId:  statusId,
		URI:       likeURI,
		CreatedAt: time.Now(),
	}
	if err := deps.Database.CreateFavourite(favourite); err != nil {
		return fmt.Errorf("failed to store favourite: %w", err)
	}
	if err := deps.Database.IncrementFavouriteCount(statusId); err != nil {
		log.Printf("Outbox: Failed to increment favourite count: %v", err)
	}

	return deps.Queue.Enqueue(domain.JobFavourite, &domain.StatusActionJob{
		StatusId:  statusId,
		AccountId: localAccount.Id,
		URI:       likeURI,
	})
}

// UnfavouriteRemoteStatus reverses FavouriteRemoteStatus.
func UnfavouriteRemoteStatus(deps *Deps, localAccount *domain.Account, statusId uuid.UUID) error {
	err, favourite := deps.Database.ReadFavourite(localAccount.Id, statusId)
	if err != nil || favourite == nil {
		return nil
	}

	if err := deps.Database.DeleteFavourite(localAccount.Id, statusId); err != nil {
		return fmt.Errorf("failed to delete favourite: %w", err)
	}
	if err := deps.Database.DecrementFavouriteCount(statusId); err != nil {
		log.Printf("Outbox: Failed to decrement favourite count: %v", err)
	}

	return deps.Queue.Enqueue(domain.JobUnfavourite, &domain.StatusActionJob{
		StatusId:  statusId,
		AccountId: localAccount.Id,
		URI:       favourite.URI,
	})
}

// ReblogRemoteStatus records a reblog of a remote status by a local
// user and enqueues the Announce delivery.
func ReblogRemoteStatus(deps *Deps, localAccount *domain.Account, statusId uuid.UUID) error {
	err, status := deps.Database.ReadStatusById(statusId)
	if err != nil || status == nil {
		return fmt.Errorf("status not found: %s", statusId)
	}

	has, err := deps.Database.HasReblog(localAccount.Id, statusId)
	if err != nil {
		return err
	}
	if has {
		return nil
	}

	announceURI := NewActivityURI(deps.Conf.Conf.Domain)
	reblog := &domain.Reblog{
		Id:        uuid.New(),
		AccountId: localAccount.Id,
		StatusId:  statusId,
		URI:       announceURI,
		CreatedAt: time.Now(),
	}
	if err := deps.Database.CreateReblog(reblog); err != nil {
		return fmt.Errorf("failed to store reblog: %w", err)
	}
	if err := deps.Database.IncrementReblogCount(statusId); err != nil {
		log.Printf("Outbox: Failed to increment reblog count: %v", err)
	}

	return deps.Queue.Enqueue(domain.JobReblog, &domain.StatusActionJob{
		StatusId:  statusId,
		AccountId: localAccount.Id,
		URI:       announceURI,
	})
}

// UnreblogRemoteStatus reverses ReblogRemoteStatus.
func UnreblogRemoteStatus(deps *Deps, localAccount *domain.Account, statusId uuid.UUID) error {
	err, reblog := deps.Database.ReadReblog(localAccount.Id, statusId)
	if err != nil || reblog == nil {
		return nil
	}

	if err := deps.Database.DeleteReblog(localAccount.Id, statusId); err != nil {
		return fmt.Errorf("failed to delete reblog: %w", err)
	}
	if err := deps.Database.DecrementReblogCount(statusId); err != nil {
		log.Printf("Outbox: Failed to decrement reblog count: %v", err)
	}

	return deps.Queue.Enqueue(domain.JobUnreblog, &domain.StatusActionJob{
		StatusId:  statusId,
		AccountId: localAccount.Id,
		URI:       reblog.URI,
	})
}
