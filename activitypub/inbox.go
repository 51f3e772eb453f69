package activitypub

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pictodon/pictodon/domain"
	"github.com/pictodon/pictodon/queue"
)

// Activity represents a generic ActivityPub activity envelope
type Activity struct {
	Context any    `json:"@context"`
	ID      string `json:"id"`
	Type    string `json:"type"`
	Actor   string `json:"actor"`
	Object  any    `json:"object"`
}

// signedHeaders are the request headers carried into the queued job so
// the signature can be verified asynchronously.
var signedHeaders = []string{"Signature", "Date", "Digest", "Content-Type"}

const maxBodySize = 1 * 1024 * 1024

// HandleInbox accepts an inbound federation POST. It validates only
// what is cheap (algorithm, body size, JSON envelope), snapshots the
// request into a durable job and responds 202; signature verification
// and all side effects happen in the queue worker.
func HandleInbox(w http.ResponseWriter, r *http.Request, username string, deps *Deps) {
	if err := ValidateAlgorithm(r); err != nil {
		log.Printf("Inbox: %v", err)
		http.Error(w, "Invalid signature", http.StatusUnauthorized)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		log.Printf("Inbox: Failed to read body: %v", err)
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if len(body) > maxBodySize {
		log.Printf("Inbox: Request body too large")
		http.Error(w, "Request too large", http.StatusRequestEntityTooLarge)
		return
	}

	var activity Activity
	if err := json.Unmarshal(body, &activity); err != nil {
		log.Printf("Inbox: Failed to parse activity: %v", err)
		http.Error(w, "Invalid activity", http.StatusBadRequest)
		return
	}
	if activity.ID == "" || activity.Type == "" || activity.Actor == "" {
		log.Printf("Inbox: Activity missing required fields")
		http.Error(w, "Invalid activity", http.StatusBadRequest)
		return
	}

	log.Printf("Inbox: Queued %s from %s for %s", activity.Type, activity.Actor, username)

	headers := make(map[string]string, len(signedHeaders))
	for _, name := range signedHeaders {
		if value := r.Header.Get(name); value != "" {
			headers[name] = value
		}
	}

	job := &domain.InboxActivityJob{
		Activity: domain.ActivitySummary{
			Id:     activity.ID,
			Type:   activity.Type,
			Actor:  activity.Actor,
			Object: extractObjectURI(activity.Object),
		},
		Username: username,
		HttpPath: r.URL.Path,
		Method:   r.Method,
		Host:     r.Host,
		Headers:  headers,
		Body:     body,
	}
	if err := deps.Queue.Enqueue(domain.JobInboxActivity, job); err != nil {
		log.Printf("Inbox: Failed to enqueue activity: %v", err)
		http.Error(w, "Failed to accept activity", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// ProcessInboxJob is the queue worker for inbound activities.
func ProcessInboxJob(payload []byte, deps *Deps) error {
	var job domain.InboxActivityJob
	if err := json.Unmarshal(payload, &job); err != nil {
		return queue.Terminal(fmt.Errorf("malformed inbox job: %w", err))
	}
	return RouteActivity(&job, deps)
}

// ResolveSharedInboxTarget finds the local account an activity posted to
// the shared inbox is addressed to, scanning the to/cc lists and the
// object field for a local actor URI.
func ResolveSharedInboxTarget(body []byte, deps *Deps) (string, error) {
	var addressed struct {
		To     []string `json:"to"`
		Cc     []string `json:"cc"`
		Object any      `json:"object"`
	}
	if err := json.Unmarshal(body, &addressed); err != nil {
		return "", fmt.Errorf("failed to parse addressing: %w", err)
	}

	candidates := append(addressed.To, addressed.Cc...)
	candidates = append(candidates, extractObjectURI(addressed.Object))

	prefix := fmt.Sprintf("https://%s/users/", deps.Conf.Conf.Domain)
	for _, uri := range candidates {
		if !strings.HasPrefix(uri, prefix) {
			continue
		}
		username := strings.SplitN(strings.TrimPrefix(uri, prefix), "/", 2)[0]
		if username == "" {
			continue
		}
		if err, _ := deps.Database.ReadAccByUsername(username); err == nil {
			return username, nil
		}
	}
	return "", fmt.Errorf("no local recipient found")
}

// extractObjectURI pulls the object id from a string or embedded object
func extractObjectURI(object any) string {
	switch obj := object.(type) {
	case string:
		return obj
	case map[string]any:
		if id, ok := obj["id"].(string); ok {
			return id
		}
	}
	return ""
}

// handleFollow processes an inbound Follow. Idempotent: re-delivery of
// a Follow for an existing pair creates no second row.
func handleFollow(body []byte, username string, remoteActor *domain.RemoteAccount, deps *Deps) error {
	var follow struct {
		ID     string `json:"id"`
		Actor  string `json:"actor"`
		Object string `json:"object"`
	}
	if err := json.Unmarshal(body, &follow); err != nil {
		return queue.Terminal(fmt.Errorf("failed to parse Follow activity: %w", err))
	}
	if follow.ID == "" {
		return queue.Terminal(fmt.Errorf("Follow activity missing id"))
	}

	err, localAccount := deps.Database.ReadAccByUsername(username)
	if err != nil {
		return fmt.Errorf("local account not found: %w", err)
	}

	err, existing := deps.Database.ReadFollowByAccountIds(remoteActor.Id, localAccount.Id)
	if err == nil && existing != nil {
		log.Printf("Inbox: Follow from %s@%s already exists, skipping duplicate", remoteActor.Username, remoteActor.Domain)
		if existing.Approved {
			// Re-send the Accept so a remote that lost it converges
			return enqueueFollowResponse(deps, domain.JobAcceptFollow, username, remoteActor.ActorURI, existing.URI)
		}
		return nil
	}

	approved := !localAccount.ManualApproval
	followRecord := &domain.Follow{
		Id:              uuid.New(),
		AccountId:       remoteActor.Id,
		TargetAccountId: localAccount.Id,
		URI:             follow.ID,
		Approved:        approved,
		CreatedAt:       time.Now(),
	}
	if err := deps.Database.CreateFollow(followRecord); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			log.Printf("Inbox: Follow pair already exists, skipping")
			return nil
		}
		return fmt.Errorf("failed to create follow: %w", err)
	}

	notificationType := domain.NotificationFollowRequest
	if approved {
		notificationType = domain.NotificationFollow
		if err := enqueueFollowResponse(deps, domain.JobAcceptFollow, username, remoteActor.ActorURI, follow.ID); err != nil {
			return err
		}
		log.Printf("Inbox: Auto-approved follow from %s@%s", remoteActor.Username, remoteActor.Domain)
	} else {
		log.Printf("Inbox: Follow from %s@%s pending approval", remoteActor.Username, remoteActor.Domain)
	}

	notifyAccount(deps, localAccount.Id, notificationType, remoteActor, nil)
	return nil
}

func enqueueFollowResponse(deps *Deps, kind, username, actorURI, followURI string) error {
	return deps.Queue.Enqueue(kind, &domain.FollowResponseJob{
		Username:  username,
		ActorURI:  actorURI,
		FollowURI: followURI,
	})
}

// handleAccept flips the matching pending Follow to approved. The match
// key is the embedded Follow object id first, then the account pair; an
// Accept with no match is a no-op, which tolerates out-of-order and
// duplicate delivery.
func handleAccept(body []byte, username string, deps *Deps) error {
	accept, err := parseFollowResponse(body)
	if err != nil {
		return queue.Terminal(err)
	}

	err, follow := correlateFollow(accept, username, deps)
	if err != nil || follow == nil {
		log.Printf("Inbox: Accept from %s matches no pending follow, ignoring", accept.Actor)
		return nil
	}
	if follow.Approved {
		log.Printf("Inbox: Follow %s already approved", follow.URI)
		return nil
	}

	if err := deps.Database.ApproveFollowById(follow.Id); err != nil {
		return fmt.Errorf("failed to approve follow: %w", err)
	}
	log.Printf("Inbox: Follow %s was accepted by %s", follow.URI, accept.Actor)
	return nil
}

// handleReject deletes the matching Follow. No-op when nothing matches.
func handleReject(body []byte, username string, deps *Deps) error {
	reject, err := parseFollowResponse(body)
	if err != nil {
		return queue.Terminal(err)
	}

	err, follow := correlateFollow(reject, username, deps)
	if err != nil || follow == nil {
		log.Printf("Inbox: Reject from %s matches no follow, ignoring", reject.Actor)
		return nil
	}

	if err := deps.Database.DeleteFollowByURI(follow.URI); err != nil {
		return fmt.Errorf("failed to delete rejected follow: %w", err)
	}
	log.Printf("Inbox: Follow %s was rejected by %s", follow.URI, reject.Actor)
	return nil
}

// followResponse is the parsed form of an inbound Accept or Reject
type followResponse struct {
	Actor     string
	FollowURI string
}

func parseFollowResponse(body []byte) (*followResponse, error) {
	var response struct {
		Actor  string `json:"actor"`
		Object any    `json:"object"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse follow response: %w", err)
	}

	followURI := extractObjectURI(response.Object)
	if followURI == "" && response.Actor == "" {
		return nil, fmt.Errorf("follow response missing object and actor")
	}
	return &followResponse{Actor: response.Actor, FollowURI: followURI}, nil
}

// correlateFollow locates the Follow an Accept/Reject refers to: by the
// embedded object id when present, else by the (local, remote) pair.
func correlateFollow(response *followResponse, username string, deps *Deps) (error, *domain.Follow) {
	if response.FollowURI != "" {
		err, follow := deps.Database.ReadFollowByURI(response.FollowURI)
		if err == nil && follow != nil {
			return nil, follow
		}
	}

	err, localAccount := deps.Database.ReadAccByUsername(username)
	if err != nil {
		return err, nil
	}
	err, remoteActor := deps.Database.ReadRemoteAccountByActorURI(response.Actor)
	if err != nil || remoteActor == nil {
		return sql.ErrNoRows, nil
	}
	return deps.Database.ReadFollowByAccountIds(localAccount.Id, remoteActor.Id)
}

// handleUndo reverses the wrapped activity: Follow, Like or Announce.
// No-op when there is nothing to reverse.
func handleUndo(body []byte, remoteActor *domain.RemoteAccount, deps *Deps) error {
	var undo struct {
		Actor  string          `json:"actor"`
		Object json.RawMessage `json:"object"`
	}
	if err := json.Unmarshal(body, &undo); err != nil {
		return queue.Terminal(fmt.Errorf("failed to parse Undo activity: %w", err))
	}

	var obj struct {
		Type   string `json:"type"`
		ID     string `json:"id"`
		Object string `json:"object"`
	}
	if err := json.Unmarshal(undo.Object, &obj); err != nil {
		return queue.Terminal(fmt.Errorf("failed to parse Undo object: %w", err))
	}

	switch obj.Type {
	case "Follow":
		return undoFollow(undo.Actor, obj.ID, deps)
	case "Like":
		return undoLike(undo.Actor, obj.Object, remoteActor, deps)
	case "Announce":
		return undoAnnounce(undo.Actor, obj.Object, remoteActor, deps)
	default:
		log.Printf("Inbox: Ignoring Undo of unsupported type %s", obj.Type)
		return nil
	}
}

func undoFollow(actorURI, followURI string, deps *Deps) error {
	err, follow := deps.Database.ReadFollowByURI(followURI)
	if err != nil || follow == nil {
		log.Printf("Inbox: Undo Follow %s matches nothing, ignoring", followURI)
		return nil
	}

	err, followActor := deps.Database.ReadRemoteAccountById(follow.AccountId)
	if err != nil || followActor == nil {
		return fmt.Errorf("follow actor not found")
	}
	if followActor.ActorURI != actorURI {
		return queue.Terminalf("unauthorized: actor %s cannot undo follow created by %s", actorURI, followActor.ActorURI)
	}

	if err := deps.Database.DeleteFollowByURI(followURI); err != nil {
		return fmt.Errorf("failed to delete follow: %w", err)
	}
	log.Printf("Inbox: Removed follow %s from %s", followURI, actorURI)
	return nil
}

func undoLike(actorURI, objectURI string, remoteActor *domain.RemoteAccount, deps *Deps) error {
	if remoteActor.ActorURI != actorURI {
		return queue.Terminalf("unauthorized: actor %s cannot undo like by %s", actorURI, remoteActor.ActorURI)
	}

	err, status := deps.Database.ReadStatusByObjectURI(objectURI)
	if err != nil || status == nil {
		log.Printf("Inbox: Status not found for Undo Like %s, ignoring", objectURI)
		return nil
	}

	has, err := deps.Database.HasFavourite(remoteActor.Id, status.Id)
	if err != nil {
		return err
	}
	if !has {
		log.Printf("Inbox: No favourite to undo for %s on %s", actorURI, status.Id)
		return nil
	}

	if err := deps.Database.DeleteFavourite(remoteActor.Id, status.Id); err != nil {
		return fmt.Errorf("failed to delete favourite: %w", err)
	}
	if err := deps.Database.DecrementFavouriteCount(status.Id); err != nil {
		log.Printf("Inbox: Failed to decrement favourite count: %v", err)
	}
	log.Printf("Inbox: Removed favourite from %s@%s on status %s", remoteActor.Username, remoteActor.Domain, status.Id)
	return nil
}

func undoAnnounce(actorURI, objectURI string, remoteActor *domain.RemoteAccount, deps *Deps) error {
	if remoteActor.ActorURI != actorURI {
		return queue.Terminalf("unauthorized: actor %s cannot undo announce by %s", actorURI, remoteActor.ActorURI)
	}

	err, status := deps.Database.ReadStatusByObjectURI(objectURI)
	if err != nil || status == nil {
		log.Printf("Inbox: Status not found for Undo Announce %s, ignoring", objectURI)
		return nil
	}

	has, err := deps.Database.HasReblog(remoteActor.Id, status.Id)
	if err != nil {
		return err
	}
	if !has {
		log.Printf("Inbox: No reblog to undo for %s on %s", actorURI, status.Id)
		return nil
	}

	if err := deps.Database.DeleteReblog(remoteActor.Id, status.Id); err != nil {
		return fmt.Errorf("failed to delete reblog: %w", err)
	}
	if err := deps.Database.DecrementReblogCount(status.Id); err != nil {
		log.Printf("Inbox: Failed to decrement reblog count: %v", err)
	}
	log.Printf("Inbox: Removed reblog from %s@%s on status %s", remoteActor.Username, remoteActor.Domain, status.Id)
	return nil
}

// handleCreate stores a remote status with its attachments. Duplicate
// delivery of the same Create produces no second row.
func handleCreate(body []byte, username string, remoteActor *domain.RemoteAccount, deps *Deps) error {
	var create struct {
		ID     string `json:"id"`
		Actor  string `json:"actor"`
		Object struct {
			ID           string `json:"id"`
			Type         string `json:"type"`
			Content      string `json:"content"`
			Summary      string `json:"summary"`
			Sensitive    bool   `json:"sensitive"`
			Published    string `json:"published"`
			AttributedTo string `json:"attributedTo"`
			InReplyTo    string `json:"inReplyTo"`
			Attachment   []struct {
				Type      string `json:"type"`
				MediaType string `json:"mediaType"`
				URL       string `json:"url"`
				Name      string `json:"name"`
			} `json:"attachment"`
			Tag []struct {
				Type string `json:"type"`
				Href string `json:"href"`
				Name string `json:"name"`
			} `json:"tag"`
		} `json:"object"`
	}
	if err := json.Unmarshal(body, &create); err != nil {
		return queue.Terminal(fmt.Errorf("failed to parse Create activity: %w", err))
	}
	if create.Object.ID == "" {
		return queue.Terminal(fmt.Errorf("Create activity missing object id"))
	}

	// Accept content only from actors the recipient follows, or replies
	// to content we host; anything else from the open federation is noise
	err, localAccount := deps.Database.ReadAccByUsername(username)
	if err != nil {
		return fmt.Errorf("local account not found: %w", err)
	}
	err, follow := deps.Database.ReadFollowByAccountIds(localAccount.Id, remoteActor.Id)
	following := err == nil && follow != nil
	if !following {
		replyToLocal := false
		if create.Object.InReplyTo != "" {
			if err, parent := deps.Database.ReadStatusByObjectURI(create.Object.InReplyTo); err == nil && parent != nil && parent.Local {
				replyToLocal = true
			}
		}
		if !replyToLocal {
			log.Printf("Inbox: Ignoring Create from %s, not followed and not a reply to local content", create.Actor)
			return nil
		}
	}

	// Dedup by both keys: the remote Create id and the object id
	if err, existing := deps.Database.ReadStatusByActivityURI(create.ID); err == nil && existing != nil {
		log.Printf("Inbox: Create %s already applied, skipping", create.ID)
		return nil
	}
	if err, existing := deps.Database.ReadStatusByObjectURI(create.Object.ID); err == nil && existing != nil {
		log.Printf("Inbox: Status %s already known, skipping", create.Object.ID)
		return nil
	}

	createdAt := time.Now()
	if create.Object.Published != "" {
		if parsed, err := time.Parse(time.RFC3339, create.Object.Published); err == nil {
			createdAt = parsed
		}
	}

	status := &domain.Status{
		Id:             uuid.New(),
		AccountId:      remoteActor.Id,
		Content:        create.Object.Content,
		Visibility:     domain.VisibilityPublic,
		Sensitive:      create.Object.Sensitive,
		ContentWarning: create.Object.Summary,
		InReplyToURI:   create.Object.InReplyTo,
		ObjectURI:      create.Object.ID,
		ActivityURI:    create.ID,
		Local:          false,
		CreatedAt:      createdAt,
	}
	if err := deps.Database.CreateStatus(status); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			log.Printf("Inbox: Status %s raced a duplicate insert, skipping", create.Object.ID)
			return nil
		}
		return fmt.Errorf("failed to store status: %w", err)
	}

	for _, att := range create.Object.Attachment {
		if att.URL == "" {
			continue
		}
		attachment := &domain.Attachment{
			Id:          uuid.New(),
			StatusId:    status.Id,
			URL:         att.URL,
			MediaType:   att.MediaType,
			Description: att.Name,
			CreatedAt:   time.Now(),
		}
		if err := deps.Database.CreateAttachment(attachment); err != nil {
			log.Printf("Inbox: Failed to store attachment %s: %v", att.URL, err)
		}
	}

	if create.Object.InReplyTo != "" {
		if err := deps.Database.IncrementReplyCountByURI(create.Object.InReplyTo); err != nil {
			log.Printf("Inbox: Failed to increment reply count for %s: %v", create.Object.InReplyTo, err)
		}
	}

	for _, tag := range create.Object.Tag {
		if tag.Type != "Mention" {
			continue
		}
		storeMention(deps, status, remoteActor, tag.Href, tag.Name)
	}

	log.Printf("Inbox: Stored status %s from %s@%s", status.Id, remoteActor.Username, remoteActor.Domain)
	return nil
}

// storeMention records a mention row and notifies the mentioned user
// when they are local.
func storeMention(deps *Deps, status *domain.Status, remoteActor *domain.RemoteAccount, href, name string) {
	mentionName := strings.TrimPrefix(name, "@")
	parts := strings.SplitN(mentionName, "@", 2)
	if len(parts) != 2 {
		return
	}

	mention := &domain.Mention{
		Id:                uuid.New(),
		StatusId:          status.Id,
		MentionedActorURI: href,
		MentionedUsername: parts[0],
		MentionedDomain:   parts[1],
		CreatedAt:         time.Now(),
	}
	if err := deps.Database.CreateMention(mention); err != nil {
		log.Printf("Inbox: Failed to store mention %s: %v", name, err)
		return
	}

	if parts[1] != deps.Conf.Conf.Domain {
		return
	}
	err, mentioned := deps.Database.ReadAccByUsername(parts[0])
	if err != nil || mentioned == nil {
		return
	}
	notifyAccount(deps, mentioned.Id, domain.NotificationMention, remoteActor, status)
}

// handleUpdate patches a known remote status or refreshes a cached
// actor profile. Unknown objects are a no-op.
func handleUpdate(body []byte, remoteActor *domain.RemoteAccount, deps *Deps) error {
	var update struct {
		Actor  string          `json:"actor"`
		Object json.RawMessage `json:"object"`
	}
	if err := json.Unmarshal(body, &update); err != nil {
		return queue.Terminal(fmt.Errorf("failed to parse Update activity: %w", err))
	}

	var obj struct {
		ID        string `json:"id"`
		Type      string `json:"type"`
		Content   string `json:"content"`
		Summary   string `json:"summary"`
		Sensitive bool   `json:"sensitive"`
	}
	if err := json.Unmarshal(update.Object, &obj); err != nil {
		return queue.Terminal(fmt.Errorf("failed to parse Update object: %w", err))
	}

	switch obj.Type {
	case "Person":
		refreshed, err := FetchRemoteActor(update.Actor, deps.HTTPClient, deps.Database)
		if err != nil {
			return fmt.Errorf("failed to fetch updated actor: %w", err)
		}
		log.Printf("Inbox: Updated profile for %s@%s", refreshed.Username, refreshed.Domain)
		return nil

	case "Note", "Image", "Article":
		err, status := deps.Database.ReadStatusByObjectURI(obj.ID)
		if err != nil || status == nil {
			log.Printf("Inbox: Status %s not known, ignoring Update", obj.ID)
			return nil
		}
		if status.AccountId != remoteActor.Id {
			return queue.Terminalf("unauthorized: actor %s cannot update status owned by %s", update.Actor, status.AccountId)
		}
		if err := deps.Database.UpdateStatusContent(status.Id, obj.Content, obj.Sensitive, obj.Summary); err != nil {
			return fmt.Errorf("failed to update status: %w", err)
		}
		log.Printf("Inbox: Updated status %s", status.Id)
		return nil

	default:
		log.Printf("Inbox: Ignoring Update of unsupported type %s", obj.Type)
		return nil
	}
}

// handleDelete removes a status or a whole remote actor. Deleting
// something already gone is a no-op.
func handleDelete(body []byte, remoteActor *domain.RemoteAccount, deps *Deps) error {
	var del struct {
		Actor  string `json:"actor"`
		Object any    `json:"object"`
	}
	if err := json.Unmarshal(body, &del); err != nil {
		return queue.Terminal(fmt.Errorf("failed to parse Delete activity: %w", err))
	}

	objectURI := extractObjectURI(del.Object)
	if objectURI == "" {
		return queue.Terminal(fmt.Errorf("could not determine object URI from Delete activity"))
	}

	if objectURI == del.Actor {
		// Actor self-delete: drop the account and everything tied to it
		log.Printf("Inbox: Actor %s deleted their account", del.Actor)
		if err := deps.Database.DeleteFollowsByAccountId(remoteActor.Id); err != nil {
			log.Printf("Inbox: Failed to delete follows for %s: %v", del.Actor, err)
		}
		if err := deps.Database.DeleteStatusesByAccountId(remoteActor.Id); err != nil {
			log.Printf("Inbox: Failed to delete statuses for %s: %v", del.Actor, err)
		}
		if err := deps.Database.DeleteRemoteAccount(remoteActor.Id); err != nil {
			return fmt.Errorf("failed to delete remote account: %w", err)
		}
		return nil
	}

	err, status := deps.Database.ReadStatusByObjectURI(objectURI)
	if err != nil || status == nil {
		log.Printf("Inbox: Status %s not known, ignoring Delete", objectURI)
		return nil
	}
	if status.AccountId != remoteActor.Id {
		return queue.Terminalf("unauthorized: actor %s cannot delete status owned by %s", del.Actor, status.AccountId)
	}

	if err := deps.Database.DeleteStatusById(status.Id); err != nil {
		return fmt.Errorf("failed to delete status: %w", err)
	}
	if err, activity := deps.Database.ReadActivityByObjectURI(objectURI); err == nil && activity != nil {
		if err := deps.Database.DeleteActivity(activity.Id); err != nil {
			log.Printf("Inbox: Failed to delete activity record for %s: %v", objectURI, err)
		}
	}
	log.Printf("Inbox: Deleted status %s", objectURI)
	return nil
}

// handleLike stores a favourite from a remote actor on a local status.
// Duplicate delivery must not double-count.
func handleLike(body []byte, remoteActor *domain.RemoteAccount, deps *Deps) error {
	var like struct {
		ID     string `json:"id"`
		Actor  string `json:"actor"`
		Object string `json:"object"`
	}
	if err := json.Unmarshal(body, &like); err != nil {
		return queue.Terminal(fmt.Errorf("failed to parse Like activity: %w", err))
	}
	if like.ID == "" || like.Object == "" {
		return queue.Terminal(fmt.Errorf("Like activity missing id or object"))
	}

	err, status := deps.Database.ReadStatusByObjectURI(like.Object)
	if err != nil || status == nil {
		log.Printf("Inbox: Status not found for Like %s, ignoring", like.Object)
		return nil
	}

	exists, err := deps.Database.HasFavourite(remoteActor.Id, status.Id)
	if err != nil {
		return err
	}
	if exists {
		log.Printf("Inbox: Favourite from %s on %s already exists, skipping", like.Actor, status.Id)
		return nil
	}

	favourite := &domain.Favourite{
		Id:        uuid.New(),
		AccountId: remoteActor.Id,
		StatusId:  status.Id,
		URI:       like.ID,
		CreatedAt: time.Now(),
	}
	if err := deps.Database.CreateFavourite(favourite); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil
		}
		return fmt.Errorf("failed to store favourite: %w", err)
	}
	if err := deps.Database.IncrementFavouriteCount(status.Id); err != nil {
		log.Printf("Inbox: Failed to increment favourite count: %v", err)
	}

	notifyStatusOwner(deps, status, domain.NotificationFavourite, remoteActor)
	log.Printf("Inbox: Stored favourite from %s@%s on status %s", remoteActor.Username, remoteActor.Domain, status.Id)
	return nil
}

// handleAnnounce stores a reblog from a remote actor on a local status.
func handleAnnounce(body []byte, remoteActor *domain.RemoteAccount, deps *Deps) error {
	var announce struct {
		ID     string `json:"id"`
		Actor  string `json:"actor"`
		Object any    `json:"object"`
	}
	if err := json.Unmarshal(body, &announce); err != nil {
		return queue.Terminal(fmt.Errorf("failed to parse Announce activity: %w", err))
	}

	objectURI := extractObjectURI(announce.Object)
	if announce.ID == "" || objectURI == "" {
		return queue.Terminal(fmt.Errorf("Announce activity missing id or object"))
	}

	err, status := deps.Database.ReadStatusByObjectURI(objectURI)
	if err != nil || status == nil {
		log.Printf("Inbox: Status not found for Announce %s, ignoring", objectURI)
		return nil
	}

	exists, err := deps.Database.HasReblog(remoteActor.Id, status.Id)
	if err != nil {
		return err
	}
	if exists {
		log.Printf("Inbox: Reblog from %s on %s already exists, skipping", announce.Actor, status.Id)
		return nil
	}

	reblog := &domain.Reblog{
		Id:        uuid.New(),
		AccountId: remoteActor.Id,
		StatusId:  status.Id,
		URI:       announce.ID,
		CreatedAt: time.Now(),
	}
	if err := deps.Database.CreateReblog(reblog); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil
		}
		return fmt.Errorf("failed to store reblog: %w", err)
	}
	if err := deps.Database.IncrementReblogCount(status.Id); err != nil {
		log.Printf("Inbox: Failed to increment reblog count: %v", err)
	}

	notifyStatusOwner(deps, status, domain.NotificationReblog, remoteActor)
	log.Printf("Inbox: Stored reblog from %s@%s on status %s", remoteActor.Username, remoteActor.Domain, status.Id)
	return nil
}

// notifyStatusOwner creates a notification for the status owner when
// they are a local account.
func notifyStatusOwner(deps *Deps, status *domain.Status, notificationType domain.NotificationType, actor *domain.RemoteAccount) {
	err, owner := deps.Database.ReadAccById(status.AccountId)
	if err != nil || owner == nil {
		return
	}
	notifyAccount(deps, owner.Id, notificationType, actor, status)
}

func notifyAccount(deps *Deps, accountId uuid.UUID, notificationType domain.NotificationType, actor *domain.RemoteAccount, status *domain.Status) {
	notification := &domain.Notification{
		Id:               uuid.New(),
		AccountId:        accountId,
		NotificationType: notificationType,
		ActorId:          actor.Id,
		ActorUsername:    actor.Username,
		ActorDomain:      actor.Domain,
		CreatedAt:        time.Now(),
	}
	if status != nil {
		notification.StatusId = status.Id
		notification.StatusURI = status.ObjectURI
	}
	if err := deps.Database.CreateNotification(notification); err != nil {
		log.Printf("Inbox: Failed to store notification: %v", err)
	}
}
