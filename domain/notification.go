package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NotificationType represents the type of notification
type NotificationType string

const (
	NotificationFollow        NotificationType = "follow"
	NotificationFollowRequest NotificationType = "follow_request"
	NotificationFavourite     NotificationType = "favourite"
	NotificationReblog        NotificationType = "reblog"
	NotificationMention       NotificationType = "mention"
)

// Notification represents a user notification
type Notification struct {
	Id               uuid.UUID
	AccountId        uuid.UUID        // the local user receiving the notification
	NotificationType NotificationType // follow, follow_request, favourite, reblog, mention
	ActorId          uuid.UUID        // the account that triggered the notification
	ActorUsername    string           // denormalized for display (e.g., "alice")
	ActorDomain      string           // denormalized for display (empty for local)
	StatusId         uuid.UUID        // the status involved (favourite/reblog/mention)
	StatusURI        string           // ActivityPub URI of the status
	Read             bool
	CreatedAt        time.Time
}

// ActorHandle returns the formatted @user or @user@domain string
func (n *Notification) ActorHandle() string {
	if n.ActorDomain == "" {
		return "@" + n.ActorUsername
	}
	return "@" + n.ActorUsername + "@" + n.ActorDomain
}

// TypeLabel returns a human-readable label for the notification type
func (n *Notification) TypeLabel() string {
	switch n.NotificationType {
	case NotificationFollow:
		return "followed you"
	case NotificationFollowRequest:
		return "requested to follow you"
	case NotificationFavourite:
		return "favourited your post"
	case NotificationReblog:
		return "boosted your post"
	case NotificationMention:
		return "mentioned you"
	default:
		return ""
	}
}

// Summary returns a one-line summary of the notification
func (n *Notification) Summary() string {
	return fmt.Sprintf("%s %s", n.ActorHandle(), n.TypeLabel())
}
